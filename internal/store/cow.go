package store

// CloneMap returns a copy of m. The copy is never nil.
func CloneMap[M ~map[K]V, K comparable, V any](m M) M {
	out := make(M, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SetKey returns a copy of m with m[k] = v.
func SetKey[M ~map[K]V, K comparable, V any](m M, k K, v V) M {
	out := CloneMap(m)
	out[k] = v
	return out
}

// DeleteKey returns a copy of m without k. m is returned unchanged when k is
// absent.
func DeleteKey[M ~map[K]V, K comparable, V any](m M, k K) M {
	if _, ok := m[k]; !ok {
		return m
	}
	out := CloneMap(m)
	delete(out, k)
	return out
}

// SetIndex returns a copy of s with s[i] = v. Panics if i is out of range.
func SetIndex[S ~[]E, E any](s S, i int, v E) S {
	out := make(S, len(s))
	copy(out, s)
	out[i] = v
	return out
}

// Append returns a new slice holding s followed by v. The result never shares
// a backing array with s.
func Append[S ~[]E, E any](s S, v ...E) S {
	out := make(S, len(s), len(s)+len(v))
	copy(out, s)
	return append(out, v...)
}
