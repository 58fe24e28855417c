package router

import (
	"net/url"
	"strconv"
)

// Result is the outcome of an encode or decode.
type Result[T any] struct {
	Valid bool
	Value T
}

// Ok returns a valid result.
func Ok[T any](v T) Result[T] {
	return Result[T]{Valid: true, Value: v}
}

// Invalid returns an invalid result.
func Invalid[T any]() Result[T] {
	return Result[T]{}
}

// Encoder converts between an encoded form E and a decoded form D.
type Encoder[E, D any] interface {
	Encode(D) Result[E]
	Decode(E) Result[D]
}

// Codec builds an Encoder from two functions.
type Codec[E, D any] struct {
	EncodeFunc func(D) Result[E]
	DecodeFunc func(E) Result[D]
}

func (c Codec[E, D]) Encode(v D) Result[E] { return c.EncodeFunc(v) }
func (c Codec[E, D]) Decode(v E) Result[D] { return c.DecodeFunc(v) }

// String is the identity codec for strings.
func String() Encoder[string, string] {
	return Codec[string, string]{
		EncodeFunc: Ok[string],
		DecodeFunc: Ok[string],
	}
}

// Int decodes base-10 integers.
func Int() Encoder[string, int] {
	return Codec[string, int]{
		EncodeFunc: func(v int) Result[string] { return Ok(strconv.Itoa(v)) },
		DecodeFunc: func(s string) Result[int] {
			n, err := strconv.Atoi(s)
			if err != nil {
				return Invalid[int]()
			}
			return Ok(n)
		},
	}
}

// Bool decodes "true" and "false".
func Bool() Encoder[string, bool] {
	return Codec[string, bool]{
		EncodeFunc: func(v bool) Result[string] { return Ok(strconv.FormatBool(v)) },
		DecodeFunc: func(s string) Result[bool] {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return Invalid[bool]()
			}
			return Ok(b)
		},
	}
}

// Erase hides the decoded type of enc so codecs of different types can be
// combined.
func Erase[E, D any](enc Encoder[E, D]) Encoder[E, any] {
	return Codec[E, any]{
		EncodeFunc: func(v any) Result[E] {
			d, ok := v.(D)
			if !ok {
				return Invalid[E]()
			}
			return enc.Encode(d)
		},
		DecodeFunc: func(e E) Result[any] {
			r := enc.Decode(e)
			if !r.Valid {
				return Invalid[any]()
			}
			return Ok[any](r.Value)
		},
	}
}

// Fields decodes a map of raw path parameters field by field into a
// map[string]any. Every field is required.
func Fields(fields map[string]Encoder[string, any]) Encoder[map[string]string, any] {
	return Codec[map[string]string, any]{
		EncodeFunc: func(v any) Result[map[string]string] {
			m, ok := v.(map[string]any)
			if !ok {
				return Invalid[map[string]string]()
			}
			out := make(map[string]string, len(fields))
			for name, enc := range fields {
				r := enc.Encode(m[name])
				if !r.Valid {
					return Invalid[map[string]string]()
				}
				out[name] = r.Value
			}
			return Ok(out)
		},
		DecodeFunc: func(raw map[string]string) Result[any] {
			out := make(map[string]any, len(fields))
			for name, enc := range fields {
				s, ok := raw[name]
				if !ok {
					return Invalid[any]()
				}
				r := enc.Decode(s)
				if !r.Valid {
					return Invalid[any]()
				}
				out[name] = r.Value
			}
			return Ok[any](out)
		},
	}
}

// QueryFields decodes search parameters. Absent keys are left out of the
// decoded map; present keys must decode.
func QueryFields(fields map[string]Encoder[string, any]) Encoder[url.Values, any] {
	return Codec[url.Values, any]{
		EncodeFunc: func(v any) Result[url.Values] {
			m, ok := v.(map[string]any)
			if !ok {
				return Invalid[url.Values]()
			}
			out := url.Values{}
			for name, enc := range fields {
				val, present := m[name]
				if !present {
					continue
				}
				r := enc.Encode(val)
				if !r.Valid {
					return Invalid[url.Values]()
				}
				out.Set(name, r.Value)
			}
			return Ok(out)
		},
		DecodeFunc: func(q url.Values) Result[any] {
			out := make(map[string]any)
			for name, enc := range fields {
				if !q.Has(name) {
					continue
				}
				r := enc.Decode(q.Get(name))
				if !r.Valid {
					return Invalid[any]()
				}
				out[name] = r.Value
			}
			return Ok[any](out)
		},
	}
}
