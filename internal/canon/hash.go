package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// QueryHash identifies a query instance: "<queryKey>::<canonical args>".
//
// Args that encode to null (nil, typed nil pointers) hash as "<queryKey>::".
func QueryHash(queryKey string, args any) (string, error) {
	if args == nil {
		return queryKey + "::", nil
	}
	b, err := Marshal(args)
	if err != nil {
		return "", fmt.Errorf("query hash %s: %w", queryKey, err)
	}
	if string(b) == "null" {
		return queryKey + "::", nil
	}
	return queryKey + "::" + string(b), nil
}

// Digest returns a domain-separated SHA-256 digest of v's canonical form.
// Format: SHA256(domain + 0x00 + canonical(v)).
func Digest(domain string, v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil)), nil
}
