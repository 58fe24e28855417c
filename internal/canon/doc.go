// Package canon produces canonical JSON for hashing and persistence.
//
// Canonical form:
//   - object keys sorted by UTF-16 code units (RFC 8785 ordering)
//   - object members whose value is null are dropped
//   - strings are NFC normalized and never HTML-escaped
//   - numbers keep their shortest JSON representation
//
// Two values that differ only in key order, or in members that are absent
// versus explicitly null, produce identical bytes. Query hashes rely on this.
package canon
