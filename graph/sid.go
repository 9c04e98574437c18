// ABOUTME: Stable identity generation using ULIDs with crypto/rand entropy.
// ABOUTME: Centralizes sid creation so every entity shares the same format and entropy source.
package graph

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// NewSID generates a new stable identity: a 26-character, timestamp-prefixed
// ULID string. Assigned once at entity construction and never mutated; sids
// are the only cross-reference key in persisted form.
func NewSID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// ValidSID reports whether s parses as a ULID.
func ValidSID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
