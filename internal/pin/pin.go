// Package pin hashes and verifies GameMaster PINs. PINs are short
// numeric secrets chosen at game creation, so they are stored as
// argon2id hashes, never in clear.
package pin

import (
	"regexp"

	"github.com/alexedwards/argon2id"
)

var pinPattern = regexp.MustCompile(`^\d{4,6}$`)

// ValidFormat reports whether raw is 4 to 6 digits.
func ValidFormat(raw string) bool {
	return pinPattern.MatchString(raw)
}

func Hash(raw string) (string, error) {
	return argon2id.CreateHash(raw, argon2id.DefaultParams)
}

// Verify reports whether raw matches the stored hash. Malformed hashes
// verify as false rather than erroring; the caller only cares about
// match or no match.
func Verify(raw, hash string) bool {
	match, err := argon2id.ComparePasswordAndHash(raw, hash)
	if err != nil {
		return false
	}
	return match
}
