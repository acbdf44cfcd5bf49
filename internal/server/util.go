package server

import (
	"crypto/rand"
	"strings"
	"time"
)

const gameCodeLength = 6

// newGameCode returns a 6-character join code of uppercase letters and
// digits.
func newGameCode() string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	buf := make([]byte, gameCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "AAAAAA"
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf)
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
