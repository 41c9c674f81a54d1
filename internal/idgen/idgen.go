// Package idgen mints room identifiers and reservation tokens and
// validates room-id syntax.
package idgen

import (
	"crypto/rand"
	"regexp"
	"strings"
)

const roomIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// tokenAlphabet avoids visually ambiguous characters while still giving
// negligible collision probability at the expected concurrency.
const tokenAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

const (
	roomIDLength = 7
	tokenLength  = 24
)

var roomIDPattern = regexp.MustCompile(`^[A-Z0-9]{6,12}$`)

func randomString(alphabet string, n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("idgen: crypto/rand unavailable: " + err.Error())
	}
	out := make([]byte, n)
	for i, v := range b {
		out[i] = alphabet[int(v)%len(alphabet)]
	}
	return string(out)
}

// NewRoomID returns a fresh 7-character room id drawn from [A-Z0-9].
// Callers must handle collisions themselves (see internal/store).
func NewRoomID() string {
	return randomString(roomIDAlphabet, roomIDLength)
}

// NewReservationToken returns an opaque token of at least 16 characters.
func NewReservationToken() string {
	return randomString(tokenAlphabet, tokenLength)
}

// ValidRoomID trims and upper-cases s, then validates it against
// ^[A-Z0-9]{6,12}$. Returns ("", false) on failure.
func ValidRoomID(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !roomIDPattern.MatchString(s) {
		return "", false
	}
	return s, true
}
