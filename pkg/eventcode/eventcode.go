// Package eventcode produces the short public codes that identify events
// in registration links and QR payloads.
package eventcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
)

const (
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	Length   = 6
)

var codeRegex = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// Generate returns a fresh 6-character code drawn uniformly from [A-Z0-9].
// Uniqueness is not guaranteed here; the events table carries a unique
// constraint on event_code and callers retry on conflict.
func Generate() (string, error) {
	buf := make([]byte, Length)
	max := big.NewInt(int64(len(Alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to draw random index: %w", err)
		}
		buf[i] = Alphabet[n.Int64()]
	}
	return string(buf), nil
}

// Valid reports whether s has the exact shape of an event code.
func Valid(s string) bool {
	return codeRegex.MatchString(s)
}

// BuildRegistrationLink derives the public self-registration URL for a code.
func BuildRegistrationLink(baseURL, code string) string {
	return baseURL + "/user-register?eventCode=" + url.QueryEscape(code)
}
