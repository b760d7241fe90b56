// Package checkin encodes and decodes the payload carried by attendance
// QR codes. The wire format is fixed: "userId:<int>,eventId:<int>".
package checkin

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidToken = errors.New("invalid check-in token")

// Token identifies the (user, event) pair a check-in scan refers to.
type Token struct {
	UserID  int64
	EventID int64
}

// Encode renders the token in its wire form.
func (t Token) Encode() string {
	return fmt.Sprintf("userId:%d,eventId:%d", t.UserID, t.EventID)
}

// Parse decodes a wire-form token. Anything other than exactly two
// comma-separated key:value segments with the expected keys and positive
// integer values fails with ErrInvalidToken.
func Parse(s string) (Token, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Token{}, ErrInvalidToken
	}

	userID, err := parseField(parts[0], "userId")
	if err != nil {
		return Token{}, err
	}
	eventID, err := parseField(parts[1], "eventId")
	if err != nil {
		return Token{}, err
	}
	return Token{UserID: userID, EventID: eventID}, nil
}

func parseField(segment, key string) (int64, error) {
	k, v, ok := strings.Cut(segment, ":")
	if !ok || k != key {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
