package domain

import (
	"errors"
	"net/mail"
	"strings"
)

// ErrInvalidEmail is returned when an address fails parsing. Stored
// recipients may predate validation, so callers treat this as a normal
// outcome rather than an exception.
var ErrInvalidEmail = errors.New("invalid email address")

// EmailAddress is a syntactically valid, trimmed email address.
// The zero value is not valid; construct via ParseEmail.
type EmailAddress struct {
	value string
}

// ParseEmail validates s and returns it as an EmailAddress. The address
// must be a bare RFC 5322 addr-spec (no display name) with a dotted domain.
func ParseEmail(s string) (EmailAddress, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return EmailAddress{}, ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Name != "" || addr.Address != trimmed {
		return EmailAddress{}, ErrInvalidEmail
	}
	at := strings.LastIndex(addr.Address, "@")
	if at <= 0 {
		return EmailAddress{}, ErrInvalidEmail
	}
	host := addr.Address[at+1:]
	if !strings.Contains(host, ".") || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return EmailAddress{}, ErrInvalidEmail
	}
	return EmailAddress{value: addr.Address}, nil
}

// String returns the validated address.
func (e EmailAddress) String() string {
	return e.value
}
