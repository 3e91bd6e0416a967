// Package validators contains validators found throughout the application
// that have been abstracted away from the main code
package validators

import (
	"errors"
	"net/mail"
	"strings"
)

var (
	ErrEmailEmpty   = errors.New("no email address provided")
	ErrEmailInvalid = errors.New("invalid email address provided")
)

// EmailValidator accepts a bare address with a dotted domain
func EmailValidator(e string) error {
	if e == "" {
		return ErrEmailEmpty
	}

	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		return ErrEmailInvalid
	}

	_, domain, _ := strings.Cut(e, "@")
	if !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return ErrEmailInvalid
	}

	return nil
}

// NormalizeEmail is applied before any lookup or insert so the unique index
// sees one spelling per address
func NormalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
