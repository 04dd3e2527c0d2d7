// Package validators contains validators found throughout the application
// that have been abstracted away from the main code
package validators

import (
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmailEmpty   = errors.New("no email address provided")
	ErrEmailInvalid = errors.New("invalid email address provided")
	ErrNameEmpty    = errors.New("no name provided")
	ErrNameTooLong  = errors.New("name is too long")
)

const maxEmailLength = 254

func EmailValidator(e string) error {
	if e == "" {
		return ErrEmailEmpty
	}

	if len(e) > maxEmailLength {
		return ErrEmailInvalid
	}

	// ParseAddress also accepts "Name <addr>", only the bare address is allowed here
	a, err := mail.ParseAddress(e)
	if err != nil || a.Address != e {
		return ErrEmailInvalid
	}

	return nil
}

func NameValidator(n string) error {
	if strings.TrimSpace(n) == "" {
		return ErrNameEmpty
	}

	if utf8.RuneCountInString(n) > 100 {
		return ErrNameTooLong
	}

	return nil
}
