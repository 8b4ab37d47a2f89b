// Package validation provides input validation utilities
package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxUsernameLength = 150
	maxEmailLength    = 254
	maxNameLength     = 150
)

// ErrRequired is the message for an empty mandatory field.
var ErrRequired = errors.New("This field is required.")

// ValidateUsername accepts 1-150 letters, digits and @.+-_ characters.
func ValidateUsername(username string) error {
	if username == "" {
		return ErrRequired
	}
	if n := utf8.RuneCountInString(username); n > maxUsernameLength {
		return maxLengthError(maxUsernameLength, n)
	}
	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("@.+-_", r) {
			continue
		}
		return errors.New("Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
	return nil
}

// ValidateEmail accepts a bare RFC 5322 address whose domain has a dot.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrRequired
	}
	if n := utf8.RuneCountInString(email); n > maxEmailLength {
		return maxLengthError(maxEmailLength, n)
	}
	invalid := errors.New("Enter a valid email address.")
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return invalid
	}
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return invalid
	}
	return nil
}

// ValidateName checks an optional first or last name.
func ValidateName(name string) error {
	if n := utf8.RuneCountInString(name); n > maxNameLength {
		return maxLengthError(maxNameLength, n)
	}
	return nil
}

func maxLengthError(limit, got int) error {
	return fmt.Errorf("Ensure this value has at most %d characters (it has %d).", limit, got)
}
