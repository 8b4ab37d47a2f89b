package validation

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// MaxSimilarity is the quick-ratio threshold above which a password counts
// as derived from a user attribute.
const MaxSimilarity = 0.7

// UserAttributes are the account fields a password must not resemble.
type UserAttributes struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
}

// PasswordValidator checks one password rule.
type PasswordValidator func(password string, attrs UserAttributes) error

// DefaultPasswordValidators returns the rules applied on registration,
// password change and password reset, in reporting order.
func DefaultPasswordValidators() []PasswordValidator {
	return []PasswordValidator{
		UserAttributeSimilarity,
		MinimumLength,
		CommonPassword,
		NumericPassword,
	}
}

// ValidatePassword runs every default rule and returns all failures.
func ValidatePassword(password string, attrs UserAttributes) []error {
	var errs []error
	for _, v := range DefaultPasswordValidators() {
		if err := v(password, attrs); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// MinimumLength rejects passwords shorter than MinPasswordLength runes.
func MinimumLength(password string, _ UserAttributes) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("This password is too short. It must contain at least %d characters.", MinPasswordLength)
	}
	return nil
}

// NumericPassword rejects passwords made of digits only.
func NumericPassword(password string, _ UserAttributes) error {
	if password == "" {
		return nil
	}
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return nil
		}
	}
	return errors.New("This password is entirely numeric.")
}

//go:embed common_passwords.txt
var commonPasswordsRaw string

var (
	commonOnce      sync.Once
	commonPasswords map[string]struct{}
)

func loadCommonPasswords() {
	commonPasswords = make(map[string]struct{})
	for _, line := range strings.Split(commonPasswordsRaw, "\n") {
		if p := strings.TrimSpace(line); p != "" {
			commonPasswords[strings.ToLower(p)] = struct{}{}
		}
	}
}

// CommonPassword rejects passwords from the embedded list, ignoring case
// and surrounding spaces.
func CommonPassword(password string, _ UserAttributes) error {
	commonOnce.Do(loadCommonPasswords)
	if _, ok := commonPasswords[strings.ToLower(strings.TrimSpace(password))]; ok {
		return errors.New("This password is too common.")
	}
	return nil
}

var nonWord = regexp.MustCompile(`\W+`)

// UserAttributeSimilarity rejects passwords too close to the username,
// names or email, or to any word-part of them.
func UserAttributeSimilarity(password string, attrs UserAttributes) error {
	if password == "" {
		return nil
	}
	pw := strings.ToLower(password)
	checks := []struct {
		label string
		value string
	}{
		{"username", attrs.Username},
		{"first name", attrs.FirstName},
		{"last name", attrs.LastName},
		{"email address", attrs.Email},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		value := strings.ToLower(c.value)
		parts := append(nonWord.Split(value, -1), value)
		for _, part := range parts {
			if part == "" || exceedsLengthRatio(pw, part) {
				continue
			}
			if quickRatio(pw, part) >= MaxSimilarity {
				return fmt.Errorf("The password is too similar to the %s.", c.label)
			}
		}
	}
	return nil
}

// exceedsLengthRatio skips values far shorter than the password, which could
// never reach the similarity threshold in a meaningful way.
func exceedsLengthRatio(password, value string) bool {
	pwLen := utf8.RuneCountInString(password)
	valueLen := utf8.RuneCountInString(value)
	return pwLen >= 10*valueLen && float64(valueLen) < MaxSimilarity/2*float64(pwLen)
}

// quickRatio is an upper bound on the sequence similarity of a and b:
// twice the size of their rune multiset intersection over the total length.
func quickRatio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}
	avail := make(map[rune]int)
	for _, r := range b {
		avail[r]++
	}
	matches := 0
	for _, r := range a {
		if avail[r] > 0 {
			avail[r]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(total)
}
