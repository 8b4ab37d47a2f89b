// Package signing issues tamper-evident tokens for activation links and
// password reset links.
package signing

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrBadSignature is returned for any token that does not verify.
var ErrBadSignature = errors.New("bad signature")

// DefaultSalt namespaces activation tokens.
const DefaultSalt = "bboard.signing.Signer"

// Signer binds a string value to the secret key. Tokens never expire; rotating
// the secret key invalidates every token issued before.
type Signer struct {
	key []byte
}

// NewSigner derives the signing key from secret and salt. An empty salt
// selects DefaultSalt.
func NewSigner(secret, salt string) *Signer {
	if salt == "" {
		salt = DefaultSalt
	}
	return &Signer{key: deriveKey(secret, salt)}
}

func deriveKey(secret, salt string) []byte {
	sum := sha256.Sum256([]byte(salt + "signer" + secret))
	return sum[:]
}

// Sign returns a token carrying value. The same value always yields the
// same token.
func (s *Signer) Sign(value string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: value})
	signed, err := token.SignedString(s.key)
	if err != nil {
		// HS256 with a byte key cannot fail.
		panic(fmt.Sprintf("signing: %v", err))
	}
	return signed
}

// Unsign verifies token and returns the value it carries.
func (s *Signer) Unsign(token string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
	)
	if err != nil || !parsed.Valid {
		return "", ErrBadSignature
	}
	return claims.Subject, nil
}
