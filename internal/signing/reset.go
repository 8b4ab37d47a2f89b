package signing

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"time"

	"bboard/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultResetTimeout matches the three day validity of reset links.
const DefaultResetTimeout = 3 * 24 * time.Hour

const resetSalt = "bboard.signing.PasswordResetTokens"

// PasswordResetTokens issues single-use password reset tokens. A token is
// bound to the user's current password hash and last login time, so it
// stops verifying as soon as either changes.
type PasswordResetTokens struct {
	key     []byte
	timeout time.Duration
	now     func() time.Time
}

// NewPasswordResetTokens returns a generator keyed by secret. A zero timeout
// selects DefaultResetTimeout.
func NewPasswordResetTokens(secret string, timeout time.Duration) *PasswordResetTokens {
	if timeout <= 0 {
		timeout = DefaultResetTimeout
	}
	return &PasswordResetTokens{
		key:     deriveKey(secret, resetSalt),
		timeout: timeout,
		now:     time.Now,
	}
}

type resetClaims struct {
	Fingerprint string `json:"fp"`
	jwt.RegisteredClaims
}

func fingerprint(u *models.User) string {
	h := sha256.New()
	h.Write([]byte(u.Password))
	if u.LastLogin != nil {
		h.Write([]byte(u.LastLogin.UTC().Format(time.RFC3339Nano)))
	}
	return hex.EncodeToString(h.Sum(nil))[:24]
}

// Make returns a reset token for u.
func (p *PasswordResetTokens) Make(u *models.User) (string, error) {
	claims := resetClaims{
		Fingerprint: fingerprint(u),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(u.ID), 10),
			ExpiresAt: jwt.NewNumericDate(p.now().Add(p.timeout)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.key)
}

// Check returns ErrBadSignature unless token was made for u in its current
// state and has not expired.
func (p *PasswordResetTokens) Check(u *models.User, token string) error {
	var claims resetClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return p.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !parsed.Valid {
		return ErrBadSignature
	}
	if claims.Subject != strconv.FormatUint(uint64(u.ID), 10) || claims.Fingerprint != fingerprint(u) {
		return ErrBadSignature
	}
	return nil
}

// EncodeUID renders a user id for reset URLs.
func EncodeUID(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

// DecodeUID reverses EncodeUID.
func DecodeUID(s string) (uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return 0, ErrBadSignature
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, ErrBadSignature
	}
	return uint(id), nil
}
