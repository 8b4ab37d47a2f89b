// Package captcha verifies CAPTCHA responses submitted with forms.
package captcha

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bboard/internal/observability"

	"github.com/gofiber/fiber/v2"
)

var (
	// ErrMissing is returned when the form carried no CAPTCHA response.
	ErrMissing = errors.New("captcha response missing")
	// ErrFailed is returned when the provider rejected the response.
	ErrFailed = errors.New("captcha verification failed")
)

// Verifier checks a CAPTCHA response. ErrMissing and ErrFailed mean the
// user failed the challenge; any other error is an infrastructure failure.
type Verifier interface {
	Verify(ctx context.Context, response, remoteIP string) error
}

// IsRejection reports whether err means the user failed the challenge.
func IsRejection(err error) bool {
	return errors.Is(err, ErrMissing) || errors.Is(err, ErrFailed)
}

// RecaptchaVerifier checks responses against Google's siteverify endpoint.
type RecaptchaVerifier struct {
	secret    string
	verifyURL string
	threshold float64
	timeout   time.Duration
}

// NewRecaptchaVerifier returns a verifier. threshold only applies to
// reCAPTCHA v3 responses, which carry a score.
func NewRecaptchaVerifier(secret, verifyURL string, threshold float64) *RecaptchaVerifier {
	return &RecaptchaVerifier{
		secret:    secret,
		verifyURL: verifyURL,
		threshold: threshold,
		timeout:   5 * time.Second,
	}
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	Score      *float64 `json:"score,omitempty"`
	Action     string   `json:"action,omitempty"`
	Hostname   string   `json:"hostname,omitempty"`
	ErrorCodes []string `json:"error-codes,omitempty"`
}

// Verify posts the response to the provider.
func (v *RecaptchaVerifier) Verify(ctx context.Context, response, remoteIP string) (err error) {
	if response == "" {
		return ErrMissing
	}

	_, span := observability.StartClientSpan(ctx, "recaptcha", "siteverify")
	defer func() { observability.EndSpan(span, err) }()

	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("secret", v.secret)
	args.Set("response", response)
	if remoteIP != "" {
		args.Set("remoteip", remoteIP)
	}

	var out siteVerifyResponse
	code, _, errs := fiber.Post(v.verifyURL).Form(args).Timeout(v.timeout).Struct(&out)
	if len(errs) > 0 {
		return fmt.Errorf("captcha siteverify request: %w", errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return fmt.Errorf("captcha siteverify returned status %d", code)
	}
	if !out.Success {
		return fmt.Errorf("%w: %v", ErrFailed, out.ErrorCodes)
	}
	if out.Score != nil && *out.Score < v.threshold {
		return fmt.Errorf("%w: score %.2f below %.2f", ErrFailed, *out.Score, v.threshold)
	}
	return nil
}

// Static accepts any non-empty response when Accept is set and rejects
// everything otherwise. It backs development setups without a secret.
type Static struct {
	Accept bool
}

// Verify implements Verifier.
func (s Static) Verify(_ context.Context, response, _ string) error {
	if response == "" {
		return ErrMissing
	}
	if !s.Accept {
		return ErrFailed
	}
	return nil
}
