// Package service holds the board's use cases on top of the repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bboard/internal/captcha"
	"bboard/internal/events"
	"bboard/internal/middleware"
	"bboard/internal/models"
	"bboard/internal/observability"
	"bboard/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt cost for new password hashes. Tests lower it.
var PasswordHashCost = bcrypt.DefaultCost

const (
	msgPasswordMismatch = "The two password fields didn't match."
	msgCaptchaFailed    = "Incorrect answer, please try again."
	nonFieldErrors      = "__all__"
)

// EventPublisher is the part of events.Bus the services publish to.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, e events.UserRegistered) error
	PublishCommentCreated(ctx context.Context, e events.CommentCreated) error
}

// CaptchaInput is the challenge answer submitted with a form.
type CaptchaInput struct {
	Response string
	RemoteIP string
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func passwordAttrs(u *models.User) validation.UserAttributes {
	return validation.UserAttributes{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

// passwordFields names the form inputs of a new-password pair and the one
// that receives validator failures.
type passwordFields struct {
	password string
	confirm  string
	validate string
}

var (
	registerPasswordFields = passwordFields{password: "password1", confirm: "password2", validate: "password1"}
	setPasswordFields      = passwordFields{password: "new_password1", confirm: "new_password2", validate: "new_password2"}
)

func checkNewPassword(fe models.FieldErrors, f passwordFields, password, confirm string, attrs validation.UserAttributes) {
	if password == "" {
		fe.Add(f.password, validation.ErrRequired.Error())
		return
	}
	if password != confirm {
		fe.Add(f.confirm, msgPasswordMismatch)
		return
	}
	for _, err := range validation.ValidatePassword(password, attrs) {
		fe.Add(f.validate, err.Error())
	}
}

func isNotFound(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeNotFound
}

// verifyCaptcha adds a field error when the user failed the challenge and
// returns infrastructure errors as they are.
func verifyCaptcha(ctx context.Context, v captcha.Verifier, in CaptchaInput, form string, fe models.FieldErrors) error {
	err := v.Verify(ctx, in.Response, in.RemoteIP)
	if err == nil {
		return nil
	}
	if captcha.IsRejection(err) {
		observability.CaptchaFailuresTotal.WithLabelValues(form).Inc()
		fe.Add("captcha", msgCaptchaFailed)
		return nil
	}
	middleware.Logger.ErrorContext(ctx, "captcha verification unavailable", "form", form, "error", err)
	return models.NewInternalError(err)
}

func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + strings.ToLower(email[at:])
}
