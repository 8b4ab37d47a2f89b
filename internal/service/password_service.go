package service

import (
	"context"
	"fmt"

	"bboard/internal/middleware"
	"bboard/internal/models"
	"bboard/internal/repository"
	"bboard/internal/signing"
	"bboard/internal/validation"
)

const msgOldPasswordIncorrect = "Your old password was entered incorrectly. Please enter it again."

// ResetMailer sends password reset letters.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, user *models.User, uid, token string) error
}

// PasswordService changes and resets passwords.
type PasswordService struct {
	users  repository.UserRepository
	mailer ResetMailer
	tokens *signing.PasswordResetTokens
}

func NewPasswordService(users repository.UserRepository, mailer ResetMailer, tokens *signing.PasswordResetTokens) *PasswordService {
	return &PasswordService{users: users, mailer: mailer, tokens: tokens}
}

// Change replaces the password of the session user. The returned user
// carries the new hash so the caller can reissue the session.
func (s *PasswordService) Change(ctx context.Context, userID uint, oldPassword, new1, new2 string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	fe := models.FieldErrors{}
	if !checkPassword(user.Password, oldPassword) {
		fe.Add("old_password", msgOldPasswordIncorrect)
	}
	checkNewPassword(fe, setPasswordFields, new1, new2, passwordAttrs(user))
	if err := fe.Err(); err != nil {
		return nil, err
	}

	if err := s.setPassword(ctx, user, new1); err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "password changed", "user_id", user.ID)
	return user, nil
}

func (s *PasswordService) setPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.users.SetPassword(ctx, user.ID, hash); err != nil {
		return err
	}
	user.Password = hash
	return nil
}

// RequestReset mails a reset link to every active account with the email.
// Unknown addresses are silently ignored.
func (s *PasswordService) RequestReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return models.NewFieldError("email", validation.ErrRequired.Error())
	}
	users, err := s.users.ListActiveByEmail(ctx, email)
	if err != nil {
		return err
	}
	for i := range users {
		u := &users[i]
		token, err := s.tokens.Make(u)
		if err != nil {
			return models.NewInternalError(err)
		}
		if err := s.mailer.SendPasswordReset(ctx, u, signing.EncodeUID(u.ID), token); err != nil {
			return fmt.Errorf("send password reset letter: %w", err)
		}
	}
	middleware.Logger.InfoContext(ctx, "password reset requested", "accounts", len(users))
	return nil
}

// CheckResetLink resolves the user a reset link was issued for.
func (s *PasswordService) CheckResetLink(ctx context.Context, uid, token string) (*models.User, error) {
	id, err := signing.DecodeUID(uid)
	if err != nil {
		return nil, models.NewBadSignatureError(err)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewBadSignatureError(err)
		}
		return nil, err
	}
	if err := s.tokens.Check(user, token); err != nil {
		return nil, models.NewBadSignatureError(err)
	}
	return user, nil
}

// ConfirmReset sets a new password through a reset link. The link stops
// working afterwards because the token fingerprints the old hash.
func (s *PasswordService) ConfirmReset(ctx context.Context, uid, token, new1, new2 string) error {
	user, err := s.CheckResetLink(ctx, uid, token)
	if err != nil {
		return err
	}
	fe := models.FieldErrors{}
	checkNewPassword(fe, setPasswordFields, new1, new2, passwordAttrs(user))
	if err := fe.Err(); err != nil {
		return err
	}
	if err := s.setPassword(ctx, user, new1); err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "password reset completed", "user_id", user.ID)
	return nil
}
