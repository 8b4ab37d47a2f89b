package service

import (
	"context"
	"strings"

	"bboard/internal/middleware"
	"bboard/internal/models"
	"bboard/internal/observability"
	"bboard/internal/repository"
	"bboard/internal/storage"
	"bboard/internal/validation"
)

// ProfileService edits and deletes the session user's own account.
type ProfileService struct {
	users repository.UserRepository
	store storage.FileStore
}

func NewProfileService(users repository.UserRepository, store storage.FileStore) *ProfileService {
	return &ProfileService{users: users, store: store}
}

// ProfileInput is the profile edit form.
type ProfileInput struct {
	Username     string
	Email        string
	FirstName    string
	LastName     string
	SendMessages bool
}

func (s *ProfileService) Get(ctx context.Context, userID uint) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateInfo saves the editable profile fields. Email stays mandatory and
// both username and email must stay unique among other users.
func (s *ProfileService) UpdateInfo(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)

	fe := models.FieldErrors{}
	if err := checkIdentity(ctx, s.users, fe, username, email, user.ID); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(firstName); err != nil {
		fe.Add("first_name", err.Error())
	}
	if err := validation.ValidateName(lastName); err != nil {
		fe.Add("last_name", err.Error())
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	user.Username = username
	user.Email = email
	user.FirstName = firstName
	user.LastName = lastName
	user.SendMessages = in.SendMessages
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteAccount removes the user with all ads, extra images and comments in
// one transaction, then deletes the image files. File cleanup failures are
// logged; the account is gone either way.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID uint) error {
	files, err := s.users.DeleteWithAds(ctx, userID)
	if err != nil {
		return err
	}
	observability.AccountDeletionsTotal.Inc()
	middleware.Logger.InfoContext(ctx, "account deleted", "user_id", userID, "files", len(files))

	if err := storage.DeleteAll(ctx, s.store, files); err != nil {
		middleware.Logger.WarnContext(ctx, "leftover files after account deletion", "user_id", userID, "error", err)
	}
	return nil
}
