package service

import (
	"context"
	"fmt"
	"time"

	"bboard/internal/events"
	"bboard/internal/middleware"
	"bboard/internal/models"
	"bboard/internal/repository"
)

// Filters accepted by AdminService.NonActivated.
const (
	FilterActivated = "activated"
	FilterThreeDays = "threedays"
	FilterWeek      = "week"
)

// AdminService backs the back-office commands.
type AdminService struct {
	users  repository.UserRepository
	events EventPublisher
	now    func() time.Time
}

func NewAdminService(users repository.UserRepository, publisher EventPublisher) *AdminService {
	return &AdminService{users: users, events: publisher, now: time.Now}
}

// NonActivated lists users by activation filter: "activated" returns the
// accounts that completed activation, "threedays" and "week" the ones still
// pending after that long.
func (s *AdminService) NonActivated(ctx context.Context, filter string) ([]models.User, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	switch filter {
	case FilterActivated:
		users, err := s.users.ListByActivation(ctx, true, nil)
		if err != nil {
			return nil, err
		}
		active := users[:0]
		for _, u := range users {
			if u.IsActive {
				active = append(active, u)
			}
		}
		return active, nil
	case FilterThreeDays:
		before := today.AddDate(0, 0, -3)
		return s.pending(ctx, &before)
	case FilterWeek:
		before := today.AddDate(0, 0, -7)
		return s.pending(ctx, &before)
	case "":
		return s.pending(ctx, nil)
	default:
		return nil, models.NewValidationError(fmt.Sprintf("unknown filter %q, want %s, %s or %s", filter, FilterActivated, FilterThreeDays, FilterWeek))
	}
}

func (s *AdminService) pending(ctx context.Context, before *time.Time) ([]models.User, error) {
	users, err := s.users.ListByActivation(ctx, false, before)
	if err != nil {
		return nil, err
	}
	out := users[:0]
	for _, u := range users {
		if !u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

// ResendActivation mails the activation link again to each named user that
// has not activated yet. It returns how many letters went out and stops at
// the first mail error.
func (s *AdminService) ResendActivation(ctx context.Context, usernames []string) (int, error) {
	var targets []models.User
	if len(usernames) == 0 {
		pending, err := s.users.ListByActivation(ctx, false, nil)
		if err != nil {
			return 0, err
		}
		targets = pending
	} else {
		for _, name := range usernames {
			u, err := s.users.GetByUsername(ctx, name)
			if err != nil {
				return 0, err
			}
			targets = append(targets, *u)
		}
	}

	sent := 0
	for i := range targets {
		u := &targets[i]
		if u.IsActivated {
			continue
		}
		if err := s.events.PublishUserRegistered(ctx, events.UserRegistered{User: u}); err != nil {
			return sent, fmt.Errorf("resend activation to %s: %w", u.Username, err)
		}
		sent++
	}
	middleware.Logger.InfoContext(ctx, "activation letters re-sent", "count", sent)
	return sent, nil
}

// Activate marks the user activated and active without an email round
// trip. Deactivated users come back the same way.
func (s *AdminService) Activate(ctx context.Context, username string) (*models.User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.users.MarkActivated(ctx, u.ID); err != nil {
		return nil, err
	}
	u.IsActive, u.IsActivated = true, true
	return u, nil
}

// Deactivate blocks logins and ends the user's sessions on their next request.
func (s *AdminService) Deactivate(ctx context.Context, username string) (*models.User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetActive(ctx, u.ID, false); err != nil {
		return nil, err
	}
	u.IsActive = false
	return u, nil
}
