package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bboard/internal/captcha"
	"bboard/internal/events"
	"bboard/internal/middleware"
	"bboard/internal/models"
	"bboard/internal/observability"
	"bboard/internal/repository"
	"bboard/internal/signing"
	"bboard/internal/validation"
)

const (
	msgUsernameTaken = "A user with that username already exists."
	msgEmailTaken    = "A user with that email already exists."
	msgInvalidLogin  = "Please enter a correct username and password. Note that both fields may be case-sensitive."
	msgInactive      = "This account is inactive."
)

// ActivationOutcome is the result of redeeming an activation link.
type ActivationOutcome int

const (
	// OutcomeUnknown accompanies an error; the link was not judged.
	OutcomeUnknown ActivationOutcome = iota
	OutcomeActivated
	OutcomeAlreadyActivated
	OutcomeBadSignature
)

func (o ActivationOutcome) String() string {
	switch o {
	case OutcomeActivated:
		return "activated"
	case OutcomeAlreadyActivated:
		return "already_activated"
	case OutcomeBadSignature:
		return "bad_signature"
	default:
		return "unknown"
	}
}

// AccountService covers registration, activation and login.
type AccountService struct {
	users   repository.UserRepository
	events  EventPublisher
	signer  *signing.Signer
	captcha captcha.Verifier
	now     func() time.Time
}

func NewAccountService(users repository.UserRepository, publisher EventPublisher, signer *signing.Signer, verifier captcha.Verifier) *AccountService {
	return &AccountService{
		users:   users,
		events:  publisher,
		signer:  signer,
		captcha: verifier,
		now:     time.Now,
	}
}

// RegisterInput is the self-registration form.
type RegisterInput struct {
	Username     string
	Email        string
	FirstName    string
	LastName     string
	Password1    string
	Password2    string
	SendMessages bool
	Captcha      CaptchaInput
}

// Register stores a pending user and mails the activation link. A mail
// failure is returned after the user row is committed.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	fe := models.FieldErrors{}
	if err := verifyCaptcha(ctx, s.captcha, in.Captcha, "register", fe); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)

	if err := checkIdentity(ctx, s.users, fe, username, email, 0); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(firstName); err != nil {
		fe.Add("first_name", err.Error())
	}
	if err := validation.ValidateName(lastName); err != nil {
		fe.Add("last_name", err.Error())
	}
	checkNewPassword(fe, registerPasswordFields, in.Password1, in.Password2, validation.UserAttributes{
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
	})
	if err := fe.Err(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password1)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := models.NewRegisteredUser(username, email, firstName, lastName, hash, in.SendMessages)
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	observability.RegistrationsTotal.Inc()
	middleware.Logger.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)

	if err := s.events.PublishUserRegistered(ctx, events.UserRegistered{User: user}); err != nil {
		return user, fmt.Errorf("send activation letter: %w", err)
	}
	return user, nil
}

// checkIdentity validates username and email and checks both are free.
// excludeID lets a user keep their own values on profile edit.
func checkIdentity(ctx context.Context, users repository.UserRepository, fe models.FieldErrors, username, email string, excludeID uint) error {
	if err := validation.ValidateUsername(username); err != nil {
		fe.Add("username", err.Error())
	} else {
		taken, err := users.UsernameTaken(ctx, username, excludeID)
		if err != nil {
			return err
		}
		if taken {
			fe.Add("username", msgUsernameTaken)
		}
	}

	if err := validation.ValidateEmail(email); err != nil {
		fe.Add("email", err.Error())
	} else {
		taken, err := users.EmailTaken(ctx, email, excludeID)
		if err != nil {
			return err
		}
		if taken {
			fe.Add("email", msgEmailTaken)
		}
	}
	return nil
}

// Activate redeems a signed activation token. Activating twice is not an
// error; the second call reports OutcomeAlreadyActivated and writes nothing.
func (s *AccountService) Activate(ctx context.Context, token string) (ActivationOutcome, error) {
	username, err := s.signer.Unsign(token)
	if err != nil {
		observability.ActivationsTotal.WithLabelValues(OutcomeBadSignature.String()).Inc()
		return OutcomeBadSignature, nil
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return OutcomeUnknown, err
	}
	if !user.Activate() {
		observability.ActivationsTotal.WithLabelValues(OutcomeAlreadyActivated.String()).Inc()
		return OutcomeAlreadyActivated, nil
	}
	if err := s.users.MarkActivated(ctx, user.ID); err != nil {
		return OutcomeUnknown, err
	}

	observability.ActivationsTotal.WithLabelValues(OutcomeActivated.String()).Inc()
	middleware.Logger.InfoContext(ctx, "user activated", "user_id", user.ID)
	return OutcomeActivated, nil
}

// Login checks credentials. An inactive user with the right password gets
// a distinct message.
func (s *AccountService) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	fe := models.FieldErrors{}
	if username == "" {
		fe.Add("username", validation.ErrRequired.Error())
	}
	if password == "" {
		fe.Add("password", validation.ErrRequired.Error())
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			// Burn comparable time so unknown usernames are not distinguishable.
			_, _ = HashPassword(password)
			return nil, models.NewFieldError(nonFieldErrors, msgInvalidLogin)
		}
		return nil, err
	}
	if !checkPassword(user.Password, password) {
		return nil, models.NewFieldError(nonFieldErrors, msgInvalidLogin)
	}
	if !user.IsActive {
		return nil, models.NewFieldError(nonFieldErrors, msgInactive)
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now
	return user, nil
}
