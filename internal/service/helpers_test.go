package service

import (
	"errors"
	"testing"

	"bboard/internal/captcha"
	"bboard/internal/events"
	"bboard/internal/models"
	"bboard/internal/notifications"
	"bboard/internal/repository"
	"bboard/internal/signing"
	"bboard/internal/storage"
	"bboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const strongPassword = "Tr1cky-Passphrase!"

func init() {
	PasswordHashCost = bcrypt.MinCost
}

// testEnv wires the services to an in-memory database, an outbox mailer and
// a temporary media directory.
type testEnv struct {
	db       *gorm.DB
	users    repository.UserRepository
	rubrics  repository.RubricRepository
	ads      repository.AdRepository
	comments repository.CommentRepository
	outbox   *notifications.Outbox
	signer   *signing.Signer
	tokens   *signing.PasswordResetTokens
	store    *storage.LocalStore
	mediaDir string
	bus      *events.Bus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	env := &testEnv{
		db:       db,
		users:    repository.NewUserRepository(db),
		rubrics:  repository.NewRubricRepository(db),
		ads:      repository.NewAdRepository(db),
		comments: repository.NewCommentRepository(db),
		outbox:   &notifications.Outbox{},
		signer:   signing.NewSigner("service-test-secret", signing.DefaultSalt),
		tokens:   signing.NewPasswordResetTokens("service-test-secret", 0),
		mediaDir: t.TempDir(),
	}
	store, err := storage.NewLocalStore(env.mediaDir, "/media/")
	require.NoError(t, err)
	env.store = store

	dispatcher, err := notifications.NewDispatcher(env.outbox, env.signer, "http://board.test")
	require.NoError(t, err)
	env.bus = events.NewBus(dispatcher)
	return env
}

func (e *testEnv) accounts(v captcha.Verifier) *AccountService {
	return NewAccountService(e.users, e.bus, e.signer, v)
}

func (e *testEnv) adService() *AdService {
	return NewAdService(e.ads, e.rubrics, e.comments, e.store, 2, 1)
}

func (e *testEnv) passwords() *PasswordService {
	dispatcher, _ := notifications.NewDispatcher(e.outbox, e.signer, "http://board.test")
	return NewPasswordService(e.users, dispatcher, e.tokens)
}

func appErrorOf(t *testing.T, err error) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	return appErr
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR
// carrying a message for every listed field.
func assertValidationError(t *testing.T, err error, fields ...string) {
	t.Helper()
	appErr := appErrorOf(t, err)
	assert.Equal(t, models.CodeValidation, appErr.Code)
	for _, f := range fields {
		assert.NotEmpty(t, appErr.Fields[f], "expected an error on field %q, got %v", f, appErr.Fields)
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	assert.Equal(t, code, appErrorOf(t, err).Code)
}
