package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"bboard/internal/models"
	"bboard/internal/signing"
	"bboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordService_Change(t *testing.T) {
	env := newTestEnv(t)
	svc := env.passwords()
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "carol")

	_, err := svc.Change(ctx, user.ID, "wrong", strongPassword, strongPassword)
	assertValidationError(t, err, "old_password")

	_, err = svc.Change(ctx, user.ID, "secret-pass-42", strongPassword, strongPassword+"!")
	assertValidationError(t, err, "new_password2")

	_, err = svc.Change(ctx, user.ID, "secret-pass-42", "", "")
	assertValidationError(t, err, "new_password1")

	updated, err := svc.Change(ctx, user.ID, "secret-pass-42", strongPassword, strongPassword)
	require.NoError(t, err)
	assert.NotEqual(t, user.Password, updated.Password)

	stored, _ := env.users.GetByID(ctx, user.ID)
	assert.True(t, checkPassword(stored.Password, strongPassword))
}

var resetLink = regexp.MustCompile(`/accounts/password_reset/([^/]+)/([^/]+)/`)

func TestPasswordService_ResetFlow(t *testing.T) {
	env := newTestEnv(t)
	svc := env.passwords()
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "dave")

	require.NoError(t, svc.RequestReset(ctx, "nobody@example.com"))
	assert.Empty(t, env.outbox.Messages(), "unknown addresses are silent")

	require.NoError(t, svc.RequestReset(ctx, "dave@example.com"))
	msgs := env.outbox.Messages()
	require.Len(t, msgs, 1)
	m := resetLink.FindStringSubmatch(msgs[0].Body)
	require.Len(t, m, 3, msgs[0].Body)
	uid, token := m[1], m[2]
	assert.Equal(t, signing.EncodeUID(user.ID), uid)

	_, err := svc.CheckResetLink(ctx, uid, token)
	require.NoError(t, err)

	err = svc.ConfirmReset(ctx, uid, token, "short", "short")
	assertValidationError(t, err, "new_password2")

	require.NoError(t, svc.ConfirmReset(ctx, uid, token, strongPassword, strongPassword))
	stored, _ := env.users.GetByID(ctx, user.ID)
	assert.True(t, checkPassword(stored.Password, strongPassword))

	err = svc.ConfirmReset(ctx, uid, token, "Another-Pass-99", "Another-Pass-99")
	assertCode(t, err, models.CodeBadSignature)

	_, err = svc.CheckResetLink(ctx, "!!", token)
	assertCode(t, err, models.CodeBadSignature)
	_, err = svc.CheckResetLink(ctx, signing.EncodeUID(9999), token)
	assertCode(t, err, models.CodeBadSignature)
}

func TestPasswordService_RequestReset_MailFailure(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "erin")
	env.outbox.Err = errors.New("smtp down")

	err := env.passwords().RequestReset(context.Background(), "erin@example.com")
	assert.ErrorIs(t, err, env.outbox.Err)
}
