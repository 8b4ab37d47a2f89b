package service

import (
	"context"
	"testing"

	"bboard/internal/models"
	"bboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRubricService_TwoLevels(t *testing.T) {
	env := newTestEnv(t)
	svc := NewRubricService(env.rubrics)
	ctx := context.Background()

	top, err := svc.Create(ctx, RubricInput{Name: "Realty", Order: 1})
	require.NoError(t, err)
	sub, err := svc.Create(ctx, RubricInput{Name: "Flats", SuperRubricID: &top.ID})
	require.NoError(t, err)
	assert.True(t, sub.IsSubLevel())

	_, err = svc.Create(ctx, RubricInput{Name: "Studios", SuperRubricID: &sub.ID})
	assertValidationError(t, err, "super_rubric")

	missing := uint(999)
	_, err = svc.Create(ctx, RubricInput{Name: "Orphans", SuperRubricID: &missing})
	assertValidationError(t, err, "super_rubric")

	_, err = svc.Create(ctx, RubricInput{Name: ""})
	assertValidationError(t, err, "name")
	_, err = svc.Create(ctx, RubricInput{Name: "A name that is far too long"})
	assertValidationError(t, err, "name")

	tops, err := svc.TopLevel(ctx)
	require.NoError(t, err)
	subs, err := svc.SubLevel(ctx)
	require.NoError(t, err)
	assert.Len(t, tops, 1)
	assert.Len(t, subs, 1)

	menu, err := svc.Menu(ctx)
	require.NoError(t, err)
	require.Len(t, menu, 1)
	require.Len(t, menu[0].SubRubrics, 1)
	assert.Equal(t, "Flats", menu[0].SubRubrics[0].Name)
}

func TestRubricService_DeleteRestricted(t *testing.T) {
	env := newTestEnv(t)
	svc := NewRubricService(env.rubrics)
	ctx := context.Background()

	top, sub := testutil.CreateRubrics(t, env.db, "Realty", "Flats")
	owner := testutil.CreateUser(t, env.db, "owner")
	testutil.CreateAd(t, env.db, owner, sub, "Flat")

	assertCode(t, svc.Delete(ctx, sub.ID), models.CodeIntegrity)
	assertCode(t, svc.Delete(ctx, top.ID), models.CodeIntegrity)
	assertCode(t, svc.Delete(ctx, 12345), models.CodeNotFound)
}
