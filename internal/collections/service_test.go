package collections

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/studiovault/internal/dbtest"
	pkgerrors "github.com/angelmondragon/studiovault/pkg/errors"
)

type stubProjects map[string]bool

func (s stubProjects) Exists(ctx context.Context, id string) (bool, error) {
	if id == "broken" {
		return false, errors.New("disk gone")
	}
	return s[id], nil
}

func TestCreateListDelete(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.New(t)), stubProjects{"p1": true})
	require.NoError(t, err)
	ctx := context.Background()

	a, err := svc.Create(ctx, "p1", " Looks ")
	require.NoError(t, err)
	assert.Equal(t, "Looks", a.Name)
	_, err = svc.Create(ctx, "p1", "Poses")
	require.NoError(t, err)

	rows, err := svc.ListByProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, svc.Delete(ctx, a.ID))
	require.NoError(t, svc.Delete(ctx, a.ID))
	rows, err = svc.ListByProject(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCreateChecksProject(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.New(t)), stubProjects{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Create(ctx, "missing", "x")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
	_, err = svc.Create(ctx, "broken", "x")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
	_, err = svc.Create(ctx, "p", "  ")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
