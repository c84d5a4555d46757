package projects

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/studiovault/internal/assets"
	"github.com/angelmondragon/studiovault/internal/collections"
	"github.com/angelmondragon/studiovault/internal/dbtest"
	"github.com/angelmondragon/studiovault/pkg/db/models"
	"github.com/angelmondragon/studiovault/pkg/enums"
	pkgerrors "github.com/angelmondragon/studiovault/pkg/errors"
)

type fixture struct {
	svc         Service
	assets      *assets.Repository
	collections *collections.Repository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	h := dbtest.New(t)
	f := fixture{
		assets:      assets.NewRepository(h),
		collections: collections.NewRepository(h),
	}
	svc, err := NewService(ServiceParams{Store: h, Assets: f.assets, Collections: f.collections})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f fixture) addAsset(t *testing.T, id, projectID string) {
	t.Helper()
	require.NoError(t, f.assets.Add(context.Background(), models.Asset{
		ID:        id,
		ProjectID: projectID,
		Blob:      []byte("x"),
		MimeType:  "image/png",
		SizeBytes: 1,
		Type:      enums.MediaTypeImage,
		Tier:      enums.GenerationTierSketch,
		KeyTier:   enums.KeyTierFree,
		Cost:      decimal.Zero,
		Timestamp: 1,
	}))
}

func TestCreateGetUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	budget := decimal.RequireFromString("12.50")
	created, err := f.svc.Create(ctx, CreateInput{Name: " Spring ", Budget: &budget})
	require.NoError(t, err)
	assert.Equal(t, "Spring", created.Name)

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, got.Budget.Valid)
	assert.True(t, got.Budget.Decimal.Equal(budget))

	name := "Summer"
	updated, err := f.svc.Update(ctx, created.ID, UpdateInput{Name: &name, ClearBudget: true})
	require.NoError(t, err)
	assert.Equal(t, "Summer", updated.Name)
	assert.False(t, updated.Budget.Valid)

	_, err = f.svc.Update(ctx, "missing", UpdateInput{Name: &name})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Create(ctx, CreateInput{Name: "  "})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestDeleteDoesNotCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, CreateInput{Name: "p"})
	require.NoError(t, err)
	f.addAsset(t, "a1", p.ID)

	require.NoError(t, f.svc.Delete(ctx, p.ID))
	exists, err := f.svc.Exists(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	count, err := f.assets.CountByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPurgeRemovesEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, CreateInput{Name: "p"})
	require.NoError(t, err)
	other, err := f.svc.Create(ctx, CreateInput{Name: "other"})
	require.NoError(t, err)
	f.addAsset(t, "a1", p.ID)
	f.addAsset(t, "a2", p.ID)
	f.addAsset(t, "a3", other.ID)
	require.NoError(t, f.collections.Add(ctx, models.Collection{ID: "c1", ProjectID: p.ID, Name: "c"}))

	result, err := f.svc.Purge(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.AssetsDeleted)
	assert.Equal(t, int64(1), result.CollectionsDeleted)

	_, err = f.svc.Get(ctx, p.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
	count, err := f.assets.CountByProject(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, other.ID, list[0].ID)
}
