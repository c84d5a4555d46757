package repo_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/angelmondragon/studiovault/internal/dbtest"
	"github.com/angelmondragon/studiovault/internal/repo"
	"github.com/angelmondragon/studiovault/pkg/db/models"
	"github.com/angelmondragon/studiovault/pkg/display"
	"github.com/angelmondragon/studiovault/pkg/enums"
)

func newAsset(id string, ts int64) models.Asset {
	return models.Asset{
		ID:        id,
		ProjectID: "p1",
		Blob:      []byte{1, 2, 3},
		MimeType:  "image/png",
		SizeBytes: 3,
		Type:      enums.MediaTypeImage,
		Tier:      enums.GenerationTierSketch,
		KeyTier:   enums.KeyTierFree,
		Prompt:    "first",
		Cost:      decimal.RequireFromString("0.02"),
		Timestamp: ts,
		Tags:      datatypes.JSONSlice[string]{"a"},
	}
}

func TestAddIsIdempotentUpsert(t *testing.T) {
	ctx := context.Background()
	r := repo.New[models.Asset](dbtest.New(t))

	first := newAsset("a1", 100)
	require.NoError(t, r.Add(ctx, first))
	require.NoError(t, r.Add(ctx, first))

	second := newAsset("a1", 200)
	second.Prompt = "second"
	second.Cost = decimal.RequireFromString("0.5")
	require.NoError(t, r.Add(ctx, second))

	count, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := r.Get(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Prompt)
	assert.Equal(t, int64(200), got.Timestamp)
	assert.True(t, got.Cost.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, []string{"a"}, []string(got.Tags))
}

func TestAddStripsDisplayHandle(t *testing.T) {
	ctx := context.Background()
	r := repo.New[models.Asset](dbtest.New(t))
	reg := display.NewRegistry()

	item := newAsset("a1", 1)
	item.Display = reg.Create(item.Blob, item.MimeType)
	defer item.ReleaseDisplay()

	require.NoError(t, r.Add(ctx, item))
	assert.NotNil(t, item.Display, "caller's copy keeps the handle")

	got, err := r.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, got.Display)
}

func TestUpdateOnMissingIDIsNoop(t *testing.T) {
	ctx := context.Background()
	r := repo.New[models.Asset](dbtest.New(t))

	require.NoError(t, r.Update(ctx, "ghost", map[string]any{"prompt": "x"}))

	got, err := r.Get(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)

	count, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUpdateAppliesPartialFieldsAndIgnoresID(t *testing.T) {
	ctx := context.Background()
	r := repo.New[models.Asset](dbtest.New(t))
	require.NoError(t, r.Add(ctx, newAsset("a1", 1)))

	fields := map[string]any{"prompt": "edited", "id": "hijack"}
	require.NoError(t, r.Update(ctx, "a1", fields))
	assert.Contains(t, fields, "id", "caller map is not mutated")

	got, err := r.Get(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "edited", got.Prompt)
	assert.Equal(t, "image/png", got.MimeType)

	missing, err := r.Get(ctx, "hijack")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := repo.New[models.Asset](dbtest.New(t))
	require.NoError(t, r.AddMany(ctx, []models.Asset{newAsset("a1", 1), newAsset("a2", 2), newAsset("a3", 3)}))

	require.NoError(t, r.Delete(ctx, "a1"))
	require.NoError(t, r.Delete(ctx, "a1"))
	require.NoError(t, r.DeleteMany(ctx, []string{"a2", "nope"}))
	require.NoError(t, r.DeleteMany(ctx, nil))

	all, err := r.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "a3", all[0].ID)
}

func TestGenericOverOtherEntities(t *testing.T) {
	ctx := context.Background()
	h := dbtest.New(t)
	catalog := repo.New[models.Model](h)

	require.NoError(t, catalog.Add(ctx, models.Model{
		ID:         "m1",
		Name:       "Ava",
		Attributes: datatypes.JSONMap{"hair": "red"},
		CreatedAt:  5,
	}))
	got, err := catalog.Get(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "red", got.Attributes["hair"])
	assert.Equal(t, int64(5), got.CreatedAt)
	assert.Same(t, repo.Store(h), catalog.Store())
}
