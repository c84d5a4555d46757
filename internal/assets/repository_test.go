package assets

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/studiovault/internal/dbtest"
	"github.com/angelmondragon/studiovault/pkg/db"
	"github.com/angelmondragon/studiovault/pkg/db/models"
	"github.com/angelmondragon/studiovault/pkg/enums"
	"github.com/angelmondragon/studiovault/pkg/migrate"
	"github.com/angelmondragon/studiovault/pkg/pagination"
)

func newAsset(projectID string, ts int64) models.Asset {
	return models.Asset{
		ID:        fmt.Sprintf("%s-%03d", projectID, ts),
		ProjectID: projectID,
		Blob:      []byte{byte(ts)},
		MimeType:  "image/png",
		SizeBytes: 1,
		Type:      enums.MediaTypeImage,
		Tier:      enums.GenerationTierSketch,
		KeyTier:   enums.KeyTierFree,
		Prompt:    "p",
		Cost:      decimal.Zero,
		Timestamp: ts,
	}
}

func seed(t *testing.T, r *Repository, projectID string, n int) {
	t.Helper()
	items := make([]models.Asset, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, newAsset(projectID, int64(i)))
	}
	require.NoError(t, r.AddMany(context.Background(), items))
}

func timestamps(rows []models.Asset) []int64 {
	out := make([]int64, len(rows))
	for i, row := range rows {
		out[i] = row.Timestamp
	}
	return out
}

func seq(from, to int64) []int64 {
	var out []int64
	for v := from; v >= to; v-- {
		out = append(out, v)
	}
	return out
}

func TestGetByProjectPagesNewestFirst(t *testing.T) {
	r := NewRepository(dbtest.New(t))
	ctx := context.Background()
	seed(t, r, "p1", 25)
	seed(t, r, "p2", 3)

	first, err := r.GetByProject(ctx, "p1", 10, nil)
	require.NoError(t, err)
	assert.Equal(t, seq(25, 16), timestamps(first))

	before := first[len(first)-1].Timestamp
	second, err := r.GetByProject(ctx, "p1", 10, &before)
	require.NoError(t, err)
	assert.Equal(t, seq(15, 6), timestamps(second))

	before = second[len(second)-1].Timestamp
	third, err := r.GetByProject(ctx, "p1", 10, &before)
	require.NoError(t, err)
	assert.Equal(t, seq(5, 1), timestamps(third))

	before = third[len(third)-1].Timestamp
	rest, err := r.GetByProject(ctx, "p1", 10, &before)
	require.NoError(t, err)
	assert.Empty(t, rest)
}

func TestGetByProjectSkipsBoundaryTies(t *testing.T) {
	r := NewRepository(dbtest.New(t))
	ctx := context.Background()

	items := []models.Asset{newAsset("p", 3), newAsset("p", 2), newAsset("p", 1)}
	tie := newAsset("p", 2)
	tie.ID = "p-002-tie"
	items = append(items, tie)
	require.NoError(t, r.AddMany(ctx, items))

	first, err := r.GetByProject(ctx, "p", 2, nil)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 2}, timestamps(first))

	before := first[1].Timestamp
	next, err := r.GetByProject(ctx, "p", 2, &before)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, timestamps(next), "the second asset at ts=2 is skipped by the before-1 bound")
}

func TestGetByProjectUsesCompoundIndex(t *testing.T) {
	h := dbtest.New(t)
	r := NewRepository(h)
	seed(t, r, "p1", 5)

	var plan []struct {
		Detail string `gorm:"column:detail"`
	}
	require.NoError(t, h.View(context.Background(), func(db *gorm.DB) error {
		return db.Raw(`EXPLAIN QUERY PLAN SELECT * FROM assets WHERE project_id = ? AND timestamp BETWEEN ? AND ? ORDER BY timestamp DESC, id DESC LIMIT 10`, "p1", 0, 100).Scan(&plan).Error
	}))

	var details []string
	for _, step := range plan {
		details = append(details, step.Detail)
	}
	joined := strings.Join(details, "\n")
	assert.Contains(t, joined, CompoundIndex)
	assert.NotContains(t, joined, "TEMP B-TREE", "ordering must come from the index")
}

func TestGetByProjectWithoutCompoundIndex(t *testing.T) {
	r := NewRepository(dbtest.New(t, db.WithMigrationTarget(migrate.VersionInitialSchema)))
	ctx := context.Background()
	seed(t, r, "p1", 25)
	seed(t, r, "p2", 4)

	page, err := r.GetByProject(ctx, "p1", 10, nil)
	require.NoError(t, err)
	assert.Len(t, page, 10)
	for _, row := range page {
		assert.Equal(t, "p1", row.ProjectID)
	}

	all, err := r.GetByProject(ctx, "p1", 0, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, seq(25, 1), timestamps(all))
}

func TestListPageBreaksTimestampTies(t *testing.T) {
	r := NewRepository(dbtest.New(t))
	ctx := context.Background()

	var items []models.Asset
	for i := 0; i < 12; i++ {
		a := newAsset("p", int64(i/4))
		a.ID = fmt.Sprintf("a-%02d", i)
		items = append(items, a)
	}
	require.NoError(t, r.AddMany(ctx, items))

	first, err := r.ListPage(ctx, PageQuery{ProjectID: "p", Limit: 5})
	require.NoError(t, err)
	require.Len(t, first, 5)
	assert.Nil(t, first[0].Blob, "payloads are not loaded unless asked")

	last := first[4]
	rest, err := r.ListPage(ctx, PageQuery{
		ProjectID: "p",
		Limit:     20,
		Cursor:    &pagination.Cursor{Timestamp: last.Timestamp, ID: last.ID},
		WithBlob:  true,
	})
	require.NoError(t, err)
	assert.Len(t, rest, 7)
	assert.NotNil(t, rest[0].Blob)

	seen := map[string]bool{}
	for _, row := range append(first, rest...) {
		assert.False(t, seen[row.ID], "duplicate %s", row.ID)
		seen[row.ID] = true
	}
	assert.Len(t, seen, 12)
}

func TestListOrphansBefore(t *testing.T) {
	h := dbtest.New(t)
	r := NewRepository(h)
	ctx := context.Background()

	require.NoError(t, h.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&models.Project{ID: "alive", Name: "alive", CreatedAt: 1}).Error
	}))
	require.NoError(t, r.AddMany(ctx, []models.Asset{
		newAsset("alive", 1),
		newAsset("gone", 2),
		newAsset("gone", 50),
	}))

	orphans, err := r.ListOrphansBefore(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"gone-002"}, orphans)
}

func TestCountAndDeleteByProject(t *testing.T) {
	h := dbtest.New(t)
	r := NewRepository(h)
	ctx := context.Background()
	seed(t, r, "p1", 4)
	seed(t, r, "p2", 2)

	var removed int64
	require.NoError(t, h.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		removed, err = r.DeleteByProjectWithTx(tx, "p1")
		return err
	}))
	assert.Equal(t, int64(4), removed)

	count, err := r.CountByProject(ctx, "p1")
	require.NoError(t, err)
	assert.Zero(t, count)
	count, err = r.CountByProject(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
