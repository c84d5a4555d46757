package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/studiovault/internal/dbtest"
	"github.com/angelmondragon/studiovault/internal/projects"
	"github.com/angelmondragon/studiovault/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App:         config.AppConfig{Env: "test"},
		DB:          dbtest.Config(t),
		Compression: config.CompressionConfig{Quality: 80},
		Gallery:     config.GalleryConfig{DefaultLimit: 10, MaxLimit: 50},
		Maintenance: config.MaintenanceConfig{Enabled: true},
	}
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), Params{})
	require.Error(t, err)
}

func TestNewWiresMaintenanceJobs(t *testing.T) {
	a, err := New(context.Background(), Params{Config: testConfig(t)})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })

	assert.Nil(t, a.Redis)
	assert.ElementsMatch(t, []string{"storage-telemetry-refresh", "orphan-asset-sweep", "display-handle-reaper"}, a.Maintenance.Names())
	require.NoError(t, a.Maintenance.RunJob(context.Background(), "storage-telemetry-refresh"))
}

func TestServicesShareOneDatabase(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, Params{Config: testConfig(t)})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(ctx) })

	project, err := a.Projects.Create(ctx, projects.CreateInput{Name: "Shared"})
	require.NoError(t, err)

	_, err = a.Collections.Create(ctx, project.ID, "Picks")
	require.NoError(t, err)

	result, err := a.Projects.Purge(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.CollectionsDeleted)
}
