package cmd

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-godfather/rec-conv-transcriptor/pkg/config"
)

func useTempDatabase(t *testing.T) {
	t.Helper()
	require.NoError(t, config.Init())
	previous := viper.GetString("database.path")
	viper.Set("database.path", filepath.Join(t.TempDir(), "migrate.db"))
	t.Cleanup(func() { viper.Set("database.path", previous) })
}

func TestMigrateUp(t *testing.T) {
	useTempDatabase(t)

	out := execute(t, "migrate", "up")
	assert.Contains(t, out, "Schema is up to date")
}

func TestMigrateStatus(t *testing.T) {
	useTempDatabase(t)

	out := execute(t, "migrate", "status")
	assert.Contains(t, out, "recordings")
	assert.Contains(t, out, "missing")

	out = execute(t, "migrate", "up")
	assert.Contains(t, out, "Schema is up to date")

	out = execute(t, "migrate", "status")
	assert.Contains(t, out, "present")
	assert.NotContains(t, out, "missing")
}
