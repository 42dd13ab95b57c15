package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		cfg := &Config{
			Server:  ServerConfig{Port: 8080},
			Watcher: WatcherConfig{Dir: "./recordings"},
			Processing: ProcessingConfig{
				Workers:      1,
				MaxQueueSize: 64,
			},
		}
		require.NoError(t, cfg.Validate())
	})

	t.Run("invalid port rejected", func(t *testing.T) {
		cfg := &Config{
			Server:  ServerConfig{Port: 0},
			Watcher: WatcherConfig{Dir: "./recordings"},
		}
		assert.Error(t, cfg.Validate())

		cfg.Server.Port = 70000
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing watch dir rejected", func(t *testing.T) {
		cfg := &Config{
			Server: ServerConfig{Port: 8080},
		}
		assert.Error(t, cfg.Validate())
	})

	t.Run("worker count auto-corrected", func(t *testing.T) {
		cfg := &Config{
			Server:     ServerConfig{Port: 8080},
			Watcher:    WatcherConfig{Dir: "./recordings"},
			Processing: ProcessingConfig{Workers: 0, MaxQueueSize: -1},
		}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, 1, cfg.Processing.Workers)
		assert.Equal(t, 64, cfg.Processing.MaxQueueSize)
	})
}
