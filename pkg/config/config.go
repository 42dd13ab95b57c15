package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once    sync.Once
	initErr error
)

// Init initializes the configuration system.
// This should be called once at application startup.
func Init() error {
	once.Do(func() {
		setDefaults()

		viper.SetEnvPrefix("TRANSCRIPTOR")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		configPath := filepath.Clean("./config/settings.yaml")
		viper.SetConfigFile(configPath)

		if err := viper.ReadInConfig(); err != nil {
			// Missing config file is fine: defaults plus env vars apply.
			if !os.IsNotExist(err) {
				initErr = fmt.Errorf("error reading config file %s: %w", configPath, err)
				return
			}
		}

		if err := validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
		}
	})

	return initErr
}

// GetConfig returns the current configuration as a struct.
// Init() must be called before using this.
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// validate validates the configuration using Viper values
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	if viper.GetString("watcher.dir") == "" {
		return fmt.Errorf("watcher.dir must be configured")
	}

	// Auto-correct invalid worker count and queue size
	if viper.GetInt("processing.workers") <= 0 {
		viper.Set("processing.workers", 1)
	}
	if viper.GetInt("processing.max_queue_size") <= 0 {
		viper.Set("processing.max_queue_size", 64)
	}

	if viper.GetDuration("watcher.debounce") <= 0 {
		viper.Set("watcher.debounce", 2*time.Second)
	}

	return nil
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Watcher.Dir == "" {
		return fmt.Errorf("watcher.dir must be configured")
	}

	if c.Processing.Workers <= 0 {
		c.Processing.Workers = 1
	}
	if c.Processing.MaxQueueSize <= 0 {
		c.Processing.MaxQueueSize = 64
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)
	viper.SetDefault("server.max_upload_bytes", 536870912)

	// Database defaults
	viper.SetDefault("database.path", "./data/transcriptions.db")
	viper.SetDefault("database.verbose", false)

	// Watcher defaults
	viper.SetDefault("watcher.dir", "./recordings")
	viper.SetDefault("watcher.scan_interval", 5*time.Second)
	viper.SetDefault("watcher.debounce", 2*time.Second)
	viper.SetDefault("watcher.extensions", []string{".wav"})
	viper.SetDefault("watcher.start_on_boot", true)

	// Processing defaults. A single worker by default: the engines usually
	// hold exclusive access to one accelerator device.
	viper.SetDefault("processing.workers", 1)
	viper.SetDefault("processing.max_queue_size", 64)
	viper.SetDefault("processing.stage_timeout", 30*time.Minute)
	viper.SetDefault("processing.temp_dir", os.TempDir())
	viper.SetDefault("processing.ffmpeg_path", "ffmpeg")
	viper.SetDefault("processing.ffprobe_path", "ffprobe")

	// Whisper defaults
	viper.SetDefault("whisper.base_url", "http://localhost:9000")
	viper.SetDefault("whisper.model", "large-v3")
	viper.SetDefault("whisper.language", "")
	viper.SetDefault("whisper.timeout", 15*time.Minute)

	// Diarizer defaults
	viper.SetDefault("diarizer.base_url", "http://localhost:9001")
	viper.SetDefault("diarizer.speakers", 2)
	viper.SetDefault("diarizer.timeout", 15*time.Minute)

	// Classifier signal weights
	viper.SetDefault("classifier.phrase_weight", 3.0)
	viper.SetDefault("classifier.talk_time_weight", 1.0)
	viper.SetDefault("classifier.utterance_weight", 1.0)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
