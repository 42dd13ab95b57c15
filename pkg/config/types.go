package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Watcher    WatcherConfig    `mapstructure:"watcher"`
	Processing ProcessingConfig `mapstructure:"processing"`
	Whisper    WhisperConfig    `mapstructure:"whisper"`
	Diarizer   DiarizerConfig   `mapstructure:"diarizer"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	Verbose bool   `mapstructure:"verbose"`
}

// WatcherConfig contains folder watcher settings
type WatcherConfig struct {
	Dir          string        `mapstructure:"dir"`
	ScanInterval time.Duration `mapstructure:"scan_interval"`
	Debounce     time.Duration `mapstructure:"debounce"`
	Extensions   []string      `mapstructure:"extensions"`
	StartOnBoot  bool          `mapstructure:"start_on_boot"`
}

// ProcessingConfig contains pipeline settings
type ProcessingConfig struct {
	Workers      int           `mapstructure:"workers"`
	MaxQueueSize int           `mapstructure:"max_queue_size"`
	StageTimeout time.Duration `mapstructure:"stage_timeout"`
	TempDir      string        `mapstructure:"temp_dir"`
	FFmpegPath   string        `mapstructure:"ffmpeg_path"`
	FFprobePath  string        `mapstructure:"ffprobe_path"`
}

// WhisperConfig contains transcription engine settings
type WhisperConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Model    string        `mapstructure:"model"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DiarizerConfig contains diarization engine settings
type DiarizerConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Speakers int           `mapstructure:"speakers"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ClassifierConfig exposes the role classifier weighting as named
// configuration so the heuristic can be tuned without code changes.
type ClassifierConfig struct {
	PhraseWeight    float64 `mapstructure:"phrase_weight"`
	TalkTimeWeight  float64 `mapstructure:"talk_time_weight"`
	UtteranceWeight float64 `mapstructure:"utterance_weight"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
