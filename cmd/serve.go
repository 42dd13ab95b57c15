package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ai-godfather/rec-conv-transcriptor/api"
	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/database"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/analyzer"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/classifier"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/engines"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/ingest"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/pipeline"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/progress"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/recordings"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/supervisor"
	"github.com/ai-godfather/rec-conv-transcriptor/pkg/config"
	"github.com/ai-godfather/rec-conv-transcriptor/pkg/ffmpeg"
	"github.com/ai-godfather/rec-conv-transcriptor/pkg/logging"
)

var (
	serverHost string
	serverPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the transcription service",
	Long: `Start the API server, the worker pool and, when configured, the
folder watcher.

Example:
  transcriptor serve
  transcriptor serve --port 9090
  transcriptor serve --host 0.0.0.0 --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	host := cfg.Server.Host
	if serverHost != "" {
		host = serverHost
	}
	port := cfg.Server.Port
	if serverPort != 0 {
		port = serverPort
	}

	if err := os.MkdirAll(cfg.Watcher.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create watch directory: %w", err)
	}

	db, err := database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	ff := ffmpeg.New(cfg.Processing.FFmpegPath, cfg.Processing.FFprobePath, cfg.Processing.StageTimeout)
	if err := ff.ValidateBinaries(); err != nil {
		logger.Warn("ffmpeg binaries unavailable, audio probing will fail", zap.Error(err))
	}

	repo := recordings.NewRepository(db.DB)
	svc := recordings.NewService(repo, logger)
	broadcaster := progress.NewBroadcaster(logger)

	orchestrator := pipeline.New(pipeline.Options{
		Repository: repo,
		Router:     analyzer.New(ff, logger),
		Splitter:   ff,
		Transcriber: engines.NewWhisperClient(engines.WhisperConfig{
			BaseURL:  cfg.Whisper.BaseURL,
			Model:    cfg.Whisper.Model,
			Language: cfg.Whisper.Language,
			Timeout:  cfg.Whisper.Timeout,
		}),
		Diarizer: engines.NewPyannoteClient(engines.PyannoteConfig{
			BaseURL: cfg.Diarizer.BaseURL,
			Timeout: cfg.Diarizer.Timeout,
		}),
		Classifier: classifier.New(classifier.Weights{
			Phrase:    cfg.Classifier.PhraseWeight,
			TalkTime:  cfg.Classifier.TalkTimeWeight,
			Utterance: cfg.Classifier.UtteranceWeight,
		}, logger),
		Broadcaster:  broadcaster,
		Logger:       logger,
		StageTimeout: cfg.Processing.StageTimeout,
		TempDir:      cfg.Processing.TempDir,
		NumSpeakers:  cfg.Diarizer.Speakers,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue := ingest.NewQueue(cfg.Processing.MaxQueueSize, cfg.Processing.Workers, orchestrator, logger)
	queue.Start(ctx)

	sup := supervisor.New(ctx, cfg.Watcher, cfg.Processing.Workers, queue, svc, broadcaster, logger)
	go func() {
		if err := sup.Sweep(ctx); err != nil {
			logger.Error("startup sweep failed", zap.Error(err))
		}
	}()
	if cfg.Watcher.StartOnBoot {
		if err := sup.StartWatching(); err != nil {
			return err
		}
	}

	deps := &types.Dependencies{
		DB:          db,
		Config:      cfg,
		Recordings:  svc,
		Queue:       queue,
		Broadcaster: broadcaster,
		Pipeline:    sup,
		Logger:      logger,
	}

	server := api.NewServer(fmt.Sprintf("%s:%d", host, port), deps)
	if err := server.Initialize(); err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()
	logger.Info("server started", zap.String("host", host), zap.Int("port", port))

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
		stop()
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	sup.StopWatching()
	queue.Stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced server shutdown", zap.Error(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}
