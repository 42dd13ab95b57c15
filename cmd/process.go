package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ai-godfather/rec-conv-transcriptor/internal/database"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/analyzer"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/classifier"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/engines"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/ingest"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/pipeline"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/progress"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/recordings"
	"github.com/ai-godfather/rec-conv-transcriptor/pkg/config"
	"github.com/ai-godfather/rec-conv-transcriptor/pkg/ffmpeg"
	"github.com/ai-godfather/rec-conv-transcriptor/pkg/logging"
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process <audio-file>",
	Short: "Process a single recording and exit",
	Long: `Run the full pipeline on one audio file without starting the
server. The result is written to the configured database.

Example:
  transcriptor process /data/inbox/call_2024.wav`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
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
	repo := recordings.NewRepository(db.DB)
	svc := recordings.NewService(repo, logger)

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
		Broadcaster:  progress.NewBroadcaster(logger),
		Logger:       logger,
		StageTimeout: cfg.Processing.StageTimeout,
		TempDir:      cfg.Processing.TempDir,
		NumSpeakers:  cfg.Diarizer.Speakers,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recording, needsRun, err := svc.Register(ctx, path)
	if err != nil {
		return err
	}
	if !needsRun {
		if recording.IsTerminal() {
			if recording, err = svc.PrepareReprocess(ctx, recording.ID); err != nil {
				return err
			}
		} else {
			return fmt.Errorf("recording %d is already %s", recording.ID, recording.Status)
		}
	}

	err = orchestrator.Process(ctx, ingest.Job{
		RecordingID: recording.ID,
		Filepath:    recording.Filepath,
		Filename:    recording.Filename,
	})
	if err != nil {
		return err
	}

	done, err := svc.Get(ctx, recording.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Recording %d processed\n", done.ID)
	if done.Duration != nil {
		fmt.Fprintf(out, "Duration: %.1fs\n", *done.Duration)
	}
	if done.Transcript != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, done.Transcript.FullText)
	}
	logger.Info("one-shot processing finished", zap.Uint("recording_id", done.ID))
	return nil
}
