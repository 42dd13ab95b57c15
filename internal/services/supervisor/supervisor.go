// Package supervisor connects file discovery to the ingest queue and owns
// the watching lifecycle. It also recovers state on boot: files already in
// the inbox and recordings stranded mid-processing by a crash are queued
// again.
package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/models"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/ingest"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/progress"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/recordings"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/watcher"
	"github.com/ai-godfather/rec-conv-transcriptor/pkg/config"
)

// Supervisor implements the pipeline controller over a watcher and queue.
type Supervisor struct {
	cfg         config.WatcherConfig
	workers     int
	queue       *ingest.Queue
	recordings  recordings.Service
	broadcaster *progress.Broadcaster
	logger      *zap.Logger

	baseCtx context.Context

	mu          sync.Mutex
	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// New creates a supervisor. baseCtx bounds the lifetime of everything the
// supervisor launches.
func New(baseCtx context.Context, cfg config.WatcherConfig, workers int, queue *ingest.Queue, svc recordings.Service, broadcaster *progress.Broadcaster, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		cfg:         cfg,
		workers:     workers,
		queue:       queue,
		recordings:  svc,
		broadcaster: broadcaster,
		logger:      logger,
		baseCtx:     baseCtx,
	}
}

// HandleFile registers a discovered file and queues it when it still needs
// a pipeline run.
func (s *Supervisor) HandleFile(path string) {
	recording, needsRun, err := s.recordings.Register(s.baseCtx, path)
	if err != nil {
		s.logger.Error("failed to register discovered file",
			zap.String("path", path), zap.Error(err))
		return
	}
	if !needsRun {
		s.logger.Debug("file already processed", zap.String("path", path))
		return
	}
	s.enqueue(recording)
}

func (s *Supervisor) enqueue(recording *models.Recording) {
	err := s.queue.Enqueue(s.baseCtx, ingest.Job{
		RecordingID: recording.ID,
		Filepath:    recording.Filepath,
		Filename:    recording.Filename,
	})
	if err != nil {
		s.logger.Warn("could not queue recording",
			zap.Uint("recording_id", recording.ID), zap.Error(err))
	}
}

// Sweep scans the inbox once and requeues anything left unfinished: new
// files, pending rows, and processing rows stranded by an unclean shutdown.
func (s *Supervisor) Sweep(ctx context.Context) error {
	repo := s.recordings.Repository()

	// a processing row with no running job is a crash leftover
	stranded, _, err := repo.List(ctx, recordings.ListOptions{Status: models.StatusProcessing, PerPage: 100})
	if err != nil {
		return err
	}
	for _, rec := range stranded {
		if s.queue.IsBusy(rec.ID) {
			continue
		}
		ok, err := repo.UpdateStatus(ctx, rec.ID, models.StatusProcessing, models.StatusPending, "")
		if err != nil {
			s.logger.Error("failed to reset stranded recording",
				zap.Uint("recording_id", rec.ID), zap.Error(err))
			continue
		}
		if ok {
			s.logger.Info("recovered stranded recording", zap.Uint("recording_id", rec.ID))
		}
	}

	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return err
	}

	extSet := make(map[string]bool, len(s.cfg.Extensions))
	for _, ext := range s.cfg.Extensions {
		extSet[strings.ToLower(ext)] = true
	}

	queued := 0
	for _, entry := range entries {
		if entry.IsDir() || !extSet[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		path := filepath.Join(s.cfg.Dir, entry.Name())
		recording, needsRun, err := s.recordings.Register(ctx, path)
		if err != nil {
			s.logger.Error("sweep registration failed", zap.String("path", path), zap.Error(err))
			continue
		}
		if needsRun {
			s.enqueue(recording)
			queued++
		}
	}
	s.logger.Info("inbox sweep finished",
		zap.Int("files", len(entries)),
		zap.Int("queued", queued))
	return nil
}

// StartWatching launches the folder watcher. Calling it while already
// watching is a no-op.
func (s *Supervisor) StartWatching() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchCancel != nil {
		return nil
	}

	w := watcher.New(s.cfg.Dir, s.cfg.Extensions, s.cfg.ScanInterval, s.cfg.Debounce, s.HandleFile, s.logger)
	ctx, cancel := context.WithCancel(s.baseCtx)
	done := make(chan struct{})
	s.watchCancel = cancel
	s.watchDone = done

	go func() {
		defer close(done)
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("watcher stopped unexpectedly", zap.Error(err))
		}
	}()
	s.logger.Info("folder watching started", zap.String("dir", s.cfg.Dir))
	return nil
}

// StopWatching stops file discovery. Queued and running jobs continue.
func (s *Supervisor) StopWatching() error {
	s.mu.Lock()
	cancel, done := s.watchCancel, s.watchDone
	s.watchCancel, s.watchDone = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	s.logger.Info("folder watching stopped")
	return nil
}

// Status reports the ingest side of the service.
func (s *Supervisor) Status() types.PipelineStatus {
	s.mu.Lock()
	watching := s.watchCancel != nil
	s.mu.Unlock()

	return types.PipelineStatus{
		Watching:    watching,
		QueueDepth:  s.queue.Depth(),
		Workers:     s.workers,
		Subscribers: s.broadcaster.SubscriberCount(),
	}
}
