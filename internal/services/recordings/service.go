// Package recordings holds the persistence and query layer for ingested
// audio files and their transcription results.
package recordings

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ai-godfather/rec-conv-transcriptor/internal/models"
	apperrors "github.com/ai-godfather/rec-conv-transcriptor/pkg/errors"
)

// Service exposes recording operations to the API and the pipeline.
type Service interface {
	// Register returns the recording for path, creating a pending row on
	// first sight. The boolean reports whether the file still needs a
	// pipeline run.
	Register(ctx context.Context, path string) (*models.Recording, bool, error)

	Get(ctx context.Context, id uint) (*models.Recording, error)
	List(ctx context.Context, opts ListOptions) ([]models.Recording, int64, error)
	Delete(ctx context.Context, id uint) error
	GetSegments(ctx context.Context, id uint) ([]models.Segment, error)

	// PrepareReprocess resets a terminal recording back to pending.
	PrepareReprocess(ctx context.Context, id uint) (*models.Recording, error)

	SwapSpeakers(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
	Stats(ctx context.Context) (*Stats, error)

	Repository() Repository
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates the recording service.
func NewService(repo Repository, logger *zap.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (s *service) Register(ctx context.Context, path string) (*models.Recording, bool, error) {
	existing, err := s.repo.GetByFilepath(ctx, path)
	if err == nil {
		needsRun := existing.Status == models.StatusPending
		return existing, needsRun, nil
	}
	if !apperrors.Is(err, apperrors.ErrCodeNotFound) {
		return nil, false, err
	}

	recording := &models.Recording{
		Filename: filepath.Base(path),
		Filepath: path,
		Status:   models.StatusPending,
	}
	if err := s.repo.Create(ctx, recording); err != nil {
		if apperrors.Is(err, apperrors.ErrCodeConflict) {
			// lost a create race, the row exists now
			existing, lookupErr := s.repo.GetByFilepath(ctx, path)
			if lookupErr != nil {
				return nil, false, lookupErr
			}
			return existing, existing.Status == models.StatusPending, nil
		}
		return nil, false, err
	}

	s.logger.Info("recording registered",
		zap.Uint("id", recording.ID),
		zap.String("filename", recording.Filename))
	return recording, true, nil
}

func (s *service) Get(ctx context.Context, id uint) (*models.Recording, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]models.Recording, int64, error) {
	return s.repo.List(ctx, opts)
}

func (s *service) Delete(ctx context.Context, id uint) error {
	recording, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if recording.Status == models.StatusProcessing {
		return apperrors.Newf(apperrors.ErrCodeJobConflict, "recording %d is processing, cancel it first", id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("recording deleted", zap.Uint("id", id), zap.String("filename", recording.Filename))
	return nil
}

func (s *service) GetSegments(ctx context.Context, id uint) ([]models.Segment, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetSegments(ctx, id)
}

func (s *service) PrepareReprocess(ctx context.Context, id uint) (*models.Recording, error) {
	recording, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !recording.IsTerminal() {
		return nil, apperrors.Newf(apperrors.ErrCodeJobConflict,
			"recording %d is %s, only done or error recordings can be reprocessed", id, recording.Status)
	}

	ok, err := s.repo.UpdateStatus(ctx, id, recording.Status, models.StatusPending, "")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrCodeJobConflict, "recording %d changed status concurrently", id)
	}

	recording.Status = models.StatusPending
	recording.ErrorMessage = ""
	recording.ProcessedAt = nil
	s.logger.Info("recording queued for reprocessing", zap.Uint("id", id))
	return recording, nil
}

func (s *service) SwapSpeakers(ctx context.Context, id uint) error {
	recording, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if recording.Status != models.StatusDone {
		return apperrors.Newf(apperrors.ErrCodeValidation,
			"recording %d has no finished result to swap", id)
	}
	if err := s.repo.SwapRoles(ctx, id); err != nil {
		return err
	}
	s.logger.Info("speaker roles swapped", zap.Uint("id", id))
	return nil
}

func (s *service) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "search query is empty")
	}
	return s.repo.Search(ctx, query, limit)
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

func (s *service) Repository() Repository {
	return s.repo
}
