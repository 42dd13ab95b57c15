package recordings

import (
	"context"

	"github.com/ai-godfather/rec-conv-transcriptor/internal/models"
)

// ListOptions controls filtering, ordering and paging of recording lists.
type ListOptions struct {
	Status  models.RecordingStatus // empty means all
	SortBy  string                 // created_at, filename, duration, status
	Order   string                 // asc or desc
	Page    int
	PerPage int
}

// PipelineResult is everything a finished pipeline run persists in one
// transaction.
type PipelineResult struct {
	Duration   float64
	Transcript models.Transcript
	Segments   []models.Segment
	Speakers   []models.Speaker
}

// SearchHit is one transcript or segment text match.
type SearchHit struct {
	RecordingID uint     `json:"recording_id"`
	Filename    string   `json:"filename"`
	Source      string   `json:"source"` // transcript or segment
	Snippet     string   `json:"snippet"`
	StartTime   *float64 `json:"start_time,omitempty"`
}

// DayCount is the number of recordings created on one day.
type DayCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int64  `json:"count"`
}

// Stats summarizes the recording store.
type Stats struct {
	Total         int64                            `json:"total"`
	ByStatus      map[models.RecordingStatus]int64 `json:"by_status"`
	TotalDuration float64                          `json:"total_duration"`
	PerDay        []DayCount                       `json:"per_day"`
}

// Repository is the persistence boundary for recordings and their results.
type Repository interface {
	Create(ctx context.Context, recording *models.Recording) error
	GetByID(ctx context.Context, id uint) (*models.Recording, error)
	GetByFilepath(ctx context.Context, path string) (*models.Recording, error)
	List(ctx context.Context, opts ListOptions) ([]models.Recording, int64, error)
	Delete(ctx context.Context, id uint) error

	// UpdateStatus performs a compare-and-set on the status column. It
	// reports false without error when the current status is not `from`.
	UpdateStatus(ctx context.Context, id uint, from, to models.RecordingStatus, errorMessage string) (bool, error)

	// SaveResult atomically replaces the recording's transcript, segments
	// and speakers and marks it done. Previous result rows are removed in
	// the same transaction.
	SaveResult(ctx context.Context, id uint, result *PipelineResult) error

	GetSegments(ctx context.Context, recordingID uint) ([]models.Segment, error)
	SwapRoles(ctx context.Context, recordingID uint) error
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
	Stats(ctx context.Context) (*Stats, error)
}
