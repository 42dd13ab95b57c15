package recordings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ai-godfather/rec-conv-transcriptor/internal/models"
	apperrors "github.com/ai-godfather/rec-conv-transcriptor/pkg/errors"
)

const snippetRadius = 80

// gormRepository implements Repository on a GORM connection.
type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a GORM-backed recording repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, recording *models.Recording) error {
	if err := r.db.WithContext(ctx).Create(recording).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperrors.Newf(apperrors.ErrCodeConflict, "recording for %s already exists", recording.Filepath)
		}
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create recording")
	}
	return nil
}

func (r *gormRepository) GetByID(ctx context.Context, id uint) (*models.Recording, error) {
	var recording models.Recording
	err := r.db.WithContext(ctx).
		Preload("Transcript").
		Preload("Speakers").
		First(&recording, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Newf(apperrors.ErrCodeNotFound, "recording %d not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to load recording")
	}
	return &recording, nil
}

func (r *gormRepository) GetByFilepath(ctx context.Context, path string) (*models.Recording, error) {
	var recording models.Recording
	err := r.db.WithContext(ctx).Where("filepath = ?", path).First(&recording).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Newf(apperrors.ErrCodeNotFound, "no recording for path %s", path)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to load recording")
	}
	return &recording, nil
}

var sortColumns = map[string]string{
	"created_at": "created_at",
	"filename":   "filename",
	"duration":   "duration",
	"status":     "status",
}

func (r *gormRepository) List(ctx context.Context, opts ListOptions) ([]models.Recording, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Recording{})
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to count recordings")
	}

	column, ok := sortColumns[opts.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(opts.Order, "asc") {
		direction = "ASC"
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var recordings []models.Recording
	err := query.
		Order(fmt.Sprintf("%s %s", column, direction)).
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&recordings).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list recordings")
	}
	return recordings, total, nil
}

func (r *gormRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Unscoped().Delete(&models.Recording{}, id)
		if result.Error != nil {
			return apperrors.Wrap(result.Error, apperrors.ErrCodeInternal, "failed to delete recording")
		}
		if result.RowsAffected == 0 {
			return apperrors.Newf(apperrors.ErrCodeNotFound, "recording %d not found", id)
		}
		return deleteResultRows(tx, id)
	})
}

func deleteResultRows(tx *gorm.DB, recordingID uint) error {
	for _, model := range []any{&models.Segment{}, &models.Speaker{}, &models.Transcript{}} {
		if err := tx.Unscoped().Where("recording_id = ?", recordingID).Delete(model).Error; err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to delete result rows")
		}
	}
	return nil
}

func (r *gormRepository) UpdateStatus(ctx context.Context, id uint, from, to models.RecordingStatus, errorMessage string) (bool, error) {
	probe := models.Recording{Status: from}
	if !probe.CanTransitionTo(to) {
		return false, apperrors.Newf(apperrors.ErrCodeValidation, "illegal status transition %s to %s", from, to)
	}

	updates := map[string]any{"status": to, "error_message": ""}
	switch to {
	case models.StatusError:
		updates["error_message"] = errorMessage
	case models.StatusPending:
		// reprocess resets the outcome fields
		updates["processed_at"] = nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.Recording{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, apperrors.ErrCodeInternal, "failed to update status")
	}
	return result.RowsAffected == 1, nil
}

func (r *gormRepository) SaveResult(ctx context.Context, id uint, pipelineResult *PipelineResult) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteResultRows(tx, id); err != nil {
			return err
		}

		transcript := pipelineResult.Transcript
		transcript.RecordingID = id
		if err := tx.Create(&transcript).Error; err != nil {
			return err
		}

		for i := range pipelineResult.Segments {
			pipelineResult.Segments[i].RecordingID = id
		}
		if len(pipelineResult.Segments) > 0 {
			if err := tx.CreateInBatches(pipelineResult.Segments, 200).Error; err != nil {
				return err
			}
		}

		for i := range pipelineResult.Speakers {
			pipelineResult.Speakers[i].RecordingID = id
		}
		if len(pipelineResult.Speakers) > 0 {
			if err := tx.Create(&pipelineResult.Speakers).Error; err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		result := tx.Model(&models.Recording{}).
			Where("id = ? AND status = ?", id, models.StatusProcessing).
			Updates(map[string]any{
				"status":        models.StatusDone,
				"duration":      pipelineResult.Duration,
				"processed_at":  now,
				"error_message": "",
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("recording %d is no longer processing", id)
		}
		return nil
	})
	if err != nil {
		return apperrors.StoreCommitFailure(err)
	}
	return nil
}

func (r *gormRepository) GetSegments(ctx context.Context, recordingID uint) ([]models.Segment, error) {
	var segments []models.Segment
	err := r.db.WithContext(ctx).
		Where("recording_id = ?", recordingID).
		Order("start_time ASC").
		Find(&segments).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to load segments")
	}
	return segments, nil
}

func (r *gormRepository) SwapRoles(ctx context.Context, recordingID uint) error {
	swap := gorm.Expr(
		"CASE role WHEN ? THEN ? WHEN ? THEN ? ELSE role END",
		models.RoleAgent, models.RoleCustomer,
		models.RoleCustomer, models.RoleAgent,
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Segment{}).
			Where("recording_id = ?", recordingID).
			Update("role", swap).Error; err != nil {
			return err
		}
		return tx.Model(&models.Speaker{}).
			Where("recording_id = ?", recordingID).
			Update("role", swap).Error
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to swap speaker roles")
	}
	return nil
}

func (r *gormRepository) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	pattern := "%" + query + "%"
	hits := make([]SearchHit, 0, limit)

	var transcriptRows []struct {
		RecordingID uint
		Filename    string
		FullText    string
	}
	err := r.db.WithContext(ctx).
		Table("transcripts").
		Select("transcripts.recording_id, recordings.filename, transcripts.full_text").
		Joins("JOIN recordings ON recordings.id = transcripts.recording_id").
		Where("transcripts.full_text LIKE ?", pattern).
		Limit(limit).
		Scan(&transcriptRows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "transcript search failed")
	}
	for _, row := range transcriptRows {
		hits = append(hits, SearchHit{
			RecordingID: row.RecordingID,
			Filename:    row.Filename,
			Source:      "transcript",
			Snippet:     snippet(row.FullText, query),
		})
	}

	if remaining := limit - len(hits); remaining > 0 {
		var segmentRows []struct {
			RecordingID uint
			Filename    string
			Text        string
			StartTime   float64
		}
		err = r.db.WithContext(ctx).
			Table("segments").
			Select("segments.recording_id, recordings.filename, segments.text, segments.start_time").
			Joins("JOIN recordings ON recordings.id = segments.recording_id").
			Where("segments.text LIKE ?", pattern).
			Order("segments.recording_id, segments.start_time").
			Limit(remaining).
			Scan(&segmentRows).Error
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "segment search failed")
		}
		for _, row := range segmentRows {
			start := row.StartTime
			hits = append(hits, SearchHit{
				RecordingID: row.RecordingID,
				Filename:    row.Filename,
				Source:      "segment",
				Snippet:     snippet(row.Text, query),
				StartTime:   &start,
			})
		}
	}
	return hits, nil
}

// snippet trims text down to a window around the first case-insensitive
// occurrence of query.
func snippet(text, query string) string {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(query))
	if idx < 0 {
		idx = 0
	}
	start := idx - snippetRadius
	if start < 0 {
		start = 0
	}
	end := idx + len(query) + snippetRadius
	if end > len(text) {
		end = len(text)
	}
	out := text[start:end]
	if start > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out += "..."
	}
	return out
}

func (r *gormRepository) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByStatus: make(map[models.RecordingStatus]int64)}

	if err := r.db.WithContext(ctx).Model(&models.Recording{}).Count(&stats.Total).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to count recordings")
	}

	var statusRows []struct {
		Status models.RecordingStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Recording{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&statusRows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to count by status")
	}
	for _, row := range statusRows {
		stats.ByStatus[row.Status] = row.Count
	}

	var totalDuration *float64
	err = r.db.WithContext(ctx).Model(&models.Recording{}).
		Select("SUM(duration)").
		Scan(&totalDuration).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to sum durations")
	}
	if totalDuration != nil {
		stats.TotalDuration = *totalDuration
	}

	since := time.Now().UTC().AddDate(0, 0, -30)
	var dayRows []struct {
		Date  string
		Count int64
	}
	err = r.db.WithContext(ctx).Model(&models.Recording{}).
		Select("strftime('%Y-%m-%d', created_at) as date, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("date").
		Order("date ASC").
		Scan(&dayRows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to count per day")
	}
	for _, row := range dayRows {
		stats.PerDay = append(stats.PerDay, DayCount{Date: row.Date, Count: row.Count})
	}
	return stats, nil
}
