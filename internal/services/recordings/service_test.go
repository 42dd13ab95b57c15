package recordings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ai-godfather/rec-conv-transcriptor/internal/models"
	apperrors "github.com/ai-godfather/rec-conv-transcriptor/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	return NewService(newTestRepo(t), zap.NewNop())
}

func TestRegisterNewFile(t *testing.T) {
	svc := newTestService(t)

	rec, needsRun, err := svc.Register(context.Background(), "/inbox/fresh.wav")
	require.NoError(t, err)
	assert.True(t, needsRun)
	assert.Equal(t, "fresh.wav", rec.Filename)
	assert.Equal(t, models.StatusPending, rec.Status)
	assert.NotZero(t, rec.ID)
}

func TestRegisterKnownFileIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, _, err := svc.Register(ctx, "/inbox/seen.wav")
	require.NoError(t, err)

	again, needsRun, err := svc.Register(ctx, "/inbox/seen.wav")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.True(t, needsRun, "still pending, still needs a run")
}

func TestRegisterProcessedFileNeedsNoRun(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rec, _, err := svc.Register(ctx, "/inbox/finished.wav")
	require.NoError(t, err)
	markProcessing(t, svc.Repository(), rec.ID)
	require.NoError(t, svc.Repository().SaveResult(ctx, rec.ID, sampleResult()))

	_, needsRun, err := svc.Register(ctx, "/inbox/finished.wav")
	require.NoError(t, err)
	assert.False(t, needsRun)
}

func TestDeleteRejectsProcessingRecording(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rec, _, err := svc.Register(ctx, "/inbox/busy.wav")
	require.NoError(t, err)
	markProcessing(t, svc.Repository(), rec.ID)

	err = svc.Delete(ctx, rec.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeJobConflict))
}

func TestPrepareReprocess(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rec, _, err := svc.Register(ctx, "/inbox/done.wav")
	require.NoError(t, err)

	// only terminal recordings can be reset
	_, err = svc.PrepareReprocess(ctx, rec.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeJobConflict))

	markProcessing(t, svc.Repository(), rec.ID)
	require.NoError(t, svc.Repository().SaveResult(ctx, rec.ID, sampleResult()))

	reset, err := svc.PrepareReprocess(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, reset.Status)
	assert.Nil(t, reset.ProcessedAt)

	loaded, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, loaded.Status)
}

func TestSwapSpeakersRequiresFinishedResult(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rec, _, err := svc.Register(ctx, "/inbox/raw.wav")
	require.NoError(t, err)

	err = svc.SwapSpeakers(ctx, rec.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))

	markProcessing(t, svc.Repository(), rec.ID)
	require.NoError(t, svc.Repository().SaveResult(ctx, rec.ID, sampleResult()))
	assert.NoError(t, svc.SwapSpeakers(ctx, rec.ID))
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Search(context.Background(), "   ", 10)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))
}

func TestGetSegmentsUnknownRecording(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetSegments(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
}
