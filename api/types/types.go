// Package types holds the dependency container shared by all route
// handlers.
package types

import (
	"go.uber.org/zap"

	"github.com/ai-godfather/rec-conv-transcriptor/internal/database"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/ingest"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/progress"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/recordings"
	"github.com/ai-godfather/rec-conv-transcriptor/pkg/config"
)

// PipelineStatus describes the state of the ingest side of the service.
type PipelineStatus struct {
	Watching    bool `json:"watching"`
	QueueDepth  int  `json:"queue_depth"`
	Workers     int  `json:"workers"`
	Subscribers int  `json:"subscribers"`
}

// PipelineController lets the API start and stop folder watching and
// inspect queue state.
type PipelineController interface {
	StartWatching() error
	StopWatching() error
	Status() PipelineStatus
}

// Dependencies carries everything handlers need.
type Dependencies struct {
	DB          *database.DB
	Config      *config.Config
	Recordings  recordings.Service
	Queue       *ingest.Queue
	Broadcaster *progress.Broadcaster
	Pipeline    PipelineController
	Logger      *zap.Logger
}
