package analyzer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ai-godfather/rec-conv-transcriptor/pkg/ffmpeg"
)

// Route is the processing strategy chosen for a recording.
type Route string

const (
	// RouteSplit processes a stereo file by splitting its channels; no
	// diarization call is made.
	RouteSplit Route = "split"
	// RouteDiarize processes a mono file through the diarization engine.
	RouteDiarize Route = "diarize"
)

// Channel labels. Call-center convention puts the agent on the left channel
// and the customer on the right; the classifier still confirms final roles.
const (
	LabelLeft  = "L"
	LabelRight = "R"
)

// Decision is the analyzer's routing verdict for one file.
type Decision struct {
	Route    Route
	Metadata *ffmpeg.AudioMetadata
	Energy   *ffmpeg.EnergyProfile // populated for the stereo path
}

// Prober abstracts the audio inspection calls the analyzer needs.
type Prober interface {
	GetMetadata(ctx context.Context, filePath string) (*ffmpeg.AudioMetadata, error)
	AnalyzeEnergy(ctx context.Context, filePath string, channels int) (*ffmpeg.EnergyProfile, error)
}

// Analyzer decides between channel splitting and diarization.
type Analyzer struct {
	prober Prober
	logger *zap.Logger
}

// New creates an analyzer over the given prober.
func New(prober Prober, logger *zap.Logger) *Analyzer {
	return &Analyzer{prober: prober, logger: logger}
}

// Analyze probes the file and picks the routing strategy. Stereo files skip
// diarization entirely; everything else goes through the diarization engine
// with a two-speaker target.
func (a *Analyzer) Analyze(ctx context.Context, filePath string) (*Decision, error) {
	metadata, err := a.prober.GetMetadata(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", filePath, err)
	}

	if metadata.Channels != 2 {
		a.logger.Info("routing to diarization",
			zap.String("file", filePath),
			zap.Int("channels", metadata.Channels))
		return &Decision{Route: RouteDiarize, Metadata: metadata}, nil
	}

	energy, err := a.prober.AnalyzeEnergy(ctx, filePath, metadata.Channels)
	if err != nil {
		return nil, fmt.Errorf("energy profile for %s: %w", filePath, err)
	}

	a.logger.Info("routing to channel split",
		zap.String("file", filePath),
		zap.Float64("left_rms", energy.RMS[0]),
		zap.Float64("right_rms", energy.RMS[1]),
		zap.Float64("left_activity", energy.ActiveRatio[0]),
		zap.Float64("right_activity", energy.ActiveRatio[1]))

	return &Decision{Route: RouteSplit, Metadata: metadata, Energy: energy}, nil
}
