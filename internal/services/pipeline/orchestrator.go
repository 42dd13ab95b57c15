// Package pipeline runs a recording through probing, transcription, speaker
// attribution and role classification, and commits the result in a single
// transaction. Cancellation is checked between stages and each stage runs
// under its own deadline.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ai-godfather/rec-conv-transcriptor/internal/models"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/analyzer"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/classifier"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/engines"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/ingest"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/progress"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/recordings"
	"github.com/ai-godfather/rec-conv-transcriptor/pkg/ffmpeg"
	apperrors "github.com/ai-godfather/rec-conv-transcriptor/pkg/errors"
)

// Stage progress percentages. Monotonic within a run.
const (
	percentAnalyzing    = 10
	percentRouting      = 25
	percentTranscribing = 45
	percentClassifying  = 75
	percentPersisting   = 90
)

// Router picks the processing strategy for a file.
type Router interface {
	Analyze(ctx context.Context, filePath string) (*analyzer.Decision, error)
}

// Splitter produces per-channel mono files from a stereo input.
type Splitter interface {
	SplitChannels(ctx context.Context, inputFile, workDir string) (*ffmpeg.ChannelSplit, error)
}

// Orchestrator drives the processing pipeline for one job at a time per
// worker. It implements the ingest queue's Processor.
type Orchestrator struct {
	repo        recordings.Repository
	router      Router
	splitter    Splitter
	transcriber engines.TranscriptionEngine
	diarizer    engines.DiarizationEngine
	classifier  *classifier.Classifier
	broadcaster *progress.Broadcaster
	logger      *zap.Logger

	stageTimeout time.Duration
	tempDir      string
	numSpeakers  int

	// transcription and diarization backends handle one request well;
	// serialize engine calls across workers
	engineMu sync.Mutex
}

// Options carries the orchestrator's collaborators and tuning.
type Options struct {
	Repository   recordings.Repository
	Router       Router
	Splitter     Splitter
	Transcriber  engines.TranscriptionEngine
	Diarizer     engines.DiarizationEngine
	Classifier   *classifier.Classifier
	Broadcaster  *progress.Broadcaster
	Logger       *zap.Logger
	StageTimeout time.Duration
	TempDir      string
	NumSpeakers  int
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = 10 * time.Minute
	}
	if opts.NumSpeakers <= 0 {
		opts.NumSpeakers = 2
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	return &Orchestrator{
		repo:         opts.Repository,
		router:       opts.Router,
		splitter:     opts.Splitter,
		transcriber:  opts.Transcriber,
		diarizer:     opts.Diarizer,
		classifier:   opts.Classifier,
		broadcaster:  opts.Broadcaster,
		logger:       opts.Logger,
		stageTimeout: opts.StageTimeout,
		tempDir:      opts.TempDir,
		numSpeakers:  opts.NumSpeakers,
	}
}

// labeledSegment is a transcription segment bound to a speaker label.
type labeledSegment struct {
	Label   string
	Segment engines.TranscriptionSegment
}

// Process runs the full pipeline for one job. A cancelled job is returned
// to pending; any other failure marks the recording as errored.
func (o *Orchestrator) Process(ctx context.Context, job ingest.Job) error {
	log := o.logger.With(
		zap.Uint("recording_id", job.RecordingID),
		zap.String("filename", job.Filename))

	ok, err := o.repo.UpdateStatus(ctx, job.RecordingID, models.StatusPending, models.StatusProcessing, "")
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Newf(apperrors.ErrCodeJobConflict,
			"recording %d is not pending, skipping", job.RecordingID)
	}

	result, err := o.run(ctx, job, log)
	if err != nil {
		return o.fail(job, log, err)
	}

	o.broadcast(job, string(models.StagePersisting), percentPersisting)
	if err := o.repo.SaveResult(context.WithoutCancel(ctx), job.RecordingID, result); err != nil {
		return o.fail(job, log, err)
	}

	o.broadcaster.Completed(job.RecordingID, job.Filename)
	log.Info("pipeline finished",
		zap.Float64("duration", result.Duration),
		zap.Int("segments", len(result.Segments)))
	return nil
}

// fail maps the error to a terminal state: cancellation puts the recording
// back to pending, everything else records the error message.
func (o *Orchestrator) fail(job ingest.Job, log *zap.Logger, cause error) error {
	// status writes must survive the cancelled job context
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if errors.Is(cause, context.Canceled) {
		log.Info("pipeline cancelled, returning recording to pending")
		if _, err := o.repo.UpdateStatus(ctx, job.RecordingID, models.StatusProcessing, models.StatusPending, ""); err != nil {
			log.Error("failed to reset cancelled recording", zap.Error(err))
		}
		return cause
	}

	message := cause.Error()
	log.Error("pipeline failed", zap.Error(cause))
	if _, err := o.repo.UpdateStatus(ctx, job.RecordingID, models.StatusProcessing, models.StatusError, message); err != nil {
		log.Error("failed to record pipeline error", zap.Error(err))
	}
	o.broadcaster.Error(job.RecordingID, job.Filename, message)
	return cause
}

func (o *Orchestrator) run(ctx context.Context, job ingest.Job, log *zap.Logger) (*recordings.PipelineResult, error) {
	o.broadcast(job, string(models.StageAnalyzing), percentAnalyzing)

	var decision *analyzer.Decision
	err := o.stage(ctx, func(stageCtx context.Context) error {
		var stageErr error
		decision, stageErr = o.router.Analyze(stageCtx, job.Filepath)
		return stageErr
	})
	if err != nil {
		return nil, err
	}

	var (
		labeled     []labeledSegment
		language    string
		modelUsed   string
		speakerSeen = map[string]bool{}
	)

	switch decision.Route {
	case analyzer.RouteSplit:
		labeled, language, modelUsed, err = o.runSplitPath(ctx, job, log)
	case analyzer.RouteDiarize:
		labeled, language, modelUsed, err = o.runDiarizePath(ctx, job, log)
	default:
		err = fmt.Errorf("unknown route %q", decision.Route)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(labeled, func(i, j int) bool {
		return labeled[i].Segment.Start < labeled[j].Segment.Start
	})

	o.broadcast(job, string(models.StageClassifying), percentClassifying)
	stats := buildStats(labeled)
	assignment := o.classifier.Classify(stats)
	if assignment.Ambiguous {
		log.Warn("role classification ambiguous", zap.Int("labels", len(stats)))
	}

	segments := make([]models.Segment, 0, len(labeled))
	for _, ls := range labeled {
		role, ok := assignment.Roles[ls.Label]
		if !ok {
			role = models.RoleUnknown
		}
		segments = append(segments, models.Segment{
			SpeakerLabel: ls.Label,
			Role:         role,
			Text:         strings.TrimSpace(ls.Segment.Text),
			StartTime:    ls.Segment.Start,
			EndTime:      ls.Segment.End,
			Confidence:   engines.AvgWordConfidence(ls.Segment),
		})
		speakerSeen[ls.Label] = true
	}

	speakers := make([]models.Speaker, 0, len(speakerSeen))
	for label := range speakerSeen {
		role, ok := assignment.Roles[label]
		if !ok {
			role = models.RoleUnknown
		}
		speakers = append(speakers, models.Speaker{Label: label, Role: role})
	}
	sort.Slice(speakers, func(i, j int) bool { return speakers[i].Label < speakers[j].Label })

	return &recordings.PipelineResult{
		Duration: decision.Metadata.Duration,
		Transcript: models.Transcript{
			FullText:  renderFullText(segments),
			Language:  language,
			ModelUsed: modelUsed,
		},
		Segments: segments,
		Speakers: speakers,
	}, nil
}

// runSplitPath transcribes each channel of a stereo file separately. The
// left channel carries the agent by wiring convention; final roles still
// come from the classifier.
func (o *Orchestrator) runSplitPath(ctx context.Context, job ingest.Job, log *zap.Logger) ([]labeledSegment, string, string, error) {
	o.broadcast(job, string(models.StageSplitting), percentRouting)

	workDir, err := os.MkdirTemp(o.tempDir, "split-")
	if err != nil {
		return nil, "", "", apperrors.IOFailure(o.tempDir, err)
	}
	defer os.RemoveAll(workDir)

	var split *ffmpeg.ChannelSplit
	err = o.stage(ctx, func(stageCtx context.Context) error {
		var stageErr error
		split, stageErr = o.splitter.SplitChannels(stageCtx, job.Filepath, workDir)
		return stageErr
	})
	if err != nil {
		return nil, "", "", err
	}

	o.broadcast(job, string(models.StageTranscribing), percentTranscribing)

	var labeled []labeledSegment
	var language, modelUsed string
	channels := []struct {
		label string
		path  string
	}{
		{analyzer.LabelLeft, split.LeftPath},
		{analyzer.LabelRight, split.RightPath},
	}
	for _, ch := range channels {
		if err := ctx.Err(); err != nil {
			return nil, "", "", err
		}
		result, err := o.transcribe(ctx, ch.path)
		if err != nil {
			return nil, "", "", err
		}
		for _, seg := range result.Segments {
			if strings.TrimSpace(seg.Text) == "" {
				continue
			}
			labeled = append(labeled, labeledSegment{Label: ch.label, Segment: seg})
		}
		if language == "" {
			language = result.Language
		}
		if modelUsed == "" {
			modelUsed = result.Model
		}
		log.Debug("channel transcribed",
			zap.String("channel", ch.label),
			zap.Int("segments", len(result.Segments)))
	}
	return labeled, language, modelUsed, nil
}

// runDiarizePath transcribes the whole file and attributes segments to
// diarized speaker turns by maximum overlap.
func (o *Orchestrator) runDiarizePath(ctx context.Context, job ingest.Job, log *zap.Logger) ([]labeledSegment, string, string, error) {
	o.broadcast(job, string(models.StageDiarizing), percentRouting)

	var diarization *engines.DiarizationResult
	err := o.stage(ctx, func(stageCtx context.Context) error {
		o.engineMu.Lock()
		defer o.engineMu.Unlock()
		var stageErr error
		diarization, stageErr = o.diarizer.Diarize(stageCtx, job.Filepath, o.numSpeakers)
		return stageErr
	})
	if err != nil {
		return nil, "", "", err
	}
	log.Debug("diarization finished",
		zap.Int("turns", len(diarization.Turns)),
		zap.Int("speakers", diarization.NumSpeakers))

	if err := ctx.Err(); err != nil {
		return nil, "", "", err
	}

	o.broadcast(job, string(models.StageTranscribing), percentTranscribing)
	transcription, err := o.transcribe(ctx, job.Filepath)
	if err != nil {
		return nil, "", "", err
	}

	labels := alignSpeakers(transcription.Segments, diarization.Turns)
	labeled := make([]labeledSegment, 0, len(transcription.Segments))
	for i, seg := range transcription.Segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		labeled = append(labeled, labeledSegment{Label: labels[i], Segment: seg})
	}
	return labeled, transcription.Language, transcription.Model, nil
}

func (o *Orchestrator) transcribe(ctx context.Context, path string) (*engines.TranscriptionResult, error) {
	var result *engines.TranscriptionResult
	err := o.stage(ctx, func(stageCtx context.Context) error {
		o.engineMu.Lock()
		defer o.engineMu.Unlock()
		var stageErr error
		result, stageErr = o.transcriber.Transcribe(stageCtx, path)
		return stageErr
	})
	return result, err
}

// stage runs fn under the per-stage deadline. A deadline hit surfaces as a
// timeout error; job cancellation passes through unchanged.
func (o *Orchestrator) stage(ctx context.Context, fn func(context.Context) error) error {
	stageCtx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()

	err := fn(stageCtx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeTimeout,
			"stage exceeded %s deadline", o.stageTimeout)
	}
	if ctx.Err() != nil {
		return context.Canceled
	}
	return err
}

func (o *Orchestrator) broadcast(job ingest.Job, step string, percent int) {
	o.broadcaster.Progress(job.RecordingID, job.Filename, step, percent)
}

// buildStats aggregates the classifier's per-label signals.
func buildStats(labeled []labeledSegment) []classifier.Stats {
	byLabel := make(map[string]*classifier.Stats)
	order := []string{}
	for _, ls := range labeled {
		s, ok := byLabel[ls.Label]
		if !ok {
			s = &classifier.Stats{Label: ls.Label, FirstSeen: ls.Segment.Start}
			byLabel[ls.Label] = s
			order = append(order, ls.Label)
		}
		s.Texts = append(s.Texts, ls.Segment.Text)
		s.TotalTime += ls.Segment.End - ls.Segment.Start
		s.UtteranceCount++
		if ls.Segment.Start < s.FirstSeen {
			s.FirstSeen = ls.Segment.Start
		}
	}

	stats := make([]classifier.Stats, 0, len(byLabel))
	for _, label := range order {
		stats = append(stats, *byLabel[label])
	}
	return stats
}

// renderFullText joins segments into a readable transcript with one
// role-prefixed line per utterance.
func renderFullText(segments []models.Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("[")
		b.WriteString(rolePrefix(seg))
		b.WriteString("] ")
		b.WriteString(seg.Text)
	}
	return b.String()
}

func rolePrefix(seg models.Segment) string {
	switch seg.Role {
	case models.RoleAgent:
		return "Agent"
	case models.RoleCustomer:
		return "Customer"
	default:
		if seg.SpeakerLabel != "" {
			return "Speaker " + seg.SpeakerLabel
		}
		return "Unknown"
	}
}
