package engines

import "context"

// Word is a single recognized word with its model probability.
type Word struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability"`
}

// TranscriptionSegment is one timestamped chunk of recognized text.
type TranscriptionSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// TranscriptionResult bundles the segments of one engine call.
type TranscriptionResult struct {
	Segments []TranscriptionSegment `json:"segments"`
	Language string                 `json:"language"`
	Duration float64                `json:"duration"`
	Model    string                 `json:"model"`
}

// DiarizationTurn is one speaker-attributed time interval.
type DiarizationTurn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// DiarizationResult is the speaker timeline for one recording.
type DiarizationResult struct {
	Turns       []DiarizationTurn `json:"turns"`
	NumSpeakers int               `json:"num_speakers"`
}

// TranscriptionEngine converts audio into timestamped text segments.
type TranscriptionEngine interface {
	Transcribe(ctx context.Context, audioPath string) (*TranscriptionResult, error)
}

// DiarizationEngine labels speaker turns in mono audio. numSpeakers is the
// target count; the engine may return more or fewer.
type DiarizationEngine interface {
	Diarize(ctx context.Context, audioPath string, numSpeakers int) (*DiarizationResult, error)
}

// AvgWordConfidence returns the mean word probability of a segment, or nil
// when the engine reported no word-level data.
func AvgWordConfidence(seg TranscriptionSegment) *float64 {
	if len(seg.Words) == 0 {
		return nil
	}
	var sum float64
	for _, w := range seg.Words {
		sum += w.Probability
	}
	avg := sum / float64(len(seg.Words))
	return &avg
}
