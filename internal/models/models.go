package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// RecordingStatus is the lifecycle state of a recording.
type RecordingStatus string

const (
	StatusPending    RecordingStatus = "pending"
	StatusProcessing RecordingStatus = "processing"
	StatusDone       RecordingStatus = "done"
	StatusError      RecordingStatus = "error"
)

// SpeakerRole is the semantic classification of a speaker label.
type SpeakerRole string

const (
	RoleAgent    SpeakerRole = "agent"
	RoleCustomer SpeakerRole = "customer"
	RoleUnknown  SpeakerRole = "unknown"
)

// Stage is one discrete step of the processing pipeline.
type Stage string

const (
	StageAnalyzing    Stage = "analyzing"
	StageDiarizing    Stage = "diarizing"
	StageSplitting    Stage = "splitting"
	StageTranscribing Stage = "transcribing"
	StageClassifying  Stage = "classifying"
	StagePersisting   Stage = "persisting"
)

// Recording represents one ingested audio file and its processing lifecycle.
type Recording struct {
	gorm.Model
	Filename     string          `json:"filename" gorm:"not null"`
	Filepath     string          `json:"filepath" gorm:"uniqueIndex;not null"`
	Status       RecordingStatus `json:"status" gorm:"not null;default:'pending';index"`
	Duration     *float64        `json:"duration"` // seconds, nil until probed
	ErrorMessage string          `json:"error_message,omitempty" gorm:"type:text"`
	ProcessedAt  *time.Time      `json:"processed_at"`

	Transcript *Transcript `json:"transcript,omitempty" gorm:"foreignKey:RecordingID"`
	Segments   []Segment   `json:"segments,omitempty" gorm:"foreignKey:RecordingID"`
	Speakers   []Speaker   `json:"speakers,omitempty" gorm:"foreignKey:RecordingID"`
}

// TableName specifies the table name for GORM
func (Recording) TableName() string {
	return "recordings"
}

// CanTransitionTo reports whether moving to the target status is a legal
// lifecycle transition. done and error are terminal except for an explicit
// reprocess back to pending.
func (r *Recording) CanTransitionTo(target RecordingStatus) bool {
	switch r.Status {
	case StatusPending:
		return target == StatusProcessing
	case StatusProcessing:
		return target == StatusDone || target == StatusError || target == StatusPending
	case StatusDone, StatusError:
		return target == StatusPending
	default:
		return false
	}
}

// IsTerminal returns true once the recording reached done or error.
func (r *Recording) IsTerminal() bool {
	return r.Status == StatusDone || r.Status == StatusError
}

// Transcript is the one-to-one text result of a completed recording.
type Transcript struct {
	gorm.Model
	RecordingID uint   `json:"recording_id" gorm:"uniqueIndex;not null"`
	FullText    string `json:"full_text" gorm:"type:text"`
	Language    string `json:"language"`
	ModelUsed   string `json:"model_used"`
}

// TableName specifies the table name for GORM
func (Transcript) TableName() string {
	return "transcripts"
}

// Segment is one time-bounded, speaker-attributed utterance.
type Segment struct {
	gorm.Model
	RecordingID  uint        `json:"recording_id" gorm:"not null;index"`
	SpeakerLabel string      `json:"speaker_label"`
	Role         SpeakerRole `json:"role" gorm:"not null;default:'unknown'"`
	Text         string      `json:"text" gorm:"type:text;not null"`
	StartTime    float64     `json:"start_time" gorm:"not null"`
	EndTime      float64     `json:"end_time" gorm:"not null"`
	Confidence   *float64    `json:"confidence"`
}

// TableName specifies the table name for GORM
func (Segment) TableName() string {
	return "segments"
}

// Validate checks the segment time bounds.
func (s *Segment) Validate() error {
	if s.StartTime < 0 {
		return fmt.Errorf("segment start time %f is negative", s.StartTime)
	}
	if s.EndTime <= s.StartTime {
		return fmt.Errorf("segment end time %f is not after start time %f", s.EndTime, s.StartTime)
	}
	return nil
}

// Speaker binds a raw diarization/channel label to a role within one recording.
// Role is a property of the label: every segment carrying the label shares it.
type Speaker struct {
	gorm.Model
	RecordingID uint        `json:"recording_id" gorm:"not null;uniqueIndex:idx_speakers_recording_label"`
	Label       string      `json:"label" gorm:"not null;uniqueIndex:idx_speakers_recording_label"`
	Role        SpeakerRole `json:"role" gorm:"not null;default:'unknown'"`
}

// TableName specifies the table name for GORM
func (Speaker) TableName() string {
	return "speakers"
}

// Swapped returns the opposite role for agent/customer; unknown stays unknown.
func (r SpeakerRole) Swapped() SpeakerRole {
	switch r {
	case RoleAgent:
		return RoleCustomer
	case RoleCustomer:
		return RoleAgent
	default:
		return RoleUnknown
	}
}
