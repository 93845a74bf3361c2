package model

import "time"

type InterviewStatus string

const (
	StatusInProgress InterviewStatus = "in_progress"
	StatusCompleted  InterviewStatus = "completed"
)

type TranscriptionStatus string

const (
	TranscriptionNone      TranscriptionStatus = ""
	TranscriptionPending   TranscriptionStatus = "pending"
	TranscriptionCompleted TranscriptionStatus = "completed"
	TranscriptionError     TranscriptionStatus = "error"
)

// Station is one catalog entry. Loaded once at startup, never mutated.
type Station struct {
	ID               string `json:"id" yaml:"id"`
	Ordinal          int    `json:"ordinal" yaml:"-"`
	Prompt           string `json:"prompt" yaml:"prompt"`
	TimeLimitSeconds int    `json:"time_limit_seconds" yaml:"time_limit_seconds"`
}

// Transcription tracks the async transcript lifecycle of an audio response.
type Transcription struct {
	Status       TranscriptionStatus `json:"status"`
	Text         string              `json:"text,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`
}

// StationResponse is one recorded answer, indexed by station ordinal.
// ResponseText is the canonical answer: in audio mode it stays empty until a
// transcript is promoted into it. The raw audio payload is never serialized,
// neither locally nor remotely.
type StationResponse struct {
	StationID            string        `json:"station_id"`
	Prompt               string        `json:"prompt"`
	ResponseText         string        `json:"response_text"`
	AudioPayload         []byte        `json:"-"`
	AudioMIMEType        string        `json:"-"`
	AudioDurationSeconds int           `json:"audio_duration_seconds,omitempty"`
	TimeSpentSeconds     int           `json:"time_spent_seconds"`
	Transcription        Transcription `json:"transcription"`
}

func (r *StationResponse) HasAudio() bool {
	return r != nil && len(r.AudioPayload) > 0
}

// InterviewSession is the root aggregate for one interview attempt.
// Responses is ordinal-aligned and sparse: nil means the station has not been
// attempted yet.
type InterviewSession struct {
	UserID              string             `json:"user_id,omitempty"`
	SchoolName          string             `json:"school_name,omitempty"`
	CurrentStationIndex int                `json:"current_station_index"`
	Responses           []*StationResponse `json:"responses"`
	IsComplete          bool               `json:"is_complete"`
	RemoteInterviewID   string             `json:"remote_interview_id,omitempty"`
	RemoteQuestionIDs   []string           `json:"remote_question_ids,omitempty"`
}

// Evaluation is the LLM feedback produced for a completed session.
type Evaluation struct {
	FeedbackText     string    `json:"feedback_text"`
	Model            string    `json:"model"`
	InputTokens      int       `json:"input_tokens"`
	OutputTokens     int       `json:"output_tokens"`
	EstimatedCostUSD float64   `json:"estimated_cost_usd"`
	CreatedAt        time.Time `json:"created_at"`
}

// CreatedInterview is what the persistence gateway returns when a remote
// interview record is created: the record id plus the ordinal-aligned
// question ids needed for subsequent response upserts.
type CreatedInterview struct {
	InterviewID string
	QuestionIDs []string
}

// ResponseUpsert carries the remotely persisted subset of a StationResponse.
type ResponseUpsert struct {
	ResponseText         string
	AudioDurationSeconds int
	TimeSpentSeconds     int
	TranscriptionStatus  TranscriptionStatus
	TranscriptionError   string
}

// InterviewRecord is a stored interview row.
type InterviewRecord struct {
	ID                  string          `json:"id"`
	UserID              string          `json:"user_id"`
	Status              InterviewStatus `json:"status"`
	SchoolName          string          `json:"school_name,omitempty"`
	CurrentStationIndex int             `json:"current_station_index"`
	StartedAt           *time.Time      `json:"started_at,omitempty"`
	CompletedAt         *time.Time      `json:"completed_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

// ResponseRecord is a stored response row. StationNumber is 1-based in the
// store; ordinals in memory are 0-based.
type ResponseRecord struct {
	StationNumber        int                 `json:"station_number"`
	QuestionID           string              `json:"question_id"`
	ResponseText         string              `json:"response_text"`
	AudioDurationSeconds int                 `json:"audio_duration_seconds"`
	TimeSpentSeconds     int                 `json:"time_spent_seconds"`
	TranscriptionStatus  TranscriptionStatus `json:"transcription_status,omitempty"`
	TranscriptionError   string              `json:"transcription_error,omitempty"`
}

// StoredInterview is an interview plus its responses and, if present, its
// evaluation, as loaded for resume and for the history detail view.
type StoredInterview struct {
	Interview   InterviewRecord  `json:"interview"`
	QuestionIDs []string         `json:"-"`
	Responses   []ResponseRecord `json:"responses"`
	Evaluation  *Evaluation      `json:"evaluation,omitempty"`
}
