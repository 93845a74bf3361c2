package session

import (
	"context"

	"github.com/andywalner/pa-mmi-mock-interviewer/pkg/model"
)

// PersistenceGateway is the remote relational store. Every call can fail; the
// machine treats failures of fire-and-forget writes as non-fatal and keeps
// going in local-only mode. Only LoadInterview failures abort their caller.
type PersistenceGateway interface {
	CreateInterview(ctx context.Context, userID, interviewTypeID, schoolName string) (model.CreatedInterview, error)
	UpsertResponse(ctx context.Context, interviewID string, stationNumber int, questionID string, up model.ResponseUpsert) error
	SetCurrentStation(ctx context.Context, interviewID string, index int) error
	CompleteInterview(ctx context.Context, interviewID string) error
	LoadInterview(ctx context.Context, interviewID string) (model.StoredInterview, error)
	SaveEvaluation(ctx context.Context, interviewID string, ev model.Evaluation) error
}

// Transcriber turns an audio payload into best-effort text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Evaluator produces feedback for a completed set of station responses as a
// single atomic call.
type Evaluator interface {
	Evaluate(ctx context.Context, schoolName string, responses []model.StationResponse) (model.Evaluation, error)
}

// SnapshotStore is the local durable fallback. Snapshots handed to it never
// contain audio payloads.
type SnapshotStore interface {
	Save(ctx context.Context, key string, sess model.InterviewSession) error
	Load(ctx context.Context, key string) (model.InterviewSession, bool, error)
	Delete(ctx context.Context, key string) error
}

// Input is the mode-tagged pending answer for the current station: exactly
// one of text or audio is authoritative.
type Input interface {
	isInput()
}

type TextInput struct {
	Text string
}

func (TextInput) isInput() {}

type AudioInput struct {
	Payload         []byte
	MIMEType        string
	DurationSeconds int
	// Recording reports that the client is still capturing; a live,
	// unfinished recording never satisfies advance.
	Recording bool
}

func (AudioInput) isInput() {}

type EvaluationPhase string

const (
	// EvalNotReady: the session is not complete yet.
	EvalNotReady EvaluationPhase = "in_progress"
	// EvalTranscribing: complete, but transcripts are still pending.
	EvalTranscribing EvaluationPhase = "transcribing"
	// EvalBlocked: complete, but some stations have no canonical text
	// (failed transcription or never answered); auto-submission is held.
	EvalBlocked EvaluationPhase = "blocked"
	// EvalGenerating: the evaluation request is in flight.
	EvalGenerating EvaluationPhase = "generating"
	// EvalFailed: the evaluation request errored; retry is possible.
	EvalFailed EvaluationPhase = "failed"
	// EvalReady: feedback is available.
	EvalReady EvaluationPhase = "ready"
)

// EvaluationStatus is the read model for the feedback view.
type EvaluationStatus struct {
	Phase           EvaluationPhase   `json:"phase"`
	PendingStations []int             `json:"pending_stations,omitempty"`
	BlockedStations []int             `json:"blocked_stations,omitempty"`
	Error           string            `json:"error,omitempty"`
	Evaluation      *model.Evaluation `json:"evaluation,omitempty"`
}
