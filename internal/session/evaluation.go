package session

import (
	"context"
	"strings"

	"github.com/andywalner/pa-mmi-mock-interviewer/pkg/model"
)

// maybeEvaluateLocked fires the evaluation exactly once, and only when the
// session is complete and every recorded response has canonical text. Callers
// hold m.mu. Both Complete and a late ApplyTranscription call through here,
// so whichever condition is satisfied last triggers the run.
func (m *Machine) maybeEvaluateLocked() {
	if m.evaluator == nil || !m.sess.IsComplete || m.evaluating || m.evaluation != nil {
		return
	}
	// Every station must have a recorded response with canonical text. A
	// nil slot can appear when a completed interview is resumed and one of
	// its response rows never landed remotely; evaluating a subset would
	// misnumber the stations, so the gate stays closed.
	responses := make([]model.StationResponse, 0, len(m.sess.Responses))
	for _, r := range m.sess.Responses {
		if r == nil {
			return
		}
		if r.Transcription.Status == model.TranscriptionPending {
			return
		}
		if strings.TrimSpace(r.ResponseText) == "" {
			return
		}
		responses = append(responses, *r)
	}
	if len(responses) == 0 {
		return
	}

	m.evaluating = true
	m.evalErr = ""
	go m.runEvaluation(m.sess.SchoolName, m.sess.RemoteInterviewID, responses)
}

func (m *Machine) runEvaluation(schoolName, remoteID string, responses []model.StationResponse) {
	ctx, cancel := context.WithTimeout(context.Background(), m.evalTimeout)
	defer cancel()

	ev, err := m.evaluator.Evaluate(ctx, schoolName, responses)

	m.mu.Lock()
	m.evaluating = false
	if err != nil {
		m.evalErr = err.Error()
		m.mu.Unlock()
		m.log.Errorw("evaluation failed", "session", m.key, "err", err)
		return
	}
	m.evaluation = &ev
	m.evalErr = ""
	m.mu.Unlock()

	m.log.Infow("evaluation generated",
		"session", m.key,
		"model", ev.Model,
		"input_tokens", ev.InputTokens,
		"output_tokens", ev.OutputTokens,
		"estimated_cost_usd", ev.EstimatedCostUSD)

	// Persisting the feedback is best-effort; a store failure never
	// invalidates feedback already shown to the user.
	if m.gateway != nil && remoteID != "" {
		wctx, wcancel := context.WithTimeout(context.Background(), remoteWriteTimeout)
		defer wcancel()
		if err := m.gateway.SaveEvaluation(wctx, remoteID, ev); err != nil {
			m.log.Warnw("evaluation save failed", "session", m.key, "err", err)
		}
	}
}

// RetryEvaluation clears a failed run and re-arms the trigger.
func (m *Machine) RetryEvaluation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.evaluating || m.evaluation != nil {
		return
	}
	m.evalErr = ""
	m.maybeEvaluateLocked()
}

// EvaluationStatus reports where the feedback pipeline stands so the caller
// can distinguish "still transcribing" from "generating" from "stuck".
func (m *Machine) EvaluationStatus() EvaluationStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.sess.IsComplete {
		return EvaluationStatus{Phase: EvalNotReady}
	}
	if m.evaluation != nil {
		ev := *m.evaluation
		return EvaluationStatus{Phase: EvalReady, Evaluation: &ev}
	}
	if m.evaluating {
		return EvaluationStatus{Phase: EvalGenerating}
	}

	var pending, blocked []int
	for i, r := range m.sess.Responses {
		switch {
		case r == nil:
			blocked = append(blocked, i)
		case r.Transcription.Status == model.TranscriptionPending:
			pending = append(pending, i)
		case strings.TrimSpace(r.ResponseText) == "":
			blocked = append(blocked, i)
		}
	}
	if len(pending) > 0 {
		return EvaluationStatus{Phase: EvalTranscribing, PendingStations: pending}
	}
	if len(blocked) > 0 {
		return EvaluationStatus{Phase: EvalBlocked, BlockedStations: blocked}
	}
	if m.evalErr != "" {
		return EvaluationStatus{Phase: EvalFailed, Error: m.evalErr}
	}
	return EvaluationStatus{Phase: EvalGenerating}
}
