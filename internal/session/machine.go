package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/andywalner/pa-mmi-mock-interviewer/pkg/model"
)

const (
	remoteWriteTimeout   = 10 * time.Second
	snapshotWriteTimeout = 2 * time.Second
	defaultEvalTimeout   = 3 * time.Minute
)

// Params configures one Machine.
type Params struct {
	Key             string
	UserID          string
	InterviewTypeID string
	SchoolName      string
	Stations        []model.Station
	Gateway         PersistenceGateway
	Evaluator       Evaluator
	Snapshots       SnapshotStore
	EvalTimeout     time.Duration
	Logger          *zap.SugaredLogger
}

// Machine is the single in-process owner of one InterviewSession. All
// mutations go through its operation set; every operation is a synchronous
// in-memory transition, and remote synchronization happens in fire-and-forget
// goroutines that never block or fail the transition. The local session is
// the immediate source of truth; the remote store trails it.
type Machine struct {
	key             string
	userID          string
	interviewTypeID string
	stations        []model.Station
	gateway         PersistenceGateway
	evaluator       Evaluator
	snapshots       SnapshotStore
	evalTimeout     time.Duration
	log             *zap.SugaredLogger

	mu         sync.Mutex
	sess       model.InterviewSession
	evaluating bool
	evaluation *model.Evaluation
	evalErr    string
}

func NewMachine(p Params) *Machine {
	log := p.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	evalTimeout := p.EvalTimeout
	if evalTimeout <= 0 {
		evalTimeout = defaultEvalTimeout
	}

	m := &Machine{
		key:             p.Key,
		userID:          p.UserID,
		interviewTypeID: p.InterviewTypeID,
		stations:        p.Stations,
		gateway:         p.Gateway,
		evaluator:       p.Evaluator,
		snapshots:       p.Snapshots,
		evalTimeout:     evalTimeout,
		log:             log,
	}
	m.sess = m.freshSession(p.SchoolName)
	return m
}

func (m *Machine) freshSession(schoolName string) model.InterviewSession {
	return model.InterviewSession{
		UserID:     m.userID,
		SchoolName: schoolName,
		Responses:  make([]*model.StationResponse, len(m.stations)),
	}
}

func (m *Machine) Key() string    { return m.key }
func (m *Machine) UserID() string { return m.userID }

func (m *Machine) StationCount() int { return len(m.stations) }

func (m *Machine) Stations() []model.Station {
	out := make([]model.Station, len(m.stations))
	copy(out, m.stations)
	return out
}

func (m *Machine) CurrentStationIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.CurrentStationIndex
}

func (m *Machine) IsComplete() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.IsComplete
}

// Start resets to a fresh session at ordinal 0. If an authenticated user is
// present, creation of the backing remote record is requested in the
// background; the session proceeds local-only until (and unless) it succeeds.
// The UI is never blocked by the external store's availability.
func (m *Machine) Start() {
	m.mu.Lock()
	schoolName := m.sess.SchoolName
	m.sess = m.freshSession(schoolName)
	m.evaluating = false
	m.evaluation = nil
	m.evalErr = ""
	m.persistLocked()
	m.mu.Unlock()

	if m.gateway != nil && m.userID != "" {
		go m.createRemote()
	}
}

func (m *Machine) createRemote() {
	ctx, cancel := context.WithTimeout(context.Background(), remoteWriteTimeout)
	defer cancel()

	m.mu.Lock()
	schoolName := m.sess.SchoolName
	m.mu.Unlock()

	created, err := m.gateway.CreateInterview(ctx, m.userID, m.interviewTypeID, schoolName)
	if err != nil {
		m.log.Warnw("remote interview create failed, continuing local-only", "session", m.key, "err", err)
		return
	}

	type flush struct {
		ordinal    int
		questionID string
		up         model.ResponseUpsert
	}

	m.mu.Lock()
	if m.sess.RemoteInterviewID != "" {
		m.mu.Unlock()
		return
	}
	m.sess.RemoteInterviewID = created.InterviewID
	m.sess.RemoteQuestionIDs = created.QuestionIDs

	// The user may have answered stations while the create was in flight;
	// bring the remote record up to date with what exists locally.
	var flushes []flush
	for i, r := range m.sess.Responses {
		if r == nil {
			continue
		}
		flushes = append(flushes, flush{ordinal: i, questionID: m.questionIDLocked(i), up: upsertFor(r)})
	}
	idx := m.sess.CurrentStationIndex
	complete := m.sess.IsComplete
	m.persistLocked()
	m.mu.Unlock()

	for _, f := range flushes {
		m.writeResponse(created.InterviewID, f.ordinal, f.questionID, f.up)
	}
	if idx > 0 {
		m.writeStation(created.InterviewID, idx)
	}
	if complete {
		m.writeComplete(created.InterviewID)
	}
}

// Resume reconstructs the session from a stored interview and its responses.
// Unlike the fire-and-forget writes, this is awaited: a load failure aborts
// the resume and propagates to the caller, which decides whether to fall
// back to a fresh session.
func (m *Machine) Resume(ctx context.Context, remoteID string) error {
	if m.gateway == nil {
		return ErrNoGateway
	}

	stored, err := m.gateway.LoadInterview(ctx, remoteID)
	if err != nil {
		return fmt.Errorf("load interview: %w", err)
	}
	if m.userID != "" && stored.Interview.UserID != m.userID {
		return ErrNotOwner
	}

	m.mu.Lock()
	sess := m.freshSession(stored.Interview.SchoolName)
	sess.RemoteInterviewID = stored.Interview.ID
	sess.RemoteQuestionIDs = stored.QuestionIDs
	sess.IsComplete = stored.Interview.Status == model.StatusCompleted

	idx := stored.Interview.CurrentStationIndex
	if idx < 0 {
		idx = 0
	}
	if idx > len(m.stations) {
		idx = len(m.stations)
	}
	sess.CurrentStationIndex = idx

	var reconciled []int
	for _, row := range stored.Responses {
		ordinal := row.StationNumber - 1
		if ordinal < 0 || ordinal >= len(m.stations) {
			m.log.Warnw("stored response outside catalog, skipping", "session", m.key, "station_number", row.StationNumber)
			continue
		}

		tr := model.Transcription{
			Status:       row.TranscriptionStatus,
			ErrorMessage: row.TranscriptionError,
		}
		switch tr.Status {
		case model.TranscriptionPending:
			// A prior process died mid-transcription and the source audio
			// is not recoverable after a reload: fail fast, never retry.
			tr.Status = model.TranscriptionError
			tr.ErrorMessage = "transcription interrupted before completion"
			reconciled = append(reconciled, ordinal)
		case model.TranscriptionCompleted:
			tr.Text = row.ResponseText
		}

		sess.Responses[ordinal] = &model.StationResponse{
			StationID:            m.stations[ordinal].ID,
			Prompt:               m.stations[ordinal].Prompt,
			ResponseText:         row.ResponseText,
			AudioDurationSeconds: row.AudioDurationSeconds,
			TimeSpentSeconds:     row.TimeSpentSeconds,
			Transcription:        tr,
		}
	}

	m.sess = sess
	m.evaluating = false
	m.evalErr = ""
	m.evaluation = nil
	if stored.Evaluation != nil {
		ev := *stored.Evaluation
		m.evaluation = &ev
	}

	type write struct {
		ordinal    int
		questionID string
		up         model.ResponseUpsert
	}
	var writes []write
	for _, ordinal := range reconciled {
		writes = append(writes, write{ordinal, m.questionIDLocked(ordinal), upsertFor(m.sess.Responses[ordinal])})
	}
	m.persistLocked()
	m.mu.Unlock()

	for _, w := range writes {
		go m.writeResponse(remoteID, w.ordinal, w.questionID, w.up)
	}
	return nil
}

// Hydrate replaces the session with a snapshot written by a previous
// process. Audio payloads were stripped before the snapshot was saved, so a
// transcription still pending at the time of the crash is failed the same
// way Resume fails it.
func (m *Machine) Hydrate(sess model.InterviewSession) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(sess.Responses) < len(m.stations) {
		padded := make([]*model.StationResponse, len(m.stations))
		copy(padded, sess.Responses)
		sess.Responses = padded
	}
	if sess.CurrentStationIndex < 0 {
		sess.CurrentStationIndex = 0
	}
	if sess.CurrentStationIndex > len(m.stations) {
		sess.CurrentStationIndex = len(m.stations)
	}
	for _, r := range sess.Responses {
		if r != nil && r.Transcription.Status == model.TranscriptionPending {
			r.Transcription = model.Transcription{
				Status:       model.TranscriptionError,
				ErrorMessage: "transcription interrupted before completion",
			}
		}
	}

	m.sess = sess
	m.evaluating = false
	m.evaluation = nil
	m.evalErr = ""
	m.persistLocked()
}

// RecordTextResponse writes the response at the current ordinal and syncs it
// remotely in the background.
func (m *Machine) RecordTextResponse(text string, timeSpentSeconds int) error {
	m.mu.Lock()
	if m.sess.IsComplete {
		m.mu.Unlock()
		return ErrInterviewComplete
	}
	ordinal := m.sess.CurrentStationIndex
	if ordinal >= len(m.stations) {
		m.mu.Unlock()
		return ErrNoStation
	}

	resp := &model.StationResponse{
		StationID:        m.stations[ordinal].ID,
		Prompt:           m.stations[ordinal].Prompt,
		ResponseText:     text,
		TimeSpentSeconds: timeSpentSeconds,
	}
	m.sess.Responses[ordinal] = resp
	m.persistLocked()
	remoteID := m.sess.RemoteInterviewID
	questionID := m.questionIDLocked(ordinal)
	up := upsertFor(resp)
	m.mu.Unlock()

	if remoteID != "" {
		go m.writeResponse(remoteID, ordinal, questionID, up)
	}
	return nil
}

// RecordAudioResponse writes an audio response at the current ordinal. The
// canonical text stays empty until a transcript is promoted into it, so
// nothing is written remotely yet. This must complete before a transcription
// request for the ordinal is issued.
func (m *Machine) RecordAudioResponse(payload []byte, mimeType string, durationSeconds, timeSpentSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess.IsComplete {
		return ErrInterviewComplete
	}
	ordinal := m.sess.CurrentStationIndex
	if ordinal >= len(m.stations) {
		return ErrNoStation
	}

	m.sess.Responses[ordinal] = &model.StationResponse{
		StationID:            m.stations[ordinal].ID,
		Prompt:               m.stations[ordinal].Prompt,
		ResponseText:         "",
		AudioPayload:         payload,
		AudioMIMEType:        mimeType,
		AudioDurationSeconds: durationSeconds,
		TimeSpentSeconds:     timeSpentSeconds,
	}
	m.persistLocked()
	return nil
}

// MarkTranscriptionPending flags the ordinal's response before the
// transcription request is issued.
func (m *Machine) MarkTranscriptionPending(ordinal int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp := m.responseLocked(ordinal)
	if resp == nil {
		return ErrNoResponse
	}
	resp.Transcription = model.Transcription{Status: model.TranscriptionPending}
	m.persistLocked()
	return nil
}

// ApplyTranscription applies a transcription result to the ordinal captured
// when the request was issued, never to the current station: the user may
// have advanced, or even submitted, while the request was in flight. On
// success the transcript becomes the canonical response text; on failure the
// response text is left untouched.
func (m *Machine) ApplyTranscription(ordinal int, text string, cause error) error {
	m.mu.Lock()
	resp := m.responseLocked(ordinal)
	if resp == nil {
		m.mu.Unlock()
		return ErrNoResponse
	}

	if cause == nil && strings.TrimSpace(text) == "" {
		cause = errors.New("empty transcript")
	}
	if cause != nil {
		resp.Transcription = model.Transcription{
			Status:       model.TranscriptionError,
			ErrorMessage: cause.Error(),
		}
		m.persistLocked()
		m.mu.Unlock()
		return nil
	}

	resp.Transcription = model.Transcription{
		Status: model.TranscriptionCompleted,
		Text:   text,
	}
	resp.ResponseText = text
	m.persistLocked()
	remoteID := m.sess.RemoteInterviewID
	questionID := m.questionIDLocked(ordinal)
	up := upsertFor(resp)
	m.maybeEvaluateLocked()
	m.mu.Unlock()

	if remoteID != "" {
		go m.writeResponse(remoteID, ordinal, questionID, up)
	}
	return nil
}

// Advance moves to the next station, clamped at the station count, and
// records the new ordinal remotely so a resumed session lands on the right
// station. It does not wait for in-flight transcriptions.
func (m *Machine) Advance() {
	m.mu.Lock()
	if m.sess.CurrentStationIndex < len(m.stations) {
		m.sess.CurrentStationIndex++
	}
	idx := m.sess.CurrentStationIndex
	remoteID := m.sess.RemoteInterviewID
	m.persistLocked()
	m.mu.Unlock()

	if remoteID != "" {
		go m.writeStation(remoteID, idx)
	}
}

// Complete marks the session complete. The transition is one-way and
// idempotent: a second call changes nothing and issues no duplicate remote
// write.
func (m *Machine) Complete() {
	m.mu.Lock()
	if m.sess.IsComplete {
		m.mu.Unlock()
		return
	}
	m.sess.IsComplete = true
	remoteID := m.sess.RemoteInterviewID
	m.persistLocked()
	m.maybeEvaluateLocked()
	m.mu.Unlock()

	if remoteID != "" {
		go m.writeComplete(remoteID)
	}
}

// Reset discards the session and clears the local durable snapshot. Distinct
// from completion; any remote record is left as it is.
func (m *Machine) Reset(ctx context.Context) {
	m.mu.Lock()
	m.sess = m.freshSession("")
	m.evaluating = false
	m.evaluation = nil
	m.evalErr = ""
	m.mu.Unlock()

	if m.snapshots != nil {
		if err := m.snapshots.Delete(ctx, m.key); err != nil {
			m.log.Warnw("snapshot delete failed", "session", m.key, "err", err)
		}
	}
}

// Snapshot returns a read-only copy of the current session. Audio payload
// bytes are shared, not copied; callers must not mutate them.
func (m *Machine) Snapshot() model.InterviewSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSession(m.sess, false)
}

// PendingTranscriptions counts responses still awaiting a transcript.
func (m *Machine) PendingTranscriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.sess.Responses {
		if r != nil && r.Transcription.Status == model.TranscriptionPending {
			n++
		}
	}
	return n
}

func (m *Machine) responseLocked(ordinal int) *model.StationResponse {
	if ordinal < 0 || ordinal >= len(m.sess.Responses) {
		return nil
	}
	return m.sess.Responses[ordinal]
}

func (m *Machine) questionIDLocked(ordinal int) string {
	if ordinal < 0 || ordinal >= len(m.sess.RemoteQuestionIDs) {
		return ""
	}
	return m.sess.RemoteQuestionIDs[ordinal]
}

// persistLocked writes the audio-stripped session through to the local
// fallback store. Best-effort: a failed write is logged, never surfaced.
func (m *Machine) persistLocked() {
	if m.snapshots == nil {
		return
	}
	snap := cloneSession(m.sess, true)
	ctx, cancel := context.WithTimeout(context.Background(), snapshotWriteTimeout)
	defer cancel()
	if err := m.snapshots.Save(ctx, m.key, snap); err != nil {
		m.log.Warnw("snapshot save failed", "session", m.key, "err", err)
	}
}

func (m *Machine) writeResponse(interviewID string, ordinal int, questionID string, up model.ResponseUpsert) {
	ctx, cancel := context.WithTimeout(context.Background(), remoteWriteTimeout)
	defer cancel()
	if err := m.gateway.UpsertResponse(ctx, interviewID, ordinal+1, questionID, up); err != nil {
		m.log.Warnw("remote response upsert failed", "session", m.key, "station", ordinal, "err", err)
	}
}

func (m *Machine) writeStation(interviewID string, index int) {
	ctx, cancel := context.WithTimeout(context.Background(), remoteWriteTimeout)
	defer cancel()
	if err := m.gateway.SetCurrentStation(ctx, interviewID, index); err != nil {
		m.log.Warnw("remote station update failed", "session", m.key, "index", index, "err", err)
	}
}

func (m *Machine) writeComplete(interviewID string) {
	ctx, cancel := context.WithTimeout(context.Background(), remoteWriteTimeout)
	defer cancel()
	if err := m.gateway.CompleteInterview(ctx, interviewID); err != nil {
		m.log.Warnw("remote complete failed", "session", m.key, "err", err)
	}
}

func upsertFor(r *model.StationResponse) model.ResponseUpsert {
	return model.ResponseUpsert{
		ResponseText:         r.ResponseText,
		AudioDurationSeconds: r.AudioDurationSeconds,
		TimeSpentSeconds:     r.TimeSpentSeconds,
		TranscriptionStatus:  r.Transcription.Status,
		TranscriptionError:   r.Transcription.ErrorMessage,
	}
}

func cloneSession(sess model.InterviewSession, stripAudio bool) model.InterviewSession {
	out := sess
	out.Responses = make([]*model.StationResponse, len(sess.Responses))
	for i, r := range sess.Responses {
		if r == nil {
			continue
		}
		c := *r
		if stripAudio {
			c.AudioPayload = nil
			c.AudioMIMEType = ""
		}
		out.Responses[i] = &c
	}
	if sess.RemoteQuestionIDs != nil {
		out.RemoteQuestionIDs = append([]string(nil), sess.RemoteQuestionIDs...)
	}
	return out
}
