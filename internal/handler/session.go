package handler

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/andywalner/pa-mmi-mock-interviewer/internal/repository"
	"github.com/andywalner/pa-mmi-mock-interviewer/internal/session"
	"github.com/andywalner/pa-mmi-mock-interviewer/pkg/model"
	"github.com/andywalner/pa-mmi-mock-interviewer/pkg/response"
)

// maxAudioBytes caps one station recording upload.
const maxAudioBytes = 25 << 20

type startSessionReq struct {
	SchoolName string `json:"school_name"`
}

type resumeSessionReq struct {
	InterviewID string `json:"interview_id" binding:"required,uuid"`
}

type textResponseReq struct {
	Text             string `json:"text" binding:"required"`
	TimeSpentSeconds int    `json:"time_spent_seconds" binding:"gte=0"`
}

type advanceRes struct {
	Completed           bool `json:"completed"`
	CurrentStationIndex int  `json:"current_station_index"`
}

type stationView struct {
	Ordinal          int    `json:"ordinal"`
	Prompt           string `json:"prompt"`
	TimeLimitSeconds int    `json:"time_limit_seconds"`
}

type responseSummary struct {
	Ordinal             int                       `json:"ordinal"`
	Answered            bool                      `json:"answered"`
	HasAudio            bool                      `json:"has_audio"`
	TimeSpentSeconds    int                       `json:"time_spent_seconds"`
	TranscriptionStatus model.TranscriptionStatus `json:"transcription_status,omitempty"`
}

type sessionView struct {
	SessionID           string            `json:"session_id"`
	SchoolName          string            `json:"school_name,omitempty"`
	CurrentStationIndex int               `json:"current_station_index"`
	StationCount        int               `json:"station_count"`
	IsComplete          bool              `json:"is_complete"`
	CurrentStation      *stationView      `json:"current_station,omitempty"`
	Responses           []responseSummary `json:"responses"`
}

func buildSessionView(key string, ctrl *session.Controller) sessionView {
	m := ctrl.Machine()
	sess := m.Snapshot()
	stations := m.Stations()

	view := sessionView{
		SessionID:           key,
		SchoolName:          sess.SchoolName,
		CurrentStationIndex: sess.CurrentStationIndex,
		StationCount:        len(stations),
		IsComplete:          sess.IsComplete,
	}
	if !sess.IsComplete && sess.CurrentStationIndex < len(stations) {
		s := stations[sess.CurrentStationIndex]
		view.CurrentStation = &stationView{
			Ordinal:          s.Ordinal,
			Prompt:           s.Prompt,
			TimeLimitSeconds: s.TimeLimitSeconds,
		}
	}
	for i, r := range sess.Responses {
		if r == nil {
			continue
		}
		view.Responses = append(view.Responses, responseSummary{
			Ordinal:             i,
			Answered:            true,
			HasAudio:            r.AudioDurationSeconds > 0,
			TimeSpentSeconds:    r.TimeSpentSeconds,
			TranscriptionStatus: r.Transcription.Status,
		})
	}
	return view
}

// StartSession begins a fresh interview session for the user.
func (h *Handler) StartSession(c *gin.Context) {
	claims := h.claimsFromContext(c)
	if claims == nil {
		response.Unauthorized(c, "")
		return
	}

	var req startSessionReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	key, ctrl := h.Registry.Create(claims.UserID, req.SchoolName)
	response.Created(c, buildSessionView(key, ctrl))
}

// ResumeSession rebuilds a session from a stored interview.
func (h *Handler) ResumeSession(c *gin.Context) {
	claims := h.claimsFromContext(c)
	if claims == nil {
		response.Unauthorized(c, "")
		return
	}

	var req resumeSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	key, ctrl, err := h.Registry.Resume(c.Request.Context(), claims.UserID, req.InterviewID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotOwner):
			response.NotFound(c, "interview not found")
		case errors.Is(err, repository.ErrNotFound):
			response.NotFound(c, "interview not found")
		default:
			h.Logger.Sugar().Errorw("resume failed", "interview", req.InterviewID, "err", err)
			response.BadGateway(c, "could not load interview")
		}
		return
	}
	response.OK(c, buildSessionView(key, ctrl))
}

// sessionForRequest resolves the :id session and checks ownership.
func (h *Handler) sessionForRequest(c *gin.Context) (string, *session.Controller, bool) {
	claims := h.claimsFromContext(c)
	if claims == nil {
		response.Unauthorized(c, "")
		return "", nil, false
	}

	key := c.Param("id")
	ctrl, err := h.Registry.Get(c.Request.Context(), key)
	if err != nil {
		response.NotFound(c, "session not found")
		return "", nil, false
	}
	if ctrl.Machine().UserID() != claims.UserID {
		response.NotFound(c, "session not found")
		return "", nil, false
	}
	return key, ctrl, true
}

// GetSession returns the current state of a live session.
func (h *Handler) GetSession(c *gin.Context) {
	key, ctrl, ok := h.sessionForRequest(c)
	if !ok {
		return
	}
	response.OK(c, buildSessionView(key, ctrl))
}

// SubmitTextResponse records a typed answer for the current station and
// advances.
func (h *Handler) SubmitTextResponse(c *gin.Context) {
	_, ctrl, ok := h.sessionForRequest(c)
	if !ok {
		return
	}

	var req textResponseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	completed, err := ctrl.Advance(session.TextInput{Text: req.Text}, req.TimeSpentSeconds)
	if err != nil {
		h.advanceError(c, err)
		return
	}
	response.OK(c, advanceRes{
		Completed:           completed,
		CurrentStationIndex: ctrl.Machine().CurrentStationIndex(),
	})
}

// SubmitAudioResponse records a finished recording for the current station
// and advances; transcription runs in the background.
func (h *Handler) SubmitAudioResponse(c *gin.Context) {
	_, ctrl, ok := h.sessionForRequest(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		response.BadRequest(c, "audio file is required")
		return
	}
	defer file.Close()

	if header.Size > maxAudioBytes {
		response.BadRequest(c, "audio file too large")
		return
	}
	payload, err := io.ReadAll(io.LimitReader(file, maxAudioBytes+1))
	if err != nil {
		h.Logger.Sugar().Errorw("audio read failed", "err", err)
		response.BadRequest(c, "could not read audio file")
		return
	}
	if len(payload) > maxAudioBytes {
		response.BadRequest(c, "audio file too large")
		return
	}

	durationSeconds, _ := strconv.Atoi(c.PostForm("duration_seconds"))
	timeSpentSeconds, _ := strconv.Atoi(c.PostForm("time_spent_seconds"))

	completed, err := ctrl.Advance(session.AudioInput{
		Payload:         payload,
		MIMEType:        header.Header.Get("Content-Type"),
		DurationSeconds: durationSeconds,
	}, timeSpentSeconds)
	if err != nil {
		h.advanceError(c, err)
		return
	}
	response.OK(c, advanceRes{
		Completed:           completed,
		CurrentStationIndex: ctrl.Machine().CurrentStationIndex(),
	})
}

func (h *Handler) advanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrIncompleteResponse):
		response.BadRequest(c, err.Error())
	case errors.Is(err, session.ErrInterviewComplete):
		response.Conflict(c, err.Error())
	case errors.Is(err, session.ErrNoStation):
		response.Conflict(c, err.Error())
	default:
		h.Logger.Sugar().Errorw("advance failed", "err", err)
		response.InternalError(c, "could not record response")
	}
}

// GetFeedback reports the evaluation pipeline state, including the feedback
// itself once ready.
func (h *Handler) GetFeedback(c *gin.Context) {
	_, ctrl, ok := h.sessionForRequest(c)
	if !ok {
		return
	}
	response.OK(c, ctrl.Machine().EvaluationStatus())
}

// RetryFeedback re-arms a failed evaluation.
func (h *Handler) RetryFeedback(c *gin.Context) {
	_, ctrl, ok := h.sessionForRequest(c)
	if !ok {
		return
	}
	ctrl.Machine().RetryEvaluation()
	response.OK(c, ctrl.Machine().EvaluationStatus())
}

// DeleteSession discards a live session and its local snapshot.
func (h *Handler) DeleteSession(c *gin.Context) {
	key, _, ok := h.sessionForRequest(c)
	if !ok {
		return
	}
	h.Registry.Remove(c.Request.Context(), key)
	response.NoContent(c)
}
