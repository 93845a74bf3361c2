package session

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTranscribeTimeout = 90 * time.Second

// Controller sits between the transport layer and a Machine: it validates
// input, sequences record-then-advance, and dispatches transcription against
// the ordinal captured at submission time.
type Controller struct {
	machine     *Machine
	transcriber Transcriber
	timeout     time.Duration
	log         *zap.SugaredLogger
}

func NewController(machine *Machine, transcriber Transcriber, timeout time.Duration, log *zap.SugaredLogger) *Controller {
	if timeout <= 0 {
		timeout = defaultTranscribeTimeout
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Controller{machine: machine, transcriber: transcriber, timeout: timeout, log: log}
}

func (c *Controller) Machine() *Machine { return c.machine }

// CanAdvance reports whether the input is submittable: non-whitespace text,
// or a finished recording with at least one byte of audio.
func (c *Controller) CanAdvance(in Input) bool {
	switch v := in.(type) {
	case TextInput:
		return strings.TrimSpace(v.Text) != ""
	case AudioInput:
		return len(v.Payload) > 0 && !v.Recording
	default:
		return false
	}
}

// Advance records the input at the current station and moves on, or completes
// the interview if this was the last station. For audio the response is
// recorded and marked pending before the advance, and transcription runs in
// the background against the ordinal the audio was submitted at.
func (c *Controller) Advance(in Input, timeSpentSeconds int) (completed bool, err error) {
	if !c.CanAdvance(in) {
		return false, ErrIncompleteResponse
	}

	ordinal := c.machine.CurrentStationIndex()
	last := ordinal == c.machine.StationCount()-1

	switch v := in.(type) {
	case TextInput:
		if err := c.machine.RecordTextResponse(v.Text, timeSpentSeconds); err != nil {
			return false, err
		}
	case AudioInput:
		if err := c.machine.RecordAudioResponse(v.Payload, v.MIMEType, v.DurationSeconds, timeSpentSeconds); err != nil {
			return false, err
		}
		if c.transcriber != nil {
			if err := c.machine.MarkTranscriptionPending(ordinal); err != nil {
				return false, err
			}
			go c.transcribe(ordinal, v.Payload, v.MIMEType)
		}
	default:
		return false, ErrIncompleteResponse
	}

	if last {
		c.machine.Complete()
		return true, nil
	}
	c.machine.Advance()
	return false, nil
}

// transcribe runs the transcription request with a single retry and applies
// the outcome to the captured ordinal.
func (c *Controller) transcribe(ordinal int, payload []byte, mimeType string) {
	text, err := c.transcribeOnce(payload, mimeType)
	if err != nil {
		c.log.Warnw("transcription attempt failed, retrying once", "ordinal", ordinal, "err", err)
		text, err = c.transcribeOnce(payload, mimeType)
	}
	if err != nil {
		c.log.Errorw("transcription failed", "ordinal", ordinal, "err", err)
	}
	if applyErr := c.machine.ApplyTranscription(ordinal, text, err); applyErr != nil {
		c.log.Warnw("transcription result dropped", "ordinal", ordinal, "err", applyErr)
	}
}

func (c *Controller) transcribeOnce(payload []byte, mimeType string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.transcriber.Transcribe(ctx, payload, mimeType)
}
