package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/andywalner/pa-mmi-mock-interviewer/pkg/model"
)

type fakeTranscriber struct {
	mu      sync.Mutex
	results []transcribeResult
	calls   int
	gate    chan struct{}
}

type transcribeResult struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio []byte, mimeType string) (string, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	r := f.results[i]
	return r.text, r.err
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestController(tr Transcriber) *Controller {
	m := newTestMachine(nil, nil, nil)
	m.Start()
	return NewController(m, tr, 0, nil)
}

func TestCanAdvance(t *testing.T) {
	c := newTestController(nil)

	tests := []struct {
		name string
		in   Input
		want bool
	}{
		{"text", TextInput{Text: "I would decline."}, true},
		{"empty text", TextInput{Text: ""}, false},
		{"whitespace text", TextInput{Text: "   \n\t "}, false},
		{"finished audio", AudioInput{Payload: []byte("a")}, true},
		{"empty audio", AudioInput{Payload: nil}, false},
		{"still recording", AudioInput{Payload: []byte("a"), Recording: true}, false},
		{"nil input", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.CanAdvance(tt.in); got != tt.want {
				t.Errorf("CanAdvance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAdvanceRecordsTextThenMoves(t *testing.T) {
	c := newTestController(nil)

	completed, err := c.Advance(TextInput{Text: "I would decline."}, 42)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if completed {
		t.Error("completed on first station")
	}

	sess := c.Machine().Snapshot()
	if sess.CurrentStationIndex != 1 {
		t.Errorf("index = %d, want 1", sess.CurrentStationIndex)
	}
	resp := sess.Responses[0]
	if resp == nil || resp.ResponseText != "I would decline." || resp.TimeSpentSeconds != 42 {
		t.Errorf("response = %+v", resp)
	}
}

func TestAdvanceRejectsInvalidInput(t *testing.T) {
	c := newTestController(nil)

	if _, err := c.Advance(TextInput{Text: "  "}, 10); !errors.Is(err, ErrIncompleteResponse) {
		t.Errorf("err = %v, want ErrIncompleteResponse", err)
	}
	if got := c.Machine().CurrentStationIndex(); got != 0 {
		t.Errorf("index moved to %d on rejected input", got)
	}
}

func TestAdvanceLastStationCompletes(t *testing.T) {
	c := newTestController(nil)

	for i := 0; i < 4; i++ {
		completed, err := c.Advance(TextInput{Text: "answer"}, 30)
		if err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
		if completed {
			t.Fatalf("completed at station %d", i)
		}
	}

	completed, err := c.Advance(TextInput{Text: "final"}, 30)
	if err != nil {
		t.Fatalf("final advance: %v", err)
	}
	if !completed {
		t.Fatal("last station did not complete")
	}
	if !c.Machine().IsComplete() {
		t.Error("machine not complete")
	}
}

func TestAdvanceAudioTranscribesCapturedOrdinal(t *testing.T) {
	tr := &fakeTranscriber{
		results: []transcribeResult{{text: "I value patient safety."}},
		gate:    make(chan struct{}),
	}
	c := newTestController(tr)

	if _, err := c.Advance(TextInput{Text: "first"}, 20); err != nil {
		t.Fatalf("advance 0: %v", err)
	}

	// Audio at station 2; the user keeps moving while it transcribes.
	if _, err := c.Advance(AudioInput{Payload: []byte("audio"), MIMEType: "audio/webm", DurationSeconds: 30}, 35); err != nil {
		t.Fatalf("advance 1: %v", err)
	}
	if _, err := c.Advance(TextInput{Text: "third"}, 20); err != nil {
		t.Fatalf("advance 2: %v", err)
	}

	sess := c.Machine().Snapshot()
	if sess.CurrentStationIndex != 3 {
		t.Fatalf("index = %d, want 3", sess.CurrentStationIndex)
	}
	if sess.Responses[1].Transcription.Status != model.TranscriptionPending {
		t.Fatalf("ordinal 1 status = %q, want pending", sess.Responses[1].Transcription.Status)
	}

	close(tr.gate)
	eventually(t, func() bool {
		return c.Machine().Snapshot().Responses[1].Transcription.Status == model.TranscriptionCompleted
	}, "transcription never applied")

	sess = c.Machine().Snapshot()
	if sess.Responses[1].ResponseText != "I value patient safety." {
		t.Errorf("ordinal 1 text = %q", sess.Responses[1].ResponseText)
	}
	if sess.Responses[3] != nil {
		t.Error("transcript leaked into current station")
	}
}

func TestAdvanceAudioRetriesTranscriptionOnce(t *testing.T) {
	tr := &fakeTranscriber{results: []transcribeResult{
		{err: errors.New("temporary")},
		{text: "recovered transcript"},
	}}
	c := newTestController(tr)

	if _, err := c.Advance(AudioInput{Payload: []byte("audio"), MIMEType: "audio/webm"}, 30); err != nil {
		t.Fatalf("advance: %v", err)
	}

	eventually(t, func() bool {
		return c.Machine().Snapshot().Responses[0].Transcription.Status == model.TranscriptionCompleted
	}, "retry never succeeded")

	if got := tr.callCount(); got != 2 {
		t.Errorf("transcribe calls = %d, want 2", got)
	}
	if text := c.Machine().Snapshot().Responses[0].ResponseText; text != "recovered transcript" {
		t.Errorf("text = %q", text)
	}
}

func TestAdvanceAudioGivesUpAfterSecondFailure(t *testing.T) {
	tr := &fakeTranscriber{results: []transcribeResult{
		{err: errors.New("down")},
		{err: errors.New("still down")},
	}}
	c := newTestController(tr)

	if _, err := c.Advance(AudioInput{Payload: []byte("audio"), MIMEType: "audio/webm"}, 30); err != nil {
		t.Fatalf("advance: %v", err)
	}

	eventually(t, func() bool {
		return c.Machine().Snapshot().Responses[0].Transcription.Status == model.TranscriptionError
	}, "error never recorded")

	if got := tr.callCount(); got != 2 {
		t.Errorf("transcribe calls = %d, want 2", got)
	}
	resp := c.Machine().Snapshot().Responses[0]
	if resp.Transcription.ErrorMessage != "still down" {
		t.Errorf("error message = %q", resp.Transcription.ErrorMessage)
	}
	if resp.ResponseText != "" {
		t.Errorf("response text = %q, want empty", resp.ResponseText)
	}
}

func TestAdvanceAudioLastStationStillTranscribes(t *testing.T) {
	tr := &fakeTranscriber{
		results: []transcribeResult{{text: "closing answer"}},
		gate:    make(chan struct{}),
	}
	c := newTestController(tr)

	for i := 0; i < 4; i++ {
		if _, err := c.Advance(TextInput{Text: "answer"}, 30); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}

	completed, err := c.Advance(AudioInput{Payload: []byte("audio"), MIMEType: "audio/webm"}, 40)
	if err != nil {
		t.Fatalf("final advance: %v", err)
	}
	if !completed {
		t.Fatal("last station did not complete")
	}

	// Completion does not wait for the transcript.
	if st := c.Machine().EvaluationStatus(); st.Phase != EvalTranscribing {
		t.Fatalf("phase = %q, want transcribing", st.Phase)
	}

	close(tr.gate)
	eventually(t, func() bool {
		return c.Machine().Snapshot().Responses[4].ResponseText == "closing answer"
	}, "final transcript never applied")
}

type deadlineTranscriber struct {
	mu       sync.Mutex
	deadline time.Time
	ok       bool
}

func (d *deadlineTranscriber) Transcribe(ctx context.Context, _ []byte, _ string) (string, error) {
	d.mu.Lock()
	d.deadline, d.ok = ctx.Deadline()
	d.mu.Unlock()
	return "text", nil
}

func TestTranscribeUsesConfiguredTimeout(t *testing.T) {
	tr := &deadlineTranscriber{}
	m := newTestMachine(nil, nil, nil)
	m.Start()
	c := NewController(m, tr, 5*time.Second, nil)

	if _, err := c.Advance(AudioInput{Payload: []byte("audio"), MIMEType: "audio/webm"}, 30); err != nil {
		t.Fatalf("advance: %v", err)
	}

	eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return tr.ok
	}, "transcriber never called")

	tr.mu.Lock()
	remaining := time.Until(tr.deadline)
	tr.mu.Unlock()
	if remaining <= 0 || remaining > 5*time.Second {
		t.Errorf("deadline %v from now, want within the configured 5s", remaining)
	}
}

