package session

import (
	"context"
	"errors"
	"testing"

	"github.com/andywalner/pa-mmi-mock-interviewer/pkg/model"
)

func newTestRegistry(gw PersistenceGateway) *Registry {
	return NewRegistry(Deps{
		Stations:        testStations(5),
		Gateway:         gw,
		InterviewTypeID: "type-1",
	})
}

func TestRegistryCreateAndGet(t *testing.T) {
	r := newTestRegistry(nil)

	key, ctrl := r.Create("user-1", "Duke")
	if key == "" {
		t.Fatal("empty session key")
	}
	if ctrl.Machine().CurrentStationIndex() != 0 {
		t.Error("fresh session not at ordinal 0")
	}

	got, err := r.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != ctrl {
		t.Error("get returned a different controller")
	}

	key2, _ := r.Create("user-1", "Duke")
	if key2 == key {
		t.Error("duplicate session key")
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := newTestRegistry(nil)
	if _, err := r.Get(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestRegistryRemove(t *testing.T) {
	r := newTestRegistry(nil)
	key, _ := r.Create("user-1", "")

	r.Remove(context.Background(), key)

	if _, err := r.Get(context.Background(), key); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
	// Removing twice is harmless.
	r.Remove(context.Background(), key)
}

func TestRegistryResume(t *testing.T) {
	gw := &fakeGateway{stored: model.StoredInterview{
		Interview: model.InterviewRecord{
			ID:                  "int-1",
			UserID:              "user-1",
			Status:              model.StatusInProgress,
			CurrentStationIndex: 1,
		},
		Responses: []model.ResponseRecord{
			{StationNumber: 1, QuestionID: "q1", ResponseText: "answer", TimeSpentSeconds: 40},
		},
	}}
	r := newTestRegistry(gw)

	key, ctrl, err := r.Resume(context.Background(), "user-1", "int-1")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if ctrl.Machine().CurrentStationIndex() != 1 {
		t.Error("resumed session at wrong station")
	}
	if _, err := r.Get(context.Background(), key); err != nil {
		t.Errorf("resumed session not registered: %v", err)
	}
}

func TestRegistryRehydratesFromSnapshot(t *testing.T) {
	snaps := newFakeSnapshots()
	deps := Deps{
		Stations:        testStations(5),
		Snapshots:       snaps,
		InterviewTypeID: "type-1",
	}

	r1 := NewRegistry(deps)
	key, ctrl := r1.Create("user-1", "Duke")
	if err := ctrl.Machine().RecordTextResponse("first answer", 40); err != nil {
		t.Fatalf("record: %v", err)
	}
	ctrl.Machine().Advance()
	if err := ctrl.Machine().RecordAudioResponse([]byte("audio"), "audio/webm", 30, 35); err != nil {
		t.Fatalf("record audio: %v", err)
	}
	if err := ctrl.Machine().MarkTranscriptionPending(1); err != nil {
		t.Fatalf("pending: %v", err)
	}

	// A fresh registry sharing the same store stands in for a restarted
	// process.
	r2 := NewRegistry(deps)
	got, err := r2.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get after restart: %v", err)
	}

	m := got.Machine()
	if m.UserID() != "user-1" {
		t.Errorf("user = %q, want user-1", m.UserID())
	}
	sess := m.Snapshot()
	if sess.SchoolName != "Duke" {
		t.Errorf("school = %q", sess.SchoolName)
	}
	if sess.CurrentStationIndex != 1 {
		t.Errorf("index = %d, want 1", sess.CurrentStationIndex)
	}
	if sess.Responses[0] == nil || sess.Responses[0].ResponseText != "first answer" {
		t.Errorf("ordinal 0 = %+v", sess.Responses[0])
	}

	// The audio did not survive the snapshot, so the pending transcription
	// lands in a terminal error state.
	resp := sess.Responses[1]
	if resp == nil || resp.Transcription.Status != model.TranscriptionError {
		t.Errorf("ordinal 1 = %+v, want transcription error", resp)
	}

	// Subsequent lookups hit the registered controller, not the store.
	again, err := r2.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if again != got {
		t.Error("rehydrated session not registered")
	}
}

func TestRegistryGetUnknownWithSnapshots(t *testing.T) {
	r := NewRegistry(Deps{
		Stations:        testStations(5),
		Snapshots:       newFakeSnapshots(),
		InterviewTypeID: "type-1",
	})
	if _, err := r.Get(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestRegistryResumeFailureRegistersNothing(t *testing.T) {
	gw := &fakeGateway{stored: model.StoredInterview{
		Interview: model.InterviewRecord{ID: "int-1", UserID: "other"},
	}}
	r := newTestRegistry(gw)

	if _, _, err := r.Resume(context.Background(), "user-1", "int-1"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}

	r.mu.Lock()
	n := len(r.sessions)
	r.mu.Unlock()
	if n != 0 {
		t.Errorf("registry holds %d sessions after failed resume", n)
	}
}
