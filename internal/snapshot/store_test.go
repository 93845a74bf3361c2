package snapshot

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/andywalner/pa-mmi-mock-interviewer/pkg/model"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sess := model.InterviewSession{
		SchoolName:          "PA Program",
		CurrentStationIndex: 2,
		IsComplete:          false,
		RemoteInterviewID:   "iv-1",
		Responses: []*model.StationResponse{
			{StationID: "station-1", Prompt: "p1", ResponseText: "answer", TimeSpentSeconds: 42},
			nil,
		},
	}

	if err := s.Save(ctx, "k1", sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, ok, err := s.Load(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got.CurrentStationIndex != 2 || got.RemoteInterviewID != "iv-1" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.Responses[0].ResponseText != "answer" || got.Responses[1] != nil {
		t.Fatalf("unexpected responses: %+v", got.Responses)
	}
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	s := NewMemoryStore()
	_, ok, err := s.Load(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Save(ctx, "k", model.InterviewSession{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := s.Load(ctx, "k"); ok {
		t.Fatal("expected key to be gone after delete")
	}
}

// Audio payloads must never reach durable storage, in any serialization.
func TestSerializationStripsAudioPayload(t *testing.T) {
	sess := model.InterviewSession{
		Responses: []*model.StationResponse{
			{
				StationID:            "station-3",
				AudioPayload:         []byte{0x01, 0x02, 0x03},
				AudioMIMEType:        "audio/webm",
				AudioDurationSeconds: 30,
				Transcription:        model.Transcription{Status: model.TranscriptionPending},
			},
		},
	}

	b, err := json.Marshal(sess)
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatal(err)
	}
	resp := raw["responses"].([]any)[0].(map[string]any)
	for _, field := range []string{"AudioPayload", "audio_payload", "AudioMIMEType"} {
		if _, found := resp[field]; found {
			t.Fatalf("serialized response leaks %s", field)
		}
	}
	if resp["audio_duration_seconds"].(float64) != 30 {
		t.Fatal("audio duration metadata should survive serialization")
	}
}
