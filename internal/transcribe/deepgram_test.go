package transcribe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func transcriptBody(text string) map[string]any {
	return map[string]any{
		"results": map[string]any{
			"channels": []any{
				map[string]any{
					"alternatives": []any{
						map[string]any{"transcript": text},
					},
				},
			},
		},
	}
}

func TestTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/listen" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Token dg-key" {
			t.Fatalf("unexpected auth header %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "audio/webm" {
			t.Fatalf("unexpected content type %q", got)
		}
		q := r.URL.Query()
		if q.Get("model") != "nova-2" || q.Get("filler_words") != "true" || q.Get("smart_format") != "true" {
			t.Fatalf("unexpected query %q", r.URL.RawQuery)
		}
		body, _ := io.ReadAll(r.Body)
		if len(body) != 3 {
			t.Fatalf("expected 3 byte payload, got %d", len(body))
		}
		_ = json.NewEncoder(w).Encode(transcriptBody("I value patient safety."))
	}))
	defer server.Close()

	c := NewClient("dg-key", "nova-2").WithBaseURL(server.URL)
	got, err := c.Transcribe(context.Background(), []byte{1, 2, 3}, "audio/webm")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if got != "I value patient safety." {
		t.Fatalf("unexpected transcript %q", got)
	}
}

func TestTranscribeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"err_msg":"bad audio"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	c := NewClient("dg-key", "nova-2").WithBaseURL(server.URL)
	if _, err := c.Transcribe(context.Background(), []byte{1}, ""); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestTranscribeEmptyTranscript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(transcriptBody(""))
	}))
	defer server.Close()

	c := NewClient("dg-key", "nova-2").WithBaseURL(server.URL)
	if _, err := c.Transcribe(context.Background(), []byte{1}, ""); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}

func TestTranscribeEmptyPayload(t *testing.T) {
	c := NewClient("dg-key", "nova-2")
	if _, err := c.Transcribe(context.Background(), nil, ""); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
