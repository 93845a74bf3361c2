package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Client calls Deepgram's prerecorded transcription endpoint. Filler words
// are kept in the transcript on purpose so the evaluator can comment on
// delivery, not just content.
type Client struct {
	apiKey string
	model  string
	base   string
	http   *http.Client
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey: apiKey,
		model:  model,
		base:   "https://api.deepgram.com",
		http:   &http.Client{},
	}
}

// WithBaseURL overrides the API base, for tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.base = base
	return c
}

type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
	Err string `json:"err_msg,omitempty"`
}

// Transcribe sends one audio payload and returns the best-effort transcript.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("empty audio payload")
	}

	q := url.Values{}
	q.Set("model", c.model)
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")
	q.Set("filler_words", "true")
	q.Set("language", "en-US")

	endpoint := c.base + "/v1/listen?" + q.Encode()
	r, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	r.Header.Set("Authorization", "Token "+c.apiKey)
	if mimeType == "" {
		mimeType = "audio/webm"
	}
	r.Header.Set("Content-Type", mimeType)

	resp, err := c.http.Do(r)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("deepgram api error (%d): %s", resp.StatusCode, string(body))
	}

	var lr listenResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return "", fmt.Errorf("decode error: %w", err)
	}

	if len(lr.Results.Channels) == 0 || len(lr.Results.Channels[0].Alternatives) == 0 {
		return "", fmt.Errorf("no transcript returned")
	}
	transcript := lr.Results.Channels[0].Alternatives[0].Transcript
	if transcript == "" {
		return "", fmt.Errorf("empty transcript returned")
	}
	return transcript, nil
}
