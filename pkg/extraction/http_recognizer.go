package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPRecognizer calls an external NER service, typically a spaCy French
// model behind a small HTTP wrapper. The service receives {"text": ...} and
// answers with {"entities": [...], "tokens": [...]}.
type HTTPRecognizer struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPRecognizer creates a recognizer posting to endpoint
func NewHTTPRecognizer(endpoint string, timeout time.Duration) *HTTPRecognizer {
	return &HTTPRecognizer{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Analyze implements Recognizer
func (h *HTTPRecognizer) Analyze(ctx context.Context, text string) (*Analysis, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call recognizer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("recognizer failed with status %d: %s", resp.StatusCode, string(msg))
	}

	var analysis Analysis
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return nil, fmt.Errorf("failed to decode recognizer response: %w", err)
	}
	for i := range analysis.Entities {
		analysis.Entities[i].Label = normalizeLabel(analysis.Entities[i].Label)
	}
	for i := range analysis.Tokens {
		if analysis.Tokens[i].Lemma == "" {
			analysis.Tokens[i].Lemma = lemma(analysis.Tokens[i].Text)
		}
	}
	return &analysis, nil
}
