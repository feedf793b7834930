package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/welldanyogia/webrana-mailguard-backend/internal/errors"
)

// maxResponseSize caps how much of a classifier reply is read
const maxResponseSize = 1 << 20

// HTTPBackend calls a JSON classification service over HTTP
type HTTPBackend struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPBackend creates a backend posting requests to url.
// The caller's context bounds each call; client may be nil.
func NewHTTPBackend(url, apiKey string, client *http.Client) *HTTPBackend {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPBackend{url: url, apiKey: apiKey, client: client}
}

// Analyze implements Backend
func (b *HTTPBackend) Analyze(ctx context.Context, req Request) (*RawAssessment, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal classification request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build classification request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if b.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrClassificationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, fmt.Errorf("%w: classifier returned status %d", apperrors.ErrClassificationUnavailable, resp.StatusCode)
	}

	var raw RawAssessment
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", apperrors.ErrClassificationUnavailable, err)
	}
	return &raw, nil
}
