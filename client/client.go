package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StatusError reports a non-2xx response from an inference service. The
// pipeline treats these as transient.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s service returned %d: %s", e.Service, e.Code, e.Body)
}

const maxErrorBody = 512

type httpClient struct {
	service string
	baseURL string
	hc      *http.Client
}

func newHTTPClient(service, baseURL string, timeout time.Duration) httpClient {
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return httpClient{
		service: service,
		baseURL: baseURL,
		hc:      &http.Client{Timeout: timeout},
	}
}

// postJSON sends a JSON request and returns the raw response body, which
// the inference services answer with a binary artifact.
func (c httpClient) postJSON(ctx context.Context, path string, payload interface{}) ([]byte, http.Header, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s service request failed: %w", c.service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, nil, &StatusError{Service: c.service, Code: resp.StatusCode, Body: string(snippet)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%s service response read failed: %w", c.service, err)
	}
	return data, resp.Header, nil
}
