package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// LocalBackend talks to a self-hosted text-generation service over HTTP.
// The service accepts {"prompt": ...} on /generate and answers with
// either {"text": ...} or {"outputs": [{"text": ...}, ...]}.
type LocalBackend struct {
	baseURL    string
	httpClient *http.Client
}

// NewLocalBackend creates a client for the service at baseURL
func NewLocalBackend(baseURL string, timeout time.Duration) *LocalBackend {
	if timeout == 0 {
		timeout = 300 * time.Second
	}
	return &LocalBackend{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name identifies the local backend
func (b *LocalBackend) Name() string {
	return "local"
}

// Generate posts the prompt and normalizes the response text
func (b *LocalBackend) Generate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]string{"prompt": prompt}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", &BackendError{Backend: b.Name(), Op: "marshal_request", Err: err}
	}

	url := fmt.Sprintf("%s/generate", b.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", &BackendError{Backend: b.Name(), Op: "create_request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", &BackendError{Backend: b.Name(), Op: "send_request", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &BackendError{Backend: b.Name(), Op: "read_response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &BackendError{
			Backend: b.Name(),
			Op:      "check_status",
			Err:     fmt.Errorf("service error (status %d): %s", resp.StatusCode, string(respBody)),
		}
	}

	var result struct {
		Text    string `json:"text"`
		Outputs []struct {
			Text string `json:"text"`
		} `json:"outputs"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &BackendError{Backend: b.Name(), Op: "parse_response", Err: err}
	}

	if result.Text != "" {
		return result.Text, nil
	}

	var buf bytes.Buffer
	for _, out := range result.Outputs {
		buf.WriteString(out.Text)
	}
	return buf.String(), nil
}

// HealthCheck probes the service's health endpoint
func (b *LocalBackend) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/health", b.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("health check failed (status %d): %s", resp.StatusCode, string(body))
	}

	return nil
}
