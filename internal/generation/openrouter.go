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

const defaultOpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouterConfig holds the shared, immutable client configuration for
// OpenRouter-hosted models. Built once at process start and passed by
// reference into every backend derived from it.
type OpenRouterConfig struct {
	APIKey     string
	APIURL     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewOpenRouterConfig fills in defaults and constructs the HTTP client
func NewOpenRouterConfig(apiKey string, timeout time.Duration) *OpenRouterConfig {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &OpenRouterConfig{
		APIKey:  apiKey,
		APIURL:  defaultOpenRouterURL,
		Timeout: timeout,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// OpenRouterBackend is one ranked model on the OpenRouter API
type OpenRouterBackend struct {
	cfg     *OpenRouterConfig
	modelID string
}

// NewOpenRouterBackends builds one backend per model ID, preserving the
// configured priority order
func NewOpenRouterBackends(cfg *OpenRouterConfig, modelIDs []string) []Backend {
	backends := make([]Backend, 0, len(modelIDs))
	for _, id := range modelIDs {
		backends = append(backends, &OpenRouterBackend{cfg: cfg, modelID: id})
	}
	return backends
}

// Name returns the model identifier
func (b *OpenRouterBackend) Name() string {
	return "openrouter/" + b.modelID
}

// chatMessage is the request message shape for the chat-completions API
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// contentPart is one element of a structured content array in a response
type contentPart struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

// Generate calls the chat-completions endpoint with the prompt and
// normalizes the response into plain text
func (b *OpenRouterBackend) Generate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model": b.modelID,
		"messages": []chatMessage{
			{Role: "user", Content: prompt},
		},
	}

	requestData, err := json.Marshal(payload)
	if err != nil {
		return "", &BackendError{Backend: b.Name(), Op: "marshal_request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.APIURL, bytes.NewBuffer(requestData))
	if err != nil {
		return "", &BackendError{Backend: b.Name(), Op: "create_request", Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)

	resp, err := b.cfg.HTTPClient.Do(req)
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
			Op:      "check_api_response",
			Err:     fmt.Errorf("API error: %s - %s", resp.Status, string(respBody)),
		}
	}

	return normalizeChatResponse(b.Name(), respBody)
}

// normalizeChatResponse extracts plain text from a chat-completions
// response. Providers disagree on the content field: some return a bare
// string, others a list of typed parts each carrying a text field. Both
// shapes are accepted; parts are concatenated in order.
func normalizeChatResponse(backendName string, respBody []byte) (string, error) {
	var response struct {
		Choices []struct {
			Message struct {
				Content json.RawMessage `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", &BackendError{Backend: backendName, Op: "parse_response", Err: err}
	}

	if len(response.Choices) == 0 {
		return "", &BackendError{
			Backend: backendName,
			Op:      "check_choices",
			Err:     fmt.Errorf("no choices in response"),
		}
	}

	raw := response.Choices[0].Message.Content
	if len(raw) == 0 {
		return "", nil
	}

	// Direct text field
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}

	// List of output parts, concatenated in order
	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err == nil {
		var buf bytes.Buffer
		for _, part := range parts {
			buf.WriteString(part.Text)
		}
		return buf.String(), nil
	}

	return "", &BackendError{
		Backend: backendName,
		Op:      "normalize_content",
		Err:     fmt.Errorf("unrecognized content shape: %s", string(raw)),
	}
}
