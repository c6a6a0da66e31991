package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) (*OpenRouterBackend, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := NewOpenRouterConfig("test-key", 5*time.Second)
	cfg.APIURL = server.URL
	return &OpenRouterBackend{cfg: cfg, modelID: "test-model"}, server
}

func TestGenerateStringContent(t *testing.T) {
	backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 1)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"hello world"}}]}`))
	})

	text, err := backend.Generate(context.Background(), "say hello")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestGeneratePartListContent(t *testing.T) {
	backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":[{"type":"text","text":"hello "},{"type":"text","text":"world"}]}}]}`))
	})

	text, err := backend.Generate(context.Background(), "say hello")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestGenerateEmptyChoices(t *testing.T) {
	backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := backend.Generate(context.Background(), "say hello")
	require.Error(t, err)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "check_choices", backendErr.Op)
}

func TestGenerateAPIError(t *testing.T) {
	backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	})

	_, err := backend.Generate(context.Background(), "say hello")
	require.Error(t, err)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "check_api_response", backendErr.Op)
}

func TestGenerateUnrecognizedContentShape(t *testing.T) {
	backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":{"weird":true}}}]}`))
	})

	_, err := backend.Generate(context.Background(), "say hello")
	require.Error(t, err)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "normalize_content", backendErr.Op)
}

func TestLocalBackendShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"direct text", `{"text":"generated"}`, "generated"},
		{"output list", `{"outputs":[{"text":"a"},{"text":"b"}]}`, "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/generate", r.URL.Path)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			backend := NewLocalBackend(server.URL, 5*time.Second)
			text, err := backend.Generate(context.Background(), "prompt")
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}
