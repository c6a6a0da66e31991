package generation

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIBackend generates text through the OpenAI API
type OpenAIBackend struct {
	client  *openai.Client
	modelID string
}

// NewOpenAIBackend creates a backend for the given model
func NewOpenAIBackend(apiKey, modelID string) *OpenAIBackend {
	return &OpenAIBackend{
		client:  openai.NewClient(apiKey),
		modelID: modelID,
	}
}

// Name returns the model identifier
func (b *OpenAIBackend) Name() string {
	return "openai/" + b.modelID
}

// Generate sends the prompt as a single user message
func (b *OpenAIBackend) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.modelID,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", &BackendError{Backend: b.Name(), Op: "create_chat_completion", Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &BackendError{
			Backend: b.Name(),
			Op:      "check_choices",
			Err:     fmt.Errorf("no choices in response"),
		}
	}

	return resp.Choices[0].Message.Content, nil
}
