package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/raflianugrah/invoice-manager-service/internal/domain"
	"github.com/raflianugrah/invoice-manager-service/internal/generation"
	"github.com/raflianugrah/invoice-manager-service/internal/logger"
	"github.com/raflianugrah/invoice-manager-service/internal/model"
)

// promptTemplate carries the target schema skeleton the model must fill.
// The schema mirrors model.InvoiceInput so the parsed draft flows through
// the ordinary create path unchanged.
const promptTemplate = `You are an invoice drafting assistant. Convert the user's request into an invoice.

Respond with a single JSON object of exactly this shape:
{
  "invoiceNumber": "",
  "status": "draft",
  "clientName": "...",
  "clientEmail": "...",
  "clientAddress": "...",
  "issueDate": "YYYY-MM-DD",
  "dueDate": "YYYY-MM-DD",
  "items": [
    {
      "description": "...",
      "qty": 1,
      "unitPrice": 0.0
    }
  ],
  "taxPercent": 18,
  "currency": "USD",
  "notes": ""
}

Leave invoiceNumber empty; it is assigned by the system. Use the user's request below to fill in the rest.

User request:
%USER_TEXT%

Do not include any other text in your response, only provide the JSON.`

// GenerationService turns free-form text into an invoice draft by calling
// a ranked list of generation backends
type GenerationService struct {
	backends       []generation.Backend
	attemptTimeout time.Duration
	workerPool     chan struct{}
	log            zerolog.Logger
}

// NewGenerationService creates a pipeline over the given backends in
// priority order
func NewGenerationService(backends []generation.Backend, attemptTimeout time.Duration, maxWorkers int) *GenerationService {
	if maxWorkers <= 0 {
		maxWorkers = 5
	}
	if attemptTimeout <= 0 {
		attemptTimeout = 60 * time.Second
	}
	return &GenerationService{
		backends:       backends,
		attemptTimeout: attemptTimeout,
		workerPool:     make(chan struct{}, maxWorkers),
		log:            logger.WithComponent("generation-service"),
	}
}

// GenerateDraft produces an invoice draft from the user's text. It
// returns the parsed draft and the name of the backend that produced it,
// or a classified failure: domain.ErrUpstreamUnavailable when every
// backend failed, and a domain.UpstreamError carrying the raw text when
// a backend answered but its output held no parseable JSON.
func (s *GenerationService) GenerateDraft(ctx context.Context, userText string) (*model.InvoiceInput, string, error) {
	// Acquire a worker from the pool
	select {
	case s.workerPool <- struct{}{}:
		defer func() {
			<-s.workerPool
		}()
	case <-ctx.Done():
		return nil, "", &InvoiceServiceError{Op: "acquire_worker", Err: ctx.Err()}
	}

	prompt := strings.Replace(promptTemplate, "%USER_TEXT%", userText, 1)

	text, backendUsed, err := s.firstNonEmpty(ctx, prompt)
	if err != nil {
		return nil, "", err
	}

	draft, err := parseDraft(text)
	if err != nil {
		return nil, backendUsed, err
	}

	// The number is always system territory, even if the model invented one
	draft.InvoiceNumber = strings.TrimSpace(draft.InvoiceNumber)

	return draft, backendUsed, nil
}

// firstNonEmpty walks the backends in priority order and returns the
// first non-empty text. Each attempt is isolated: a backend error or an
// empty result advances to the next backend rather than failing the
// pipeline. Ordering is deterministic; this is a priority list, not a
// race.
func (s *GenerationService) firstNonEmpty(ctx context.Context, prompt string) (string, string, error) {
	for _, backend := range s.backends {
		attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
		text, err := backend.Generate(attemptCtx, prompt)
		cancel()

		if err != nil {
			s.log.Warn().
				Err(err).
				Str("backend", backend.Name()).
				Msg("generation backend failed, trying next")
			continue
		}
		if strings.TrimSpace(text) == "" {
			s.log.Warn().
				Str("backend", backend.Name()).
				Msg("generation backend returned empty text, trying next")
			continue
		}

		return text, backend.Name(), nil
	}

	return "", "", domain.ErrUpstreamUnavailable
}

// parseDraft extracts and parses the JSON object inside the model's text.
// The slice runs from the first '{' to the last '}'. This is not a
// balanced scanner, so prose containing stray braces can over- or
// under-capture. Absent braces and unparseable slices are distinct
// failures, both carrying the raw text for diagnostics.
func parseDraft(text string) (*model.InvoiceInput, error) {
	start := strings.Index(text, "{")
	if start == -1 {
		return nil, &domain.UpstreamError{Kind: domain.ErrNoJSONFound, RawText: text}
	}

	// An open brace with no close still reaches the parser, which then
	// classifies it as malformed rather than missing
	candidate := text[start:]
	if end := strings.LastIndex(text, "}"); end > start {
		candidate = text[start : end+1]
	}

	var draft model.InvoiceInput
	if err := json.Unmarshal([]byte(candidate), &draft); err != nil {
		return nil, &domain.UpstreamError{Kind: domain.ErrMalformedOutput, RawText: text, Err: err}
	}

	return &draft, nil
}
