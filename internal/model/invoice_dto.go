package model

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/raflianugrah/invoice-manager-service/internal/domain"
)

// FlexFloat is a float64 that tolerates sloppy JSON input: numbers,
// numeric strings, or anything else. Non-numeric values silently become 0
// rather than failing the whole request.
type FlexFloat float64

// UnmarshalJSON implements the lenient coercion
func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}

	// Try a plain number first
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*f = FlexFloat(v)
		return nil
	}

	// Then a quoted numeric string
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			*f = FlexFloat(v)
			return nil
		}
	}

	// Anything else (objects, arrays, booleans, non-numeric strings) is 0
	*f = 0
	return nil
}

// LineItemDTO represents a line item in an API request or response
type LineItemDTO struct {
	ID          string    `json:"id,omitempty"`
	Description string    `json:"description"`
	Quantity    FlexFloat `json:"qty"`
	UnitPrice   FlexFloat `json:"unitPrice"`
}

// ToDomain converts the DTO to a domain line item
func (d LineItemDTO) ToDomain() domain.LineItem {
	return domain.LineItem{
		ID:          d.ID,
		Description: d.Description,
		Quantity:    float64(d.Quantity),
		UnitPrice:   float64(d.UnitPrice),
	}
}

// InvoiceInput represents the caller-editable fields of an invoice.
// Totals are intentionally absent: they are always recomputed server-side.
type InvoiceInput struct {
	InvoiceNumber string         `json:"invoiceNumber"`
	Status        string         `json:"status"`
	ClientName    string         `json:"clientName"`
	ClientEmail   string         `json:"clientEmail"`
	ClientAddress string         `json:"clientAddress"`
	IssueDate     string         `json:"issueDate"` // YYYY-MM-DD
	DueDate       string         `json:"dueDate"`   // YYYY-MM-DD
	Items         []*LineItemDTO `json:"items"`
	TaxPercent    FlexFloat      `json:"taxPercent"`
	Currency      string         `json:"currency"`
	Notes         string         `json:"notes"`
}

// DomainItems converts the input items, dropping null entries the way the
// totals engine expects
func (in *InvoiceInput) DomainItems() []domain.LineItem {
	if in.Items == nil {
		return nil
	}
	items := make([]domain.LineItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it == nil {
			continue
		}
		items = append(items, it.ToDomain())
	}
	return items
}

// GenerateInvoiceRequest represents an assisted-creation request
type GenerateInvoiceRequest struct {
	Prompt string `json:"prompt"`
	Save   bool   `json:"save"`
}

// GenerateInvoiceResponse carries the AI-derived draft and the backend
// that produced it. Never persisted unless the caller asked to save.
type GenerateInvoiceResponse struct {
	Invoice     *domain.Invoice `json:"invoice"`
	BackendUsed string          `json:"backendUsed"`
	Saved       bool            `json:"saved"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
	RawText string        `json:"rawText,omitempty"`
}

// ErrorDetail provides detailed information about a specific error
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}
