package domain

import (
	"strings"
	"time"
)

// LineItem represents a single billable line on an invoice
type LineItem struct {
	ID          string  `json:"id,omitempty"`
	Description string  `json:"description"`
	Quantity    float64 `json:"qty"`
	UnitPrice   float64 `json:"unitPrice"`
}

// Totals holds the derived monetary amounts of an invoice.
// Always recomputed from the item list and tax rate, never trusted from input.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// Invoice represents an invoice record owned by a single user
type Invoice struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	InvoiceNumber string     `json:"invoiceNumber"`
	Status        string     `json:"status"`
	ClientName    string     `json:"clientName"`
	ClientEmail   string     `json:"clientEmail,omitempty"`
	ClientAddress string     `json:"clientAddress,omitempty"`
	IssueDate     time.Time  `json:"issueDate"`
	DueDate       time.Time  `json:"dueDate,omitzero"`
	Items         []LineItem `json:"items"`
	TaxPercent    float64    `json:"taxPercent"`
	Totals        Totals     `json:"totals"`
	Currency      string     `json:"currency"`
	Notes         string     `json:"notes,omitempty"`
	LogoURL       string     `json:"logoUrl,omitempty"`
	StampURL      string     `json:"stampUrl,omitempty"`
	SignatureURL  string     `json:"signatureUrl,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// NewInvoice creates an invoice with default values
func NewInvoice() *Invoice {
	return &Invoice{
		Status:   StatusDraft,
		Currency: "USD",
		Items:    make([]LineItem, 0),
	}
}

// Lifecycle status labels. The set is open; unknown labels survive
// lowercasing untouched.
const (
	StatusDraft   = "draft"
	StatusSent    = "sent"
	StatusPaid    = "paid"
	StatusOverdue = "overdue"
)

// NormalizeStatus lowercases a status label, defaulting empty input to draft
func NormalizeStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return StatusDraft
	}
	return s
}

// InvoiceFilter represents query filters for listing invoices.
// Every query is additionally scoped to the owning user.
type InvoiceFilter struct {
	Status        string
	InvoiceNumber string
	Search        string
	Page          int
	Limit         int
}

// Pagination represents pagination metadata
type Pagination struct {
	TotalItems  int `json:"totalItems"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	Limit       int `json:"limit"`
}

// PaginatedInvoices represents a paginated list of invoices
type PaginatedInvoices struct {
	Data       []Invoice  `json:"data"`
	Pagination Pagination `json:"pagination"`
}
