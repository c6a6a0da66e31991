package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/raflianugrah/invoice-manager-service/internal/domain"
	"github.com/raflianugrah/invoice-manager-service/internal/logger"
	"github.com/raflianugrah/invoice-manager-service/internal/numbering"
	"github.com/raflianugrah/invoice-manager-service/internal/repository"
)

// maxInsertAttempts bounds the insert retry loop that absorbs
// unique-constraint races on system-generated invoice numbers
const maxInsertAttempts = 6

// ErrCreateRetriesExhausted indicates the insert loop ran out of attempts
// without a successful write
var ErrCreateRetriesExhausted = errors.New("invoice creation failed after retries")

// InvoiceServiceError represents an error in the invoice service
type InvoiceServiceError struct {
	Op  string
	Err error
}

func (e *InvoiceServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *InvoiceServiceError) Unwrap() error {
	return e.Err
}

// AssetURLs carries uploaded asset references for an invoice. An empty
// field means "leave the stored value untouched".
type AssetURLs struct {
	LogoURL      string
	StampURL     string
	SignatureURL string
}

// InvoiceService defines the interface for invoice business logic
type InvoiceService interface {
	// Create persists a draft, allocating a unique invoice number when
	// the draft carries none
	Create(ctx context.Context, draft *domain.Invoice) (*domain.Invoice, error)

	// Get retrieves one of the user's invoices by id or invoice number
	Get(ctx context.Context, userID, idOrNumber string) (*domain.Invoice, error)

	// Update applies caller-editable fields to one of the user's invoices
	Update(ctx context.Context, userID, idOrNumber string, draft *domain.Invoice, assets AssetURLs) (*domain.Invoice, error)

	// Delete removes one of the user's invoices
	Delete(ctx context.Context, userID, idOrNumber string) error

	// List returns the user's invoices matching the filter
	List(ctx context.Context, userID string, filter domain.InvoiceFilter) (*domain.PaginatedInvoices, error)
}

// InvoiceServiceImpl implements the InvoiceService interface
type InvoiceServiceImpl struct {
	repository repository.InvoiceRepository
	allocator  *numbering.Allocator
	log        zerolog.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(repo repository.InvoiceRepository, allocator *numbering.Allocator) *InvoiceServiceImpl {
	return &InvoiceServiceImpl{
		repository: repo,
		allocator:  allocator,
		log:        logger.WithComponent("invoice-service"),
	}
}

// Create persists the draft. A caller-supplied invoice number is trimmed
// and pre-checked for duplicates (a taken number is a terminal conflict);
// an absent number is allocated. The insert itself retries on
// invoice-number constraint violations, re-allocating a fresh number each
// time, because the allocator's check-then-use gap can lose races; any
// other storage error propagates immediately.
func (s *InvoiceServiceImpl) Create(ctx context.Context, draft *domain.Invoice) (*domain.Invoice, error) {
	draft.Status = domain.NormalizeStatus(draft.Status)
	if draft.Currency == "" {
		draft.Currency = "USD"
	}
	draft.Totals = ComputeTotals(draft.Items, draft.TaxPercent)

	draft.InvoiceNumber = strings.TrimSpace(draft.InvoiceNumber)
	numberSupplied := draft.InvoiceNumber != ""

	if numberSupplied {
		exists, err := s.repository.ExistsByInvoiceNumber(ctx, draft.InvoiceNumber)
		if err != nil {
			return nil, &InvoiceServiceError{Op: "check_invoice_number", Err: err}
		}
		if exists {
			return nil, domain.ErrDuplicateInvoiceNumber
		}
	} else {
		number, err := s.allocator.Allocate(ctx)
		if err != nil {
			return nil, &InvoiceServiceError{Op: "allocate_invoice_number", Err: err}
		}
		draft.InvoiceNumber = number
	}

	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		created, err := s.repository.Insert(ctx, draft)
		if err == nil {
			return created, nil
		}

		if !errors.Is(err, domain.ErrDuplicateInvoiceNumber) {
			return nil, &InvoiceServiceError{Op: "insert_invoice", Err: err}
		}

		// A caller-chosen number that races past the pre-check is still
		// the caller's conflict to resolve
		if numberSupplied {
			return nil, domain.ErrDuplicateInvoiceNumber
		}

		s.log.Warn().
			Str("invoice_number", draft.InvoiceNumber).
			Int("attempt", attempt).
			Msg("invoice number conflicted at insert, re-allocating")

		number, allocErr := s.allocator.Allocate(ctx)
		if allocErr != nil {
			return nil, &InvoiceServiceError{Op: "reallocate_invoice_number", Err: allocErr}
		}
		draft.InvoiceNumber = number
	}

	return nil, &InvoiceServiceError{Op: "insert_invoice", Err: ErrCreateRetriesExhausted}
}

// ownedInvoice fetches a record and enforces that it belongs to userID.
// A missing record and a foreign record are distinct outcomes.
func (s *InvoiceServiceImpl) ownedInvoice(ctx context.Context, userID, idOrNumber string) (*domain.Invoice, error) {
	invoice, err := s.repository.GetByIDOrNumber(ctx, idOrNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, &InvoiceServiceError{Op: "get_invoice", Err: err}
	}
	if invoice.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return invoice, nil
}

// Get retrieves one of the user's invoices
func (s *InvoiceServiceImpl) Get(ctx context.Context, userID, idOrNumber string) (*domain.Invoice, error) {
	return s.ownedInvoice(ctx, userID, idOrNumber)
}

// Update applies the draft's caller-editable fields to an owned invoice.
// The invoice number and owner are immutable; totals are recomputed from
// the submitted items and tax rate; asset URLs are only replaced when a
// new upload produced one.
func (s *InvoiceServiceImpl) Update(ctx context.Context, userID, idOrNumber string, draft *domain.Invoice, assets AssetURLs) (*domain.Invoice, error) {
	current, err := s.ownedInvoice(ctx, userID, idOrNumber)
	if err != nil {
		return nil, err
	}

	current.Status = domain.NormalizeStatus(draft.Status)
	current.ClientName = draft.ClientName
	current.ClientEmail = draft.ClientEmail
	current.ClientAddress = draft.ClientAddress
	current.IssueDate = draft.IssueDate
	current.DueDate = draft.DueDate
	current.Items = draft.Items
	current.TaxPercent = draft.TaxPercent
	current.Notes = draft.Notes
	if draft.Currency != "" {
		current.Currency = draft.Currency
	}
	current.Totals = ComputeTotals(current.Items, current.TaxPercent)

	if assets.LogoURL != "" {
		current.LogoURL = assets.LogoURL
	}
	if assets.StampURL != "" {
		current.StampURL = assets.StampURL
	}
	if assets.SignatureURL != "" {
		current.SignatureURL = assets.SignatureURL
	}

	updated, err := s.repository.Update(ctx, current)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, &InvoiceServiceError{Op: "update_invoice", Err: err}
	}
	return updated, nil
}

// Delete removes one of the user's invoices
func (s *InvoiceServiceImpl) Delete(ctx context.Context, userID, idOrNumber string) error {
	invoice, err := s.ownedInvoice(ctx, userID, idOrNumber)
	if err != nil {
		return err
	}

	if err := s.repository.Delete(ctx, invoice.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return &InvoiceServiceError{Op: "delete_invoice", Err: err}
	}
	return nil
}

// List returns the user's invoices matching the filter
func (s *InvoiceServiceImpl) List(ctx context.Context, userID string, filter domain.InvoiceFilter) (*domain.PaginatedInvoices, error) {
	if filter.Status != "" {
		filter.Status = domain.NormalizeStatus(filter.Status)
	}

	result, err := s.repository.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, &InvoiceServiceError{Op: "list_invoices", Err: err}
	}
	return result, nil
}
