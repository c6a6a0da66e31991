package repository

import (
	"context"

	"github.com/raflianugrah/invoice-manager-service/internal/domain"
)

// InvoiceRepository defines the interface for invoice data storage operations
type InvoiceRepository interface {
	// ExistsByInvoiceNumber reports whether any invoice carries the exact number
	ExistsByInvoiceNumber(ctx context.Context, number string) (bool, error)

	// Insert persists a new invoice atomically. A unique-constraint
	// violation on the invoice number surfaces as
	// domain.ErrDuplicateInvoiceNumber with no durable write.
	Insert(ctx context.Context, invoice *domain.Invoice) (*domain.Invoice, error)

	// GetByIDOrNumber retrieves an invoice by primary key or by its
	// invoice number. Missing records surface as domain.ErrNotFound.
	GetByIDOrNumber(ctx context.Context, idOrNumber string) (*domain.Invoice, error)

	// Update replaces the mutable fields and item list of an invoice
	Update(ctx context.Context, invoice *domain.Invoice) (*domain.Invoice, error)

	// Delete removes an invoice and its items
	Delete(ctx context.Context, invoiceID string) error

	// ListByUser returns the user's invoices matching the filter
	ListByUser(ctx context.Context, userID string, filter domain.InvoiceFilter) (*domain.PaginatedInvoices, error)
}
