package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raflianugrah/invoice-manager-service/internal/database"
	"github.com/raflianugrah/invoice-manager-service/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for unique-constraint violations
const uniqueViolation = "23505"

// PostgresInvoiceRepository implements InvoiceRepository using PostgreSQL
type PostgresInvoiceRepository struct {
	db   *database.PostgresDB
	pool *pgxpool.Pool
}

// NewPostgresInvoiceRepository creates a new PostgreSQL invoice repository
func NewPostgresInvoiceRepository(db *database.PostgresDB) *PostgresInvoiceRepository {
	return &PostgresInvoiceRepository{
		db:   db,
		pool: db.GetPool(),
	}
}

// ExistsByInvoiceNumber reports whether the exact invoice number is taken
func (r *PostgresInvoiceRepository) ExistsByInvoiceNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM invoices WHERE invoice_number = $1)
	`, number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check invoice number: %w", err)
	}
	return exists, nil
}

// isInvoiceNumberConflict reports whether err is the unique-constraint
// violation on the invoice_number index specifically
func isInvoiceNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation && strings.Contains(pgErr.ConstraintName, "invoice_number")
	}
	return false
}

// Insert saves a new invoice and its items in one transaction
func (r *PostgresInvoiceRepository) Insert(ctx context.Context, invoice *domain.Invoice) (*domain.Invoice, error) {
	err := r.db.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO invoices (
				user_id, invoice_number, status, client_name, client_email, client_address,
				issue_date, due_date, tax_percent, subtotal, tax, total,
				currency, notes, logo_url, stamp_url, signature_url
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			RETURNING id, created_at, updated_at
		`,
			invoice.UserID, invoice.InvoiceNumber, invoice.Status,
			invoice.ClientName, invoice.ClientEmail, invoice.ClientAddress,
			invoice.IssueDate, invoice.DueDate, invoice.TaxPercent,
			invoice.Totals.Subtotal, invoice.Totals.Tax, invoice.Totals.Total,
			invoice.Currency, invoice.Notes,
			invoice.LogoURL, invoice.StampURL, invoice.SignatureURL,
		).Scan(&invoice.ID, &invoice.CreatedAt, &invoice.UpdatedAt)
		if err != nil {
			if isInvoiceNumberConflict(err) {
				return domain.ErrDuplicateInvoiceNumber
			}
			return fmt.Errorf("failed to insert invoice: %w", err)
		}

		return r.insertItems(ctx, tx, invoice.ID, invoice.Items)
	})
	if err != nil {
		return nil, err
	}

	return invoice, nil
}

// insertItems writes the item list for an invoice inside the given transaction
func (r *PostgresInvoiceRepository) insertItems(ctx context.Context, tx pgx.Tx, invoiceID string, items []domain.LineItem) error {
	for i := range items {
		item := &items[i]
		err := tx.QueryRow(ctx, `
			INSERT INTO invoice_items (invoice_id, position, description, qty, unit_price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, invoiceID, i, item.Description, item.Quantity, item.UnitPrice).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert invoice item: %w", err)
		}
	}
	return nil
}

// GetByIDOrNumber retrieves an invoice by primary key or invoice number
func (r *PostgresInvoiceRepository) GetByIDOrNumber(ctx context.Context, idOrNumber string) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, invoice_number, status, client_name, client_email, client_address,
		       issue_date, due_date, tax_percent, subtotal, tax, total,
		       currency, notes, logo_url, stamp_url, signature_url, created_at, updated_at
		FROM invoices
		WHERE id::text = $1 OR invoice_number = $1
	`, idOrNumber).Scan(
		&invoice.ID, &invoice.UserID, &invoice.InvoiceNumber, &invoice.Status,
		&invoice.ClientName, &invoice.ClientEmail, &invoice.ClientAddress,
		&invoice.IssueDate, &invoice.DueDate, &invoice.TaxPercent,
		&invoice.Totals.Subtotal, &invoice.Totals.Tax, &invoice.Totals.Total,
		&invoice.Currency, &invoice.Notes,
		&invoice.LogoURL, &invoice.StampURL, &invoice.SignatureURL,
		&invoice.CreatedAt, &invoice.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	items, err := r.loadItems(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	invoice.Items = items

	return &invoice, nil
}

// loadItems reads the item list for one invoice
func (r *PostgresInvoiceRepository) loadItems(ctx context.Context, invoiceID string) ([]domain.LineItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, description, qty, unit_price
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY position
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice items: %w", err)
	}
	defer rows.Close()

	items := []domain.LineItem{}
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ID, &item.Description, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice items: %w", err)
	}

	return items, nil
}

// Update replaces the mutable fields of an invoice and rewrites its items
func (r *PostgresInvoiceRepository) Update(ctx context.Context, invoice *domain.Invoice) (*domain.Invoice, error) {
	err := r.db.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE invoices
			SET status = $2, client_name = $3, client_email = $4, client_address = $5,
			    issue_date = $6, due_date = $7, tax_percent = $8,
			    subtotal = $9, tax = $10, total = $11,
			    currency = $12, notes = $13,
			    logo_url = $14, stamp_url = $15, signature_url = $16,
			    updated_at = NOW()
			WHERE id = $1
		`,
			invoice.ID, invoice.Status,
			invoice.ClientName, invoice.ClientEmail, invoice.ClientAddress,
			invoice.IssueDate, invoice.DueDate, invoice.TaxPercent,
			invoice.Totals.Subtotal, invoice.Totals.Tax, invoice.Totals.Total,
			invoice.Currency, invoice.Notes,
			invoice.LogoURL, invoice.StampURL, invoice.SignatureURL,
		)
		if err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}

		// Rewrite the item list wholesale
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoice.ID); err != nil {
			return fmt.Errorf("failed to clear invoice items: %w", err)
		}
		return r.insertItems(ctx, tx, invoice.ID, invoice.Items)
	})
	if err != nil {
		return nil, err
	}

	return r.GetByIDOrNumber(ctx, invoice.ID)
}

// Delete removes an invoice; items cascade at the schema level
func (r *PostgresInvoiceRepository) Delete(ctx context.Context, invoiceID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByUser returns a page of the user's invoices matching the filter
func (r *PostgresInvoiceRepository) ListByUser(ctx context.Context, userID string, filter domain.InvoiceFilter) (*domain.PaginatedInvoices, error) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.InvoiceNumber != "" {
		args = append(args, filter.InvoiceNumber)
		conditions = append(conditions, fmt.Sprintf("invoice_number = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(invoice_number ILIKE $%d OR client_name ILIKE $%d OR client_email ILIKE $%d)", n, n, n))
	}

	where := strings.Join(conditions, " AND ")

	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT id, user_id, invoice_number, status, client_name, client_email, client_address,
		       issue_date, due_date, tax_percent, subtotal, tax, total,
		       currency, notes, logo_url, stamp_url, signature_url, created_at, updated_at
		FROM invoices
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []domain.Invoice{}
	for rows.Next() {
		var invoice domain.Invoice
		if err := rows.Scan(
			&invoice.ID, &invoice.UserID, &invoice.InvoiceNumber, &invoice.Status,
			&invoice.ClientName, &invoice.ClientEmail, &invoice.ClientAddress,
			&invoice.IssueDate, &invoice.DueDate, &invoice.TaxPercent,
			&invoice.Totals.Subtotal, &invoice.Totals.Tax, &invoice.Totals.Total,
			&invoice.Currency, &invoice.Notes,
			&invoice.LogoURL, &invoice.StampURL, &invoice.SignatureURL,
			&invoice.CreatedAt, &invoice.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}

	// Attach items per invoice; list pages are small enough for N queries
	for i := range invoices {
		items, err := r.loadItems(ctx, invoices[i].ID)
		if err != nil {
			return nil, err
		}
		invoices[i].Items = items
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	return &domain.PaginatedInvoices{
		Data: invoices,
		Pagination: domain.Pagination{
			TotalItems:  total,
			TotalPages:  totalPages,
			CurrentPage: page,
			Limit:       limit,
		},
	}, nil
}
