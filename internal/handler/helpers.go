package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raflianugrah/invoice-manager-service/internal/domain"
	"github.com/raflianugrah/invoice-manager-service/internal/model"
)

// currentUserID returns the authenticated user set by the auth middleware
func currentUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok && id != ""
}

// bindJSON binds the request body to the given object
func bindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// getQueryInt retrieves an integer query parameter with a default value
func getQueryInt(c *gin.Context, paramName string, defaultValue int) (int, error) {
	valueStr := c.Query(paramName)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be an integer", paramName)
	}

	return value, nil
}

// parseDate parses a date string in YYYY-MM-DD format; empty input is a
// zero time, not an error
func parseDate(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, nil
	}

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: expected YYYY-MM-DD")
	}

	return date, nil
}

// bindInvoiceInput reads an invoice payload from either a JSON body or a
// multipart form. Multipart requests carry scalar fields as form values
// and the item list as a JSON-encoded "items" field, alongside the
// optional asset files.
func bindInvoiceInput(c *gin.Context) (*model.InvoiceInput, error) {
	if !isMultipart(c) {
		var input model.InvoiceInput
		if err := bindJSON(c, &input); err != nil {
			return nil, err
		}
		return &input, nil
	}

	input := &model.InvoiceInput{
		InvoiceNumber: c.PostForm("invoiceNumber"),
		Status:        c.PostForm("status"),
		ClientName:    c.PostForm("clientName"),
		ClientEmail:   c.PostForm("clientEmail"),
		ClientAddress: c.PostForm("clientAddress"),
		IssueDate:     c.PostForm("issueDate"),
		DueDate:       c.PostForm("dueDate"),
		Currency:      c.PostForm("currency"),
		Notes:         c.PostForm("notes"),
	}

	// Non-numeric tax rates coerce to 0, matching the JSON path
	if v, err := strconv.ParseFloat(c.PostForm("taxPercent"), 64); err == nil {
		input.TaxPercent = model.FlexFloat(v)
	}

	if itemsJSON := c.PostForm("items"); itemsJSON != "" {
		if err := json.Unmarshal([]byte(itemsJSON), &input.Items); err != nil {
			return nil, fmt.Errorf("invalid items field: %w", err)
		}
	}

	return input, nil
}

// isMultipart reports whether the request carries a multipart form
func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/form-data")
}

// draftFromInput converts a bound payload into a domain draft. Date
// fields are validated here; everything numeric was already coerced by
// the DTO layer.
func draftFromInput(userID string, input *model.InvoiceInput) (*domain.Invoice, error) {
	issueDate, err := parseDate(input.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("issueDate: %w", err)
	}
	dueDate, err := parseDate(input.DueDate)
	if err != nil {
		return nil, fmt.Errorf("dueDate: %w", err)
	}

	draft := domain.NewInvoice()
	draft.UserID = userID
	draft.InvoiceNumber = input.InvoiceNumber
	draft.Status = input.Status
	draft.ClientName = strings.TrimSpace(input.ClientName)
	draft.ClientEmail = strings.TrimSpace(input.ClientEmail)
	draft.ClientAddress = input.ClientAddress
	draft.IssueDate = issueDate
	draft.DueDate = dueDate
	draft.Items = input.DomainItems()
	draft.TaxPercent = float64(input.TaxPercent)
	draft.Notes = input.Notes
	if input.Currency != "" {
		draft.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	}

	return draft, nil
}

// readFormFile reads an uploaded file's bytes by field name; a missing
// file is (nil, nil)
func readFormFile(c *gin.Context, fieldName string) ([]byte, error) {
	file, _, err := c.Request.FormFile(fieldName)
	if err != nil {
		return nil, nil
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fieldName, err)
	}
	return data, nil
}
