package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/raflianugrah/invoice-manager-service/internal/domain"
	"github.com/raflianugrah/invoice-manager-service/internal/imageutil"
	"github.com/raflianugrah/invoice-manager-service/internal/logger"
	"github.com/raflianugrah/invoice-manager-service/internal/model"
	"github.com/raflianugrah/invoice-manager-service/internal/service"
	"github.com/raflianugrah/invoice-manager-service/internal/storage"
)

// assetFields are the form fields that may carry image uploads
var assetFields = []string{"logoImage", "stampImage", "signatureImage"}

// InvoiceHandler handles HTTP requests for invoice operations
type InvoiceHandler struct {
	invoiceService    service.InvoiceService
	generationService *service.GenerationService
	assetStore        *storage.AssetStore // nil when asset storage is not configured
	log               zerolog.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoiceService service.InvoiceService, generationService *service.GenerationService, assetStore *storage.AssetStore) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService:    invoiceService,
		generationService: generationService,
		assetStore:        assetStore,
		log:               logger.WithComponent("invoice-handler"),
	}
}

// RegisterRoutes registers invoice routes
func (h *InvoiceHandler) RegisterRoutes(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	api := router.Group("/v1")

	// Invoice endpoints - all protected with auth
	invoices := api.Group("/invoices", authMiddleware)
	{
		invoices.POST("", h.CreateInvoice)
		invoices.GET("", h.ListInvoices)
		invoices.POST("/generate", h.GenerateInvoice)
		invoices.GET(":id", h.GetInvoice)
		invoices.PUT(":id", h.UpdateInvoice)
		invoices.DELETE(":id", h.DeleteInvoice)
	}
}

// respondServiceError maps service-layer errors onto the HTTP outcome classes
func (h *InvoiceHandler) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondNotFound(c, ErrResourceNotFound)
	case errors.Is(err, domain.ErrForbidden):
		respondForbidden(c, ErrNotYourResource)
	case errors.Is(err, domain.ErrDuplicateInvoiceNumber):
		respondConflict(c, ErrDuplicateNumber)
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("invoice operation failed")
		respondInternalServerError(c, ErrInternalServer)
	}
}

// uploadAssets stores any uploaded asset images and returns their URLs.
// Fields without an upload stay empty, which later leaves the stored
// values untouched.
func (h *InvoiceHandler) uploadAssets(c *gin.Context) (service.AssetURLs, error) {
	var assets service.AssetURLs
	if !isMultipart(c) || h.assetStore == nil {
		return assets, nil
	}

	urls := map[string]*string{
		"logoImage":      &assets.LogoURL,
		"stampImage":     &assets.StampURL,
		"signatureImage": &assets.SignatureURL,
	}

	for _, field := range assetFields {
		data, err := readFormFile(c, field)
		if err != nil {
			return assets, err
		}
		if data == nil {
			continue
		}

		resized, err := imageutil.Downscale(data, imageutil.MaxAssetDimension)
		if err != nil {
			return assets, fmt.Errorf("%s: %w", field, err)
		}

		key := fmt.Sprintf("%s_%d.png", field, time.Now().UnixNano())
		url, err := h.assetStore.UploadAsset(resized, key)
		if err != nil {
			return assets, fmt.Errorf("%s: %w", field, err)
		}
		*urls[field] = url
	}

	return assets, nil
}

// CreateInvoice handles the POST /invoices endpoint
// @Summary Create an invoice
// @Description Create an invoice; accepts JSON or multipart form data with optional logo/stamp/signature images
// @Tags invoices
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} domain.Invoice "Invoice created"
// @Failure 400 {object} model.ErrorResponse "Invalid input"
// @Failure 401 {object} model.ErrorResponse "Unauthorized"
// @Failure 409 {object} model.ErrorResponse "Duplicate invoice number"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /v1/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondUnauthorized(c, "User not authenticated")
		return
	}

	input, err := bindInvoiceInput(c)
	if err != nil {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("body", err.Error()))
		return
	}

	draft, err := draftFromInput(userID, input)
	if err != nil {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("date", err.Error()))
		return
	}

	assets, err := h.uploadAssets(c)
	if err != nil {
		h.log.Error().Err(err).Msg("asset upload failed")
		respondInternalServerError(c, ErrInternalServer)
		return
	}
	draft.LogoURL = assets.LogoURL
	draft.StampURL = assets.StampURL
	draft.SignatureURL = assets.SignatureURL

	created, err := h.invoiceService.Create(c.Request.Context(), draft)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	respondCreated(c, created)
}

// GetInvoice handles the GET /invoices/:id endpoint
// @Summary Get an invoice
// @Description Retrieve one of the caller's invoices by ID or invoice number
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID or invoice number"
// @Success 200 {object} domain.Invoice "Invoice"
// @Failure 401 {object} model.ErrorResponse "Unauthorized"
// @Failure 403 {object} model.ErrorResponse "Not the owner"
// @Failure 404 {object} model.ErrorResponse "Not found"
// @Security BearerAuth
// @Router /v1/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondUnauthorized(c, "User not authenticated")
		return
	}

	invoice, err := h.invoiceService.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	respondOK(c, invoice)
}

// ListInvoices handles the GET /invoices endpoint
// @Summary List invoices
// @Description List the caller's invoices with optional filters
// @Tags invoices
// @Produce json
// @Param status query string false "Exact status filter"
// @Param invoiceNumber query string false "Exact invoice number filter"
// @Param search query string false "Case-insensitive substring search across number and client fields"
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 20)"
// @Success 200 {object} domain.PaginatedInvoices "Invoices"
// @Failure 401 {object} model.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /v1/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondUnauthorized(c, "User not authenticated")
		return
	}

	page, err := getQueryInt(c, "page", 1)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	limit, err := getQueryInt(c, "limit", 20)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	filter := domain.InvoiceFilter{
		Status:        c.Query("status"),
		InvoiceNumber: c.Query("invoiceNumber"),
		Search:        c.Query("search"),
		Page:          page,
		Limit:         limit,
	}

	result, err := h.invoiceService.List(c.Request.Context(), userID, filter)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	respondOK(c, result)
}

// UpdateInvoice handles the PUT /invoices/:id endpoint
// @Summary Update an invoice
// @Description Update one of the caller's invoices; totals are recomputed, the invoice number is immutable
// @Tags invoices
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Invoice ID or invoice number"
// @Success 200 {object} domain.Invoice "Updated invoice"
// @Failure 400 {object} model.ErrorResponse "Invalid input"
// @Failure 401 {object} model.ErrorResponse "Unauthorized"
// @Failure 403 {object} model.ErrorResponse "Not the owner"
// @Failure 404 {object} model.ErrorResponse "Not found"
// @Security BearerAuth
// @Router /v1/invoices/{id} [put]
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondUnauthorized(c, "User not authenticated")
		return
	}

	input, err := bindInvoiceInput(c)
	if err != nil {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("body", err.Error()))
		return
	}

	draft, err := draftFromInput(userID, input)
	if err != nil {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("date", err.Error()))
		return
	}

	assets, err := h.uploadAssets(c)
	if err != nil {
		h.log.Error().Err(err).Msg("asset upload failed")
		respondInternalServerError(c, ErrInternalServer)
		return
	}

	updated, err := h.invoiceService.Update(c.Request.Context(), userID, c.Param("id"), draft, assets)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	respondOK(c, updated)
}

// DeleteInvoice handles the DELETE /invoices/:id endpoint
// @Summary Delete an invoice
// @Description Delete one of the caller's invoices
// @Tags invoices
// @Param id path string true "Invoice ID or invoice number"
// @Success 204 "Deleted"
// @Failure 401 {object} model.ErrorResponse "Unauthorized"
// @Failure 403 {object} model.ErrorResponse "Not the owner"
// @Failure 404 {object} model.ErrorResponse "Not found"
// @Security BearerAuth
// @Router /v1/invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondUnauthorized(c, "User not authenticated")
		return
	}

	if err := h.invoiceService.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.respondServiceError(c, err)
		return
	}

	respondNoContent(c)
}

// GenerateInvoice handles the POST /invoices/generate endpoint
// @Summary Generate an invoice draft from text
// @Description Turn a free-form description into an invoice draft using the configured generation backends; set save=true to persist it through the normal create path
// @Tags invoices
// @Accept json
// @Produce json
// @Param request body model.GenerateInvoiceRequest true "Prompt"
// @Success 200 {object} model.GenerateInvoiceResponse "Draft generated"
// @Success 201 {object} model.GenerateInvoiceResponse "Draft generated and saved"
// @Failure 400 {object} model.ErrorResponse "Missing prompt"
// @Failure 401 {object} model.ErrorResponse "Unauthorized"
// @Failure 502 {object} model.ErrorResponse "Generation backends unavailable or produced unusable output"
// @Security BearerAuth
// @Router /v1/invoices/generate [post]
func (h *InvoiceHandler) GenerateInvoice(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondUnauthorized(c, "User not authenticated")
		return
	}

	var req model.GenerateInvoiceRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput)
		return
	}
	if req.Prompt == "" {
		respondBadRequest(c, "Prompt is required", newErrorDetail("prompt", "must not be empty"))
		return
	}

	input, backendUsed, err := h.generationService.GenerateDraft(c.Request.Context(), req.Prompt)
	if err != nil {
		h.respondGenerationError(c, err)
		return
	}

	draft, err := draftFromInput(userID, input)
	if err != nil {
		// the dates came from the model, not the caller
		respondBadGateway(c, "Generated draft has invalid fields: "+err.Error(), "")
		return
	}

	if !req.Save {
		draft.Totals = service.ComputeTotals(draft.Items, draft.TaxPercent)
		draft.Status = domain.NormalizeStatus(draft.Status)
		respondOK(c, model.GenerateInvoiceResponse{
			Invoice:     draft,
			BackendUsed: backendUsed,
		})
		return
	}

	created, err := h.invoiceService.Create(c.Request.Context(), draft)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	respondCreated(c, model.GenerateInvoiceResponse{
		Invoice:     created,
		BackendUsed: backendUsed,
		Saved:       true,
	})
}

// respondGenerationError maps pipeline failures onto 502 outcomes,
// attaching raw backend text when extraction or parsing failed
func (h *InvoiceHandler) respondGenerationError(c *gin.Context, err error) {
	var upstreamErr *domain.UpstreamError
	switch {
	case errors.As(err, &upstreamErr):
		h.log.Warn().Err(err).Msg("generation output not usable")
		respondBadGateway(c, upstreamErr.Kind.Error(), upstreamErr.RawText)
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		h.log.Warn().Err(err).Msg("all generation backends failed")
		respondBadGateway(c, ErrGeneration, "")
	default:
		h.log.Error().Err(err).Msg("generation failed")
		respondInternalServerError(c, ErrInternalServer)
	}
}
