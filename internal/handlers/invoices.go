package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmjalil96/claimsdesk/internal/models"
	"github.com/jmjalil96/claimsdesk/internal/scope"
	"github.com/jmjalil96/claimsdesk/internal/services"
	"github.com/jmjalil96/claimsdesk/pkg/response"
)

// InvoiceHandler serves scoped invoice operations.
type InvoiceHandler struct {
	invoices *services.InvoiceService
	resolver *scope.Resolver
}

func NewInvoiceHandler(invoices *services.InvoiceService, resolver *scope.Resolver) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, resolver: resolver}
}

// GET /api/invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	sc, ok := resolveScope(c, h.resolver)
	if !ok {
		return
	}

	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	invoices, total, err := h.invoices.List(requestContext(c), sc, services.InvoiceListOptions{
		Status:   models.InvoiceStatus(c.Query("status")),
		ClaimID:  c.Query("claim_id"),
		Page:     page,
		PageSize: perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, invoices, paginationMeta(page, perPage, total))
}

// GET /api/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	sc, ok := resolveScope(c, h.resolver)
	if !ok {
		return
	}

	invoice, err := h.invoices.Get(requestContext(c), sc, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, invoice)
}

type createInvoiceRequest struct {
	ClaimID string     `json:"claim_id" validate:"required"`
	Amount  float64    `json:"amount" validate:"required,gt=0"`
	DueAt   *time.Time `json:"due_at"`
}

// POST /api/invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	sc, ok := resolveScope(c, h.resolver)
	if !ok {
		return
	}

	var req createInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}

	invoice, err := h.invoices.Create(requestContext(c), sc, services.CreateInvoiceInput{
		ClaimID: req.ClaimID,
		Amount:  req.Amount,
		DueAt:   req.DueAt,
		ActorID: principal.User.ID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, invoice)
}

type updateInvoiceRequest struct {
	Status *string  `json:"status" validate:"omitempty,oneof=draft submitted paid voided"`
	Amount *float64 `json:"amount" validate:"omitempty,gt=0"`
}

// PATCH /api/invoices/:id
func (h *InvoiceHandler) Update(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	sc, ok := resolveScope(c, h.resolver)
	if !ok {
		return
	}

	var req updateInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.UpdateInvoiceInput{
		Amount:  req.Amount,
		ActorID: principal.User.ID,
	}
	if req.Status != nil {
		status := models.InvoiceStatus(*req.Status)
		input.Status = &status
	}

	invoice, err := h.invoices.Update(requestContext(c), sc, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, invoice)
}
