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

// ClaimHandler serves scoped claim operations.
type ClaimHandler struct {
	claims   *services.ClaimService
	resolver *scope.Resolver
}

func NewClaimHandler(claims *services.ClaimService, resolver *scope.Resolver) *ClaimHandler {
	return &ClaimHandler{claims: claims, resolver: resolver}
}

// GET /api/claims
func (h *ClaimHandler) List(c *gin.Context) {
	sc, ok := resolveScope(c, h.resolver)
	if !ok {
		return
	}

	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	claims, total, err := h.claims.List(requestContext(c), sc, services.ClaimListOptions{
		Status:   models.ClaimStatus(c.Query("status")),
		ClientID: c.Query("client_id"),
		Page:     page,
		PageSize: perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, claims, paginationMeta(page, perPage, total))
}

// GET /api/claims/:id
func (h *ClaimHandler) Get(c *gin.Context) {
	sc, ok := resolveScope(c, h.resolver)
	if !ok {
		return
	}

	claim, err := h.claims.Get(requestContext(c), sc, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, claim)
}

type createClaimRequest struct {
	ClientID      string     `json:"client_id" validate:"required"`
	AffiliateID   *string    `json:"affiliate_id"`
	Description   string     `json:"description" validate:"max=2000"`
	AmountClaimed float64    `json:"amount_claimed" validate:"gte=0"`
	ReportedAt    *time.Time `json:"reported_at"`
}

// POST /api/claims
func (h *ClaimHandler) Create(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	sc, ok := resolveScope(c, h.resolver)
	if !ok {
		return
	}

	var req createClaimRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.CreateClaimInput{
		ClientID:      req.ClientID,
		AffiliateID:   req.AffiliateID,
		Description:   req.Description,
		AmountClaimed: req.AmountClaimed,
		ActorID:       principal.User.ID,
	}
	if req.ReportedAt != nil {
		input.ReportedAt = *req.ReportedAt
	}

	claim, err := h.claims.Create(requestContext(c), sc, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, claim)
}

type updateClaimRequest struct {
	Status         *string  `json:"status" validate:"omitempty,claim_status"`
	Description    *string  `json:"description" validate:"omitempty,max=2000"`
	AmountApproved *float64 `json:"amount_approved" validate:"omitempty,gte=0"`
}

// PATCH /api/claims/:id
func (h *ClaimHandler) Update(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	sc, ok := resolveScope(c, h.resolver)
	if !ok {
		return
	}

	var req updateClaimRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.UpdateClaimInput{
		Description:    req.Description,
		AmountApproved: req.AmountApproved,
		ActorID:        principal.User.ID,
	}
	if req.Status != nil {
		status := models.ClaimStatus(*req.Status)
		input.Status = &status
	}

	claim, err := h.claims.Update(requestContext(c), sc, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, claim)
}
