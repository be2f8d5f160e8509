package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jmjalil96/claimsdesk/internal/scope"
	"github.com/jmjalil96/claimsdesk/internal/services"
	"github.com/jmjalil96/claimsdesk/pkg/response"
)

// AffiliateHandler serves scoped affiliate operations.
type AffiliateHandler struct {
	affiliates *services.AffiliateService
	resolver   *scope.Resolver
}

func NewAffiliateHandler(affiliates *services.AffiliateService, resolver *scope.Resolver) *AffiliateHandler {
	return &AffiliateHandler{affiliates: affiliates, resolver: resolver}
}

// GET /api/affiliates
func (h *AffiliateHandler) List(c *gin.Context) {
	sc, ok := resolveScope(c, h.resolver)
	if !ok {
		return
	}

	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	affiliates, total, err := h.affiliates.List(requestContext(c), sc, services.AffiliateListOptions{
		ClientID: c.Query("client_id"),
		Page:     page,
		PageSize: perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, affiliates, paginationMeta(page, perPage, total))
}

// GET /api/affiliates/:id
func (h *AffiliateHandler) Get(c *gin.Context) {
	sc, ok := resolveScope(c, h.resolver)
	if !ok {
		return
	}

	affiliate, err := h.affiliates.Get(requestContext(c), sc, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, affiliate)
}

type createAffiliateRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    string  `json:"phone" validate:"max=40"`
	TaxID    string  `json:"tax_id" validate:"max=40"`
	ClientID *string `json:"client_id"`
}

// POST /api/affiliates
func (h *AffiliateHandler) Create(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	sc, ok := resolveScope(c, h.resolver)
	if !ok {
		return
	}

	var req createAffiliateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	affiliate, err := h.affiliates.Create(requestContext(c), sc, services.CreateAffiliateInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		TaxID:    req.TaxID,
		ClientID: req.ClientID,
		ActorID:  principal.User.ID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, affiliate)
}
