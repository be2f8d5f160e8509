package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jmjalil96/claimsdesk/internal/models"
	"github.com/jmjalil96/claimsdesk/internal/services"
	"github.com/jmjalil96/claimsdesk/pkg/response"
)

// InvitationHandler exposes the invitation lifecycle. Validate and Accept are
// public endpoints; the rest sit behind invitation permissions.
type InvitationHandler struct {
	invitations *services.InvitationService
}

func NewInvitationHandler(invitations *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

type createInvitationRequest struct {
	RoleID        string `json:"role_id" validate:"required"`
	ProfileKind   string `json:"profile_kind" validate:"required,profile_kind"`
	ProfileID     string `json:"profile_id" validate:"required"`
	EmailOverride string `json:"email_override" validate:"omitempty,email"`
}

// POST /api/invitations
func (h *InvitationHandler) Create(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var req createInvitationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	issued, err := h.invitations.Create(requestContext(c), services.CreateInvitationInput{
		RoleID: req.RoleID,
		Profile: models.ProfileRef{
			Kind: models.ProfileKind(req.ProfileKind),
			ID:   req.ProfileID,
		},
		EmailOverride: req.EmailOverride,
		InvitedBy:     principal.User.ID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, invitationPayload(issued.Invitation, h.invitations))
}

// GET /api/invitations/validate?token=
func (h *InvitationHandler) Validate(c *gin.Context) {
	invitation, err := h.invitations.ValidateToken(requestContext(c), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	// Deliberately minimal: enough for the accept form, nothing more.
	payload := gin.H{
		"email":      invitation.Email,
		"expires_at": invitation.ExpiresAt,
	}
	if invitation.Role != nil {
		payload["role"] = invitation.Role.DisplayName
	}
	response.Success(c, http.StatusOK, payload)
}

type acceptInvitationRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// POST /api/auth/invitations/accept
func (h *InvitationHandler) Accept(c *gin.Context) {
	var req acceptInvitationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	accepted, err := h.invitations.Accept(requestContext(c), services.AcceptInvitationInput{
		Token:     req.Token,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	setSessionCookie(c, accepted.Session.Token, accepted.Session.Session.ExpiresAt)

	response.Success(c, http.StatusCreated, gin.H{
		"user":       userPayload(accepted.User),
		"expires_at": accepted.Session.Session.ExpiresAt,
	})
}

// POST /api/invitations/:id/resend
func (h *InvitationHandler) Resend(c *gin.Context) {
	issued, err := h.invitations.Resend(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, invitationPayload(issued.Invitation, h.invitations))
}

// GET /api/invitations
func (h *InvitationHandler) List(c *gin.Context) {
	invitations, err := h.invitations.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	payloads := make([]gin.H, 0, len(invitations))
	for i := range invitations {
		payloads = append(payloads, invitationPayload(&invitations[i], h.invitations))
	}
	response.Success(c, http.StatusOK, payloads)
}

func invitationPayload(invitation *models.Invitation, svc *services.InvitationService) gin.H {
	ref := invitation.ProfileRef()
	payload := gin.H{
		"id":           invitation.ID,
		"email":        invitation.Email,
		"role_id":      invitation.RoleID,
		"profile_kind": string(ref.Kind),
		"profile_id":   ref.ID,
		"status":       string(svc.StatusOf(invitation)),
		"expires_at":   invitation.ExpiresAt,
		"created_at":   invitation.CreatedAt,
	}
	if invitation.AcceptedAt != nil {
		payload["accepted_at"] = invitation.AcceptedAt
	}
	return payload
}
