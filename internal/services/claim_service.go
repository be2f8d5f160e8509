package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmjalil96/claimsdesk/internal/models"
	"github.com/jmjalil96/claimsdesk/internal/scope"
	apperrors "github.com/jmjalil96/claimsdesk/pkg/errors"
)

// ErrClaimNotFound covers both absent claims and claims outside the caller's
// scope, so a by-id probe cannot reveal that a record exists.
var ErrClaimNotFound = apperrors.New("CLAIM_NOT_FOUND", "Claim not found", http.StatusNotFound)

// ClaimService manages claims under the caller's resolved scope.
type ClaimService struct {
	db    *gorm.DB
	audit *AuditService
	now   func() time.Time
}

func NewClaimService(db *gorm.DB, audit *AuditService) (*ClaimService, error) {
	if db == nil {
		return nil, errors.New("claim service: db is required")
	}
	return &ClaimService{db: db, audit: audit, now: time.Now}, nil
}

// ClaimListOptions filters and paginates claim listings.
type ClaimListOptions struct {
	Status   models.ClaimStatus
	ClientID string
	Page     int
	PageSize int
}

// List returns the claims visible to the scope, newest-first.
func (s *ClaimService) List(ctx context.Context, sc scope.Scope, opts ClaimListOptions) ([]models.Claim, int64, error) {
	page, perPage := normalisePage(opts.Page, opts.PageSize)

	query := scope.ClaimsWhere(s.db.WithContext(ctx).Model(&models.Claim{}), sc)
	if opts.Status != "" {
		query = query.Where("claims.status = ?", opts.Status)
	}
	if opts.ClientID != "" {
		query = query.Where("claims.client_id = ?", opts.ClientID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("claim service: count claims: %w", err)
	}

	var claims []models.Claim
	if err := query.
		Preload("Client").
		Preload("Affiliate").
		Order("claims.created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&claims).Error; err != nil {
		return nil, 0, fmt.Errorf("claim service: list claims: %w", err)
	}

	return claims, total, nil
}

// Get fetches one claim within scope. Out-of-scope ids read as absent.
func (s *ClaimService) Get(ctx context.Context, sc scope.Scope, id string) (*models.Claim, error) {
	var claim models.Claim
	err := scope.ClaimsWhere(s.db.WithContext(ctx).Model(&models.Claim{}), sc).
		Preload("Client").
		Preload("Affiliate").
		Take(&claim, "claims.id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClaimNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("claim service: load claim: %w", err)
	}
	return &claim, nil
}

// CreateClaimInput captures a new claim filing.
type CreateClaimInput struct {
	ClientID      string
	AffiliateID   *string
	Description   string
	AmountClaimed float64
	ReportedAt    time.Time
	ActorID       string
}

// Create files a claim. Restricted scopes may only file within their own
// client set; SELF-scoped affiliates always file as themselves.
func (s *ClaimService) Create(ctx context.Context, sc scope.Scope, input CreateClaimInput) (*models.Claim, error) {
	clientID := strings.TrimSpace(input.ClientID)
	if clientID == "" {
		return nil, apperrors.NewBadRequest("client is required")
	}

	affiliateID := input.AffiliateID

	switch sc.Kind {
	case models.ScopeClient:
		if !containsString(sc.ClientIDs, clientID) {
			return nil, apperrors.ErrForbidden
		}
	case models.ScopeSelf:
		if sc.Profile.Kind != models.ProfileAffiliate || sc.Profile.ID == "" {
			return nil, apperrors.ErrForbidden
		}
		own := sc.Profile.ID
		affiliateID = &own

		var affiliate models.Affiliate
		if err := s.db.WithContext(ctx).Take(&affiliate, "id = ?", own).Error; err != nil {
			return nil, fmt.Errorf("claim service: load affiliate: %w", err)
		}
		if affiliate.ClientID == nil || *affiliate.ClientID != clientID {
			return nil, apperrors.ErrForbidden
		}
	}

	var client models.Client
	err := s.db.WithContext(ctx).Take(&client, "id = ?", clientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewBadRequest("unknown client")
	}
	if err != nil {
		return nil, fmt.Errorf("claim service: load client: %w", err)
	}

	reportedAt := input.ReportedAt
	if reportedAt.IsZero() {
		reportedAt = s.now()
	}

	claim := &models.Claim{
		ClaimNumber:   newClaimNumber(s.now()),
		ClientID:      clientID,
		AffiliateID:   affiliateID,
		Status:        models.ClaimOpen,
		Description:   strings.TrimSpace(input.Description),
		AmountClaimed: input.AmountClaimed,
		ReportedAt:    reportedAt,
	}

	if err := s.db.WithContext(ctx).Create(claim).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("claim number already exists")
		}
		return nil, fmt.Errorf("claim service: create claim: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		ActorID:    optionalID(input.ActorID),
		Action:     "claim.create",
		Resource:   "claim",
		ResourceID: claim.ID,
		Result:     "success",
		Metadata:   map[string]any{"claim_number": claim.ClaimNumber, "client_id": clientID},
	})

	return claim, nil
}

// UpdateClaimInput describes mutable claim fields.
type UpdateClaimInput struct {
	Status         *models.ClaimStatus
	Description    *string
	AmountApproved *float64
	ActorID        string
}

// Update modifies a claim within scope.
func (s *ClaimService) Update(ctx context.Context, sc scope.Scope, id string, input UpdateClaimInput) (*models.Claim, error) {
	claim, err := s.Get(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Status != nil {
		status := *input.Status
		switch status {
		case models.ClaimOpen, models.ClaimReview, models.ClaimApproved, models.ClaimRejected, models.ClaimClosed:
		default:
			return nil, apperrors.NewBadRequest("unknown claim status")
		}
		updates["status"] = status
		if status == models.ClaimClosed {
			updates["closed_at"] = s.now()
		}
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.AmountApproved != nil {
		updates["amount_approved"] = *input.AmountApproved
	}

	if len(updates) == 0 {
		return claim, nil
	}

	if err := s.db.WithContext(ctx).Model(claim).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("claim service: update claim: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		ActorID:    optionalID(input.ActorID),
		Action:     "claim.update",
		Resource:   "claim",
		ResourceID: claim.ID,
		Result:     "success",
	})

	return claim, nil
}

func newClaimNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("CLM-%d-%s", now.Year(), suffix)
}
