package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/jmjalil96/claimsdesk/internal/models"
	"github.com/jmjalil96/claimsdesk/internal/scope"
	apperrors "github.com/jmjalil96/claimsdesk/pkg/errors"
)

// ErrAffiliateNotFound covers absent and out-of-scope affiliates alike.
var ErrAffiliateNotFound = apperrors.New("AFFILIATE_NOT_FOUND", "Affiliate not found", http.StatusNotFound)

// AffiliateService reads and maintains affiliate profile records.
type AffiliateService struct {
	db    *gorm.DB
	audit *AuditService
}

func NewAffiliateService(db *gorm.DB, audit *AuditService) (*AffiliateService, error) {
	if db == nil {
		return nil, errors.New("affiliate service: db is required")
	}
	return &AffiliateService{db: db, audit: audit}, nil
}

// AffiliateListOptions paginates affiliate listings.
type AffiliateListOptions struct {
	ClientID string
	Page     int
	PageSize int
}

// List returns the affiliates visible to the scope.
func (s *AffiliateService) List(ctx context.Context, sc scope.Scope, opts AffiliateListOptions) ([]models.Affiliate, int64, error) {
	page, perPage := normalisePage(opts.Page, opts.PageSize)

	query := scope.AffiliatesWhere(s.db.WithContext(ctx).Model(&models.Affiliate{}), sc)
	if opts.ClientID != "" {
		query = query.Where("affiliates.client_id = ?", opts.ClientID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("affiliate service: count affiliates: %w", err)
	}

	var affiliates []models.Affiliate
	if err := query.
		Preload("Client").
		Order("affiliates.name ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&affiliates).Error; err != nil {
		return nil, 0, fmt.Errorf("affiliate service: list affiliates: %w", err)
	}

	return affiliates, total, nil
}

// Get fetches one affiliate within scope. Out-of-scope ids read as absent.
func (s *AffiliateService) Get(ctx context.Context, sc scope.Scope, id string) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := scope.AffiliatesWhere(s.db.WithContext(ctx).Model(&models.Affiliate{}), sc).
		Preload("Client").
		Take(&affiliate, "affiliates.id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAffiliateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("affiliate service: load affiliate: %w", err)
	}
	return &affiliate, nil
}

// CreateAffiliateInput registers a new affiliate profile.
type CreateAffiliateInput struct {
	Name     string
	Email    string
	Phone    string
	TaxID    string
	ClientID *string
	ActorID  string
}

// Create registers an affiliate profile record. Only UNLIMITED scopes may
// create affiliates.
func (s *AffiliateService) Create(ctx context.Context, sc scope.Scope, input CreateAffiliateInput) (*models.Affiliate, error) {
	if sc.Kind != models.ScopeUnlimited {
		return nil, apperrors.ErrForbidden
	}

	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}

	affiliate := &models.Affiliate{
		Name:     name,
		Email:    email,
		Phone:    strings.TrimSpace(input.Phone),
		TaxID:    strings.TrimSpace(input.TaxID),
		IsActive: true,
		ClientID: input.ClientID,
	}

	if err := s.db.WithContext(ctx).Create(affiliate).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("affiliate email already exists")
		}
		return nil, fmt.Errorf("affiliate service: create affiliate: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		ActorID:    optionalID(input.ActorID),
		Action:     "affiliate.create",
		Resource:   "affiliate",
		ResourceID: affiliate.ID,
		Result:     "success",
		Metadata:   map[string]any{"name": affiliate.Name},
	})

	return affiliate, nil
}
