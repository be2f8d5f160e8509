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

// ErrInvoiceNotFound covers absent and out-of-scope invoices alike.
var ErrInvoiceNotFound = apperrors.New("INVOICE_NOT_FOUND", "Invoice not found", http.StatusNotFound)

// InvoiceService manages invoices under the caller's resolved scope.
type InvoiceService struct {
	db    *gorm.DB
	audit *AuditService
	now   func() time.Time
}

func NewInvoiceService(db *gorm.DB, audit *AuditService) (*InvoiceService, error) {
	if db == nil {
		return nil, errors.New("invoice service: db is required")
	}
	return &InvoiceService{db: db, audit: audit, now: time.Now}, nil
}

// InvoiceListOptions filters and paginates invoice listings.
type InvoiceListOptions struct {
	Status   models.InvoiceStatus
	ClaimID  string
	Page     int
	PageSize int
}

// List returns the invoices visible to the scope, newest-first.
func (s *InvoiceService) List(ctx context.Context, sc scope.Scope, opts InvoiceListOptions) ([]models.Invoice, int64, error) {
	page, perPage := normalisePage(opts.Page, opts.PageSize)

	query := scope.InvoicesWhere(s.db.WithContext(ctx).Model(&models.Invoice{}), sc)
	if opts.Status != "" {
		query = query.Where("invoices.status = ?", opts.Status)
	}
	if opts.ClaimID != "" {
		query = query.Where("invoices.claim_id = ?", opts.ClaimID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("invoice service: count invoices: %w", err)
	}

	var invoices []models.Invoice
	if err := query.
		Preload("Claim").
		Preload("Affiliate").
		Order("invoices.created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&invoices).Error; err != nil {
		return nil, 0, fmt.Errorf("invoice service: list invoices: %w", err)
	}

	return invoices, total, nil
}

// Get fetches one invoice within scope. Out-of-scope ids read as absent.
func (s *InvoiceService) Get(ctx context.Context, sc scope.Scope, id string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := scope.InvoicesWhere(s.db.WithContext(ctx).Model(&models.Invoice{}), sc).
		Preload("Claim").
		Preload("Affiliate").
		Take(&invoice, "invoices.id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invoice service: load invoice: %w", err)
	}
	return &invoice, nil
}

// CreateInvoiceInput bills work against a claim.
type CreateInvoiceInput struct {
	ClaimID string
	Amount  float64
	DueAt   *time.Time
	ActorID string
}

// Create issues an invoice against a claim the caller can see. Client and
// affiliate columns are denormalised from the claim so scope filters stay
// single-table.
func (s *InvoiceService) Create(ctx context.Context, sc scope.Scope, input CreateInvoiceInput) (*models.Invoice, error) {
	claimID := strings.TrimSpace(input.ClaimID)
	if claimID == "" {
		return nil, apperrors.NewBadRequest("claim is required")
	}
	if input.Amount <= 0 {
		return nil, apperrors.NewBadRequest("amount must be positive")
	}

	var claim models.Claim
	err := scope.ClaimsWhere(s.db.WithContext(ctx).Model(&models.Claim{}), sc).
		Take(&claim, "claims.id = ?", claimID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClaimNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invoice service: load claim: %w", err)
	}

	affiliateID := claim.AffiliateID
	if sc.Kind == models.ScopeSelf {
		if sc.Profile.Kind != models.ProfileAffiliate || sc.Profile.ID == "" {
			return nil, apperrors.ErrForbidden
		}
		own := sc.Profile.ID
		affiliateID = &own
	}

	invoice := &models.Invoice{
		InvoiceNumber: newInvoiceNumber(s.now()),
		ClaimID:       claim.ID,
		ClientID:      claim.ClientID,
		AffiliateID:   affiliateID,
		Amount:        input.Amount,
		Status:        models.InvoiceSubmitted,
		IssuedAt:      s.now(),
		DueAt:         input.DueAt,
	}

	if err := s.db.WithContext(ctx).Create(invoice).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("invoice number already exists")
		}
		return nil, fmt.Errorf("invoice service: create invoice: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		ActorID:    optionalID(input.ActorID),
		Action:     "invoice.create",
		Resource:   "invoice",
		ResourceID: invoice.ID,
		Result:     "success",
		Metadata:   map[string]any{"invoice_number": invoice.InvoiceNumber, "claim_id": claim.ID},
	})

	return invoice, nil
}

// UpdateInvoiceInput describes mutable invoice fields.
type UpdateInvoiceInput struct {
	Status  *models.InvoiceStatus
	Amount  *float64
	ActorID string
}

// Update modifies an invoice within scope.
func (s *InvoiceService) Update(ctx context.Context, sc scope.Scope, id string, input UpdateInvoiceInput) (*models.Invoice, error) {
	invoice, err := s.Get(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Status != nil {
		status := *input.Status
		switch status {
		case models.InvoiceDraft, models.InvoiceSubmitted, models.InvoicePaid, models.InvoiceVoided:
		default:
			return nil, apperrors.NewBadRequest("unknown invoice status")
		}
		updates["status"] = status
	}
	if input.Amount != nil {
		if *input.Amount <= 0 {
			return nil, apperrors.NewBadRequest("amount must be positive")
		}
		updates["amount"] = *input.Amount
	}

	if len(updates) == 0 {
		return invoice, nil
	}

	if err := s.db.WithContext(ctx).Model(invoice).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("invoice service: update invoice: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		ActorID:    optionalID(input.ActorID),
		Action:     "invoice.update",
		Resource:   "invoice",
		ResourceID: invoice.ID,
		Result:     "success",
	})

	return invoice, nil
}

func newInvoiceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("INV-%d-%s", now.Year(), suffix)
}
