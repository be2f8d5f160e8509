package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jmjalil96/claimsdesk/internal/models"
	"github.com/jmjalil96/claimsdesk/internal/scope"
)

func seedClaimWorld(t *testing.T, db *gorm.DB) (*models.Client, *models.Client, *models.Affiliate, []models.Claim) {
	t.Helper()

	clientA := createClient(t, db, "Acme Freight", "ACME")
	clientB := createClient(t, db, "Borealis Mining", "BOR")
	affiliate := createAffiliateProfile(t, db, "clinic@example.com", &clientA.ID)

	claims := []models.Claim{
		{ClaimNumber: "CLM-2025-AAAA0001", ClientID: clientA.ID, AffiliateID: &affiliate.ID, Status: models.ClaimOpen},
		{ClaimNumber: "CLM-2025-AAAA0002", ClientID: clientA.ID, Status: models.ClaimReview},
		{ClaimNumber: "CLM-2025-AAAA0003", ClientID: clientB.ID, Status: models.ClaimOpen},
	}
	for i := range claims {
		require.NoError(t, db.Create(&claims[i]).Error)
	}
	return clientA, clientB, affiliate, claims
}

func TestClaimListRespectsScope(t *testing.T) {
	db := openServiceTestDB(t)
	clientA, _, affiliate, _ := seedClaimWorld(t, db)

	svc, err := NewClaimService(db, nil)
	require.NoError(t, err)
	ctx := context.Background()

	all, total, err := svc.List(ctx, scope.Scope{Kind: models.ScopeUnlimited}, ClaimListOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, all, 3)

	clientScoped, total, err := svc.List(ctx,
		scope.Scope{Kind: models.ScopeClient, ClientIDs: []string{clientA.ID}}, ClaimListOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, clientScoped, 2)

	selfScoped, total, err := svc.List(ctx, scope.Scope{
		Kind:    models.ScopeSelf,
		Profile: models.ProfileRef{Kind: models.ProfileAffiliate, ID: affiliate.ID},
	}, ClaimListOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, selfScoped, 1)

	// CLIENT scope with no assignments sees nothing.
	empty, total, err := svc.List(ctx, scope.Scope{Kind: models.ScopeClient}, ClaimListOptions{})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, empty)
}

func TestClaimGetDoesNotLeakExistence(t *testing.T) {
	db := openServiceTestDB(t)
	clientA, _, _, claims := seedClaimWorld(t, db)

	svc, err := NewClaimService(db, nil)
	require.NoError(t, err)
	ctx := context.Background()

	outOfScope := claims[2] // belongs to clientB
	sc := scope.Scope{Kind: models.ScopeClient, ClientIDs: []string{clientA.ID}}

	_, scopedErr := svc.Get(ctx, sc, outOfScope.ID)
	_, missingErr := svc.Get(ctx, sc, "00000000-0000-0000-0000-000000000000")

	require.ErrorIs(t, scopedErr, ErrClaimNotFound)
	require.ErrorIs(t, missingErr, ErrClaimNotFound)
	require.Equal(t, missingErr.Error(), scopedErr.Error(),
		"out-of-scope and nonexistent fetches must be indistinguishable")
}

func TestClaimCreateScopeRules(t *testing.T) {
	db := openServiceTestDB(t)
	clientA, clientB, affiliate, _ := seedClaimWorld(t, db)

	svc, err := NewClaimService(db, nil)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("unlimited creates anywhere", func(t *testing.T) {
		claim, err := svc.Create(ctx, scope.Scope{Kind: models.ScopeUnlimited}, CreateClaimInput{
			ClientID:      clientB.ID,
			Description:   "water damage",
			AmountClaimed: 1200,
		})
		require.NoError(t, err)
		require.Equal(t, models.ClaimOpen, claim.Status)
		require.NotEmpty(t, claim.ClaimNumber)
	})

	t.Run("client scope limited to assigned clients", func(t *testing.T) {
		sc := scope.Scope{Kind: models.ScopeClient, ClientIDs: []string{clientA.ID}}

		_, err := svc.Create(ctx, sc, CreateClaimInput{ClientID: clientB.ID, AmountClaimed: 10})
		requireStatus(t, err, 403)

		claim, err := svc.Create(ctx, sc, CreateClaimInput{ClientID: clientA.ID, AmountClaimed: 10})
		require.NoError(t, err)
		require.Equal(t, clientA.ID, claim.ClientID)
	})

	t.Run("self scope files as own affiliate", func(t *testing.T) {
		sc := scope.Scope{
			Kind:    models.ScopeSelf,
			Profile: models.ProfileRef{Kind: models.ProfileAffiliate, ID: affiliate.ID},
		}

		claim, err := svc.Create(ctx, sc, CreateClaimInput{ClientID: clientA.ID, AmountClaimed: 50})
		require.NoError(t, err)
		require.NotNil(t, claim.AffiliateID)
		require.Equal(t, affiliate.ID, *claim.AffiliateID)

		// The affiliate's client is fixed; other clients are off limits.
		_, err = svc.Create(ctx, sc, CreateClaimInput{ClientID: clientB.ID, AmountClaimed: 50})
		requireStatus(t, err, 403)
	})
}

func TestClaimUpdateWithinScope(t *testing.T) {
	db := openServiceTestDB(t)
	clientA, _, _, claims := seedClaimWorld(t, db)

	svc, err := NewClaimService(db, nil)
	require.NoError(t, err)
	ctx := context.Background()

	sc := scope.Scope{Kind: models.ScopeClient, ClientIDs: []string{clientA.ID}}

	approved := models.ClaimApproved
	amount := 950.0
	updated, err := svc.Update(ctx, sc, claims[0].ID, UpdateClaimInput{
		Status:         &approved,
		AmountApproved: &amount,
	})
	require.NoError(t, err)
	require.Equal(t, models.ClaimApproved, updated.Status)

	var stored models.Claim
	require.NoError(t, db.Take(&stored, "id = ?", claims[0].ID).Error)
	require.Equal(t, models.ClaimApproved, stored.Status)
	require.NotNil(t, stored.AmountApproved)
	require.Equal(t, amount, *stored.AmountApproved)

	// Out-of-scope updates read as absent.
	_, err = svc.Update(ctx, sc, claims[2].ID, UpdateClaimInput{Status: &approved})
	require.ErrorIs(t, err, ErrClaimNotFound)

	bogus := models.ClaimStatus("bogus")
	_, err = svc.Update(ctx, sc, claims[0].ID, UpdateClaimInput{Status: &bogus})
	requireStatus(t, err, 400)
}
