package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInvitationStatusDerivation(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	accepted := now.Add(-time.Hour)

	cases := []struct {
		name       string
		invitation Invitation
		want       InvitationStatus
	}{
		{
			name:       "pending before expiry",
			invitation: Invitation{ExpiresAt: now.Add(time.Hour)},
			want:       InvitationPending,
		},
		{
			name:       "expired at the boundary",
			invitation: Invitation{ExpiresAt: now},
			want:       InvitationExpired,
		},
		{
			name:       "expired after the deadline",
			invitation: Invitation{ExpiresAt: now.Add(-time.Minute)},
			want:       InvitationExpired,
		},
		{
			name:       "accepted wins over expiry",
			invitation: Invitation{ExpiresAt: now.Add(-time.Hour), AcceptedAt: &accepted},
			want:       InvitationAccepted,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.invitation.Status(now))
		})
	}
}

func TestProfileRefRoundTrip(t *testing.T) {
	refs := []ProfileRef{
		{Kind: ProfileEmployee, ID: "emp-1"},
		{Kind: ProfileAgent, ID: "agt-1"},
		{Kind: ProfileClientAdmin, ID: "cad-1"},
		{Kind: ProfileAffiliate, ID: "aff-1"},
	}

	for _, ref := range refs {
		t.Run(string(ref.Kind), func(t *testing.T) {
			var invitation Invitation
			invitation.SetProfileRef(ref)
			require.Equal(t, ref, invitation.ProfileRef())

			set := 0
			for _, col := range []*string{
				invitation.EmployeeID,
				invitation.AgentID,
				invitation.ClientAdminID,
				invitation.AffiliateID,
			} {
				if col != nil {
					set++
				}
			}
			require.Equal(t, 1, set)
		})
	}
}

func TestSetProfileRefClearsPreviousColumns(t *testing.T) {
	var invitation Invitation
	invitation.SetProfileRef(ProfileRef{Kind: ProfileEmployee, ID: "emp-1"})
	invitation.SetProfileRef(ProfileRef{Kind: ProfileAffiliate, ID: "aff-1"})

	require.Nil(t, invitation.EmployeeID)
	require.NotNil(t, invitation.AffiliateID)
	require.Equal(t, ProfileRef{Kind: ProfileAffiliate, ID: "aff-1"}, invitation.ProfileRef())
}

func TestProfileRefValidation(t *testing.T) {
	require.True(t, ProfileRef{Kind: ProfileAgent, ID: "agt-1"}.Valid())
	require.False(t, ProfileRef{Kind: ProfileAgent}.Valid())
	require.False(t, ProfileRef{Kind: "manager", ID: "x"}.Valid())
	require.False(t, ProfileRef{}.Valid())

	table, err := ProfileRef{Kind: ProfileClientAdmin, ID: "cad-1"}.TableName()
	require.NoError(t, err)
	require.Equal(t, "client_admins", table)

	_, err = ProfileRef{Kind: "manager", ID: "x"}.TableName()
	require.Error(t, err)
}
