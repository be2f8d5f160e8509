package app

import "github.com/jmjalil96/claimsdesk/internal/services"

// InvitationOptions converts InvitationConfig into InvitationService options.
// Unset values are omitted so the service defaults apply.
func (c InvitationConfig) InvitationOptions() []services.InvitationOption {
	var opts []services.InvitationOption
	if c.BaseURL != "" {
		opts = append(opts, services.WithInvitationBaseURL(c.BaseURL))
	}
	if c.Expiry > 0 {
		opts = append(opts, services.WithInvitationExpiry(c.Expiry))
	}
	return opts
}
