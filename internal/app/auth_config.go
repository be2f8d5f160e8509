package app

import (
	"github.com/jmjalil96/claimsdesk/internal/auth"
)

// SessionServiceConfig converts AuthConfig into SessionService parameters.
// Zero values fall through to the service defaults.
func (c AuthConfig) SessionServiceConfig() auth.SessionConfig {
	return auth.SessionConfig{
		TTL:         c.Session.TTL,
		TokenLength: c.Session.TokenLength,
	}
}
