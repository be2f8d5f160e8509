package app

import "github.com/jmjalil96/claimsdesk/internal/app/maintenance"

// MaintenanceOptions converts MaintenanceConfig into Cleaner options.
func (c MaintenanceConfig) MaintenanceOptions() []maintenance.Option {
	var opts []maintenance.Option
	if c.AuditRetentionDays > 0 {
		opts = append(opts, maintenance.WithAuditRetentionDays(c.AuditRetentionDays))
	}
	if c.SessionSchedule != "" {
		opts = append(opts, maintenance.WithSessionSchedule(c.SessionSchedule))
	}
	if c.InvitationSchedule != "" {
		opts = append(opts, maintenance.WithInvitationSchedule(c.InvitationSchedule))
	}
	if c.AuditSchedule != "" {
		opts = append(opts, maintenance.WithAuditSchedule(c.AuditSchedule))
	}
	return opts
}
