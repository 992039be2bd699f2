package authcore

import (
	"strings"

	"github.com/MrEthical07/authcore/internal/security"
)

// SecurityReport is a read-only snapshot of the engine's security posture.
type SecurityReport = security.Report

// PasswordConfigReport lists the argon2id parameters used for new hashes.
type PasswordConfigReport = security.PasswordReport

// SecurityReport summarizes the effective configuration. It never includes secrets.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	policy := e.config.Policy
	return security.BuildReport(security.ReportInput{
		ProductionMode: e.config.Security.ProductionMode,
		ValidationMode: e.config.ValidationMode.String(),
		StrictMode:     e.config.ValidationMode == ModeStrict,
		AccessTTL:      e.config.JWT.AccessTTL,
		RefreshTTL:     e.config.JWT.RefreshTTL,
		Leeway:         e.config.JWT.Leeway,
		SecretBytes:    len(e.config.JWT.Secret),
		VerifyKeyCount: len(e.config.JWT.VerifyKeys),
		Password: security.PasswordReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		HashUpgrade:    e.config.Password.UpgradeOnLogin,
		HashingWorkers: e.hasher.Size(),
		Policy: security.PolicyReport{
			MinLength:      policy.MinLength,
			RequireUpper:   policy.RequireUpper,
			RequireLower:   policy.RequireLower,
			RequireDigit:   policy.RequireDigit,
			RequireSpecial: policy.RequireSpecial,
			ForbidsSpace:   strings.ContainsAny(policy.Forbidden, " \t\n"),
		},
		AuditEnabled:   e.audit != nil,
		AuditDropFull:  e.config.Audit.DropIfFull,
		MetricsEnabled: e.config.Metrics.Enabled,
	})
}
