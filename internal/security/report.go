package security

import "time"

type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type PolicyReport struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
	ForbidsSpace   bool
}

// Report is a read-only snapshot of the engine's security posture.
type Report struct {
	ProductionMode   bool
	SigningAlgorithm string
	ValidationMode   string
	StrictMode       bool
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	Leeway           time.Duration
	KeyRotation      bool
	Argon2           PasswordReport
	HashUpgrade      bool
	HashingWorkers   int
	Policy           PolicyReport
	RefreshRotation  string
	AuditEnabled     bool
	AuditLossy       bool
	MetricsEnabled   bool
	// Findings lists posture problems by code, most severe first.
	Findings []string
}

type ReportInput struct {
	ProductionMode bool
	ValidationMode string
	StrictMode     bool
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	Leeway         time.Duration
	SecretBytes    int
	VerifyKeyCount int
	Password       PasswordReport
	HashUpgrade    bool
	HashingWorkers int
	Policy         PolicyReport
	AuditEnabled   bool
	AuditDropFull  bool
	MetricsEnabled bool
}

const (
	minSecretBytes     = 32
	minPasswordLength  = 8
	recommendedMemory  = 64 * 1024
	maxAccessTTL       = time.Hour
	recommendedLeeway  = 30 * time.Second
	singleUseRotation  = "single_use"
	signingAlgorithmHS = "HS256"
)

func BuildReport(input ReportInput) Report {
	var findings []string
	if input.SecretBytes < minSecretBytes {
		findings = append(findings, "secret_short")
	}
	if input.Policy.MinLength < minPasswordLength {
		findings = append(findings, "password_min_short")
	}
	if input.Password.Memory < recommendedMemory {
		findings = append(findings, "argon2_memory_low")
	}
	if input.AccessTTL > maxAccessTTL {
		findings = append(findings, "access_ttl_long")
	}
	if input.Leeway > recommendedLeeway {
		findings = append(findings, "leeway_large")
	}
	if input.ProductionMode && !input.AuditEnabled {
		findings = append(findings, "audit_disabled")
	}

	return Report{
		ProductionMode:   input.ProductionMode,
		SigningAlgorithm: signingAlgorithmHS,
		ValidationMode:   input.ValidationMode,
		StrictMode:       input.StrictMode,
		AccessTTL:        input.AccessTTL,
		RefreshTTL:       input.RefreshTTL,
		Leeway:           input.Leeway,
		KeyRotation:      input.VerifyKeyCount > 1,
		Argon2:           input.Password,
		HashUpgrade:      input.HashUpgrade,
		HashingWorkers:   input.HashingWorkers,
		Policy:           input.Policy,
		RefreshRotation:  singleUseRotation,
		AuditEnabled:     input.AuditEnabled,
		AuditLossy:       input.AuditEnabled && input.AuditDropFull,
		MetricsEnabled:   input.MetricsEnabled,
		Findings:         findings,
	}
}
