package authcore

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/authcore/credential"
	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	internalmetrics "github.com/MrEthical07/authcore/internal/metrics"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
)

// dummyPassword is hashed once at Build so logins for unknown emails still pay for
// one verification.
const dummyPassword = "authcore-timing-equalisation"

// Builder assembles an Engine. Configure it during initialization; each Builder can
// build exactly one Engine.
type Builder struct {
	config Config

	identities IdentityStore
	refresh    RefreshStore

	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time
	newID     func() (string, error)

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRepository sets one store for both identities and refresh tokens.
func (b *Builder) WithRepository(repo Repository) *Builder {
	b.identities = repo
	if b.refresh == nil {
		b.refresh = repo
	}
	return b
}

// WithIdentityStore sets the identity store.
func (b *Builder) WithIdentityStore(store IdentityStore) *Builder {
	b.identities = store
	return b
}

// WithRefreshStore sets the refresh token store, overriding the one from WithRepository.
func (b *Builder) WithRefreshStore(store RefreshStore) *Builder {
	b.refresh = store
	return b
}

// WithAuditSink sets the audit destination. It is used only when Config.Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the operational logger. The default discards.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the wall clock, for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithIDGenerator overrides identity id generation. The default is UUIDv4.
func (b *Builder) WithIDGenerator(fn func() (string, error)) *Builder {
	b.newID = fn
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine. A missing signing
// secret or store is an error here so that the process fails at startup.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.identities == nil {
		return nil, errors.New("identity store required")
	}
	if b.refresh == nil {
		return nil, errors.New("refresh store required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	newID := b.newID
	if newID == nil {
		newID = func() (string, error) {
			id, err := uuid.NewRandom()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		}
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	validator, err := credential.NewValidator(cfg.Policy)
	if err != nil {
		return nil, err
	}

	metrics := internalmetrics.New(cfg.Metrics.Enabled, cfg.Metrics.EnableLatencyHistograms)

	hasher, err := password.NewArgon2(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		return nil, err
	}
	pool := password.NewPool(hasher, cfg.Hashing.Workers, func(d time.Duration) {
		metrics.Observe(internalmetrics.HashLatency, d)
	})

	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}

	tokens, err := jwt.NewManager(jwt.Config{
		Secret:     cloneBytes(cfg.JWT.Secret),
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
		Leeway:     cfg.JWT.Leeway,
		KeyID:      cfg.JWT.KeyID,
		VerifyKeys: cfg.JWT.VerifyKeys,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cfg,
		identities: b.identities,
		refresh:    b.refresh,
		validator:  validator,
		hasher:     pool,
		dummyHash:  dummyHash,
		tokens:     tokens,
		metrics:    metrics,
		logger:     logger,
		now:        now,
		newID:      newID,
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return engine, nil
}
