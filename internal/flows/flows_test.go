package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/credential"
)

var (
	errNotReady     = errors.New("not ready")
	errInvalidCreds = errors.New("invalid credentials")
	errNotFound     = errors.New("not found")
	errRefreshGone  = errors.New("refresh not found")
	errDup          = errors.New("duplicate")
	errHashing      = errors.New("hashing")
	errTooLong      = errors.New("too long")
	errToken        = errors.New("token")
)

type recorder struct {
	metrics []int
	events  []string
}

func (r *recorder) inc(id int) { r.metrics = append(r.metrics, id) }

func (r *recorder) audit(_ context.Context, ev string, _ bool, _ string, _ error, meta func() map[string]string) {
	if meta != nil {
		_ = meta()
	}
	r.events = append(r.events, ev)
}

func (r *recorder) has(ev string) bool {
	for _, e := range r.events {
		if e == ev {
			return true
		}
	}
	return false
}

func testIssue(inserted *[]RefreshRecord) IssueDeps {
	return IssueDeps{
		IssueAccess: func(subject, email string) (string, error) { return "access-" + subject, nil },
		IssueRefresh: func() (RefreshGrant, error) {
			return RefreshGrant{Token: "rt", Digest: "digest", ExpiresAt: time.Unix(2_000_000_000, 0)}, nil
		},
		InsertRefresh: func(_ context.Context, rec RefreshRecord) error {
			*inserted = append(*inserted, rec)
			return nil
		},
		TokenError: errToken,
	}
}

func registerDeps(rec *recorder, inserted *[]NewIdentity) RegisterDeps {
	return RegisterDeps{
		Validate: func(name, email, password string) (credential.ValidatedCredentials, error) {
			return credential.ValidateRegistration(name, email, password, credential.DefaultPolicy())
		},
		HashPassword: func(_ context.Context, p string) (string, error) { return "hash:" + p, nil },
		NewID:        func() (string, error) { return "id-1", nil },
		InsertIdentity: func(_ context.Context, identity NewIdentity) (string, error) {
			*inserted = append(*inserted, identity)
			return identity.ID, nil
		},
		MetricInc: rec.inc,
		EmitAudit: rec.audit,
		Metrics:   RegisterMetrics{Success: 1, Duplicate: 2, Invalid: 3},
		Events:    RegisterEvents{Success: "ok", Duplicate: "dup", Invalid: "invalid"},
		Errors: RegisterErrors{
			EngineNotReady:     errNotReady,
			EmailAlreadyExists: errDup,
			Hashing:            errHashing,
			PasswordTooLong:    errTooLong,
		},
	}
}

func TestRunRegisterSuccess(t *testing.T) {
	rec := &recorder{}
	var inserted []NewIdentity
	id, err := RunRegister(context.Background(), " Ana  Silva ", "A@B.com", "Senha123", registerDeps(rec, &inserted))
	if err != nil {
		t.Fatalf("RunRegister: %v", err)
	}
	if id != "id-1" || len(inserted) != 1 {
		t.Fatalf("unexpected result id=%q inserted=%d", id, len(inserted))
	}
	if inserted[0].Email != "a@b.com" || inserted[0].Name != "Ana Silva" || inserted[0].PasswordHash != "hash:Senha123" {
		t.Fatalf("unexpected row %+v", inserted[0])
	}
	if !rec.has("ok") {
		t.Fatal("expected success audit event")
	}
}

func TestRunRegisterValidationStopsBeforeHash(t *testing.T) {
	rec := &recorder{}
	var inserted []NewIdentity
	deps := registerDeps(rec, &inserted)
	deps.HashPassword = func(context.Context, string) (string, error) {
		t.Fatal("hash must not run for invalid input")
		return "", nil
	}

	if _, err := RunRegister(context.Background(), "Ana", "a@b.com", "Senha123", deps); !errors.Is(err, credential.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if _, err := RunRegister(context.Background(), "Ana Silva", "a@b.com", "weak", deps); !errors.Is(err, credential.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if len(inserted) != 0 || !rec.has("invalid") {
		t.Fatal("expected no insert and an invalid audit event")
	}
}

func TestRunRegisterTooLongPasswordIsWeak(t *testing.T) {
	rec := &recorder{}
	var inserted []NewIdentity
	deps := registerDeps(rec, &inserted)
	deps.HashPassword = func(context.Context, string) (string, error) { return "", errTooLong }

	_, err := RunRegister(context.Background(), "Ana Silva", "a@b.com", "Senha123", deps)
	if !errors.Is(err, credential.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if got := credential.Violations(err); len(got) != 1 || got[0] != credential.RuleMaxLength {
		t.Fatalf("unexpected violations %v", got)
	}
}

func TestRunRegisterCancelledLeavesNoIdentity(t *testing.T) {
	rec := &recorder{}
	var inserted []NewIdentity
	deps := registerDeps(rec, &inserted)

	ctx, cancel := context.WithCancel(context.Background())
	deps.HashPassword = func(context.Context, string) (string, error) {
		cancel()
		return "hash", nil
	}

	if _, err := RunRegister(ctx, "Ana Silva", "a@b.com", "Senha123", deps); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(inserted) != 0 {
		t.Fatal("cancelled register must not insert")
	}
}

func TestRunRegisterDuplicate(t *testing.T) {
	rec := &recorder{}
	var inserted []NewIdentity
	deps := registerDeps(rec, &inserted)
	deps.InsertIdentity = func(context.Context, NewIdentity) (string, error) { return "", errDup }

	if _, err := RunRegister(context.Background(), "Ana Silva", "a@b.com", "Senha123", deps); !errors.Is(err, errDup) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if !rec.has("dup") {
		t.Fatal("expected duplicate audit event")
	}
}

func TestRunRegisterNotReady(t *testing.T) {
	if _, err := RunRegister(context.Background(), "Ana Silva", "a@b.com", "Senha123", RegisterDeps{
		Errors: RegisterErrors{EngineNotReady: errNotReady},
	}); !errors.Is(err, errNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func loginDeps(rec *recorder, identities map[string]IdentityRecord, refresh *[]RefreshRecord) LoginDeps {
	return LoginDeps{
		DummyHash:              "dummy",
		PasswordUpgradeOnLogin: true,
		Validate:               credential.ValidateLogin,
		FindByEmail: func(_ context.Context, email string) (IdentityRecord, error) {
			identity, ok := identities[email]
			if !ok {
				return IdentityRecord{}, errNotFound
			}
			return identity, nil
		},
		VerifyPassword: func(_ context.Context, p, h string) (bool, error) { return h == "hash:"+p, nil },
		Issue:          testIssue(refresh),
		MetricInc:      rec.inc,
		EmitAudit:      rec.audit,
		Metrics:        LoginMetrics{Success: 1, Failure: 2, HashUpgraded: 3},
		Events:         LoginEvents{Success: "ok", Failure: "fail"},
		Errors: LoginErrors{
			EngineNotReady:     errNotReady,
			InvalidCredentials: errInvalidCreds,
			IdentityNotFound:   errNotFound,
		},
	}
}

func TestRunLoginUniformRejection(t *testing.T) {
	identities := map[string]IdentityRecord{
		"a@b.com":   {ID: "u1", Email: "a@b.com", PasswordHash: "hash:Senha123", IsActive: true},
		"off@b.com": {ID: "u2", Email: "off@b.com", PasswordHash: "hash:Senha123", IsActive: false},
	}
	var refresh []RefreshRecord

	verified := 0
	deps := loginDeps(&recorder{}, identities, &refresh)
	inner := deps.VerifyPassword
	deps.VerifyPassword = func(ctx context.Context, p, h string) (bool, error) {
		verified++
		return inner(ctx, p, h)
	}

	cases := []struct{ email, password string }{
		{"a@b.com", "wrong"},
		{"nobody@b.com", "Senha123"},
		{"off@b.com", "Senha123"},
	}
	for _, tc := range cases {
		_, err := RunLogin(context.Background(), tc.email, tc.password, deps)
		if err != errInvalidCreds {
			t.Fatalf("%s: expected uniform invalid credentials, got %v", tc.email, err)
		}
	}
	if verified != len(cases) {
		t.Fatalf("expected a verify per attempt including unknown email, got %d", verified)
	}
	if len(refresh) != 0 {
		t.Fatal("failed logins must not insert refresh tokens")
	}
}

func TestRunLoginSuccessAndUpgrade(t *testing.T) {
	identities := map[string]IdentityRecord{
		"a@b.com": {ID: "u1", Email: "a@b.com", PasswordHash: "hash:Senha123", IsActive: true},
	}
	var refresh []RefreshRecord
	rec := &recorder{}
	deps := loginDeps(rec, identities, &refresh)

	var upgradedTo string
	deps.NeedsUpgrade = func(string) bool { return true }
	deps.HashPassword = func(_ context.Context, p string) (string, error) { return "new:" + p, nil }
	deps.UpdatePasswordHash = func(_ context.Context, _ string, h string) error {
		upgradedTo = h
		return nil
	}

	pair, err := RunLogin(context.Background(), "A@B.COM", "Senha123", deps)
	if err != nil {
		t.Fatalf("RunLogin: %v", err)
	}
	if pair.AccessToken != "access-u1" || pair.RefreshToken != "rt" || pair.IdentityID != "u1" || pair.Email != "a@b.com" {
		t.Fatalf("unexpected pair %+v", pair)
	}
	if len(refresh) != 1 || refresh[0].IdentityID != "u1" || refresh[0].Digest != "digest" {
		t.Fatalf("unexpected refresh inserts %+v", refresh)
	}
	if upgradedTo != "new:Senha123" {
		t.Fatalf("expected hash upgrade, got %q", upgradedTo)
	}
}

func TestRunLoginEmptyPassword(t *testing.T) {
	deps := loginDeps(&recorder{}, map[string]IdentityRecord{}, &[]RefreshRecord{})
	if _, err := RunLogin(context.Background(), "a@b.com", "", deps); !errors.Is(err, credential.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func refreshDeps(rec *recorder, store map[string]RefreshRecord, identities map[string]IdentityRecord, inserted *[]RefreshRecord, now time.Time) RefreshDeps {
	return RefreshDeps{
		HashRefreshToken: func(token string) (string, error) {
			if token == "" {
				return "", errors.New("malformed")
			}
			return "d:" + token, nil
		},
		ConsumeRefresh: func(_ context.Context, digest string) (RefreshRecord, error) {
			rec, ok := store[digest]
			if !ok {
				return RefreshRecord{}, errRefreshGone
			}
			delete(store, digest)
			return rec, nil
		},
		FindByID: func(_ context.Context, id string) (IdentityRecord, error) {
			identity, ok := identities[id]
			if !ok {
				return IdentityRecord{}, errNotFound
			}
			return identity, nil
		},
		Now:       func() time.Time { return now },
		Issue:     testIssue(inserted),
		MetricInc: rec.inc,
		EmitAudit: rec.audit,
		Metrics:   RefreshMetrics{Success: 1, Failure: 2, Logout: 3},
		Events:    RefreshEvents{Success: "ok", Invalid: "invalid", Logout: "logout"},
		Errors: RefreshErrors{
			EngineNotReady:     errNotReady,
			InvalidCredentials: errInvalidCreds,
			RefreshNotFound:    errRefreshGone,
			IdentityNotFound:   errNotFound,
		},
	}
}

func TestRunRefreshSingleUse(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := map[string]RefreshRecord{
		"d:tok": {Digest: "d:tok", IdentityID: "u1", ExpiresAt: now.Add(time.Hour)},
	}
	identities := map[string]IdentityRecord{"u1": {ID: "u1", Email: "a@b.com", IsActive: true}}
	var inserted []RefreshRecord
	deps := refreshDeps(&recorder{}, store, identities, &inserted, now)

	pair, err := RunRefresh(context.Background(), "tok", deps)
	if err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if pair.AccessToken != "access-u1" || len(inserted) != 1 {
		t.Fatalf("unexpected first refresh result %+v inserted=%d", pair, len(inserted))
	}
	if _, err := RunRefresh(context.Background(), "tok", deps); err != errInvalidCreds {
		t.Fatalf("expected reuse rejection, got %v", err)
	}
}

func TestRunRefreshExpiryIsExclusive(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := map[string]RefreshRecord{
		"d:tok": {Digest: "d:tok", IdentityID: "u1", ExpiresAt: now},
	}
	identities := map[string]IdentityRecord{"u1": {ID: "u1", IsActive: true}}
	deps := refreshDeps(&recorder{}, store, identities, &[]RefreshRecord{}, now)

	if _, err := RunRefresh(context.Background(), "tok", deps); err != errInvalidCreds {
		t.Fatalf("expected expired token rejection, got %v", err)
	}
}

func TestRunRefreshInactiveIdentity(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := map[string]RefreshRecord{
		"d:tok": {Digest: "d:tok", IdentityID: "u1", ExpiresAt: now.Add(time.Hour)},
	}
	identities := map[string]IdentityRecord{"u1": {ID: "u1", IsActive: false}}
	rec := &recorder{}
	deps := refreshDeps(rec, store, identities, &[]RefreshRecord{}, now)

	if _, err := RunRefresh(context.Background(), "tok", deps); err != errInvalidCreds {
		t.Fatalf("expected inactive rejection, got %v", err)
	}
	if !rec.has("invalid") {
		t.Fatal("expected invalid audit event")
	}
}

func TestRunLogoutIdempotent(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := map[string]RefreshRecord{
		"d:tok": {Digest: "d:tok", IdentityID: "u1", ExpiresAt: now.Add(time.Hour)},
	}
	rec := &recorder{}
	deps := refreshDeps(rec, store, nil, &[]RefreshRecord{}, now)

	for i := 0; i < 2; i++ {
		if err := RunLogout(context.Background(), "tok", deps); err != nil {
			t.Fatalf("logout %d: %v", i, err)
		}
	}
	if err := RunLogout(context.Background(), "", deps); err != nil {
		t.Fatalf("malformed logout: %v", err)
	}
	if len(store) != 0 {
		t.Fatal("expected token to be consumed")
	}
	if len(rec.metrics) != 1 {
		t.Fatalf("expected exactly one logout metric, got %d", len(rec.metrics))
	}
}

func TestRunDeactivate(t *testing.T) {
	active := map[string]bool{"u1": true}
	revoked := 0
	deps := DeactivateDeps{
		SoftDeactivate: func(_ context.Context, id string) error {
			if _, ok := active[id]; !ok {
				return errNotFound
			}
			active[id] = false
			return nil
		},
		RevokeRefresh: func(context.Context, string) error {
			revoked++
			return nil
		},
		Errors: AccountErrors{EngineNotReady: errNotReady, IdentityNotFound: errNotFound},
	}

	for i := 0; i < 2; i++ {
		if err := RunDeactivate(context.Background(), "u1", deps); err != nil {
			t.Fatalf("deactivate %d: %v", i, err)
		}
	}
	if active["u1"] || revoked != 2 {
		t.Fatalf("unexpected state active=%v revoked=%d", active["u1"], revoked)
	}
	if err := RunDeactivate(context.Background(), "missing", deps); !errors.Is(err, errNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := RunDeactivate(context.Background(), "", deps); !errors.Is(err, errNotFound) {
		t.Fatalf("expected not found for empty id, got %v", err)
	}
}

func TestRunUpdateIdentity(t *testing.T) {
	stored := IdentityRecord{ID: "u1", Email: "a@b.com", Name: "Ana Silva", IsActive: true}
	writes := 0
	deps := UpdateIdentityDeps{
		NormalizeName:  credential.NormalizeName,
		NormalizeEmail: credential.NormalizeEmail,
		FindByID: func(_ context.Context, id string) (IdentityRecord, error) {
			if id != stored.ID {
				return IdentityRecord{}, errNotFound
			}
			return stored, nil
		},
		UpdateIdentity: func(_ context.Context, identity IdentityRecord) (IdentityRecord, error) {
			if identity.Email == "taken@b.com" {
				return IdentityRecord{}, errDup
			}
			writes++
			stored = identity
			return identity, nil
		},
		Errors: AccountErrors{EngineNotReady: errNotReady, IdentityNotFound: errNotFound, EmailAlreadyExists: errDup},
	}

	name := "  Ana   Souza "
	email := "ANA@B.COM"
	updated, err := RunUpdateIdentity(context.Background(), "u1", IdentityChanges{Name: &name, Email: &email}, deps)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Ana Souza" || updated.Email != "ana@b.com" {
		t.Fatalf("unexpected update %+v", updated)
	}

	if _, err := RunUpdateIdentity(context.Background(), "u1", IdentityChanges{Name: &name}, deps); err != nil {
		t.Fatalf("no-op update: %v", err)
	}
	if writes != 1 {
		t.Fatalf("expected unchanged fields to skip the write, got %d writes", writes)
	}

	bad := "Ana"
	if _, err := RunUpdateIdentity(context.Background(), "u1", IdentityChanges{Name: &bad}, deps); !errors.Is(err, credential.ErrInvalidName) {
		t.Fatalf("expected invalid name, got %v", err)
	}

	taken := "taken@b.com"
	if _, err := RunUpdateIdentity(context.Background(), "u1", IdentityChanges{Email: &taken}, deps); !errors.Is(err, errDup) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	stored.IsActive = false
	if _, err := RunUpdateIdentity(context.Background(), "u1", IdentityChanges{Email: &email}, deps); !errors.Is(err, errNotFound) {
		t.Fatalf("expected inactive identity to be not found, got %v", err)
	}
}
