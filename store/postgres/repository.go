package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/MrEthical07/authcore"
)

// DBTX is the subset of *pgxpool.Pool and pgx.Tx the repository uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements authcore.Repository on PostgreSQL.
type Repository struct {
	db  DBTX
	now func() time.Time
}

var _ authcore.Repository = (*Repository)(nil)

// NewRepository returns a Repository using db. now defaults to time.Now.
func NewRepository(db DBTX, now func() time.Time) *Repository {
	if now == nil {
		now = time.Now
	}
	return &Repository{db: db, now: now}
}

const identityColumns = `id, email, name, password_hash, is_active, created_at, updated_at`

func (r *Repository) InsertIdentityIfEmailFree(ctx context.Context, identity authcore.Identity) (string, error) {
	query := `
		INSERT INTO identities (` + identityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO NOTHING
		RETURNING id`

	var id string
	err := r.db.QueryRow(ctx, query,
		identity.ID,
		identity.Email,
		identity.Name,
		identity.PasswordHash,
		identity.IsActive,
		identity.CreatedAt,
		identity.UpdatedAt,
	).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return "", authcore.ErrEmailAlreadyExists
	case isUniqueViolation(err):
		return "", authcore.ErrEmailAlreadyExists
	case err != nil:
		return "", dbError("insert identity", err)
	}
	return id, nil
}

func (r *Repository) FindIdentityByEmail(ctx context.Context, email string) (authcore.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE email = $1`
	return r.scanIdentity(ctx, "find identity by email", query, email)
}

func (r *Repository) FindIdentityByID(ctx context.Context, id string) (authcore.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	return r.scanIdentity(ctx, "find identity by id", query, id)
}

// SoftDeactivate clears is_active. updated_at only moves on the first call.
func (r *Repository) SoftDeactivate(ctx context.Context, id string) error {
	query := `
		UPDATE identities
		SET updated_at = CASE WHEN is_active THEN $2 ELSE updated_at END,
		    is_active = FALSE
		WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id, r.now())
	if err != nil {
		return dbError("deactivate identity", err)
	}
	if ct.RowsAffected() == 0 {
		return authcore.ErrIdentityNotFound
	}
	return nil
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE identities SET password_hash = $2, updated_at = $3 WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id, passwordHash, r.now())
	if err != nil {
		return dbError("update password hash", err)
	}
	if ct.RowsAffected() == 0 {
		return authcore.ErrIdentityNotFound
	}
	return nil
}

func (r *Repository) UpdateIdentity(ctx context.Context, id, name, email string) (authcore.Identity, error) {
	query := `
		UPDATE identities
		SET name = $2, email = $3, updated_at = $4
		WHERE id = $1
		RETURNING ` + identityColumns

	identity, err := scanIdentityRow(r.db.QueryRow(ctx, query, id, name, email, r.now()))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return authcore.Identity{}, authcore.ErrIdentityNotFound
	case isUniqueViolation(err):
		return authcore.Identity{}, authcore.ErrEmailAlreadyExists
	case err != nil:
		return authcore.Identity{}, dbError("update identity", err)
	}
	return identity, nil
}

func (r *Repository) ListActive(ctx context.Context, limit, offset int) ([]authcore.Identity, error) {
	query := `
		SELECT ` + identityColumns + `
		FROM identities
		WHERE is_active
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, dbError("list identities", err)
	}
	defer rows.Close()

	out := make([]authcore.Identity, 0, limit)
	for rows.Next() {
		identity, err := scanIdentityRow(rows)
		if err != nil {
			return nil, dbError("scan identity", err)
		}
		out = append(out, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("list identities", err)
	}
	return out, nil
}

func (r *Repository) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM identities WHERE is_active`).Scan(&n); err != nil {
		return 0, dbError("count identities", err)
	}
	return n, nil
}

func (r *Repository) InsertRefreshToken(ctx context.Context, record authcore.RefreshRecord) error {
	query := `
		INSERT INTO refresh_tokens (digest, identity_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, record.Digest, record.IdentityID, record.ExpiresAt, record.CreatedAt)
	if err != nil {
		if pgCode(err) == pgerrcode.ForeignKeyViolation {
			return authcore.ErrIdentityNotFound
		}
		return dbError("insert refresh token", err)
	}
	return nil
}

func (r *Repository) ConsumeRefreshToken(ctx context.Context, digest string) (authcore.RefreshRecord, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE digest = $1
		RETURNING digest, identity_id, expires_at, created_at`

	var rec authcore.RefreshRecord
	err := r.db.QueryRow(ctx, query, digest).Scan(&rec.Digest, &rec.IdentityID, &rec.ExpiresAt, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return authcore.RefreshRecord{}, authcore.ErrInvalidRefreshToken
	}
	if err != nil {
		return authcore.RefreshRecord{}, dbError("consume refresh token", err)
	}
	return rec, nil
}

func (r *Repository) RevokeRefreshTokens(ctx context.Context, identityID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE identity_id = $1`, identityID); err != nil {
		return dbError("revoke refresh tokens", err)
	}
	return nil
}

// PurgeExpiredRefreshTokens deletes refresh tokens whose expiry has passed and
// returns how many were removed.
func (r *Repository) PurgeExpiredRefreshTokens(ctx context.Context) (int64, error) {
	ct, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, r.now())
	if err != nil {
		return 0, dbError("purge refresh tokens", err)
	}
	return ct.RowsAffected(), nil
}

func (r *Repository) scanIdentity(ctx context.Context, operation, query string, args ...any) (authcore.Identity, error) {
	identity, err := scanIdentityRow(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return authcore.Identity{}, authcore.ErrIdentityNotFound
	}
	if err != nil {
		return authcore.Identity{}, dbError(operation, err)
	}
	return identity, nil
}

func scanIdentityRow(row pgx.Row) (authcore.Identity, error) {
	var identity authcore.Identity
	err := row.Scan(
		&identity.ID,
		&identity.Email,
		&identity.Name,
		&identity.PasswordHash,
		&identity.IsActive,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)
	return identity, err
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == pgerrcode.UniqueViolation
}

func dbError(operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return oops.Code("POSTGRES_QUERY_FAILED").With("operation", operation).Wrap(err)
}
