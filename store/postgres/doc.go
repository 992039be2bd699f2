// Package postgres stores identities and refresh token digests in PostgreSQL.
//
// [Repository] implements authcore.Repository on any [DBTX] (a *pgxpool.Pool in
// production, pgxmock in tests). Email uniqueness is enforced by the
// identities_email_key constraint, so registration and email changes are a single
// constrained write. Refresh tokens are consumed with DELETE ... RETURNING, which
// lets exactly one of two concurrent refreshes win.
//
// Schema changes ship as embedded SQL files applied by [Migrator].
package postgres
