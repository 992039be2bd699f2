// Package api exposes an authcore Engine over HTTP.
//
// Routes live under /api/v1/auth (register, login, refresh, logout, me) and
// /api/v1/users (list, get, and owner-only update and deactivate). Every response is
// an [Envelope]. Errors are mapped from [authcore.KindOf]: validation 400, conflict
// 409, invalid credentials 401, not found 404, anything else 500 with the cause only
// in the log.
package api
