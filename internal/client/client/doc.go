// Package client contains the client-side building blocks that talk to the
// backend or to local storage.
//
// # Overview
//
// The package provides:
//  1. Client, a JSON-over-HTTP API client. Authenticated calls go through
//     Request, which attaches the bearer token (see BuildHeaders for the
//     lookup order) and turns a 401 into a forced logout through the
//     session's destroy effect.
//  2. Typed endpoint helpers for /auth and /chat, plus WaitForChat for
//     polling a generation run.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Sentinel errors are matched with errors.Is: ErrUnauthorized (the session
// has already been ended when it is returned), ErrUnavailable (transport
// failure) and ErrMalformedResponse. Other non-2xx statuses surface as
// *HTTPError, see IsStatus; 2xx bodies carrying success=false surface as
// *BackendError.
//
// Concurrency & Contexts
//
// Client is safe for concurrent use. All operations accept context.Context
// and honor cancellation.
package client
