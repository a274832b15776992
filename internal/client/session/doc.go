// Package session owns the client's signed-in state.
//
// # States
//
// A Manager is either Unauthenticated or Authenticated. It starts
// Unauthenticated with IsLoading() == true; the first Hydrate call restores a
// persisted credential (if one is present and unexpired) and flips IsLoading
// to false for good. Login moves to Authenticated; Logout, an expired
// credential found during hydration or EnforceExpiry, and a 401 reported by
// the API client (through Terminate) move back to Unauthenticated.
//
// # Destroying a session
//
// Logout, Terminate, EnforceExpiry and a Hydrate that finds an unusable
// credential all tear the session down through one internal step: clear the
// token store (legacy keys included) and drop the in-memory credential. The
// store is cleared with a context detached from the caller's cancellation,
// so a 401 that races a deadline or an interrupt still leaves nothing
// behind. A Destroyed event goes to OnSessionDestroyed subscribers only when
// the call actually ended a session. Terminate is idempotent and safe to
// call from any number of goroutines at once: two requests failing with 401
// at the same time leave the store empty and notify listeners once.
//
// The one exit that clears nothing is a Hydrate that finds the primary keys
// already gone (another process signed out): memory is dropped and the
// event carries ReasonCleared. A Hydrate that cannot read the store at all
// changes nothing.
//
// # Derived state
//
// IsAuthenticated is computed on every call as "credential present and the
// clock is before its expiry"; nothing caches it.
package session
