// Package goAccount manages the authentication session of a client application: it
// restores a persisted credential, runs sign-in attempts against an external identity
// provider through an asynchronous callback channel, and persists the credential a
// successful attempt produces.
//
// A [Manager] is built with [Builder.Build], which restores the stored session once.
// Outcomes of an attempt may arrive from any goroutine: provider callbacks, platform
// result triples routed through [HostAdapter], or the attempt timer.
//
// # Architecture boundaries
//
// goAccount is the public surface. It exposes [Manager], [Builder], [Config], [HostAdapter]
// and value types (SessionState, Credential, MetricsSnapshot). Persistence lives in store,
// token inspection in token, and the provider contract in provider. The sign-in throttle
// lives under internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Delete or rewrite a stored record on restore. Rejected records stay in the store
//     until the next successful sign-in overwrites them.
//   - Call the provider client, the state listener or the audit sink while holding the
//     manager lock.
//   - Run more than one sign-in attempt at a time.
//   - Import any sub-package that re-imports goAccount (no import cycles).
package goAccount
