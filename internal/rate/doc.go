// Package rate provides the Redis-backed throttle that limits repeated sign-in failures.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys have the form
// <prefix>:signin:<provider>. A success deletes the counter.
//
// # What this package must NOT do
//
//   - Decide session state; the manager interprets ErrRateLimited.
//   - Be imported outside the goAccount module.
package rate
