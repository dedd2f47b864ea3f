// Package internal contains helper utilities that are intentionally private to goAccount.
//
// # Sub-packages
//
//   - rate: Redis-backed fixed-window throttle for repeated sign-in failures
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAccount API.
//   - Be imported by any package outside the goAccount module.
package internal
