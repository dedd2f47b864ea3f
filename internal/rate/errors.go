package rate

import "errors"

var (
	// ErrRateLimited is returned when the sign-in failure budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis transport and command errors.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
