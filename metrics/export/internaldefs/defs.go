package internaldefs

import (
	"math"

	goAccount "github.com/MrEthical07/goAccount"
)

// CounterDef names one manager counter for export.
type CounterDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

// HistogramDef names one manager histogram for export.
type HistogramDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goAccount.MetricRestoreActive, Name: "goaccount_restore_active_total", Help: "Restores that produced an active session."},
	{ID: goAccount.MetricRestoreNoSession, Name: "goaccount_restore_no_session_total", Help: "Restores of an empty store."},
	{ID: goAccount.MetricRestoreMalformed, Name: "goaccount_restore_malformed_total", Help: "Restores rejected for a malformed stored record."},
	{ID: goAccount.MetricRestoreExpired, Name: "goaccount_restore_expired_total", Help: "Restores rejected for an expired credential."},
	{ID: goAccount.MetricRestoreStoreError, Name: "goaccount_restore_store_error_total", Help: "Restores that failed to read the store."},
	{ID: goAccount.MetricSignInStarted, Name: "goaccount_signin_started_total", Help: "Sign-in attempts started."},
	{ID: goAccount.MetricSignInConflict, Name: "goaccount_signin_conflict_total", Help: "Sign-in requests rejected by the current state."},
	{ID: goAccount.MetricSignInRateLimited, Name: "goaccount_signin_rate_limited_total", Help: "Sign-in requests rejected by the failure throttle."},
	{ID: goAccount.MetricSignInSuccess, Name: "goaccount_signin_success_total", Help: "Sign-in attempts that produced an active session."},
	{ID: goAccount.MetricSignInFailure, Name: "goaccount_signin_failure_total", Help: "Sign-in attempts that failed."},
	{ID: goAccount.MetricSignInTimeout, Name: "goaccount_signin_timeout_total", Help: "Sign-in attempts abandoned on timeout."},
	{ID: goAccount.MetricSignInCancelled, Name: "goaccount_signin_cancelled_total", Help: "Sign-in attempts cancelled by the user or host."},
	{ID: goAccount.MetricProtocolViolation, Name: "goaccount_protocol_violation_total", Help: "Provider outcomes delivered without a matching attempt."},
	{ID: goAccount.MetricPersistFailure, Name: "goaccount_persist_failure_total", Help: "Credential writes that failed after sign-in."},
	{ID: goAccount.MetricExternalRouted, Name: "goaccount_external_routed_total", Help: "Host results and events consumed by the provider client."},
	{ID: goAccount.MetricExternalUnrouted, Name: "goaccount_external_unrouted_total", Help: "Host results and events left to other handlers."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAccount.MetricSignInLatency, Name: "goaccount_signin_latency_seconds", Help: "Time from sign-in start to a terminal outcome."},
}

// HistogramBounds holds the bucket upper bounds as exposition labels.
var HistogramBounds = []string{
	"1",
	"2",
	"5",
	"10",
	"30",
	"60",
	"120",
	"+Inf",
}

// HistogramBoundSuffix holds the bucket upper bounds as metric name suffixes.
var HistogramBoundSuffix = []string{
	"1",
	"2",
	"5",
	"10",
	"30",
	"60",
	"120",
	"inf",
}

// HistogramUpperBounds holds the bucket upper bounds in seconds.
var HistogramUpperBounds = []float64{1, 2, 5, 10, 30, 60, 120, math.Inf(1)}

// NormalizeBuckets copies up to eight raw bucket counts into a fixed array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
