// Package prometheus exposes goAccount manager metrics as a Prometheus collector.
//
// [PrometheusExporter] implements prometheus.Collector: each scrape reads
// [goAccount.Manager.MetricsSnapshot] and emits goaccount_*_total counters plus the
// goaccount_signin_latency_seconds histogram. [PrometheusExporter.Handler] serves a
// private registry holding only this collector.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry. Callers choose the Registerer.
//   - Mutate manager state.
package prometheus
