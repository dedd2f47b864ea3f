// Package internaldefs holds the metric names, help strings, and bucket bounds shared by
// the Prometheus and OTel exporters.
//
// Both exporters iterate these tables, so a rename here changes every exporter at once.
//
// # What this package must NOT do
//
//   - Import an exporter package.
//   - Perform I/O.
package internaldefs
