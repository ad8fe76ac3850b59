// Package metrics provides operational metrics for the guild state layer.
//
// Every store operation routed through the dashboard boundary records:
//   - an operation count by store, operation and outcome code
//   - a latency histogram by store and operation
//
// Metrics are exposed in Prometheus format by the dashboard ops listener.
package metrics
