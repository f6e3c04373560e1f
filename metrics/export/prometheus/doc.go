// Package prometheus renders authcore counters and the login latency
// histogram in the Prometheus text exposition format.
//
// Mount [PrometheusExporter.Handler] on the server mux; nothing is
// registered globally.
package prometheus
