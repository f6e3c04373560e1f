// Package otel publishes authcore metrics on an OpenTelemetry Meter.
//
// [NewBridge] registers observable instruments named after the Prometheus
// series and reads [internaldefs.Collect] once per collection. The latency
// histogram is exposed as a cumulative bucket gauge labelled by "le" plus a
// count gauge. The caller owns the MeterProvider and its exporter.
package otel
