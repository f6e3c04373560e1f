// Package audit delivers security events to their sinks.
//
// # Components
//
//   - [Sink]: interface for event consumers (store, JSON writer, channel, fan-out).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//
// A Sink never reports failure to its caller. Delivery errors go to the
// sink's error handler so the operation that produced the event is never
// blocked or reversed by an audit failure.
//
// This package does not decide which events to emit; that belongs to the
// Engine.
package audit
