// Package tracer wires the capture pipeline together: it receives raw
// engine notifications, classifies lines, maintains call and loop context,
// tracks file registration and cross-file transitions, builds trace events,
// and streams them to the observer.
//
// # Lifecycle
//
// A Session moves Idle -> Connecting -> Active -> Stopped. A failed observer
// connection still reaches Active: tracing is useful with no observer
// attached, and statistics are computed from local state on Stop. Stopped is
// terminal; a new Start needs a new Session.
//
// # Safety
//
// The capture path never raises into the traced program. Fallible steps
// degrade to safe defaults, state errors are clamped (stack underflow is a
// no-op), and a single recover boundary in Notify converts anything
// unexpected into a logged warning.
//
// # Concurrency
//
// One mutex serializes the pipeline, so notifications arriving from several
// goroutines interleave without corrupting the call stack or the event-id
// sequence.
package tracer
