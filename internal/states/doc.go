// Package states reconciles one party's view of the shared state.
//
// Each party (MCU, frontend, file) owns one Synchronizer, and each
// Synchronizer owns one Store. A Store maps a message kind to at most one
// current value; a missing entry means the kind was never observed. The
// Synchronizer validates values on Input, writes them last-write-wins, and
// emits changed values back to its party on Output, one per call.
//
// Output is send-on-change: a stored value is emitted once per change.
// Keep-alive kinds are exempt and are re-emitted on a fixed interval of
// event time even when unchanged.
package states
