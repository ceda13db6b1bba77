// Package engine runs the protocol stack on a single goroutine.
//
// Transport drivers submit raw receive events from their own goroutines
// into a bounded queue. The Run loop is the only writer of protocol state:
// it dequeues events in FIFO order, steps them through the server receive
// and send filters, and hands the encoded payloads to the configured sinks.
// When the queue is idle, Run injects time-only events at a fixed interval
// so keep-alives, log retries and liveness timeouts advance without
// transport traffic.
//
// A full queue rejects new events instead of blocking the driver; drivers
// decide whether to retry or drop.
package engine
