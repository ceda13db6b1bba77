// Package lists replicates an append-only event log between two parties in
// bounded, sequence-numbered segments.
//
// The producer side is Sender. It retains at most MaxLen events, dropping the
// oldest, and emits up to MaxSegmentLen events per segment. Sending advances
// an optimistic cursor; when the cursor has caught up and the consumer has
// not acknowledged everything, the Sender goes back to the acknowledged
// point after RetryInterval of event time.
//
// The consumer side is Receiver. It applies segments in order, drops
// duplicates, and acknowledges with ExpectedLogEvent carrying the id it
// expects next. Acknowledgment is by event id, never by timestamp.
//
// When the consumer's position cannot be honored (it expects an evicted id,
// an id the producer never issued, or belongs to another producer session),
// the next segment restarts from the oldest retained event with Reset set,
// so a gap is always explicit.
package lists
