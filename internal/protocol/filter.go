// Package protocol defines the pull-based filter contract shared by every
// stage of the protocol stack.
//
// A filter buffers zero or one unit per Input call and transforms buffered
// input on Output. Filters never block and never perform I/O: a nil Output
// means nothing is ready, and the caller decides when to poll again.
package protocol

// Filter is one sans-I/O stage of the pipeline.
//
// Input with a nil-equivalent value is a no-op. Output returns the zero
// value of Out (nil for pointer and interface types) when nothing is ready;
// Output without a prior Input always returns the zero value.
type Filter[In, Out any] interface {
	Input(event In)
	Output() Out
}

// Channel is a FIFO buffer used by filters to hold inputs between polls.
//
// Channel is not safe for concurrent use; filters are confined to the
// pipeline goroutine.
type Channel[T any] struct {
	items []T
}

// Push appends item to the back of the buffer.
func (c *Channel[T]) Push(item T) {
	c.items = append(c.items, item)
}

// Pop removes and returns the front item.
func (c *Channel[T]) Pop() (T, bool) {
	var zero T
	if len(c.items) == 0 {
		return zero, false
	}
	item := c.items[0]
	c.items[0] = zero
	if len(c.items) == 1 {
		c.items = c.items[:0]
	} else {
		c.items = c.items[1:]
	}
	return item, true
}

// Len returns the number of buffered items.
func (c *Channel[T]) Len() int {
	return len(c.items)
}
