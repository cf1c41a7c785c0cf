package core

// replyWindow is how far behind the next sequence number a reply may be once the counter wrapped.
const replyWindow = 120

// SequenceCounter hands out echo sequence numbers and decides whether a reply's sequence number
// belongs to a recently sent request. It is not safe for concurrent use.
type SequenceCounter struct {
	next    uint16
	wrapped bool
}

// Next returns the sequence number to use for the next request.
func (c *SequenceCounter) Next() uint16 {
	return c.next
}

// Advance moves past the current sequence number. Once it rolls over to 0 the counter stays
// marked as wrapped.
func (c *SequenceCounter) Advance() {
	c.next++
	if c.next == 0 {
		c.wrapped = true
	}
}

// Wrapped returns whether the counter has rolled over at least once.
func (c *SequenceCounter) Wrapped() bool {
	return c.wrapped
}

// Valid returns whether seq may be the sequence number of a request this counter issued.
func (c *SequenceCounter) Valid(seq uint16) bool {
	if c.wrapped {
		return c.next-seq < replyWindow
	}
	return seq < c.next
}
