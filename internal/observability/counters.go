package observability

import "sync/atomic"

// Counters tracks process-wide gateway activity. All methods are safe
// for concurrent use.
type Counters struct {
	connectionsAccepted atomic.Int64
	activeConnections   atomic.Int64
	messagesProcessed   atomic.Int64
	errorsObserved      atomic.Int64
}

// NewCounters creates a zeroed Counters.
func NewCounters() *Counters {
	return &Counters{}
}

// ConnectionAccepted records a new inbound connection.
func (c *Counters) ConnectionAccepted() {
	c.connectionsAccepted.Add(1)
	c.activeConnections.Add(1)
}

// ConnectionClosed records a connection teardown.
func (c *Counters) ConnectionClosed() {
	// Clamp at zero so a double-close cannot drive the gauge negative.
	for {
		cur := c.activeConnections.Load()
		if cur <= 0 {
			return
		}
		if c.activeConnections.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// MessageProcessed records one handled inbound frame.
func (c *Counters) MessageProcessed() {
	c.messagesProcessed.Add(1)
}

// ErrorObserved records an absorbed failure.
func (c *Counters) ErrorObserved() {
	c.errorsObserved.Add(1)
}

// CountersSnapshot is a point-in-time copy of all counters.
type CountersSnapshot struct {
	ConnectionsAccepted int64 `json:"total_connections"`
	ActiveConnections   int64 `json:"active_connections"`
	MessagesProcessed   int64 `json:"messages_processed"`
	ErrorsObserved      int64 `json:"errors_occurred"`
}

// Snapshot returns the current counter values.
func (c *Counters) Snapshot() CountersSnapshot {
	return CountersSnapshot{
		ConnectionsAccepted: c.connectionsAccepted.Load(),
		ActiveConnections:   c.activeConnections.Load(),
		MessagesProcessed:   c.messagesProcessed.Load(),
		ErrorsObserved:      c.errorsObserved.Load(),
	}
}
