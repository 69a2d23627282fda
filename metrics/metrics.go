// Package metrics defines the statistics sink the feed cache reports
// to. The cache calls these methods from inside its critical sections,
// so every implementation must be fast and non-blocking.
package metrics

// Metrics receives shared-pool lifecycle events.
type Metrics interface {
	// Miss is called when a block covered a requested id's range but
	// the slot was empty: a genuine cache miss, never an inactive
	// partition or a closed pool.
	Miss()

	// CheckOut is called on every successful block checkout.
	CheckOut()

	// CheckIn is called on every block check-in, including bulk
	// check-in on teardown.
	CheckIn()

	// Exhausted is called when a checkout fails because the shared
	// pool is at its configured capacity.
	Exhausted()
}

// Noop discards every event. It is the default sink when none is
// configured, so call sites never need a nil check.
type Noop struct{}

func (Noop) Miss()      {}
func (Noop) CheckOut()  {}
func (Noop) CheckIn()   {}
func (Noop) Exhausted() {}

var _ Metrics = Noop{}
