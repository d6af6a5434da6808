package classifier

import (
	"sync"
	"time"

	"github.com/signbridge/backend/internal/model"
)

// Outcome is the terminal result of one pending classification request.
// Exactly one of Result and Err is meaningful.
type Outcome struct {
	Result model.Classification
	Err    error
}

type pendingRequest struct {
	ch    chan Outcome
	timer *time.Timer
}

// Correlator matches worker responses to their originating requests by
// correlation id. An id present in the pending map corresponds to exactly
// one still-unresolved caller; resolving, failing or timing out removes the
// entry exactly once, so a late response for an already-settled id is
// silently dropped.
type Correlator struct {
	mu      sync.Mutex
	pending map[string]*pendingRequest
}

// NewCorrelator creates an empty Correlator.
func NewCorrelator() *Correlator {
	return &Correlator{
		pending: make(map[string]*pendingRequest),
	}
}

// Register adds a pending entry for the id and returns the channel its
// outcome will be delivered on. If no outcome arrives within timeout the
// entry is discarded and the channel receives a timeout error.
func (c *Correlator) Register(id string, timeout time.Duration) <-chan Outcome {
	p := &pendingRequest{ch: make(chan Outcome, 1)}

	c.mu.Lock()
	c.pending[id] = p
	p.timer = time.AfterFunc(timeout, func() {
		c.Fail(id, model.ErrClassifyTimeout)
	})
	c.mu.Unlock()

	return p.ch
}

// Resolve settles the pending request for the id with a result. It returns
// false if the id is unknown or already settled.
func (c *Correlator) Resolve(id string, result model.Classification) bool {
	p := c.take(id)
	if p == nil {
		return false
	}
	p.ch <- Outcome{Result: result}
	return true
}

// Fail settles the pending request for the id with an error. It returns
// false if the id is unknown or already settled.
func (c *Correlator) Fail(id string, err error) bool {
	p := c.take(id)
	if p == nil {
		return false
	}
	p.ch <- Outcome{Err: err}
	return true
}

// RejectAll settles every pending request with the same error.
func (c *Correlator) RejectAll(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]*pendingRequest)
	c.mu.Unlock()

	for _, p := range pending {
		p.timer.Stop()
		p.ch <- Outcome{Err: err}
	}
}

// take removes and returns the pending entry for the id, stopping its timer.
func (c *Correlator) take(id string) *pendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[id]
	if !ok {
		return nil
	}
	delete(c.pending, id)
	p.timer.Stop()
	return p
}

// PendingCount returns the number of unresolved requests.
func (c *Correlator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
