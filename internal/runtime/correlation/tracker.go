// Package correlation tracks pending request-response exchanges by their
// correlation id.
package correlation

import (
	"sync"
	"time"

	errspkg "github.com/funcstream/funcstream/internal/runtime/errors"
	loggingpkg "github.com/funcstream/funcstream/internal/runtime/logging"
)

// Result is what a waiting caller receives for a tracked request: either
// the reply payload or the failure that ended the wait.
type Result struct {
	Data map[string]any
	Err  error
}

type pendingRequest struct {
	correlationID string
	createdAt     time.Time
	reply         chan Result
}

// Tracker maps correlation ids to pending reply channels. Every tracked id
// is eventually resolved or expired; at most one entry exists per id at any
// time.
type Tracker struct {
	timeout time.Duration
	logger  loggingpkg.ServiceLogger

	mu      sync.Mutex
	pending map[string]*pendingRequest
	closed  bool

	stopJanitor chan struct{}
	janitorDone chan struct{}
}

// NewTracker creates a tracker whose entries expire after timeout. A zero
// timeout disables automatic expiry; Expire can still be called directly.
func NewTracker(timeout time.Duration, logger loggingpkg.ServiceLogger) *Tracker {
	if logger == nil {
		logger = loggingpkg.Nop()
	}
	t := &Tracker{
		timeout:     timeout,
		logger:      logger,
		pending:     make(map[string]*pendingRequest),
		stopJanitor: make(chan struct{}),
		janitorDone: make(chan struct{}),
	}

	if timeout > 0 {
		go t.janitor()
	} else {
		close(t.janitorDone)
	}
	return t
}

func (t *Tracker) janitor() {
	defer close(t.janitorDone)

	interval := t.timeout / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	if interval > time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopJanitor:
			return
		case now := <-ticker.C:
			t.expireOlderThan(now.Add(-t.timeout))
		}
	}
}

func (t *Tracker) expireOlderThan(cutoff time.Time) {
	t.mu.Lock()
	var stale []*pendingRequest
	for id, req := range t.pending {
		if req.createdAt.Before(cutoff) || req.createdAt.Equal(cutoff) {
			stale = append(stale, req)
			delete(t.pending, id)
		}
	}
	t.mu.Unlock()

	for _, req := range stale {
		t.deliverTimeout(req)
	}
}

func (t *Tracker) deliverTimeout(req *pendingRequest) {
	t.logger.Debug("pending request expired", loggingpkg.LogFields{
		"correlation_id": req.correlationID,
	})
	req.reply <- Result{Err: &errspkg.TimeoutError{
		CorrelationID: req.correlationID,
		After:         time.Since(req.createdAt),
	}}
	close(req.reply)
}

// Track registers a pending request and returns the channel its result will
// be delivered on. The channel receives exactly one Result. Registering an
// id that is already pending fails with DuplicateCorrelationError.
func (t *Tracker) Track(correlationID string) (<-chan Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, errspkg.ErrTrackerClosed
	}
	if _, dup := t.pending[correlationID]; dup {
		return nil, &errspkg.DuplicateCorrelationError{CorrelationID: correlationID}
	}

	req := &pendingRequest{
		correlationID: correlationID,
		createdAt:     time.Now(),
		reply:         make(chan Result, 1),
	}
	t.pending[correlationID] = req
	return req.reply, nil
}

// Resolve delivers the result to the waiting channel and removes the entry.
// An unknown id (already expired or never tracked) is logged and ignored.
func (t *Tracker) Resolve(correlationID string, result Result) {
	t.mu.Lock()
	req, ok := t.pending[correlationID]
	if ok {
		delete(t.pending, correlationID)
	}
	t.mu.Unlock()

	if !ok {
		t.logger.Debug("resolve for unknown correlation id", loggingpkg.LogFields{
			"correlation_id": correlationID,
		})
		return
	}

	req.reply <- result
	close(req.reply)
}

// Expire removes the entry and surfaces a TimeoutError to anyone still
// waiting. Unknown ids are ignored.
func (t *Tracker) Expire(correlationID string) {
	t.mu.Lock()
	req, ok := t.pending[correlationID]
	if ok {
		delete(t.pending, correlationID)
	}
	t.mu.Unlock()

	if ok {
		t.deliverTimeout(req)
	}
}

// Len returns the number of pending requests.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Close stops the janitor and expires every outstanding request. Track
// fails after Close.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	outstanding := make([]*pendingRequest, 0, len(t.pending))
	for id, req := range t.pending {
		outstanding = append(outstanding, req)
		delete(t.pending, id)
	}
	t.mu.Unlock()

	close(t.stopJanitor)
	<-t.janitorDone

	for _, req := range outstanding {
		t.deliverTimeout(req)
	}
}
