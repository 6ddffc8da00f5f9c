// Package location runs the location round trip of a session.
package location

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nearby/internal/domain/geo"
	"github.com/kailas-cloud/nearby/internal/logger"
	"github.com/kailas-cloud/nearby/internal/metrics"
)

// ErrTimeout is returned by Resolve when the client did not answer in time.
var ErrTimeout = errors.New("location request timed out")

// Broker correlates location requests with client responses for one session.
// Resolve is called by the conversation loop; Deliver by the transport's read loop.
type Broker struct {
	requester Requester
	timeout   time.Duration
	newID     func() string

	mu      sync.Mutex
	known   *geo.Point
	pending map[string]chan geo.Point
}

// NewBroker creates a broker that waits at most timeout for each response.
func NewBroker(requester Requester, timeout time.Duration) *Broker {
	return &Broker{
		requester: requester,
		timeout:   timeout,
		newID:     uuid.NewString,
		pending:   make(map[string]chan geo.Point),
	}
}

// Known returns the last location the client reported, or nil.
func (b *Broker) Known() *geo.Point {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.known == nil {
		return nil
	}
	p := *b.known
	return &p
}

// Resolve returns the known location, or asks the client and waits for the
// correlated answer. It returns ErrTimeout after the broker timeout and
// ctx.Err() when ctx ends first.
func (b *Broker) Resolve(ctx context.Context) (*geo.Point, error) {
	if p := b.Known(); p != nil {
		metrics.LocationRequestsTotal.WithLabelValues("known").Inc()
		return p, nil
	}

	id := b.newID()
	ch := make(chan geo.Point, 1)

	b.mu.Lock()
	b.pending[id] = ch
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	log := logger.FromContext(ctx).With(zap.String("location_request_id", id))
	if err := b.requester.RequestLocation(ctx, id); err != nil {
		metrics.LocationRequestsTotal.WithLabelValues("request_error").Inc()
		return nil, fmt.Errorf("request location: %w", err)
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case p := <-ch:
		metrics.LocationRequestsTotal.WithLabelValues("resolved").Inc()
		log.Debug("location resolved")
		return &p, nil
	case <-timer.C:
		metrics.LocationRequestsTotal.WithLabelValues("timeout").Inc()
		log.Info("location request timed out", zap.Duration("timeout", b.timeout))
		return nil, ErrTimeout
	case <-ctx.Done():
		metrics.LocationRequestsTotal.WithLabelValues("canceled").Inc()
		return nil, ctx.Err() //nolint:wrapcheck // callers match on context errors
	}
}

// Deliver records a client-reported location. It completes the waiter for
// requestID and reports whether one was waiting. Uncorrelated or unsolicited
// responses only update the known location. Invalid points are dropped.
func (b *Broker) Deliver(requestID string, p geo.Point) bool {
	if !p.Valid() {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.known = &p
	ch, ok := b.pending[requestID]
	if !ok {
		return false
	}
	delete(b.pending, requestID)
	ch <- p // buffered, single send per id
	return true
}
