package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/footfall-dashboard/internal/filters"
	pkgerrors "github.com/angelmondragon/footfall-dashboard/pkg/errors"
	"github.com/angelmondragon/footfall-dashboard/pkg/logger"
	"github.com/angelmondragon/footfall-dashboard/pkg/metrics"
	"github.com/angelmondragon/footfall-dashboard/pkg/trafficapi"
)

// Outcome is the fate of one refresh.
type Outcome string

const (
	OutcomeApplied   Outcome = metrics.OutcomeApplied
	OutcomeFailed    Outcome = metrics.OutcomeFailed
	OutcomeDiscarded Outcome = metrics.OutcomeDiscarded
)

// Fetcher queries the traffic aggregation endpoint.
type Fetcher interface {
	Traffic(ctx context.Context, q trafficapi.TrafficQuery) (*trafficapi.TrafficResponse, error)
}

// Source exposes the filters a refresh should use. *filters.Controller satisfies it.
type Source interface {
	Filters() filters.Filters
}

type fixedSource filters.Filters

func (f fixedSource) Filters() filters.Filters { return filters.Filters(f) }

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger refreshes are reported on.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Coordinator) {
		if logg != nil {
			c.logg = logg
		}
	}
}

// WithMetrics records refresh outcomes and durations on m. Nil disables recording.
func WithMetrics(m *metrics.RefreshMetrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithTimezone sets the zone date bounds are rendered in for the upstream query.
func WithTimezone(loc *time.Location) Option {
	return func(c *Coordinator) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithTimeout bounds each refresh. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = timeout
	}
}

// WithClock overrides the time source for durations and FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithUpdateHook registers fn to receive every applied snapshot.
func WithUpdateHook(fn func(Snapshot)) Option {
	return func(c *Coordinator) {
		c.onUpdate = fn
	}
}

// Coordinator fetches traffic data for filter changes and keeps the latest snapshot.
// Only the most recently issued refresh may change the snapshot.
type Coordinator struct {
	fetcher  Fetcher
	logg     *logger.Logger
	metrics  *metrics.RefreshMetrics
	loc      *time.Location
	timeout  time.Duration
	now      func() time.Time
	onUpdate func(Snapshot)

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu         sync.Mutex
	issued     uint64
	applied    uint64
	inFlight   int
	cancelLast context.CancelFunc
	snapshot   Snapshot
}

// NewCoordinator builds a coordinator over fetcher.
func NewCoordinator(fetcher Fetcher, opts ...Option) (*Coordinator, error) {
	if fetcher == nil {
		return nil, errors.New("traffic fetcher required")
	}
	c := &Coordinator{
		fetcher: fetcher,
		logg:    logger.Nop(),
		loc:     time.UTC,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.baseCtx, c.baseCancel = context.WithCancel(context.Background())
	return c, nil
}

// Attach triggers a refresh on every change published by ctrl.
// The refresh reads ctrl's filters when its sequence number is issued, so the
// latest sequence always carries the latest filters.
func (c *Coordinator) Attach(ctrl *filters.Controller) func() {
	return ctrl.Subscribe(func(filters.Filters) {
		c.TriggerFrom(ctrl)
	})
}

// Trigger issues a sequence number and refreshes f in the background.
// Any refresh still in flight is cancelled.
func (c *Coordinator) Trigger(f filters.Filters) uint64 {
	seq, _ := c.TriggerFrom(fixedSource(f))
	return seq
}

// TriggerFrom is Trigger with the filters read from src under the sequence lock.
func (c *Coordinator) TriggerFrom(src Source) (uint64, filters.Filters) {
	seq, ctx, f, ok := c.begin(c.baseCtx, src)
	if !ok {
		return seq, f
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_, _ = c.run(ctx, seq, f)
	}()
	return seq, f
}

// Refresh issues a sequence number and refreshes f synchronously.
func (c *Coordinator) Refresh(ctx context.Context, f filters.Filters) (Outcome, error) {
	return c.RefreshFrom(ctx, fixedSource(f))
}

// RefreshFrom is Refresh with the filters read from src under the sequence lock.
func (c *Coordinator) RefreshFrom(ctx context.Context, src Source) (Outcome, error) {
	seq, rctx, f, ok := c.begin(ctx, src)
	if !ok {
		return OutcomeDiscarded, pkgerrors.New(pkgerrors.CodeInternal, "coordinator closed")
	}
	return c.run(rctx, seq, f)
}

// Snapshot returns a copy of the current snapshot.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot.clone()
}

// Status reports issued and applied sequence numbers.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{Issued: c.issued, Applied: c.applied, InFlight: c.inFlight > 0}
}

// Wait blocks until every background refresh has returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close cancels in-flight refreshes and waits for them.
func (c *Coordinator) Close() {
	c.baseCancel()
	c.wg.Wait()
}

// begin issues the next sequence number and reads src in the same critical section.
// src must not call back into the coordinator.
func (c *Coordinator) begin(parent context.Context, src Source) (uint64, context.Context, filters.Filters, bool) {
	if parent == nil {
		parent = context.Background()
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.issued++
	seq := c.issued
	f := src.Filters()
	if c.cancelLast != nil {
		c.cancelLast()
		c.cancelLast = nil
	}
	if c.baseCtx.Err() != nil {
		return seq, nil, f, false
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, c.timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	c.cancelLast = cancel
	c.inFlight++
	return seq, ctx, f, true
}

func (c *Coordinator) run(ctx context.Context, seq uint64, f filters.Filters) (Outcome, error) {
	start := c.now()
	lctx := c.logg.WithRefresh(ctx, seq, f.Location.Kind.String(), f.Location.ID)
	lctx = c.logg.WithFields(lctx, map[string]any{
		"from": f.DateRange.From.In(c.loc).Format(time.RFC3339),
		"to":   f.DateRange.To.In(c.loc).Format(time.RFC3339),
	})
	c.logg.Debug(lctx, "dashboard refresh started")

	snap, err := c.fetch(ctx, f)
	outcome, update := c.finish(seq, snap, err)

	c.metrics.ObserveRefresh(string(outcome), c.now().Sub(start))
	switch outcome {
	case OutcomeDiscarded:
		c.logg.Info(lctx, "dashboard refresh superseded; result discarded")
		return outcome, nil
	case OutcomeFailed:
		c.logg.Error(lctx, "dashboard refresh failed", err)
	default:
		c.logg.Info(lctx, "dashboard refresh applied")
	}
	if update != nil && c.onUpdate != nil {
		c.onUpdate(*update)
	}
	return outcome, err
}

func (c *Coordinator) fetch(ctx context.Context, f filters.Filters) (snap Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("refresh panicked: %v", r))
		}
	}()

	resp, err := c.fetcher.Traffic(ctx, trafficapi.TrafficQuery{
		From:       f.DateRange.From.In(c.loc),
		To:         f.DateRange.To.In(c.loc),
		Kind:       f.Location.Kind,
		LocationID: f.Location.ID,
	})
	if err != nil {
		return Snapshot{}, err
	}
	return Reconcile(resp, f)
}

// finish applies a result when seq is still the latest issued.
func (c *Coordinator) finish(seq uint64, snap Snapshot, err error) (Outcome, *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inFlight--
	if seq != c.issued {
		return OutcomeDiscarded, nil
	}
	if c.cancelLast != nil {
		c.cancelLast()
		c.cancelLast = nil
	}
	c.applied = seq

	if err != nil {
		c.snapshot.Stale = true
		c.snapshot.LastError = err.Error()
		out := c.snapshot.clone()
		return OutcomeFailed, &out
	}
	snap.Seq = seq
	snap.FetchedAt = c.now()
	c.snapshot = snap
	out := snap.clone()
	return OutcomeApplied, &out
}
