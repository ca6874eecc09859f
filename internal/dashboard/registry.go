package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/footfall-dashboard/internal/filters"
	"github.com/angelmondragon/footfall-dashboard/internal/locations"
	"github.com/angelmondragon/footfall-dashboard/pkg/enums"
	pkgerrors "github.com/angelmondragon/footfall-dashboard/pkg/errors"
	"github.com/angelmondragon/footfall-dashboard/pkg/logger"
	"github.com/angelmondragon/footfall-dashboard/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// OptionLoader supplies location options for new sessions.
type OptionLoader interface {
	Load(ctx context.Context) locations.Options
}

// Session is the dashboard state of one authenticated operator session.
type Session struct {
	ID          string
	Controller  *filters.Controller
	Coordinator *Coordinator
	detach      func()
	lastSeen    atomic.Int64
}

// RegistryConfig wires the collaborators shared by every session.
// IdleTTL evicts sessions not used for that long; zero keeps them until dropped.
type RegistryConfig struct {
	Fetcher       Fetcher
	Catalog       OptionLoader
	Logger        *logger.Logger
	Metrics       *metrics.RefreshMetrics
	Timezone      *time.Location
	DefaultPreset enums.DatePreset
	Timeout       time.Duration
	IdleTTL       time.Duration
	Clock         func() time.Time
}

// Registry keys dashboard sessions by session id.
type Registry struct {
	cfg      RegistryConfig
	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
	creating singleflight.Group
	stop     chan struct{}
	done     chan struct{}
}

func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("traffic fetcher required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("location catalog required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if !cfg.DefaultPreset.IsValid() || cfg.DefaultPreset == enums.DatePresetCustom {
		cfg.DefaultPreset = enums.DatePresetToday
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	r := &Registry{
		cfg:      cfg,
		sessions: map[string]*Session{},
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if cfg.IdleTTL > 0 {
		go r.janitor(janitorInterval(cfg.IdleTTL))
	} else {
		close(r.done)
	}
	return r, nil
}

// Get returns the session for id, creating and bootstrapping it on first use.
// Bootstrapping happens outside the registry lock; concurrent first requests for
// the same id share one bootstrap.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session id required")
	}
	if s, ok := r.Lookup(id); ok {
		return s, nil
	}

	v, err, _ := r.creating.Do(id, func() (any, error) {
		if s, ok := r.Lookup(id); ok {
			return s, nil
		}
		s, err := r.bootstrap(context.WithoutCancel(ctx), id)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			s.close()
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "dashboard registry closed")
		}
		if existing, ok := r.sessions[id]; ok {
			r.mu.Unlock()
			s.close()
			return existing, nil
		}
		r.sessions[id] = s
		r.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Lookup returns an existing session without creating one.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		s.touch(r.cfg.Clock())
	}
	return s, ok
}

// Drop cancels and forgets the session for id.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.close()
	}
}

// Close stops eviction and drops every session.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	sessions := r.sessions
	r.sessions = map[string]*Session{}
	r.mu.Unlock()

	close(r.stop)
	<-r.done
	for _, s := range sessions {
		s.close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// EvictIdle drops sessions unused for longer than the idle TTL and returns how many went.
func (r *Registry) EvictIdle() int {
	if r.cfg.IdleTTL <= 0 {
		return 0
	}
	cutoff := r.cfg.Clock().Add(-r.cfg.IdleTTL).UnixNano()

	r.mu.Lock()
	var idle []*Session
	for id, s := range r.sessions {
		if s.lastSeen.Load() < cutoff {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.close()
		r.cfg.Logger.Info(r.cfg.Logger.WithSessionID(context.Background(), s.ID), "idle dashboard session evicted")
	}
	return len(idle)
}

func (r *Registry) janitor(every time.Duration) {
	defer close(r.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.EvictIdle()
		}
	}
}

func janitorInterval(ttl time.Duration) time.Duration {
	every := ttl / 2
	if every < time.Second {
		every = time.Second
	}
	if every > time.Minute {
		every = time.Minute
	}
	return every
}

// bootstrap loads options, selects the first store and the default preset, then triggers the first refresh.
func (r *Registry) bootstrap(ctx context.Context, id string) (*Session, error) {
	logg := r.cfg.Logger
	ctrl := filters.NewController(
		filters.WithClock(r.cfg.Clock),
		filters.WithLocation(r.cfg.Timezone),
	)
	coord, err := NewCoordinator(r.cfg.Fetcher,
		WithLogger(logg),
		WithMetrics(r.cfg.Metrics),
		WithTimezone(r.cfg.Timezone),
		WithTimeout(r.cfg.Timeout),
		WithClock(r.cfg.Clock),
	)
	if err != nil {
		return nil, err
	}

	for kind, opts := range r.cfg.Catalog.Load(ctx) {
		if err := ctrl.SetOptions(kind, opts); err != nil {
			return nil, err
		}
	}
	if stores := ctrl.Options(enums.LocationKindStore); len(stores) > 0 {
		if _, err := ctrl.SetLocation(enums.LocationKindStore, stores[0].ID); err != nil {
			return nil, err
		}
	}
	if _, err := ctrl.SelectPreset(r.cfg.DefaultPreset); err != nil {
		return nil, err
	}

	s := &Session{ID: id, Controller: ctrl, Coordinator: coord}
	s.touch(r.cfg.Clock())
	s.detach = coord.Attach(ctrl)
	coord.TriggerFrom(ctrl)

	logg.Info(logg.WithSessionID(ctx, id), "dashboard session created")
	return s, nil
}

func (s *Session) touch(at time.Time) {
	s.lastSeen.Store(at.UnixNano())
}

func (s *Session) close() {
	if s.detach != nil {
		s.detach()
	}
	s.Coordinator.Close()
}
