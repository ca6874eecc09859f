package filters

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/footfall-dashboard/pkg/enums"
	pkgerrors "github.com/angelmondragon/footfall-dashboard/pkg/errors"
)

// Listener receives a copy of the filters after every accepted change.
type Listener func(Filters)

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithClock overrides the time source used to resolve presets.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLocation sets the zone presets are resolved in.
func WithLocation(loc *time.Location) ControllerOption {
	return func(c *Controller) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// Controller owns the location and date-range selection of a single dashboard.
// Changes are delivered to listeners one at a time, in the order they were made.
// Listeners may read the controller but must not change it.
type Controller struct {
	deliver   sync.Mutex
	mu        sync.Mutex
	now       func() time.Time
	loc       *time.Location
	state     Filters
	options   map[enums.LocationKind][]Option
	listeners map[int]Listener
	nextID    int
}

// NewController returns a controller scoped to stores with no date range selected.
func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		now:       time.Now,
		loc:       time.UTC,
		options:   map[enums.LocationKind][]Option{},
		listeners: map[int]Listener{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.state.Location.Kind = enums.LocationKindStore
	return c
}

// Filters returns a copy of the current state.
func (c *Controller) Filters() Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Options returns the option set last loaded for kind.
func (c *Controller) Options(kind enums.LocationKind) []Option {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneOptions(c.options[kind])
}

// HasOptions reports whether an option set was ever recorded for kind.
func (c *Controller) HasOptions(kind enums.LocationKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.options[kind]
	return ok
}

// SetOptions records the option set for kind. It does not notify.
// A nil set forgets the kind, so any id is accepted for it again.
func (c *Controller) SetOptions(kind enums.LocationKind, opts []Option) error {
	if !kind.IsValid() {
		return invalidKind(kind)
	}
	c.mu.Lock()
	if opts == nil {
		delete(c.options, kind)
	} else {
		c.options[kind] = cloneOptions(opts)
	}
	c.mu.Unlock()
	return nil
}

// SetLocation selects id within kind. An empty id is ignored.
func (c *Controller) SetLocation(kind enums.LocationKind, id string) (bool, error) {
	if !kind.IsValid() {
		return false, invalidKind(kind)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return false, nil
	}

	c.deliver.Lock()
	defer c.deliver.Unlock()
	c.mu.Lock()
	if opts, ok := c.options[kind]; ok && !containsOption(opts, id) {
		c.mu.Unlock()
		return false, pkgerrors.New(pkgerrors.CodeValidation, "unknown location").
			WithDetails(map[string]any{"kind": kind, "id": id})
	}
	c.state.Location = Location{Kind: kind, ID: id}
	snapshot, listeners := c.state, c.listenersLocked()
	c.mu.Unlock()

	notify(listeners, snapshot)
	return true, nil
}

// SwitchKind changes the location kind and resets the id to the first known option.
func (c *Controller) SwitchKind(kind enums.LocationKind) (Location, error) {
	if !kind.IsValid() {
		return Location{}, invalidKind(kind)
	}

	c.deliver.Lock()
	defer c.deliver.Unlock()
	c.mu.Lock()
	next := Location{Kind: kind}
	if opts := c.options[kind]; len(opts) > 0 {
		next.ID = opts[0].ID
	}
	c.state.Location = next
	snapshot, listeners := c.state, c.listenersLocked()
	c.mu.Unlock()

	notify(listeners, snapshot)
	return next, nil
}

// SelectPreset resolves preset against the clock and freezes the resulting bounds.
// custom keeps the current bounds.
func (c *Controller) SelectPreset(preset enums.DatePreset) (DateRange, error) {
	if !preset.IsValid() {
		return DateRange{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown date preset").
			WithDetails(map[string]any{"preset": preset})
	}

	c.deliver.Lock()
	defer c.deliver.Unlock()
	c.mu.Lock()
	if preset == enums.DatePresetCustom {
		c.state.DateRange.Preset = enums.DatePresetCustom
		c.state.DateRange.Comparison = customComparison()
	} else {
		resolved, _ := ResolvePreset(preset, c.now(), c.loc)
		c.state.DateRange = resolved
	}
	snapshot, listeners := c.state, c.listenersLocked()
	c.mu.Unlock()

	notify(listeners, snapshot)
	return snapshot.DateRange, nil
}

// SetCustomRange selects explicit bounds, kept as given.
func (c *Controller) SetCustomRange(from, to time.Time) (DateRange, error) {
	if from.IsZero() || to.IsZero() {
		return DateRange{}, pkgerrors.New(pkgerrors.CodeValidation, "from and to are required")
	}
	if from.After(to) {
		return DateRange{}, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to").
			WithDetails(map[string]any{"from": from, "to": to})
	}

	c.deliver.Lock()
	defer c.deliver.Unlock()
	c.mu.Lock()
	c.state.DateRange = DateRange{
		From:       from,
		To:         to,
		Preset:     enums.DatePresetCustom,
		Comparison: customComparison(),
	}
	snapshot, listeners := c.state, c.listenersLocked()
	c.mu.Unlock()

	notify(listeners, snapshot)
	return snapshot.DateRange, nil
}

// Subscribe registers fn for change notifications. The returned func removes it.
func (c *Controller) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// listenersLocked returns listeners in registration order. Callers hold c.mu.
func (c *Controller) listenersLocked() []Listener {
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.listeners[id])
	}
	return out
}

func notify(listeners []Listener, state Filters) {
	for _, fn := range listeners {
		fn(state)
	}
}

func customComparison() string {
	info, _ := presetInfo(enums.DatePresetCustom)
	return info.Comparison
}

func containsOption(opts []Option, id string) bool {
	for _, opt := range opts {
		if opt.ID == id {
			return true
		}
	}
	return false
}

func cloneOptions(opts []Option) []Option {
	if opts == nil {
		return nil
	}
	out := make([]Option, len(opts))
	copy(out, opts)
	return out
}

func invalidKind(kind enums.LocationKind) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "unknown location kind").
		WithDetails(map[string]any{"kind": kind})
}
