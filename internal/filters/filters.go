package filters

import (
	"time"

	"github.com/angelmondragon/footfall-dashboard/pkg/enums"
)

// Option is a selectable location for a kind.
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Location is the selected location filter. An empty ID means no location is selected.
type Location struct {
	Kind enums.LocationKind `json:"kind"`
	ID   string             `json:"id"`
}

// DateRange is the selected date filter. Bounds are frozen at selection time.
type DateRange struct {
	From       time.Time        `json:"from"`
	To         time.Time        `json:"to"`
	Preset     enums.DatePreset `json:"preset"`
	Comparison string           `json:"comparison,omitempty"`
}

// Valid reports whether both bounds are set and ordered.
func (r DateRange) Valid() bool {
	return !r.From.IsZero() && !r.To.IsZero() && !r.To.Before(r.From)
}

// Filters is the full filter state handed to the refresh coordinator.
type Filters struct {
	Location  Location  `json:"location"`
	DateRange DateRange `json:"date_range"`
}
