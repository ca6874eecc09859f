package dashboard

import (
	"time"

	"github.com/angelmondragon/footfall-dashboard/internal/filters"
)

// TrafficSummary holds the headline counters and their change against the comparison period.
type TrafficSummary struct {
	TotalIn     int64   `json:"total_in"`
	TotalOut    int64   `json:"total_out"`
	Total       int64   `json:"total"`
	ChangeIn    float64 `json:"change_in"`
	ChangeOut   float64 `json:"change_out"`
	ChangeTotal float64 `json:"change_total"`
	Comparison  string  `json:"comparison,omitempty"`
}

// TimeSeriesPoint is one bucket of the traffic chart.
type TimeSeriesPoint struct {
	Label string `json:"label"`
	In    int64  `json:"in"`
	Out   int64  `json:"out"`
	Total int64  `json:"total"`
}

// SeriesOverview totals the series over the whole range. With daily buckets it is
// the datewise overview: total in, total out and the average in-count per day.
type SeriesOverview struct {
	Buckets   int     `json:"buckets"`
	TotalIn   int64   `json:"total_in"`
	TotalOut  int64   `json:"total_out"`
	AverageIn float64 `json:"average_in"`
}

// Slice is one segment of a demographic chart.
type Slice struct {
	Label      string  `json:"label"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// Demographics holds the gender and age breakdowns. Percentages are not normalised.
type Demographics struct {
	Gender     []Slice            `json:"gender"`
	Age        []Slice            `json:"age"`
	AgeByRange map[string]float64 `json:"age_by_range"`
}

// Snapshot is the view model published after a refresh.
type Snapshot struct {
	Filters      filters.Filters   `json:"filters"`
	Summary      TrafficSummary    `json:"summary"`
	Series       []TimeSeriesPoint `json:"series"`
	Overview     SeriesOverview    `json:"overview"`
	Demographics Demographics      `json:"demographics"`
	Seq          uint64            `json:"seq"`
	FetchedAt    time.Time         `json:"fetched_at"`
	Stale        bool              `json:"stale"`
	LastError    string            `json:"last_error,omitempty"`
}

// HasData reports whether a refresh has ever been applied successfully.
func (s Snapshot) HasData() bool {
	return !s.FetchedAt.IsZero()
}

func (s Snapshot) clone() Snapshot {
	out := s
	if s.Series != nil {
		out.Series = append([]TimeSeriesPoint(nil), s.Series...)
	}
	if s.Demographics.Gender != nil {
		out.Demographics.Gender = append([]Slice(nil), s.Demographics.Gender...)
	}
	if s.Demographics.Age != nil {
		out.Demographics.Age = append([]Slice(nil), s.Demographics.Age...)
	}
	if s.Demographics.AgeByRange != nil {
		out.Demographics.AgeByRange = make(map[string]float64, len(s.Demographics.AgeByRange))
		for k, v := range s.Demographics.AgeByRange {
			out.Demographics.AgeByRange[k] = v
		}
	}
	return out
}

// Status describes the coordinator's sequence bookkeeping.
type Status struct {
	Issued   uint64 `json:"issued"`
	Applied  uint64 `json:"applied"`
	InFlight bool   `json:"in_flight"`
}
