package dashboard

import (
	"strings"

	"github.com/angelmondragon/footfall-dashboard/internal/filters"
	pkgerrors "github.com/angelmondragon/footfall-dashboard/pkg/errors"
	"github.com/angelmondragon/footfall-dashboard/pkg/trafficapi"
)

const fallbackColor = "#9ca3af"

var ageColors = map[string]string{
	"0-17":  "#60a5fa",
	"18-24": "#34d399",
	"25-34": "#a78bfa",
	"35-44": "#fbbf24",
	"45-54": "#f87171",
	"55+":   "#6b7280",
}

const (
	maleColor   = "#3b82f6"
	femaleColor = "#ec4899"
)

// Reconcile converts a raw traffic response into a snapshot for the given filters.
// Seq and FetchedAt are left for the caller.
func Reconcile(resp *trafficapi.TrafficResponse, f filters.Filters) (Snapshot, error) {
	if err := resp.Validate(); err != nil {
		return Snapshot{}, err
	}

	summary, err := reconcileSummary(resp.Summary)
	if err != nil {
		return Snapshot{}, err
	}
	summary.Comparison = f.DateRange.Comparison
	series, overview := reconcileSeries(resp.Graph)

	return Snapshot{
		Filters:      f,
		Summary:      summary,
		Series:       series,
		Overview:     overview,
		Demographics: reconcileDemographics(resp.Age, resp.Gender),
	}, nil
}

func reconcileSummary(s *trafficapi.Summary) (TrafficSummary, error) {
	if !s.In.Count.Valid() || !s.Out.Count.Valid() {
		return TrafficSummary{}, pkgerrors.New(pkgerrors.CodeMalformed, "summary counts are null")
	}
	out := TrafficSummary{
		TotalIn:   s.In.Count.Int64(),
		TotalOut:  s.Out.Count.Int64(),
		ChangeIn:  s.In.Change.Float64(),
		ChangeOut: s.Out.Change.Float64(),
	}
	if s.Total != nil && s.Total.Count.Valid() {
		out.Total = s.Total.Count.Int64()
	} else {
		out.Total = out.TotalIn + out.TotalOut
	}
	if s.Total != nil && s.Total.Change.Valid() {
		out.ChangeTotal = s.Total.Change.Float64()
	} else {
		out.ChangeTotal = (out.ChangeIn + out.ChangeOut) / 2
	}
	return out, nil
}

func reconcileSeries(graph []trafficapi.GraphPoint) ([]TimeSeriesPoint, SeriesOverview) {
	series := make([]TimeSeriesPoint, 0, len(graph))
	var overview SeriesOverview
	for _, point := range graph {
		in, out := point.In.Int64(), point.Out.Int64()
		series = append(series, TimeSeriesPoint{
			Label: seriesLabel(point.Hour),
			In:    in,
			Out:   out,
			Total: in + out,
		})
		overview.TotalIn += in
		overview.TotalOut += out
	}
	overview.Buckets = len(series)
	if overview.Buckets > 0 {
		overview.AverageIn = float64(overview.TotalIn) / float64(overview.Buckets)
	}
	return series, overview
}

func seriesLabel(l trafficapi.Label) string {
	if l.Numeric {
		return l.Value + ":00"
	}
	return l.Value
}

func reconcileDemographics(age []trafficapi.AgeBucket, gender *trafficapi.GenderSplit) Demographics {
	d := Demographics{
		Gender: []Slice{
			{Label: "Male", Percentage: gender.Male.Float64(), Color: maleColor},
			{Label: "Female", Percentage: gender.Female.Float64(), Color: femaleColor},
		},
		Age:        make([]Slice, 0, len(age)),
		AgeByRange: make(map[string]float64, len(age)),
	}
	for _, bucket := range age {
		label := strings.TrimSpace(bucket.Range)
		if label == "" {
			continue
		}
		pct := bucket.Percent.Float64()
		color, ok := ageColors[label]
		if !ok {
			color = fallbackColor
		}
		d.Age = append(d.Age, Slice{Label: label, Percentage: pct, Color: color})
		d.AgeByRange[label] = pct
	}
	return d
}
