package filters

import (
	"time"

	"github.com/angelmondragon/footfall-dashboard/pkg/enums"
)

// PresetInfo describes one entry of the presets table.
type PresetInfo struct {
	ID         enums.DatePreset `json:"id"`
	Name       string           `json:"name"`
	Comparison string           `json:"comparison"`
}

var presetTable = []PresetInfo{
	{ID: enums.DatePresetToday, Name: "Today", Comparison: "Yesterday"},
	{ID: enums.DatePresetYesterday, Name: "Yesterday", Comparison: "prev day"},
	{ID: enums.DatePresetLast7Days, Name: "Last 7 Days", Comparison: "prev 7 days"},
	{ID: enums.DatePresetLast30Days, Name: "Last 30 Days", Comparison: "prev 30 days"},
	{ID: enums.DatePresetLast90Days, Name: "Last 90 Days", Comparison: "prev 90 days"},
	{ID: enums.DatePresetYTD, Name: "Year to Date", Comparison: "prev YTD"},
	{ID: enums.DatePresetCustom, Name: "Custom Range", Comparison: "prev range"},
}

// Presets returns the fixed presets table in display order.
func Presets() []PresetInfo {
	out := make([]PresetInfo, len(presetTable))
	copy(out, presetTable)
	return out
}

func presetInfo(preset enums.DatePreset) (PresetInfo, bool) {
	for _, info := range presetTable {
		if info.ID == preset {
			return info, true
		}
	}
	return PresetInfo{}, false
}

// ResolvePreset computes the bounds of a named preset relative to now, interpreted in loc.
// custom has no bounds of its own and reports false.
func ResolvePreset(preset enums.DatePreset, now time.Time, loc *time.Location) (DateRange, bool) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	info, ok := presetInfo(preset)
	if !ok || preset == enums.DatePresetCustom {
		return DateRange{}, false
	}

	r := DateRange{To: now, Preset: preset, Comparison: info.Comparison}
	switch preset {
	case enums.DatePresetToday:
		r.From = startOfDay(now)
	case enums.DatePresetYesterday:
		y := now.AddDate(0, 0, -1)
		r.From = startOfDay(y)
		r.To = endOfDay(y)
	case enums.DatePresetLast7Days:
		r.From = now.Add(-7 * 24 * time.Hour)
	case enums.DatePresetLast30Days:
		r.From = now.Add(-30 * 24 * time.Hour)
	case enums.DatePresetLast90Days:
		r.From = now.Add(-90 * 24 * time.Hour)
	case enums.DatePresetYTD:
		r.From = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
	}
	return r, true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
