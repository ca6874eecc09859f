package enums

import (
	"fmt"
	"strings"
)

// DatePreset names a relative date range resolved to absolute bounds at selection time.
type DatePreset string

const (
	DatePresetToday      DatePreset = "today"
	DatePresetYesterday  DatePreset = "yesterday"
	DatePresetLast7Days  DatePreset = "7days"
	DatePresetLast30Days DatePreset = "30days"
	DatePresetLast90Days DatePreset = "90days"
	DatePresetYTD        DatePreset = "ytd"
	DatePresetCustom     DatePreset = "custom"
)

var validDatePresets = []DatePreset{
	DatePresetToday,
	DatePresetYesterday,
	DatePresetLast7Days,
	DatePresetLast30Days,
	DatePresetLast90Days,
	DatePresetYTD,
	DatePresetCustom,
}

// DatePresets lists every preset in display order.
func DatePresets() []DatePreset {
	out := make([]DatePreset, len(validDatePresets))
	copy(out, validDatePresets)
	return out
}

// String implements fmt.Stringer.
func (p DatePreset) String() string {
	return string(p)
}

// IsValid reports whether the value is a known DatePreset.
func (p DatePreset) IsValid() bool {
	for _, candidate := range validDatePresets {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseDatePreset converts raw input into a DatePreset.
func ParseDatePreset(value string) (DatePreset, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validDatePresets {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid date preset %q", value)
}
