package enums

import (
	"fmt"
	"strings"
)

// LocationKind is the granularity of the location filter.
type LocationKind string

const (
	LocationKindStore  LocationKind = "store"
	LocationKindCity   LocationKind = "city"
	LocationKindRegion LocationKind = "region"
	LocationKindGlobal LocationKind = "global"
)

var validLocationKinds = []LocationKind{
	LocationKindStore,
	LocationKindCity,
	LocationKindRegion,
	LocationKindGlobal,
}

// LocationKinds lists every kind in display order.
func LocationKinds() []LocationKind {
	out := make([]LocationKind, len(validLocationKinds))
	copy(out, validLocationKinds)
	return out
}

// String implements fmt.Stringer.
func (k LocationKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known LocationKind.
func (k LocationKind) IsValid() bool {
	for _, candidate := range validLocationKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// QueryParam is the traffic query parameter carrying an identifier of this kind, e.g. store_id.
func (k LocationKind) QueryParam() string {
	return string(k) + "_id"
}

// ParseLocationKind converts raw input into a LocationKind.
func ParseLocationKind(value string) (LocationKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validLocationKinds {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid location kind %q", value)
}
