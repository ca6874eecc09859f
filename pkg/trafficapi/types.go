package trafficapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/footfall-dashboard/pkg/enums"
	pkgerrors "github.com/angelmondragon/footfall-dashboard/pkg/errors"
)

const calendarDateLayout = "2006-01-02"

// Location is a selectable entry returned by the listing endpoints.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TrafficQuery parameterises a call to /traffic. From and To are sent as
// inclusive calendar dates in their own time zone.
type TrafficQuery struct {
	From       time.Time
	To         time.Time
	Kind       enums.LocationKind
	LocationID string
}

// TrafficResponse is the raw aggregation payload before reconciliation.
type TrafficResponse struct {
	Age     []AgeBucket  `json:"age"`
	Gender  *GenderSplit `json:"gender"`
	Graph   []GraphPoint `json:"graph"`
	Summary *Summary     `json:"summary"`
}

type AgeBucket struct {
	Range   string `json:"range"`
	Percent Number `json:"percent"`
}

type GenderSplit struct {
	Male   Number `json:"male"`
	Female Number `json:"female"`
}

// GraphPoint is one reporting bucket. Hour is either an hour-of-day number or a label such as a date.
type GraphPoint struct {
	Hour Label  `json:"hour"`
	In   Number `json:"in"`
	Out  Number `json:"out"`
}

type Summary struct {
	In    *SummaryEntry `json:"in"`
	Out   *SummaryEntry `json:"out"`
	Total *SummaryEntry `json:"total"`
}

type SummaryEntry struct {
	Count  Number `json:"count"`
	Change Number `json:"change"`
}

// Validate reports shape problems that make the payload unusable.
func (r *TrafficResponse) Validate() error {
	if r == nil {
		return pkgerrors.New(pkgerrors.CodeMalformed, "empty traffic response")
	}
	missing := []string{}
	if r.Age == nil {
		missing = append(missing, "age")
	}
	if r.Gender == nil {
		missing = append(missing, "gender")
	}
	if r.Graph == nil {
		missing = append(missing, "graph")
	}
	if r.Summary == nil {
		missing = append(missing, "summary")
	} else {
		if r.Summary.In == nil {
			missing = append(missing, "summary.in")
		}
		if r.Summary.Out == nil {
			missing = append(missing, "summary.out")
		}
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeMalformed, "traffic response is missing fields").
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}

// Number accepts a JSON number, a numeric string (optionally suffixed with %), or null.
type Number struct {
	value decimal.Decimal
	valid bool
}

// NewNumber builds a valid Number from a float.
func NewNumber(v float64) Number {
	return Number{value: decimal.NewFromFloat(v), valid: true}
}

func (n *Number) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*n = Number{}
		return nil
	}

	raw := string(trimmed)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		raw = strings.TrimSuffix(strings.TrimSpace(s), "%")
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*n = Number{}
			return nil
		}
	}

	parsed, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid numeric value %s: %w", string(trimmed), err)
	}
	*n = Number{value: parsed, valid: true}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return []byte(n.value.String()), nil
}

// Valid reports whether a value was present.
func (n Number) Valid() bool {
	return n.valid
}

// Float64 returns the value, or zero when absent.
func (n Number) Float64() float64 {
	if !n.valid {
		return 0
	}
	f, _ := n.value.Float64()
	return f
}

// Int64 returns the value rounded to the nearest integer, or zero when absent.
func (n Number) Int64() int64 {
	if !n.valid {
		return 0
	}
	return n.value.Round(0).IntPart()
}

// Label accepts either a JSON string or a JSON number and keeps its text form.
type Label struct {
	Value   string
	Numeric bool
}

func (l *Label) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = Label{}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*l = Label{Value: strings.TrimSpace(s)}
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err != nil {
		return fmt.Errorf("label must be a string or number: %w", err)
	}
	*l = Label{Value: num.String(), Numeric: true}
	return nil
}

func (l Label) MarshalJSON() ([]byte, error) {
	if l.Numeric && l.Value != "" {
		return []byte(l.Value), nil
	}
	return json.Marshal(l.Value)
}

func (l Label) String() string {
	return l.Value
}
