package scenario

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Horizon is a single time-horizon label.
type Horizon string

const (
	Horizon1Year      Horizon = "1-year"
	Horizon3Year      Horizon = "3-year"
	Horizon5Year      Horizon = "5-year"
	HorizonIrrelevant Horizon = "Time-irrelevant"
)

var horizonOrder = map[Horizon]int{Horizon1Year: 1, Horizon3Year: 3, Horizon5Year: 5}

// TimeHorizon is either the single sentinel Time-irrelevant or a non-empty,
// ascending set of year horizons. The two forms never mix.
type TimeHorizon []Horizon

// ParseHorizon resolves a label such as "3-year", "3", "3 years" or
// "time-irrelevant".
func ParseHorizon(s string) (Horizon, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	switch norm {
	case "time-irrelevant", "time irrelevant", "timeless":
		return HorizonIrrelevant, nil
	case "1", "1-year", "1 year", "1-yr", "1y":
		return Horizon1Year, nil
	case "3", "3-year", "3 year", "3 years", "3-yr", "3y":
		return Horizon3Year, nil
	case "5", "5-year", "5 year", "5 years", "5-yr", "5y":
		return Horizon5Year, nil
	}
	return "", fmt.Errorf("unknown time horizon %q", s)
}

// NewTimeHorizon builds a normalized horizon: duplicates removed, years in
// ascending order. It fails on an empty set or a sentinel mixed with years.
func NewTimeHorizon(hs ...Horizon) (TimeHorizon, error) {
	if len(hs) == 0 {
		return nil, ErrEmptyTimeHorizon
	}

	seen := make(map[Horizon]bool, len(hs))
	irrelevant := false
	for _, h := range hs {
		if h == HorizonIrrelevant {
			irrelevant = true
			continue
		}
		if _, ok := horizonOrder[h]; !ok {
			return nil, fmt.Errorf("unknown time horizon %q", h)
		}
		seen[h] = true
	}

	if irrelevant {
		if len(seen) > 0 {
			return nil, fmt.Errorf("time horizon mixes %q with year horizons", HorizonIrrelevant)
		}
		return TimeHorizon{HorizonIrrelevant}, nil
	}

	out := make(TimeHorizon, 0, len(seen))
	for _, h := range []Horizon{Horizon1Year, Horizon3Year, Horizon5Year} {
		if seen[h] {
			out = append(out, h)
		}
	}
	return out, nil
}

// ParseTimeHorizon builds a normalized horizon from labels.
func ParseTimeHorizon(labels []string) (TimeHorizon, error) {
	hs := make([]Horizon, 0, len(labels))
	for _, l := range labels {
		h, err := ParseHorizon(l)
		if err != nil {
			return nil, err
		}
		hs = append(hs, h)
	}
	return NewTimeHorizon(hs...)
}

// Validate checks the horizon invariants without modifying it.
func (t TimeHorizon) Validate() error {
	norm, err := NewTimeHorizon(t...)
	if err != nil {
		return err
	}
	if len(norm) != len(t) {
		return fmt.Errorf("time horizon %v contains duplicates", t.Strings())
	}
	return nil
}

// IsIrrelevant reports whether the horizon is the Time-irrelevant sentinel.
func (t TimeHorizon) IsIrrelevant() bool {
	return len(t) == 1 && t[0] == HorizonIrrelevant
}

// Contains reports whether h is part of the horizon.
func (t TimeHorizon) Contains(h Horizon) bool {
	for _, x := range t {
		if x == h {
			return true
		}
	}
	return false
}

// Strings returns the horizon as plain labels.
func (t TimeHorizon) Strings() []string {
	out := make([]string, len(t))
	for i, h := range t {
		out[i] = string(h)
	}
	return out
}

// String joins the labels with commas.
func (t TimeHorizon) String() string {
	return strings.Join(t.Strings(), ", ")
}

// UnmarshalJSON accepts the loose shapes generators emit: the bare string
// "Time-irrelevant", an array of labels, or an array of year numbers.
func (t *TimeHorizon) UnmarshalJSON(data []byte) error {
	if strings.TrimSpace(string(data)) == "null" {
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		h, err := ParseHorizon(single)
		if err != nil {
			return err
		}
		*t = TimeHorizon{h}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("time horizon must be a string or array: %w", err)
	}
	if len(items) == 0 {
		return ErrEmptyTimeHorizon
	}

	labels := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			labels = append(labels, s)
			continue
		}
		var n float64
		if err := json.Unmarshal(item, &n); err == nil {
			labels = append(labels, strconv.Itoa(int(n)))
			continue
		}
		return fmt.Errorf("time horizon item %s is neither string nor number", string(item))
	}

	norm, err := ParseTimeHorizon(labels)
	if err != nil {
		return err
	}
	*t = norm
	return nil
}
