package dataprocessing

import (
	"swapsum/pkg/contracts/domain"
)

// Manufacturers is the canonical manufacturer list. Summary tables carry one
// column group per entry, in this order, for every client regardless of
// which manufacturers actually appear in the data.
var Manufacturers = []string{
	"Panasonic",
	"YAMAHA",
	"DBS",
	"glafit",
	"シナネンサイクル",
	"KUROAD",
}

// thresholdRule describes when a battery reading is out of spec for one
// manufacturer. A reading at or above Bound is out of spec, unless it equals
// ForceInSpecAt exactly.
type thresholdRule struct {
	Bound         float64
	ForceInSpecAt *float64
}

func level(v float64) *float64 { return &v }

// thresholds maps manufacturer name to its battery-standard rule.
// Manufacturers without an entry (KUROAD, unrecognized names) are never
// classified. Adding a manufacturer is a table entry, not a new branch.
var thresholds = map[string]thresholdRule{
	"Panasonic":        {Bound: 25},
	"YAMAHA":           {Bound: 70},
	"DBS":              {Bound: 50, ForceInSpecAt: level(100)},
	"glafit":           {Bound: 50},
	"シナネンサイクル": {Bound: 40},
}

// Classify maps a manufacturer and battery reading to a classification
// outcome. A nil battery reading or a manufacturer without a threshold rule
// yields ClassificationNone, which is distinct from out-of-spec: such records
// count toward totals but never toward the in-spec/out-of-spec tallies.
func Classify(manufacturer string, battery *float64) domain.Classification {
	rule, ok := thresholds[manufacturer]
	if !ok || battery == nil {
		return domain.ClassificationNone
	}
	if rule.ForceInSpecAt != nil && *battery == *rule.ForceInSpecAt {
		return domain.ClassificationInSpec
	}
	if *battery >= rule.Bound {
		return domain.ClassificationOutOfSpec
	}
	return domain.ClassificationInSpec
}

// HasThreshold reports whether a manufacturer has a defined battery-standard
// rule.
func HasThreshold(manufacturer string) bool {
	_, ok := thresholds[manufacturer]
	return ok
}
