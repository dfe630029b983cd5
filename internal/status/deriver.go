// Package status derives the health classification of a sensor from its last
// value, its type, and how long ago that value arrived. Derivation is a pure
// function of its inputs so it can be re-run from a clock tick without any
// new reading.
package status

import (
	"math"
	"time"

	"github.com/shield-iot/dashboard/internal/model"
)

// StaleAfter is how long a sensor may stay silent before it is offline.
const StaleAfter = 300 * time.Second

// BoundaryRule decides the winner where a warning range touches a critical
// range at a shared edge (e.g. humidity exactly 20). The threshold table
// leaves that edge ambiguous, so the rule is explicit configuration.
type BoundaryRule int

const (
	// CriticalWins resolves shared edges to critical. Default, matching the
	// priority order of the table.
	CriticalWins BoundaryRule = iota
	// WarningWins resolves shared edges to warning.
	WarningWins
)

type span struct{ lo, hi float64 }

func (s span) contains(v float64) bool { return v >= s.lo && v <= s.hi }

var thresholds = map[model.SensorType]struct {
	critical []span
	warning  []span
}{
	model.TypeHumidity: {
		critical: []span{{0, 20}, {80, 100}},
		warning:  []span{{20, 30}, {70, 80}},
	},
	model.TypeVibration: {
		critical: []span{{50, math.Inf(1)}},
		warning:  []span{{20, 50}},
	},
	model.TypeStress: {
		critical: []span{{80, math.Inf(1)}},
		warning:  []span{{60, 80}},
	},
}

// Deriver classifies sensors. The zero value uses CriticalWins and the wall
// clock; tests override Now.
type Deriver struct {
	Rule BoundaryRule
	Now  func() time.Time
}

func (d *Deriver) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Derive returns exactly one of offline, critical, warning or normal.
//
// Priority: a sensor that never reported, or whose last reading is older
// than StaleAfter, is offline regardless of value; a missing value is
// offline too; otherwise the per-type threshold table decides, with types
// absent from the table always normal.
func (d *Deriver) Derive(typ model.SensorType, lastValue *float64, lastUpdate time.Time) model.SensorStatus {
	if lastUpdate.IsZero() || d.now().Sub(lastUpdate) > StaleAfter {
		return model.StatusOffline
	}
	if lastValue == nil {
		return model.StatusOffline
	}
	return d.Classify(typ, *lastValue)
}

// Classify applies only the threshold table, ignoring staleness.
func (d *Deriver) Classify(typ model.SensorType, value float64) model.SensorStatus {
	t, ok := thresholds[typ]
	if !ok {
		return model.StatusNormal
	}
	crit := inAny(t.critical, value)
	warn := inAny(t.warning, value)
	switch {
	case crit && warn:
		if d.Rule == WarningWins {
			return model.StatusWarning
		}
		return model.StatusCritical
	case crit:
		return model.StatusCritical
	case warn:
		return model.StatusWarning
	default:
		return model.StatusNormal
	}
}

func inAny(spans []span, v float64) bool {
	for _, s := range spans {
		if s.contains(v) {
			return true
		}
	}
	return false
}
