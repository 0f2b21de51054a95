package zone

import "fmt"

// State is the zone classification for a single position/device pair.
// States are ordered so aggregation can take the maximum across devices.
type State int

const (
	Safe State = iota
	Warning
	Critical
)

func (s State) String() string {
	switch s {
	case Safe:
		return "safe"
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Radii holds the two zone thresholds in meters. The warning radius is always
// derived from the critical one so the server and client cannot disagree.
type Radii struct {
	Critical float64
	Warning  float64
}

const warningFactor = 3

func NewRadii(criticalMeters float64) Radii {
	return Radii{
		Critical: criticalMeters,
		Warning:  criticalMeters * warningFactor,
	}
}

// Classify maps a distance in meters to a zone state. Boundaries are
// inclusive: a distance exactly at a radius is inside that zone.
func Classify(distanceMeters float64, r Radii) State {
	switch {
	case distanceMeters <= r.Critical:
		return Critical
	case distanceMeters <= r.Warning:
		return Warning
	default:
		return Safe
	}
}
