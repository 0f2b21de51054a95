package evaluator

import (
	"github.com/hazardwatch/go-hazard-zones/internal/geo"
	"github.com/hazardwatch/go-hazard-zones/internal/models"
	"github.com/hazardwatch/go-hazard-zones/internal/zone"
)

// DeviceState is the classification of one device against a position,
// kept so per-hazard circles can be rendered regardless of the aggregate.
type DeviceState struct {
	Device   models.HazardDevice
	Distance float64
	State    zone.State
}

// Result carries the aggregate alert level and the per-device states.
type Result struct {
	Overall zone.State
	Devices []DeviceState
}

// Evaluate classifies every device in the snapshot against the position and
// aggregates to the maximum state. Critical is terminal for the aggregate,
// so aggregation stops upgrading once one device is critical.
func Evaluate(pos geo.Coordinate, devices []models.HazardDevice, r zone.Radii) Result {
	res := Result{
		Overall: zone.Safe,
		Devices: make([]DeviceState, 0, len(devices)),
	}

	for _, d := range devices {
		dist := geo.Distance(pos, d.Location.Coordinate())
		state := zone.Classify(dist, r)
		res.Devices = append(res.Devices, DeviceState{
			Device:   d,
			Distance: dist,
			State:    state,
		})
		if state > res.Overall {
			res.Overall = state
		}
	}

	return res
}

// Banner returns the alert banner text for an aggregate level. Safe produces
// no banner.
func Banner(s zone.State) (string, bool) {
	switch s {
	case zone.Critical:
		return "You entered a critical zone.", true
	case zone.Warning:
		return "You entered a warning zone.", true
	default:
		return "", false
	}
}
