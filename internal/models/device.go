package models

import (
	"fmt"

	"github.com/hazardwatch/go-hazard-zones/internal/geo"
)

type HazardType string

const (
	HazardTypeFire      HazardType = "fire"
	HazardTypeFlood     HazardType = "flood"
	HazardTypeHurricane HazardType = "hurricane"
)

func (t HazardType) Valid() bool {
	switch t {
	case HazardTypeFire, HazardTypeFlood, HazardTypeHurricane:
		return true
	}
	return false
}

// Location is the wire shape for a device position.
type Location struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

func (l Location) Coordinate() geo.Coordinate {
	return geo.Coordinate{Latitude: l.Lat, Longitude: l.Lon}
}

func LocationFrom(c geo.Coordinate) Location {
	return Location{Lon: c.Longitude, Lat: c.Latitude}
}

// HazardDevice is an active disaster source with a fixed location.
// IsAlert=false means the device is retired and must be dropped from
// registries, not merely flagged.
type HazardDevice struct {
	ID       int64      `json:"id"`
	Type     HazardType `json:"type"`
	Location Location   `json:"location"`
	IsAlert  bool       `json:"isAlert"`
}

func (d *HazardDevice) Validate() error {
	if !d.Type.Valid() {
		return fmt.Errorf("unknown hazard type: %q", d.Type)
	}
	if err := d.Location.Coordinate().Validate(); err != nil {
		return fmt.Errorf("invalid device location: %w", err)
	}
	return nil
}
