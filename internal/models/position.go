package models

import (
	"time"

	"github.com/hazardwatch/go-hazard-zones/internal/geo"
)

// PositionSample is one reading from a location provider.
type PositionSample struct {
	Coordinate geo.Coordinate
	ObservedAt time.Time
}
