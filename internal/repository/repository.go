package repository

import (
	"context"

	"github.com/hazardwatch/go-hazard-zones/internal/geo"
	"github.com/hazardwatch/go-hazard-zones/internal/models"
)

// NearbyUser is one hit of a proximity query over last known user positions.
type NearbyUser struct {
	UserID   string
	Distance float64
}

// EnteredAreaLedger is the source of truth preventing repeat notifications.
// A record exists exactly while the user is considered inside the device's
// warning zone and has been notified for this entry episode.
type EnteredAreaLedger interface {
	IsEntered(ctx context.Context, deviceID int64, userID string) (bool, error)
	// MarkEntered upserts the record. It reports whether a new record was
	// created; an existing record only ever has its error flag escalated.
	MarkEntered(ctx context.Context, deviceID int64, userID string, errorFlag bool) (created bool, err error)
	// MarkExited deletes the record; deleting an absent pair is a no-op.
	MarkExited(ctx context.Context, deviceID int64, userID string) error
	ListEntered(ctx context.Context) ([]models.EnteredAreaRecord, error)
}

type DeviceStore interface {
	UpsertDevice(ctx context.Context, d *models.HazardDevice) error
	GetDevice(ctx context.Context, id int64) (*models.HazardDevice, error)
	ListActiveDevices(ctx context.Context) ([]models.HazardDevice, error)
	// SearchDevices returns active devices within radiusMeters of center,
	// ordered by distance.
	SearchDevices(ctx context.Context, center geo.Coordinate, radiusMeters float64) ([]models.HazardDevice, error)
}

type UserPositionStore interface {
	UpsertPosition(ctx context.Context, userID string, c geo.Coordinate) error
	// UsersWithin returns users whose last known position is within
	// radiusMeters of center.
	UsersWithin(ctx context.Context, center geo.Coordinate, radiusMeters float64) ([]NearbyUser, error)
}

type TokenStore interface {
	RegisterToken(ctx context.Context, userID, token string) error
}
