package models

import "time"

// EnteredAreaRecord marks that a user has been notified for the current
// zone-entry episode of a device. At most one record exists per
// (UserID, DeviceID) pair. Error records whether the critical zone was
// reached during the episode.
type EnteredAreaRecord struct {
	DeviceID  int64     `json:"deviceId"`
	UserID    string    `json:"userId"`
	Error     bool      `json:"error"`
	CreatedAt time.Time `json:"-"`
}
