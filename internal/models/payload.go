package models

// PushDevice is the device portion of a push payload. Exit notifications
// carry only the id and isAlert=false, so type and location are omitted
// when empty.
type PushDevice struct {
	ID       int64      `json:"id"`
	Type     HazardType `json:"type,omitempty"`
	Location *Location  `json:"location,omitempty"`
	IsAlert  bool       `json:"isAlert"`
}

// PushPayload is the JSON object delivered to clients. The client merges
// the device into its registry: upsert when isAlert, delete otherwise.
type PushPayload struct {
	Device PushDevice `json:"device"`
}

func EntryPayload(d HazardDevice) PushPayload {
	loc := d.Location
	return PushPayload{Device: PushDevice{
		ID:       d.ID,
		Type:     d.Type,
		Location: &loc,
		IsAlert:  true,
	}}
}

func ExitPayload(deviceID int64) PushPayload {
	return PushPayload{Device: PushDevice{ID: deviceID, IsAlert: false}}
}
