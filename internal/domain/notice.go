package domain

const (
	EventUpdate            = "update"
	EventConnectionsUpdate = "connections_update"
)

// Notice is what subscribers receive. Viewers re-fetch state on
// "update"; "connections_update" carries the live subscriber count.
type Notice struct {
	Event string `json:"event"`
	Count *int   `json:"count,omitempty"`
}

// UpdateNotice tells viewers the feed or the device list changed.
func UpdateNotice() Notice {
	return Notice{Event: EventUpdate}
}

// ConnectionsNotice carries the current subscriber count.
func ConnectionsNotice(count int) Notice {
	return Notice{Event: EventConnectionsUpdate, Count: &count}
}
