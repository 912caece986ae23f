// Package presence manages the connection to a chat client's rich presence
// service and relays now-playing information to it.
package presence

import "time"

// Connector creates presence clients for an application identifier.
type Connector interface {
	// NewClient constructs a client without performing any I/O.
	NewClient(clientID string) (Client, error)
}

// Client is a single connection to the presence service.
type Client interface {
	// Connect performs the handshake with the local presence service.
	Connect() error
	SetActivity(a Activity) error
	ClearActivity() error
	Close() error
}

// Activity is the payload displayed by the presence service.
type Activity struct {
	State      string // main status line (track title)
	LargeImage string // asset key
	LargeText  string // hover text for the large image (album)
	Timestamps *Timestamps
}

// Timestamps is a start/end range used to render a live countdown.
type Timestamps struct {
	Start time.Time
	End   time.Time
}
