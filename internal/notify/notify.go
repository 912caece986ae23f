// Package notify raises desktop notifications about presence health via
// the freedesktop Notifications D-Bus service.
package notify

const (
	appName      = "Wavecord"
	desktopEntry = "wavecord"
)

// Urgency is the freedesktop notification urgency hint.
type Urgency byte

const (
	UrgencyLow    Urgency = 0
	UrgencyNormal Urgency = 1
)

// Notification is one desktop notification.
type Notification struct {
	Title      string
	Body       string
	Icon       string  // icon name or image path
	Category   string  // freedesktop category hint, e.g. "network.error"
	Timeout    int32   // ms; -1 server default, 0 never expires
	ReplacesID uint32  // 0 posts a new notification
	Urgency    Urgency
}

// Notifier posts and withdraws desktop notifications.
type Notifier interface {
	// Notify posts n and returns its server-side ID, or 0 when
	// notifications are unavailable.
	Notify(n Notification) (uint32, error)
	// Close withdraws a posted notification.
	Close(id uint32) error
}
