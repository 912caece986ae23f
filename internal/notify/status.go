package notify

import (
	"log/slog"
	"sync"
)

// Status tracks whether presence delivery works. A failure posts a
// persistent "unavailable" notification (repeated failures update it in
// place); recovery withdraws it. Reports that do not change the state are
// ignored.
type Status struct {
	n   Notifier
	log *slog.Logger

	mu     sync.Mutex
	failed bool
	id     uint32 // posted failure notification, 0 if none
}

// NewStatus creates a Status posting through n.
func NewStatus(n Notifier, log *slog.Logger) *Status {
	if log == nil {
		log = slog.Default()
	}
	return &Status{n: n, log: log}
}

// Report records whether the last presence operation succeeded. detail is
// the body of the failure notification. A nil Status ignores reports.
func (s *Status) Report(ok bool, detail string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if ok {
		s.restoredLocked()
		return
	}
	if s.failed {
		return
	}
	s.failed = true

	id, err := s.n.Notify(Notification{
		Title:      "Discord presence unavailable",
		Body:       detail,
		Icon:       "discord",
		Category:   "network.error",
		Timeout:    0,
		ReplacesID: s.id,
		Urgency:    UrgencyNormal,
	})
	if err != nil {
		s.log.Debug("desktop notification failed", "err", err)
		return
	}
	s.id = id
}

func (s *Status) restoredLocked() {
	s.failed = false
	if s.id == 0 {
		return
	}
	if err := s.n.Close(s.id); err != nil {
		s.log.Debug("withdraw desktop notification", "id", s.id, "err", err)
	}
	s.id = 0
}
