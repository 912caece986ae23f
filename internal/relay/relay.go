// Package relay forwards playback snapshots to the presence session,
// sending only when the track or the play state changes.
package relay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/llehouerou/wavecord/internal/errmsg"
)

// Track is the metadata of the current track.
type Track struct {
	ID       string // stable identity used for change detection
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
}

// Snapshot is the playback state reported by a source.
type Snapshot struct {
	Track    *Track // nil when nothing is loaded
	Playing  bool
	Position time.Duration
	Seeked   bool // position jumped; deliver even if unchanged
}

// Sink receives presence updates. *presence.Session implements it.
type Sink interface {
	UpdatePresence(title, artist, album string, durationSeconds, elapsedSeconds int64, isPlaying bool) error
	ClearPresence() error
}

// Relay deduplicates snapshots before forwarding them to a Sink.
type Relay struct {
	sink Sink
	log  *slog.Logger

	mu          sync.Mutex
	sent        bool // false until something was delivered
	lastID      string
	lastPlaying bool
}

// New creates a relay that forwards to sink.
func New(sink Sink, log *slog.Logger) *Relay {
	if log == nil {
		log = slog.Default()
	}
	return &Relay{sink: sink, log: log}
}

// Push forwards s if the track or play state differs from what was last
// delivered. A failed delivery is forgotten so the next Push retries.
func (r *Relay) Push(s Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := ""
	if s.Track != nil {
		id = s.Track.ID
	}
	if r.sent && !s.Seeked && id == r.lastID && s.Playing == r.lastPlaying {
		return nil
	}

	var err error
	if s.Track == nil {
		err = r.sink.ClearPresence()
		if err != nil {
			r.log.Warn(errmsg.Format(errmsg.OpRelayClear, err))
		}
	} else {
		t := s.Track
		err = r.sink.UpdatePresence(
			t.Title, t.Artist, t.Album,
			int64(t.Duration/time.Second),
			int64(s.Position/time.Second),
			s.Playing,
		)
		if err != nil {
			r.log.Warn(errmsg.FormatWith(errmsg.OpRelayUpdate, t.Title, err))
		}
	}

	if err != nil {
		r.sent = false
		return err
	}

	r.sent = true
	r.lastID = id
	r.lastPlaying = s.Playing
	return nil
}

// Invalidate forgets what was delivered, so the next Push always sends.
// Call it after the presence connection was re-established.
func (r *Relay) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = false
}
