// Package mpd reports the playback state of an MPD server.
package mpd

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/fhs/gompd/v2/mpd"

	"github.com/llehouerou/wavecord/internal/errmsg"
	"github.com/llehouerou/wavecord/internal/relay"
)

// Source watches the MPD "player" subsystem.
type Source struct {
	network  string
	addr     string
	password string
	log      *slog.Logger
}

// New creates a source for the server at addr ("tcp" or "unix" network).
func New(network, addr, password string, log *slog.Logger) *Source {
	if log == nil {
		log = slog.Default()
	}
	return &Source{
		network:  network,
		addr:     addr,
		password: password,
		log:      log.With("source", "mpd", "addr", addr),
	}
}

// Run emits a snapshot at start and after every player event until ctx is
// cancelled.
func (s *Source) Run(ctx context.Context, emit func(relay.Snapshot)) error {
	w, err := mpd.NewWatcher(s.network, s.addr, s.password, "player")
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.addr, err)
	}
	defer w.Close()

	var seeks seekDetector
	s.poll(emit, &seeks)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.Event:
			s.poll(emit, &seeks)
		case err := <-w.Error:
			s.log.Warn(errmsg.FormatWith(errmsg.OpSourceConnect, s.addr, err))
		}
	}
}

func (s *Source) poll(emit func(relay.Snapshot), seeks *seekDetector) {
	snap, err := s.read()
	if err != nil {
		s.log.Warn(errmsg.Format(errmsg.OpSourceRead, err))
		return
	}
	seeks.mark(&snap, time.Now())
	emit(snap)
}

// seekTolerance absorbs the delay between an event and the status read.
const seekTolerance = 2 * time.Second

// seekDetector flags snapshots whose position jumped away from where
// playback should be since the previous snapshot. MPD reports seeks as a
// plain player event.
type seekDetector struct {
	last relay.Snapshot
	at   time.Time
}

func (d *seekDetector) mark(s *relay.Snapshot, now time.Time) {
	prev, prevAt := d.last, d.at
	d.last, d.at = *s, now

	if prev.Track == nil || s.Track == nil || prev.Track.ID != s.Track.ID {
		return
	}
	expected := prev.Position
	if prev.Playing {
		expected += now.Sub(prevAt)
	}
	drift := s.Position - expected
	if drift < 0 {
		drift = -drift
	}
	if drift > seekTolerance {
		s.Seeked = true
	}
}

func (s *Source) read() (relay.Snapshot, error) {
	c, err := mpd.DialAuthenticated(s.network, s.addr, s.password)
	if err != nil {
		return relay.Snapshot{}, err
	}
	defer c.Close()

	status, err := c.Status()
	if err != nil {
		return relay.Snapshot{}, fmt.Errorf("status: %w", err)
	}
	song, err := c.CurrentSong()
	if err != nil {
		return relay.Snapshot{}, fmt.Errorf("current song: %w", err)
	}
	return snapshotFromAttrs(status, song), nil
}

// snapshotFromAttrs converts the replies of "status" and "currentsong".
func snapshotFromAttrs(status, song mpd.Attrs) relay.Snapshot {
	state := status["state"]
	if state == "stop" || state == "" || song["file"] == "" {
		return relay.Snapshot{}
	}

	title := song["Title"]
	if title == "" {
		title = strings.TrimSuffix(path.Base(song["file"]), path.Ext(song["file"]))
	}

	id := song["Id"]
	if id == "" {
		id = song["file"]
	}

	duration := parseSeconds(song["duration"])
	if duration == 0 {
		duration = parseSeconds(status["duration"])
	}
	if duration == 0 {
		duration = parseSeconds(song["Time"])
	}

	position := parseSeconds(status["elapsed"])
	if position == 0 {
		// legacy "time" field is "elapsed:total"
		if elapsed, _, ok := strings.Cut(status["time"], ":"); ok {
			position = parseSeconds(elapsed)
		}
	}

	return relay.Snapshot{
		Track: &relay.Track{
			ID:       id,
			Title:    title,
			Artist:   song["Artist"],
			Album:    song["Album"],
			Duration: duration,
		},
		Playing:  state == "play",
		Position: position,
	}
}

func parseSeconds(s string) time.Duration {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
