// Package mpris reports the playback state of a media player exposing the
// MPRIS D-Bus interface.
package mpris

import (
	"log/slog"
	"strings"
)

// Source follows one MPRIS player on the session bus.
type Source struct {
	player string // lowercase bus name filter
	log    *slog.Logger
}

// New creates a source. player filters bus names by substring
// (e.g. "spotify"); empty follows any player.
func New(player string, log *slog.Logger) *Source {
	if log == nil {
		log = slog.Default()
	}
	return &Source{
		player: strings.ToLower(strings.TrimSpace(player)),
		log:    log.With("source", "mpris"),
	}
}
