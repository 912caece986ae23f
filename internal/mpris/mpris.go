//go:build linux

package mpris

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/llehouerou/wavecord/internal/errmsg"
	"github.com/llehouerou/wavecord/internal/relay"
)

const (
	busPrefix       = "org.mpris.MediaPlayer2."
	objectPath      = "/org/mpris/MediaPlayer2"
	playerInterface = "org.mpris.MediaPlayer2.Player"
	propsInterface  = "org.freedesktop.DBus.Properties"
)

// Run emits a snapshot at start and whenever a player's properties change,
// until ctx is cancelled.
func (s *Source) Run(ctx context.Context, emit func(relay.Snapshot)) error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("session bus: %w", err)
	}
	defer conn.Close()

	matches := [][]dbus.MatchOption{
		{
			dbus.WithMatchObjectPath(objectPath),
			dbus.WithMatchInterface(propsInterface),
			dbus.WithMatchMember("PropertiesChanged"),
		},
		{
			dbus.WithMatchObjectPath(objectPath),
			dbus.WithMatchInterface(playerInterface),
			dbus.WithMatchMember("Seeked"),
		},
		{
			// players appearing and disappearing
			dbus.WithMatchInterface("org.freedesktop.DBus"),
			dbus.WithMatchMember("NameOwnerChanged"),
		},
	}
	for _, opts := range matches {
		if err := conn.AddMatchSignal(opts...); err != nil {
			return fmt.Errorf("add match: %w", err)
		}
	}

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	s.poll(conn, emit, false)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return errors.New("session bus closed")
			}
			if sig.Name == "org.freedesktop.DBus.NameOwnerChanged" && !s.isPlayerSignal(sig) {
				continue
			}
			s.poll(conn, emit, sig.Name == playerInterface+".Seeked")
		}
	}
}

// isPlayerSignal reports whether a NameOwnerChanged signal concerns an
// MPRIS player.
func (s *Source) isPlayerSignal(sig *dbus.Signal) bool {
	if len(sig.Body) == 0 {
		return false
	}
	name, ok := sig.Body[0].(string)
	return ok && strings.HasPrefix(name, busPrefix)
}

func (s *Source) poll(conn *dbus.Conn, emit func(relay.Snapshot), seeked bool) {
	snap, err := s.read(conn)
	if err != nil {
		s.log.Warn(errmsg.Format(errmsg.OpSourceRead, err))
		return
	}
	snap.Seeked = seeked
	emit(snap)
}

func (s *Source) read(conn *dbus.Conn) (relay.Snapshot, error) {
	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return relay.Snapshot{}, fmt.Errorf("list names: %w", err)
	}

	candidates := filterPlayers(names, s.player)
	if len(candidates) == 0 {
		return relay.Snapshot{}, nil
	}

	// Prefer a player that is currently playing.
	var chosen dbus.BusObject
	var chosenStatus string
	for _, name := range candidates {
		obj := conn.Object(name, objectPath)
		status, err := stringProperty(obj, playerInterface+".PlaybackStatus")
		if err != nil {
			s.log.Debug("skip player", "name", name, "err", err)
			continue
		}
		if chosen == nil || (status == "Playing" && chosenStatus != "Playing") {
			chosen, chosenStatus = obj, status
		}
	}
	if chosen == nil {
		return relay.Snapshot{}, nil
	}

	v, err := chosen.GetProperty(playerInterface + ".Metadata")
	if err != nil {
		return relay.Snapshot{}, fmt.Errorf("metadata: %w", err)
	}
	meta, _ := v.Value().(map[string]dbus.Variant)

	var position int64
	if pv, err := chosen.GetProperty(playerInterface + ".Position"); err == nil {
		position = toInt64(pv.Value())
	}

	return snapshotFrom(meta, chosenStatus, position), nil
}

func stringProperty(obj dbus.BusObject, name string) (string, error) {
	v, err := obj.GetProperty(name)
	if err != nil {
		return "", err
	}
	str, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected type %T", name, v.Value())
	}
	return str, nil
}

// filterPlayers returns the MPRIS bus names matching filter, sorted.
func filterPlayers(names []string, filter string) []string {
	var out []string
	for _, n := range names {
		if !strings.HasPrefix(n, busPrefix) {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(strings.TrimPrefix(n, busPrefix)), filter) {
			continue
		}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
