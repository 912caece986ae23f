//go:build linux

package mpris

import (
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/llehouerou/wavecord/internal/relay"
)

const noTrack = "/org/mpris/MediaPlayer2/TrackList/NoTrack"

// snapshotFrom converts MPRIS properties. Position and mpris:length are in
// microseconds.
func snapshotFrom(meta map[string]dbus.Variant, status string, positionUS int64) relay.Snapshot {
	if status == "Stopped" || status == "" {
		return relay.Snapshot{}
	}
	track := trackFromMetadata(meta)
	if track == nil {
		return relay.Snapshot{}
	}
	if positionUS < 0 {
		positionUS = 0
	}
	return relay.Snapshot{
		Track:    track,
		Playing:  status == "Playing",
		Position: time.Duration(positionUS) * time.Microsecond,
	}
}

func trackFromMetadata(meta map[string]dbus.Variant) *relay.Track {
	if len(meta) == 0 {
		return nil
	}

	t := &relay.Track{
		Title:    variantString(meta["xesam:title"]),
		Artist:   strings.Join(variantStrings(meta["xesam:artist"]), ", "),
		Album:    variantString(meta["xesam:album"]),
		Duration: time.Duration(toInt64(meta["mpris:length"].Value())) * time.Microsecond,
	}

	t.ID = variantString(meta["mpris:trackid"])
	if t.ID == "" || t.ID == noTrack {
		t.ID = variantString(meta["xesam:url"])
	}
	if t.ID == "" {
		if t.Title == "" {
			return nil
		}
		t.ID = t.Artist + "\x00" + t.Title
	}
	return t
}

func variantString(v dbus.Variant) string {
	switch val := v.Value().(type) {
	case string:
		return val
	case dbus.ObjectPath:
		return string(val)
	}
	return ""
}

func variantStrings(v dbus.Variant) []string {
	switch val := v.Value().(type) {
	case []string:
		return val
	case string:
		return []string{val}
	}
	return nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case uint64:
		return int64(n) //nolint:gosec // track lengths fit in int64
	case int32:
		return int64(n)
	case uint32:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
