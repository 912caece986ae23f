//go:build linux

package mpris

import (
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMetadata() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath("/org/mpris/MediaPlayer2/Track/42")),
		"mpris:length":  dbus.MakeVariant(int64(312_000_000)),
		"xesam:title":   dbus.MakeVariant("Hells Bells"),
		"xesam:artist":  dbus.MakeVariant([]string{"AC/DC"}),
		"xesam:album":   dbus.MakeVariant("Back In Black"),
		"xesam:url":     dbus.MakeVariant("file:///music/hells-bells.flac"),
	}
}

func TestSnapshotFrom_Playing(t *testing.T) {
	snap := snapshotFrom(sampleMetadata(), "Playing", 12_500_000)

	require.NotNil(t, snap.Track)
	assert.True(t, snap.Playing)
	assert.Equal(t, "/org/mpris/MediaPlayer2/Track/42", snap.Track.ID)
	assert.Equal(t, "Hells Bells", snap.Track.Title)
	assert.Equal(t, "AC/DC", snap.Track.Artist)
	assert.Equal(t, "Back In Black", snap.Track.Album)
	assert.Equal(t, 312*time.Second, snap.Track.Duration)
	assert.Equal(t, 12500*time.Millisecond, snap.Position)
}

func TestSnapshotFrom_Status(t *testing.T) {
	tests := []struct {
		status    string
		wantTrack bool
		playing   bool
	}{
		{status: "Playing", wantTrack: true, playing: true},
		{status: "Paused", wantTrack: true, playing: false},
		{status: "Stopped", wantTrack: false},
		{status: "", wantTrack: false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			snap := snapshotFrom(sampleMetadata(), tt.status, 0)
			assert.Equal(t, tt.wantTrack, snap.Track != nil)
			assert.Equal(t, tt.playing, snap.Playing)
		})
	}
}

func TestSnapshotFrom_NegativePosition(t *testing.T) {
	snap := snapshotFrom(sampleMetadata(), "Playing", -5)
	assert.Equal(t, time.Duration(0), snap.Position)
}

func TestTrackFromMetadata_Fallbacks(t *testing.T) {
	t.Run("string trackid and uint64 length", func(t *testing.T) {
		meta := map[string]dbus.Variant{
			"mpris:trackid": dbus.MakeVariant("spotify:track:abc"),
			"mpris:length":  dbus.MakeVariant(uint64(1_000_000)),
			"xesam:title":   dbus.MakeVariant("A"),
			"xesam:artist":  dbus.MakeVariant([]string{"X", "Y"}),
		}
		track := trackFromMetadata(meta)
		require.NotNil(t, track)
		assert.Equal(t, "spotify:track:abc", track.ID)
		assert.Equal(t, time.Second, track.Duration)
		assert.Equal(t, "X, Y", track.Artist)
	})

	t.Run("no track id uses url", func(t *testing.T) {
		meta := map[string]dbus.Variant{
			"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath(noTrack)),
			"xesam:url":     dbus.MakeVariant("https://example.com/stream"),
		}
		track := trackFromMetadata(meta)
		require.NotNil(t, track)
		assert.Equal(t, "https://example.com/stream", track.ID)
	})

	t.Run("title only", func(t *testing.T) {
		meta := map[string]dbus.Variant{
			"xesam:title":  dbus.MakeVariant("B"),
			"xesam:artist": dbus.MakeVariant("Z"),
		}
		track := trackFromMetadata(meta)
		require.NotNil(t, track)
		assert.Equal(t, "Z\x00B", track.ID)
		assert.Equal(t, "Z", track.Artist)
	})

	t.Run("nothing identifiable", func(t *testing.T) {
		meta := map[string]dbus.Variant{
			"xesam:album": dbus.MakeVariant("C"),
		}
		assert.Nil(t, trackFromMetadata(meta))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, trackFromMetadata(nil))
	})
}

func TestFilterPlayers(t *testing.T) {
	names := []string{
		"org.freedesktop.DBus",
		"org.mpris.MediaPlayer2.spotify",
		"org.mpris.MediaPlayer2.firefox.instance_1_42",
		":1.57",
	}

	assert.Equal(t, []string{
		"org.mpris.MediaPlayer2.firefox.instance_1_42",
		"org.mpris.MediaPlayer2.spotify",
	}, filterPlayers(names, ""))
	assert.Equal(t, []string{"org.mpris.MediaPlayer2.spotify"}, filterPlayers(names, "spot"))
	assert.Empty(t, filterPlayers(names, "vlc"))
}
