package presence

import "time"

// DefaultLargeImage is the asset key shown when none is configured.
const DefaultLargeImage = "music_icon"

// ActivityState is the playback information for a single update.
type ActivityState struct {
	Title           string
	Album           string
	DurationSeconds int64 // <= 0 disables the progress display
	ElapsedSeconds  int64
	IsPlaying       bool
}

// BuildActivity converts the playback state into a display payload.
//
// When playing a track of known length, the timestamps are anchored to now
// so the service renders a countdown that matches the player. They are
// computed fresh on every call.
func BuildActivity(s ActivityState, largeImage string, now time.Time) Activity {
	a := Activity{
		State:      s.Title,
		LargeImage: largeImage,
		LargeText:  s.Album,
	}

	if s.IsPlaying && s.DurationSeconds > 0 {
		sec := now.Unix()
		a.Timestamps = &Timestamps{
			Start: time.Unix(sec-s.ElapsedSeconds, 0),
			End:   time.Unix(sec+(s.DurationSeconds-s.ElapsedSeconds), 0),
		}
	}

	return a
}
