package presence

import (
	"testing"
	"time"
)

func TestBuildActivity_Timestamps(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	a := BuildActivity(ActivityState{
		Title:           "Song",
		Album:           "Album",
		DurationSeconds: 180,
		ElapsedSeconds:  30,
		IsPlaying:       true,
	}, DefaultLargeImage, now)

	if a.Timestamps == nil {
		t.Fatal("Timestamps = nil, want range")
	}
	start := a.Timestamps.Start.Unix()
	end := a.Timestamps.End.Unix()
	if end-start != 180 {
		t.Errorf("end-start = %d, want 180", end-start)
	}
	if now.Unix()-start != 30 {
		t.Errorf("now-start = %d, want 30", now.Unix()-start)
	}
}

func TestBuildActivity_NoTimestamps(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name  string
		state ActivityState
	}{
		{
			name:  "paused",
			state: ActivityState{DurationSeconds: 180, ElapsedSeconds: 30},
		},
		{
			name:  "paused at start",
			state: ActivityState{DurationSeconds: 180},
		},
		{
			name:  "zero duration",
			state: ActivityState{IsPlaying: true, ElapsedSeconds: 12},
		},
		{
			name:  "negative duration",
			state: ActivityState{IsPlaying: true, DurationSeconds: -1, ElapsedSeconds: 5},
		},
		{
			name:  "paused past end",
			state: ActivityState{DurationSeconds: 10, ElapsedSeconds: 500},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := BuildActivity(tt.state, DefaultLargeImage, now)
			if a.Timestamps != nil {
				t.Errorf("Timestamps = %+v, want nil", a.Timestamps)
			}
		})
	}
}

func TestBuildActivity_DisplayFields(t *testing.T) {
	a := BuildActivity(ActivityState{
		Title: "Back In Black",
		Album: "Back In Black (1980)",
	}, "cover", time.Now())

	if a.State != "Back In Black" {
		t.Errorf("State = %q, want %q", a.State, "Back In Black")
	}
	if a.LargeImage != "cover" {
		t.Errorf("LargeImage = %q, want %q", a.LargeImage, "cover")
	}
	if a.LargeText != "Back In Black (1980)" {
		t.Errorf("LargeText = %q, want album", a.LargeText)
	}
}

func TestBuildActivity_ReanchorsToNow(t *testing.T) {
	s := ActivityState{DurationSeconds: 200, ElapsedSeconds: 50, IsPlaying: true}

	first := BuildActivity(s, DefaultLargeImage, time.Unix(1000, 0))
	second := BuildActivity(s, DefaultLargeImage, time.Unix(1010, 0))

	if got := second.Timestamps.Start.Sub(first.Timestamps.Start); got != 10*time.Second {
		t.Errorf("start shift = %v, want 10s", got)
	}
	if got := second.Timestamps.End.Sub(first.Timestamps.End); got != 10*time.Second {
		t.Errorf("end shift = %v, want 10s", got)
	}
}
