package musicguru

import (
	"math"
	"testing"
	"time"

	intpcm "github.com/cbegin/musicguru-go/internal/pcm"
)

func TestFormatClock(t *testing.T) {
	cases := map[time.Duration]string{
		0:                              "00:00",
		999 * time.Millisecond:         "00:00",
		75 * time.Second:               "01:15",
		61*time.Minute + 5*time.Second: "61:05",
		-time.Second:                   "00:00",
	}
	for in, want := range cases {
		if got := FormatClock(in); got != want {
			t.Errorf("FormatClock(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestTracePulseSpikesThenDecays(t *testing.T) {
	samples := make([]float32, 3000)
	for i := 0; i < 600; i++ {
		samples[i] = 0.5
	}
	tr := intpcm.NewTrack("burst", samples, 1, 1000)
	frames := TracePulse(tr, 8)
	if len(frames) != 8 {
		t.Fatalf("frames = %d, want 8", len(frames))
	}
	if frames[0].Cursor != 0 || frames[1].Cursor != 300 {
		t.Fatalf("cursors = %d, %d", frames[0].Cursor, frames[1].Cursor)
	}
	if math.Abs(frames[1].Pulse-1.17) > 1e-9 {
		t.Fatalf("pulse after loud window = %g, want 1.17", frames[1].Pulse)
	}
	// Windows from 900 on are silent.
	for i := 3; i < 8; i++ {
		want := frames[i-1].Pulse * 0.9
		if math.Abs(frames[i].Pulse-want) > 1e-9 {
			t.Fatalf("tick %d pulse = %g, want %g", i, frames[i].Pulse, want)
		}
	}
}

func TestTracePulseEmptyTrack(t *testing.T) {
	if TracePulse(nil, 10) != nil {
		t.Fatal("nil track should trace nothing")
	}
}

func TestTicksFor(t *testing.T) {
	if got := TicksFor(time.Second, 40*time.Millisecond); got != 25 {
		t.Fatalf("ticks = %d, want 25", got)
	}
	if got := TicksFor(time.Second+time.Millisecond, 40*time.Millisecond); got != 26 {
		t.Fatalf("ticks = %d, want 26", got)
	}
}
