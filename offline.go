package musicguru

import (
	"fmt"
	"time"

	intpcm "github.com/cbegin/musicguru-go/internal/pcm"
	intpl "github.com/cbegin/musicguru-go/internal/playlist"
	intvis "github.com/cbegin/musicguru-go/internal/visual"
)

// Decode reads a 16-bit PCM WAV file without touching any player.
func Decode(path string) (*Track, error) {
	return intpcm.DecodeFile(path)
}

// ScanDir lists the WAV files in dir, sorted by name.
func ScanDir(dir string) ([]Entry, error) {
	return intpl.Scan(dir)
}

// EntriesFromPaths builds playlist entries for explicit files.
func EntriesFromPaths(paths []string) []Entry {
	return intpl.FromPaths(paths)
}

// FormatClock renders d as MM:SS, truncating to whole seconds.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

// PulseFrame is one animation tick of the visualizer, as seen before the
// tick advanced it.
type PulseFrame struct {
	Tick   int
	Cursor int
	Energy float64
	Pulse  float64 // after the tick's spike and decay
	Hue    float64
}

// TracePulse runs the visualizer's envelope follower over track for ticks
// frames without any audio output.
func TracePulse(track *Track, ticks int) []PulseFrame {
	if track == nil || len(track.Samples) == 0 || ticks <= 0 {
		return nil
	}
	out := make([]PulseFrame, 0, ticks)
	var st intvis.State
	for i := 0; i < ticks; i++ {
		cursor := st.Cursor
		energy := intvis.Energy(track.Samples, cursor)
		st.Advance(track.Samples)
		out = append(out, PulseFrame{
			Tick:   i,
			Cursor: cursor,
			Energy: energy,
			Pulse:  st.Pulse,
			Hue:    st.Hue,
		})
	}
	return out
}

// TicksFor returns how many animation ticks cover d at the given interval.
func TicksFor(d, interval time.Duration) int {
	if interval <= 0 {
		return 0
	}
	return int((d + interval - 1) / interval)
}
