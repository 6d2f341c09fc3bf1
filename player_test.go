package musicguru

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	intpcm "github.com/cbegin/musicguru-go/internal/pcm"
	intpb "github.com/cbegin/musicguru-go/internal/playback"
)

type fakeClip struct {
	name    string
	pos     time.Duration
	playing bool
	closed  bool
}

func (c *fakeClip) Play()                   { c.playing = true }
func (c *fakeClip) Pause()                  { c.playing = false }
func (c *fakeClip) IsPlaying() bool         { return c.playing }
func (c *fakeClip) Position() time.Duration { return c.pos }
func (c *fakeClip) Close() error            { c.closed = true; return nil }

func (c *fakeClip) SetPosition(pos time.Duration) error {
	c.pos = pos
	return nil
}

type fakeOpener struct {
	clips []*fakeClip
	err   error
}

func (o *fakeOpener) Open(track *intpcm.Track) (intpb.Clip, error) {
	if o.err != nil {
		return nil, o.err
	}
	c := &fakeClip{name: track.Name}
	o.clips = append(o.clips, c)
	return c, nil
}

func (o *fakeOpener) last() *fakeClip {
	return o.clips[len(o.clips)-1]
}

func writeWAV(t *testing.T, dir, name string, bitDepth int, value int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	data := make([]int, 1000) // one second of mono at 1 kHz
	for i := range data {
		data[i] = value
	}
	enc := wav.NewEncoder(f, 1000, bitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{SampleRate: 1000, NumChannels: 1},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("wav write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("wav close: %v", err)
	}
	return path
}

func newTestPlayer(t *testing.T, opts ...PlayerOption) (*Player, *fakeOpener) {
	t.Helper()
	op := &fakeOpener{}
	pl, err := NewPlayer(44100, append([]PlayerOption{WithClipOpener(op)}, opts...)...)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	return pl, op
}

func threeSongs(t *testing.T) []Entry {
	t.Helper()
	dir := t.TempDir()
	writeWAV(t, dir, "a.wav", 16, 16000)
	writeWAV(t, dir, "b.wav", 16, 16000)
	writeWAV(t, dir, "c.wav", 16, 16000)
	entries, err := ScanDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	return entries
}

func TestNewPlayerRejectsBadSampleRate(t *testing.T) {
	if _, err := NewPlayer(0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}

func TestInitialStatus(t *testing.T) {
	pl, _ := newTestPlayer(t)
	st := pl.Status()
	if st.TrackName != NoSong || st.State != Stopped {
		t.Fatalf("initial status = %+v", st)
	}
	if st.TimeLabel() != "00:00 / 00:00" || st.Volume != 80 {
		t.Fatalf("labels = %q volume=%d", st.TimeLabel(), st.Volume)
	}
	if pl.Tick() {
		t.Fatal("clock should not tick before play")
	}
}

func TestLoadUnsupportedKeepsPreviousState(t *testing.T) {
	dir := t.TempDir()
	good := writeWAV(t, dir, "good.wav", 16, 1000)
	bad := writeWAV(t, dir, "deep.wav", 24, 1000)
	pl, op := newTestPlayer(t)
	events := pl.Watch()

	if err := pl.Load(good); err != nil {
		t.Fatalf("load good: %v", err)
	}
	if err := pl.Play(); err != nil {
		t.Fatal(err)
	}
	if err := pl.Seek(50); err != nil {
		t.Fatal(err)
	}

	err := pl.Load(bad)
	if !IsDecodeError(err) {
		t.Fatalf("load bad err = %v, want decode error", err)
	}
	st := pl.Status()
	if st.TrackName != "good.wav" || st.State != Playing || st.Elapsed != 500*time.Millisecond {
		t.Fatalf("status after failed load = %+v", st)
	}
	if len(op.clips) != 1 || op.last().closed || !op.last().playing {
		t.Fatal("failed load must not touch the open clip")
	}
	if !IsDecodeError(st.Err) {
		t.Fatalf("status err = %v", st.Err)
	}

	var sawFailure bool
	for len(events) > 0 {
		if ev := <-events; ev.Kind == EventLoadFailed {
			sawFailure = true
		}
	}
	if !sawFailure {
		t.Fatal("expected EventLoadFailed")
	}
}

func TestTransportControlsDriveClock(t *testing.T) {
	entries := threeSongs(t)
	pl, _ := newTestPlayer(t)
	pl.SetLibrary(entries)

	if err := pl.Play(); err != nil {
		t.Fatal(err)
	}
	if st := pl.Status(); st.TrackName != "a.wav" || st.State != Playing {
		t.Fatalf("play should load the first entry, got %+v", st)
	}
	if !pl.Tick() {
		t.Fatal("clock should tick while playing")
	}
	pl.Pause()
	pl.Pause()
	if pl.Tick() {
		t.Fatal("clock should halt on pause")
	}
	if st := pl.Status(); st.State != Paused {
		t.Fatalf("state = %v, want paused", st.State)
	}
	if err := pl.Play(); err != nil {
		t.Fatal(err)
	}
	if !pl.Tick() {
		t.Fatal("clock should resume on play")
	}
}

func TestStopResetsVisualizer(t *testing.T) {
	entries := threeSongs(t)
	pl, op := newTestPlayer(t)
	pl.SetLibrary(entries)
	if err := pl.Play(); err != nil {
		t.Fatal(err)
	}
	op.last().pos = 100 * time.Millisecond
	for i := 0; i < 3; i++ {
		pl.Tick()
	}
	if v := pl.Visualizer(); v.Cursor != 900 || v.Pulse == 0 {
		t.Fatalf("visualizer after 3 loud ticks = %+v", v)
	}
	pl.Stop()
	pl.Stop()
	v := pl.Visualizer()
	if v.Cursor != 0 || v.Pulse != 0 {
		t.Fatalf("visualizer after stop = %+v", v)
	}
	if st := pl.Status(); st.State != Stopped || st.Elapsed != 0 {
		t.Fatalf("status after stop = %+v", st)
	}
	if pl.Tick() {
		t.Fatal("clock should halt on stop")
	}
}

func TestEndOfTrackWithRepeatRestarts(t *testing.T) {
	entries := threeSongs(t)
	pl, op := newTestPlayer(t, WithRepeat(true))
	pl.SetLibrary(entries)
	if err := pl.Select(1); err != nil {
		t.Fatal(err)
	}
	clip := op.last()
	clip.pos = time.Second
	clip.playing = false

	pl.Tick()
	st := pl.Status()
	if st.TrackName != "b.wav" || st.State != Playing || st.Elapsed != 0 {
		t.Fatalf("status after repeat = %+v", st)
	}
	if !clip.playing || len(op.clips) != 1 {
		t.Fatal("repeat should restart the same clip")
	}
}

func TestEndOfTrackAdvancesToNext(t *testing.T) {
	entries := threeSongs(t)
	pl, op := newTestPlayer(t)
	pl.SetLibrary(entries)
	if err := pl.Select(2); err != nil {
		t.Fatal(err)
	}
	first := op.last()
	first.pos = time.Second

	pl.Tick()
	st := pl.Status()
	// (2+1) mod 3 wraps to the first entry.
	if st.TrackName != "a.wav" || st.State != Playing {
		t.Fatalf("status after end = %+v", st)
	}
	if pl.SelectedIndex() != 0 {
		t.Fatalf("selected = %d, want 0", pl.SelectedIndex())
	}
	if !first.closed || len(op.clips) != 2 {
		t.Fatal("previous clip should be closed before the next opens")
	}
}

func TestEndOfTrackWithEmptyPlaylistStops(t *testing.T) {
	dir := t.TempDir()
	pl, op := newTestPlayer(t)
	if err := pl.Load(writeWAV(t, dir, "solo.wav", 16, 0)); err != nil {
		t.Fatal(err)
	}
	if err := pl.Play(); err != nil {
		t.Fatal(err)
	}
	op.last().pos = time.Second
	pl.Tick()
	if st := pl.Status(); st.State != Stopped {
		t.Fatalf("state = %v, want stopped", st.State)
	}
	if pl.Tick() {
		t.Fatal("clock should stop when nothing follows")
	}
}

func TestNextAndPrevOnEmptyFilter(t *testing.T) {
	pl, _ := newTestPlayer(t)
	pl.SetLibrary(threeSongs(t))
	pl.SetFilter("zzz")
	if err := pl.Next(); !errors.Is(err, ErrEmptyPlaylist) {
		t.Fatalf("next err = %v", err)
	}
	if err := pl.Prev(); !errors.Is(err, ErrEmptyPlaylist) {
		t.Fatalf("prev err = %v", err)
	}
	if st := pl.Status(); st.TrackName != NoSong {
		t.Fatalf("empty navigation loaded %q", st.TrackName)
	}
}

func TestFilterTracks(t *testing.T) {
	pl, _ := newTestPlayer(t)
	pl.SetLibrary([]Entry{
		{Name: "Julian Gomez - Love Song 28.wav", Path: "/m/1.wav"},
		{Name: "Wapo Jije - House Headz.wav", Path: "/m/2.wav"},
	})
	pl.SetFilter("love")
	got := pl.Tracks()
	if len(got) != 1 || got[0] != "Julian Gomez - Love Song 28.wav" {
		t.Fatalf("tracks = %v", got)
	}
}

func TestPrevWrapsBackwards(t *testing.T) {
	pl, _ := newTestPlayer(t)
	pl.SetLibrary(threeSongs(t))
	if err := pl.Prev(); err != nil {
		t.Fatal(err)
	}
	if st := pl.Status(); st.TrackName != "c.wav" || st.State != Playing {
		t.Fatalf("status = %+v", st)
	}
}

func TestToggles(t *testing.T) {
	pl, _ := newTestPlayer(t)
	if !pl.ToggleShuffle() || !pl.ToggleRepeat() {
		t.Fatal("toggles should turn on")
	}
	st := pl.Status()
	if !st.Shuffle || !st.Repeat {
		t.Fatalf("status = %+v", st)
	}
	if pl.ToggleShuffle() || pl.ToggleRepeat() {
		t.Fatal("toggles should turn off")
	}
}

func TestDeviceFailurePlaysSilently(t *testing.T) {
	dir := t.TempDir()
	op := &fakeOpener{err: errors.New("no output line")}
	pl, err := NewPlayer(44100, WithClipOpener(op))
	if err != nil {
		t.Fatal(err)
	}
	events := pl.Watch()
	if err := pl.Load(writeWAV(t, dir, "quiet.wav", 16, 0)); err != nil {
		t.Fatalf("device failure must not fail the load: %v", err)
	}
	var de *DeviceError
	if st := pl.Status(); !errors.As(st.Err, &de) {
		t.Fatalf("status err = %v, want DeviceError", st.Err)
	}
	ev := <-events
	if ev.Kind != EventTrackLoaded || ev.Message() != "No audio device: no output line" {
		t.Fatalf("load event = %+v (%q)", ev, ev.Message())
	}
	pl.SetVolume(10)
	if err := pl.Play(); err != nil {
		t.Fatal(err)
	}
	if st := pl.Status(); st.State != Playing {
		t.Fatalf("state = %v", st.State)
	}
}

type countingCanvas struct{ n int }

func (c *countingCanvas) StrokeLine(x0, y0, x1, y1, width float32, clr color.Color) { c.n++ }

func TestRenderFollowsLoadedTrack(t *testing.T) {
	pl, _ := newTestPlayer(t)
	var blank countingCanvas
	pl.Render(&blank, 320, 320)
	if blank.n != 0 {
		t.Fatalf("rendered %d lines with no track", blank.n)
	}
	pl.SetLibrary(threeSongs(t))
	if err := pl.Play(); err != nil {
		t.Fatal(err)
	}
	var c countingCanvas
	pl.Render(&c, 320, 320)
	if c.n != 3600 {
		t.Fatalf("rendered %d lines, want 3600", c.n)
	}
}

func TestLoadTrackFeedsVisualizer(t *testing.T) {
	pl, op := newTestPlayer(t)
	samples := make([]float32, 1000)
	for i := range samples {
		samples[i] = 0.5
	}
	pl.LoadTrack(intpcm.NewTrack("tone", samples, 1, 1000))
	if st := pl.Status(); st.TrackName != "tone" || st.Total != time.Second {
		t.Fatalf("status after LoadTrack = %+v", st)
	}
	if err := pl.Play(); err != nil {
		t.Fatal(err)
	}
	if !pl.Tick() {
		t.Fatal("tick should fire while playing")
	}
	if v := pl.Visualizer(); v.Cursor != 300 || v.Pulse <= 1 {
		t.Fatalf("visualizer after one tick = %+v", v)
	}

	pl.LoadTrack(nil)
	if st := pl.Status(); st.TrackName != "tone" || st.State != Playing {
		t.Fatalf("nil LoadTrack changed status: %+v", st)
	}
	if len(op.clips) != 1 || op.last().closed {
		t.Fatalf("nil LoadTrack touched the clip: %d clips", len(op.clips))
	}
}

func TestEventMessages(t *testing.T) {
	tests := []struct {
		ev   PlaybackEvent
		want string
	}{
		{PlaybackEvent{Kind: EventTrackLoaded, Track: "a.wav"}, "Loaded a.wav"},
		{PlaybackEvent{Kind: EventTrackEnded, Track: "a.wav"}, "Finished a.wav"},
		{PlaybackEvent{Kind: EventTrackRepeated, Track: "a.wav"}, "Repeating a.wav"},
		{PlaybackEvent{Kind: EventStateChanged, Track: "a.wav", State: Paused}, "a.wav: paused"},
		{PlaybackEvent{Kind: EventLoadFailed, Track: "x.wav", Err: errors.New("bad header")}, "bad header"},
	}
	for _, tt := range tests {
		if got := tt.ev.Message(); got != tt.want {
			t.Errorf("Message(%+v) = %q, want %q", tt.ev, got, tt.want)
		}
	}
}
