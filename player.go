package musicguru

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	intaudio "github.com/cbegin/musicguru-go/internal/audio"
	intclock "github.com/cbegin/musicguru-go/internal/clock"
	intpcm "github.com/cbegin/musicguru-go/internal/pcm"
	intpb "github.com/cbegin/musicguru-go/internal/playback"
	intpl "github.com/cbegin/musicguru-go/internal/playlist"
	intvis "github.com/cbegin/musicguru-go/internal/visual"
)

type (
	Track       = intpcm.Track
	Entry       = intpl.Entry
	State       = intpb.State
	Canvas      = intvis.Canvas
	DecodeError = intpcm.DecodeError
	DeviceError = intpb.DeviceError
)

const (
	Stopped = intpb.Stopped
	Playing = intpb.Playing
	Paused  = intpb.Paused
)

// NoSong is the display name used when nothing is loaded.
const NoSong = "No song"

var ErrEmptyPlaylist = intpl.ErrEmpty

// IsDecodeError reports whether err came from a track that failed to decode.
func IsDecodeError(err error) bool {
	var de *intpcm.DecodeError
	return errors.As(err, &de)
}

// PlaybackEvent carries notifications from Watch().
type PlaybackEvent struct {
	Kind  int // one of the Event constants
	Track string
	State State
	Err   error
}

// Message is a one-line description of ev for status bars and logs.
func (ev PlaybackEvent) Message() string {
	switch ev.Kind {
	case EventTrackLoaded:
		var de *DeviceError
		if errors.As(ev.Err, &de) {
			return "No audio device: " + de.Err.Error()
		}
		return "Loaded " + ev.Track
	case EventLoadFailed:
		if ev.Err != nil {
			return ev.Err.Error()
		}
		return "Cannot load " + ev.Track
	case EventTrackEnded:
		return "Finished " + ev.Track
	case EventTrackRepeated:
		return "Repeating " + ev.Track
	default:
		return ev.Track + ": " + ev.State.String()
	}
}

const (
	EventTrackLoaded int = iota
	EventLoadFailed
	EventTrackEnded
	EventTrackRepeated
	EventStateChanged
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	opener       intpb.Opener
	log          *zap.Logger
	tickInterval time.Duration
	volume       int
	repeat       bool
	shuffle      bool
	rnd          *rand.Rand
	renderer     intvis.Renderer
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{
		log:          zap.NewNop(),
		tickInterval: intclock.DefaultInterval,
		volume:       80,
		renderer:     intvis.DefaultRenderer(),
	}
}

// WithClipOpener replaces the ebiten audio backend.
func WithClipOpener(opener intpb.Opener) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.opener = opener
	}
}

func WithLogger(log *zap.Logger) PlayerOption {
	return func(cfg *playerConfig) {
		if log != nil {
			cfg.log = log
		}
	}
}

// WithTickInterval sets the animation clock period. Default 40ms.
func WithTickInterval(d time.Duration) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.tickInterval = d
	}
}

// WithVolume sets the initial volume level (0..100). Default 80.
func WithVolume(level int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.volume = level
	}
}

func WithRepeat(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.repeat = enabled
	}
}

func WithShuffle(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.shuffle = enabled
	}
}

// WithRand sets the random source for shuffle picks.
func WithRand(r *rand.Rand) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.rnd = r
	}
}

func WithRenderer(r intvis.Renderer) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.renderer = r
	}
}

// Player is the command surface a host UI drives: transport controls,
// playlist navigation and the animation tick. All methods are safe to call
// from any goroutine; ticks are serialized with commands.
type Player struct {
	mu        sync.Mutex
	log       *zap.Logger
	engine    *intpb.Engine
	library   *intpl.Library
	clock     *intclock.Clock
	renderer  intvis.Renderer
	vis       intvis.State
	samples   []float32
	lastErr   error
	eventCh   chan PlaybackEvent
	eventChMu sync.Mutex
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.opener == nil {
		cfg.opener = intaudio.NewOpener(sampleRate)
	}
	var libOpts []intpl.Option
	if cfg.rnd != nil {
		libOpts = append(libOpts, intpl.WithRand(cfg.rnd))
	}

	p := &Player{
		log:      cfg.log,
		library:  intpl.New(nil, libOpts...),
		renderer: cfg.renderer,
	}
	p.engine = intpb.New(cfg.opener,
		intpb.WithLogger(cfg.log.Named("engine")),
		intpb.WithLoadListener(p.onTrackLoaded))
	p.engine.SetRepeat(cfg.repeat)
	_ = p.engine.SetVolume(cfg.volume)
	p.library.SetShuffle(cfg.shuffle)
	p.clock = intclock.New(cfg.tickInterval, p.advance)
	return p, nil
}

// onTrackLoaded hands the new track's buffer to the visualizer. It runs
// inside Engine.Load, with p.mu already held.
func (p *Player) onTrackLoaded(track *intpcm.Track) {
	p.samples = track.Samples
	p.vis.Reset()
}

// Load decodes path and makes it the current track, stopped at zero. A file
// that fails to decode leaves the current track and state untouched.
func (p *Player) Load(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.load(path)
}

func (p *Player) load(path string) error {
	track, err := intpcm.DecodeFile(path)
	if err != nil {
		p.lastErr = err
		p.log.Warn("load failed", zap.String("path", path), zap.Error(err))
		p.sendEvent(PlaybackEvent{Kind: EventLoadFailed, Track: path, State: p.engine.State(), Err: err})
		return err
	}
	p.loadTrack(track)
	return nil
}

// LoadTrack installs an already decoded or synthesized track. A nil track
// is ignored.
func (p *Player) LoadTrack(track *Track) {
	if track == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadTrack(track)
}

func (p *Player) loadTrack(track *Track) {
	p.clock.Stop()
	p.engine.Load(track)
	p.lastErr = p.engine.DeviceErr()
	p.sendEvent(PlaybackEvent{Kind: EventTrackLoaded, Track: track.Name, State: p.engine.State(), Err: p.lastErr})
}

// Play starts or resumes playback. With nothing loaded it loads the
// playlist's current entry first.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.play()
}

func (p *Player) play() error {
	if p.engine.Track() == nil {
		entry, err := p.library.Current()
		if err != nil {
			return nil
		}
		if err := p.load(entry.Path); err != nil {
			return err
		}
	}
	if p.engine.Play() {
		p.sendEvent(PlaybackEvent{Kind: EventStateChanged, Track: p.trackName(), State: Playing})
	}
	p.clock.Start()
	return nil
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.engine.Pause() {
		p.sendEvent(PlaybackEvent{Kind: EventStateChanged, Track: p.trackName(), State: Paused})
	}
	p.clock.Stop()
}

// Stop rewinds to zero and resets the visualizer.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.engine.Stop() {
		p.sendEvent(PlaybackEvent{Kind: EventStateChanged, Track: p.trackName(), State: Stopped})
	}
	p.clock.Stop()
	p.vis.Reset()
}

// Seek moves to fraction percent (0..100) of the current track.
func (p *Player) Seek(fraction float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.Seek(fraction)
}

// SetVolume sets the output level (0..100). Output lines without gain
// control ignore it.
func (p *Player) SetVolume(level int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.engine.SetVolume(level); err != nil {
		p.log.Debug("volume unsupported", zap.Int("level", level), zap.Error(err))
	}
}

func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.Volume()
}

// Next loads and plays the following visible entry (random when shuffling).
// It returns ErrEmptyPlaylist and does nothing when no entries are visible.
func (p *Player) Next() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, err := p.library.Next()
	if err != nil {
		return err
	}
	return p.playEntry(entry)
}

func (p *Player) Prev() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, err := p.library.Prev()
	if err != nil {
		return err
	}
	return p.playEntry(entry)
}

// Select loads and plays the visible entry at index, as a list click does.
func (p *Player) Select(index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, err := p.library.Select(index)
	if err != nil {
		return err
	}
	return p.playEntry(entry)
}

func (p *Player) playEntry(entry Entry) error {
	if err := p.load(entry.Path); err != nil {
		return err
	}
	return p.play()
}

func (p *Player) SetShuffle(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.library.SetShuffle(enabled)
}

func (p *Player) ToggleShuffle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.library.SetShuffle(!p.library.Shuffle())
	return p.library.Shuffle()
}

func (p *Player) SetRepeat(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine.SetRepeat(enabled)
}

func (p *Player) ToggleRepeat() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine.SetRepeat(!p.engine.Repeat())
	return p.engine.Repeat()
}

// SetLibrary replaces the playlist. The current track keeps playing.
func (p *Player) SetLibrary(entries []Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.library.Replace(entries)
}

// SetFilter restricts the visible entries to names containing query,
// ignoring case.
func (p *Player) SetFilter(query string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.library.Filter(query)
}

// Tracks returns the visible entry names in order.
func (p *Player) Tracks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.library.Names()
}

// SelectedIndex is the visible index of the current playlist entry.
func (p *Player) SelectedIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.library.Index()
}

// Tick is the animation clock entry point for hosts that own a frame loop.
// It does nothing unless playback is running.
func (p *Player) Tick() bool {
	return p.clock.Fire()
}

// TicksPerSecond is the rate at which hosts should call Tick.
func (p *Player) TicksPerSecond() int {
	return p.clock.TicksPerSecond()
}

// Clock exposes the animation clock so headless hosts can Run it.
func (p *Player) Clock() *intclock.Clock {
	return p.clock
}

// advance is the clock's tick handler: poll position, apply the
// end-of-track policy, then step the visualizer.
func (p *Player) advance() {
	p.mu.Lock()
	defer p.mu.Unlock()

	prog := p.engine.Poll()
	switch prog.End {
	case intpb.EndRepeated:
		p.sendEvent(PlaybackEvent{Kind: EventTrackRepeated, Track: p.trackName(), State: Playing})
	case intpb.EndFinished:
		p.sendEvent(PlaybackEvent{Kind: EventTrackEnded, Track: p.trackName(), State: Stopped})
		if !p.advanceToNext() {
			p.clock.Stop()
			return
		}
	}
	if p.engine.State() == Playing {
		p.vis.Advance(p.samples)
	}
}

func (p *Player) advanceToNext() bool {
	entry, err := p.library.Next()
	if err != nil {
		return false
	}
	if err := p.playEntry(entry); err != nil {
		p.log.Warn("next track failed", zap.String("path", entry.Path), zap.Error(err))
		return false
	}
	return p.engine.State() == Playing
}

func (p *Player) trackName() string {
	if t := p.engine.Track(); t != nil {
		return t.Name
	}
	return NoSong
}

// Status is what a host displays each frame.
type Status struct {
	TrackName string
	State     State
	Elapsed   time.Duration
	Total     time.Duration
	Progress  int // percent, 0..100
	Volume    int
	Shuffle   bool
	Repeat    bool
	Err       error
}

// TimeLabel renders "MM:SS / MM:SS".
func (s Status) TimeLabel() string {
	return FormatClock(s.Elapsed) + " / " + FormatClock(s.Total)
}

func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, dur := p.engine.Position(), p.engine.Duration()
	progress := 0
	if dur > 0 {
		progress = int(100 * pos / dur)
	}
	return Status{
		TrackName: p.trackName(),
		State:     p.engine.State(),
		Elapsed:   pos,
		Total:     dur,
		Progress:  progress,
		Volume:    p.engine.Volume(),
		Shuffle:   p.library.Shuffle(),
		Repeat:    p.engine.Repeat(),
		Err:       p.lastErr,
	}
}

// Visualizer returns a copy of the current visualizer state.
func (p *Player) Visualizer() intvis.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vis
}

// Render draws the radial waveform for the current frame onto dst.
func (p *Player) Render(dst Canvas, width, height float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.renderer.Draw(dst, p.vis, p.samples, width, height)
}

// Watch returns a channel that receives playback events. The channel is
// buffered (cap 8) and events are dropped when it is full. Only the most
// recent Watch() channel receives events.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

// Close stops playback and releases the output line.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock.Stop()
	p.engine.Close()
	p.samples = nil
	p.vis.Reset()
}
