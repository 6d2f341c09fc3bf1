package playback

import (
	"time"

	"go.uber.org/zap"

	"github.com/cbegin/musicguru-go/internal/pcm"
)

type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// EndAction reports what Poll did when the track ran out.
type EndAction int

const (
	EndNone EndAction = iota
	EndRepeated
	EndFinished
)

// Progress is a snapshot of the engine taken by Poll.
type Progress struct {
	Position time.Duration
	Duration time.Duration
	Percent  int
	State    State
	End      EndAction
}

type Option func(*Engine)

func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithNow replaces the wall clock used by silent fallback clips.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLoadListener registers fn to run after every successful Load.
func WithLoadListener(fn func(*pcm.Track)) Option {
	return func(e *Engine) {
		e.onLoad = fn
	}
}

// Engine owns at most one open clip and drives the
// Stopped/Playing/Paused state machine over it. It is not safe for
// concurrent use; callers serialize access.
type Engine struct {
	opener    Opener
	log       *zap.Logger
	now       func() time.Time
	onLoad    func(*pcm.Track)
	track     *pcm.Track
	clip      Clip
	state     State
	ended     bool // stopped by Poll at end of track
	repeat    bool
	volume    int
	deviceErr error
}

func New(opener Opener, opts ...Option) *Engine {
	e := &Engine{
		opener: opener,
		log:    zap.NewNop(),
		now:    time.Now,
		volume: 100,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load tears down the current clip and opens a new one for track at
// position zero. An output line that cannot be opened is replaced by a
// SilentClip and reported through DeviceErr. A nil track is ignored.
func (e *Engine) Load(track *pcm.Track) {
	if track == nil {
		return
	}
	e.release()

	clip, err := e.opener.Open(track)
	e.deviceErr = nil
	if err != nil {
		e.deviceErr = &DeviceError{Track: track.Name, Err: err}
		e.log.Warn("output line unavailable, continuing silently",
			zap.String("track", track.Name), zap.Error(err))
		clip = NewSilentClip(track.Duration, e.now)
	}
	e.track = track
	e.clip = clip
	e.state = Stopped
	if err := e.applyVolume(); err != nil {
		e.log.Debug("volume not applied", zap.String("track", track.Name), zap.Error(err))
	}
	e.log.Info("track loaded",
		zap.String("track", track.Name),
		zap.String("id", track.ID.String()),
		zap.Duration("duration", track.Duration))
	if e.onLoad != nil {
		e.onLoad(track)
	}
}

func (e *Engine) release() {
	if e.clip == nil {
		return
	}
	e.clip.Pause()
	if err := e.clip.Close(); err != nil {
		e.log.Warn("closing clip", zap.Error(err))
	}
	e.clip = nil
	e.track = nil
	e.state = Stopped
	e.ended = false
}

// Play reports whether the state changed.
func (e *Engine) Play() bool {
	if e.clip == nil || e.state == Playing {
		return false
	}
	// The device may stop a little short of Duration, so a finished track
	// rewinds even when its position never reached the end.
	if e.state == Stopped && (e.ended || e.clip.Position() >= e.track.Duration) {
		e.rewind()
	}
	e.clip.Play()
	e.state = Playing
	e.ended = false
	return true
}

func (e *Engine) Pause() bool {
	if e.clip == nil || e.state != Playing {
		return false
	}
	e.clip.Pause()
	e.state = Paused
	return true
}

// Stop halts output and rewinds. Stopping a stopped, rewound engine is a
// no-op and reports false.
func (e *Engine) Stop() bool {
	if e.clip == nil {
		return false
	}
	if e.state == Stopped && e.clip.Position() == 0 {
		return false
	}
	e.clip.Pause()
	e.rewind()
	e.state = Stopped
	e.ended = false
	return true
}

func (e *Engine) rewind() {
	if err := e.clip.SetPosition(0); err != nil {
		e.log.Warn("rewind failed", zap.Error(err))
	}
}

// Seek moves to fraction percent (0..100) of the track. It is legal in every
// state; a playing clip keeps playing from the new position.
func (e *Engine) Seek(fraction float64) error {
	if e.clip == nil {
		return nil
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 100 {
		fraction = 100
	}
	pos := time.Duration(float64(e.track.Duration) * fraction / 100)
	e.ended = false
	return e.clip.SetPosition(pos)
}

// SetVolume maps level (0..100) linearly onto the clip's gain range. It
// returns ErrNoGainControl when the clip cannot change its level; the level is
// still remembered for the next clip.
func (e *Engine) SetVolume(level int) error {
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	e.volume = level
	return e.applyVolume()
}

func (e *Engine) applyVolume() error {
	if e.clip == nil {
		return nil
	}
	gc, ok := e.clip.(GainControl)
	if !ok {
		return ErrNoGainControl
	}
	lo, hi := gc.GainRange()
	gc.SetGain(lo + (hi-lo)*float64(e.volume)/100)
	return nil
}

// Poll samples the clip position and handles end of track: with repeat set
// the clip restarts from zero, otherwise the engine stops and reports
// EndFinished so the caller can pick the next track.
func (e *Engine) Poll() Progress {
	if e.clip == nil {
		return Progress{State: e.state}
	}
	dur := e.track.Duration
	pos := e.clip.Position()
	if pos > dur {
		pos = dur
	}
	end := EndNone
	if e.state == Playing && (pos >= dur || !e.clip.IsPlaying()) {
		if e.repeat {
			e.rewind()
			e.clip.Play()
			pos = 0
			end = EndRepeated
		} else {
			e.clip.Pause()
			e.state = Stopped
			e.ended = true
			end = EndFinished
		}
	}
	return Progress{
		Position: pos,
		Duration: dur,
		Percent:  percent(pos, dur),
		State:    e.state,
		End:      end,
	}
}

func percent(pos, dur time.Duration) int {
	if dur <= 0 {
		return 0
	}
	return int(100 * pos / dur)
}

func (e *Engine) State() State          { return e.state }
func (e *Engine) Track() *pcm.Track     { return e.track }
func (e *Engine) Volume() int           { return e.volume }
func (e *Engine) Repeat() bool          { return e.repeat }
func (e *Engine) SetRepeat(repeat bool) { e.repeat = repeat }

// DeviceErr returns the error that forced the current track onto a
// SilentClip, or nil.
func (e *Engine) DeviceErr() error { return e.deviceErr }

func (e *Engine) Position() time.Duration {
	if e.clip == nil {
		return 0
	}
	pos := e.clip.Position()
	if pos > e.track.Duration {
		pos = e.track.Duration
	}
	return pos
}

func (e *Engine) Duration() time.Duration {
	if e.track == nil {
		return 0
	}
	return e.track.Duration
}

// Close releases the open clip, if any.
func (e *Engine) Close() {
	e.release()
}
