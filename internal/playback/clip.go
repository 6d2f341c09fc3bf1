package playback

import (
	"errors"
	"fmt"
	"time"

	"github.com/cbegin/musicguru-go/internal/pcm"
)

// Clip is an open audio output line bound to one decoded track.
type Clip interface {
	Play()
	Pause()
	IsPlaying() bool
	Position() time.Duration
	SetPosition(pos time.Duration) error
	Close() error
}

// GainControl is implemented by clips whose output level can be adjusted.
type GainControl interface {
	GainRange() (min, max float64)
	SetGain(gain float64)
}

// Opener binds a track to a new output line.
type Opener interface {
	Open(track *pcm.Track) (Clip, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(track *pcm.Track) (Clip, error)

func (f OpenerFunc) Open(track *pcm.Track) (Clip, error) { return f(track) }

var ErrNoGainControl = errors.New("output line has no gain control")

// DeviceError reports an output line that could not be opened. Playback
// continues on a SilentClip.
type DeviceError struct {
	Track string
	Err   error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device for %s: %v", e.Track, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// SilentClip keeps time like a real clip but produces no sound.
type SilentClip struct {
	duration time.Duration
	now      func() time.Time
	started  time.Time
	offset   time.Duration
	playing  bool
	closed   bool
}

func NewSilentClip(duration time.Duration, now func() time.Time) *SilentClip {
	if now == nil {
		now = time.Now
	}
	return &SilentClip{duration: duration, now: now}
}

func (c *SilentClip) Play() {
	if c.playing || c.closed || c.offset >= c.duration {
		return
	}
	c.started = c.now()
	c.playing = true
}

func (c *SilentClip) Pause() {
	if !c.playing {
		return
	}
	c.offset = c.Position()
	c.playing = false
}

func (c *SilentClip) IsPlaying() bool {
	if c.playing && c.Position() >= c.duration {
		c.offset = c.duration
		c.playing = false
	}
	return c.playing
}

func (c *SilentClip) Position() time.Duration {
	pos := c.offset
	if c.playing {
		pos += c.now().Sub(c.started)
	}
	if pos > c.duration {
		pos = c.duration
	}
	return pos
}

func (c *SilentClip) SetPosition(pos time.Duration) error {
	if pos < 0 {
		pos = 0
	}
	if pos > c.duration {
		pos = c.duration
	}
	c.offset = pos
	if c.playing {
		c.started = c.now()
	}
	return nil
}

func (c *SilentClip) Close() error {
	c.playing = false
	c.closed = true
	return nil
}
