package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/cbegin/musicguru-go/internal/pcm"
	"github.com/cbegin/musicguru-go/internal/playback"
)

const bytesPerFrame = 4 // 16-bit stereo

// PCMReader streams a track's normalized buffer as 16-bit little-endian
// stereo, the layout ebiten players consume. Mono tracks are duplicated onto
// both channels; extra channels beyond two are dropped.
type PCMReader struct {
	mu       sync.Mutex
	samples  []float32
	channels int
	offset   int64
}

func NewPCMReader(track *pcm.Track) *PCMReader {
	ch := track.Channels
	if ch <= 0 {
		ch = 1
	}
	return &PCMReader{samples: track.Samples, channels: ch}
}

// Size is the length of the encoded stream in bytes.
func (r *PCMReader) Size() int64 {
	return int64(len(r.samples)/r.channels) * bytesPerFrame
}

func (r *PCMReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.Size()
	if r.offset >= size {
		return 0, io.EOF
	}
	frame := int(r.offset / bytesPerFrame)
	frames := len(p) / bytesPerFrame
	if remain := int((size - r.offset) / bytesPerFrame); frames > remain {
		frames = remain
	}
	for i := 0; i < frames; i++ {
		base := (frame + i) * r.channels
		left := r.samples[base]
		right := left
		if r.channels > 1 {
			right = r.samples[base+1]
		}
		binary.LittleEndian.PutUint16(p[i*4:], uint16(toInt16(left)))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(toInt16(right)))
	}
	n := frames * bytesPerFrame
	r.offset += int64(n)
	return n, nil
}

func (r *PCMReader) Seek(offset int64, whence int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = r.offset + offset
	case io.SeekEnd:
		next = r.Size() + offset
	default:
		return 0, errors.New("audio: invalid whence")
	}
	if next < 0 {
		return 0, errors.New("audio: negative position")
	}
	next -= next % bytesPerFrame
	r.offset = next
	return next, nil
}

func toInt16(v float32) int16 {
	s := v * 32768
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return int16(s)
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// Opener opens ebiten-backed clips on the process-wide audio context.
type Opener struct {
	sampleRate int
}

func NewOpener(sampleRate int) *Opener {
	return &Opener{sampleRate: sampleRate}
}

func (o *Opener) Open(track *pcm.Track) (playback.Clip, error) {
	if track.SampleRate <= 0 || len(track.Samples) == 0 {
		return nil, errors.New("audio: track has no playable samples")
	}
	ctx, err := sharedAudioContext(o.sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewPCMReader(track)
	var src io.ReadSeeker = reader
	if track.SampleRate != o.sampleRate {
		src = ebitaudio.Resample(reader, reader.Size(), track.SampleRate, o.sampleRate)
	}
	pl, err := ctx.NewPlayer(src)
	if err != nil {
		return nil, err
	}
	return &Clip{player: pl}, nil
}

// Clip is an output line backed by an ebiten audio player. Its gain range is
// the player's linear volume, 0..1.
type Clip struct {
	player *ebitaudio.Player
}

func (c *Clip) Play()                   { c.player.Play() }
func (c *Clip) Pause()                  { c.player.Pause() }
func (c *Clip) IsPlaying() bool         { return c.player.IsPlaying() }
func (c *Clip) Position() time.Duration { return c.player.Position() }

func (c *Clip) SetPosition(pos time.Duration) error {
	return c.player.SetPosition(pos)
}

func (c *Clip) GainRange() (float64, float64) { return 0, 1 }
func (c *Clip) SetGain(gain float64)          { c.player.SetVolume(gain) }

func (c *Clip) Close() error {
	c.player.Pause()
	return c.player.Close()
}
