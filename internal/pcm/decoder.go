package pcm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

const (
	// formatPCM and formatExtensible are the WAVE format tags accepted by Decode.
	formatPCM        = 1
	formatExtensible = 0xFFFE

	supportedBitDepth = 16
	fullScale         = 32768
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio encoding (16-bit PCM only)")
	ErrNoAudioData       = errors.New("no audio data")
	ErrInvalidContainer  = errors.New("not a RIFF/WAVE file")
	ErrTruncated         = errors.New("data chunk shorter than declared")
)

// DecodeError reports a track that could not be decoded. The track must be
// treated as having no waveform.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Track is a fully decoded audio file. Samples is never modified after
// Decode returns, so it may be shared between readers.
type Track struct {
	ID         uuid.UUID
	Path       string
	Name       string
	Samples    []float32 // normalized, interleaved when Channels > 1
	Channels   int
	SampleRate int
	Duration   time.Duration
}

// Frames returns the number of sample frames (one sample per channel).
func (t *Track) Frames() int {
	if t == nil || t.Channels <= 0 {
		return 0
	}
	return len(t.Samples) / t.Channels
}

func (t *Track) String() string {
	if t == nil {
		return "<no track>"
	}
	return fmt.Sprintf("%s (%d ch, %d Hz, %s)", t.Name, t.Channels, t.SampleRate, t.Duration.Round(time.Millisecond))
}

// NewTrack wraps an already normalized buffer, for callers that synthesize
// audio instead of reading it from disk.
func NewTrack(name string, samples []float32, channels, sampleRate int) *Track {
	if channels <= 0 {
		channels = 1
	}
	t := &Track{
		ID:         uuid.New(),
		Path:       name,
		Name:       filepath.Base(name),
		Samples:    samples,
		Channels:   channels,
		SampleRate: sampleRate,
	}
	if sampleRate > 0 {
		t.Duration = time.Duration(t.Frames()) * time.Second / time.Duration(sampleRate)
	}
	return t
}

// DecodeFile opens path and decodes it with Decode.
func DecodeFile(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()
	return Decode(f, path)
}

// Decode reads a 16-bit PCM WAVE stream fully into memory. Every sample is
// divided by 32768, so values lie in [-1, 1).
func Decode(r io.ReadSeeker, path string) (*Track, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		err := ErrInvalidContainer
		if derr := dec.Err(); derr != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidContainer, derr)
		}
		return nil, &DecodeError{Path: path, Err: err}
	}
	if dec.WavAudioFormat != formatPCM && dec.WavAudioFormat != formatExtensible {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("%w: format tag %#x", ErrUnsupportedFormat, dec.WavAudioFormat)}
	}
	if dec.BitDepth != supportedBitDepth {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("%w: %d-bit samples", ErrUnsupportedFormat, dec.BitDepth)}
	}
	if dec.NumChans == 0 || dec.SampleRate == 0 {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedFormat, dec.NumChans, dec.SampleRate)}
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if dec.PCMSize < 2 {
		return nil, &DecodeError{Path: path, Err: ErrNoAudioData}
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, &DecodeError{Path: path, Err: ErrNoAudioData}
	}
	// One sample per two declared bytes; a trailing odd byte is not a sample.
	declared := dec.PCMSize / 2
	if len(buf.Data) < declared {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("%w: %d of %d bytes", ErrTruncated, len(buf.Data)*2, dec.PCMSize)}
	}
	data := buf.Data[:declared]

	samples := make([]float32, len(data))
	for i, v := range data {
		samples[i] = float32(int16(v)) / fullScale
	}

	channels := int(dec.NumChans)
	rate := int(dec.SampleRate)
	frames := len(samples) / channels
	return &Track{
		ID:         uuid.New(),
		Path:       path,
		Name:       filepath.Base(path),
		Samples:    samples,
		Channels:   channels,
		SampleRate: rate,
		Duration:   time.Duration(frames) * time.Second / time.Duration(rate),
	}, nil
}
