package visual

import (
	"image/color"
	"math"
	"testing"
)

type line struct {
	x0, y0, x1, y1, width float32
	clr                   color.Color
}

type recordingCanvas struct{ lines []line }

func (c *recordingCanvas) StrokeLine(x0, y0, x1, y1, width float32, clr color.Color) {
	c.lines = append(c.lines, line{x0, y0, x1, y1, width, clr})
}

func TestDrawWithoutSamplesIsBlank(t *testing.T) {
	var c recordingCanvas
	DefaultRenderer().Draw(&c, State{Pulse: 1}, nil, 320, 320)
	if len(c.lines) != 0 {
		t.Fatalf("drew %d lines for an empty buffer", len(c.lines))
	}
}

func TestDrawStrokesEverySpokePerGlowPass(t *testing.T) {
	var c recordingCanvas
	samples := make([]float32, 1000)
	DefaultRenderer().Draw(&c, State{}, samples, 320, 320)
	if len(c.lines) != 360*10 {
		t.Fatalf("lines = %d, want 3600", len(c.lines))
	}
	first, last := c.lines[0], c.lines[len(c.lines)-1]
	if first.width != 20 || last.width != 2 {
		t.Fatalf("stroke widths first=%v last=%v, want 20 and 2", first.width, last.width)
	}
	if a := first.clr.(color.NRGBA).A; a != 102 {
		t.Fatalf("widest pass alpha = %d, want 102", a)
	}
	if a := last.clr.(color.NRGBA).A; a != 10 {
		t.Fatalf("narrowest pass alpha = %d, want 10", a)
	}
}

func TestDrawRadiusSwellsWithPulse(t *testing.T) {
	samples := make([]float32, 400)
	var c recordingCanvas
	DefaultRenderer().Draw(&c, State{Pulse: 1}, samples, 320, 200)
	// Spoke 0 points along +x from the center (160, 100).
	// Base radius is min(160,100)-30 = 70, plus 20 for the pulse.
	got := c.lines[0].x0 - 160
	if math.Abs(float64(got)-90) > 1e-3 {
		t.Fatalf("radius = %v, want 90", got)
	}
}

func TestDrawSpokeFollowsSignedAmplitude(t *testing.T) {
	samples := make([]float32, 720)
	samples[5] = 0.5
	samples[5+180] = -0.25
	r := DefaultRenderer()
	r.GlowPasses = 1
	var c recordingCanvas
	r.Draw(&c, State{Cursor: 5}, samples, 400, 400)

	out := c.lines[0] // degree 0 reads samples[5]
	if d := out.x1 - out.x0; math.Abs(float64(d)-40) > 1e-3 {
		t.Fatalf("outward spoke length = %v, want 40", d)
	}
	in := c.lines[180] // degree 180 points along -x and reads samples[185]
	if d := in.x1 - in.x0; math.Abs(float64(d)-20) > 1e-3 {
		t.Fatalf("inward spoke dx = %v, want 20", d)
	}
}

func TestDrawCursorWrapsAroundBuffer(t *testing.T) {
	samples := make([]float32, 100)
	samples[10] = 1
	r := DefaultRenderer()
	r.GlowPasses = 1
	var c recordingCanvas
	r.Draw(&c, State{Cursor: 90}, samples, 400, 400)
	// Degree 20 reads (90+20) mod 100 = 10.
	l := c.lines[20]
	length := math.Hypot(float64(l.x1-l.x0), float64(l.y1-l.y0))
	if math.Abs(length-80) > 1e-3 {
		t.Fatalf("wrapped spoke length = %v, want 80", length)
	}
}

func TestGlowColorCyclesHue(t *testing.T) {
	red := GlowColor(0, 25)
	if red.R != 255 || red.G != 0 || red.B != 0 || red.A != 255 {
		t.Fatalf("hue 0 = %+v, want opaque red", red)
	}
	green := GlowColor(1.0/3, 25)
	if green.G != 255 || green.R != 0 {
		t.Fatalf("hue 1/3 = %+v, want green", green)
	}
}

func TestGlowColorRoundsChannels(t *testing.T) {
	// 23.67 degrees puts green at 0.3945 of full scale, 100.6 in 8 bits.
	c := GlowColor(23.67/360, 25)
	if c.R != 255 || c.G != 101 || c.B != 0 {
		t.Fatalf("hue 23.67deg = %+v, want {255 101 0}", c)
	}
}
