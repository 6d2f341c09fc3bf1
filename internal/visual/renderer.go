package visual

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Canvas is the drawing surface the renderer strokes onto.
type Canvas interface {
	StrokeLine(x0, y0, x1, y1, width float32, clr color.Color)
}

// Renderer draws the radial waveform: one spoke per degree around a ring
// whose radius swells with the pulse, stroked several times with widening,
// fading lines to fake a bloom.
type Renderer struct {
	Margin     float64 // gap between ring and canvas edge
	Swell      float64 // radius added per unit of pulse
	Gain       float64 // spoke length per unit of amplitude
	GlowPasses int
	Spokes     int
}

func DefaultRenderer() Renderer {
	return Renderer{
		Margin:     30,
		Swell:      20,
		Gain:       80,
		GlowPasses: 10,
		Spokes:     360,
	}
}

// BaseRadius is the ring radius before the pulse swell.
func (r Renderer) BaseRadius(width, height float64) float64 {
	return math.Min(width/2, height/2) - r.Margin
}

// GlowColor returns the fully saturated color for hue at the given glow pass.
// Pass n is drawn with alpha n/25.
func GlowColor(hue float64, pass int) color.NRGBA {
	r, g, b := colorful.Hsv(hue*360, 1, 1).Clamped().RGB255()
	alpha := float64(pass) / 25
	return color.NRGBA{R: r, G: g, B: b, A: uint8(alpha*255 + 0.5)}
}

// Draw renders one frame. Passes run from widest to narrowest so the bright
// core lands on top. Nothing is drawn without samples.
func (r Renderer) Draw(dst Canvas, st State, samples []float32, width, height float64) {
	n := len(samples)
	if n == 0 || r.Spokes <= 0 {
		return
	}
	cx, cy := width/2, height/2
	radius := r.BaseRadius(width, height) + st.Pulse*r.Swell

	type spoke struct{ x0, y0, x1, y1 float32 }
	spokes := make([]spoke, r.Spokes)
	for i := range spokes {
		idx := (st.Cursor + i) % n
		if idx < 0 {
			idx += n
		}
		angle := float64(i) * 2 * math.Pi / float64(r.Spokes)
		amp := float64(samples[idx]) * r.Gain
		cos, sin := math.Cos(angle), math.Sin(angle)
		spokes[i] = spoke{
			x0: float32(cx + cos*radius), y0: float32(cy + sin*radius),
			x1: float32(cx + cos*(radius+amp)), y1: float32(cy + sin*(radius+amp)),
		}
	}

	for pass := r.GlowPasses; pass >= 1; pass-- {
		clr := GlowColor(st.Hue, pass)
		stroke := float32(pass * 2)
		for _, s := range spokes {
			dst.StrokeLine(s.x0, s.y0, s.x1, s.y1, stroke, clr)
		}
	}
}
