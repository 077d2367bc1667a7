package render

import (
	"math"
	"time"

	"fivem/resonance/internal/clock"
)

// Elapsed converts an instant to frame units since the session started.
func (p Params) Elapsed(s clock.Session, now time.Time) float64 {
	return s.Elapsed(now, p.FrameUnit)
}

// Visible reports whether an element with the given delay has appeared at t.
func Visible(t float64, delay int) bool {
	return t >= float64(delay)
}

// Fade is the node fade-in: 0 at its delay, rising linearly to 1 over
// FadeInWindow frame units. It is 0 before the delay.
func (p Params) Fade(t float64, delay int) float64 {
	if !Visible(t, delay) {
		return 0
	}
	return clamp01((t - float64(delay)) / p.FadeInWindow)
}

// RipplePhase is the position within the current ripple cycle, in [0, 1).
func (p Params) RipplePhase(t float64, delay int) float64 {
	if !Visible(t, delay) {
		return 0
	}
	rel := math.Mod(t-float64(delay), p.RippleCycle)
	return rel / p.RippleCycle
}

// RippleRadius is the ripple radius in simulation units.
func (p Params) RippleRadius(phase, score float64) float64 {
	return phase * score * p.RippleScale
}

// RippleOpacity falls linearly from PeakAlpha at phase 0 to 0 at phase 1.
// PeakAlpha may exceed 1; the rasterizer clamps when painting.
func (p Params) RippleOpacity(phase float64) float64 {
	return math.Max(0, p.PeakAlpha*(1-phase))
}

// EdgeOpacity ramps from 0 at the edge delay to EdgeMaxOpacity.
func (p Params) EdgeOpacity(t float64, delay int) float64 {
	if !Visible(t, delay) {
		return 0
	}
	return math.Min(p.EdgeMaxOpacity, clamp01((t-float64(delay))/p.EdgeFadeWindow))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
