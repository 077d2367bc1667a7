// Package render replays a scene as a deterministic function of elapsed time.
// Compose turns (scene, elapsed frame units, viewport, view, filter) into a
// Frame of screen-space primitives; a Rasterizer paints Frames into images and
// a Loop drives composition from a tick stream.
package render

import (
	"time"

	"fivem/resonance/internal/errors"
	"fivem/resonance/internal/palette"
)

// FilterMode decides what happens to nodes outside a non-empty filter.
type FilterMode string

const (
	FilterDim  FilterMode = "dim"
	FilterHide FilterMode = "hide"
)

// Fit is an image placement policy.
type Fit string

const (
	// FitContain scales to the largest size that fits entirely, centered.
	FitContain Fit = "contain"
	// FitCover fills the viewport, preserving aspect ratio and cropping the
	// overflow around the center.
	FitCover Fit = "cover"
	// FitStretch fills the viewport ignoring aspect ratio.
	FitStretch Fit = "stretch"
)

// Params is every renderer constant in one place. Lengths suffixed Units are in
// simulation units and grow with zoom; lengths suffixed Px are screen pixels.
type Params struct {
	FrameUnit time.Duration `mapstructure:"frame_unit"`

	FadeInWindow   float64 `mapstructure:"fade_in_window"`
	RippleCycle    float64 `mapstructure:"ripple_cycle"`
	RippleScale    float64 `mapstructure:"ripple_scale"`
	RippleWidthPx  float64 `mapstructure:"ripple_width_px"`
	PeakAlpha      float64 `mapstructure:"peak_alpha"`
	EdgeFadeWindow float64 `mapstructure:"edge_fade_window"`
	EdgeMaxOpacity float64 `mapstructure:"edge_max_opacity"`
	EdgeWidthPx    float64 `mapstructure:"edge_width_px"`
	EdgeColor      string  `mapstructure:"edge_color"`

	DimFactor  float64    `mapstructure:"dim_factor"`
	FilterMode FilterMode `mapstructure:"filter_mode"`

	ZoomMin      float64 `mapstructure:"zoom_min"`
	ZoomMax      float64 `mapstructure:"zoom_max"`
	ZoomInStep   float64 `mapstructure:"zoom_in_step"`
	ZoomOutStep  float64 `mapstructure:"zoom_out_step"`
	ZoomModifier bool    `mapstructure:"zoom_modifier"`
	HitRadius    float64 `mapstructure:"hit_radius"`
	ClickSlop    float64 `mapstructure:"click_slop"`

	BackgroundFit   Fit    `mapstructure:"background_fit"`
	ContentFit      Fit    `mapstructure:"content_fit"`
	BackgroundColor string `mapstructure:"background_color"`

	Bounded        bool `mapstructure:"bounded"`
	DurationFrames int  `mapstructure:"duration_frames"`

	ShowGlow       bool    `mapstructure:"show_glow"`
	OuterGlowUnits float64 `mapstructure:"outer_glow_units"`
	OuterGlowAlpha float64 `mapstructure:"outer_glow_alpha"`
	InnerGlowUnits float64 `mapstructure:"inner_glow_units"`
	InnerGlowAlpha float64 `mapstructure:"inner_glow_alpha"`
	GlowColor      string  `mapstructure:"glow_color"`
	CoreRadiusPx   float64 `mapstructure:"core_radius_px"`
	CoreAlpha      float64 `mapstructure:"core_alpha"`
	CoreColor      string  `mapstructure:"core_color"`
	ShowLabels     bool    `mapstructure:"show_labels"`
	LabelOffsetXPx float64 `mapstructure:"label_offset_x_px"`
	LabelOffsetYPx float64 `mapstructure:"label_offset_y_px"`
	LabelSizePx    float64 `mapstructure:"label_size_px"`
	LabelAlpha     float64 `mapstructure:"label_alpha"`
	LabelColor     string  `mapstructure:"label_color"`
	CalloutSizePx  float64 `mapstructure:"callout_size_px"`
}

// PanelParams is the fixed-size dashboard panel: perpetual, zoomable 1..10.
func PanelParams() Params {
	return Params{
		FrameUnit:       50 * time.Millisecond,
		FadeInWindow:    120,
		RippleCycle:     640,
		RippleScale:     4.5,
		RippleWidthPx:   3,
		PeakAlpha:       1.2,
		EdgeFadeWindow:  320,
		EdgeMaxOpacity:  0.4,
		EdgeWidthPx:     1,
		EdgeColor:       "#ffffff",
		DimFactor:       0.1,
		FilterMode:      FilterDim,
		ZoomMin:         1,
		ZoomMax:         10,
		ZoomInStep:      1.1,
		ZoomOutStep:     0.9,
		ZoomModifier:    true,
		HitRadius:       15,
		ClickSlop:       4,
		BackgroundFit:   FitCover,
		ContentFit:      FitContain,
		BackgroundColor: "#020617",
		Bounded:         false,
		DurationFrames:  4000,
		ShowGlow:        true,
		OuterGlowUnits:  40,
		OuterGlowAlpha:  0.075,
		InnerGlowUnits:  14,
		InnerGlowAlpha:  0.2,
		GlowColor:       "#ffffff",
		CoreRadiusPx:    3,
		CoreAlpha:       0.9,
		CoreColor:       "#ffffff",
		ShowLabels:      true,
		LabelOffsetXPx:  8,
		LabelOffsetYPx:  -5,
		LabelSizePx:     9,
		LabelAlpha:      0.7,
		LabelColor:      "#ffffff",
		CalloutSizePx:   12,
	}
}

// FullViewportParams fills the whole window and stops after DurationFrames.
func FullViewportParams() Params {
	p := PanelParams()
	p.Bounded = true
	return p
}

// StaticZoomParams views the poster image: everything revealed, zoom 1..20.
func StaticZoomParams() Params {
	p := PanelParams()
	p.ZoomMax = 20
	p.BackgroundFit = FitContain
	return p
}

// Preset returns the named parameter set: "panel", "full" or "static".
func Preset(name string) (Params, error) {
	switch name {
	case "", "panel":
		return PanelParams(), nil
	case "full":
		return FullViewportParams(), nil
	case "static":
		return StaticZoomParams(), nil
	}
	return Params{}, errors.WithHint(
		errors.Mark(errors.Newf("unknown render preset %q", name), errors.ErrInvalidInput),
		"use one of panel, full, static")
}

// Validate rejects parameter sets that would divide by zero or make zoom
// limits meaningless.
func (p Params) Validate() error {
	switch {
	case p.FrameUnit <= 0:
		return errors.Newf("frame unit must be positive, got %s", p.FrameUnit)
	case p.FadeInWindow <= 0, p.RippleCycle <= 0, p.EdgeFadeWindow <= 0:
		return errors.New("fade, ripple and edge windows must be positive")
	case !(p.ZoomMin > 0 && p.ZoomMin <= p.ZoomMax):
		return errors.Newf("zoom range [%g, %g] is invalid", p.ZoomMin, p.ZoomMax)
	case p.ZoomInStep <= 1 || p.ZoomOutStep <= 0 || p.ZoomOutStep >= 1:
		return errors.Newf("zoom steps %g/%g must straddle 1", p.ZoomInStep, p.ZoomOutStep)
	case p.FilterMode != FilterDim && p.FilterMode != FilterHide:
		return errors.Newf("unknown filter mode %q", p.FilterMode)
	case p.Bounded && p.DurationFrames <= 0:
		return errors.New("bounded rendering needs a positive duration")
	}
	for _, f := range []Fit{p.BackgroundFit, p.ContentFit} {
		switch f {
		case FitContain, FitCover, FitStretch:
		default:
			return errors.Newf("unknown fit policy %q", f)
		}
	}
	for _, c := range []string{p.EdgeColor, p.BackgroundColor, p.GlowColor, p.CoreColor, p.LabelColor} {
		if _, err := palette.ParseHex(c); err != nil {
			return err
		}
	}
	return nil
}
