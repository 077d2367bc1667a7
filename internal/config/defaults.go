package config

import (
	"time"

	"github.com/spf13/viper"

	"fivem/resonance/internal/scene"
	"fivem/resonance/internal/survey"
)

// File names searched for when no explicit config path is given.
const (
	FileName  = "resonance.toml"
	EnvPrefix = "RESONANCE"
)

// SetDefaults configures default values for all configuration options.
// Render and poster parameters default to their presets and are not listed
// here; see Load.
func SetDefaults(v *viper.Viper) {
	// Input tables
	cols := survey.DefaultColumns()
	v.SetDefault("input.survey_path", "survey_data.csv")
	v.SetDefault("input.gifts_path", "")
	v.SetDefault("input.gift_placeholder", "(no message)")
	v.SetDefault("input.columns.name", cols.Name)
	v.SetDefault("input.columns.score", cols.Score)
	v.SetDefault("input.columns.category", cols.Category)
	v.SetDefault("input.columns.order", cols.Order)
	v.SetDefault("input.columns.gift", cols.Gift)

	// Artifacts
	v.SetDefault("output.scene_path", "animation_data.json")
	v.SetDefault("output.poster_path", "static_network_glow.png")
	v.SetDefault("output.background_path", "universe_bg.png")
	v.SetDefault("output.poster", true)

	// Generator
	opts := scene.DefaultOptions()
	v.SetDefault("generator.seed", opts.Seed)
	v.SetDefault("generator.content_min", opts.ContentMin)
	v.SetDefault("generator.content_max", opts.ContentMax)
	v.SetDefault("generator.limit_min", opts.LimitMin)
	v.SetDefault("generator.limit_max", opts.LimitMax)
	v.SetDefault("generator.delay_step", opts.DelayStep)
	v.SetDefault("generator.edge_threshold", opts.EdgeThreshold)
	v.SetDefault("generator.duration_frames", opts.DurationFrames)
	v.SetDefault("generator.fps", opts.FPS)
	v.SetDefault("generator.show_lines", opts.ShowLines)
	v.SetDefault("generator.grid_threshold", opts.GridThreshold)

	// Renderer
	v.SetDefault("render.preset", "panel")
	v.SetDefault("render.font_path", "")

	// Server
	v.SetDefault("server.address", "127.0.0.1:8501")
	v.SetDefault("server.regenerate_per_minute", 6)
	v.SetDefault("server.regenerate_burst", 2)
	v.SetDefault("server.max_frame_px", 4096)
	v.SetDefault("server.ping_interval", 30*time.Second)

	// Store
	v.SetDefault("store.keep", 20)

	// Input watcher
	v.SetDefault("watch.enabled", false)
	v.SetDefault("watch.debounce", 500*time.Millisecond)
}
