// Package config loads resonance settings from defaults, an optional TOML
// file and RESONANCE_* environment variables, in that order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"fivem/resonance/internal/errors"
	"fivem/resonance/internal/palette"
	"fivem/resonance/internal/render"
	"fivem/resonance/internal/scene"
	"fivem/resonance/internal/survey"
)

// Config is the full resonance configuration.
type Config struct {
	Input      Input                `mapstructure:"input"`
	Output     Output               `mapstructure:"output"`
	Generator  scene.Options        `mapstructure:"generator"`
	Render     Render               `mapstructure:"render"`
	Poster     render.PosterOptions `mapstructure:"poster"`
	Categories []palette.Category   `mapstructure:"categories"`
	Server     Server               `mapstructure:"server"`
	Store      Store                `mapstructure:"store"`
	Watch      Watch                `mapstructure:"watch"`

	// File is the config file that was read, empty when running on defaults.
	File string `mapstructure:"-"`
}

// Input locates the survey tables.
type Input struct {
	SurveyPath      string         `mapstructure:"survey_path"`
	GiftsPath       string         `mapstructure:"gifts_path"`
	GiftPlaceholder string         `mapstructure:"gift_placeholder"`
	Columns         survey.Columns `mapstructure:"columns"`
}

// Output locates the generated artifacts and the background image.
type Output struct {
	ScenePath      string `mapstructure:"scene_path"`
	PosterPath     string `mapstructure:"poster_path"`
	BackgroundPath string `mapstructure:"background_path"`
	Poster         bool   `mapstructure:"poster"`
}

// Render selects a renderer preset; any other key in the section overrides
// the matching preset parameter.
type Render struct {
	Preset   string        `mapstructure:"preset"`
	// FontPath is a TTF/OTF/TTC file used for labels and callouts instead of
	// the bundled Go Regular face.
	FontPath string        `mapstructure:"font_path"`
	Params   render.Params `mapstructure:",squash"`
}

type Server struct {
	Address             string        `mapstructure:"address"`
	RegeneratePerMinute float64       `mapstructure:"regenerate_per_minute"`
	RegenerateBurst     int           `mapstructure:"regenerate_burst"`
	MaxFramePx          int           `mapstructure:"max_frame_px"`
	PingInterval        time.Duration `mapstructure:"ping_interval"`
}

type Store struct {
	Keep int `mapstructure:"keep"`
}

type Watch struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// New returns a viper instance with defaults and environment binding but no
// config file.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads configuration. An explicit path must exist; with an empty path
// the nearest resonance.toml walking up from the working directory is used if
// there is one.
func Load(path string) (*Config, error) {
	v := New()

	if path == "" {
		path = findProjectConfig()
	} else if _, err := os.Stat(path); err != nil {
		return nil, errors.WithHint(
			errors.Mark(errors.Wrapf(err, "config file %s", path), errors.ErrNotFound),
			"omit --config to run on defaults")
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	cfg, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	cfg.File = path
	return cfg, nil
}

// LoadWithViper unmarshals and validates configuration from v.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	base, err := render.Preset(v.GetString("render.preset"))
	if err != nil {
		return nil, err
	}
	cfg := Config{
		Render: Render{Params: base},
		Poster: render.DefaultPosterOptions(),
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that cannot be checked by their consumers at
// first use.
func (c *Config) Validate() error {
	if c.Input.SurveyPath == "" {
		return errors.WithHint(errors.New("input.survey_path is empty"), "set it in resonance.toml or RESONANCE_INPUT_SURVEY_PATH")
	}
	if c.Output.ScenePath == "" {
		return errors.New("output.scene_path is empty")
	}
	if err := c.Render.Params.Validate(); err != nil {
		return errors.Wrap(err, "render")
	}
	if _, err := c.Palette(); err != nil {
		return errors.Wrap(err, "categories")
	}
	if c.Store.Keep < 0 {
		return errors.Newf("store.keep must not be negative, got %d", c.Store.Keep)
	}
	if c.Watch.Enabled && c.Watch.Debounce <= 0 {
		return errors.Newf("watch.debounce must be positive, got %s", c.Watch.Debounce)
	}
	return nil
}

// Palette returns the configured category table, or the default table when
// none is configured.
func (c *Config) Palette() (*palette.Table, error) {
	if len(c.Categories) == 0 {
		return palette.Default(), nil
	}
	return palette.New(c.Categories, palette.FallbackColor)
}

// Resolve makes a relative path relative to the directory of the config file.
// Without a config file, or for an empty or absolute path, it returns p as is.
// Rasterizer creates the rasterizer for the configured font.
func (c *Config) Rasterizer() (*render.Rasterizer, error) {
	return render.LoadRasterizer(c.Resolve(c.Render.FontPath))
}

// Resolve returns p relative to the directory of the loaded config file.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.File == "" {
		return p
	}
	return filepath.Join(filepath.Dir(c.File), p)
}

// findProjectConfig searches for resonance.toml by walking up the directory
// tree. Returns the empty string if none is found.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
