package cmd

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"fivem/resonance/internal/clock"
	"fivem/resonance/internal/errors"
	"fivem/resonance/internal/logger"
	"fivem/resonance/internal/render"
	"fivem/resonance/internal/scene"
)

// viewFlags are shared by render and frame.
type viewFlags struct {
	variant  string
	width    int
	height   int
	filter   string
	zoom     float64
	selected int
	noStore  bool
}

func (v *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&v.variant, "variant", "", "Renderer preset: panel, full or static (default: render.preset)")
	cmd.Flags().IntVar(&v.width, "width", 960, "Viewport width in pixels")
	cmd.Flags().IntVar(&v.height, "height", 540, "Viewport height in pixels")
	cmd.Flags().StringVar(&v.filter, "filter", "", "Comma separated categories to highlight")
	cmd.Flags().Float64Var(&v.zoom, "zoom", 1, "Zoom scale at the viewport center")
	cmd.Flags().IntVar(&v.selected, "select", render.NoSelection, "Node id to select")
	cmd.Flags().BoolVar(&v.noStore, "no-store", false, "Read the scene artifact instead of the database")
}

func (v *viewFlags) params() (render.Params, error) {
	if v.variant == "" {
		return cfg.Render.Params, nil
	}
	return render.Preset(v.variant)
}

func (v *viewFlags) viewport() (render.Viewport, error) {
	if v.width <= 0 || v.height <= 0 {
		return render.Viewport{}, errors.Mark(
			errors.Newf("viewport %dx%d must be positive", v.width, v.height), errors.ErrInvalidInput)
	}
	if err := finiteFlag("zoom", v.zoom); err != nil {
		return render.Viewport{}, err
	}
	return render.Viewport{Width: float64(v.width), Height: float64(v.height)}, nil
}

func finiteFlag(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errors.Mark(errors.Newf("--%s must be a finite number, got %v", name, v), errors.ErrInvalidInput)
	}
	return nil
}

// newLoop builds a loop over sc with the flag-selected view state applied.
func (v *viewFlags) newLoop(sc *scene.Scene, session clock.Session, sink render.Sink) (*render.Loop, *render.Rasterizer, error) {
	p, err := v.params()
	if err != nil {
		return nil, nil, err
	}
	vp, err := v.viewport()
	if err != nil {
		return nil, nil, err
	}
	r, err := render.NewRenderer(p)
	if err != nil {
		return nil, nil, err
	}
	ras, err := cfg.Rasterizer()
	if err != nil {
		return nil, nil, err
	}
	l := render.NewLoop(r, session, vp, sink, render.LoadAsset(cfg.Resolve(cfg.Output.BackgroundPath)))
	l.SetScene(sc)
	l.SetFilter(render.ParseFilter(v.filter))
	l.ZoomAt(vp.Width/2, vp.Height/2, v.zoom)
	if v.selected != render.NoSelection {
		l.Select(v.selected)
	}
	return l, ras, nil
}

var (
	renderView   viewFlags
	renderOut    string
	renderStart  float64
	renderStep   float64
	renderFrames int
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Export animation frames as numbered PNG files",
	Long: `Replays the current scene on a synthetic clock and writes one PNG per
frame. Time is measured in frame units; --step controls how many units
separate consecutive frames. Bounded variants stop at their last frame.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := finiteFlag("start", renderStart); err != nil {
			return err
		}
		if err := finiteFlag("step", renderStep); err != nil {
			return err
		}
		if renderFrames <= 0 || renderStep <= 0 {
			return errors.Mark(errors.New("--frames and --step must be positive"), errors.ErrInvalidInput)
		}
		svc, closeFn, err := loadScene(cmd.Context(), renderView.noStore)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := os.MkdirAll(renderOut, 0o755); err != nil {
			return errors.Wrapf(err, "creating %s", renderOut)
		}

		var ras *render.Rasterizer
		written := 0
		sink := render.SinkFunc(func(ctx context.Context, f *render.Frame) error {
			var buf bytes.Buffer
			if err := ras.EncodePNG(&buf, f); err != nil {
				return err
			}
			path := filepath.Join(renderOut, fmt.Sprintf("frame_%05d.png", written))
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return errors.Wrapf(err, "writing %s", path)
			}
			written++
			return nil
		})

		session := clock.Session{ID: uuid.NewString(), Start: time.Unix(0, 0).UTC()}
		l, r, err := renderView.newLoop(svc.Current(), session, sink)
		if err != nil {
			return err
		}
		ras = r

		unit := l.Params().FrameUnit
		first := session.At(renderStart, unit)
		step := time.Duration(renderStep * float64(unit))

		var spinner *pterm.SpinnerPrinter
		if !logger.JSONOutput {
			spinner, _ = pterm.DefaultSpinner.Start(fmt.Sprintf("Rendering up to %d frames", renderFrames))
		}
		start := time.Now()
		n, err := l.Run(cmd.Context(), clock.Synthetic(cmd.Context(), first, step, renderFrames))
		if err != nil {
			if spinner != nil {
				spinner.Fail(err.Error())
			}
			return err
		}
		if spinner != nil {
			spinner.Success(fmt.Sprintf("Wrote %d frames to %s in %s", n, renderOut, time.Since(start).Round(time.Millisecond)))
		}
		return nil
	},
}

func init() {
	renderView.register(renderCmd)
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "frames", "Output directory")
	renderCmd.Flags().Float64Var(&renderStart, "start", 0, "Elapsed frame units of the first frame")
	renderCmd.Flags().Float64Var(&renderStep, "step", 1, "Frame units between frames")
	renderCmd.Flags().IntVar(&renderFrames, "frames", 200, "Maximum number of frames")
	rootCmd.AddCommand(renderCmd)
}
