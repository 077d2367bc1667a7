package cmd

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"fivem/resonance/internal/clock"
	"fivem/resonance/internal/render"
	"fivem/resonance/internal/scene"
)

var (
	frameView viewFlags
	frameOut  string
	frameT    float64
)

var frameCmd = &cobra.Command{
	Use:   "frame",
	Short: "Render a single frame of the current scene to PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := finiteFlag("time", frameT); err != nil {
			return err
		}
		svc, closeFn, err := loadScene(cmd.Context(), frameView.noStore)
		if err != nil {
			return err
		}
		defer closeFn()

		var f *render.Frame
		capture := render.SinkFunc(func(_ context.Context, fr *render.Frame) error {
			f = fr
			return nil
		})
		session := clock.Session{ID: uuid.NewString(), Start: time.Unix(0, 0).UTC()}
		l, ras, err := frameView.newLoop(svc.Current(), session, capture)
		if err != nil {
			return err
		}
		at := session.At(frameT, l.Params().FrameUnit)
		if _, err := l.Run(cmd.Context(), clock.Synthetic(cmd.Context(), at, time.Second, 1)); err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := ras.EncodePNG(&buf, f); err != nil {
			return err
		}
		if err := scene.ReplaceFile(frameOut, buf.Bytes()); err != nil {
			return err
		}
		pterm.Success.Printfln("Wrote frame t=%.1f (%d markers) to %s", f.T, len(f.Markers), frameOut)
		return nil
	},
}

func init() {
	frameView.register(frameCmd)
	frameCmd.Flags().StringVarP(&frameOut, "out", "o", "frame.png", "Output PNG path")
	frameCmd.Flags().Float64VarP(&frameT, "time", "t", 1000, "Elapsed frame units")
	rootCmd.AddCommand(frameCmd)
}
