package cmd

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	generateInput    string
	generateGifts    string
	generateSeed     uint64
	generateNoLines  bool
	generateNoPoster bool
	generateNoStore  bool
	generateJSON     bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the scene from the survey table",
	Long: `Reads the survey table (and the gift table, if configured), places every
respondent, assigns appearance delays by category, links respondents closer
than the edge threshold and writes the scene JSON, the static poster and a new
stored generation. A failed run leaves the previous scene in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if generateInput != "" {
			cfg.Input.SurveyPath = generateInput
		}
		if generateGifts != "" {
			cfg.Input.GiftsPath = generateGifts
		}
		if cmd.Flags().Changed("seed") {
			cfg.Generator.Seed = generateSeed
		}
		if generateNoLines {
			cfg.Generator.ShowLines = false
		}
		if generateNoPoster {
			cfg.Output.Poster = false
		}

		svc, _, closeFn, err := openService(generateNoStore)
		if err != nil {
			return err
		}
		defer closeFn()

		start := time.Now()
		g, err := svc.Regenerate(cmd.Context())
		if err != nil {
			return err
		}

		if generateJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(g)
		}

		pterm.Success.Printfln("Generated scene %d: %s respondents, %s lines in %s",
			g.ID,
			pterm.Green(g.NodeCount),
			pterm.Green(g.EdgeCount),
			time.Since(start).Round(time.Millisecond))
		pterm.Printfln("  scene:  %s", cfg.Resolve(cfg.Output.ScenePath))
		if cfg.Output.Poster {
			pterm.Printfln("  poster: %s", cfg.Resolve(cfg.Output.PosterPath))
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateInput, "input", "i", "", "Survey CSV (overrides input.survey_path)")
	generateCmd.Flags().StringVar(&generateGifts, "gifts", "", "Gift CSV (overrides input.gifts_path)")
	generateCmd.Flags().Uint64Var(&generateSeed, "seed", 0, "Placement seed (overrides generator.seed)")
	generateCmd.Flags().BoolVar(&generateNoLines, "no-lines", false, "Do not generate proximity lines")
	generateCmd.Flags().BoolVar(&generateNoPoster, "no-poster", false, "Skip the static poster")
	generateCmd.Flags().BoolVar(&generateNoStore, "no-store", false, "Do not record the generation in the database")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "Output generation metadata as JSON")
	rootCmd.AddCommand(generateCmd)
}
