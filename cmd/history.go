package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	historyJSON  bool
	historyLimit int
	historyPrune int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored scene generations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer db.Close()
		ctx := cmd.Context()

		if cmd.Flags().Changed("prune") {
			n, err := db.PruneScenes(ctx, historyPrune)
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Pruned %d generations, kept the newest %d", n, historyPrune)
		}

		gens, err := db.ListScenes(ctx, historyLimit)
		if err != nil {
			return err
		}

		if historyJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(gens)
		}
		if len(gens) == 0 {
			pterm.Info.Println("No generations stored yet. Run `resonance generate`.")
			return nil
		}

		data := pterm.TableData{{"ID", "Created", "Source", "Nodes", "Edges"}}
		for _, g := range gens {
			data = append(data, []string{
				fmt.Sprint(g.ID),
				g.Created().Local().Format(time.DateTime),
				g.Source,
				fmt.Sprint(g.NodeCount),
				fmt.Sprint(g.EdgeCount),
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum generations to list")
	historyCmd.Flags().IntVar(&historyPrune, "prune", 20, "Delete all but the newest N generations before listing")
	rootCmd.AddCommand(historyCmd)
}
