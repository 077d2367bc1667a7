package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	categoriesJSON    bool
	categoriesNoStore bool
)

type categoryRow struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Count int    `json:"count"`
	Known bool   `json:"known"`
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the category table with node counts from the current scene",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := loadScene(cmd.Context(), categoriesNoStore)
		if err != nil {
			return err
		}
		defer closeFn()

		table := svc.Palette()
		counts := svc.Current().CategoryCounts()
		rows := make([]categoryRow, 0, len(counts))
		for _, c := range table.Categories() {
			rows = append(rows, categoryRow{Label: c.Label, Color: c.Color, Count: counts[c.Label], Known: true})
		}
		var unknown []string
		for label := range counts {
			if !table.Known(label) {
				unknown = append(unknown, label)
			}
		}
		sort.Strings(unknown)
		for _, label := range unknown {
			rows = append(rows, categoryRow{Label: label, Color: table.Color(label), Count: counts[label]})
		}

		if categoriesJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		data := pterm.TableData{{"Category", "Color", "Nodes"}}
		for _, r := range rows {
			label := r.Label
			if !r.Known {
				label += " (unlisted)"
			}
			data = append(data, []string{label, r.Color, fmt.Sprint(r.Count)})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func init() {
	categoriesCmd.Flags().BoolVar(&categoriesJSON, "json", false, "Output as JSON")
	categoriesCmd.Flags().BoolVar(&categoriesNoStore, "no-store", false, "Read the scene artifact instead of the database")
	rootCmd.AddCommand(categoriesCmd)
}
