package cmd

import (
	"encoding/json"
	"fmt"

	summaryadapter "github.com/bnema/datagen/internal/adapters/render/summary"
	"github.com/bnema/datagen/internal/domain"
	"github.com/spf13/cobra"
)

func newHistoryCmd(app *app) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded generation runs, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var runs []domain.RunSummary
			if len(args) == 1 {
				run, err := app.history.Get(cmd.Context(), domain.RunID(args[0]))
				if err != nil {
					return err
				}
				runs = []domain.RunSummary{run}
			} else {
				recent, err := app.history.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				runs = recent
			}

			if asJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(runs)
			}

			rendered, err := app.historyRenderer(runs, summaryadapter.RenderOptions{Now: app.clock.Now()})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of runs to show (0: all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}
