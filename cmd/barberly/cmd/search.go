package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/barberly/search/internal/search"
)

func newSearchCmd() *cobra.Command {
	var (
		topK       int
		locationID string
		role       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a ranked search over the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			eng, cleanup, err := buildEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			var qctx *search.QueryContext
			if locationID != "" || role != "" {
				qctx = &search.QueryContext{LocationID: locationID, Role: role}
			}

			resp, err := eng.AdvancedSearch(cmd.Context(), strings.Join(args, " "), topK, qctx)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			printResults(cmd, resp)
			return nil
		},
	}

	cmd.Flags().IntVar(&topK, "top", 10, "Maximum results to return")
	cmd.Flags().StringVar(&locationID, "location", "", "Boost results at this location id")
	cmd.Flags().StringVar(&role, "role", "", "Caller role for affinity boosting")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the full response as JSON")
	return cmd
}

func printResults(cmd *cobra.Command, resp *search.Response) {
	out := cmd.OutOrStdout()

	if len(resp.Results) == 0 {
		fmt.Fprintln(out, "No results.")
	}
	for i, r := range resp.Results {
		fmt.Fprintf(out, "%2d. %-8s %-30s %.4f\n", i+1, r.EntityKind, r.Title, r.FinalScore)
		for _, b := range r.BoostFactors {
			fmt.Fprintf(out, "    boost %s x%.2f\n", b.Name, b.Multiplier)
		}
	}
	for _, d := range resp.Degraded {
		fmt.Fprintf(out, "degraded: %s (%s)\n", d.Source, d.Reason)
	}
}
