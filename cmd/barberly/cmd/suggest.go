package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSuggestCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "suggest <partial-query>",
		Short: "Autocomplete a partial query",
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

			suggestions, err := eng.Suggestions(strings.Join(args, " "), topK)
			if err != nil {
				return err
			}
			for _, s := range suggestions {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&topK, "top", 8, "Maximum suggestions to return")
	return cmd
}
