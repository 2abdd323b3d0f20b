package labscrub

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/redactyl/labscrub/internal/detectors"
	"github.com/redactyl/labscrub/internal/report"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "test-rule <id>",
		Short: "Run one detection rule against text on stdin",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return completeWords(detectors.FunctionIDs()...)(cmd, args, toComplete)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if !slices.Contains(detectors.FunctionIDs(), id) {
				return fmt.Errorf("unknown rule id %q (available: %s)", id, strings.Join(detectors.FunctionIDs(), ", "))
			}
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			fs := detectors.RunFunction(id, "stdin", data)
			report.PrintTable(cmd.OutOrStdout(), fs, report.PrintOptions{NoColor: true})
			return nil
		},
	}
	cmd.Long = "Available rules: " + strings.Join(detectors.FunctionIDs(), ", ")
	rootCmd.AddCommand(cmd)
}
