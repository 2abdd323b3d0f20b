package labscrub

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/redactyl/labscrub/internal/detectors"
	"github.com/redactyl/labscrub/internal/redact"
	"github.com/spf13/cobra"
)

var flagRulesIDs bool

func init() {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List known-key labels and pattern rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if flagRulesIDs {
				for _, id := range detectors.IDs() {
					fmt.Fprintln(w, id)
				}
				return nil
			}
			fmt.Fprintln(w, "Known-key labels (value after the first colon is redacted):")
			for _, k := range redact.Keys() {
				fmt.Fprintf(w, "  %s\n", k)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Pattern rules, applied in order:")
			table := tablewriter.NewWriter(w)
			table.Header([]string{"RULE", "SEVERITY", "DESCRIPTION", "PATTERN"})
			for _, r := range redact.Rules() {
				if err := table.Append([]string{r.Name, string(r.Severity), r.Description, r.Pattern.String()}); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
	cmd.Flags().BoolVar(&flagRulesIDs, "ids", false, "print only finding rule IDs, one per line")
	rootCmd.AddCommand(cmd)
}
