package labscrub

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/redactyl/labscrub/internal/audit"
	"github.com/spf13/cobra"
)

var (
	flagAuditJSON  bool
	flagAuditLimit int
)

func init() {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the sanitize audit trail, newest first",
		RunE:  runAudit,
	}
	cmd.Flags().BoolVar(&flagAuditJSON, "json", false, "emit JSON")
	cmd.Flags().IntVar(&flagAuditLimit, "limit", 20, "show at most this many records (0 = all)")
	rootCmd.AddCommand(cmd)
}

func runAudit(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(".")
	if err != nil {
		return err
	}
	al := audit.NewAuditLog(pickString(flagAudit, s.local.Audit, s.global.Audit))
	records, err := al.LoadHistory()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if flagAuditLimit > 0 && len(records) > flagAuditLimit {
		records = records[:flagAuditLimit]
	}

	w := cmd.OutOrStdout()
	if flagAuditJSON {
		if records == nil {
			records = []audit.Record{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	if len(records) == 0 {
		fmt.Fprintf(w, "No audit records in %s\n", al.Path())
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"TIME", "SOURCE", "INPUT", "OUTPUT", "LINES", "REDACTIONS", "STATUS"})
	for _, r := range records {
		status := r.Status
		if r.Error != "" {
			status += ": " + r.Error
		}
		row := []string{
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			r.Source,
			r.Input,
			r.Output,
			strconv.Itoa(r.Lines),
			strconv.Itoa(r.Redactions),
			status,
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
