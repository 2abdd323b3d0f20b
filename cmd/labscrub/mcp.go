package labscrub

import (
	"os"

	"github.com/redactyl/labscrub/internal/mcpserver"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run an MCP server on stdio exposing the sanitize_text tool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(".")
			if err != nil {
				return err
			}
			// stdout carries the protocol, so logs go to stderr only
			log, err := s.logger(os.Stderr)
			if err != nil {
				return err
			}
			return mcpserver.ServeStdio(mcpserver.New(mcpserver.Options{
				Version: version,
				Audit:   s.auditLog(),
				Logger:  log,
			}))
		},
	}
	rootCmd.AddCommand(cmd)
}
