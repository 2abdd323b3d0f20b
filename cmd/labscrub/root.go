package labscrub

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagThreads         int
	flagNoColor         bool
	flagNoCache         bool
	flagDefaultExcludes bool
	flagLogLevel        string
	flagLogFormat       string
	flagAudit           string
	flagNoAudit         bool

	version = "0.1.0"
)

// errFindings makes Execute exit 1 without printing an error.
var errFindings = errors.New("findings at or above fail-on threshold")

// rootCmd is the base Cobra command for the labscrub CLI.
var rootCmd = &cobra.Command{
	Use:           "labscrub",
	Short:         "Redact PHI from lab orders",
	Long:          "labscrub removes protected health information (names, dates of birth, SSNs, phone numbers, emails, MRNs) from plain-text lab orders, from the command line, over HTTP or as an MCP tool.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the labscrub CLI. It should be called by the main package.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errFindings) {
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func init() {
	rootCmd.PersistentFlags().IntVar(&flagThreads, "threads", 0, "worker count (0 = GOMAXPROCS)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "disable the incremental batch cache")
	rootCmd.PersistentFlags().BoolVar(&flagDefaultExcludes, "default-excludes", true, "apply built-in exclude list (.git, node_modules, binaries, etc.)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: text|json")
	rootCmd.PersistentFlags().StringVar(&flagAudit, "audit", "", "audit log path (default .labscrub_audit.jsonl)")
	rootCmd.PersistentFlags().BoolVar(&flagNoAudit, "no-audit", false, "do not append to the audit log")

	_ = rootCmd.RegisterFlagCompletionFunc("log-level", completeWords("debug", "info", "warn", "error"))
	_ = rootCmd.RegisterFlagCompletionFunc("log-format", completeWords("text", "json"))
}
