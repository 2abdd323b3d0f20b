package labscrub

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/redactyl/labscrub/internal/cache"
	"github.com/redactyl/labscrub/internal/engine"
	"github.com/redactyl/labscrub/internal/report"
	"github.com/redactyl/labscrub/internal/types"
	"github.com/spf13/cobra"
)

// DefaultBaseline is the baseline file scan reads unless --baseline is set.
const DefaultBaseline = "labscrub.baseline.json"

var (
	flagPath           string
	flagJSON           bool
	flagSARIF          bool
	flagText           bool
	flagFailOn         string
	flagBaseline       string
	flagUpdateBaseline bool
	flagLast           bool
	flagScanInclude    string
	flagScanExclude    string
	flagScanMaxBytes   int64
)

func init() {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Report PHI in lab order files without changing them",
		Long: `Scan reports every value sanitize would redact, with its rule, location and a
masked preview. Findings recorded in the baseline are not reported. The exit
code is 1 when a finding is at or above --fail-on.`,
		RunE: runScan,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&flagPath, "path", "p", ".", "path to scan")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "emit JSON")
	cmd.Flags().BoolVar(&flagSARIF, "sarif", false, "emit SARIF 2.1.0")
	cmd.Flags().BoolVar(&flagText, "text", false, "output in plain text columnar format")
	cmd.Flags().StringVar(&flagFailOn, "fail-on", "medium", "fail on low|medium|high")
	cmd.Flags().StringVar(&flagBaseline, "baseline", DefaultBaseline, "baseline file of accepted findings")
	cmd.Flags().BoolVar(&flagUpdateBaseline, "update-baseline", false, "accept all current findings into the baseline")
	cmd.Flags().BoolVar(&flagLast, "last", false, "print the results of the previous scan instead of scanning")
	cmd.Flags().StringVar(&flagScanInclude, "include", "", "comma-separated include globs (default **/*.txt)")
	cmd.Flags().StringVar(&flagScanExclude, "exclude", "", "comma-separated exclude globs")
	cmd.Flags().Int64Var(&flagScanMaxBytes, "max-bytes", 0, "skip files larger than this (0 = no limit)")

	_ = cmd.RegisterFlagCompletionFunc("fail-on", completeWords("low", "medium", "high"))
	_ = cmd.RegisterFlagCompletionFunc("path", completeDirs)
}

func runScan(cmd *cobra.Command, _ []string) error {
	abs, err := filepath.Abs(flagPath)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", flagPath, err)
	}
	s, err := loadSettings(abs)
	if err != nil {
		return err
	}
	noColor := pickBool(flagNoColor, s.local.NoColor, s.global.NoColor) || !report.ColorEnabled(cmd.OutOrStdout())

	if flagLast {
		last, err := cache.LoadLastScan(abs)
		if err != nil {
			return fmt.Errorf("no previous scan under %s: %w", abs, err)
		}
		if last.Stale(engine.RulesFingerprint()) {
			warnf("Previous scan of %s used different rules; run scan again for current results.", abs)
		}
		return render(cmd, last.Findings, report.PrintOptions{NoColor: noColor, FilesScanned: last.FilesScanned})
	}

	log, err := s.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	include := pickString(flagScanInclude, s.local.Include, s.global.Include)
	if include == "" {
		include = "**/*.txt"
	}
	cfg := engine.Config{
		Root:            abs,
		IncludeGlobs:    include,
		ExcludeGlobs:    pickString(flagScanExclude, s.local.Exclude, s.global.Exclude),
		MaxBytes:        pickInt64(flagScanMaxBytes, s.local.MaxBytes, s.global.MaxBytes),
		Threads:         pickInt(flagThreads, s.local.Threads, s.global.Threads),
		DefaultExcludes: defaultExcludes(cmd, s),
		Logger:          log,
	}

	machine := flagJSON || flagSARIF
	total, _ := engine.CountTargets(cfg)
	if !machine {
		warnf("Scanning %s (%d files)...", abs, total)
	}
	showProgress := total > 0 && !machine && report.ColorEnabled(os.Stderr)
	if showProgress {
		var done atomic.Int64
		cfg.Progress = func() {
			n := done.Add(1)
			if n%10 == 0 || int(n) == total {
				_, _ = fmt.Fprintf(os.Stderr, "\r[%d/%d] %.0f%%", n, total, float64(n)/float64(total)*100)
			}
		}
	}
	res, err := engine.ScanWithStats(cmd.Context(), cfg)
	if showProgress {
		_, _ = fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return fmt.Errorf("scan error: %w", err)
	}
	if err := cache.SaveLastScan(abs, engine.RulesFingerprint(), res.FilesScanned, res.Findings); err != nil {
		log.Warn("last scan results not saved", "error", err)
	}

	if flagUpdateBaseline {
		if err := report.SaveBaseline(flagBaseline, res.Findings); err != nil {
			return err
		}
		warnf("Baseline updated with %d findings: %s", len(res.Findings), flagBaseline)
		return nil
	}

	baseline, _ := report.LoadBaseline(flagBaseline)
	newFindings := report.FilterNewFindings(res.Findings, baseline)
	if newFindings == nil {
		newFindings = []types.Finding{}
	}

	if flagSARIF {
		stats := map[string]int{"files_scanned": res.FilesScanned, "findings_total": len(res.Findings), "findings_new": len(newFindings)}
		if err := report.WriteSARIFWithStats(cmd.OutOrStdout(), newFindings, stats); err != nil {
			return fmt.Errorf("sarif error: %w", err)
		}
	} else if err := render(cmd, newFindings, report.PrintOptions{NoColor: noColor, Duration: res.Duration, FilesScanned: res.FilesScanned}); err != nil {
		return err
	}

	if report.ShouldFail(newFindings, flagFailOn) {
		return errFindings
	}
	return nil
}

func render(cmd *cobra.Command, findings []types.Finding, opts report.PrintOptions) error {
	w := cmd.OutOrStdout()
	switch {
	case flagJSON:
		return report.PrintJSON(w, findings)
	case flagSARIF:
		return report.WriteSARIF(w, findings)
	case flagText:
		report.PrintText(w, findings, opts)
	default:
		report.PrintTable(w, findings, opts)
	}
	return nil
}

