package labscrub

import (
	"fmt"
	"time"

	"github.com/redactyl/labscrub/internal/metrics"
	"github.com/redactyl/labscrub/internal/retention"
	"github.com/redactyl/labscrub/internal/sanitize"
	"github.com/redactyl/labscrub/internal/server"
	"github.com/redactyl/labscrub/internal/store"
	"github.com/spf13/cobra"
)

// defaultMaxUpload bounds a whole multipart upload.
const defaultMaxUpload = 32 << 20

var (
	flagListen         string
	flagMaxUploadBytes int64
	flagServeOut       string
	flagServeStore     string
	flagServeSQLite    string
	flagRetention      time.Duration
	flagPruneSchedule  string
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /SanitizeLabOrder over HTTP",
		Long: `Serve accepts multipart uploads of .txt lab orders in the "labOrder" field and
writes each sanitized file to the store. /health and /metrics are served too.
With a retention window and prune schedule, old outputs are pruned on cron.`,
		RunE: runServe,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVar(&flagListen, "listen", "", "listen address (default :8080)")
	cmd.Flags().Int64Var(&flagMaxUploadBytes, "max-upload-bytes", 0, "largest accepted request body (default 32MiB)")
	cmd.Flags().StringVarP(&flagServeOut, "out", "o", "", "output directory for the file store (default .)")
	cmd.Flags().StringVar(&flagServeStore, "store", "", "output store: file|sqlite")
	cmd.Flags().StringVar(&flagServeSQLite, "sqlite-path", "", "SQLite database for --store sqlite")
	cmd.Flags().DurationVar(&flagRetention, "retention", 0, "delete stored outputs older than this (0 = keep)")
	cmd.Flags().StringVar(&flagPruneSchedule, "prune-schedule", "", `cron schedule for pruning, e.g. "0 3 * * *"`)

	_ = cmd.RegisterFlagCompletionFunc("store", completeWords(store.KindFile, store.KindSQLite))
	_ = cmd.RegisterFlagCompletionFunc("out", completeDirs)
}

func runServe(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(".")
	if err != nil {
		return err
	}
	log, err := s.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	st, err := s.openStore(flagServeStore, flagServeOut, flagServeSQLite)
	if err != nil {
		return err
	}
	defer st.Close()

	retain := flagRetention
	if retain == 0 {
		if retain, err = s.local.RetentionDuration(); err == nil && retain == 0 {
			retain, err = s.global.RetentionDuration()
		}
		if err != nil {
			return err
		}
	}
	maxUpload := pickInt64(flagMaxUploadBytes, s.local.MaxUploadBytes, s.global.MaxUploadBytes)
	if maxUpload == 0 {
		maxUpload = defaultMaxUpload
	}

	m := metrics.NewCollector(nil)
	srv := server.New(server.Config{
		Listen:         pickString(flagListen, s.local.Listen, s.global.Listen),
		MaxUploadBytes: maxUpload,
		ReadTimeout:    time.Minute,
		WriteTimeout:   time.Minute,
	}, server.Deps{
		Sink: st,
		Sanitizer: &sanitize.Sanitizer{
			MaxLineBytes: pickInt(0, s.local.MaxLineBytes, s.global.MaxLineBytes),
			Logger:       log,
		},
		Audit:   s.auditLog(),
		Metrics: m,
		Logger:  log,
	})

	sched := retention.NewScheduler(retention.Config{
		Retention: retain,
		Schedule:  pickString(flagPruneSchedule, s.local.PruneSchedule, s.global.PruneSchedule),
	}, st, m, log)
	if err := sched.Start(cmd.Context()); err != nil {
		return fmt.Errorf("retention: %w", err)
	}
	defer sched.Stop()

	return srv.Start(cmd.Context())
}
