package labscrub

import (
	"fmt"
	"runtime/debug"

	semver "github.com/blang/semver/v4"
	"github.com/redactyl/labscrub/internal/report"
	"github.com/spf13/cobra"
)

func init() {
	report.ToolVersion = version
	rootCmd.Version = version
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the labscrub version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := parseVersion(version)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "labscrub v%s", v)
			if rev := vcsRevision(); rev != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " (%s)", rev)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	})
}

// parseVersion accepts versions with or without a leading "v".
func parseVersion(v string) (semver.Version, error) {
	ver, err := semver.ParseTolerant(v)
	if err != nil {
		return semver.Version{}, fmt.Errorf("invalid version %q: %w", v, err)
	}
	return ver, nil
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return ""
}
