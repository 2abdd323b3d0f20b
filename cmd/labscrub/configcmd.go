package labscrub

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/redactyl/labscrub/internal/config"
	"github.com/redactyl/labscrub/internal/files"
	"github.com/redactyl/labscrub/internal/ignore"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	cfgOutput    string
	cfgForce     bool
	cfgGitignore bool
)

func init() {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	rootCmd.AddCommand(cfgCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter .labscrub.yml and ignore entries",
		RunE:  runConfigInit,
	}
	cfgCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&cfgOutput, "output", config.LocalNames[0], "output file path")
	initCmd.Flags().BoolVar(&cfgForce, "force", false, "overwrite an existing file")
	initCmd.Flags().BoolVar(&cfgGitignore, "gitignore", true, "add labscrub state files to .gitignore")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the merged local and global configuration",
		RunE:  runConfigShow,
	}
	cfgCmd.AddCommand(showCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(cfgOutput); err == nil && !cfgForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgOutput)
	}
	if err := os.WriteFile(cfgOutput, []byte(config.Starter), 0o644); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Wrote", cfgOutput)

	root := filepath.Dir(cfgOutput)
	for _, p := range files.GeneratedOutputs() {
		if err := files.AppendIgnore(root, ignore.FileName, p); err != nil {
			return err
		}
	}
	if cfgGitignore {
		for _, p := range files.StateFiles() {
			if err := files.AppendIgnore(root, ".gitignore", p); err != nil {
				return err
			}
		}
	}
	return nil
}

// runConfigShow prints the effective file configuration. Local values win
// over global ones field by field.
func runConfigShow(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(".")
	if err != nil {
		return err
	}
	merged := mergeConfig(s.local, s.global)
	return yaml.NewEncoder(cmd.OutOrStdout()).Encode(&merged)
}

func mergeConfig(local, global config.FileConfig) config.FileConfig {
	out := global
	lb, _ := yaml.Marshal(&local)
	_ = yaml.Unmarshal(lb, &out)
	return out
}
