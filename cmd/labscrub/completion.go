package labscrub

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var flagCompletionNoDesc bool

func init() {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for your shell. Besides commands and flags it
completes store kinds, --fail-on severities, log settings and the rule ids
accepted by test-rule.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			desc := !flagCompletionNoDesc
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletionV2(w, desc)
			case "zsh":
				if desc {
					return rootCmd.GenZshCompletion(w)
				}
				return rootCmd.GenZshCompletionNoDesc(w)
			case "fish":
				return rootCmd.GenFishCompletion(w, desc)
			case "powershell":
				if desc {
					return rootCmd.GenPowerShellCompletionWithDesc(w)
				}
				return rootCmd.GenPowerShellCompletion(w)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
		Example: `  labscrub completion bash > /etc/bash_completion.d/labscrub
  labscrub completion zsh > "${fpath[1]}/_labscrub"
  labscrub completion fish > ~/.config/fish/completions/labscrub.fish`,
	}
	cmd.Flags().BoolVar(&flagCompletionNoDesc, "no-descriptions", false, "omit completion descriptions")
	rootCmd.AddCommand(cmd)
}

// completeWords completes a flag or argument from a fixed list.
func completeWords(words ...string) cobra.CompletionFunc {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		var out []cobra.Completion
		for _, w := range words {
			if strings.HasPrefix(w, toComplete) {
				out = append(out, w)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeDirs limits completion to directories, for --dir, --watch and --out.
func completeDirs(_ *cobra.Command, _ []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
	return nil, cobra.ShellCompDirectiveFilterDirs
}
