package cli

import (
	"os"

	"github.com/lazypower/freqdirs/internal/hooks"
	"github.com/spf13/cobra"
)

var (
	initMode string
	initExe  string
)

var initCmd = &cobra.Command{
	Use:   "init <shell>",
	Short: "Print shell integration that records directory changes",
	Long: "Print a hook for bash, zsh or fish that runs `freqdirs update` (or `save` with --mode save) " +
		"whenever the working directory changes. Add `eval \"$(freqdirs init bash)\"` to your shell rc.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: hooks.Shells(),
	RunE: func(cmd *cobra.Command, args []string) error {
		exe := initExe
		if exe == "" {
			if p, err := os.Executable(); err == nil {
				exe = p
			}
		}
		return hooks.Render(cmd.OutOrStdout(), args[0], hooks.Options{
			Exe:  exe,
			Mode: hooks.Mode(initMode),
		})
	},
}

func init() {
	initCmd.Flags().StringVar(&initMode, "mode", string(hooks.ModeUpdate), "store operation to run on cd: update or save")
	initCmd.Flags().StringVar(&initExe, "exe", "", "freqdirs binary to call (default: this executable)")
}
