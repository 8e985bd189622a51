package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(shellCmd)

	shellCmd.Flags().StringP("command", "c", "", "command that spawns the shell (default from config, normally /bin/bash)")
}

var shellCmd = &cobra.Command{
	Use:   "shell IMAGE [DIR]",
	Short: "Create a container and spawn an interactive shell in it",
	Long: `Create a container from IMAGE with an allocated pseudo-terminal and
attach the local terminal to it until the shell exits. DIR is the source
directory to mount at the container's source path and defaults to the
current directory.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		command, _ := cmd.Flags().GetString("command")
		if command == "" {
			command = cfg.Docker.DefaultShell
		}

		opts, err := buildOptions(cmd, args[0], command, dirArg(args, 1))
		if err != nil {
			return err
		}
		return dispatchCommand(CommandShell, opts)
	},
}
