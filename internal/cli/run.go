package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/docker/docker/client"
	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/jakenelson/pydock/internal/container"
	"github.com/jakenelson/pydock/internal/model"
	"github.com/jakenelson/pydock/internal/options"
	"github.com/jakenelson/pydock/internal/pathutil"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run IMAGE COMMAND [DIR]",
	Short: "Create a container and run a command",
	Long: `Create a container from IMAGE and run COMMAND in it, streaming the
container's combined output to stdout. DIR is the source directory to mount
at the container's source path and defaults to the current directory.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := buildOptions(cmd, args[0], args[1], dirArg(args, 2))
		if err != nil {
			return err
		}
		return dispatchCommand(CommandRun, opts)
	},
}

// dirArg returns the positional directory argument or the default ".".
func dirArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return "."
}

// buildOptions resolves flags and config into the composed run options.
// Path expansion and validation happen here; composition itself is pure.
func buildOptions(cmd *cobra.Command, image, command, dir string) (container.RunOptions, error) {
	var none container.RunOptions

	sourceDir, err := pathutil.ExpandDir(dir)
	if err != nil {
		return none, err
	}

	// CLI package flags replace, not extend, the configured paths.
	pyPaths, _ := cmd.Flags().GetStringArray("py-package")
	if len(pyPaths) == 0 {
		pyPaths = cfg.PythonPackages.Paths
	}
	pyPackages := make([]string, 0, len(pyPaths))
	for _, p := range pyPaths {
		expanded, err := pathutil.ExpandDir(p)
		if err != nil {
			return none, err
		}
		if !pathutil.IsPythonPackage(expanded) {
			return none, fmt.Errorf("path %q is not a valid python package: missing expected __init__.py file", expanded)
		}
		pyPackages = append(pyPackages, expanded)
	}

	extraMounts, err := cfg.ExtraMounts()
	if err != nil {
		return none, err
	}
	flagMounts, _ := cmd.Flags().GetStringArray("mount")
	for _, m := range flagMounts {
		mount, err := model.ParseMount(m)
		if err != nil {
			return none, err
		}
		expanded, err := pathutil.ExpandDir(mount.Source)
		if err != nil {
			return none, err
		}
		mount.Source = expanded
		extraMounts = append(extraMounts, mount)
	}

	env := cfg.EnvVars()
	flagEnv, _ := cmd.Flags().GetStringArray("env")
	for _, e := range flagEnv {
		v, err := model.ParseEnvVar(e)
		if err != nil {
			return none, err
		}
		env = append(env, v)
	}

	ports, err := cfg.PortMappings()
	if err != nil {
		return none, err
	}
	flagPorts, _ := cmd.Flags().GetStringArray("publish")
	for _, p := range flagPorts {
		port, err := model.ParsePort(p)
		if err != nil {
			return none, err
		}
		ports = append(ports, port)
	}

	network, _ := cmd.Flags().GetString("network")
	if network == "" {
		network = cfg.Docker.Network
	}

	memory, _ := cmd.Flags().GetString("memory")
	if memory == "" {
		memory = cfg.Docker.MemoryLimit
	}
	var memoryLimit int64
	if memory != "" {
		memoryLimit, err = units.RAMInBytes(memory)
		if err != nil {
			return none, fmt.Errorf("invalid memory limit %q: %w", memory, err)
		}
	}

	keep, _ := cmd.Flags().GetBool("keep")

	return options.Options{
		Image:        image,
		SourceDir:    sourceDir,
		Command:      command,
		PyPackages:   pyPackages,
		ExtraMounts:  extraMounts,
		Env:          env,
		Network:      network,
		Ports:        ports,
		MemoryLimit:  memoryLimit,
		Remove:       !keep,
		SourceTarget: cfg.Source.ContainerDirectory,
		PyPathDir:    cfg.PythonPackages.ContainerDirectory,
	}.Compose(), nil
}

// dispatchCommand connects to the daemon and hands the composed options to
// the dispatcher, with an interrupt cancelling the invocation's context so
// cleanup still runs.
func dispatchCommand(command Command, opts container.RunOptions) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return fmt.Errorf("failed to create Docker client: %w", err)
	}
	defer cli.Close()

	runner := container.NewRunner(cli)
	return NewDispatcher(runner, os.Stdout).Dispatch(ctx, command, opts)
}
