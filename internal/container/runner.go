// Package container creates and supervises the ephemeral dev containers:
// pre-flight validation, create/start, output streaming or interactive
// attach, and best-effort removal on every exit path.
package container

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	containertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/strslice"
	"mvdan.cc/sh/v3/shell"

	"github.com/jakenelson/pydock/internal/model"
	"github.com/jakenelson/pydock/internal/pty"
)

// DefaultShellCommand is the command used for interactive sessions when
// none is given.
const DefaultShellCommand = "/bin/bash"

// AttachFunc hands an interactive terminal session to a created container
// and blocks until the session ends.
type AttachFunc func(ctx context.Context, cli Client, containerID string) error

// Runner owns the single container created for one Run or RunShell call.
// It is not safe for concurrent use; each invocation of the tool performs
// exactly one run.
type Runner struct {
	client Client
	attach AttachFunc
}

// NewRunner creates a Runner over the given Docker API client.
func NewRunner(cli Client) *Runner {
	return &Runner{
		client: cli,
		attach: func(ctx context.Context, c Client, containerID string) error {
			return pty.Attach(ctx, c, containerID)
		},
	}
}

// Run validates the requested image and network, creates and starts a
// detached container, and returns a stream of its combined stdout and
// stderr. The stream ends when the container stops and is not restartable.
// Closing the stream, or reading it to its end, removes the container when
// opts.Remove is set; removal happens exactly once.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (io.ReadCloser, error) {
	cmd, err := splitCommand(opts.Command)
	if err != nil {
		return nil, err
	}
	if err := r.validate(ctx, opts); err != nil {
		return nil, err
	}

	id, err := r.create(ctx, opts, cmd, false)
	if err != nil {
		return nil, fmt.Errorf("unable to run container: %w", err)
	}
	log.Info("created container", "id", shortID(id))

	if err := r.client.ContainerStart(ctx, id, containertypes.StartOptions{}); err != nil {
		if opts.Remove {
			r.remove(id)
		}
		return nil, fmt.Errorf("unable to run container: %w", err)
	}

	logs, err := r.client.ContainerLogs(ctx, id, containertypes.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		if opts.Remove {
			r.remove(id)
		}
		return nil, fmt.Errorf("error while running command: %w", err)
	}

	return newLogStream(r, id, logs, opts.Remove), nil
}

// RunShell validates the requested image and network, creates a container
// with an allocated TTY and open stdin, and attaches the local terminal to
// it until the remote shell exits. The container is removed afterwards
// when opts.Remove is set, regardless of how the session ended.
func (r *Runner) RunShell(ctx context.Context, opts RunOptions) error {
	command := opts.Command
	if command == "" {
		command = DefaultShellCommand
	}
	cmd, err := splitCommand(command)
	if err != nil {
		return err
	}
	if err := r.validate(ctx, opts); err != nil {
		return err
	}

	id, err := r.create(ctx, opts, cmd, true)
	if err != nil {
		return fmt.Errorf("unable to create container: %w", err)
	}
	log.Info("created container", "id", shortID(id))

	if opts.Remove {
		defer r.remove(id)
	}

	if err := r.attach(ctx, r.client, id); err != nil {
		return fmt.Errorf("unable to start a PTY session: %w", err)
	}
	return nil
}

// validate fails fast before anything is created. No create or start call
// is ever issued for an invalid image or network.
func (r *Runner) validate(ctx context.Context, opts RunOptions) error {
	if !ImageExists(ctx, r.client, opts.Image) {
		return fmt.Errorf("%w: %q", ErrInvalidImage, opts.Image)
	}
	if opts.Network != "" && !NetworkExists(ctx, r.client, opts.Network) {
		return fmt.Errorf("%w: %q", ErrInvalidNetwork, opts.Network)
	}
	return nil
}

func (r *Runner) create(ctx context.Context, opts RunOptions, cmd []string, interactive bool) (string, error) {
	exposed, bindings := model.PortBindings(opts.Ports)

	config := &containertypes.Config{
		Image:        opts.Image,
		Cmd:          strslice.StrSlice(cmd),
		Env:          opts.env(),
		WorkingDir:   opts.WorkDir,
		ExposedPorts: exposed,
		Tty:          interactive,
		OpenStdin:    interactive,
	}
	hostConfig := &containertypes.HostConfig{
		Binds:        opts.binds(),
		NetworkMode:  containertypes.NetworkMode(opts.Network),
		PortBindings: bindings,
		Resources: containertypes.Resources{
			Memory: opts.MemoryLimit,
		},
	}

	resp, err := r.client.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// remove is best-effort housekeeping: by the time it runs the primary
// operation has already succeeded or failed on its own terms, so a removal
// failure is logged and swallowed.
func (r *Runner) remove(id string) {
	// Background context so removal still runs after an interrupt
	// cancelled the invocation's context.
	if err := r.client.ContainerRemove(context.Background(), id, containertypes.RemoveOptions{Force: true}); err != nil {
		log.Warn("failed to remove container", "id", shortID(id), "error", err)
		return
	}
	log.Info("removed container", "id", shortID(id))
}

// splitCommand splits a shell command string into an argument vector. An
// empty command yields nil, leaving the image's default in place.
func splitCommand(command string) ([]string, error) {
	if command == "" {
		return nil, nil
	}
	fields, err := shell.Fields(command, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid command %q: %w", command, err)
	}
	return fields, nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
