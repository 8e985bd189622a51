// Package pty attaches the local terminal to a created container for the
// duration of an interactive shell session.
package pty

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/docker/docker/api/types"
	containertypes "github.com/docker/docker/api/types/container"
	"github.com/moby/term"
)

// Client is the slice of the Docker API client the attach session needs.
type Client interface {
	ContainerAttach(ctx context.Context, containerID string, options containertypes.AttachOptions) (types.HijackedResponse, error)
	ContainerStart(ctx context.Context, containerID string, options containertypes.StartOptions) error
	ContainerResize(ctx context.Context, containerID string, options containertypes.ResizeOptions) error
}

// Attach starts the container and takes over the process's terminal until
// the remote shell exits: stdin is copied to the container, container
// output to stdout, with the local terminal in raw mode and its size
// mirrored to the container on SIGWINCH. The terminal is restored before
// returning on every path.
func Attach(ctx context.Context, cli Client, containerID string) error {
	resp, err := cli.ContainerAttach(ctx, containerID, containertypes.AttachOptions{
		Stream: true,
		Stdin:  true,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		return fmt.Errorf("failed to attach to container: %w", err)
	}
	defer resp.Close()

	if err := cli.ContainerStart(ctx, containerID, containertypes.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}

	if term.IsTerminal(os.Stdin.Fd()) {
		state, err := term.SetRawTerminal(os.Stdin.Fd())
		if err != nil {
			return fmt.Errorf("failed to set raw terminal: %w", err)
		}
		defer term.RestoreTerminal(os.Stdin.Fd(), state)

		resize(ctx, cli, containerID)
		go monitorSize(ctx, cli, containerID)
	}

	outputDone := make(chan error, 1)
	go func() {
		_, err := io.Copy(os.Stdout, resp.Reader)
		outputDone <- err
	}()
	go func() {
		io.Copy(resp.Conn, os.Stdin)
		resp.CloseWrite()
	}()

	select {
	case err := <-outputDone:
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("error streaming session: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// resize mirrors the local terminal size to the container TTY.
func resize(ctx context.Context, cli Client, containerID string) {
	winsize, err := term.GetWinsize(os.Stdout.Fd())
	if err != nil {
		return
	}
	cli.ContainerResize(ctx, containerID, containertypes.ResizeOptions{
		Height: uint(winsize.Height),
		Width:  uint(winsize.Width),
	})
}

// monitorSize re-applies the terminal size on every SIGWINCH.
func monitorSize(ctx context.Context, cli Client, containerID string) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-sigCh:
			resize(ctx, cli, containerID)
		case <-ctx.Done():
			return
		}
	}
}
