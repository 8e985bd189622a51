package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jakenelson/pydock/internal/container"
)

// Command identifies an orchestrator operation. The set is closed: it is
// fixed at compile time and not user-extensible.
type Command int

const (
	CommandRun Command = iota + 1
	CommandShell
)

func (c Command) String() string {
	switch c {
	case CommandRun:
		return "run"
	case CommandShell:
		return "shell"
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// ErrNotRegistered indicates a command identifier with no dispatch table
// entry. Hitting it is a programmer error: extending the Command set
// requires adding a matching entry in NewDispatcher.
var ErrNotRegistered = errors.New("command is not registered with the dispatcher")

// orchestrator is the slice of the container runner the dispatcher drives.
type orchestrator interface {
	Run(ctx context.Context, opts container.RunOptions) (io.ReadCloser, error)
	RunShell(ctx context.Context, opts container.RunOptions) error
}

// Dispatcher maps the closed command set onto orchestrator operations.
type Dispatcher struct {
	runner orchestrator
	out    io.Writer
	table  map[Command]func(context.Context, container.RunOptions) error
}

// NewDispatcher builds a dispatcher over the runner. Batch output is
// written to out.
func NewDispatcher(runner orchestrator, out io.Writer) *Dispatcher {
	d := &Dispatcher{runner: runner, out: out}
	d.table = map[Command]func(context.Context, container.RunOptions) error{
		CommandRun:   d.run,
		CommandShell: d.shell,
	}
	return d
}

// Dispatch invokes the operation registered for the command. An
// unregistered command returns ErrNotRegistered without touching the
// runner.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command, opts container.RunOptions) error {
	fn, ok := d.table[cmd]
	if !ok {
		return fmt.Errorf("%w: %v", ErrNotRegistered, cmd)
	}
	return fn(ctx, opts)
}

// run executes a batch run and copies the container's combined output to
// the dispatcher's writer as it arrives.
func (d *Dispatcher) run(ctx context.Context, opts container.RunOptions) error {
	stream, err := d.runner.Run(ctx, opts)
	if err != nil {
		return err
	}
	defer stream.Close()

	_, err = io.Copy(d.out, stream)
	return err
}

func (d *Dispatcher) shell(ctx context.Context, opts container.RunOptions) error {
	return d.runner.RunShell(ctx, opts)
}
