// Package options composes the final container run configuration from the
// resolved CLI and config inputs. Composition is pure: no I/O, no daemon
// calls, and no path validation, which belongs to the CLI layer.
package options

import (
	"path/filepath"

	"github.com/jakenelson/pydock/internal/container"
	"github.com/jakenelson/pydock/internal/model"
)

const (
	// DefaultSourceDir is the container path the source tree is mounted at.
	DefaultSourceDir = "/src"

	// DefaultPyPathDir is the container parent directory for auxiliary
	// python packages. PYTHONPATH is pointed at it on every run.
	DefaultPyPathDir = "/pypath"
)

// Options are the resolved inputs for one invocation.
type Options struct {
	Image     string
	SourceDir string // absolute host path of the source tree, pre-validated
	Command   string

	// PyPackages are host directories of auxiliary python packages. Each is
	// mounted read-only under PyPathDir using its base name.
	PyPackages []string

	ExtraMounts []model.Mount
	Env         []model.EnvVar
	Network     string
	Ports       []model.Port
	MemoryLimit int64
	Remove      bool

	// SourceTarget and PyPathDir override the fixed container paths.
	// Empty means the defaults above.
	SourceTarget string
	PyPathDir    string
}

// Compose assembles the final run options. The mount list is always, in
// order: the source mount, one read-only mount per auxiliary package, then
// the user's extra mounts. The environment always starts with PYTHONPATH
// derived from the package parent directory; a user-supplied PYTHONPATH is
// appended after it, not merged.
func (o Options) Compose() container.RunOptions {
	sourceTarget := o.SourceTarget
	if sourceTarget == "" {
		sourceTarget = DefaultSourceDir
	}
	pypathDir := o.PyPathDir
	if pypathDir == "" {
		pypathDir = DefaultPyPathDir
	}

	mounts := make([]model.Mount, 0, 1+len(o.PyPackages)+len(o.ExtraMounts))
	mounts = append(mounts, model.Mount{
		Source: o.SourceDir,
		Target: sourceTarget,
		Mode:   model.ReadWrite,
	})
	for _, pkg := range o.PyPackages {
		mounts = append(mounts, model.Mount{
			Source: pkg,
			Target: pypathDir + "/" + filepath.Base(filepath.Clean(pkg)),
			Mode:   model.ReadOnly,
		})
	}
	mounts = append(mounts, o.ExtraMounts...)

	env := make([]model.EnvVar, 0, 1+len(o.Env))
	env = append(env, model.EnvVar{Name: "PYTHONPATH", Value: pypathDir})
	env = append(env, o.Env...)

	return container.RunOptions{
		Image:       o.Image,
		Command:     o.Command,
		Mounts:      mounts,
		Env:         env,
		Network:     o.Network,
		Ports:       o.Ports,
		WorkDir:     sourceTarget,
		MemoryLimit: o.MemoryLimit,
		Remove:      o.Remove,
	}
}
