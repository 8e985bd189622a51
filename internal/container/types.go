package container

import (
	"github.com/jakenelson/pydock/internal/model"
)

// RunOptions is the fully composed configuration for one container run.
// It is built once per invocation by the options package and never
// mutated afterwards.
type RunOptions struct {
	Image       string
	Command     string // shell string; empty means the image default (batch) or the shell default (interactive)
	Mounts      []model.Mount
	Env         []model.EnvVar
	Network     string
	Ports       []model.Port
	WorkDir     string
	MemoryLimit int64 // bytes, 0 means unlimited
	Remove      bool  // remove the container after the run
}

// binds renders the mount list as HOST:CONTAINER:MODE descriptors for the
// daemon's binds API.
func (o RunOptions) binds() []string {
	if len(o.Mounts) == 0 {
		return nil
	}
	binds := make([]string, 0, len(o.Mounts))
	for _, m := range o.Mounts {
		binds = append(binds, m.String())
	}
	return binds
}

// env renders the environment list as NAME=VALUE pairs.
func (o RunOptions) env() []string {
	if len(o.Env) == 0 {
		return nil
	}
	env := make([]string, 0, len(o.Env))
	for _, e := range o.Env {
		env = append(env, e.String())
	}
	return env
}
