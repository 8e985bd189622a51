// Package model holds the immutable value types shared by the option
// composer and the container runner: bind mounts, environment variables
// and port mappings.
package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
)

// Mode is the access mode of a bind mount.
type Mode int

const (
	// ReadWrite is the default mount mode.
	ReadWrite Mode = iota
	ReadOnly
)

// ParseMode parses a mount mode descriptor ("ro" or "rw", case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "rw":
		return ReadWrite, nil
	case "ro":
		return ReadOnly, nil
	}
	return ReadWrite, fmt.Errorf("invalid mount mode %q: must be one of ro, rw", s)
}

// String returns the wire form used in Docker bind descriptors.
func (m Mode) String() string {
	if m == ReadOnly {
		return "ro"
	}
	return "rw"
}

// Mount binds a host path to a path inside the container.
type Mount struct {
	Source string // host path
	Target string // container path
	Mode   Mode
}

// ParseMount parses a HOST:CONTAINER or HOST:CONTAINER:MODE descriptor.
// The mode defaults to read-write when omitted.
func ParseMount(s string) (Mount, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 2:
		return Mount{Source: parts[0], Target: parts[1]}, nil
	case 3:
		mode, err := ParseMode(parts[2])
		if err != nil {
			return Mount{}, fmt.Errorf("invalid mount %q: %w", s, err)
		}
		return Mount{Source: parts[0], Target: parts[1], Mode: mode}, nil
	}
	return Mount{}, fmt.Errorf("invalid mount %q: must be in the form HOST:CONTAINER[:MODE]", s)
}

// String renders the HOST:CONTAINER:MODE descriptor consumed by the
// daemon's binds API.
func (m Mount) String() string {
	return m.Source + ":" + m.Target + ":" + m.Mode.String()
}

// EnvVar is a single container environment variable. Uniqueness is not
// enforced here; duplicates resolve last-wins at the daemon.
type EnvVar struct {
	Name  string
	Value string
}

// ParseEnvVar parses a NAME=VALUE pair. The value may itself contain "=".
func ParseEnvVar(s string) (EnvVar, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return EnvVar{}, fmt.Errorf("invalid environment variable %q: must be in the form NAME=VALUE", s)
	}
	return EnvVar{Name: name, Value: value}, nil
}

func (e EnvVar) String() string {
	return e.Name + "=" + e.Value
}

// Port maps a container port to a host port.
type Port struct {
	Container int
	Host      int
}

// ParsePort parses a HOST:CONTAINER descriptor, following the docker CLI
// publish convention.
func ParsePort(s string) (Port, error) {
	hostStr, containerStr, ok := strings.Cut(s, ":")
	if !ok {
		return Port{}, fmt.Errorf("invalid port mapping %q: must be in the form HOST:CONTAINER", s)
	}
	host, err := strconv.Atoi(hostStr)
	if err != nil || host <= 0 || host > 65535 {
		return Port{}, fmt.Errorf("invalid host port %q", hostStr)
	}
	container, err := strconv.Atoi(containerStr)
	if err != nil || container <= 0 || container > 65535 {
		return Port{}, fmt.Errorf("invalid container port %q", containerStr)
	}
	return Port{Container: container, Host: host}, nil
}

// PortBindings converts a port list into the daemon's exposed-port set and
// binding map. The binding map is keyed by container port with the host
// port as the bound value; the daemon's convention inverts the natural
// host:container reading order and must not be "fixed" here.
func PortBindings(ports []Port) (nat.PortSet, nat.PortMap) {
	if len(ports) == 0 {
		return nil, nil
	}
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, p := range ports {
		port := nat.Port(strconv.Itoa(p.Container) + "/tcp")
		exposed[port] = struct{}{}
		bindings[port] = append(bindings[port], nat.PortBinding{
			HostPort: strconv.Itoa(p.Host),
		})
	}
	return exposed, bindings
}
