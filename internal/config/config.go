// Package config defines the pydock configuration file schema and its
// viper-backed loader.
package config

import (
	"fmt"
	"sort"

	"github.com/spf13/viper"

	"github.com/jakenelson/pydock/internal/model"
)

// Config represents the full configuration structure.
type Config struct {
	PythonPackages PythonPackagesConfig `mapstructure:"python_packages"`
	Source         SourceConfig         `mapstructure:"source"`
	Docker         DockerConfig         `mapstructure:"docker"`
}

// PythonPackagesConfig configures the auxiliary python package mounts.
type PythonPackagesConfig struct {
	// ContainerDirectory is the container parent directory the packages are
	// mounted under; PYTHONPATH points at it.
	ContainerDirectory string `mapstructure:"container_directory"`
	// Paths are host directories of python packages to mount read-only.
	Paths []string `mapstructure:"paths"`
}

// SourceConfig configures the main source mount.
type SourceConfig struct {
	ContainerDirectory string `mapstructure:"container_directory"`
}

// DockerConfig mirrors a docker-compose-like options section.
type DockerConfig struct {
	Environment  map[string]string `mapstructure:"environment"`
	Network      string            `mapstructure:"network"`
	Volumes      []string          `mapstructure:"volumes"` // HOST:CONTAINER[:MODE]
	Ports        []string          `mapstructure:"ports"`   // HOST:CONTAINER
	MemoryLimit  string            `mapstructure:"memory_limit"`
	DefaultShell string            `mapstructure:"default_shell"`
}

// Load loads configuration from viper with defaults applied.
func Load() *Config {
	setDefaults()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return defaultConfig()
	}
	return cfg
}

func setDefaults() {
	viper.SetDefault("python_packages.container_directory", "/pypath")
	viper.SetDefault("python_packages.paths", []string{})

	viper.SetDefault("source.container_directory", "/src")

	viper.SetDefault("docker.environment", map[string]string{})
	viper.SetDefault("docker.network", "")
	viper.SetDefault("docker.volumes", []string{})
	viper.SetDefault("docker.ports", []string{})
	viper.SetDefault("docker.memory_limit", "")
	viper.SetDefault("docker.default_shell", "/bin/bash")
}

func defaultConfig() *Config {
	return &Config{
		PythonPackages: PythonPackagesConfig{
			ContainerDirectory: "/pypath",
			Paths:              []string{},
		},
		Source: SourceConfig{
			ContainerDirectory: "/src",
		},
		Docker: DockerConfig{
			Environment:  map[string]string{},
			Volumes:      []string{},
			Ports:        []string{},
			DefaultShell: "/bin/bash",
		},
	}
}

// EnvVars converts the environment map into an ordered list, sorted by
// name so composition stays deterministic.
func (c *Config) EnvVars() []model.EnvVar {
	if len(c.Docker.Environment) == 0 {
		return nil
	}
	names := make([]string, 0, len(c.Docker.Environment))
	for name := range c.Docker.Environment {
		names = append(names, name)
	}
	sort.Strings(names)

	vars := make([]model.EnvVar, 0, len(names))
	for _, name := range names {
		vars = append(vars, model.EnvVar{Name: name, Value: c.Docker.Environment[name]})
	}
	return vars
}

// ExtraMounts parses the configured volume descriptors.
func (c *Config) ExtraMounts() ([]model.Mount, error) {
	if len(c.Docker.Volumes) == 0 {
		return nil, nil
	}
	mounts := make([]model.Mount, 0, len(c.Docker.Volumes))
	for _, v := range c.Docker.Volumes {
		m, err := model.ParseMount(v)
		if err != nil {
			return nil, fmt.Errorf("docker.volumes: %w", err)
		}
		mounts = append(mounts, m)
	}
	return mounts, nil
}

// PortMappings parses the configured port descriptors.
func (c *Config) PortMappings() ([]model.Port, error) {
	if len(c.Docker.Ports) == 0 {
		return nil, nil
	}
	ports := make([]model.Port, 0, len(c.Docker.Ports))
	for _, p := range c.Docker.Ports {
		port, err := model.ParsePort(p)
		if err != nil {
			return nil, fmt.Errorf("docker.ports: %w", err)
		}
		ports = append(ports, port)
	}
	return ports, nil
}
