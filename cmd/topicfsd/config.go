// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/topicfs/topicfs/lib/fserrors"
)

// Config is the full set of startup parameters for topicfsd. Every
// field may come from the YAML file named by --config, and every
// field may be overridden by a flag of the same name in kebab-case —
// flags win over file values, file values win over the defaults
// returned by defaultConfig.
type Config struct {
	Host        string        `yaml:"host"`
	Port        uint16        `yaml:"port"`
	Keepalive   time.Duration `yaml:"keepalive"`
	Holdback    time.Duration `yaml:"holdback"`
	Mountpoint  string        `yaml:"mountpoint"`
	AdminSocket string        `yaml:"admin_socket"`
	LogFormat   string        `yaml:"log_format"`
}

func defaultConfig() Config {
	return Config{
		Host:      "127.0.0.1",
		Port:      1883,
		Keepalive: 60 * time.Second,
		Holdback:  0,
		LogFormat: "text",
	}
}

// rawYAMLConfig mirrors Config but with durations as plain integers
// (keepalive in whole seconds, holdback in milliseconds) since that is
// the unit spec.md's configuration table specifies for a file value.
type rawYAMLConfig struct {
	Host        string `yaml:"host"`
	Port        uint16 `yaml:"port"`
	Keepalive   uint16 `yaml:"keepalive"`
	Holdback    uint32 `yaml:"holdback"`
	Mountpoint  string `yaml:"mountpoint"`
	AdminSocket string `yaml:"admin_socket"`
	LogFormat   string `yaml:"log_format"`
}

// loadConfig builds the final Config from defaults, an optional YAML
// file, and command-line flags bound to fs, in that precedence order.
// fs must already have Parse called on it.
func loadConfig(fs *pflag.FlagSet, configPath string) (Config, error) {
	cfg := defaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return Config{}, fserrors.New(fserrors.IoProtocol, "reading config %s: %v", configPath, err)
		}
		var raw rawYAMLConfig
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fserrors.New(fserrors.InvalidArgument, "parsing config %s: %v", configPath, err)
		}
		applyYAML(&cfg, raw)
	}

	applyFlagOverrides(&cfg, fs)

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyYAML(cfg *Config, raw rawYAMLConfig) {
	if raw.Host != "" {
		cfg.Host = raw.Host
	}
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if raw.Keepalive != 0 {
		cfg.Keepalive = time.Duration(raw.Keepalive) * time.Second
	}
	cfg.Holdback = time.Duration(raw.Holdback) * time.Millisecond
	if raw.Mountpoint != "" {
		cfg.Mountpoint = raw.Mountpoint
	}
	if raw.AdminSocket != "" {
		cfg.AdminSocket = raw.AdminSocket
	}
	if raw.LogFormat != "" {
		cfg.LogFormat = raw.LogFormat
	}
}

// applyFlagOverrides copies fs's current flag values into cfg, but
// only for flags the user actually set — an unset flag must not
// clobber a value that came from the YAML file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) {
	if fs.Changed("host") {
		cfg.Host, _ = fs.GetString("host")
	}
	if fs.Changed("port") {
		port, _ := fs.GetUint16("port")
		cfg.Port = port
	}
	if fs.Changed("keepalive") {
		seconds, _ := fs.GetUint16("keepalive")
		cfg.Keepalive = time.Duration(seconds) * time.Second
	}
	if fs.Changed("holdback") {
		ms, _ := fs.GetUint32("holdback")
		cfg.Holdback = time.Duration(ms) * time.Millisecond
	}
	if fs.Changed("mountpoint") {
		cfg.Mountpoint, _ = fs.GetString("mountpoint")
	}
	if fs.Changed("admin-socket") {
		cfg.AdminSocket, _ = fs.GetString("admin-socket")
	}
	if fs.Changed("log-format") {
		cfg.LogFormat, _ = fs.GetString("log-format")
	}
}

// validateConfig enforces the domain bounds spec.md's configuration
// table specifies. A zero Config never reaches here valid, since
// Mountpoint has no default and must come from the file or a flag.
func validateConfig(cfg Config) error {
	if cfg.Mountpoint == "" {
		return fserrors.New(fserrors.InvalidArgument, "mountpoint is required")
	}
	if cfg.Port == 0 {
		return fserrors.New(fserrors.InvalidArgument, "port must be between 1 and 65535")
	}
	if cfg.Keepalive <= 0 || cfg.Keepalive > 65535*time.Second {
		return fserrors.New(fserrors.InvalidArgument, "keepalive must be between 1 and 65535 seconds")
	}
	if cfg.Holdback < 0 {
		return fserrors.New(fserrors.InvalidArgument, "holdback must not be negative")
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fserrors.New(fserrors.InvalidArgument, "log-format must be \"text\" or \"json\", got %q", cfg.LogFormat)
	}
	return nil
}

// registerFlags binds every Config field to fs with the defaults
// returned by defaultConfig, so a flag left unset still has a sane
// value even when no config file is given.
func registerFlags(fs *pflag.FlagSet) {
	d := defaultConfig()
	fs.String("host", d.Host, "broker address")
	fs.Uint16("port", d.Port, "broker port")
	fs.Uint16("keepalive", uint16(d.Keepalive/time.Second), "CONNECT keepalive / PING cadence, in seconds")
	fs.Uint32("holdback", uint32(d.Holdback/time.Millisecond), "outbound publish delay, in milliseconds")
	fs.String("mountpoint", "", "directory to mount the filesystem on (required)")
	fs.String("admin-socket", d.AdminSocket, "optional Unix socket path for the administrative protocol")
	fs.String("log-format", d.LogFormat, "log output format: text or json")
}

func exitCodeFor(err error) int {
	fe, ok := err.(*fserrors.Error)
	if !ok {
		return 1
	}
	switch fe.Kind {
	case fserrors.InvalidArgument:
		return int(invalidArgumentExitCode)
	case fserrors.NoMemory:
		return int(noMemoryExitCode)
	case fserrors.IoProtocol:
		return int(ioErrorExitCode)
	default:
		return 1
	}
}

// Exit codes derived from the standard invalid-argument/no-memory/IO
// errno values, per spec.md §6's "non-zero exit code derived from the
// standard invalid-argument errno" requirement.
const (
	invalidArgumentExitCode = 22 // EINVAL
	noMemoryExitCode        = 12 // ENOMEM
	ioErrorExitCode         = 5  // EIO
)
