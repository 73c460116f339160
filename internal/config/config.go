// Package config loads the YAML file describing a demultiplexer run: the
// frame layout ccsds.NewConfig needs, plus the ambient listen-address and
// logging settings the cmd/ccsdsdemux binary wires up around it.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ienorand/cosmos-ccsds-transfer-frames/ccsds"
)

// FrameConfig mirrors the six positional arguments of ccsds.NewConfig as
// YAML fields.
type FrameConfig struct {
	FrameLength           int  `yaml:"frame_length"`
	SecondaryHeaderLength int  `yaml:"secondary_header_length"`
	HasOCF                bool `yaml:"has_ocf"`
	HasFECF               bool `yaml:"has_fecf"`
	PrefixPackets         bool `yaml:"prefix_packets"`
	IncludeIdlePackets    bool `yaml:"include_idle_packets"`
}

// LogConfig configures the rotating file logger (internal/logging).
type LogConfig struct {
	Directory  string `yaml:"directory"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

// ServerConfig holds the listen_addr setting (Load defaults it to ":8080").
// ccsdsdemux serve does not read it; the server listens on the port given
// by serve's --port flag.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level shape of a config.yaml file.
type Config struct {
	Frame  FrameConfig  `yaml:"frame"`
	Server ServerConfig `yaml:"server"`
	Logs   LogConfig    `yaml:"logs"`

	// Dictionary optionally maps APIDs to human-readable packet names, used
	// for the name field of server/server.go's stream messages and the
	// per-APID summary printed by extract.
	Dictionary map[int]string `yaml:"dictionary"`
}

// Load reads a config.yaml file, filling in conservative defaults for the
// server and log settings left unset. It does not check the frame layout;
// CCSDSConfig does that.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Logs.Directory == "" {
		cfg.Logs.Directory = "log"
	}
	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = 10
	}
	if cfg.Logs.MaxAgeDays <= 0 {
		cfg.Logs.MaxAgeDays = 28
	}
	if cfg.Logs.MaxBackups <= 0 {
		cfg.Logs.MaxBackups = 5
	}

	return cfg, nil
}

// CCSDSConfig builds a validated ccsds.Config from the frame section.
func (c Config) CCSDSConfig() (ccsds.Config, error) {
	return ccsds.NewConfig(
		c.Frame.FrameLength,
		c.Frame.SecondaryHeaderLength,
		c.Frame.HasOCF,
		c.Frame.HasFECF,
		c.Frame.PrefixPackets,
		c.Frame.IncludeIdlePackets,
	)
}
