// Package config holds the resource caps and the settings of sigmactl.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultMaxReprDepth  = 64
	DefaultMaxReprItems  = 4096
	DefaultMaxFrameBytes = 1 << 20
	// linear relation statements: matrix rows and committed values
	DefaultMaxRows        = 64
	DefaultMaxCommitments = 128

	DefaultListenAddr = "127.0.0.1:4433"
	DefaultSeed       = "sigmakit-demo"
)

type Config struct {
	MaxReprDepth  int    `json:"maxReprDepth"`
	MaxReprItems  int    `json:"maxReprItems"`
	MaxFrameBytes int    `json:"maxFrameBytes"`
	ListenAddr    string `json:"listenAddr"`
	MetricsAddr   string `json:"metricsAddr"`
	Seed          string `json:"seed"`
	ArchivePath   string `json:"archivePath"`
	Debug         bool   `json:"debug"`
}

// GetDefaultConfig returns the built-in defaults overridden by the
// SIGMA_* environment caps.
func GetDefaultConfig() *Config {
	return &Config{
		MaxReprDepth:  MaxReprDepth(),
		MaxReprItems:  MaxReprItems(),
		MaxFrameBytes: MaxFrameBytes(),
		ListenAddr:    DefaultListenAddr,
		Seed:          DefaultSeed,
		Debug:         os.Getenv("SIGMA_DEBUG") == "1",
	}
}

// Load overlays the JSON file at path on the defaults.
func Load(path string) (*Config, error) {
	conf := GetDefaultConfig()
	log.Debugf("ConfigPath=%s", path)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, conf); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}
	if err := conf.Verify(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) Verify() error {
	if c.MaxReprDepth <= 0 || c.MaxReprItems <= 0 || c.MaxFrameBytes <= 0 {
		return fmt.Errorf("caps must be positive")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("required listenAddr missing")
	}
	if c.Seed == "" {
		return fmt.Errorf("required seed missing")
	}
	return nil
}

func MaxReprDepth() int {
	return envCap("SIGMA_MAX_REPR_DEPTH", DefaultMaxReprDepth)
}

func MaxReprItems() int {
	return envCap("SIGMA_MAX_REPR_ITEMS", DefaultMaxReprItems)
}

func MaxFrameBytes() int {
	return envCap("SIGMA_MAX_FRAME_BYTES", DefaultMaxFrameBytes)
}

// MaxRows caps the relations of a linear statement.
func MaxRows() int {
	return envCap("SIGMA_ZK_MAX_ROWS", DefaultMaxRows)
}

// MaxCommitments caps the committed values of a linear statement.
func MaxCommitments() int {
	return envCap("SIGMA_ZK_MAX_COMMITMENTS", DefaultMaxCommitments)
}

func envCap(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
