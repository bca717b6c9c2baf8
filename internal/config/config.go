// Package config loads the TOML runtime configuration for the koalad
// collector and the koalactl field client.
//
// Ownership boundary: this package only produces validated config values.
// It never opens sockets or touches the database.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tahomarobotics/koala/internal/discovery"
)

// CollectorConfig drives a koalad instance.
type CollectorConfig struct {
	BindAddr    string
	Port        int
	Advertise   bool
	Instance    string
	Description string
	AcceptPit   bool

	Year     int
	MongoURI string

	FilesDir string

	TBAAuthKey string

	HTTPAddr    string
	CorsOrigins []string
}

// ClientConfig drives a koalactl invocation.
type ClientConfig struct {
	Instance         string
	DiscoveryTimeout time.Duration
	ConnectTimeout   time.Duration

	// Addr and Port bypass discovery when Addr is set.
	Addr string
	Port int
}

func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		BindAddr:    "",
		Port:        2046,
		Advertise:   true,
		Instance:    discovery.DefaultInstance,
		Description: discovery.DefaultDescription,
		AcceptPit:   false,
		Year:        time.Now().Year(),
		MongoURI:    "mongodb://localhost:27017",
		FilesDir:    "files",
		HTTPAddr:    ":8080",
	}
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Instance:         discovery.DefaultInstance,
		DiscoveryTimeout: 5 * time.Second,
		ConnectTimeout:   5 * time.Second,
		Port:             2046,
	}
}

// collectorFile is the koalad.toml key mapping.
type collectorFile struct {
	BindAddr    string   `toml:"bind_addr"`
	Port        int      `toml:"port"`
	Advertise   bool     `toml:"advertise"`
	Instance    string   `toml:"instance"`
	Description string   `toml:"description"`
	AcceptPit   bool     `toml:"accept_pit"`
	Year        int      `toml:"year"`
	MongoURI    string   `toml:"mongo_uri"`
	FilesDir    string   `toml:"files_dir"`
	TBAAuthKey  string   `toml:"tba_auth_key"`
	HTTPAddr    string   `toml:"http_addr"`
	CorsOrigins []string `toml:"cors_origins"`
}

// clientFile is the koalactl.toml key mapping.
type clientFile struct {
	Instance         string `toml:"instance"`
	DiscoveryTimeout string `toml:"discovery_timeout"`
	ConnectTimeout   string `toml:"connect_timeout"`
	Addr             string `toml:"addr"`
	Port             int    `toml:"port"`
}

// LoadCollectorConfig overlays koalad.toml onto the defaults. Keys absent
// from the file keep their default values.
func LoadCollectorConfig(path string) (CollectorConfig, error) {
	cfg := DefaultCollectorConfig()

	var raw collectorFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return CollectorConfig{}, fmt.Errorf("load collector config: %w", err)
	}

	if meta.IsDefined("bind_addr") {
		cfg.BindAddr = strings.TrimSpace(raw.BindAddr)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("advertise") {
		cfg.Advertise = raw.Advertise
	}
	if meta.IsDefined("instance") {
		cfg.Instance = strings.TrimSpace(raw.Instance)
	}
	if meta.IsDefined("description") {
		cfg.Description = strings.TrimSpace(raw.Description)
	}
	if meta.IsDefined("accept_pit") {
		cfg.AcceptPit = raw.AcceptPit
	}
	if meta.IsDefined("year") {
		cfg.Year = raw.Year
	}
	if meta.IsDefined("mongo_uri") {
		cfg.MongoURI = strings.TrimSpace(raw.MongoURI)
	}
	if meta.IsDefined("files_dir") {
		cfg.FilesDir = strings.TrimSpace(raw.FilesDir)
	}
	if meta.IsDefined("tba_auth_key") {
		cfg.TBAAuthKey = strings.TrimSpace(raw.TBAAuthKey)
	}
	if meta.IsDefined("http_addr") {
		cfg.HTTPAddr = strings.TrimSpace(raw.HTTPAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}

	if err := validateCollector(cfg); err != nil {
		return CollectorConfig{}, err
	}
	return cfg, nil
}

// LoadClientConfig overlays koalactl.toml onto the defaults.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	var raw clientFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("load client config: %w", err)
	}

	if meta.IsDefined("instance") {
		cfg.Instance = strings.TrimSpace(raw.Instance)
	}
	if meta.IsDefined("discovery_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.DiscoveryTimeout))
		if err != nil {
			return ClientConfig{}, fmt.Errorf("load client config: discovery_timeout: %w", err)
		}
		cfg.DiscoveryTimeout = d
	}
	if meta.IsDefined("connect_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ConnectTimeout))
		if err != nil {
			return ClientConfig{}, fmt.Errorf("load client config: connect_timeout: %w", err)
		}
		cfg.ConnectTimeout = d
	}
	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}

	if err := validateClient(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func validateCollector(cfg CollectorConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("load collector config: port %d out of range", cfg.Port)
	}
	if cfg.Advertise && cfg.Instance == "" {
		return fmt.Errorf("load collector config: instance is required when advertise is enabled")
	}
	if cfg.Year < 1992 {
		return fmt.Errorf("load collector config: year %d predates the first season", cfg.Year)
	}
	if cfg.MongoURI == "" {
		return fmt.Errorf("load collector config: mongo_uri is required")
	}
	if cfg.FilesDir == "" {
		return fmt.Errorf("load collector config: files_dir is required")
	}
	return nil
}

func validateClient(cfg ClientConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("load client config: port %d out of range", cfg.Port)
	}
	if cfg.Addr == "" && cfg.Instance == "" {
		return fmt.Errorf("load client config: either addr or instance is required")
	}
	if cfg.DiscoveryTimeout <= 0 {
		return fmt.Errorf("load client config: discovery_timeout must be positive")
	}
	if cfg.ConnectTimeout <= 0 {
		return fmt.Errorf("load client config: connect_timeout must be positive")
	}
	return nil
}
