package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tahomarobotics/koala/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadCollectorConfigOverlaysDefaults(t *testing.T) {
	testlog.Start(t)

	path := writeConfig(t, `
port = 3000
instance = "koala-pit"
year = 2025
mongo_uri = "mongodb://db.local:27017"
tba_auth_key = "abc123"
accept_pit = true
`)
	cfg, err := LoadCollectorConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 3000 {
		t.Fatalf("port = %d, want 3000", cfg.Port)
	}
	if cfg.Instance != "koala-pit" {
		t.Fatalf("instance = %q", cfg.Instance)
	}
	if !cfg.AcceptPit {
		t.Fatal("accept_pit not applied")
	}
	// Keys absent from the file keep defaults.
	def := DefaultCollectorConfig()
	if cfg.FilesDir != def.FilesDir {
		t.Fatalf("files_dir = %q, want default %q", cfg.FilesDir, def.FilesDir)
	}
	if !cfg.Advertise {
		t.Fatal("advertise default lost")
	}
	if cfg.HTTPAddr != def.HTTPAddr {
		t.Fatalf("http_addr = %q, want default %q", cfg.HTTPAddr, def.HTTPAddr)
	}
}

func TestLoadCollectorConfigFalseOverridesTrueDefault(t *testing.T) {
	testlog.Start(t)

	path := writeConfig(t, `advertise = false`)
	cfg, err := LoadCollectorConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Advertise {
		t.Fatal("advertise = false was not applied over the default")
	}
}

func TestLoadCollectorConfigRejectsBadValues(t *testing.T) {
	testlog.Start(t)

	cases := map[string]string{
		"port out of range": `port = 99999`,
		"empty mongo uri":   `mongo_uri = ""`,
		"ancient year":      `year = 1970`,
		"empty files dir":   `files_dir = ""`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadCollectorConfig(writeConfig(t, body)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadCollectorConfigMissingFile(t *testing.T) {
	testlog.Start(t)

	if _, err := LoadCollectorConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadClientConfigParsesDurations(t *testing.T) {
	testlog.Start(t)

	path := writeConfig(t, `
instance = "koala"
discovery_timeout = "10s"
connect_timeout = "1500ms"
`)
	cfg, err := LoadClientConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DiscoveryTimeout != 10*time.Second {
		t.Fatalf("discovery_timeout = %v", cfg.DiscoveryTimeout)
	}
	if cfg.ConnectTimeout != 1500*time.Millisecond {
		t.Fatalf("connect_timeout = %v", cfg.ConnectTimeout)
	}
}

func TestLoadClientConfigDirectAddr(t *testing.T) {
	testlog.Start(t)

	path := writeConfig(t, `
addr = "10.20.46.2"
port = 2046
`)
	cfg, err := LoadClientConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "10.20.46.2" || cfg.Port != 2046 {
		t.Fatalf("addr = %q port = %d", cfg.Addr, cfg.Port)
	}
}

func TestLoadClientConfigRejectsBadDuration(t *testing.T) {
	testlog.Start(t)

	path := writeConfig(t, `discovery_timeout = "soon"`)
	if _, err := LoadClientConfig(path); err == nil {
		t.Fatal("expected duration parse error")
	}
}
