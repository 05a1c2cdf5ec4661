package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeTempConfig(t, `{"path": "/srv/packages"}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path != "/srv/packages" {
		t.Fatalf("got path %q", cfg.Path)
	}
	if len(cfg.Endpoints) != 1 || cfg.Endpoints[0] != "http://localhost/" {
		t.Fatalf("got endpoints %v", cfg.Endpoints)
	}
	if len(cfg.Extensions) != 3 {
		t.Fatalf("got extensions %v", cfg.Extensions)
	}
	if cfg.Verbosity != "Log" {
		t.Fatalf("got verbosity %q", cfg.Verbosity)
	}
}

func TestLoadAcceptsIntegerVerbosity(t *testing.T) {
	path := writeTempConfig(t, `{"verbosity": 6}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Verbosity != "6" {
		t.Fatalf("got verbosity %q, want %q", cfg.Verbosity, "6")
	}
}

func TestLoadNormalizesEndpointsAndExtensions(t *testing.T) {
	path := writeTempConfig(t, `{
		"endpoints": ["http://0.0.0.0:4873", "http://0.0.0.0:4874/"],
		"extensions": ["TGZ", ".TAR.GZ"]
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	wantEndpoints := []string{"http://0.0.0.0:4873/", "http://0.0.0.0:4874/"}
	for i, e := range wantEndpoints {
		if cfg.Endpoints[i] != e {
			t.Fatalf("got endpoints %v, want %v", cfg.Endpoints, wantEndpoints)
		}
	}
	wantExtensions := []string{".tgz", ".tar.gz"}
	for i, e := range wantExtensions {
		if cfg.Extensions[i] != e {
			t.Fatalf("got extensions %v, want %v", cfg.Extensions, wantExtensions)
		}
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
