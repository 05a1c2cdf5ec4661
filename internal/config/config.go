// Package config loads the server's startup configuration from a JSON file
// using viper: SetConfigFile, ReadInConfig, then Unmarshal into a typed
// struct.
package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the full set of startup settings. Every field has a default so
// an empty or partial config file still produces a runnable server.
type Config struct {
	// Endpoints are URL prefixes the HTTP dispatcher listens on, each
	// auto-suffixed with "/" if missing.
	Endpoints []string `mapstructure:"endpoints"`
	// Path is the packages directory scanned for tarballs.
	Path string `mapstructure:"path"`
	// Extensions lists candidate file extensions, case-insensitive, each
	// normalized to include its leading dot.
	Extensions []string `mapstructure:"extensions"`
	// Verbosity is the startup log level, either a name ("Log", "Debug", ...)
	// or an integer 0-6 (see internal/logging). It is decoded weakly so a
	// bare JSON number unmarshals into this string field as its decimal
	// form, which logging.ParseLevel also accepts.
	Verbosity string `mapstructure:"verbosity"`
}

func defaults() Config {
	return Config{
		Endpoints:  []string{"http://localhost/"},
		Path:       ".",
		Extensions: []string{".tgz", ".tar.gz", ".taz"},
		Verbosity:  "Log",
	}
}

// Load reads path (defaulting to "./config.json" if empty) and returns a
// Config with unset fields filled from defaults(). A missing or unreadable
// file is reported as an error, wrapping whatever viper reports.
func Load(path string) (Config, error) {
	if path == "" {
		path = "./config.json"
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	d := defaults()
	v.SetDefault("endpoints", d.Endpoints)
	v.SetDefault("path", d.Path)
	v.SetDefault("extensions", d.Extensions)
	v.SetDefault("verbosity", d.Verbosity)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	decodeWeakly := func(c *mapstructure.DecoderConfig) { c.WeaklyTypedInput = true }
	if err := v.Unmarshal(&cfg, decodeWeakly); err != nil {
		return Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}

	cfg.Endpoints = normalizeEndpoints(cfg.Endpoints)
	cfg.Extensions = normalizeExtensions(cfg.Extensions)
	return cfg, nil
}

func normalizeEndpoints(endpoints []string) []string {
	out := make([]string, len(endpoints))
	for i, e := range endpoints {
		if !strings.HasSuffix(e, "/") {
			e += "/"
		}
		out[i] = e
	}
	return out
}

func normalizeExtensions(extensions []string) []string {
	out := make([]string, len(extensions))
	for i, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[i] = ext
	}
	return out
}
