// Package config loads forge.toml and applies environment-variable
// overrides in that precedence order: defaults, then forge.toml, then
// FORGE_*-prefixed env vars (§6.6). CLI flags are not handled here;
// callers apply them on top of the returned Config.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/oleiade/reflections"
	"github.com/pkg/errors"
)

// Config is the top-level forge.toml document.
type Config struct {
	CacheDir            string  `toml:"cache_dir"`
	CacheMaxBytes        int64  `toml:"cache_max_bytes"`
	BuildTimeoutSeconds  int    `toml:"build_timeout_seconds"`
	BuildConcurrency     int    `toml:"build_concurrency"`
	BinaryThreshold      int    `toml:"binary_threshold"`
	CostBenefitRatio     float64 `toml:"cost_benefit_ratio"`
	Optimization         string `toml:"optimization"`
	OutputDir            string `toml:"output_dir"`
	ReportingEndpoint    string `toml:"reporting_endpoint"`
	ZigPath              string `toml:"zig_path"`
	LogLevel             string `toml:"log_level"`
}

// Default returns the builtin defaults, applied before forge.toml.
func Default() Config {
	return Config{
		CacheMaxBytes:       1 << 30,
		BuildTimeoutSeconds: 300,
		BinaryThreshold:     5,
		CostBenefitRatio:    2.0,
		Optimization:        "auto",
		OutputDir:           "./dist",
		LogLevel:            "info",
	}
}

// Load reads path (if it exists) over Default(), then applies FORGE_*
// environment overrides. A missing file is not an error: defaults plus
// env overrides are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, errors.Wrapf(err, "config: failed to parse %s", path)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, errors.Wrapf(err, "config: failed to stat %s", path)
		}
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvOverrides walks cfg's fields by name via oleiade/reflections
// and, for each, checks FORGE_<UPPER_SNAKE_FIELD> in the environment,
// converting the string value to the field's type.
func applyEnvOverrides(cfg *Config) error {
	fields, err := reflections.Fields(cfg)
	if err != nil {
		return errors.Wrap(err, "config: failed to enumerate fields")
	}
	for _, field := range fields {
		envKey := "FORGE_" + toSnake(field)
		raw, ok := os.LookupEnv(envKey)
		if !ok {
			continue
		}
		kind, err := reflections.GetFieldKind(cfg, field)
		if err != nil {
			return errors.Wrapf(err, "config: failed to inspect field %s", field)
		}
		var value interface{}
		switch kind.String() {
		case "int", "int64":
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "config: %s must be an integer", envKey)
			}
			if kind.String() == "int" {
				value = int(n)
			} else {
				value = n
			}
		case "float64":
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return errors.Wrapf(err, "config: %s must be a float", envKey)
			}
			value = f
		case "bool":
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return errors.Wrapf(err, "config: %s must be a bool", envKey)
			}
			value = b
		default:
			value = raw
		}
		if err := reflections.SetField(cfg, field, value); err != nil {
			return errors.Wrapf(err, "config: failed to set field %s from %s", field, envKey)
		}
	}
	return nil
}

func toSnake(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}
