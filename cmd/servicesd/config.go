package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/tangle-network/tangle-sub001/app/telemetry"
)

const (
	envPrefix      = "SERVICES"
	configFileName = "servicesd.toml"
)

// Config is the servicesd process configuration.
type Config struct {
	Home      string
	LogLevel  string
	LogFormat string
	Telemetry telemetry.Config
}

// defaultHome is ~/.servicesd, or the working directory when no home exists.
func defaultHome() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".servicesd")
	}
	return "."
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("home", defaultHome())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.sample-rate", 0.1)
	v.SetDefault("telemetry.prometheus", false)
	v.SetDefault("telemetry.environment", "local")
	v.SetDefault("telemetry.chain-id", "")
}

// LoadConfig merges defaults, <home>/servicesd.toml and SERVICES_* environment
// variables. A missing config file is not an error.
func LoadConfig(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	home := v.GetString("home")
	path := filepath.Join(home, configFileName)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigType("toml")
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	sampleRate, err := cast.ToFloat64E(v.Get("telemetry.sample-rate"))
	if err != nil {
		return Config{}, fmt.Errorf("telemetry.sample-rate: %w", err)
	}
	enabled, err := cast.ToBoolE(v.Get("telemetry.enabled"))
	if err != nil {
		return Config{}, fmt.Errorf("telemetry.enabled: %w", err)
	}
	prom, err := cast.ToBoolE(v.Get("telemetry.prometheus"))
	if err != nil {
		return Config{}, fmt.Errorf("telemetry.prometheus: %w", err)
	}

	cfg := Config{
		Home:      home,
		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),
		Telemetry: telemetry.Config{
			Enabled:           enabled,
			Endpoint:          v.GetString("telemetry.endpoint"),
			SampleRate:        sampleRate,
			Environment:       v.GetString("telemetry.environment"),
			ChainID:           v.GetString("telemetry.chain-id"),
			PrometheusEnabled: prom,
		},
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "plain" {
		return Config{}, fmt.Errorf("log.format must be json or plain, got %q", cfg.LogFormat)
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("log.level: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the process logger on zerolog.
func (c Config) NewLogger(out io.Writer) log.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var zl zerolog.Logger
	if c.LogFormat == "plain" {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: out, NoColor: true})
	} else {
		zl = zerolog.New(out)
	}
	zl = zl.Level(level).With().Timestamp().Str("component", "servicesd").Logger()
	return log.NewCustomLogger(zl)
}
