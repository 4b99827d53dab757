// Package config loads service settings from SKYTRACK_* environment
// variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when read from the environment.
const EnvPrefix = "SKYTRACK"

// DefaultObjects are tracked at startup when default_objects is unset.
var DefaultObjects = []string{
	"ISS (ZARYA)",
	"CALSPHERE 2",
	"LAGEOS 1",
	"TDRS 5",
	"POLAR",
	"CUBESAT XI-IV (CO-57)",
	"GAOFEN-14 02",
}

// Config is the resolved service configuration.
type Config struct {
	HTTPAddr    string
	AuthEnabled bool
	AuthToken   string

	StoreBackend string // memory or sqlite
	StorePath    string

	TLESourceURL string
	TLECacheTTL  time.Duration

	TrailStep       time.Duration
	TrailRefresh    time.Duration
	TrailMaxSamples int
	TrailRadius     float64

	PositionInterval time.Duration
	FrameRate        int

	StreamMaxConcurrent int
	StreamKeepalive     time.Duration
	TrustProxy          bool

	DefaultObjects []string

	PropWorkers   int
	PropCacheSize int

	LogLevel string
	LogFile  string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("auth_enabled", false)
	v.SetDefault("auth_token", "")
	v.SetDefault("store_backend", "sqlite")
	v.SetDefault("store_path", "/tmp/skytrack/cache.db")
	v.SetDefault("tle_source_url", "https://celestrak.org/NORAD/elements/gp.php")
	v.SetDefault("tle_cache_ttl", "6h")
	v.SetDefault("trail_step", "5s")
	v.SetDefault("trail_refresh", "5s")
	v.SetDefault("trail_max_samples", 2000)
	v.SetDefault("trail_radius", 1.04)
	v.SetDefault("position_interval", "1s")
	v.SetDefault("frame_rate", 60)
	v.SetDefault("stream_max_concurrent", 10)
	v.SetDefault("stream_keepalive", "30s")
	v.SetDefault("trust_proxy", false)
	v.SetDefault("default_objects", strings.Join(DefaultObjects, ","))
	v.SetDefault("prop_workers", runtime.NumCPU())
	v.SetDefault("prop_cache_size", 256)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
}

// Load reads the environment and, when file is non-empty, the config file
// at that path. Invalid values are logged and replaced by their default;
// only a missing auth token with auth enabled or an unreadable file fail.
func Load(file string, logger *slog.Logger) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	l := loader{v: v, logger: logger}
	cfg := Config{
		HTTPAddr:    l.str("http_addr"),
		AuthEnabled: l.boolean("auth_enabled"),
		AuthToken:   v.GetString("auth_token"),

		StoreBackend: l.oneOf("store_backend", "memory", "sqlite"),
		StorePath:    l.str("store_path"),

		TLESourceURL: l.str("tle_source_url"),
		TLECacheTTL:  l.duration("tle_cache_ttl"),

		TrailStep:       l.duration("trail_step"),
		TrailRefresh:    l.duration("trail_refresh"),
		TrailMaxSamples: l.positiveInt("trail_max_samples"),
		TrailRadius:     l.positiveFloat("trail_radius"),

		PositionInterval: l.duration("position_interval"),
		FrameRate:        l.positiveInt("frame_rate"),

		StreamMaxConcurrent: l.positiveInt("stream_max_concurrent"),
		StreamKeepalive:     l.duration("stream_keepalive"),
		TrustProxy:          l.boolean("trust_proxy"),

		DefaultObjects: splitList(v.GetString("default_objects")),

		PropWorkers:   l.positiveInt("prop_workers"),
		PropCacheSize: l.positiveInt("prop_cache_size"),

		LogLevel: l.oneOf("log_level", "debug", "info", "warn", "error"),
		LogFile:  v.GetString("log_file"),
	}

	if cfg.AuthEnabled && cfg.AuthToken == "" {
		return cfg, errors.New("SKYTRACK_AUTH_TOKEN is required when auth is enabled")
	}
	return cfg, nil
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// loader reads typed values, falling back to the registered default with
// a warning when the configured value does not parse or is out of range.
type loader struct {
	v      *viper.Viper
	logger *slog.Logger
}

func (l loader) warn(key string, value, def any) {
	l.logger.Warn("invalid config value, using default",
		"component", "config",
		"key", strings.ToUpper(EnvPrefix+"_"+key),
		"value", value,
		"default", def,
	)
}

func (l loader) def(key string) string {
	return fmt.Sprint(defaults().Get(key))
}

func (l loader) str(key string) string {
	if s := strings.TrimSpace(l.v.GetString(key)); s != "" {
		return s
	}
	return l.def(key)
}

func (l loader) boolean(key string) bool {
	raw := l.v.GetString(key)
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off", "":
		return false
	}
	l.warn(key, raw, l.def(key))
	return defaults().GetBool(key)
}

func (l loader) duration(key string) time.Duration {
	raw := l.v.GetString(key)
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d <= 0 {
		l.warn(key, raw, l.def(key))
		return defaults().GetDuration(key)
	}
	return d
}

func (l loader) positiveInt(key string) int {
	raw := l.v.GetString(key)
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		l.warn(key, raw, l.def(key))
		return defaults().GetInt(key)
	}
	return n
}

func (l loader) positiveFloat(key string) float64 {
	raw := l.v.GetString(key)
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || f <= 0 {
		l.warn(key, raw, l.def(key))
		return defaults().GetFloat64(key)
	}
	return f
}

func (l loader) oneOf(key string, allowed ...string) string {
	raw := strings.ToLower(strings.TrimSpace(l.v.GetString(key)))
	for _, a := range allowed {
		if raw == a {
			return raw
		}
	}
	l.warn(key, raw, l.def(key))
	return l.def(key)
}

// defaults returns a viper holding only the registered defaults.
func defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}
