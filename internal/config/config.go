// Package config loads scaleviewer settings from defaults, an optional
// scaleviewer.toml and SCALEVIEWER_* environment variables.
package config

// Config is the full scaleviewer configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Rules    RulesConfig    `mapstructure:"rules"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// Sweep endpoints (candidates, export) share one token bucket.
	SweepRatePerSecond float64 `mapstructure:"sweep_rate_per_second"`
	SweepBurst         int     `mapstructure:"sweep_burst"`
}

// CatalogConfig selects where entities come from. A non-empty PostgresDSN
// wins over Path.
type CatalogConfig struct {
	Path        string `mapstructure:"path"`
	Watch       bool   `mapstructure:"watch"`
	DebounceMS  int    `mapstructure:"debounce_ms"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	Table       string `mapstructure:"table"`
}

// AnalysisConfig holds the tunables front ends fill in when a request
// leaves them out. The core never reads these directly.
type AnalysisConfig struct {
	Metric    string   `mapstructure:"metric"`
	TopN      int      `mapstructure:"top_n"`
	Threshold float64  `mapstructure:"threshold"`
	Scaling   string   `mapstructure:"scaling"`
	Schema    []string `mapstructure:"schema"`
	Aliases   bool     `mapstructure:"aliases"`
}

// RulesConfig points at a rule set file; empty means the embedded default.
type RulesConfig struct {
	Path string `mapstructure:"path"`
}

// ArchiveConfig points at the SQLite export archive; empty disables it.
type ArchiveConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}
