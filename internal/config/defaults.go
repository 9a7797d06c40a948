package config

import "github.com/spf13/viper"

// DefaultPort is the HTTP port when none is configured.
const DefaultPort = 8001

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost:3000",
		"http://localhost:3001",
		"http://127.0.0.1:3000",
	})
	v.SetDefault("server.sweep_rate_per_second", 5.0)
	v.SetDefault("server.sweep_burst", 10)

	v.SetDefault("catalog.path", "data/objects.json")
	v.SetDefault("catalog.watch", false)
	v.SetDefault("catalog.debounce_ms", 250)
	v.SetDefault("catalog.postgres_dsn", "")
	v.SetDefault("catalog.table", "objects")

	v.SetDefault("analysis.metric", "cosine")
	v.SetDefault("analysis.top_n", 5)
	v.SetDefault("analysis.threshold", 0.6)
	v.SetDefault("analysis.scaling", "zscore")
	v.SetDefault("analysis.schema", []string{"mass:log", "radius:log", "temperature:log"})
	v.SetDefault("analysis.aliases", true)

	v.SetDefault("rules.path", "")
	v.SetDefault("archive.path", "")
	v.SetDefault("log.json", false)
}
