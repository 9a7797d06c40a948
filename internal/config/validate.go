package config

import (
	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/features"
	"github.com/DrNicoArt/scaleviewer/internal/rules"
	"github.com/DrNicoArt/scaleviewer/internal/similarity"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Newf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	// Zero rate disables limiting; negative is invalid
	if c.Server.SweepRatePerSecond < 0 {
		return errors.Newf("server.sweep_rate_per_second must be >= 0, got %g", c.Server.SweepRatePerSecond)
	}
	if c.Server.SweepRatePerSecond > 0 && c.Server.SweepBurst < 1 {
		return errors.Newf("server.sweep_burst must be >= 1 when limiting, got %d", c.Server.SweepBurst)
	}

	if c.Catalog.DebounceMS < 0 {
		return errors.Newf("catalog.debounce_ms must be >= 0, got %d", c.Catalog.DebounceMS)
	}

	if _, err := similarity.ParseMetric(c.Analysis.Metric); err != nil {
		return errors.Wrap(err, "analysis.metric")
	}
	if c.Analysis.TopN < 0 {
		return errors.Newf("analysis.top_n must be >= 0, got %d", c.Analysis.TopN)
	}
	if err := rules.ValidateThreshold(c.Analysis.Threshold); err != nil {
		return errors.Wrap(err, "analysis.threshold")
	}
	scaling, err := features.ParseScaling(c.Analysis.Scaling)
	if err != nil {
		return errors.Wrap(err, "analysis.scaling")
	}
	if len(c.Analysis.Schema) > 0 {
		if _, err := features.ParseSchema(c.Analysis.Schema, scaling); err != nil {
			return errors.Wrap(err, "analysis.schema")
		}
	}
	return nil
}

// DefaultSchema builds the feature schema front ends use when a request
// names none.
func (c *Config) DefaultSchema() (features.Schema, error) {
	scaling, err := features.ParseScaling(c.Analysis.Scaling)
	if err != nil {
		return features.Schema{}, err
	}
	schema, err := features.ParseSchema(c.Analysis.Schema, scaling)
	if err != nil {
		return features.Schema{}, err
	}
	if c.Analysis.Aliases {
		schema = schema.WithDefaultAliases()
	}
	return schema, nil
}
