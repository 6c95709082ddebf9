/*
Package config holds the engine configuration: codec selection
defaults, delta limits, pack limits, cache capacities, and metrics
settings.

Configuration loads from YAML, with environment variable overrides
layered on top (GITCAS_* variables). Every knob has a default chosen
to match the engine's documented policy thresholds, so a zero-config
engine behaves exactly as specified:

	cfg := config.NewDefault()
	_ = cfg.LoadFromFile("gitcas.yaml") // optional
	_ = cfg.LoadFromEnv()
	if err := cfg.Validate(); err != nil { ... }

Size-valued settings accept human-readable strings ("512MB", "1KB")
via ParseSize.
*/
package config
