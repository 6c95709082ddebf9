package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Config represents the complete engine configuration.
type Config struct {
	Codec   CodecConfig   `yaml:"codec"`
	Delta   DeltaConfig   `yaml:"delta"`
	Pack    PackConfig    `yaml:"pack"`
	Tiering TieringConfig `yaml:"tiering"`
	Cache   CacheConfig   `yaml:"cache"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// CodecConfig controls compression selection and gating.
type CodecConfig struct {
	// MinCompressSize is the size below which ChooseAlgorithm
	// returns no compression.
	MinCompressSize string `yaml:"min_compress_size"`
	// LargePayloadSize is the size above which the large-payload
	// codec (zstd) is preferred.
	LargePayloadSize string `yaml:"large_payload_size"`
	// SavingsThresholdPercent gates compressed output: a compressed
	// form is kept only if it is smaller than original*threshold/100.
	SavingsThresholdPercent int `yaml:"savings_threshold_percent"`
	// DefaultLevel is the compression level used when the caller
	// does not specify one. Valid range 0-9.
	DefaultLevel int `yaml:"default_level"`
	// SpeedPriority makes algorithm selection prefer the fastest
	// codec regardless of content.
	SpeedPriority bool `yaml:"speed_priority"`
	// TextSampleSize is how many leading bytes the text classifier
	// inspects.
	TextSampleSize int `yaml:"text_sample_size"`
	// TextPrintableThreshold is the printable-byte fraction (0-100)
	// above which content classifies as text.
	TextPrintableThreshold int `yaml:"text_printable_threshold"`
}

// DeltaConfig controls delta encoding limits.
type DeltaConfig struct {
	// MinTargetSize is the smallest target worth delta-encoding.
	MinTargetSize int `yaml:"min_target_size"`
	// MaxChainDepth caps delta chains; reconstruction walks at most
	// this many records.
	MaxChainDepth int `yaml:"max_chain_depth"`
	// MinCopyLength is the shortest base run emitted as a copy
	// instruction.
	MinCopyLength int `yaml:"min_copy_length"`
	// SavingsThresholdPercent mirrors the codec gate for deltas.
	SavingsThresholdPercent int `yaml:"savings_threshold_percent"`
}

// PackConfig controls pack bundling.
type PackConfig struct {
	// MaxPackSize is the hard ceiling on a pack's stored payload.
	MaxPackSize string `yaml:"max_pack_size"`
	// CompressionLevel used when compressing pack entries.
	CompressionLevel int `yaml:"compression_level"`
}

// TieringConfig holds the tier classification boundaries.
type TieringConfig struct {
	InlineMaxSize   string `yaml:"inline_max_size"`
	ChunkedMaxSize  string `yaml:"chunked_max_size"`
	ExternalMaxSize string `yaml:"external_max_size"`
	DeltaMaxSize    string `yaml:"delta_max_size"`
}

// CacheConfig controls the two-level object cache.
type CacheConfig struct {
	L1Capacity int           `yaml:"l1_capacity"`
	L1TTL      time.Duration `yaml:"l1_ttl"`
	L2Capacity int           `yaml:"l2_capacity"`
	L2TTL      time.Duration `yaml:"l2_ttl"`
	// PromoteAfter is the L2 access count above which an entry is
	// promoted into L1.
	PromoteAfter int64 `yaml:"promote_after"`
}

// UnmarshalYAML reads TTLs as duration strings ("30s", "5m"), leaving
// fields absent from the document untouched.
func (c *CacheConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw struct {
		L1Capacity   *int    `yaml:"l1_capacity"`
		L1TTL        *string `yaml:"l1_ttl"`
		L2Capacity   *int    `yaml:"l2_capacity"`
		L2TTL        *string `yaml:"l2_ttl"`
		PromoteAfter *int64  `yaml:"promote_after"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	if raw.L1Capacity != nil {
		c.L1Capacity = *raw.L1Capacity
	}
	if raw.L2Capacity != nil {
		c.L2Capacity = *raw.L2Capacity
	}
	if raw.PromoteAfter != nil {
		c.PromoteAfter = *raw.PromoteAfter
	}
	if raw.L1TTL != nil {
		d, err := time.ParseDuration(*raw.L1TTL)
		if err != nil {
			return fmt.Errorf("invalid l1_ttl: %w", err)
		}
		c.L1TTL = d
	}
	if raw.L2TTL != nil {
		d, err := time.ParseDuration(*raw.L2TTL)
		if err != nil {
			return fmt.Errorf("invalid l2_ttl: %w", err)
		}
		c.L2TTL = d
	}
	return nil
}

// MarshalYAML writes TTLs as duration strings so saved files load
// back through UnmarshalYAML.
func (c CacheConfig) MarshalYAML() (interface{}, error) {
	return struct {
		L1Capacity   int    `yaml:"l1_capacity"`
		L1TTL        string `yaml:"l1_ttl"`
		L2Capacity   int    `yaml:"l2_capacity"`
		L2TTL        string `yaml:"l2_ttl"`
		PromoteAfter int64  `yaml:"promote_after"`
	}{c.L1Capacity, c.L1TTL.String(), c.L2Capacity, c.L2TTL.String(), c.PromoteAfter}, nil
}

// MetricsConfig controls the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// NewDefault returns a configuration with the engine's documented
// policy defaults.
func NewDefault() *Config {
	return &Config{
		Codec: CodecConfig{
			MinCompressSize:         "1KB",
			LargePayloadSize:        "1MB",
			SavingsThresholdPercent: 90,
			DefaultLevel:            6,
			SpeedPriority:           false,
			TextSampleSize:          512,
			TextPrintableThreshold:  80,
		},
		Delta: DeltaConfig{
			MinTargetSize:           50,
			MaxChainDepth:           10,
			MinCopyLength:           4,
			SavingsThresholdPercent: 90,
		},
		Pack: PackConfig{
			MaxPackSize:      "512MB",
			CompressionLevel: 6,
		},
		Tiering: TieringConfig{
			InlineMaxSize:   "1KB",
			ChunkedMaxSize:  "10KB",
			ExternalMaxSize: "50KB",
			DeltaMaxSize:    "1MB",
		},
		Cache: CacheConfig{
			L1Capacity:   100,
			L1TTL:        5 * time.Minute,
			L2Capacity:   1000,
			L2TTL:        15 * time.Minute,
			PromoteAfter: 3,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "gitcas",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// LoadFromFile overlays configuration from a YAML file.
func (c *Config) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv overlays configuration from environment variables.
func (c *Config) LoadFromEnv() error {
	if val := os.Getenv("GITCAS_LOG_LEVEL"); val != "" {
		c.Logging.Level = val
	}
	if val := os.Getenv("GITCAS_CODEC_LEVEL"); val != "" {
		if level, err := strconv.Atoi(val); err == nil {
			c.Codec.DefaultLevel = level
		}
	}
	if val := os.Getenv("GITCAS_SPEED_PRIORITY"); val != "" {
		c.Codec.SpeedPriority = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("GITCAS_MAX_CHAIN_DEPTH"); val != "" {
		if depth, err := strconv.Atoi(val); err == nil {
			c.Delta.MaxChainDepth = depth
		}
	}
	if val := os.Getenv("GITCAS_MAX_PACK_SIZE"); val != "" {
		c.Pack.MaxPackSize = val
	}
	if val := os.Getenv("GITCAS_CACHE_L1_CAPACITY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Cache.L1Capacity = n
		}
	}
	if val := os.Getenv("GITCAS_CACHE_L2_CAPACITY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Cache.L2Capacity = n
		}
	}
	if val := os.Getenv("GITCAS_CACHE_L1_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Cache.L1TTL = d
		}
	}
	if val := os.Getenv("GITCAS_CACHE_L2_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Cache.L2TTL = d
		}
	}
	if val := os.Getenv("GITCAS_METRICS_ENABLED"); val != "" {
		c.Metrics.Enabled = strings.ToLower(val) == "true"
	}
	return nil
}

// SaveToFile writes the configuration to a YAML file.
func (c *Config) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Codec.DefaultLevel < 0 || c.Codec.DefaultLevel > 9 {
		return fmt.Errorf("codec default_level must be in 0-9, got %d", c.Codec.DefaultLevel)
	}
	if c.Codec.SavingsThresholdPercent <= 0 || c.Codec.SavingsThresholdPercent > 100 {
		return fmt.Errorf("codec savings_threshold_percent must be in 1-100, got %d", c.Codec.SavingsThresholdPercent)
	}
	if c.Delta.MaxChainDepth <= 0 {
		return fmt.Errorf("delta max_chain_depth must be greater than 0")
	}
	if c.Delta.MinCopyLength <= 0 {
		return fmt.Errorf("delta min_copy_length must be greater than 0")
	}
	if c.Cache.L1Capacity <= 0 || c.Cache.L2Capacity <= 0 {
		return fmt.Errorf("cache capacities must be greater than 0")
	}

	sizes := []struct {
		name  string
		value string
	}{
		{"codec min_compress_size", c.Codec.MinCompressSize},
		{"codec large_payload_size", c.Codec.LargePayloadSize},
		{"pack max_pack_size", c.Pack.MaxPackSize},
		{"tiering inline_max_size", c.Tiering.InlineMaxSize},
		{"tiering chunked_max_size", c.Tiering.ChunkedMaxSize},
		{"tiering external_max_size", c.Tiering.ExternalMaxSize},
		{"tiering delta_max_size", c.Tiering.DeltaMaxSize},
	}
	for _, s := range sizes {
		if _, err := ParseSize(s.value); err != nil {
			return fmt.Errorf("invalid %s: %w", s.name, err)
		}
	}

	prev := int64(0)
	for _, s := range []string{c.Tiering.InlineMaxSize, c.Tiering.ChunkedMaxSize, c.Tiering.ExternalMaxSize, c.Tiering.DeltaMaxSize} {
		n, _ := ParseSize(s)
		if n <= prev {
			return fmt.Errorf("tiering boundaries must be strictly increasing")
		}
		prev = n
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	valid := false
	for _, level := range validLogLevels {
		if strings.EqualFold(c.Logging.Level, level) {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)",
			c.Logging.Level, strings.Join(validLogLevels, ", "))
	}

	return nil
}

// ParseSize parses a human-readable size string like "512MB" or
// "1KB" into bytes. A bare number is taken as bytes.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		s = strings.TrimSuffix(s, "B")
	}

	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative size")
	}
	return n * multiplier, nil
}

// MustParseSize is ParseSize for values already checked by Validate.
func MustParseSize(s string) int64 {
	n, err := ParseSize(s)
	if err != nil {
		panic(err)
	}
	return n
}
