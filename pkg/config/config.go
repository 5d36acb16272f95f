// Package config carries the construction parameters for a Graph and its
// Builder (spec §6), loadable from defaults, environment variables, or a
// YAML file. Grounded on the teacher's pkg/config.Config Default/LoadFromEnv
// pattern, generalized from server/HNSW/cache settings to the DEG
// construction and search parameters.
package config

import (
	"fmt"
	"os"
	"strconv"

	yaml "go.yaml.in/yaml/v2"

	"github.com/deglib-go/deg/pkg/deg"
)

// GraphConfig carries the parameters needed to construct a Graph.
type GraphConfig struct {
	Capacity int        // max vertex count
	Degree   int        // edges per vertex (d)
	Metric   deg.Metric // distance metric tag
	Dim      int        // vector dimension
}

// BuilderConfig carries the parameters needed to construct a Builder
// (mirrors builder.Config's fields so callers don't need to import
// pkg/deg/builder just to assemble one).
type BuilderConfig struct {
	ExtendK             int
	ExtendEps           float64
	ImproveK            int
	ImproveEps          float64
	MaxPathLength       int
	SwapTries           int
	AdditionalSwapTries int
	RNGSeed             int64
}

// Config bundles both, the whole of what a caller needs to stand up a
// graph and its builder.
type Config struct {
	Graph   GraphConfig
	Builder BuilderConfig
}

// Default returns a configuration suitable for small-to-medium datasets:
// 128-dimensional f32 vectors, degree 32, the same extend/improve eps
// defaults original_source derives from edgesPerVertex alone.
func Default() *Config {
	degree := 32
	return &Config{
		Graph: GraphConfig{
			Capacity: 1_000_000,
			Degree:   degree,
			Metric:   deg.L2Float32,
			Dim:      128,
		},
		Builder: BuilderConfig{
			ExtendK:             degree,
			ExtendEps:           0.2,
			ImproveK:            degree,
			ImproveEps:          0.001,
			MaxPathLength:       5,
			SwapTries:           1,
			AdditionalSwapTries: 1,
			RNGSeed:             1,
		},
	}
}

// LoadFromEnv loads configuration from environment variables prefixed
// DEG_, grounded on the teacher's VECTOR_* prefix convention.
func LoadFromEnv() *Config {
	cfg := Default()

	if v := os.Getenv("DEG_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Graph.Capacity = n
		}
	}
	if v := os.Getenv("DEG_DEGREE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Graph.Degree = n
		}
	}
	if v := os.Getenv("DEG_DIM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Graph.Dim = n
		}
	}
	if v := os.Getenv("DEG_METRIC"); v != "" {
		if m, ok := parseMetric(v); ok {
			cfg.Graph.Metric = m
		}
	}

	if v := os.Getenv("DEG_EXTEND_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Builder.ExtendK = n
		}
	}
	if v := os.Getenv("DEG_EXTEND_EPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Builder.ExtendEps = f
		}
	}
	if v := os.Getenv("DEG_IMPROVE_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Builder.ImproveK = n
		}
	}
	if v := os.Getenv("DEG_IMPROVE_EPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Builder.ImproveEps = f
		}
	}
	if v := os.Getenv("DEG_MAX_PATH_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Builder.MaxPathLength = n
		}
	}
	if v := os.Getenv("DEG_SWAP_TRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Builder.SwapTries = n
		}
	}
	if v := os.Getenv("DEG_ADDITIONAL_SWAP_TRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Builder.AdditionalSwapTries = n
		}
	}
	if v := os.Getenv("DEG_RNG_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Builder.RNGSeed = n
		}
	}

	return cfg
}

// yamlConfig mirrors Config with yaml tags; go.yaml.in/yaml/v2 works
// against this shadow type rather than Config directly so deg.Metric
// (an enum over a raw byte tag) can be parsed from its string form.
type yamlConfig struct {
	Graph struct {
		Capacity int    `yaml:"capacity"`
		Degree   int    `yaml:"degree"`
		Metric   string `yaml:"metric"`
		Dim      int    `yaml:"dim"`
	} `yaml:"graph"`
	Builder struct {
		ExtendK             int     `yaml:"extend_k"`
		ExtendEps           float64 `yaml:"extend_eps"`
		ImproveK            int     `yaml:"improve_k"`
		ImproveEps          float64 `yaml:"improve_eps"`
		MaxPathLength       int     `yaml:"max_path_length"`
		SwapTries           int     `yaml:"swap_tries"`
		AdditionalSwapTries int     `yaml:"additional_swap_tries"`
		RNGSeed             int64   `yaml:"rng_seed"`
	} `yaml:"builder"`
}

// LoadFromYAML loads configuration from a YAML file at path, starting
// from Default() and overlaying every field the file sets to a positive
// value (non-zero for rng_seed); a zero or negative value leaves the
// default in place.
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var y yamlConfig
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	cfg := Default()
	if y.Graph.Capacity > 0 {
		cfg.Graph.Capacity = y.Graph.Capacity
	}
	if y.Graph.Degree > 0 {
		cfg.Graph.Degree = y.Graph.Degree
	}
	if y.Graph.Dim > 0 {
		cfg.Graph.Dim = y.Graph.Dim
	}
	if y.Graph.Metric != "" {
		m, ok := parseMetric(y.Graph.Metric)
		if !ok {
			return nil, fmt.Errorf("config: %s: unknown metric %q", path, y.Graph.Metric)
		}
		cfg.Graph.Metric = m
	}

	if y.Builder.ExtendK > 0 {
		cfg.Builder.ExtendK = y.Builder.ExtendK
	}
	if y.Builder.ExtendEps > 0 {
		cfg.Builder.ExtendEps = y.Builder.ExtendEps
	}
	if y.Builder.ImproveK > 0 {
		cfg.Builder.ImproveK = y.Builder.ImproveK
	}
	if y.Builder.ImproveEps > 0 {
		cfg.Builder.ImproveEps = y.Builder.ImproveEps
	}
	if y.Builder.MaxPathLength > 0 {
		cfg.Builder.MaxPathLength = y.Builder.MaxPathLength
	}
	if y.Builder.SwapTries > 0 {
		cfg.Builder.SwapTries = y.Builder.SwapTries
	}
	if y.Builder.AdditionalSwapTries > 0 {
		cfg.Builder.AdditionalSwapTries = y.Builder.AdditionalSwapTries
	}
	if y.Builder.RNGSeed != 0 {
		cfg.Builder.RNGSeed = y.Builder.RNGSeed
	}

	return cfg, nil
}

func parseMetric(s string) (deg.Metric, bool) {
	switch s {
	case "l2f32", "l2_f32", "L2Float32":
		return deg.L2Float32, true
	case "ipf32", "ip_f32", "IPFloat32":
		return deg.IPFloat32, true
	case "l2u8", "l2_u8", "L2Uint8":
		return deg.L2Uint8, true
	default:
		return 0, false
	}
}

// Validate checks every field is in range, in the teacher's
// fmt.Errorf("invalid ...: %v (must ...)") phrasing.
func (c *Config) Validate() error {
	if c.Graph.Capacity < 1 {
		return fmt.Errorf("invalid capacity: %d (must be > 0)", c.Graph.Capacity)
	}
	if c.Graph.Degree < 1 || c.Graph.Degree > 255 {
		return fmt.Errorf("invalid degree: %d (must be 1-255)", c.Graph.Degree)
	}
	if c.Graph.Dim < 1 {
		return fmt.Errorf("invalid dim: %d (must be > 0)", c.Graph.Dim)
	}
	if _, err := c.Graph.Metric.ElemSize(); err != nil {
		return fmt.Errorf("invalid metric: %v", c.Graph.Metric)
	}

	if c.Builder.ExtendK < 1 {
		return fmt.Errorf("invalid extend_k: %d (must be > 0)", c.Builder.ExtendK)
	}
	if c.Builder.ImproveK < 0 {
		return fmt.Errorf("invalid improve_k: %d (must be >= 0)", c.Builder.ImproveK)
	}
	if c.Builder.MaxPathLength < 1 {
		return fmt.Errorf("invalid max_path_length: %d (must be > 0)", c.Builder.MaxPathLength)
	}
	if c.Builder.SwapTries < 0 {
		return fmt.Errorf("invalid swap_tries: %d (must be >= 0)", c.Builder.SwapTries)
	}
	if c.Builder.AdditionalSwapTries < 0 {
		return fmt.Errorf("invalid additional_swap_tries: %d (must be >= 0)", c.Builder.AdditionalSwapTries)
	}

	return nil
}
