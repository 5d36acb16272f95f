package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/deglib-go/deg/pkg/deg"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}
	if cfg.Graph.Degree != 32 {
		t.Errorf("Expected degree 32, got %d", cfg.Graph.Degree)
	}
	if cfg.Graph.Metric != deg.L2Float32 {
		t.Errorf("Expected L2Float32 metric, got %v", cfg.Graph.Metric)
	}
	if cfg.Builder.ExtendK != cfg.Graph.Degree {
		t.Errorf("Expected ExtendK to default to degree, got %d", cfg.Builder.ExtendK)
	}
	if cfg.Builder.SwapTries != 1 {
		t.Errorf("Expected SwapTries 1, got %d", cfg.Builder.SwapTries)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() should validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	envVars := []string{
		"DEG_CAPACITY", "DEG_DEGREE", "DEG_DIM", "DEG_METRIC",
		"DEG_EXTEND_K", "DEG_EXTEND_EPS", "DEG_IMPROVE_K", "DEG_IMPROVE_EPS",
		"DEG_MAX_PATH_LENGTH", "DEG_SWAP_TRIES", "DEG_ADDITIONAL_SWAP_TRIES", "DEG_RNG_SEED",
	}
	original := make(map[string]string)
	for _, key := range envVars {
		original[key] = os.Getenv(key)
	}
	defer func() {
		for key, value := range original {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	os.Setenv("DEG_CAPACITY", "5000")
	os.Setenv("DEG_DEGREE", "24")
	os.Setenv("DEG_DIM", "256")
	os.Setenv("DEG_METRIC", "ipf32")
	os.Setenv("DEG_EXTEND_K", "40")
	os.Setenv("DEG_EXTEND_EPS", "0.3")
	os.Setenv("DEG_IMPROVE_K", "20")
	os.Setenv("DEG_IMPROVE_EPS", "0.01")
	os.Setenv("DEG_MAX_PATH_LENGTH", "10")
	os.Setenv("DEG_SWAP_TRIES", "2")
	os.Setenv("DEG_ADDITIONAL_SWAP_TRIES", "3")
	os.Setenv("DEG_RNG_SEED", "99")

	cfg := LoadFromEnv()

	if cfg.Graph.Capacity != 5000 {
		t.Errorf("Expected capacity 5000, got %d", cfg.Graph.Capacity)
	}
	if cfg.Graph.Degree != 24 {
		t.Errorf("Expected degree 24, got %d", cfg.Graph.Degree)
	}
	if cfg.Graph.Dim != 256 {
		t.Errorf("Expected dim 256, got %d", cfg.Graph.Dim)
	}
	if cfg.Graph.Metric != deg.IPFloat32 {
		t.Errorf("Expected IPFloat32 metric, got %v", cfg.Graph.Metric)
	}
	if cfg.Builder.ExtendK != 40 {
		t.Errorf("Expected ExtendK 40, got %d", cfg.Builder.ExtendK)
	}
	if cfg.Builder.ExtendEps != 0.3 {
		t.Errorf("Expected ExtendEps 0.3, got %f", cfg.Builder.ExtendEps)
	}
	if cfg.Builder.ImproveK != 20 {
		t.Errorf("Expected ImproveK 20, got %d", cfg.Builder.ImproveK)
	}
	if cfg.Builder.MaxPathLength != 10 {
		t.Errorf("Expected MaxPathLength 10, got %d", cfg.Builder.MaxPathLength)
	}
	if cfg.Builder.SwapTries != 2 {
		t.Errorf("Expected SwapTries 2, got %d", cfg.Builder.SwapTries)
	}
	if cfg.Builder.AdditionalSwapTries != 3 {
		t.Errorf("Expected AdditionalSwapTries 3, got %d", cfg.Builder.AdditionalSwapTries)
	}
	if cfg.Builder.RNGSeed != 99 {
		t.Errorf("Expected RNGSeed 99, got %d", cfg.Builder.RNGSeed)
	}
}

func TestLoadFromEnv_InvalidValuesKeepDefault(t *testing.T) {
	original := os.Getenv("DEG_DEGREE")
	defer func() {
		if original == "" {
			os.Unsetenv("DEG_DEGREE")
		} else {
			os.Setenv("DEG_DEGREE", original)
		}
	}()

	os.Setenv("DEG_DEGREE", "not-a-number")
	cfg := LoadFromEnv()

	if cfg.Graph.Degree != Default().Graph.Degree {
		t.Errorf("Expected default degree for invalid value, got %d", cfg.Graph.Degree)
	}
}

func TestLoadFromEnv_DefaultsWhenNotSet(t *testing.T) {
	envVars := []string{
		"DEG_CAPACITY", "DEG_DEGREE", "DEG_DIM", "DEG_METRIC",
		"DEG_EXTEND_K", "DEG_EXTEND_EPS", "DEG_IMPROVE_K", "DEG_IMPROVE_EPS",
		"DEG_MAX_PATH_LENGTH", "DEG_SWAP_TRIES", "DEG_ADDITIONAL_SWAP_TRIES", "DEG_RNG_SEED",
	}
	original := make(map[string]string)
	for _, key := range envVars {
		original[key] = os.Getenv(key)
		os.Unsetenv(key)
	}
	defer func() {
		for key, value := range original {
			if value != "" {
				os.Setenv(key, value)
			}
		}
	}()

	cfg := LoadFromEnv()
	defaults := Default()

	if cfg.Graph.Capacity != defaults.Graph.Capacity {
		t.Errorf("Expected default capacity, got %d", cfg.Graph.Capacity)
	}
	if cfg.Graph.Degree != defaults.Graph.Degree {
		t.Errorf("Expected default degree, got %d", cfg.Graph.Degree)
	}
	if cfg.Builder.SwapTries != defaults.Builder.SwapTries {
		t.Errorf("Expected default swap tries, got %d", cfg.Builder.SwapTries)
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deg.yaml")
	content := `
graph:
  capacity: 2000
  degree: 16
  metric: l2f32
  dim: 64
builder:
  extend_k: 16
  extend_eps: 0.25
  improve_k: 16
  improve_eps: 0.005
  max_path_length: 6
  swap_tries: 1
  additional_swap_tries: 2
  rng_seed: 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML: %v", err)
	}
	if cfg.Graph.Capacity != 2000 {
		t.Errorf("Expected capacity 2000, got %d", cfg.Graph.Capacity)
	}
	if cfg.Graph.Degree != 16 {
		t.Errorf("Expected degree 16, got %d", cfg.Graph.Degree)
	}
	if cfg.Graph.Metric != deg.L2Float32 {
		t.Errorf("Expected L2Float32 metric, got %v", cfg.Graph.Metric)
	}
	if cfg.Builder.AdditionalSwapTries != 2 {
		t.Errorf("Expected AdditionalSwapTries 2, got %d", cfg.Builder.AdditionalSwapTries)
	}
}

func TestLoadFromYAML_UnknownMetric(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deg.yaml")
	if err := os.WriteFile(path, []byte("graph:\n  metric: bogus\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadFromYAML(path); err == nil {
		t.Fatal("expected error for unknown metric")
	}
}

func TestLoadFromYAML_MissingFile(t *testing.T) {
	if _, err := LoadFromYAML("/nonexistent/path/deg.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{"valid default", Default(), false},
		{"zero capacity", &Config{Graph: GraphConfig{Capacity: 0, Degree: 4, Dim: 4, Metric: deg.L2Float32}, Builder: BuilderConfig{ExtendK: 1, MaxPathLength: 1}}, true},
		{"degree too large", &Config{Graph: GraphConfig{Capacity: 10, Degree: 256, Dim: 4, Metric: deg.L2Float32}, Builder: BuilderConfig{ExtendK: 1, MaxPathLength: 1}}, true},
		{"zero dim", &Config{Graph: GraphConfig{Capacity: 10, Degree: 4, Dim: 0, Metric: deg.L2Float32}, Builder: BuilderConfig{ExtendK: 1, MaxPathLength: 1}}, true},
		{"zero extend_k", &Config{Graph: GraphConfig{Capacity: 10, Degree: 4, Dim: 4, Metric: deg.L2Float32}, Builder: BuilderConfig{ExtendK: 0, MaxPathLength: 1}}, true},
		{"zero max_path_length", &Config{Graph: GraphConfig{Capacity: 10, Degree: 4, Dim: 4, Metric: deg.L2Float32}, Builder: BuilderConfig{ExtendK: 1, MaxPathLength: 0}}, true},
		{"negative swap_tries", &Config{Graph: GraphConfig{Capacity: 10, Degree: 4, Dim: 4, Metric: deg.L2Float32}, Builder: BuilderConfig{ExtendK: 1, MaxPathLength: 1, SwapTries: -1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
