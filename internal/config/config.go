// Package config loads the tunable parameters that every stage of the
// fingerprinting pipeline depends on. Ingest and query must agree on these
// values for matching to work at all (spec: "same parameters must be used
// at ingest and query time for the same installation"), so they live in one
// struct instead of being scattered as per-function defaults.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every parameter named in the contract tables of the DSP,
// peak-extraction, hashing, and matching stages.
type Config struct {
	// Resampler/Normalizer (C1)
	TargetSampleRate int     `yaml:"target_sample_rate"`
	BandpassLowHz    float64 `yaml:"bandpass_low_hz"`
	BandpassHighHz   float64 `yaml:"bandpass_high_hz"`
	BandpassOrder    int     `yaml:"bandpass_order"`

	// PeakExtractor (C2)
	IngestFrameSize      int     `yaml:"ingest_frame_size"`
	QueryFrameSize       int     `yaml:"query_frame_size"`
	HopSize              int     `yaml:"hop_size"`
	MinFreqHz            float64 `yaml:"min_freq_hz"`
	MaxFreqHz            float64 `yaml:"max_freq_hz"`
	PeakThreshold        float64 `yaml:"peak_threshold"`
	PeakAbsoluteThresh   float64 `yaml:"peak_absolute_threshold"` // 0 disables
	MaxPeaks             int     `yaml:"max_peaks"`               // 0 disables
	UseMedianFilter      bool    `yaml:"use_median_filter"`

	// HashGenerator (C3)
	FanValue       int     `yaml:"fan_value"`
	MinDeltaSec    float64 `yaml:"min_delta_sec"`
	MaxDeltaSec    float64 `yaml:"max_delta_sec"`
	TimePrecision  float64 `yaml:"time_precision"`
	TargetDensity  float64 `yaml:"target_density"`
	MaxHashes      int     `yaml:"max_hashes"`

	// Matcher (C5)
	CoarseDeltaTol      float64 `yaml:"coarse_delta_tol"`
	FineDeltaTol        float64 `yaml:"fine_delta_tol"`
	OffsetSlackSec       float64 `yaml:"offset_slack_sec"`
	AnomalyVoteMultiple  float64 `yaml:"anomaly_vote_multiple"`
	FallbackWeight8      float64 `yaml:"fallback_weight_8"`
	FallbackWeight6      float64 `yaml:"fallback_weight_6"`
	ClusterEpsilonSec    float64 `yaml:"cluster_epsilon_sec"`
	ClusterMinPoints     int     `yaml:"cluster_min_points"`
	FineRetryConfidence  float64 `yaml:"fine_retry_confidence"` // below this, retry with fine Δ_tol + clustering

	// Query orchestrator (C8)
	QueryTimeoutSec float64 `yaml:"query_timeout_sec"`

	// Ingestor (C7)
	MinHashesBeforeRetry   int     `yaml:"min_hashes_before_retry"`
	RetryThresholdRelaxBy  float64 `yaml:"retry_threshold_relax_by"`
	RetryFanValueBoost     int     `yaml:"retry_fan_value_boost"`

	// Store
	DatabaseURL string `yaml:"database_url"`
}

// Default returns the parameter set documented in spec.md as the system's
// shipped defaults.
func Default() *Config {
	return &Config{
		TargetSampleRate: 16000,
		BandpassLowHz:    100,
		BandpassHighHz:   4000,
		BandpassOrder:    5,

		IngestFrameSize:    1024,
		QueryFrameSize:     2048,
		HopSize:            256,
		MinFreqHz:          100,
		MaxFreqHz:          4000,
		PeakThreshold:      0.7,
		PeakAbsoluteThresh: 0,
		MaxPeaks:           800,
		UseMedianFilter:    true,

		FanValue:      15,
		MinDeltaSec:   0.3,
		MaxDeltaSec:   6,
		TimePrecision: 0.05,
		TargetDensity: 100,
		MaxHashes:     200000,

		CoarseDeltaTol:      0.5,
		FineDeltaTol:        0.02,
		OffsetSlackSec:      3,
		AnomalyVoteMultiple: 100,
		FallbackWeight8:     0.3,
		FallbackWeight6:     0.1,
		ClusterEpsilonSec:   2.0,
		ClusterMinPoints:    3,
		FineRetryConfidence: 50,

		QueryTimeoutSec: 15,

		MinHashesBeforeRetry:  5,
		RetryThresholdRelaxBy: 0.2,
		RetryFanValueBoost:    4,
	}
}

// Load reads a YAML config file layered on top of Default, then applies the
// database environment (loaded from a sibling .env file if present,
// mirroring the teacher's db.NewDBClient/GetEnv convention): DATABASE_URL
// replaces the DSN, and when no DSN is set at all one is built from the
// DB_* variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	_ = godotenv.Load() // best-effort; shell exports still take effect if absent

	if dsn := getEnv("DATABASE_URL", ""); dsn != "" {
		cfg.DatabaseURL = dsn
	} else if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = buildDSNFromParts()
	}

	return cfg, nil
}

func buildDSNFromParts() string {
	user := getEnv("DB_USER", "postgres")
	pass := getEnv("DB_PASS", "")
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	name := getEnv("DB_NAME", "postgres")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, port, name)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
