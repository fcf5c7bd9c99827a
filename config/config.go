package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const defaultPath = "."

// Config is the root configuration for the coverage engine.
type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	Postgres *PostgresConfig `json:"postgres" yaml:"postgres"`

	MapMatch MapMatchConfig `json:"mapMatch" yaml:"mapMatch"`

	StreetProvider StreetProviderConfig `json:"streetProvider" yaml:"streetProvider"`

	ArtifactStore ArtifactStoreConfig `json:"artifactStore" yaml:"artifactStore"`

	AreaDefaults AreaDefaultsConfig `json:"areaDefaults" yaml:"areaDefaults"`
}

// PostgresConfig holds the connection parameters for the primary store.
type PostgresConfig struct {
	DSN             string        `json:"dsn" yaml:"dsn"`
	MaxOpenConns    int           `json:"maxOpenConns" yaml:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns" yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"`
}

// MapMatchConfig configures the external map-matching provider and the
// rate/concurrency budget the matcher is allowed to spend against it.
type MapMatchConfig struct {
	BaseURL          string        `json:"baseURL" yaml:"baseURL"`
	AccessToken      string        `json:"accessToken" yaml:"accessToken"`
	RequestTimeout   time.Duration `json:"requestTimeout" yaml:"requestTimeout"`
	RatePerMinute    int           `json:"ratePerMinute" yaml:"ratePerMinute"`
	Concurrency      int           `json:"concurrency" yaml:"concurrency"`
	ChunkSize        int           `json:"chunkSize" yaml:"chunkSize"`
	ChunkOverlap     int           `json:"chunkOverlap" yaml:"chunkOverlap"`
	MaxRetries       int           `json:"maxRetries" yaml:"maxRetries"`
	MinSubChunk      int           `json:"minSubChunk" yaml:"minSubChunk"`
	JumpThresholdM   float64       `json:"jumpThresholdM" yaml:"jumpThresholdM"`
	UrbanRadiusM     float64       `json:"urbanRadiusM" yaml:"urbanRadiusM"`
	HighwayRadiusM   float64       `json:"highwayRadiusM" yaml:"highwayRadiusM"`
	HighwaySpeedGapM float64       `json:"highwaySpeedGapM" yaml:"highwaySpeedGapM"`
}

// StreetProviderConfig configures the OSM-origin street graph source.
type StreetProviderConfig struct {
	BaseURL        string        `json:"baseURL" yaml:"baseURL"`
	RequestTimeout time.Duration `json:"requestTimeout" yaml:"requestTimeout"`
	CacheSize      int           `json:"cacheSize" yaml:"cacheSize"`
}

// ArtifactStoreConfig configures where large derived artifacts (the area
// street GeoJSON) are stored. BucketURL follows the gocloud.dev/blob
// URL scheme, e.g. "file:///var/lib/coverage/artifacts" or "gs://bucket".
type ArtifactStoreConfig struct {
	BucketURL string `json:"bucketURL" yaml:"bucketURL"`
}

// AreaDefaultsConfig holds the default per-area parameters applied when an
// area is created without explicit overrides.
type AreaDefaultsConfig struct {
	SegmentLengthM  float64 `json:"segmentLengthM" yaml:"segmentLengthM"`
	MatchBufferM    float64 `json:"matchBufferM" yaml:"matchBufferM"`
	MinMatchLengthM float64 `json:"minMatchLengthM" yaml:"minMatchLengthM"`
}

// Log configures the slog handler.
type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// DefaultAreaDefaults returns the spec's defaults, expressed in meters, the
// authoritative unit.
func DefaultAreaDefaults() AreaDefaultsConfig {
	return AreaDefaultsConfig{
		SegmentLengthM:  45.72, // 150 ft
		MatchBufferM:    7.62,  // 25 ft
		MinMatchLengthM: 4.57,  // 15 ft
	}
}

// DefaultMapMatchConfig returns the spec's defaults for the matching
// provider budget and chunking behavior.
func DefaultMapMatchConfig() MapMatchConfig {
	return MapMatchConfig{
		RequestTimeout:   30 * time.Second,
		RatePerMinute:    280,
		Concurrency:      10,
		ChunkSize:        100,
		ChunkOverlap:     15,
		MaxRetries:       3,
		MinSubChunk:      20,
		JumpThresholdM:   200,
		UrbanRadiusM:     25,
		HighwayRadiusM:   50,
		HighwaySpeedGapM: 100,
	}
}

// LoadWithEnv loads <currEnv>.yaml through koanf, layering environment
// variable overrides on top.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, fmt.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("read %s config failed: %w", currEnv, err)
	}

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to env.var.name
			key := strings.ReplaceAll(strings.ToLower(k), "_", ".")

			return key, v
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("load env variables failed: %w", err)
	}

	// Unmarshal into the config struct
	if err := koanfInstance.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal %s config failed: %w", currEnv, err)
	}

	return cfg, nil
}

// New loads the "config" environment, searching the working directory and a
// couple of conventional relative locations (matching how the CLI is
// typically invoked from cmd/coveragectl or from a package test).
func New() (*Config, error) {
	return LoadWithEnv[Config]("config", "config", "../config", "../../config")
}
