package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataDir          string
	WardsFile        string
	DrainsFile       string
	FloodProneFile   string
	VulnerableFile   string
	LowLyingFile     string
	RainfallFile     string
	WardNameProperty string
	WardCodeProperty string
	SourceEPSG       int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Pipeline tuning.
	CacheTTL          time.Duration
	ArtifactCacheSize int
	BufferDistanceM   float64
	GridMinSizeM      float64
	GridMaxSizeM      float64
	GridDefaultSizeM  float64
	SimMinMultiplier  float64
	SimMaxMultiplier  float64

	// Optional snapshot publishing.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string

	// Optional shared artifact cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parseDuration("CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:            sharedcfg.EnvOrDefault("DATA_DIR", "data"),
		WardNameProperty:   sharedcfg.EnvOrDefault("WARD_NAME_PROPERTY", "KGISWardName"),
		WardCodeProperty:   sharedcfg.EnvOrDefault("WARD_CODE_PROPERTY", "KGISWardNo"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		CacheTTL:           cacheTTL,
		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic: sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "ward-risk-snapshots"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
	}

	cfg.WardsFile = dataPath(cfg.DataDir, "WARDS_FILE", "bbmp-wards.geojson")
	cfg.DrainsFile = dataPath(cfg.DataDir, "DRAINS_FILE", "bangalore_swd_primary.geojson")
	cfg.FloodProneFile = dataPath(cfg.DataDir, "FLOOD_PRONE_FILE", "flood-prone-locations.geojson")
	cfg.VulnerableFile = dataPath(cfg.DataDir, "VULNERABLE_FILE", "flood-vulnerable-locations.geojson")
	cfg.LowLyingFile = dataPath(cfg.DataDir, "LOW_LYING_FILE", "low-lying-areas.geojson")
	cfg.RainfallFile = dataPath(cfg.DataDir, "RAINFALL_FILE", "bangalore-rainfall-data-1900-2024-sept.csv")

	var p numParser
	cfg.BufferDistanceM = p.positiveFloat("BUFFER_DISTANCE_M", "500")
	cfg.GridMinSizeM = p.positiveFloat("GRID_MIN_SIZE_M", "100")
	cfg.GridMaxSizeM = p.positiveFloat("GRID_MAX_SIZE_M", "500")
	cfg.GridDefaultSizeM = p.positiveFloat("GRID_DEFAULT_SIZE_M", "250")
	cfg.SimMinMultiplier = p.positiveFloat("SIM_MIN_MULTIPLIER", "0.5")
	cfg.SimMaxMultiplier = p.positiveFloat("SIM_MAX_MULTIPLIER", "5.0")
	cfg.SourceEPSG = p.nonNegativeInt("SOURCE_EPSG", "32643")
	cfg.ArtifactCacheSize = p.nonNegativeInt("ARTIFACT_CACHE_SIZE", "256")
	cfg.RedisDB = p.nonNegativeInt("REDIS_DB", "0")
	if p.err != nil {
		return nil, p.err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.GridMinSizeM > c.GridMaxSizeM {
		return errors.New("GRID_MIN_SIZE_M must not exceed GRID_MAX_SIZE_M")
	}
	if c.GridDefaultSizeM < c.GridMinSizeM || c.GridDefaultSizeM > c.GridMaxSizeM {
		return errors.New("GRID_DEFAULT_SIZE_M must lie within [GRID_MIN_SIZE_M, GRID_MAX_SIZE_M]")
	}
	if c.SimMinMultiplier > c.SimMaxMultiplier {
		return errors.New("SIM_MIN_MULTIPLIER must not exceed SIM_MAX_MULTIPLIER")
	}
	if c.ArtifactCacheSize <= 0 {
		return errors.New("ARTIFACT_CACHE_SIZE must be positive")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if c.KafkaEnabled && c.KafkaSnapshotTopic == "" {
		return errors.New("KAFKA_SNAPSHOT_TOPIC is required when KAFKA_ENABLED is true")
	}
	return nil
}

// dataPath resolves a file setting relative to the data directory unless it is absolute.
func dataPath(dir, key, def string) string {
	name := sharedcfg.EnvOrDefault(key, def)
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

// numParser reads numeric settings and keeps the first error.
type numParser struct {
	err error
}

func (p *numParser) positiveFloat(key, def string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, def), 64)
	if err != nil || v <= 0 {
		p.err = fmt.Errorf("invalid %s", key)
		return 0
	}
	return v
}

func (p *numParser) nonNegativeInt(key, def string) int {
	if p.err != nil {
		return 0
	}
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
	if err != nil || n < 0 {
		p.err = fmt.Errorf("invalid %s", key)
		return 0
	}
	return n
}
