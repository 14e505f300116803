package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"salescore/internal/blob"
	"salescore/internal/core"
	"salescore/internal/events"
	"salescore/internal/infra/persistence/jsonfile"
)

// MetricsBackend selects where operation metrics go.
type MetricsBackend string

const (
	MetricsPrometheus MetricsBackend = "prometheus"
	MetricsExpvar     MetricsBackend = "expvar"
	MetricsNone       MetricsBackend = "none"
)

// Config holds everything needed to open the sales service.
type Config struct {
	Storage core.StorageConfig `yaml:"storage"`
	Kafka   KafkaConfig        `yaml:"kafka"`
	Log     LogConfig          `yaml:"log"`
	Metrics MetricsBackend     `yaml:"metrics"`
}

// KafkaConfig enables event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LogConfig configures the logrus logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text|json
}

// DefaultConfig stores the snapshot in ./database.json and publishes nothing.
func DefaultConfig() Config {
	return Config{
		Storage: core.StorageConfig{
			Driver:   core.StorageJSON,
			JSONPath: jsonfile.DefaultPath,
		},
		Kafka:   KafkaConfig{Topic: events.DefaultTopic},
		Log:     LogConfig{Level: "info", Format: "text"},
		Metrics: MetricsPrometheus,
	}
}

// LoadConfig starts from DefaultConfig, overlays the YAML file at path when
// path is non-empty and finally applies SALES_* environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown drivers and formats.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "", core.StorageMemory, core.StorageJSON, core.StorageSQLite, core.StoragePostgres, core.StorageBlob:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Metrics {
	case "", MetricsPrometheus, MetricsExpvar, MetricsNone:
	default:
		return fmt.Errorf("unknown metrics backend %q", c.Metrics)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Storage.Blob.Retain < 0 {
		return errors.New("blob retain must not be negative")
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	var driver string
	str("SALES_STORAGE_DRIVER", &driver)
	if driver != "" {
		cfg.Storage.Driver = core.StorageDriver(driver)
	}
	str("SALES_JSON_PATH", &cfg.Storage.JSONPath)
	str("SALES_SQLITE_PATH", &cfg.Storage.SQLitePath)
	str("SALES_POSTGRES_DSN", &cfg.Storage.PostgresDSN)

	var blobDriver string
	str("SALES_BLOB_DRIVER", &blobDriver)
	if blobDriver != "" {
		cfg.Storage.Blob.Driver = blob.Driver(blobDriver)
	}
	str("SALES_BLOB_FS_ROOT", &cfg.Storage.Blob.FSRoot)
	str("SALES_BLOB_S3_BUCKET", &cfg.Storage.Blob.S3.Bucket)
	str("SALES_BLOB_S3_REGION", &cfg.Storage.Blob.S3.Region)
	str("SALES_BLOB_S3_ENDPOINT", &cfg.Storage.Blob.S3.Endpoint)
	str("SALES_BLOB_PREFIX", &cfg.Storage.Blob.Prefix)

	var pathStyle, retain string
	str("SALES_BLOB_S3_PATH_STYLE", &pathStyle)
	if pathStyle != "" {
		v, err := strconv.ParseBool(pathStyle)
		if err != nil {
			return fmt.Errorf("SALES_BLOB_S3_PATH_STYLE: %w", err)
		}
		cfg.Storage.Blob.S3.PathStyle = v
	}
	str("SALES_BLOB_RETAIN", &retain)
	if retain != "" {
		n, err := strconv.Atoi(retain)
		if err != nil {
			return fmt.Errorf("SALES_BLOB_RETAIN: %w", err)
		}
		cfg.Storage.Blob.Retain = n
	}

	var brokers string
	str("SALES_KAFKA_BROKERS", &brokers)
	if brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	str("SALES_KAFKA_TOPIC", &cfg.Kafka.Topic)

	str("SALES_LOG_LEVEL", &cfg.Log.Level)
	str("SALES_LOG_FORMAT", &cfg.Log.Format)

	var metrics string
	str("SALES_METRICS", &metrics)
	if metrics != "" {
		cfg.Metrics = MetricsBackend(metrics)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
