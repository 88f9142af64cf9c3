package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database    DatabaseConfig
	Matching    MatchingConfig
	Circulation CirculationConfig
	Capture     CaptureConfig
	Events      EventsConfig
	Log         LogConfig
	Report      ReportConfig
	Web         WebConfig
}

type DatabaseConfig struct {
	Driver       string // sqlite (default), postgres or mariadb
	URL          string // PostgreSQL connection URL
	SQLitePath   string // defaults to library.db
	MariaDBDSN   string // e.g. kiosk:kiosk@tcp(mariadb:3306)/library
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// MatchingConfig holds the two distance tolerances. These are the single most
// sensitive parameters of the system and must match the metric the embedding
// extractor was calibrated for (Euclidean).
type MatchingConfig struct {
	DedupTolerance    float64 `yaml:"dedup_tolerance"`
	IdentifyTolerance float64 `yaml:"identify_tolerance"`
	EmbeddingDim      int     `yaml:"embedding_dim"`
}

type CirculationConfig struct {
	MinItemCodeLength int  `yaml:"min_item_code_length"`
	UniqueNames       bool `yaml:"unique_names"`
}

type CaptureConfig struct {
	EmbeddingURL string // face embedding service, defaults to http://localhost:8000
	MaxImageSize int    `yaml:"max_image_size"` // longest side in pixels before upload
}

type EventsConfig struct {
	AMQPURL    string // empty disables publishing
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

type ReportConfig struct {
	S3Bucket    string
	S3Region    string
	S3Endpoint  string // optional, for MinIO
	S3PathStyle bool
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // CORS whitelist, localhost is always allowed
}

// defaults mirrors the layout of defaults.yaml
type defaults struct {
	Matching    MatchingConfig    `yaml:"matching"`
	Circulation CirculationConfig `yaml:"circulation"`
	Capture     CaptureConfig     `yaml:"capture"`
	Events      EventsConfig      `yaml:"events"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float64.
// Returns the default value if the env var is unset, invalid or not finite.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && isFinite(f) {
		return f
	}
	return defaultVal
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// envBool reads an environment variable as a bool.
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated environment variable, dropping empty entries.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func loadDefaults() defaults {
	var d defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return d
}

func Load() *Config {
	d := loadDefaults()

	return &Config{
		Database: DatabaseConfig{
			Driver:       strings.ToLower(envString("STORE_DRIVER", "sqlite")),
			URL:          os.Getenv("DATABASE_URL"),
			SQLitePath:   envString("SQLITE_PATH", "library.db"),
			MariaDBDSN:   os.Getenv("MARIADB_DSN"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Matching: MatchingConfig{
			DedupTolerance:    envFloat("MATCH_DEDUP_TOLERANCE", d.Matching.DedupTolerance),
			IdentifyTolerance: envFloat("MATCH_IDENTIFY_TOLERANCE", d.Matching.IdentifyTolerance),
			EmbeddingDim:      envInt("MATCH_EMBEDDING_DIM", d.Matching.EmbeddingDim),
		},
		Circulation: CirculationConfig{
			MinItemCodeLength: envInt("CIRCULATION_MIN_ITEM_CODE_LENGTH", d.Circulation.MinItemCodeLength),
			UniqueNames:       envBool("CIRCULATION_UNIQUE_NAMES", d.Circulation.UniqueNames),
		},
		Capture: CaptureConfig{
			EmbeddingURL: os.Getenv("EMBEDDING_URL"),
			MaxImageSize: envInt("CAPTURE_MAX_IMAGE_SIZE", d.Capture.MaxImageSize),
		},
		Events: EventsConfig{
			AMQPURL:    os.Getenv("AMQP_URL"),
			Exchange:   envString("AMQP_EXCHANGE", d.Events.Exchange),
			RoutingKey: envString("AMQP_ROUTING_KEY", d.Events.RoutingKey),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		Report: ReportConfig{
			S3Bucket:    os.Getenv("REPORT_S3_BUCKET"),
			S3Region:    envString("REPORT_S3_REGION", "us-east-1"),
			S3Endpoint:  os.Getenv("REPORT_S3_ENDPOINT"),
			S3PathStyle: envBool("REPORT_S3_PATH_STYLE", false),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}

// Validate checks the settings the core cannot run without.
func (c *Config) Validate() error {
	var errs []error

	m := c.Matching
	// NaN compares false against everything, so test for the valid range.
	if !(m.IdentifyTolerance > 0) || !isFinite(m.IdentifyTolerance) {
		errs = append(errs, fmt.Errorf("MATCH_IDENTIFY_TOLERANCE must be positive and finite, got %v", m.IdentifyTolerance))
	}
	if !(m.DedupTolerance > 0) || !isFinite(m.DedupTolerance) {
		errs = append(errs, fmt.Errorf("MATCH_DEDUP_TOLERANCE must be positive and finite, got %v", m.DedupTolerance))
	}
	// Registration must reject look-alikes at least as aggressively as login accepts them.
	if m.DedupTolerance < m.IdentifyTolerance {
		errs = append(errs, fmt.Errorf("MATCH_DEDUP_TOLERANCE (%v) must be >= MATCH_IDENTIFY_TOLERANCE (%v)",
			m.DedupTolerance, m.IdentifyTolerance))
	}
	if m.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("MATCH_EMBEDDING_DIM must be positive, got %d", m.EmbeddingDim))
	}
	if c.Circulation.MinItemCodeLength <= 0 {
		errs = append(errs, errors.New("CIRCULATION_MIN_ITEM_CODE_LENGTH must be positive"))
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
		}
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case "mariadb":
		if c.Database.MariaDBDSN == "" {
			errs = append(errs, errors.New("MARIADB_DSN is required for the mariadb driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Database.Driver))
	}

	return errors.Join(errs...)
}
