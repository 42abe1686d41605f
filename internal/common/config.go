package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Upload   UploadConfig   `yaml:"upload"`
	Parse    ParseConfig    `yaml:"parse"`
	LLM      LLMConfig      `yaml:"llm"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// UploadConfig controls where uploads land and how big they may be
type UploadConfig struct {
	Dir          string `yaml:"dir"`
	MaxFileSize  int64  `yaml:"max_file_size"`
	ChunkSize    int    `yaml:"chunk_size"`
	BatchWorkers int    `yaml:"batch_workers"`
}

// ParseConfig holds the scan-detection thresholds and image budget
type ParseConfig struct {
	MinTextLength      int           `yaml:"min_text_length"`
	MinCharsPerPage    float64       `yaml:"min_chars_per_page"`
	MinMeaningfulRatio float64       `yaml:"min_meaningful_ratio"`
	MaxPages           int           `yaml:"max_pages"`
	MaxImageBytes      int           `yaml:"max_image_bytes"`
	MaxTotalImageBytes int           `yaml:"max_total_image_bytes"`
	RenderScales       []float64     `yaml:"render_scales"`
	MaxImageDimension  int           `yaml:"max_image_dimension"`
	PDFRenderer        string        `yaml:"pdf_renderer"`
	RenderTimeout      time.Duration `yaml:"render_timeout"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider           string        `yaml:"provider"` // gemini | openai
	Model              string        `yaml:"model"`
	APIKey             string        `yaml:"api_key"`
	BaseURL            string        `yaml:"base_url"`
	Temperature        *float32      `yaml:"temperature"` // nil keeps the extractor default
	Timeout            time.Duration `yaml:"timeout"`
	MaxTextChars       int           `yaml:"max_text_chars"`
	MaxSupplementChars int           `yaml:"max_supplement_chars"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// StorageConfig points at the S3-compatible archive bucket; empty endpoint disables it
type StorageConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	Region     string `yaml:"region"`
	ExpireDays int    `yaml:"expire_days"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	Mode            string        `yaml:"mode"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// IngestRoots bounds POST /api/ingest; the route is off when empty.
	IngestRoots []string `yaml:"ingest_roots"`
}

// LogConfig is handed to logger.Init
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Upload: UploadConfig{
			Dir:          "uploads",
			MaxFileSize:  50 << 20,
			ChunkSize:    8192,
			BatchWorkers: 2,
		},
		Parse: ParseConfig{
			MinTextLength:      100,
			MinCharsPerPage:    50,
			MinMeaningfulRatio: 0.3,
			MaxPages:           20,
			MaxImageBytes:      4 << 20,
			MaxTotalImageBytes: 18 << 20,
			RenderScales:       []float64{2.0, 1.5, 1.0},
			MaxImageDimension:  2048,
			PDFRenderer:        "pdftoppm",
			RenderTimeout:      60 * time.Second,
		},
		LLM: LLMConfig{
			Provider:           "gemini",
			Model:              "gemini-2.0-flash",
			Temperature:        float32Ptr(0.1),
			Timeout:            120 * time.Second,
			MaxTextChars:       12000,
			MaxSupplementChars: 4000,
		},
		Database: DatabaseConfig{
			MaxConns:        20,
			MinConns:        2,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Storage: StorageConfig{
			Bucket:     "contracts",
			Region:     "us-east-1",
			ExpireDays: 7,
		},
		Server: ServerConfig{
			HTTPAddr:        ":8000",
			GRPCAddr:        ":9090",
			Mode:            "release",
			ShutdownTimeout: 15 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file
// (CONFIG_FILE or the path argument) and environment variables, in that order.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Upload.Dir = getEnv("UPLOAD_DIR", c.Upload.Dir)
	c.Upload.MaxFileSize = int64(getEnvAsInt("MAX_FILE_SIZE_MB", int(c.Upload.MaxFileSize>>20))) << 20
	c.Upload.BatchWorkers = getEnvAsInt("BATCH_WORKERS", c.Upload.BatchWorkers)

	c.Parse.MinTextLength = getEnvAsInt("PARSE_MIN_TEXT_LENGTH", c.Parse.MinTextLength)
	c.Parse.MinCharsPerPage = getEnvAsFloat64("PARSE_MIN_CHARS_PER_PAGE", c.Parse.MinCharsPerPage)
	c.Parse.MinMeaningfulRatio = getEnvAsFloat64("PARSE_MIN_MEANINGFUL_RATIO", c.Parse.MinMeaningfulRatio)
	c.Parse.MaxPages = getEnvAsInt("PARSE_MAX_PAGES", c.Parse.MaxPages)
	c.Parse.MaxImageBytes = getEnvAsInt("PARSE_MAX_IMAGE_BYTES", c.Parse.MaxImageBytes)
	c.Parse.MaxTotalImageBytes = getEnvAsInt("PARSE_MAX_TOTAL_IMAGE_BYTES", c.Parse.MaxTotalImageBytes)
	c.Parse.MaxImageDimension = getEnvAsInt("PARSE_MAX_IMAGE_DIMENSION", c.Parse.MaxImageDimension)
	c.Parse.PDFRenderer = getEnv("PDF_RENDERER", c.Parse.PDFRenderer)
	c.Parse.RenderTimeout = getEnvAsDuration("PDF_RENDER_TIMEOUT", c.Parse.RenderTimeout)

	c.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", c.LLM.Provider))
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat32Ptr("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)
	switch c.LLM.Provider {
	case "openai":
		c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
		if strings.HasPrefix(c.LLM.Model, "gemini") {
			c.LLM.Model = "gpt-4o-mini"
		}
	default:
		c.LLM.APIKey = getEnv("GEMINI_API_KEY", c.LLM.APIKey)
	}

	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)

	c.Storage.Endpoint = getEnv("MINIO_ENDPOINT", c.Storage.Endpoint)
	c.Storage.AccessKey = getEnv("MINIO_ACCESS_KEY", c.Storage.AccessKey)
	c.Storage.SecretKey = getEnv("MINIO_SECRET_KEY", c.Storage.SecretKey)
	c.Storage.Bucket = getEnv("MINIO_BUCKET", c.Storage.Bucket)
	c.Storage.UseSSL = getEnvAsBool("MINIO_USE_SSL", c.Storage.UseSSL)
	c.Storage.Region = getEnv("MINIO_REGION", c.Storage.Region)
	c.Storage.ExpireDays = getEnvAsInt("MINIO_EXPIRE_DAYS", c.Storage.ExpireDays)

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.Mode = getEnv("GIN_MODE", c.Server.Mode)
	c.Server.IngestRoots = getEnvAsList("INGEST_ROOTS", c.Server.IngestRoots)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

// getEnvAsFloat32Ptr keeps an explicit zero distinguishable from unset.
func getEnvAsFloat32Ptr(key string, defaultValue *float32) *float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32Ptr(float32(floatVal))
		}
	}
	return defaultValue
}

func float32Ptr(f float32) *float32 { return &f }

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvAsList splits a value on the OS path-list separator.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, v := range filepath.SplitList(value) {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration. requireLLM is false for commands
// that never call the model (e.g. detect).
func (c *Config) Validate(requireLLM bool) error {
	v := NewValidator().
		Field("upload.dir", c.Upload.Dir, Required).
		Field("upload.max_file_size", c.Upload.MaxFileSize, Positive).
		Field("upload.chunk_size", c.Upload.ChunkSize, Positive).
		Field("parse.max_pages", c.Parse.MaxPages, Positive).
		Field("parse.max_image_bytes", c.Parse.MaxImageBytes, Positive).
		Field("parse.max_total_image_bytes", c.Parse.MaxTotalImageBytes, Positive).
		Field("parse.max_image_dimension", c.Parse.MaxImageDimension, Positive).
		Field("parse.min_meaningful_ratio", c.Parse.MinMeaningfulRatio, Fraction)

	if len(c.Parse.RenderScales) == 0 {
		v.errors = append(v.errors, ValidationError{Field: "parse.render_scales", Value: c.Parse.RenderScales, Message: "is required"})
	}
	if requireLLM {
		v.Field("llm.api_key", c.LLM.APIKey, Required).
			Field("llm.provider", c.LLM.Provider, OneOf("gemini", "openai")).
			Field("llm.max_text_chars", c.LLM.MaxTextChars, Positive)
	}

	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
