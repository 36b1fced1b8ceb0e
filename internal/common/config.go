package common

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the pipeline reads.
const EnvPrefix = "ROADEST"

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	OCR      OCRConfig
	Pipeline PipelineConfig
	Fetch    FetchConfig
	Server   ServerConfig
	Model    ModelConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	InMemory         bool
	SQLitePath       string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// OCRConfig holds text-extraction configuration
type OCRConfig struct {
	NativeEngine string // "go" | "pdftotext"
	Engine       string // "tesseract" | "vision" | "none"
	Pdftotext    string
	Pdftoppm     string
	Tesseract    string
	Language     string
	DPI          int
	MaxPages     int
	TessdataDir  string
	Timeout      time.Duration
	Retries      int
	Workers      int // concurrent OCR runs across all pipeline workers

	VisionCredentialsFile string
}

// PipelineConfig holds worker-pool and batch configuration
type PipelineConfig struct {
	Workers      int
	QueueSize    int
	JobTimeout   time.Duration
	DefaultYear  int
	InboxDir     string
	PollInterval time.Duration
	SkipHidden   bool
}

// FetchConfig holds configuration for downloading tender documents
type FetchConfig struct {
	Timeout       time.Duration
	MaxAttempts   int
	RatePerSecond float64
	DownloadDir   string
	UserAgent     string
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// ModelConfig locates model artifacts and estimator profiles
type ModelConfig struct {
	ArtifactPath string
	ProfilesPath string
}

// LoggingConfig selects the slog handler
type LoggingConfig struct {
	Level  string
	Format string
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("database.dial_timeout", 3*time.Second)
	v.SetDefault("database.statement_timeout", time.Duration(0))
	v.SetDefault("database.in_memory", false)

	v.SetDefault("ocr.native_engine", "go")
	v.SetDefault("ocr.engine", "tesseract")
	v.SetDefault("ocr.pdftotext", "pdftotext")
	v.SetDefault("ocr.pdftoppm", "pdftoppm")
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.max_pages", 0)
	v.SetDefault("ocr.timeout", 5*time.Minute)
	v.SetDefault("ocr.retries", 2)
	v.SetDefault("ocr.workers", 2)

	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.queue_size", 256)
	v.SetDefault("pipeline.job_timeout", 10*time.Minute)
	v.SetDefault("pipeline.default_year", 2025)
	v.SetDefault("pipeline.inbox_dir", "./inbox")
	v.SetDefault("pipeline.poll_interval", 30*time.Second)
	v.SetDefault("pipeline.skip_hidden", true)

	v.SetDefault("fetch.timeout", 60*time.Second)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.rate_per_second", 2.0)
	v.SetDefault("fetch.download_dir", "./downloads")
	v.SetDefault("fetch.user_agent", "road-estimator/1.0")

	v.SetDefault("server.grpc_addr", ":8080")

	v.SetDefault("model.artifact_path", "./model/artifact.json")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// NewViper returns a viper instance wired to defaults, .env and ROADEST_* variables.
// DB_URL and TESSDATA_PREFIX are honored for compatibility with existing deployments.
func NewViper() *viper.Viper {
	_ = godotenv.Load() // .env is optional
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.dsn", EnvPrefix+"_DATABASE_DSN", "DB_URL")
	_ = v.BindEnv("ocr.tessdata_dir", EnvPrefix+"_OCR_TESSDATA_DIR", "TESSDATA_PREFIX")
	_ = v.BindEnv("ocr.vision_credentials_file", EnvPrefix+"_OCR_VISION_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS")
	return v
}

// LoadConfig builds a Config from v (flags, env, config file and defaults).
func LoadConfig(v *viper.Viper) *Config {
	if v == nil {
		v = NewViper()
	}
	return &Config{
		Database: DatabaseConfig{
			DSN:              v.GetString("database.dsn"),
			InMemory:         v.GetBool("database.in_memory"),
			SQLitePath:       v.GetString("database.sqlite_path"),
			MaxConns:         v.GetInt32("database.max_conns"),
			MinConns:         v.GetInt32("database.min_conns"),
			MaxConnLifetime:  v.GetDuration("database.max_conn_lifetime"),
			MaxConnIdleTime:  v.GetDuration("database.max_conn_idle_time"),
			DialTimeout:      v.GetDuration("database.dial_timeout"),
			StatementTimeout: v.GetDuration("database.statement_timeout"),
		},
		OCR: OCRConfig{
			NativeEngine:          v.GetString("ocr.native_engine"),
			Engine:                v.GetString("ocr.engine"),
			Pdftotext:             v.GetString("ocr.pdftotext"),
			Pdftoppm:              v.GetString("ocr.pdftoppm"),
			Tesseract:             v.GetString("ocr.tesseract"),
			Language:              v.GetString("ocr.language"),
			DPI:                   v.GetInt("ocr.dpi"),
			MaxPages:              v.GetInt("ocr.max_pages"),
			TessdataDir:           v.GetString("ocr.tessdata_dir"),
			Timeout:               v.GetDuration("ocr.timeout"),
			Retries:               v.GetInt("ocr.retries"),
			Workers:               v.GetInt("ocr.workers"),
			VisionCredentialsFile: v.GetString("ocr.vision_credentials_file"),
		},
		Pipeline: PipelineConfig{
			Workers:      v.GetInt("pipeline.workers"),
			QueueSize:    v.GetInt("pipeline.queue_size"),
			JobTimeout:   v.GetDuration("pipeline.job_timeout"),
			DefaultYear:  v.GetInt("pipeline.default_year"),
			InboxDir:     v.GetString("pipeline.inbox_dir"),
			PollInterval: v.GetDuration("pipeline.poll_interval"),
			SkipHidden:   v.GetBool("pipeline.skip_hidden"),
		},
		Fetch: FetchConfig{
			Timeout:       v.GetDuration("fetch.timeout"),
			MaxAttempts:   v.GetInt("fetch.max_attempts"),
			RatePerSecond: v.GetFloat64("fetch.rate_per_second"),
			DownloadDir:   v.GetString("fetch.download_dir"),
			UserAgent:     v.GetString("fetch.user_agent"),
		},
		Server: ServerConfig{
			GRPCAddr: v.GetString("server.grpc_addr"),
		},
		Model: ModelConfig{
			ArtifactPath: v.GetString("model.artifact_path"),
			ProfilesPath: v.GetString("model.profiles_path"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	val := NewValidator()
	if !c.Database.InMemory && c.Database.SQLitePath == "" {
		val.Field("database.dsn", c.Database.DSN, Required)
	}
	val.Field("ocr.native_engine", c.OCR.NativeEngine, OneOf("go", "pdftotext"))
	val.Field("ocr.engine", c.OCR.Engine, OneOf("tesseract", "vision", "none"))
	val.Field("ocr.dpi", c.OCR.DPI, Between(72, 1200))
	val.Field("ocr.timeout", c.OCR.Timeout, Positive)
	val.Field("ocr.workers", c.OCR.Workers, Positive)
	val.Field("pipeline.workers", c.Pipeline.Workers, Positive)
	val.Field("pipeline.job_timeout", c.Pipeline.JobTimeout, Positive)
	val.Field("pipeline.default_year", c.Pipeline.DefaultYear, Between(1990, 2100))
	val.Field("fetch.timeout", c.Fetch.Timeout, Positive)
	val.Field("logging.format", c.Logging.Format, OneOf("text", "json"))
	return val.AsAppError(CodeConfig)
}
