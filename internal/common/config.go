package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Processing ProcessingConfig `yaml:"processing"`
	LLM        LLMConfig        `yaml:"llm"`
	Storage    StorageConfig    `yaml:"storage"`
	Events     EventsConfig     `yaml:"events"`
	Extract    ExtractConfig    `yaml:"extract"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"` // postgres | sqlite | firestore
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
	FirestoreProject string        `yaml:"firestore_project"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
}

// ProcessingConfig bounds the document processor and its worker queue.
type ProcessingConfig struct {
	MaxRetries     int           `yaml:"max_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	Workers        int           `yaml:"workers"`
	QueueSize      int           `yaml:"queue_size"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Providers    []string      `yaml:"providers"` // failover order
	Cooldown     time.Duration `yaml:"cooldown"`
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	CallTimeout  time.Duration `yaml:"call_timeout"`
	Groq         GroqConfig    `yaml:"groq"`
	Gemini       GeminiConfig  `yaml:"gemini"`
	Bedrock      BedrockConfig `yaml:"bedrock"`
}

type GroqConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type GeminiConfig struct {
	Project string `yaml:"project"`
	Region  string `yaml:"region"`
	Model   string `yaml:"model"`
}

type BedrockConfig struct {
	Region    string `yaml:"region"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// StorageConfig configures content fetchers.
type StorageConfig struct {
	S3Region   string `yaml:"s3_region"`
	S3Endpoint string `yaml:"s3_endpoint"`
	EnableGCS  bool   `yaml:"enable_gcs"`
	EnableS3   bool   `yaml:"enable_s3"`
}

// EventsConfig configures the processing event publisher.
type EventsConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// ExtractConfig selects the PDF strategy.
type ExtractConfig struct {
	PDFStrategy string `yaml:"pdf_strategy"` // heuristic | parser
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{GRPCAddr: ":8080"},
		Processing: ProcessingConfig{
			MaxRetries:     3,
			RetryDelay:     time.Second,
			FetchTimeout:   30 * time.Second,
			Workers:        4,
			QueueSize:      256,
			ProcessTimeout: 3 * time.Minute,
		},
		LLM: LLMConfig{
			Providers:    []string{"gemini", "groq"},
			Cooldown:     time.Hour,
			MaxRetries:   3,
			InitialDelay: time.Second,
			CallTimeout:  45 * time.Second,
			Groq: GroqConfig{
				BaseURL:     "https://api.groq.com/openai/v1",
				Model:       "mixtral-8x7b-32768",
				Temperature: 0.7,
				MaxTokens:   2048,
			},
			Gemini: GeminiConfig{
				Region: "us-central1",
				Model:  "gemini-1.5-flash",
			},
			Bedrock: BedrockConfig{
				Region:    "us-east-1",
				Model:     "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
				MaxTokens: 2048,
			},
		},
		Storage: StorageConfig{S3Region: "us-east-1"},
		Events:  EventsConfig{Topic: "docflow.document-events"},
		Extract: ExtractConfig{PDFStrategy: "heuristic"},
	}
}

// LoadConfig builds configuration from defaults, an optional YAML file and
// environment variables, in that order of precedence (env wins).
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError(CodeConfig, "read config file", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, NewAppError(CodeConfig, "parse config file", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)
	c.Database.FirestoreProject = getEnv("FIRESTORE_PROJECT", getEnv("GCP_PROJECT", c.Database.FirestoreProject))

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)

	c.Processing.MaxRetries = getEnvAsInt("PROCESS_MAX_RETRIES", c.Processing.MaxRetries)
	c.Processing.RetryDelay = getEnvAsDuration("PROCESS_RETRY_DELAY", c.Processing.RetryDelay)
	c.Processing.FetchTimeout = getEnvAsDuration("PROCESS_FETCH_TIMEOUT", c.Processing.FetchTimeout)
	c.Processing.Workers = getEnvAsInt("PROCESS_WORKERS", c.Processing.Workers)
	c.Processing.QueueSize = getEnvAsInt("PROCESS_QUEUE_SIZE", c.Processing.QueueSize)
	c.Processing.ProcessTimeout = getEnvAsDuration("PROCESS_TIMEOUT", c.Processing.ProcessTimeout)

	c.LLM.Providers = getEnvAsList("LLM_PROVIDERS", c.LLM.Providers)
	c.LLM.Cooldown = getEnvAsDuration("LLM_RATE_LIMIT_COOLDOWN", c.LLM.Cooldown)
	c.LLM.MaxRetries = getEnvAsInt("LLM_MAX_RETRIES", c.LLM.MaxRetries)
	c.LLM.InitialDelay = getEnvAsDuration("LLM_INITIAL_DELAY", c.LLM.InitialDelay)
	c.LLM.CallTimeout = getEnvAsDuration("LLM_CALL_TIMEOUT", c.LLM.CallTimeout)
	c.LLM.Groq.APIKey = getEnv("GROQ_API_KEY", c.LLM.Groq.APIKey)
	c.LLM.Groq.BaseURL = getEnv("GROQ_BASE_URL", c.LLM.Groq.BaseURL)
	c.LLM.Groq.Model = getEnv("GROQ_MODEL", c.LLM.Groq.Model)
	c.LLM.Groq.Temperature = getEnvAsFloat32("GROQ_TEMPERATURE", c.LLM.Groq.Temperature)
	c.LLM.Gemini.Project = getEnv("GCP_PROJECT", c.LLM.Gemini.Project)
	c.LLM.Gemini.Region = getEnv("GCP_REGION", c.LLM.Gemini.Region)
	c.LLM.Gemini.Model = getEnv("GEMINI_MODEL", c.LLM.Gemini.Model)
	c.LLM.Bedrock.Region = getEnv("AWS_REGION", c.LLM.Bedrock.Region)
	c.LLM.Bedrock.Model = getEnv("BEDROCK_MODEL", c.LLM.Bedrock.Model)

	c.Storage.S3Region = getEnv("AWS_REGION", c.Storage.S3Region)
	c.Storage.S3Endpoint = getEnv("S3_ENDPOINT", c.Storage.S3Endpoint)
	c.Storage.EnableS3 = getEnvAsBool("STORAGE_ENABLE_S3", c.Storage.EnableS3)
	c.Storage.EnableGCS = getEnvAsBool("STORAGE_ENABLE_GCS", c.Storage.EnableGCS)

	c.Events.Brokers = getEnvAsList("KAFKA_BROKERS", c.Events.Brokers)
	c.Events.Topic = getEnv("KAFKA_TOPIC", c.Events.Topic)

	c.Extract.PDFStrategy = getEnv("PDF_STRATEGY", c.Extract.PDFStrategy)
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
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

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration. requireDB is false for
// in-memory runs where no DSN is needed.
func (c *Config) Validate(requireDB bool) error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Database, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Database,
				validation.Field(&c.Database.Driver, validation.Required, validation.In("postgres", "sqlite", "firestore")),
				validation.Field(&c.Database.DSN, validation.When(requireDB && c.Database.Driver == "postgres", validation.Required)),
				validation.Field(&c.Database.FirestoreProject, validation.When(requireDB && c.Database.Driver == "firestore", validation.Required)),
			)
		})),
		validation.Field(&c.Server, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Server,
				validation.Field(&c.Server.GRPCAddr, validation.Required),
			)
		})),
		validation.Field(&c.Processing, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Processing,
				validation.Field(&c.Processing.MaxRetries, validation.Required, validation.Min(1)),
				validation.Field(&c.Processing.RetryDelay, validation.Min(time.Duration(0))),
			)
		})),
		validation.Field(&c.LLM, validation.By(func(any) error {
			return validation.ValidateStruct(&c.LLM,
				validation.Field(&c.LLM.Providers, validation.Required, validation.Each(validation.In("gemini", "groq", "bedrock"))),
				validation.Field(&c.LLM.MaxRetries, validation.Required, validation.Min(1)),
				validation.Field(&c.LLM.Cooldown, validation.Required),
			)
		})),
		validation.Field(&c.Extract, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Extract,
				validation.Field(&c.Extract.PDFStrategy, validation.In("heuristic", "parser")),
			)
		})),
	)
	if err != nil {
		return NewAppError(CodeConfig, "invalid configuration", fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	return nil
}

// ProviderEnabled reports whether name appears in the configured failover order.
func (c *LLMConfig) ProviderEnabled(name string) bool {
	for _, p := range c.Providers {
		if p == name {
			return true
		}
	}
	return false
}
