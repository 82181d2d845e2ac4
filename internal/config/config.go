package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Vision    VisionConfig
	Vector    VectorConfig
	Memory    MemoryConfig
	Files     FilesConfig
}

type AppConfig struct {
	Name               string
	Port               string
	Environment        string
	LogFilePath        string
	LLMLogFilePath     string
	CorsAllowedOrigins string
	APIPrefix          string
	NatsURL            string
	MetricsEnabled     bool
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
}

type RedisConfig struct {
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
	FastTier string // "redis" or "memory"
}

type LLMConfig struct {
	Provider    string // "openai" (any OpenAI-compatible server) or "ollama"
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type EmbeddingConfig struct {
	Provider      string // "openai", "ollama" or "gemini"
	Model         string
	BaseURL       string
	APIKey        string
	GeminiAPIKey  string
	OllamaBaseURL string
	MaxChars      int
	RateLimit     float64 // requests per second, 0 disables
	RateBurst     int
}

type VisionConfig struct {
	CaptionModel       string
	TesseractPath      string
	TesseractLanguages []string
}

type VectorConfig struct {
	Backend    string // "pgvector" or "chromem"
	ChromaPath string
}

type MemoryConfig struct {
	ConversationTTL   time.Duration
	CleanupMaxAgeDays int
	CleanupSchedule   string
	StoreTimeout      time.Duration
	StoreReadRetries  int
	RetrievalLimit    int
	ContextMaxChars   int
}

type FilesConfig struct {
	MaxFileSize int64
	UploadDir   string
	CacheDir    string
	ChunkSize   int
}

// SupportedExtensions groups accepted upload extensions by category.
var SupportedExtensions = map[string][]string{
	"text":          {".txt", ".md"},
	"documents":     {".pdf", ".docx", ".rtf"},
	"spreadsheets":  {".csv", ".xlsx"},
	"presentations": {".pptx"},
	"code":          {".py", ".js", ".json", ".yml", ".yaml", ".html", ".xml", ".css"},
	"images":        {".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff"},
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	llmBaseURL := getEnv("LLM_BASE_URL", "http://localhost:1234/v1")

	return &Config{
		App: AppConfig{
			Name:               getEnv("APP_NAME", "OwlynnLocalAI"),
			Port:               getEnv("APP_PORT", "8001"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LLMLogFilePath:     getEnv("LLM_LOG_FILE_PATH", "logs/llm_rag.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost,http://localhost:8080"),
			APIPrefix:          getEnv("API_PREFIX", "/api/v1"),
			NatsURL:            getEnv("NATS_URL", ""),
			MetricsEnabled:     getEnvAsBool("METRICS_ENABLED", true),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			Host:       getEnv("POSTGRES_HOST", "localhost"),
			Port:       getEnv("POSTGRES_PORT", "5432"),
			User:       getEnv("POSTGRES_USER", "owlynn"),
			Password:   getEnv("POSTGRES_PASSWORD", "owlynn_password"),
			Name:       getEnv("POSTGRES_DB", "owlynn_db"),
			SSLMode:    getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			FastTier: getEnv("FAST_TIER", "redis"),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "openai"),
			BaseURL:     llmBaseURL,
			APIKey:      getEnv("LLM_API_KEY", "none"),
			Model:       getEnv("LLM_MODEL", "Qwen3-14B"),
			Temperature: getEnvAsFloat("LLM_TEMPERATURE", 0.65),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 8096),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 120*time.Second),
		},
		Embedding: EmbeddingConfig{
			Provider:      getEnv("EMBEDDING_PROVIDER", "openai"),
			Model:         getEnv("EMBEDDING_MODEL", "intfloat/multilingual-e5-large"),
			BaseURL:       getEnv("EMBEDDING_BASE_URL", llmBaseURL),
			APIKey:        getEnv("EMBEDDING_API_KEY", "none"),
			GeminiAPIKey:  getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			MaxChars:      getEnvAsInt("EMBEDDING_MAX_CHARS", 8000),
			RateLimit:     getEnvAsFloat("EMBEDDING_RATE_LIMIT", 0),
			RateBurst:     getEnvAsInt("EMBEDDING_RATE_BURST", 1),
		},
		Vision: VisionConfig{
			CaptionModel:       getEnv("CAPTION_MODEL", ""),
			TesseractPath:      getEnv("TESSERACT_PATH", "tesseract"),
			TesseractLanguages: getEnvAsList("TESSERACT_LANGUAGES", []string{"eng", "tha"}),
		},
		Vector: VectorConfig{
			Backend:    getEnv("VECTOR_BACKEND", "pgvector"),
			ChromaPath: getEnv("CHROMA_PATH", filepath.Join("cache", "vectors")),
		},
		Memory: MemoryConfig{
			ConversationTTL:   getEnvAsDuration("CONVERSATION_TTL", 24*time.Hour),
			CleanupMaxAgeDays: getEnvAsInt("CLEANUP_MAX_AGE_DAYS", 30),
			CleanupSchedule:   getEnv("CLEANUP_SCHEDULE", "@daily"),
			StoreTimeout:      getEnvAsDuration("STORE_TIMEOUT", 10*time.Second),
			StoreReadRetries:  getEnvAsInt("STORE_READ_RETRIES", 2),
			RetrievalLimit:    getEnvAsInt("RETRIEVAL_LIMIT", 5),
			ContextMaxChars:   getEnvAsInt("CONTEXT_MAX_CHARS", 4000),
		},
		Files: FilesConfig{
			MaxFileSize: int64(getEnvAsInt("MAX_FILE_SIZE", 10*1024*1024)),
			UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
			CacheDir:    getEnv("CACHE_DIR", "cache"),
			ChunkSize:   getEnvAsInt("CHUNK_SIZE", 1000),
		},
	}
}

// DatabaseDSN prefers DB_CONNECTION_STRING and otherwise assembles the DSN
// from the POSTGRES_* parts.
func (c *Config) DatabaseDSN() string {
	if c.Database.Connection != "" {
		return c.Database.Connection
	}
	d := c.Database
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Category returns the upload category of ext, or "" when the extension is
// not supported. ext is matched case-insensitively and must include the dot.
func (f FilesConfig) Category(ext string) string {
	ext = strings.ToLower(ext)
	for category, exts := range SupportedExtensions {
		for _, e := range exts {
			if e == ext {
				return category
			}
		}
	}
	return ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
