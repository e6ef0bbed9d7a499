package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultDisclaimer = "This is general information, not legal advice. For advice about your situation, please speak with one of our attorneys."

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
	AdminJWTSecret     string

	// Session state
	StateBackend       string
	SessionTTL         time.Duration
	HistoryLimit       int
	DialogueStateTable string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Language model
	BedrockModelID          string
	BedrockEmbeddingModelID string
	GeminiAPIKey            string
	GeminiModelID           string
	LLMTimeout              time.Duration

	// Retrieval
	RetrievalTimeout  time.Duration
	RetrievalTopK     int
	RetrievalMinScore float64
	RetrievalMinChars int

	// Contact capture
	ContactAskWindow int
	ContactMaxAsks   int

	// Persona
	PersonaName      string
	FirmName         string
	DomainDisclaimer string

	DatabaseURL   string
	ArchiveBucket string

	// Consultation hand-off email
	NotifyProvider    string
	SendGridAPIKey    string
	NotifyFromEmail   string
	NotifyFromName    string
	IntakeNotifyEmail string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),

		StateBackend:       strings.ToLower(strings.TrimSpace(getEnv("STATE_BACKEND", "redis"))),
		SessionTTL:         getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		HistoryLimit:       getEnvAsInt("HISTORY_LIMIT", 20),
		DialogueStateTable: getEnv("DIALOGUE_STATE_TABLE", "dialogue_sessions"),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		BedrockModelID:          getEnv("BEDROCK_MODEL_ID", ""),
		BedrockEmbeddingModelID: getEnv("BEDROCK_EMBEDDING_MODEL_ID", ""),
		GeminiAPIKey:            getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:           getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		LLMTimeout:              getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),

		RetrievalTimeout:  getEnvAsDuration("RETRIEVAL_TIMEOUT", 5*time.Second),
		RetrievalTopK:     getEnvAsInt("RETRIEVAL_TOP_K", 5),
		RetrievalMinScore: getEnvAsFloat("RETRIEVAL_MIN_SCORE", 0.25),
		RetrievalMinChars: getEnvAsInt("RETRIEVAL_MIN_CHARS", 50),

		ContactAskWindow: getEnvAsInt("CONTACT_ASK_WINDOW", 3),
		ContactMaxAsks:   getEnvAsInt("CONTACT_MAX_ASKS", 2),

		PersonaName:      getEnv("PERSONA_NAME", "Intake Assistant"),
		FirmName:         getEnv("FIRM_NAME", "our firm"),
		DomainDisclaimer: getEnv("DOMAIN_DISCLAIMER", defaultDisclaimer),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		ArchiveBucket: getEnv("ARCHIVE_BUCKET", ""),

		NotifyProvider:    strings.ToLower(strings.TrimSpace(getEnv("NOTIFY_PROVIDER", ""))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		NotifyFromEmail:   getEnv("NOTIFY_FROM_EMAIL", ""),
		NotifyFromName:    getEnv("NOTIFY_FROM_NAME", "Intake Assistant"),
		IntakeNotifyEmail: getEnv("INTAKE_NOTIFY_EMAIL", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
