// Package config provides configuration management for the IMMCAD API service.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// hardenedEnvironmentPattern matches runtime environment names that should
// be treated as production for policy-gating purposes.
var hardenedEnvironmentPattern = regexp.MustCompile(`^(production|prod|ci)(?:[-_].+)?$`)

// Config holds the configuration for the IMMCAD API service.
type Config struct {
	Port        string
	Environment string

	APIBearerTokenFile string
	APIBearerToken     string

	OpenAIAPIKeyFile string
	OpenAIAPIKey     string
	GeminiAPIKeyFile string
	GeminiAPIKey     string
	GeminiModel      string
	PrimaryProvider  string

	EnableScaffoldProvider           bool
	AllowScaffoldSyntheticCitations  bool
	EnableCaseSearch                 bool
	EnableOfficialCaseSources        bool
	ExportPolicyGateEnabled          bool
	DocumentRequireHTTPS             bool

	ProviderCircuitBreakerFailureThreshold int
	ProviderCircuitBreakerOpenSeconds      int

	RedisURL           string
	RateLimitPerMinute int

	IngestionCheckpointStatePath string
	SourceRegistryPath           string
	SourcePolicyPath             string
	FetchPolicyPath              string

	CitationTrustedDomains []string
	ImmcadAPIBaseURL       string

	RequestTimeout time.Duration
}

// NewConfig creates a new Config from environment variables with defaults.
func NewConfig() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		APIBearerTokenFile: getEnv("API_BEARER_TOKEN_FILE", ""),
		APIBearerToken:     getEnv("API_BEARER_TOKEN", ""),

		OpenAIAPIKeyFile: getEnv("OPENAI_API_KEY_FILE", ""),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKeyFile: getEnv("GEMINI_API_KEY_FILE", ""),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		PrimaryProvider:  getEnv("PRIMARY_PROVIDER", "openai"),

		EnableScaffoldProvider:          getBoolEnv("ENABLE_SCAFFOLD_PROVIDER", false),
		AllowScaffoldSyntheticCitations: getBoolEnv("ALLOW_SCAFFOLD_SYNTHETIC_CITATIONS", false),
		EnableCaseSearch:                getBoolEnv("ENABLE_CASE_SEARCH", true),
		EnableOfficialCaseSources:       getBoolEnv("ENABLE_OFFICIAL_CASE_SOURCES", true),
		ExportPolicyGateEnabled:         getBoolEnv("EXPORT_POLICY_GATE_ENABLED", true),
		DocumentRequireHTTPS:            getBoolEnv("DOCUMENT_REQUIRE_HTTPS", true),

		ProviderCircuitBreakerFailureThreshold: getIntEnv("PROVIDER_CIRCUIT_BREAKER_FAILURE_THRESHOLD", 3),
		ProviderCircuitBreakerOpenSeconds:      getIntEnv("PROVIDER_CIRCUIT_BREAKER_OPEN_SECONDS", 30),

		RedisURL:           getEnv("REDIS_URL", ""),
		RateLimitPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 60),

		IngestionCheckpointStatePath: getEnv("INGESTION_CHECKPOINT_STATE_PATH", "data/checkpoints/ingestion_checkpoint.json"),
		SourceRegistryPath:           getEnv("SOURCE_REGISTRY_PATH", "config/source_registry.json"),
		SourcePolicyPath:             getEnv("SOURCE_POLICY_PATH", "config/source_policy.yaml"),
		FetchPolicyPath:              getEnv("FETCH_POLICY_PATH", "config/fetch_policy.yaml"),

		CitationTrustedDomains: getListEnv("CITATION_TRUSTED_DOMAINS", []string{"www.canada.ca", "laws-lois.justice.gc.ca"}),
		ImmcadAPIBaseURL:       getEnv("IMMCAD_API_BASE_URL", "http://localhost:8080"),

		RequestTimeout: getDurationEnv("REQUEST_TIMEOUT", 30*time.Second),
	}
}

// IsProduction reports whether the configured runtime environment matches
// the hardened environment pattern (production, prod, or ci, optionally
// suffixed with -something/_something).
func (c *Config) IsProduction() bool {
	return hardenedEnvironmentPattern.MatchString(strings.ToLower(strings.TrimSpace(c.Environment)))
}

// LoadAPIBearerToken loads the operations bearer token from file or environment.
func (c *Config) LoadAPIBearerToken() (string, error) {
	return loadSecret(c.APIBearerTokenFile, c.APIBearerToken, "API_BEARER_TOKEN_FILE", "API_BEARER_TOKEN")
}

// LoadOpenAIAPIKey loads the OpenAI API key from file or environment.
func (c *Config) LoadOpenAIAPIKey() (string, error) {
	return loadSecret(c.OpenAIAPIKeyFile, c.OpenAIAPIKey, "OPENAI_API_KEY_FILE", "OPENAI_API_KEY")
}

// LoadGeminiAPIKey loads the Gemini API key from file or environment.
func (c *Config) LoadGeminiAPIKey() (string, error) {
	return loadSecret(c.GeminiAPIKeyFile, c.GeminiAPIKey, "GEMINI_API_KEY_FILE", "GEMINI_API_KEY")
}

func loadSecret(file, value, fileEnvName, envName string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", fileEnvName, err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if value != "" {
		return value, nil
	}
	return "", fmt.Errorf("secret not configured: set %s or %s", fileEnvName, envName)
}

// Validate validates the configuration, including production-only
// hardening rules (scaffold provider and synthetic citations must be
// disabled, and a bearer token must be configured, in production).
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.PrimaryProvider != "openai" && c.PrimaryProvider != "gemini" {
		return fmt.Errorf("PRIMARY_PROVIDER must be one of openai, gemini, got %q", c.PrimaryProvider)
	}
	if c.ProviderCircuitBreakerFailureThreshold < 1 {
		return errors.New("PROVIDER_CIRCUIT_BREAKER_FAILURE_THRESHOLD must be >= 1")
	}
	if c.ProviderCircuitBreakerOpenSeconds < 1 {
		return errors.New("PROVIDER_CIRCUIT_BREAKER_OPEN_SECONDS must be >= 1")
	}
	if c.IsProduction() {
		if c.EnableScaffoldProvider {
			return errors.New("ENABLE_SCAFFOLD_PROVIDER must be false in production")
		}
		if c.AllowScaffoldSyntheticCitations {
			return errors.New("ALLOW_SCAFFOLD_SYNTHETIC_CITATIONS must be false in production")
		}
		if _, err := c.LoadAPIBearerToken(); err != nil {
			return fmt.Errorf("API_BEARER_TOKEN is required in production: %w", err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
