package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/querysprout/fanout-analyzer/internal/models"
)

type Config struct {
	// Server config
	Server ServerConfig

	// CSRF and session cookie config
	Security SecurityConfig

	// model provider config
	LLM LLMConfig

	// content fetcher config
	Fetcher FetcherConfig

	// form defaults, optionally overridden by a YAML file
	Defaults DefaultsConfig

	// limits
	Limits LimitsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string
	Environment  string // development, staging, production
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	CSRFSecret        string
	SessionCookieName string
	SecureCookies     bool // true in production
}

// LLMConfig holds model provider configuration.
type LLMConfig struct {
	Provider          string // gemini, openai or anthropic
	APIKey            string
	BaseURL           string // override for proxies, empty uses the provider default
	FastModel         string
	CapableModel      string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxConcurrent     int
}

// FetcherConfig holds content fetcher settings.
type FetcherConfig struct {
	Timeout time.Duration
}

// DefaultsConfig holds the pre-selected form values.
type DefaultsConfig struct {
	Depth        string   `yaml:"depth"`
	Target       string   `yaml:"target"`
	Tier         string   `yaml:"tier"`
	VariantTypes []string `yaml:"variant_types"`
}

// LimitsConfig holds per-run limits.
type LimitsConfig struct {
	MaxQueries   int
	HistoryLimit int
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load builds the configuration from the environment, an optional
// secrets directory and an optional YAML defaults file. Everything the
// components need is in the returned struct; nothing reads the
// environment after startup.
func Load() (*Config, error) {
	// Load .env file if it exists; in production env vars come from the
	// orchestration platform.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Server = ServerConfig{
		Address:      getEnvOrDefault("SERVER_ADDRESS", ":8080"),
		Environment:  getEnvOrDefault("APP_ENV", "development"),
		ReadTimeout:  getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getDurationOrDefault("SERVER_WRITE_TIMEOUT", 5*time.Minute),
		IdleTimeout:  getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
	}

	cfg.Security = SecurityConfig{
		CSRFSecret:        os.Getenv("CSRF_SECRET"),
		SessionCookieName: getEnvOrDefault("SESSION_COOKIE_NAME", "querysprout_session"),
		SecureCookies:     cfg.Server.Environment == "production",
	}

	secrets, err := loadSecrets(getEnvOrDefault("SECRETS_DIR", "secrets"))
	if err != nil {
		return nil, err
	}

	provider := strings.ToLower(getEnvOrDefault("LLM_PROVIDER", "gemini"))
	cfg.LLM = LLMConfig{
		Provider:          provider,
		APIKey:            apiKeyFor(provider, secrets),
		BaseURL:           os.Getenv("LLM_BASE_URL"),
		FastModel:         os.Getenv("LLM_FAST_MODEL"),
		CapableModel:      os.Getenv("LLM_CAPABLE_MODEL"),
		Timeout:           getDurationOrDefault("LLM_TIMEOUT", 90*time.Second),
		RequestsPerMinute: getIntOrDefault("LLM_REQUESTS_PER_MINUTE", 30),
		MaxConcurrent:     getIntOrDefault("LLM_MAX_CONCURRENT", 4),
	}

	cfg.Fetcher = FetcherConfig{
		Timeout: getDurationOrDefault("FETCH_TIMEOUT", 15*time.Second),
	}

	cfg.Defaults = DefaultsConfig{
		Depth:  string(models.DepthStandard),
		Target: string(models.TargetBoth),
		Tier:   string(models.TierFast),
		VariantTypes: []string{
			string(models.VariantEquivalent),
			string(models.VariantFollowUp),
			string(models.VariantSpecification),
			string(models.VariantEntailment),
		},
	}
	if err := loadDefaultsFile(getEnvOrDefault("DEFAULTS_FILE", "querysprout.yaml"), &cfg.Defaults); err != nil {
		return nil, err
	}

	cfg.Limits = LimitsConfig{
		MaxQueries:   getIntOrDefault("MAX_QUERIES", 100),
		HistoryLimit: getIntOrDefault("HISTORY_LIMIT", models.DefaultHistoryLimit),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// apiKeyFor resolves the API key for the chosen provider: environment
// variable first, then the secrets directory.
func apiKeyFor(provider string, secrets map[string]string) string {
	envKeys := map[string]string{
		"gemini":    "GEMINI_API_KEY",
		"openai":    "OPENAI_API_KEY",
		"anthropic": "ANTHROPIC_API_KEY",
	}
	if key := os.Getenv(envKeys[provider]); key != "" {
		return key
	}
	return secrets[provider+"-api-key"]
}

// loadSecrets reads a directory of plain-text secret files: the filename
// is the key name, the trimmed contents are the value. A missing
// directory is not an error.
func loadSecrets(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[entry.Name()] = value
		}
	}
	return secrets, nil
}

// loadDefaultsFile overlays form defaults from a YAML file, if present.
func loadDefaultsFile(path string, defaults *DefaultsConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading defaults file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, defaults); err != nil {
		return fmt.Errorf("parsing defaults file %s: %w", path, err)
	}
	return nil
}

// validate checks that all required configuration is present. Fail fast:
// better at startup than when a missing value is first used.
func (c *Config) validate() error {
	var errs []error

	validProviders := map[string]bool{
		"gemini":    true,
		"openai":    true,
		"anthropic": true,
	}
	if !validProviders[c.LLM.Provider] {
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be one of: gemini, openai, anthropic (got: %s)", c.LLM.Provider))
	}

	// A missing key is an authentication failure at startup, before any
	// network call is attempted.
	if validProviders[c.LLM.Provider] && c.LLM.APIKey == "" {
		errs = append(errs, fmt.Errorf("%w: no API key configured for provider %s", models.ErrAuthentication, c.LLM.Provider))
	}

	if c.Security.CSRFSecret == "" {
		errs = append(errs, errors.New("CSRF_SECRET is required"))
	} else if len(c.Security.CSRFSecret) < 32 {
		errs = append(errs, errors.New("CSRF_SECRET must be at least 32 characters"))
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.Server.Environment] {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of: development, staging, production (got: %s)", c.Server.Environment))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%w", errors.Join(errs...))
	}
	return nil
}

// getEnvOrDefault returns the env value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
