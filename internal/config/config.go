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
)

const (
	AppName     = "telegram-recycling-bot"
	EnvFileName = "config.env"
)

// Environment variable names.
const (
	EnvBotToken          = "BOT_TOKEN"
	EnvAdminTelegramID   = "ADMIN_TELEGRAM_ID"
	EnvSettingsKey       = "SETTINGS_KEY"
	EnvGuidanceProvider  = "GUIDANCE_PROVIDER"
	EnvGeminiAPIKey      = "GEMINI_API_KEY"
	EnvGeminiModel       = "GEMINI_MODEL"
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
	EnvOpenAIBaseURL     = "OPENAI_BASE_URL"
	EnvOpenAIModel       = "OPENAI_MODEL"
	EnvDBPath            = "RECYCLE_DB_PATH"
	EnvGuidanceTimeout   = "GUIDANCE_TIMEOUT"
	EnvGuidanceCacheTTL  = "GUIDANCE_CACHE_TTL"
	EnvGoogleMapsAPIKey  = "GOOGLE_MAPS_API_KEY"
	EnvRestrictToAllowed = "RESTRICT_TO_ALLOWED_USERS"
)

const (
	defaultDBPath   = "recycling.db"
	defaultTimeout  = 60 * time.Second
	defaultCacheTTL = 30 * 24 * time.Hour

	providerGemini = "gemini"
	providerOpenAI = "openai"
)

// Config holds everything the bot process needs at startup.
type Config struct {
	BotToken         string
	AdminTelegramID  int64
	SettingsKey      string
	GuidanceProvider string
	GeminiAPIKey     string
	GeminiModel      string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	DBPath           string
	GuidanceTimeout  time.Duration
	GuidanceCacheTTL time.Duration
	GoogleMapsAPIKey string
	RestrictUsers    bool
}

// Dir returns the application's config directory path.
func Dir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configBase, AppName), nil
}

// FilePath returns the full path to the env file.
func FilePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
// Variables already set in the environment win.
func LoadEnvFile() {
	path, err := FilePath()
	if err != nil {
		return
	}
	_ = godotenv.Load(path)
}

// MissingRequired lists required environment variables that are unset,
// taking the selected provider into account.
func MissingRequired() []string {
	required := []string{EnvBotToken, EnvAdminTelegramID, EnvSettingsKey}
	switch providerName(os.Getenv(EnvGuidanceProvider)) {
	case providerOpenAI:
		required = append(required, EnvOpenAIAPIKey)
	default:
		required = append(required, EnvGeminiAPIKey)
	}

	var missing []string
	for _, v := range required {
		if strings.TrimSpace(os.Getenv(v)) == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

func providerName(raw string) string {
	p := strings.ToLower(strings.TrimSpace(raw))
	if p == "" {
		return providerGemini
	}
	return p
}

// Load reads and validates the configuration from the environment.
func Load() (*Config, error) {
	if missing := MissingRequired(); len(missing) > 0 {
		return nil, fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	cfg := &Config{
		BotToken:         os.Getenv(EnvBotToken),
		SettingsKey:      os.Getenv(EnvSettingsKey),
		GuidanceProvider: providerName(os.Getenv(EnvGuidanceProvider)),
		GeminiAPIKey:     os.Getenv(EnvGeminiAPIKey),
		GeminiModel:      os.Getenv(EnvGeminiModel),
		OpenAIAPIKey:     os.Getenv(EnvOpenAIAPIKey),
		OpenAIBaseURL:    os.Getenv(EnvOpenAIBaseURL),
		OpenAIModel:      os.Getenv(EnvOpenAIModel),
		DBPath:           os.Getenv(EnvDBPath),
		GoogleMapsAPIKey: os.Getenv(EnvGoogleMapsAPIKey),
	}

	var errs []error

	adminID, err := strconv.ParseInt(strings.TrimSpace(os.Getenv(EnvAdminTelegramID)), 10, 64)
	if err != nil {
		errs = append(errs, fmt.Errorf("%s must be a valid integer: %w", EnvAdminTelegramID, err))
	}
	cfg.AdminTelegramID = adminID

	switch cfg.GuidanceProvider {
	case providerGemini, providerOpenAI:
	default:
		errs = append(errs, fmt.Errorf("%s must be %q or %q, got %q", EnvGuidanceProvider, providerGemini, providerOpenAI, cfg.GuidanceProvider))
	}

	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}

	if cfg.GuidanceTimeout, err = durationEnv(EnvGuidanceTimeout, defaultTimeout); err != nil {
		errs = append(errs, err)
	}
	if cfg.GuidanceCacheTTL, err = durationEnv(EnvGuidanceCacheTTL, defaultCacheTTL); err != nil {
		errs = append(errs, err)
	}

	if raw := strings.TrimSpace(os.Getenv(EnvRestrictToAllowed)); raw != "" {
		restrict, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be a boolean: %w", EnvRestrictToAllowed, err))
		}
		cfg.RestrictUsers = restrict
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 60s or 720h: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

// WriteEnvFile writes values to path with restrictive permissions (0600)
// since the file contains secrets. Existing keys in the file are kept unless
// overwritten.
func WriteEnvFile(path string, values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	merged := map[string]string{}
	if existing, err := godotenv.Read(path); err == nil {
		merged = existing
	}
	for k, v := range values {
		merged[k] = v
	}

	content, err := godotenv.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, []byte(content+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
