package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ErrConfiguration marks a missing or invalid setting. Runs fail fast on it.
var ErrConfiguration = errors.New("configuration error")

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendAirtable = "airtable"
)

const (
	defaultAuthURL         = "https://auth.domain.com.au/v1"
	defaultRedirectURI     = "http://localhost:3000/oauth/callback"
	defaultScopes          = "openid profile api_listings_read api_agencies_read offline_access"
	defaultAirtableAPIURL  = "https://api.airtable.com/v0"
	defaultAirtableTable   = "Domain API"
	defaultSyncSchedule    = "*/10 * * * *"
	defaultRefreshSchedule = "*/30 * * * *"
)

type Config struct {
	// Partner API + OAuth2
	DomainAPIBaseURL string
	DomainAuthURL    string
	ClientID         string
	ClientSecret     string
	RedirectURI      string
	Scopes           []string

	// Storage
	CredentialBackend string
	TokenFile         string
	RecordBackend     string
	DatabaseURL       string
	AirtableAPIKey    string
	AirtableBaseID    string
	AirtableAPIURL    string
	AirtableTable     string

	// Runtime
	Port            string
	SyncSchedule    string
	RefreshSchedule string
	PageSize        int
	LogLevel        string
	Environment     string
	ShutdownTimeout int // seconds
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	pageSize, err := getEnvInt("PAGE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("%w: PAGE_SIZE must be positive", ErrConfiguration)
	}

	shutdownTimeout, err := getEnvInt("SHUTDOWN_TIMEOUT", 30)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DomainAPIBaseURL: strings.TrimRight(os.Getenv("DOMAIN_API_BASE_URL"), "/"),
		DomainAuthURL:    strings.TrimRight(getEnv("DOMAIN_AUTH_URL", defaultAuthURL), "/"),
		ClientID:         os.Getenv("CLIENT_ID"),
		ClientSecret:     os.Getenv("CLIENT_SECRET"),
		RedirectURI:      getEnv("REDIRECT_URI", defaultRedirectURI),
		Scopes:           strings.Fields(getEnv("OAUTH_SCOPES", defaultScopes)),

		CredentialBackend: strings.ToLower(getEnv("CREDENTIAL_BACKEND", BackendFile)),
		TokenFile:         getEnv("TOKEN_FILE", "./tokens.json"),
		RecordBackend:     strings.ToLower(getEnv("RECORD_BACKEND", BackendAirtable)),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		AirtableAPIKey:    os.Getenv("AIRTABLE_API_KEY"),
		AirtableBaseID:    os.Getenv("AIRTABLE_BASE_ID"),
		AirtableAPIURL:    strings.TrimRight(getEnv("AIRTABLE_API_URL", defaultAirtableAPIURL), "/"),
		AirtableTable:     getEnv("AIRTABLE_TABLE", defaultAirtableTable),

		Port:            getEnv("PORT", "3000"),
		SyncSchedule:    getEnv("SYNC_SCHEDULE", defaultSyncSchedule),
		RefreshSchedule: getEnv("REFRESH_SCHEDULE", defaultRefreshSchedule),
		PageSize:        pageSize,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Environment:     getEnv("APP_ENV", "development"),
		ShutdownTimeout: shutdownTimeout,
	}

	switch cfg.CredentialBackend {
	case BackendFile, BackendPostgres:
	default:
		return nil, fmt.Errorf("%w: unknown CREDENTIAL_BACKEND %q", ErrConfiguration, cfg.CredentialBackend)
	}
	switch cfg.RecordBackend {
	case BackendAirtable, BackendPostgres:
	default:
		return nil, fmt.Errorf("%w: unknown RECORD_BACKEND %q", ErrConfiguration, cfg.RecordBackend)
	}

	if cfg.NeedsDatabase() && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("%w: DATABASE_URL is required for the postgres backend", ErrConfiguration)
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		fmt.Println("Warning: CLIENT_ID or CLIENT_SECRET not set, OAuth login and token refresh will not work")
	}

	return cfg, nil
}

// NeedsDatabase reports whether any backend is Postgres.
func (c *Config) NeedsDatabase() bool {
	return c.CredentialBackend == BackendPostgres || c.RecordBackend == BackendPostgres
}

// Validate checks the settings a sync run cannot start without.
func (c *Config) Validate() error {
	if c.DomainAPIBaseURL == "" {
		return fmt.Errorf("%w: DOMAIN_API_BASE_URL is not defined in environment variables", ErrConfiguration)
	}
	if c.RecordBackend == BackendAirtable && (c.AirtableAPIKey == "" || c.AirtableBaseID == "") {
		return fmt.Errorf("%w: Airtable API credentials are missing", ErrConfiguration)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", ErrConfiguration, key, val)
	}
	return n, nil
}
