package config

import (
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Store backends
const (
	BackendSupabase = "supabase"
	BackendGitHub   = "github"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	LogDir      string

	StoreBackend string
	StoreTimeout time.Duration
	CacheTTL     time.Duration
	// CacheStaleWindow lets reads fall back to the last good snapshot while
	// the store is unavailable. Zero disables the fallback.
	CacheStaleWindow time.Duration

	// Supabase (REST table and JWT verification)
	SupabaseURL     string
	SupabaseKey     string
	SupabaseTable   string
	SupabaseDBURL   string
	SupabaseJWKSURL string // Constructed from SupabaseURL + /auth/v1/.well-known/jwks.json
	TablePrefix     string

	// GitHub contents API
	GitHubAPIURL string
	GitHubToken  string
	GitHubRepo   string
	GitHubBranch string
	GitHubPath   string

	// Admin credentials
	AdminPassword     string
	AdminPasswordHash string // bcrypt, preferred over AdminPassword
	JWTAuth           bool   // accept Supabase JWTs with an admin role

	// ProtectedKeys overrides the schema's protected flags when non-empty
	ProtectedKeys []string
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	supabaseURL := strings.TrimRight(getEnv("SUPABASE_URL", ""), "/")

	jwksURL := ""
	if supabaseURL != "" {
		jwksURL = supabaseURL + "/auth/v1/.well-known/jwks.json"
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		LogDir:      getEnv("LOG_DIR", ""),

		StoreBackend:     getEnv("STORE_BACKEND", BackendMemory),
		StoreTimeout:     getDuration("STORE_TIMEOUT", DefaultStoreTimeout),
		CacheTTL:         getDuration("CACHE_TTL", DefaultCacheTTL),
		CacheStaleWindow: getDuration("CACHE_STALE_WINDOW", 0),

		SupabaseURL:     supabaseURL,
		SupabaseKey:     getEnv("SUPABASE_KEY", ""),
		SupabaseTable:   getEnv("SUPABASE_TABLE", getTablePrefix(env)+"catalog"),
		SupabaseDBURL:   getEnv("SUPABASE_DB_URL", ""),
		SupabaseJWKSURL: jwksURL,
		TablePrefix:     getTablePrefix(env),

		GitHubAPIURL: getEnv("GITHUB_API_URL", "https://api.github.com"),
		GitHubToken:  getEnv("GITHUB_TOKEN", ""),
		GitHubRepo:   getEnv("GITHUB_REPO", ""),
		GitHubBranch: getEnv("GITHUB_BRANCH", "main"),
		GitHubPath:   getEnv("GITHUB_PATH", "data/catalog.json"),

		AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		JWTAuth:           getEnv("JWT_AUTH", "false") == "true",

		ProtectedKeys: splitList(getEnv("PROTECTED_KEYS", "")),
	}
}

// Validate checks that the selected backend has what it needs
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.StoreBackend,
			validation.Required,
			validation.In(BackendSupabase, BackendGitHub, BackendPostgres, BackendMemory),
		),
		validation.Field(&c.StoreTimeout, validation.Required, validation.Max(MaxStoreTimeout)),
		validation.Field(&c.CacheTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.CacheStaleWindow, validation.Min(time.Duration(0))),
		validation.Field(&c.SupabaseURL,
			validation.When(c.StoreBackend == BackendSupabase || c.JWTAuth, validation.Required),
		),
		validation.Field(&c.SupabaseKey, validation.When(c.StoreBackend == BackendSupabase, validation.Required)),
		validation.Field(&c.SupabaseTable, validation.When(c.StoreBackend == BackendSupabase, validation.Required)),
		validation.Field(&c.SupabaseDBURL, validation.When(c.StoreBackend == BackendPostgres, validation.Required)),
		validation.Field(&c.GitHubToken, validation.When(c.StoreBackend == BackendGitHub, validation.Required)),
		validation.Field(&c.GitHubRepo,
			validation.When(c.StoreBackend == BackendGitHub, validation.Required, validation.By(ownerSlashName)),
		),
		validation.Field(&c.GitHubPath, validation.When(c.StoreBackend == BackendGitHub, validation.Required)),
	)
}

// HasAdminCredentials reports whether any admin auth method is configured
func (c *Config) HasAdminCredentials() bool {
	return c.AdminPassword != "" || c.AdminPasswordHash != "" || c.JWTAuth
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func ownerSlashName(value interface{}) error {
	repo, _ := value.(string)
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return validation.NewError("validation_repo_format", "must be in owner/name form")
	}
	return nil
}
