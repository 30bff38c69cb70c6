package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string

	// Hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often PgBouncer/pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	// PublicBaseURL is the externally reachable URL for this backend
	// (required for webhook registration and the OAuth redirect).
	PublicBaseURL string

	DB DBConfig

	Shopify ShopifyConfig

	// AdminAllowedOrigins is a comma-separated allowlist of origins allowed
	// to call the admin API from a separately hosted admin UI during dev.
	AdminAllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

type ShopifyConfig struct {
	// APIKey/APISecret are the app's client id/secret pair. The secret signs
	// OAuth callbacks, app-proxy requests and webhook payloads alike.
	APIKey    string
	APISecret string

	// Scopes is the comma-separated OAuth scope list requested on install.
	Scopes string

	// RedirectURL is the OAuth callback URL registered with Shopify.
	RedirectURL string

	APIVersion string

	// DomainSuffix is appended to bare shop names ("foo" -> "foo.myshopify.com").
	DomainSuffix string
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	// Cloud hosts set PORT. Prefer it when HTTP_ADDR isn't explicitly set.
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8080"
		}
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		PublicBaseURL:  os.Getenv("PUBLIC_BASE_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "popclips"),
			User:     env("DB_USER", "popclips"),
			Password: env("DB_PASSWORD", "popclips"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		Shopify: ShopifyConfig{
			APIKey:       os.Getenv("SHOPIFY_API_KEY"),
			APISecret:    os.Getenv("SHOPIFY_API_SECRET"),
			Scopes:       env("SHOPIFY_SCOPES", "read_products,write_files,read_files,read_orders"),
			RedirectURL:  os.Getenv("SHOPIFY_REDIRECT_URL"),
			APIVersion:   env("SHOPIFY_API_VERSION", "2026-01"),
			DomainSuffix: env("SHOPIFY_DOMAIN_SUFFIX", "myshopify.com"),
		},

		AdminAllowedOrigins: envList("ADMIN_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4173"),
	}
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
