package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName          string
	AppVersion       string
	Environment      string
	ListenAddr       string
	AuthCookieSecure bool

	LoginPath  string
	PublicPath string

	BootstrapAdminEmail string
	BootstrapAdminToken string
	SeedDemoData        bool

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	MediaDir     string
	MediaBaseURL string

	BillingProviderName    string
	BillingProviderBaseURL string
	BillingProviderAPIKey  string
	BillingWebhookSecret   string
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewBillingConfigHolder),
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	return Config{
		AppName:          getenv("APP_SERVICE", "deskly"),
		AppVersion:       getenv("APP_VERSION", "0.1.0"),
		Environment:      environment,
		ListenAddr:       getenv("LISTEN_ADDR", ":8080"),
		AuthCookieSecure: authCookieSecure,

		LoginPath:  getenv("AUTH_LOGIN_PATH", "/login"),
		PublicPath: getenv("AUTH_PUBLIC_PATH", "/"),

		BootstrapAdminEmail: strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_EMAIL", "admin@deskly.local")),
		BootstrapAdminToken: strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_TOKEN", "")),
		SeedDemoData:        getenvBool("SEED_DEMO_DATA", false),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "deskly"),
		DBUser:            getenv("DATABASE_USER", "deskly"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),

		MediaDir:     getenv("MEDIA_DIR", "./media"),
		MediaBaseURL: getenv("MEDIA_BASE_URL", "http://localhost:8080/media"),

		BillingProviderName:    strings.ToLower(getenv("BILLING_PROVIDER", "stripe")),
		BillingProviderBaseURL: strings.TrimRight(getenv("BILLING_PROVIDER_BASE_URL", "https://api.stripe.com"), "/"),
		BillingProviderAPIKey:  strings.TrimSpace(getenv("BILLING_PROVIDER_API_KEY", "")),
		BillingWebhookSecret:   strings.TrimSpace(getenv("BILLING_WEBHOOK_SECRET", "")),
	}
}

func (c Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
