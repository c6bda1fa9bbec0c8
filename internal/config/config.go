package config // package config loads application configuration from environment variables

import (
	"log"      // log is used to report configuration errors and halt execution
	"net/http" // http.SameSite for the refresh cookie
	"strings"  // strings normalizes enum-like values
	"time"     // time parses durations

	"github.com/joho/godotenv" // godotenv loads a local .env file when present
	"github.com/spf13/viper"   // viper reads the environment with defaults
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Secrets and connection details are required;
// lifetimes and cookie flags fall back to the storefront defaults.
type Config struct {
	Env             string        // application environment (e.g. "dev", "prod")
	Port            string        // HTTP port to listen on
	DBUser          string        // database username
	DBPass          string        // database password (optional)
	DBHost          string        // database host address
	DBPort          string        // database port number
	DBName          string        // database name
	DBTimeout       time.Duration // upper bound for a single primary-store call
	AccessSecret    string        // secret used to sign access tokens
	RefreshSecret   string        // secret used to sign refresh tokens
	AccessTTL       time.Duration // access token lifetime
	RefreshTTL      time.Duration // refresh token lifetime
	JWTIssuer       string        // iss claim stamped on every token
	RefreshRotation bool          // rotate refresh tokens and keep a revocation record
	BcryptCost      int           // bcrypt cost for password hashing
	ClientURL       string        // browser origin allowed by CORS
	CookieSecure    bool          // Secure flag of the refresh cookie
	CookieSameSite  string        // none | lax | strict
	GoogleClientID  string        // audience for Google ID tokens; empty disables Google login
	RabbitURL       string        // broker for catalog events; empty disables publishing
}

// Load reads configuration values from the environment (and a .env file if
// one exists) and returns a Config.  Required variables are enforced by
// must() and missing values cause the program to exit with a fatal log.
func Load() Config {
	_ = godotenv.Load() // a missing .env file is not an error

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h")
	v.SetDefault("JWT_ISSUER", "storefront")
	v.SetDefault("REFRESH_ROTATION", false)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("CLIENT_URL", "http://localhost:5173")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("COOKIE_SAMESITE", "none")
	v.SetDefault("DB_TIMEOUT", "5s")

	return Config{
		Env:             must(v, "APP_ENV"),
		Port:            must(v, "APP_PORT"),
		DBUser:          must(v, "DB_USER"),
		DBPass:          v.GetString("DB_PASS"), // empty allowed
		DBHost:          must(v, "DB_HOST"),
		DBPort:          must(v, "DB_PORT"),
		DBName:          must(v, "DB_NAME"),
		DBTimeout:       mustDuration(v, "DB_TIMEOUT"),
		AccessSecret:    must(v, "ACCESS_SECRET_KEY"),
		RefreshSecret:   must(v, "REFRESH_SECRET_KEY"),
		AccessTTL:       mustDuration(v, "ACCESS_TOKEN_TTL"),
		RefreshTTL:      mustDuration(v, "REFRESH_TOKEN_TTL"),
		JWTIssuer:       v.GetString("JWT_ISSUER"),
		RefreshRotation: v.GetBool("REFRESH_ROTATION"),
		BcryptCost:      v.GetInt("BCRYPT_COST"),
		ClientURL:       v.GetString("CLIENT_URL"),
		CookieSecure:    v.GetBool("COOKIE_SECURE"),
		CookieSameSite:  strings.ToLower(v.GetString("COOKIE_SAMESITE")),
		GoogleClientID:  v.GetString("GOOGLE_CLIENT_ID"),
		RabbitURL:       v.GetString("RABBITMQ_URL"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(v *viper.Viper, key string) string {
	s := v.GetString(key)
	if s == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return s
}

// mustDuration is like must() but parses the value as a time.Duration.
func mustDuration(v *viper.Viper, key string) time.Duration {
	s := must(v, key)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		log.Fatalf("invalid duration for %s: %q", key, s)
	}
	return d
}

// SameSite maps CookieSameSite onto the http constant.  Unknown values fall
// back to None, which cross-origin frontends need.
func (c Config) SameSite() http.SameSite {
	switch c.CookieSameSite {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteNoneMode
	}
}
