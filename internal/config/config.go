package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string   `env:"HTTP_PORT" envDefault:"8000"`
	DatabaseURL string   `env:"DATABASE_URL,required"`
	AutoMigrate bool     `env:"AUTO_MIGRATE" envDefault:"true"`
	CORSOrigins []string `env:"CORS_ORIGIN" envSeparator:","`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// TokenStore es el único lugar donde viven las referencias de refresh.
	// Todas las réplicas deben usar el mismo valor.
	TokenStore string `env:"TOKEN_STORE" envDefault:"postgres"`

	JWTSecret     string        `env:"JWT_SECRET"`
	JWTIssuer     string        `env:"JWT_ISSUER" envDefault:"videotube"`
	JWTAccessTTL  time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	JWTRefreshTTL time.Duration `env:"JWT_REFRESH_TTL" envDefault:"240h"`

	Cookie     CookieConfig     `envPrefix:"COOKIE_"`
	Pagination PaginationConfig `envPrefix:"PAGE_"`

	AggregationTimeout time.Duration `env:"AGGREGATION_TIMEOUT" envDefault:"3s"`
	ToggleRateLimit    int           `env:"TOGGLE_RATE_LIMIT" envDefault:"60"`
	ToggleRateWindow   time.Duration `env:"TOGGLE_RATE_WINDOW" envDefault:"1m"`
}

const (
	TokenStorePostgres = "postgres"
	TokenStoreRedis    = "redis"
)

// CookieConfig son las opciones de las cookies de sesión.
type CookieConfig struct {
	HTTPOnly bool          `env:"HTTP_ONLY" envDefault:"true"`
	Secure   bool          `env:"SECURE" envDefault:"true"`
	SameSite string        `env:"SAME_SITE" envDefault:"strict"`
	Domain   string        `env:"DOMAIN"`
	Path     string        `env:"PATH" envDefault:"/"`
	MaxAge   time.Duration `env:"MAX_AGE" envDefault:"240h"`
}

// SameSiteMode traduce SameSite al valor de net/http.
func (c CookieConfig) SameSiteMode() http.SameSite {
	switch strings.ToLower(strings.TrimSpace(c.SameSite)) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	case "default", "":
		return http.SameSiteDefaultMode
	}
	return http.SameSiteStrictMode
}

// PaginationConfig limita los listados.
type PaginationConfig struct {
	DefaultSize int `env:"DEFAULT_SIZE" envDefault:"10"`
	MaxSize     int `env:"MAX_SIZE" envDefault:"100"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rechaza combinaciones que el arranque no puede cumplir.
func (c *Config) Validate() error {
	c.TokenStore = strings.ToLower(strings.TrimSpace(c.TokenStore))
	switch c.TokenStore {
	case TokenStorePostgres:
	case TokenStoreRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("TOKEN_STORE=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("TOKEN_STORE must be %q or %q, got %q", TokenStorePostgres, TokenStoreRedis, c.TokenStore)
	}
	return nil
}
