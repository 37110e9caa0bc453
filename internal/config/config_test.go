package config

import (
	"net/http"
	"os"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/videotube")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != "8000" || !cfg.AutoMigrate {
		t.Fatalf("unexpected server defaults: %+v", cfg)
	}
	if cfg.JWTAccessTTL != 15*time.Minute || cfg.JWTRefreshTTL != 240*time.Hour {
		t.Fatalf("unexpected token ttls: %v %v", cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	}
	if cfg.Pagination.DefaultSize != 10 || cfg.Pagination.MaxSize != 100 {
		t.Fatalf("unexpected pagination: %+v", cfg.Pagination)
	}
	if !cfg.Cookie.HTTPOnly || !cfg.Cookie.Secure || cfg.Cookie.SameSiteMode() != http.SameSiteStrictMode {
		t.Fatalf("unexpected cookie defaults: %+v", cfg.Cookie)
	}
	if cfg.AggregationTimeout != 3*time.Second {
		t.Fatalf("unexpected aggregation timeout %v", cfg.AggregationTimeout)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/videotube")
	t.Setenv("CORS_ORIGIN", "http://localhost:3000,https://app.example.com")
	t.Setenv("COOKIE_SAME_SITE", "none")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("PAGE_MAX_SIZE", "25")
	t.Setenv("TOGGLE_RATE_LIMIT", "5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://app.example.com" {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
	if cfg.Cookie.Secure || cfg.Cookie.SameSiteMode() != http.SameSiteNoneMode {
		t.Fatalf("unexpected cookie config %+v", cfg.Cookie)
	}
	if cfg.Pagination.MaxSize != 25 || cfg.ToggleRateLimit != 5 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("DATABASE_URL")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestLoadConfigTokenStore(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/videotube")

	cfg, err := LoadConfig()
	if err != nil || cfg.TokenStore != TokenStorePostgres {
		t.Fatalf("expected postgres by default, got %+v %v", cfg, err)
	}

	t.Setenv("TOKEN_STORE", "redis")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected redis token store without REDIS_ADDR to fail")
	}

	t.Setenv("REDIS_ADDR", "localhost:6379")
	cfg, err = LoadConfig()
	if err != nil || cfg.TokenStore != TokenStoreRedis {
		t.Fatalf("expected redis token store, got %+v %v", cfg, err)
	}

	t.Setenv("TOKEN_STORE", "memory")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected unknown token store rejected")
	}
}
