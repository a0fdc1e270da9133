package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Environment != EnvironmentDevelopment {
		t.Errorf("Environment=%q want %q", cfg.Environment, EnvironmentDevelopment)
	}
	if cfg.Security.JWTAccessTTL != 15*time.Minute {
		t.Errorf("JWTAccessTTL=%v want 15m", cfg.Security.JWTAccessTTL)
	}
	if cfg.Security.JWTRefreshTTL != 720*time.Hour {
		t.Errorf("JWTRefreshTTL=%v want 720h", cfg.Security.JWTRefreshTTL)
	}
	if cfg.Security.MaxSessions != 5 {
		t.Errorf("MaxSessions=%d want 5", cfg.Security.MaxSessions)
	}
	if cfg.Security.RefreshTokenLength != 64 {
		t.Errorf("RefreshTokenLength=%d want 64", cfg.Security.RefreshTokenLength)
	}
	if cfg.Cookies.AccessName != "psg_access_token" || cfg.Cookies.RefreshName != "psg_refresh_token" {
		t.Errorf("unexpected cookie names %+v", cfg.Cookies)
	}
	if cfg.Jobs.ReaperSchedule != "0 0 */6 * * *" {
		t.Errorf("ReaperSchedule=%q", cfg.Jobs.ReaperSchedule)
	}
	if cfg.HTTP.RequestIDHeaderName() != DefaultRequestIDHeader || cfg.HTTP.FingerprintHeaderName() != DefaultFingerprintHeader {
		t.Errorf("unexpected header names %+v", cfg.HTTP)
	}
	if cfg.Postgres.StatementTimeout != 5*time.Second {
		t.Errorf("StatementTimeout=%v want 5s", cfg.Postgres.StatementTimeout)
	}
	if cfg.Security.RefreshHashing.KeyLen != 64 {
		t.Errorf("RefreshHashing.KeyLen=%d want 64", cfg.Security.RefreshHashing.KeyLen)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AUTHSVC_SECURITY_MAXSESSIONS", "7")
	t.Setenv("AUTHSVC_SECURITY_JWTACCESSTTL", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Security.MaxSessions != 7 {
		t.Errorf("MaxSessions=%d want 7", cfg.Security.MaxSessions)
	}
	if cfg.Security.JWTAccessTTL != 5*time.Minute {
		t.Errorf("JWTAccessTTL=%v want 5m", cfg.Security.JWTAccessTTL)
	}
}

func TestLoadRejectsProductionWithoutDSN(t *testing.T) {
	t.Setenv("AUTHSVC_ENVIRONMENT", EnvironmentProduction)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for production config without dsn and keys")
	}
	if !strings.Contains(err.Error(), "postgres.dsn") {
		t.Errorf("error %q does not mention postgres.dsn", err)
	}
}

func TestValidate(t *testing.T) {
	base := AppConfig{
		Environment: EnvironmentDevelopment,
		Security: SecurityConfig{
			JWTAccessTTL:       time.Minute,
			JWTRefreshTTL:      time.Hour,
			RefreshTokenLength: 64,
			MaxSessions:        5,
			PasswordHashing:    Argon2Config{Time: 3, Memory: 65536, Threads: 2, KeyLen: 32, SaltLen: 16},
			RefreshHashing:     Argon2Config{Time: 3, Memory: 32768, Threads: 2, KeyLen: 64, SaltLen: 16},
		},
		Jobs: JobsConfig{ClaimInterval: 30 * time.Second},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"zero access ttl", func(c *AppConfig) { c.Security.JWTAccessTTL = 0 }},
		{"negative refresh ttl", func(c *AppConfig) { c.Security.JWTRefreshTTL = -time.Hour }},
		{"zero session cap", func(c *AppConfig) { c.Security.MaxSessions = 0 }},
		{"short refresh secret", func(c *AppConfig) { c.Security.RefreshTokenLength = 8 }},
		{"zero hashing passes", func(c *AppConfig) { c.Security.PasswordHashing.Time = 0 }},
		{"zero refresh hashing threads", func(c *AppConfig) { c.Security.RefreshHashing.Threads = 0 }},
		{"hashing memory below 8 KiB per thread", func(c *AppConfig) { c.Security.PasswordHashing.Memory = 8 }},
		{"short hashing key", func(c *AppConfig) { c.Security.RefreshHashing.KeyLen = 8 }},
		{"unsalted hashing", func(c *AppConfig) { c.Security.PasswordHashing.SaltLen = 0 }},
		{"zero claim interval", func(c *AppConfig) { c.Jobs.ClaimInterval = 0 }},
		{"negative claim interval", func(c *AppConfig) { c.Jobs.ClaimInterval = -time.Second }},
		{"negative statement timeout", func(c *AppConfig) { c.Postgres.StatementTimeout = -time.Second }},
		{"production without keys", func(c *AppConfig) {
			c.Environment = EnvironmentProduction
			c.Postgres.DSN = "postgres://localhost/auth"
		}},
	}
	for _, tc := range cases {
		cfg := base
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestLoadRejectsThreadlessHashing(t *testing.T) {
	t.Setenv("AUTHSVC_SECURITY_REFRESHHASHING_THREADS", "0")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "security.refreshhashing.threads") {
		t.Fatalf("err=%v, want refreshhashing.threads rejection", err)
	}
}

func TestEnvironmentFlags(t *testing.T) {
	cases := []struct {
		env        string
		production bool
		secure     bool
	}{
		{EnvironmentProduction, true, true},
		{EnvironmentStage, false, true},
		{EnvironmentDevelopment, false, false},
		{"local", false, false},
	}
	for _, tc := range cases {
		cfg := AppConfig{Environment: tc.env}
		if cfg.IsProduction() != tc.production {
			t.Errorf("%s: IsProduction()=%v", tc.env, cfg.IsProduction())
		}
		if cfg.SecureCookies() != tc.secure {
			t.Errorf("%s: SecureCookies()=%v", tc.env, cfg.SecureCookies())
		}
	}
}
