package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	EnvironmentProduction  = "production"
	EnvironmentStage       = "stage"
	EnvironmentDevelopment = "development"
)

const (
	DefaultRequestIDHeader   = "X-Request-Id"
	DefaultFingerprintHeader = "X-Device-Fingerprint"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// RequestIDHeader carries the correlation id in both directions.
	RequestIDHeader string
	// FingerprintHeader carries the client's device fingerprint into new sessions.
	FingerprintHeader string
}

// RequestIDHeaderName returns RequestIDHeader or DefaultRequestIDHeader when unset.
func (h HTTPConfig) RequestIDHeaderName() string {
	if h.RequestIDHeader != "" {
		return h.RequestIDHeader
	}
	return DefaultRequestIDHeader
}

// FingerprintHeaderName returns FingerprintHeader or DefaultFingerprintHeader when unset.
func (h HTTPConfig) FingerprintHeaderName() string {
	if h.FingerprintHeader != "" {
		return h.FingerprintHeader
	}
	return DefaultFingerprintHeader
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	// StatementTimeout bounds every statement server-side. Zero leaves the server default.
	StatementTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StorageConfig points at the object store holding key material referenced as s3://bucket/object.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

type Argon2Config struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

type SecurityConfig struct {
	// JWTPrivateKey and JWTPublicKey accept inline PEM, a file path or s3://bucket/object.
	JWTPrivateKey      string
	JWTPublicKey       string
	JWTIssuer          string
	JWTAccessTTL       time.Duration
	JWTRefreshTTL      time.Duration
	RefreshTokenLength int
	MaxSessions        int
	PasswordHashing    Argon2Config
	RefreshHashing     Argon2Config
}

type CookieConfig struct {
	AccessName  string
	RefreshName string
	Domain      string
	Path        string
}

type JobsConfig struct {
	ReaperSchedule string
	Stream         string
	Group          string
	Consumer       string
	ClaimInterval  time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Cookies          CookieConfig
	Jobs             JobsConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("AUTHSVC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", EnvironmentDevelopment)

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")
	v.SetDefault("http.requestidheader", DefaultRequestIDHeader)
	v.SetDefault("http.fingerprintheader", DefaultFingerprintHeader)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.statementtimeout", "5s")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.jwtprivatekey", "")
	v.SetDefault("security.jwtpublickey", "")
	v.SetDefault("security.jwtissuer", "authorization-service")
	v.SetDefault("security.jwtaccessttl", "15m")
	v.SetDefault("security.jwtrefreshttl", "720h") // 30 days
	v.SetDefault("security.refreshtokenlength", 64)
	v.SetDefault("security.maxsessions", 5)

	v.SetDefault("security.passwordhashing.time", 3)
	v.SetDefault("security.passwordhashing.memory", 64*1024)
	v.SetDefault("security.passwordhashing.threads", 2)
	v.SetDefault("security.passwordhashing.keylen", 32)
	v.SetDefault("security.passwordhashing.saltlen", 16)

	v.SetDefault("security.refreshhashing.time", 3)
	v.SetDefault("security.refreshhashing.memory", 32*1024)
	v.SetDefault("security.refreshhashing.threads", 2)
	v.SetDefault("security.refreshhashing.keylen", 64)
	v.SetDefault("security.refreshhashing.saltlen", 16)

	v.SetDefault("cookies.accessname", "psg_access_token")
	v.SetDefault("cookies.refreshname", "psg_refresh_token")
	v.SetDefault("cookies.domain", "")
	v.SetDefault("cookies.path", "/")

	v.SetDefault("jobs.reaperschedule", "0 0 */6 * * *")
	v.SetDefault("jobs.stream", "auth:jobs")
	v.SetDefault("jobs.group", "auth-workers")
	v.SetDefault("jobs.consumer", "worker-1")
	v.SetDefault("jobs.claiminterval", "30s")
}

func (c *AppConfig) Validate() error {
	var errs []error

	if c.Security.JWTAccessTTL <= 0 {
		errs = append(errs, errors.New("security.jwtaccessttl must be positive"))
	}
	if c.Security.JWTRefreshTTL <= 0 {
		errs = append(errs, errors.New("security.jwtrefreshttl must be positive"))
	}
	if c.Security.MaxSessions < 1 {
		errs = append(errs, errors.New("security.maxsessions must be at least 1"))
	}
	if c.Security.RefreshTokenLength < 16 {
		errs = append(errs, errors.New("security.refreshtokenlength must be at least 16 bytes"))
	}
	errs = append(errs, c.Security.PasswordHashing.validate("security.passwordhashing")...)
	errs = append(errs, c.Security.RefreshHashing.validate("security.refreshhashing")...)
	if c.Jobs.ClaimInterval <= 0 {
		errs = append(errs, errors.New("jobs.claiminterval must be positive"))
	}
	if c.Postgres.StatementTimeout < 0 {
		errs = append(errs, errors.New("postgres.statementtimeout must not be negative"))
	}

	if c.IsProduction() {
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required in production"))
		}
		if c.Security.JWTPrivateKey == "" || c.Security.JWTPublicKey == "" {
			errs = append(errs, errors.New("security.jwtprivatekey and security.jwtpublickey are required in production"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (a Argon2Config) validate(prefix string) []error {
	var errs []error
	if a.Time < 1 {
		errs = append(errs, fmt.Errorf("%s.time must be at least 1", prefix))
	}
	if a.Threads < 1 {
		errs = append(errs, fmt.Errorf("%s.threads must be at least 1", prefix))
	}
	if a.Memory < 8*uint32(a.Threads) {
		errs = append(errs, fmt.Errorf("%s.memory must be at least 8 KiB per thread", prefix))
	}
	if a.KeyLen < 16 {
		errs = append(errs, fmt.Errorf("%s.keylen must be at least 16 bytes", prefix))
	}
	if a.SaltLen < 8 {
		errs = append(errs, fmt.Errorf("%s.saltlen must be at least 8 bytes", prefix))
	}
	return errs
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

// SecureCookies reports whether cookies must carry the Secure attribute.
func (c *AppConfig) SecureCookies() bool {
	return c.Environment == EnvironmentProduction || c.Environment == EnvironmentStage
}
