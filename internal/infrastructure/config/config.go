package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the decoded service configuration
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Log         LogConfig         `mapstructure:"log"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Store       StoreConfig       `mapstructure:"store"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Taxonomy    TaxonomyConfig    `mapstructure:"taxonomy"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// DatabaseConfig selects the entity store backend. Lifetimes are minutes.
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // postgres or sqlite
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type LogConfig struct {
	Level    string `mapstructure:"level"`     // debug, info, warn, error
	Format   string `mapstructure:"format"`    // json, console
	Output   string `mapstructure:"output"`    // stdout, stderr, or file path
	SQLLevel string `mapstructure:"sql_level"` // silent, error, warn, info
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`

	// SwaggerEnabled defaults to on outside production
	SwaggerEnabled    bool     `mapstructure:"swagger_enabled"`
	SwaggerAllowedIPs []string `mapstructure:"swagger_allowed_ips"` // IPs or CIDRs
}

// StoreConfig bounds entity store calls and the orchestrator's retries
type StoreConfig struct {
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	RetryAttempts    int           `mapstructure:"retry_attempts"`
	RetryInitial     time.Duration `mapstructure:"retry_initial"`
	RetryMax         time.Duration `mapstructure:"retry_max"`
}

// IdempotencyConfig selects where idempotency records live and for how long.
// A zero SweepInterval disables purging on the store backend.
type IdempotencyConfig struct {
	Backend       string        `mapstructure:"backend"` // store, redis, memory
	Retention     time.Duration `mapstructure:"retention"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type TaxonomyConfig struct {
	CatalogPath string `mapstructure:"catalog_path"`
}

// StorageConfig holds the S3-compatible audit archive settings
type StorageConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Endpoint     string `mapstructure:"endpoint"`
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	Prefix       string `mapstructure:"prefix"`
}

type TelemetryConfig struct {
	Enabled           bool            `mapstructure:"enabled"`
	CollectorEndpoint string          `mapstructure:"collector_endpoint"`
	SamplingRatio     float64         `mapstructure:"sampling_ratio"`
	ServiceName       string          `mapstructure:"service_name"`
	Insecure          bool            `mapstructure:"insecure"`
	MetricsInterval   time.Duration   `mapstructure:"metrics_interval"`
	LogsEnabled       bool            `mapstructure:"logs_enabled"` // ship zap logs over OTLP
	DBTracing         bool            `mapstructure:"db_tracing"`   // otelgorm spans for store queries
	SlowQuery         time.Duration   `mapstructure:"slow_query"`
	Profiling         ProfilingConfig `mapstructure:"profiling"`
}

type ProfilingConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ServerAddress string `mapstructure:"server_address"`
	SpanProfiles  bool   `mapstructure:"span_profiles"`
}

// defaults registers every key, so FINZ_ variables are seen even for keys
// that have no file entry.
var defaults = map[string]any{
	"app.name": "finanzas-backend",
	"app.env":  "development",
	"app.port": "8080",

	"database.driver":             "postgres",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "finanzas",
	"database.sslmode":            "disable",
	"database.sqlite_path":        "finanzas.db",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,
	"database.auto_migrate":       false,

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"log.level":     "info",
	"log.format":    "console",
	"log.output":    "stdout",
	"log.sql_level": "warn",

	"http.read_timeout":        15 * time.Second,
	"http.write_timeout":       15 * time.Second,
	"http.idle_timeout":        time.Minute,
	"http.shutdown_timeout":    30 * time.Second,
	"http.max_header_bytes":    1 << 20,
	"http.max_body_size":       int64(2 << 20),
	"http.cors_allow_origins":  []string{},
	"http.trusted_proxies":     []string{},
	"http.swagger_allowed_ips": []string{},

	"store.operation_timeout": 5 * time.Second,
	"store.retry_attempts":    3,
	"store.retry_initial":     50 * time.Millisecond,
	"store.retry_max":         time.Second,

	"idempotency.backend":        "store",
	"idempotency.retention":      72 * time.Hour,
	"idempotency.key_prefix":     "finz:idempotency:",
	"idempotency.sweep_interval": time.Hour,

	"taxonomy.catalog_path": "",

	"storage.enabled":        false,
	"storage.endpoint":       "",
	"storage.region":         "us-east-1",
	"storage.bucket":         "",
	"storage.access_key":     "",
	"storage.secret_key":     "",
	"storage.use_ssl":        false,
	"storage.use_path_style": false,
	"storage.prefix":         "audit",

	"telemetry.enabled":                  false,
	"telemetry.collector_endpoint":       "localhost:4317",
	"telemetry.sampling_ratio":           1.0,
	"telemetry.insecure":                 false,
	"telemetry.metrics_interval":         time.Minute,
	"telemetry.logs_enabled":             false,
	"telemetry.db_tracing":               false,
	"telemetry.slow_query":               200 * time.Millisecond,
	"telemetry.profiling.enabled":        false,
	"telemetry.profiling.server_address": "",
	"telemetry.profiling.span_profiles":  false,
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("FINZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads config.toml from ., ./config or /app when present. FINZ_
// variables (FINZ_DATABASE_PASSWORD) override the file, which overrides the
// built-in defaults.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	for _, dir := range []string{".", "./config", "/app"} {
		v.AddConfigPath(dir)
	}

	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return build(v)
}

// LoadFile is Load with an explicit file, which must exist
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode fills the defaults that depend on other keys, then unmarshals
func decode(v *viper.Viper) (*Config, error) {
	v.SetDefault("http.swagger_enabled", v.GetString("app.env") != "production")
	v.SetDefault("telemetry.service_name", v.GetString("app.name"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	switch db := c.Database; {
	case db.MaxOpenConns <= 0:
		return fmt.Errorf("database.max_open_conns must be positive, got %d", db.MaxOpenConns)
	case db.MaxIdleConns < 0 || db.MaxIdleConns > db.MaxOpenConns:
		return fmt.Errorf("database.max_idle_conns must be within 0..%d, got %d", db.MaxOpenConns, db.MaxIdleConns)
	}

	switch c.Idempotency.Backend {
	case "store", "redis", "memory":
	default:
		return fmt.Errorf("idempotency.backend must be store, redis or memory, got %q", c.Idempotency.Backend)
	}
	if c.Idempotency.Retention < 0 {
		return fmt.Errorf("idempotency.retention cannot be negative")
	}
	if c.Idempotency.SweepInterval < 0 {
		return fmt.Errorf("idempotency.sweep_interval cannot be negative")
	}
	if c.Store.RetryAttempts < 1 {
		return fmt.Errorf("store.retry_attempts must be at least 1")
	}
	if c.Store.OperationTimeout < 0 {
		return fmt.Errorf("store.operation_timeout cannot be negative")
	}

	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}
	if r := c.Telemetry.SamplingRatio; r < 0 || r > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be within 0..1, got %g", r)
	}
	if c.Telemetry.Profiling.Enabled && c.Telemetry.Profiling.ServerAddress == "" {
		return fmt.Errorf("telemetry.profiling.server_address is required when profiling is enabled")
	}

	if c.IsProduction() {
		if c.Database.Driver != "postgres" {
			return fmt.Errorf("database.driver must be postgres in production")
		}
		if c.Database.Password == "" || c.Database.SSLMode == "disable" {
			return fmt.Errorf("production needs database.password and a database.sslmode other than disable")
		}
		if c.Idempotency.Backend == "memory" {
			return fmt.Errorf("idempotency.backend=memory is not allowed in production")
		}
		if c.Idempotency.Retention < 24*time.Hour || c.Idempotency.Retention > 168*time.Hour {
			return fmt.Errorf("idempotency.retention must be within 24h..168h in production, got %s", c.Idempotency.Retention)
		}
		if slices.Contains(c.HTTP.CORSAllowOrigins, "*") {
			return fmt.Errorf("http.cors_allow_origins must list origins in production, not *")
		}
	}
	return nil
}

// IsProduction reports whether the app runs with production settings
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN is the sqlite path, or a postgres URL with escaped credentials
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.SQLitePath
	}
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return dsn.String()
}
