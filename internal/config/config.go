package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ohs25-2-misoten/agaru-up-api/shared/nacos"
)

// Supported database drivers and storage backends.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	BackendMinio = "minio"
	BackendS3    = "s3"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Capture  CaptureConfig  `mapstructure:"capture"`
	Report   ReportConfig   `mapstructure:"report"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Seed     SeedConfig     `mapstructure:"seed"`
	Tunnel   TunnelConfig   `mapstructure:"tunnel"`
	Nacos    NacosConfig    `mapstructure:"nacos"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig HTTP server settings.
type ServerConfig struct {
	Port               string `mapstructure:"port"`
	Mode               string `mapstructure:"mode"`
	Timezone           string `mapstructure:"timezone"`
	MaxUploadMB        int64  `mapstructure:"max_upload_mb"`
	ShutdownTimeoutSec int    `mapstructure:"shutdown_timeout_seconds"`
}

// DatabaseConfig relational store settings. DSN wins over the individual parts.
type DatabaseConfig struct {
	Driver             string `mapstructure:"driver"`
	DSN                string `mapstructure:"dsn"`
	Host               string `mapstructure:"host"`
	Port               string `mapstructure:"port"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	DBName             string `mapstructure:"dbname"`
	SSLMode            string `mapstructure:"sslmode"`
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSec int    `mapstructure:"conn_max_lifetime_seconds"`
}

// StorageConfig object storage settings (Cloudflare R2, MinIO or S3).
type StorageConfig struct {
	Backend      string `mapstructure:"backend"`
	Endpoint     string `mapstructure:"endpoint"`
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	PublicURL    string `mapstructure:"public_url"`
	CreateBucket bool   `mapstructure:"create_bucket"`
}

// KafkaConfig event publishing. No brokers disables publishing.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// CaptureConfig pulling clips from on-site cameras.
type CaptureConfig struct {
	URLTemplate string `mapstructure:"url_template"`
	TimeoutSec  int    `mapstructure:"timeout_seconds"`
	MaxFailures uint32 `mapstructure:"max_failures"`
	OpenSec     int    `mapstructure:"open_seconds"`
}

// ReportConfig report intake defaults and limits.
type ReportConfig struct {
	DefaultTitles      []string `mapstructure:"default_titles"`
	DefaultTags        []string `mapstructure:"default_tags"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute"`
	RateBurst          int      `mapstructure:"rate_burst"`
}

// AuthConfig optional bearer authentication for report intake.
type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// SeedConfig out-of-band seed data.
type SeedConfig struct {
	CamerasFile string `mapstructure:"cameras_file"`
}

// TunnelConfig external exposure. The tunnel itself runs as a sidecar.
type TunnelConfig struct {
	Token string `mapstructure:"token"`
}

// NacosConfig optional service registration.
type NacosConfig struct {
	Enable       bool   `mapstructure:"enable"`
	ServiceName  string `mapstructure:"service_name"`
	nacos.Config `mapstructure:",squash"`
}

// LogConfig logger settings.
type LogConfig struct {
	Level        string `mapstructure:"level"`
	JSON         bool   `mapstructure:"json"`
	FilePath     string `mapstructure:"file_path"`
	ReportCaller bool   `mapstructure:"report_caller"`
}

// envBindings maps config keys to the variable names used by deployments.
var envBindings = map[string][]string{
	"server.port":        {"SERVER_PORT"},
	"database.driver":    {"DATABASE_DRIVER"},
	"database.dsn":       {"DATABASE_DSN"},
	"storage.endpoint":   {"STORAGE_ENDPOINT", "R2_ENDPOINT"},
	"storage.bucket":     {"STORAGE_BUCKET", "R2_BUCKET"},
	"storage.access_key": {"STORAGE_ACCESS_KEY", "R2_ACCESS_KEY_ID"},
	"storage.secret_key": {"STORAGE_SECRET_KEY", "R2_SECRET_ACCESS_KEY"},
	"storage.public_url": {"STORAGE_PUBLIC_URL", "R2_PUBLIC_URL"},
	"kafka.brokers":      {"KAFKA_BROKERS"},
	"auth.jwt_secret":    {"AUTH_JWT_SECRET", "JWT_SECRET"},
	"tunnel.token":       {"TUNNEL_TOKEN", "CLOUDFLARE_TUNNEL_TOKEN"},
	"log.level":          {"LOG_LEVEL"},
	"log.file_path":      {"LOG_FILE_PATH"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.timezone", "Asia/Tokyo")
	v.SetDefault("server.max_upload_mb", 200)
	v.SetDefault("server.shutdown_timeout_seconds", 5)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "agaru")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime_seconds", 300)

	v.SetDefault("storage.backend", BackendMinio)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.bucket", "agaru-up-videos")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.public_url", "")
	v.SetDefault("storage.create_bucket", false)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "agaru-video-events")

	v.SetDefault("capture.url_template", "http://%s.easy-hacking.com/videos?time=60")
	v.SetDefault("capture.timeout_seconds", 600)
	v.SetDefault("capture.max_failures", 3)
	v.SetDefault("capture.open_seconds", 30)

	v.SetDefault("report.default_titles", []string{})
	v.SetDefault("report.default_tags", []string{})
	v.SetDefault("report.rate_limit_per_minute", 30)
	v.SetDefault("report.rate_burst", 5)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("seed.cameras_file", "")
	v.SetDefault("tunnel.token", "")

	v.SetDefault("nacos.enable", false)
	v.SetDefault("nacos.service_name", "agaru-up-api")
	v.SetDefault("nacos.server_addr", "")
	v.SetDefault("nacos.namespace_id", "")
	v.SetDefault("nacos.group", "")
	v.SetDefault("nacos.username", "")
	v.SetDefault("nacos.password", "")
	v.SetDefault("nacos.log_dir", "")
	v.SetDefault("nacos.cache_dir", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.report_caller", false)
}

// LoadDotEnv loads .env style files into the process environment.
// Missing files are ignored; variables already set are kept.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadConfig reads defaults, the optional YAML file at configPath and the
// environment, in increasing priority.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Storage.AccessKey = stripQuotes(cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = stripQuotes(cfg.Storage.SecretKey)
	cfg.Report.DefaultTitles = compact(cfg.Report.DefaultTitles)
	cfg.Report.DefaultTags = compact(cfg.Report.DefaultTags)
	cfg.Kafka.Brokers = compact(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerations and required values.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Storage.Backend {
	case BackendMinio, BackendS3:
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Bucket == "" {
		return errors.New("storage bucket is required")
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return errors.New("auth enabled but no jwt secret configured")
	}
	if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Server.Timezone, err)
	}
	return nil
}

// Location returns the timezone used when rendering dates. Falls back to UTC.
func (s ServerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MaxUploadBytes returns the upload limit in bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	if s.MaxUploadMB <= 0 {
		return 200 << 20
	}
	return s.MaxUploadMB << 20
}

// ShutdownTimeout returns the graceful shutdown budget.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	if s.ShutdownTimeoutSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.ShutdownTimeoutSec) * time.Second
}

// DataSourceName returns the driver DSN.
func (d DatabaseConfig) DataSourceName() string {
	if d.DSN != "" {
		return d.DSN
	}
	if d.Driver == DriverSQLite {
		return "file:data.db?_pragma=busy_timeout(5000)"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// LogSafeDSN describes the target database without credentials.
func (d DatabaseConfig) LogSafeDSN() string {
	if d.DSN != "" {
		if u, err := url.Parse(d.DSN); err == nil && u.User != nil {
			u.User = url.User(u.User.Username())
			return u.String()
		}
		if d.Driver == DriverSQLite {
			return d.DSN
		}
		return d.Driver + " (dsn)"
	}
	if d.Driver == DriverSQLite {
		return "data.db"
	}
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.DBName, d.SSLMode)
}

// EndpointHost splits Endpoint into a bare host and the TLS flag. A scheme
// in Endpoint overrides UseSSL.
func (s StorageConfig) EndpointHost() (string, bool) {
	endpoint := strings.TrimRight(s.Endpoint, "/")
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		return u.Host, u.Scheme == "https"
	}
	return endpoint, s.UseSSL
}

// EndpointURL returns Endpoint with a scheme.
func (s StorageConfig) EndpointURL() string {
	host, secure := s.EndpointHost()
	if host == "" {
		return ""
	}
	if secure {
		return "https://" + host
	}
	return "http://" + host
}

// PublicBaseURL is the prefix under which uploaded objects are publicly
// reachable. Defaults to <endpoint>/<bucket>.
func (s StorageConfig) PublicBaseURL() string {
	if s.PublicURL != "" {
		return strings.TrimRight(s.PublicURL, "/")
	}
	endpoint := s.EndpointURL()
	if endpoint == "" {
		return ""
	}
	return endpoint + "/" + s.Bucket
}

// Timeout returns the camera fetch timeout.
func (c CaptureConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// OpenTimeout is how long the breaker stays open before probing again.
func (c CaptureConfig) OpenTimeout() time.Duration {
	if c.OpenSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.OpenSec) * time.Second
}

func stripQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
