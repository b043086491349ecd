package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, BackendMinio, cfg.Storage.Backend)
	assert.Equal(t, "agaru-up-videos", cfg.Storage.Bucket)
	assert.Equal(t, int64(200<<20), cfg.Server.MaxUploadBytes())
	assert.Equal(t, "Asia/Tokyo", cfg.Server.Location().String())
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadConfigLegacyEnvNames(t *testing.T) {
	t.Setenv("R2_ENDPOINT", "https://acct.r2.cloudflarestorage.com")
	t.Setenv("R2_BUCKET", "clips")
	t.Setenv("R2_ACCESS_KEY_ID", `"AKIA123"`)
	t.Setenv("R2_SECRET_ACCESS_KEY", `'s3cr3t'`)
	t.Setenv("R2_PUBLIC_URL", "https://pub.example.dev/")
	t.Setenv("TUNNEL_TOKEN", "tunnel-abc")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "clips", cfg.Storage.Bucket)
	assert.Equal(t, "AKIA123", cfg.Storage.AccessKey)
	assert.Equal(t, "s3cr3t", cfg.Storage.SecretKey)
	assert.Equal(t, "https://pub.example.dev", cfg.Storage.PublicBaseURL())
	assert.Equal(t, "tunnel-abc", cfg.Tunnel.Token)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)

	host, secure := cfg.Storage.EndpointHost()
	assert.Equal(t, "acct.r2.cloudflarestorage.com", host)
	assert.True(t, secure)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agaru.yaml")
	content := []byte(`
server:
  port: "9090"
  max_upload_mb: 10
database:
  driver: postgres
  host: db
  dbname: agaru
  password: pw
storage:
  backend: s3
  endpoint: minio:9000
  use_ssl: false
report:
  default_titles: ["a", " ", "b"]
capture:
  timeout_seconds: 30
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes())
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Contains(t, cfg.Database.DataSourceName(), "password=pw")
	assert.NotContains(t, cfg.Database.LogSafeDSN(), "pw")
	assert.Equal(t, BackendS3, cfg.Storage.Backend)
	assert.Equal(t, "http://minio:9000", cfg.Storage.EndpointURL())
	assert.Equal(t, "http://minio:9000/agaru-up-videos", cfg.Storage.PublicBaseURL())
	assert.Equal(t, []string{"a", "b"}, cfg.Report.DefaultTitles)
	assert.Equal(t, 30*time.Second, cfg.Capture.Timeout())
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "mysql")
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestValidateAuthNeedsSecret(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	_, err := LoadConfig("")
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "k")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.True(t, cfg.Auth.Enabled)
}

func TestLogSafeDSNHidesPassword(t *testing.T) {
	d := DatabaseConfig{Driver: DriverPostgres, DSN: "postgres://app:secret@db:5432/agaru?sslmode=disable"}
	assert.NotContains(t, d.LogSafeDSN(), "secret")
	assert.Contains(t, d.LogSafeDSN(), "app@db:5432")
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("AGARU_DOTENV_PROBE=hello\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("AGARU_DOTENV_PROBE") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "absent.env")))
	assert.Equal(t, "hello", os.Getenv("AGARU_DOTENV_PROBE"))
}
