package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFileAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
services:
  user_management:
    base_url: "http://users:8001"
  property_listing:
    base_url: "http://props:8002"
database:
  redis:
    address: "localhost:6379"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Address)
	assert.Equal(t, 30000, cfg.Server.RequestTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.True(t, cfg.Services.Notification.Optional)
}

func TestLoadFromFileExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_USERS_URL", "http://users.internal:8001")

	path := writeConfigFile(t, `
services:
  user_management:
    base_url: "${TEST_USERS_URL}"
  property_listing:
    base_url: "http://props:8002"
database:
  redis:
    address: "localhost:6379"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://users.internal:8001", cfg.Services.UserManagement.BaseURL)
}

func TestLoadFromFileUnresolvedPlaceholderFailsValidation(t *testing.T) {
	// The service URL placeholder must not survive as a literal string and
	// must fail the required-URL check.
	t.Setenv("USER_MANAGEMENT_SERVICE_URL", "")
	path := writeConfigFile(t, `
services:
  user_management:
    base_url: "${DEFINITELY_NOT_SET_URL}"
  property_listing:
    base_url: "http://props:8002"
database:
  redis:
    address: "localhost:6379"
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_management")
}

func TestOverrideFromServiceEnvVars(t *testing.T) {
	t.Setenv("PAYMENT_PROCESSING_SERVICE_URL", "http://payments:8003")
	t.Setenv("PAYMENT_PROCESSING_SERVICE_TOKEN", "svc-secret")

	path := writeConfigFile(t, `
services:
  user_management:
    base_url: "http://users:8001"
  property_listing:
    base_url: "http://props:8002"
database:
  redis:
    address: "localhost:6379"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://payments:8003", cfg.Services.PaymentProcessing.BaseURL)
	assert.Equal(t, "svc-secret", cfg.Services.PaymentProcessing.Token)
}

func TestValidateRequiresRedis(t *testing.T) {
	t.Setenv("REDIS_ADDRESS", "")
	path := writeConfigFile(t, `
services:
  user_management:
    base_url: "http://users:8001"
  property_listing:
    base_url: "http://props:8002"
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestGetDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "db", Port: 5432, Database: "admin_gateway",
		User: "gateway", Password: "pw", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=gateway password=pw dbname=admin_gateway sslmode=disable",
		p.GetDSN())
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, GetDuration(30000))
}
