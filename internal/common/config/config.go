// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Services ServicesConfig `mapstructure:"services"`
	Database DatabaseConfig `mapstructure:"database"`
	Reports  ReportsConfig  `mapstructure:"reports"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address        string `mapstructure:"address"`
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// ServiceConfig describes one upstream microservice.
type ServiceConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Token    string `mapstructure:"token"`
	Optional bool   `mapstructure:"optional"`
}

// ServicesConfig holds every proxied upstream. The set is fixed: each service
// is an explicit field rather than a map keyed by name, so a typo in a service
// key fails at compile time instead of resolving to a zero value at runtime.
type ServicesConfig struct {
	UserManagement    ServiceConfig `mapstructure:"user_management"`
	PropertyListing   ServiceConfig `mapstructure:"property_listing"`
	PaymentProcessing ServiceConfig `mapstructure:"payment_processing"`
	SearchFilters     ServiceConfig `mapstructure:"search_filters"`
	AIRecommendation  ServiceConfig `mapstructure:"ai_recommendation"`
	Notification      ServiceConfig `mapstructure:"notification"`
}

// Canonical service keys, in reporting order.
const (
	ServiceUserManagement    = "user_management"
	ServicePropertyListing   = "property_listing"
	ServicePaymentProcessing = "payment_processing"
	ServiceSearchFilters     = "search_filters"
	ServiceAIRecommendation  = "ai_recommendation"
	ServiceNotification      = "notification"
)

// ServiceNames lists every configured upstream in a fixed order. Aggregations
// iterate this slice, never a map, to keep output ordering deterministic.
var ServiceNames = []string{
	ServiceUserManagement,
	ServicePropertyListing,
	ServicePaymentProcessing,
	ServiceSearchFilters,
	ServiceAIRecommendation,
	ServiceNotification,
}

// ByName returns the static service-key -> config mapping, built from the
// explicit fields above.
func (s ServicesConfig) ByName() map[string]ServiceConfig {
	return map[string]ServiceConfig{
		ServiceUserManagement:    s.UserManagement,
		ServicePropertyListing:   s.PropertyListing,
		ServicePaymentProcessing: s.PaymentProcessing,
		ServiceSearchFilters:     s.SearchFilters,
		ServiceAIRecommendation:  s.AIRecommendation,
		ServiceNotification:      s.Notification,
	}
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ReportsConfig holds settings for report export uploads.
type ReportsConfig struct {
	StorageURL string `mapstructure:"storage_url"`
	StorageKey string `mapstructure:"storage_key"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
