// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var defaultPorts = map[string]int{
	ServiceOrchestrator: 8000,
	ServiceSearch:       5001,
	ServiceHistory:      5002,
}

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top and
// validates the sections the named service needs.
func Load(service string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v, service)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path, service string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v, service)
}

func finish(v *viper.Viper, service string) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg, service)

	if err := validateConfig(&cfg, service); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the first location that has one
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars replaces ${VAR} placeholders in string values
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills values from the environment variable names the
// deployment manifests already use.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Clients.Search.BaseURL == "" {
		if val := os.Getenv("SEARCH_SERVICE_URL"); val != "" {
			cfg.Clients.Search.BaseURL = val
		}
	}
	if cfg.Clients.History.BaseURL == "" {
		if val := os.Getenv("USER_HISTORY_SERVICE_URL"); val != "" {
			cfg.Clients.History.BaseURL = val
		}
	}

	if cfg.Database.Postgres.URL == "" {
		if val := os.Getenv("DATABASE_URL"); val != "" {
			cfg.Database.Postgres.URL = val
		}
	}
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}

	if cfg.Database.Elasticsearch.URL == "" {
		if val := os.Getenv("SEARCH_SERVICE_ENDPOINT"); val != "" {
			cfg.Database.Elasticsearch.URL = val
		}
	}
	if cfg.Database.Elasticsearch.APIKey == "" {
		if val := os.Getenv("ADMIN_KEY"); val != "" {
			cfg.Database.Elasticsearch.APIKey = val
		}
	}
	if cfg.Search.Index == "" {
		if val := os.Getenv("INDEX_NAME"); val != "" {
			cfg.Search.Index = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config, service string) {
	if cfg.App.Name == "" {
		cfg.App.Name = service
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "1.0.0"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPorts[service]
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	if cfg.Clients.Search.BaseURL == "" {
		cfg.Clients.Search.BaseURL = "http://search-service:5001"
	}
	if cfg.Clients.History.BaseURL == "" {
		cfg.Clients.History.BaseURL = "http://user-history-service:5002"
	}
	if cfg.Clients.Search.Timeout == 0 {
		cfg.Clients.Search.Timeout = 10000
	}
	if cfg.Clients.History.Timeout == 0 {
		cfg.Clients.History.Timeout = 5000
	}

	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 50
	}
	if cfg.History.UserCacheTTL == 0 {
		cfg.History.UserCacheTTL = 300000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if len(cfg.Database.Elasticsearch.Addresses) == 0 && cfg.Database.Elasticsearch.URL != "" {
		cfg.Database.Elasticsearch.Addresses = []string{cfg.Database.Elasticsearch.URL}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Observability.SampleRatio == 0 {
		cfg.Observability.SampleRatio = 1.0
	}
}

// validateConfig validates the fields the given service cannot start without
func validateConfig(cfg *Config, service string) error {
	switch service {
	case ServiceOrchestrator:
		if cfg.Clients.Search.BaseURL == "" {
			return fmt.Errorf("clients.search.base_url is required")
		}
		if cfg.Clients.History.BaseURL == "" {
			return fmt.Errorf("clients.history.base_url is required")
		}
	case ServiceSearch:
		if len(cfg.Database.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("database.elasticsearch.addresses or url is required")
		}
		if cfg.Search.Index == "" {
			return fmt.Errorf("search.index is required")
		}
	case ServiceHistory:
		pg := cfg.Database.Postgres
		if pg.URL == "" {
			if pg.Host == "" {
				return fmt.Errorf("database.postgres.host is required")
			}
			if pg.Database == "" {
				return fmt.Errorf("database.postgres.database is required")
			}
			if pg.User == "" {
				return fmt.Errorf("database.postgres.user is required")
			}
		}
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required")
		}
	default:
		return fmt.Errorf("unknown service %q", service)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
