package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the status service
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logger   LoggerConfig   `yaml:"logger"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	AuthAPI  APIConfig      `yaml:"auth_api"`
	UserAPI  APIConfig      `yaml:"user_api"`
	Presence PresenceConfig `yaml:"presence"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Mode            string        `yaml:"mode"`
	BasePath        string        `yaml:"base_path"`
	CORSOrigins     string        `yaml:"cors_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // postgres or sqlite
	URL             string        `yaml:"url"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// GetDSN returns DATABASE_URL style DSN if set, otherwise builds one from parts
func (d DatabaseConfig) GetDSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// PresenceConfig holds the status reconciliation windows and retry schedules
type PresenceConfig struct {
	DebounceWindow     time.Duration `yaml:"debounce_window"`
	StaleWindow        time.Duration `yaml:"stale_window"`
	WriteMaxAttempts   int           `yaml:"write_max_attempts"`
	WriteBaseDelay     time.Duration `yaml:"write_base_delay"`
	WriteMaxJitter     time.Duration `yaml:"write_max_jitter"`
	SweepMaxAttempts   int           `yaml:"sweep_max_attempts"`
	SweepBaseDelay     time.Duration `yaml:"sweep_base_delay"`
	SweepMaxJitter     time.Duration `yaml:"sweep_max_jitter"`
	MembershipCacheTTL time.Duration `yaml:"membership_cache_ttl"`
	GaugeSchedule      string        `yaml:"gauge_schedule"`
}

// Default returns the configuration used when no file or env overrides are present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8003",
			Mode:            "debug",
			BasePath:        "/api/status",
			CORSOrigins:     "*",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logger: LoggerConfig{
			Level: "info",
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Name:            "proddy_status",
			SSLMode:         "disable",
			MaxOpenConns:    100,
			MaxIdleConns:    10,
			ConnMaxLifetime: time.Hour,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
			DB:   0,
		},
		AuthAPI: APIConfig{
			Timeout: 5 * time.Second,
		},
		UserAPI: APIConfig{
			Timeout: 5 * time.Second,
		},
		Presence: PresenceConfig{
			DebounceWindow:     10 * time.Second,
			StaleWindow:        120 * time.Second,
			WriteMaxAttempts:   5,
			WriteBaseDelay:     50 * time.Millisecond,
			WriteMaxJitter:     100 * time.Millisecond,
			SweepMaxAttempts:   3,
			SweepBaseDelay:     50 * time.Millisecond,
			SweepMaxJitter:     100 * time.Millisecond,
			MembershipCacheTTL: time.Minute,
			GaugeSchedule:      "@every 1m",
		},
	}
}

// Load reads configuration from a yaml file (if it exists) and applies environment overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	// Load from yaml file if exists
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would break the presence contracts
func (c *Config) Validate() error {
	p := c.Presence
	if p.WriteMaxAttempts < 1 {
		return fmt.Errorf("presence.write_max_attempts must be >= 1, got %d", p.WriteMaxAttempts)
	}
	if p.SweepMaxAttempts < 1 {
		return fmt.Errorf("presence.sweep_max_attempts must be >= 1, got %d", p.SweepMaxAttempts)
	}
	if p.StaleWindow <= 0 {
		return fmt.Errorf("presence.stale_window must be positive")
	}
	if p.DebounceWindow < 0 {
		return fmt.Errorf("presence.debounce_window must not be negative")
	}
	if d := c.Database.Driver; d != "postgres" && d != "sqlite" {
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", d)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if basePath := os.Getenv("SERVER_BASE_PATH"); basePath != "" {
		cfg.Server.BasePath = basePath
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		cfg.Server.Mode = mode
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = origins
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Logger.Level = logLevel
	}

	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		cfg.Database.Driver = driver
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT %q: %w", port, err)
		}
		cfg.Database.Port = p
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		cfg.Redis.Host = redisHost
	}
	if redisPort := os.Getenv("REDIS_PORT"); redisPort != "" {
		if p, err := strconv.Atoi(redisPort); err == nil {
			cfg.Redis.Port = p
		}
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.Redis.Password = redisPassword
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}
	if secret := os.Getenv("SECRET_KEY"); secret != "" && cfg.JWT.Secret == "" {
		cfg.JWT.Secret = secret
	}
	if authURL := os.Getenv("AUTH_SERVICE_URL"); authURL != "" {
		cfg.AuthAPI.BaseURL = authURL
	}
	if userURL := os.Getenv("USER_SERVICE_URL"); userURL != "" {
		cfg.UserAPI.BaseURL = userURL
	}

	durations := map[string]*time.Duration{
		"PRESENCE_DEBOUNCE_WINDOW":      &cfg.Presence.DebounceWindow,
		"PRESENCE_STALE_WINDOW":         &cfg.Presence.StaleWindow,
		"PRESENCE_WRITE_BASE_DELAY":     &cfg.Presence.WriteBaseDelay,
		"PRESENCE_WRITE_MAX_JITTER":     &cfg.Presence.WriteMaxJitter,
		"PRESENCE_SWEEP_BASE_DELAY":     &cfg.Presence.SweepBaseDelay,
		"PRESENCE_SWEEP_MAX_JITTER":     &cfg.Presence.SweepMaxJitter,
		"PRESENCE_MEMBERSHIP_CACHE_TTL": &cfg.Presence.MembershipCacheTTL,
	}
	for key, target := range durations {
		if raw := os.Getenv(key); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, raw, err)
			}
			*target = d
		}
	}

	ints := map[string]*int{
		"PRESENCE_WRITE_MAX_ATTEMPTS": &cfg.Presence.WriteMaxAttempts,
		"PRESENCE_SWEEP_MAX_ATTEMPTS": &cfg.Presence.SweepMaxAttempts,
	}
	for key, target := range ints {
		if raw := os.Getenv(key); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, raw, err)
			}
			*target = n
		}
	}

	if schedule := os.Getenv("PRESENCE_GAUGE_SCHEDULE"); schedule != "" {
		cfg.Presence.GaugeSchedule = schedule
	}

	return nil
}
