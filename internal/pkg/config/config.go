package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
	Editor    EditorConfig    `mapstructure:"editor"`
	Naming    NamingConfig    `mapstructure:"naming"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Assets    AssetsConfig    `mapstructure:"assets"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	// MaxConns bounds the pgx pool; documents are written by one autosave
	// consumer and read on open, so the pool stays small.
	MaxConns int `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode, d.MaxConns,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EditorConfig bounds the in-memory session registry.
type EditorConfig struct {
	MaxSessions   int `mapstructure:"max_sessions"`
	GeoJSONSteps  int `mapstructure:"geojson_steps"`
	AutosaveEvery int `mapstructure:"autosave_every"`
}

// NamingConfig controls reverse-geocode station naming.
type NamingConfig struct {
	// Auto names every new station; otherwise names are only suggested on request.
	Auto bool `mapstructure:"auto"`
	// Runner is "inline" (goroutine in the API) or "temporal".
	Runner           string  `mapstructure:"runner"`
	NominatimURL     string  `mapstructure:"nominatim_url"`
	UserAgent        string  `mapstructure:"user_agent"`
	CacheTTL         int     `mapstructure:"cache_ttl"`
	MaxPlaceDistance float64 `mapstructure:"max_place_distance"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type AssetsConfig struct {
	// BaseURL serves icons over HTTP when set; otherwise Dir is read.
	BaseURL   string `mapstructure:"base_url"`
	Dir       string `mapstructure:"dir"`
	CacheSize int    `mapstructure:"cache_size"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "metromap")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "metromap")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("editor.max_sessions", 1000)
	v.SetDefault("editor.geojson_steps", 16)
	v.SetDefault("editor.autosave_every", 1)
	v.SetDefault("naming.auto", false)
	v.SetDefault("naming.runner", "inline")
	v.SetDefault("naming.nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("naming.user_agent", "metromap/1.0")
	v.SetDefault("naming.cache_ttl", 86400)
	v.SetDefault("naming.max_place_distance", 400.0)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "station-naming")
	v.SetDefault("assets.dir", "web")
	v.SetDefault("assets.cache_size", 16)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: METROMAP_DATABASE_HOST → database.host
	v.SetEnvPrefix("METROMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "database.max_conns must be positive")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Editor.MaxSessions <= 0 {
		errs = append(errs, "editor.max_sessions must be positive")
	}
	if c.Editor.GeoJSONSteps <= 0 || c.Editor.GeoJSONSteps > 256 {
		errs = append(errs, fmt.Sprintf("editor.geojson_steps must be 1-256, got %d", c.Editor.GeoJSONSteps))
	}
	switch c.Naming.Runner {
	case "inline", "temporal":
	default:
		errs = append(errs, fmt.Sprintf("naming.runner must be inline or temporal, got %q", c.Naming.Runner))
	}
	if c.Naming.Runner == "temporal" && c.Temporal.HostPort == "" {
		errs = append(errs, "temporal.host_port is required for the temporal naming runner")
	}
	if c.Naming.UserAgent == "" {
		errs = append(errs, "naming.user_agent is required by the Nominatim usage policy")
	}
	if c.Assets.CacheSize <= 0 {
		errs = append(errs, "assets.cache_size must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
