package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ecomdash/internal/geo"
)

type Config struct {
	App     AppConfig     `yaml:"app"`
	Server  ServerConfig  `yaml:"server"`
	Dataset DatasetConfig `yaml:"dataset"`
	Storage StorageConfig `yaml:"storage"`
	Map     MapConfig     `yaml:"map"`
	Logging LoggingConfig `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowOrigins    []string      `yaml:"allow_origins"`
}

const (
	SourceCSV   = "csv"
	SourceMySQL = "mysql"
)

type DatasetConfig struct {
	// Source is where orders come from: csv or mysql.
	Source         string        `yaml:"source"`
	OrdersURL      string        `yaml:"orders_url"`
	GeolocationURL string        `yaml:"geolocation_url"`
	MapImageURL    string        `yaml:"map_image_url"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	MySQL          MySQLConfig   `yaml:"mysql"`
}

type MySQLConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type MapConfig struct {
	Box    geo.BoundingBox `yaml:"box"`
	Marker geo.MarkerStyle `yaml:"marker"`
	Width  float64         `yaml:"width"`
	Height float64         `yaml:"height"`
}

// Style converts the map section into renderer settings.
func (m MapConfig) Style() geo.OverlayStyle {
	return geo.OverlayStyle{Box: m.Box, Marker: m.Marker, Width: m.Width, Height: m.Height}
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

const (
	defaultOrdersURL = "https://raw.githubusercontent.com/GilbertImmanuel/dicoding-data-analysis/main/data/all_df.csv"
	defaultGeoURL    = "https://raw.githubusercontent.com/GilbertImmanuel/dicoding-data-analysis/main/data/geolocation.csv"
	defaultMapURL    = "https://i.pinimg.com/originals/3a/0c/e1/3a0ce18b3c842748c255bc0aa445ad41.jpg"
)

func DefaultConfig() *Config {
	style := geo.DefaultStyle()
	return &Config{
		App: AppConfig{Name: "ecomdash", Version: "dev"},
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowOrigins:    []string{"*"},
		},
		Dataset: DatasetConfig{
			Source:         SourceCSV,
			OrdersURL:      defaultOrdersURL,
			GeolocationURL: defaultGeoURL,
			MapImageURL:    defaultMapURL,
			FetchTimeout:   2 * time.Minute,
			MySQL:          MySQLConfig{Table: "orders"},
		},
		Storage: StorageConfig{S3: S3Config{Region: "us-east-1"}},
		Map: MapConfig{
			Box:    style.Box,
			Marker: style.Marker,
			Width:  style.Width,
			Height: style.Height,
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

// LoadConfig reads path over the defaults. An empty path means defaults only.
// Environment variables win over the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	path = resolveEnvSpecificPath(path)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"DASHBOARD_ADDRESS":         &cfg.Server.Address,
		"DASHBOARD_SOURCE":          &cfg.Dataset.Source,
		"DASHBOARD_ORDERS_URL":      &cfg.Dataset.OrdersURL,
		"DASHBOARD_GEOLOCATION_URL": &cfg.Dataset.GeolocationURL,
		"DASHBOARD_MAP_IMAGE_URL":   &cfg.Dataset.MapImageURL,
		"DASHBOARD_MYSQL_DSN":       &cfg.Dataset.MySQL.DSN,
		"DASHBOARD_MYSQL_TABLE":     &cfg.Dataset.MySQL.Table,
		"AWS_REGION":                &cfg.Storage.S3.Region,
		"AWS_ENDPOINT_URL_S3":       &cfg.Storage.S3.Endpoint,
		"AWS_ACCESS_KEY_ID":         &cfg.Storage.S3.AccessKeyID,
		"AWS_SECRET_ACCESS_KEY":     &cfg.Storage.S3.SecretAccessKey,
	}
	for name, dst := range strs {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("DASHBOARD_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DASHBOARD_FETCH_TIMEOUT: %w", err)
		}
		cfg.Dataset.FetchTimeout = d
	}
	if v := os.Getenv("DASHBOARD_S3_PATH_STYLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DASHBOARD_S3_PATH_STYLE: %w", err)
		}
		cfg.Storage.S3.PathStyle = b
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}

	switch c.Dataset.Source {
	case SourceCSV:
		if c.Dataset.OrdersURL == "" {
			return fmt.Errorf("dataset.orders_url is required when source is csv")
		}
	case SourceMySQL:
		if c.Dataset.MySQL.DSN == "" {
			return fmt.Errorf("dataset.mysql.dsn is required when source is mysql")
		}
		if c.Dataset.MySQL.Table == "" {
			return fmt.Errorf("dataset.mysql.table is required when source is mysql")
		}
	default:
		return fmt.Errorf("dataset.source must be csv or mysql, got '%s'", c.Dataset.Source)
	}
	if c.Dataset.GeolocationURL == "" {
		return fmt.Errorf("dataset.geolocation_url is required")
	}
	if c.Dataset.MapImageURL == "" {
		return fmt.Errorf("dataset.map_image_url is required")
	}
	if c.Dataset.FetchTimeout <= 0 {
		return fmt.Errorf("dataset.fetch_timeout must be greater than 0")
	}

	if !c.Map.Box.Valid() {
		return fmt.Errorf("map.box must have west < east and south < north")
	}
	if c.Map.Marker.Alpha < 0 || c.Map.Marker.Alpha > 1 {
		return fmt.Errorf("map.marker.alpha must be within [0, 1]")
	}
	if c.Map.Marker.Size <= 0 {
		return fmt.Errorf("map.marker.size must be greater than 0")
	}
	if c.Map.Width <= 0 || c.Map.Height <= 0 {
		return fmt.Errorf("map.width and map.height must be greater than 0")
	}
	return nil
}

const appEnvVar = "APP_ENV"

// resolveEnvSpecificPath prefers config.<env>.yml next to path when APP_ENV is set
// and that file exists.
func resolveEnvSpecificPath(path string) string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv(appEnvVar)))
	if path == "" || env == "" {
		return path
	}
	ext := filepath.Ext(path)
	candidate := strings.TrimSuffix(path, ext) + "." + env + ext
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return path
}
