package config

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"busfare-compare/internal/models"
)

// Geocoder deployment modes
const (
	GeocoderNominatim = "nominatim"
	GeocoderStatic    = "static"
)

// Cache backends
const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
)

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type Place struct {
	Lat float64 `yaml:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `yaml:"lng" validate:"gte=-180,lte=180"`
}

type GeocoderConfig struct {
	Mode         string           `yaml:"mode" validate:"omitempty,oneof=nominatim static"`
	NominatimURL string           `yaml:"nominatimURL" validate:"omitempty,url"`
	Places       map[string]Place `yaml:"places" validate:"dive"`
}

type MatrixConfig struct {
	BaseURL string `yaml:"baseURL" validate:"omitempty,url"`
	APIKey  string `yaml:"apiKey"`
}

type CacheConfig struct {
	Backend    string `yaml:"backend" validate:"omitempty,oneof=memory sqlite"`
	SQLitePath string `yaml:"sqlitePath"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Geocoder GeocoderConfig `yaml:"geocoder"`
	Matrix   MatrixConfig   `yaml:"matrix"`
	Cache    CacheConfig    `yaml:"cache"`
}

// StaticPlaces converts the configured place table into model coordinates
func (c *Config) StaticPlaces() map[string]models.Coordinates {
	places := make(map[string]models.Coordinates, len(c.Geocoder.Places))
	for name, p := range c.Geocoder.Places {
		places[name] = models.Coordinates{Lat: p.Lat, Lng: p.Lng}
	}
	return places
}

// Load reads configuration from a .env file (if present), the given YAML
// file (if non-empty), environment overrides, and defaults, in that order.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set directly.")
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if addr := os.Getenv("SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if key := os.Getenv("MATRIX_API_KEY"); key != "" {
		cfg.Matrix.APIKey = key
	}

	applyDefaults(&cfg)

	v := validator.New()
	if err := v.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8080"
	}
	if cfg.Geocoder.Mode == "" {
		cfg.Geocoder.Mode = GeocoderNominatim
	}
	if cfg.Geocoder.NominatimURL == "" {
		cfg.Geocoder.NominatimURL = "https://nominatim.openstreetmap.org"
	}
	if cfg.Matrix.BaseURL == "" {
		cfg.Matrix.BaseURL = "https://api.distancematrix.ai/maps/api"
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = CacheMemory
	}
	if cfg.Cache.SQLitePath == "" {
		cfg.Cache.SQLitePath = "busfare-cache.db"
	}
}
