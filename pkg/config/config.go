package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"doc-editor/pkg/storage"
)

// Config holds the application configuration
type Config struct {
	Sink   string
	Output string
	Script string
	Title  string
	Serve  bool

	Server   ServerConfig
	Database DatabaseConfig
}

// ServerConfig holds the HTTP listen settings
type ServerConfig struct {
	Host string
	Port string
}

// DatabaseConfig holds the PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Load reads an optional .env file from the working directory and then the
// environment. A missing .env file is not an error.
func Load() (*Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit .env paths. Variables already present in the
// environment take precedence over the files.
func LoadFiles(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	serve, err := getEnvBool("EDITOR_SERVE", false)
	if err != nil {
		return nil, err
	}

	return &Config{
		Sink:   getEnv("EDITOR_SINK", storage.KindFile),
		Output: getEnv("EDITOR_OUTPUT", storage.DefaultFilename),
		Script: getEnv("EDITOR_SCRIPT", ""),
		Title:  getEnv("EDITOR_TITLE", storage.DefaultTitle),
		Serve:  serve,
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", ""),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "doc_editor"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}, nil
}

// GetDatabaseConnectionString returns the lib/pq keyword/value connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetServerAddr returns the address the HTTP server listens on
func (c *Config) GetServerAddr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// SinkOptions returns the options passed to storage.Open
func (c *Config) SinkOptions() storage.Options {
	return storage.Options{
		Filename:    c.Output,
		DatabaseURL: c.GetDatabaseConnectionString(),
		Title:       c.Title,
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
