// Package config reads service settings from configs/.env and the process environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultPort            = "8080"
	DefaultAccessTokenTTL  = 24 * time.Hour
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	DefaultStorageDir      = "uploads"
	DefaultLogFile         = "logs/amarms.log"
	devJWTSecret           = "default_super_secret_key"
)

// Config is the resolved service configuration
type Config struct {
	Port            string
	GinMode         string
	DB              DBConfig
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CORSOrigins     []string
	StorageDir      string
	StorageBaseURL  string
	LogFile         string
	LogLevel        string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the postgres connection URL
func (c DBConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.Name + "?sslmode=" + c.SSLMode
}

// Release reports whether gin runs in release mode
func (c Config) Release() bool {
	return c.GinMode == "release"
}

// Load reads envFile when present, then the environment. A missing env file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		// values already in the environment win over the file
		_ = godotenv.Load(envFile)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:    v.GetString("PORT"),
		GinMode: v.GetString("GIN_MODE"),
		DB: DBConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		JWTSecret:       v.GetString("JWT_SECRET"),
		AccessTokenTTL:  v.GetDuration("ACCESS_TOKEN_TTL"),
		RefreshTokenTTL: v.GetDuration("REFRESH_TOKEN_TTL"),
		CORSOrigins:     splitList(v.GetString("CORS_ORIGINS")),
		StorageDir:      v.GetString("STORAGE_DIR"),
		StorageBaseURL:  strings.TrimSuffix(v.GetString("STORAGE_BASE_URL"), "/"),
		LogFile:         v.GetString("LOG_FILE"),
		LogLevel:        v.GetString("LOG_LEVEL"),
	}

	if cfg.JWTSecret == "" {
		if cfg.Release() {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required in release mode")
		}
		cfg.JWTSecret = devJWTSecret
	}
	if cfg.AccessTokenTTL <= 0 {
		return nil, fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	if cfg.RefreshTokenTTL <= 0 {
		return nil, fmt.Errorf("REFRESH_TOKEN_TTL must be positive")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", DefaultPort)
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("ACCESS_TOKEN_TTL", DefaultAccessTokenTTL.String())
	v.SetDefault("REFRESH_TOKEN_TTL", DefaultRefreshTokenTTL.String())
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")
	v.SetDefault("STORAGE_DIR", DefaultStorageDir)
	v.SetDefault("STORAGE_BASE_URL", "/files")
	v.SetDefault("LOG_FILE", DefaultLogFile)
	v.SetDefault("LOG_LEVEL", "info")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
