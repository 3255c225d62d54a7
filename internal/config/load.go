package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is not set.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

// envMappings maps environment variable names to config keys. Variables not
// listed here are ignored.
var envMappings = map[string]string{
	"environment":                 "environment",
	"port":                        "server_port",
	"shutdown_timeout":            "shutdown_timeout",
	"db_type":                     "database_type",
	"db_path":                     "database_path",
	"database_url":                "database_url",
	"jwt_secret":                  "jwt_secret",
	"token_ttl":                   "token_ttl",
	"log_level":                   "log_level",
	"log_format":                  "log_format",
	"cors_allowed_origins":        "cors_allowed_origins",
	"rate_limit_requests":         "rate_limit_requests",
	"rate_limit_window":           "rate_limit_window",
	"openlibrary_url":             "openlibrary_url",
	"catalog_timeout":             "catalog_timeout",
	"catalog_requests_per_second": "catalog_requests_per_second",
	"aws_region":                  "aws_region",
	"ses_from_email":              "ses_from_email",
	"ses_from_name":               "ses_from_name",
	"app_base_url":                "app_base_url",
	"google_client_id":            "google_client_id",
	"google_client_secret":        "google_client_secret",
	"oauth_redirect_base_url":     "oauth_redirect_base_url",
}

// sliceKeys are parsed from comma-separated env values.
var sliceKeys = []string{"cors_allowed_origins"}

// Load builds the configuration from defaults, an optional YAML file and the
// environment (highest priority). A .env file in the working directory is
// loaded into the environment first when present.
func Load() (*Config, error) {
	// Missing .env is fine; real environment wins over it.
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitSliceKeys(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func splitSliceKeys(k *koanf.Koanf) error {
	for _, key := range sliceKeys {
		s, ok := k.Get(key).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(key, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}
