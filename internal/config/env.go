package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file from the working directory into the process
// environment, before Load reads the explicit override variables below. A
// missing .env file is not an error.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// applyEnv overrides cfg fields from the documented environment variables
// (§6): graph connection, namespace triple, query timeout, and federation
// discovery settings. Unrecognized variables are ignored by construction —
// only the names read here have any effect.
func applyEnv(cfg *Config) {
	setString(&cfg.Graph.URI, "MEMBRIA_GRAPH_URI")
	setString(&cfg.Graph.Username, "MEMBRIA_GRAPH_USERNAME")
	setString(&cfg.Graph.Password, "MEMBRIA_GRAPH_PASSWORD")
	setString(&cfg.Graph.Database, "MEMBRIA_GRAPH_DATABASE")

	setString(&cfg.General.Namespace.TenantID, "MEMBRIA_TENANT_ID")
	setString(&cfg.General.Namespace.TeamID, "MEMBRIA_TEAM_ID")
	setString(&cfg.General.Namespace.ProjectID, "MEMBRIA_PROJECT_ID")

	setDuration(&cfg.Graph.QueryTimeout, "MEMBRIA_QUERY_TIMEOUT")

	setString(&cfg.Federation.AllowlistPath, "MEMBRIA_FEDERATION_ALLOWLIST")
	setDuration(&cfg.Federation.RefreshInterval, "MEMBRIA_FEDERATION_REFRESH")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return
	}
	dst.Duration = d
}
