// Package config loads and validates the membria-core TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like "60s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the process-wide configuration record. It is constructed once at
// startup and threaded explicitly into every component constructor; no
// component reaches for process-level state at call time.
type Config struct {
	General    General    `toml:"general"`
	Graph      Graph      `toml:"graph"`
	Calibration Calibration `toml:"calibration"`
	Scheduler  Scheduler  `toml:"scheduler"`
	Workers    Workers    `toml:"workers"`
	Storage    Storage    `toml:"storage"`
	Webhook    Webhook    `toml:"webhook"`
	ToolServer ToolServer `toml:"tool_server"`
	Federation Federation `toml:"federation"`
}

// Namespace is the mandatory (tenant_id, team_id, project_id) triple injected
// into every graph operation.
type Namespace struct {
	TenantID  string `toml:"tenant_id"`
	TeamID    string `toml:"team_id"`
	ProjectID string `toml:"project_id"`
}

type General struct {
	Namespace  Namespace `toml:"namespace"`
	LogLevel   string    `toml:"log_level"`
	LogDir     string    `toml:"log_dir"`
	DataDir    string    `toml:"data_dir"`
	DefaultModule string `toml:"default_module"`
}

// Graph configures the property-graph engine connection.
type Graph struct {
	URI            string   `toml:"uri"`
	Username       string   `toml:"username"`
	Password       string   `toml:"password"`
	Database       string   `toml:"database"`
	ConnectTimeout Duration `toml:"connect_timeout"`
	QueryTimeout   Duration `toml:"query_timeout"`
}

// Calibration configures the Beta-posterior persistence layer.
type Calibration struct {
	RollingWindowSize int `toml:"rolling_window_size"`
}

// Scheduler configures the TTL-sweep ticker (§4.10).
type Scheduler struct {
	SweepInterval Duration `toml:"sweep_interval"`
}

// Workers configures the tool server's background workers (§4.9, §5).
type Workers struct {
	BatchProcessorTick     Duration `toml:"batch_processor_tick"`
	BatchProcessorInterval Duration `toml:"batch_processor_interval"`
	HealthMonitorInterval  Duration `toml:"health_monitor_interval"`
	PendingQueueSoftCap    int      `toml:"pending_queue_soft_cap"`
	PendingQueueHardCap    int      `toml:"pending_queue_hard_cap"`
	ShutdownGrace          Duration `toml:"shutdown_grace"`
}

// Storage configures the local SQLite engram/decision secondary index and
// pending-signal queue (§6).
type Storage struct {
	EngramDBPath string `toml:"engram_db_path"`
}

// Webhook configures the inbound HTTP webhook endpoint (§4.3, §6).
type Webhook struct {
	Bind   string `toml:"bind"`
	Path   string `toml:"path"`
	Secret string `toml:"secret"`
}

// ToolServer configures JSON-RPC handshake metadata (§4.9).
type ToolServer struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Federation configures optional `ext.`-prefixed tool delegation (§4.9).
type Federation struct {
	Enabled         bool     `toml:"enabled"`
	AllowlistPath   string   `toml:"allowlist_path"`
	RefreshInterval Duration `toml:"refresh_interval"`
	Endpoint        string   `toml:"endpoint"`
}

// Clone returns a deep copy so that callers never share mutable state with
// the config manager's internal pointer.
func (cfg *Config) Clone() *Config {
	if cfg == nil {
		return nil
	}
	clone := *cfg
	clone.Federation.AllowlistPath = cfg.Federation.AllowlistPath
	return &clone
}

// Load reads and validates a membria-core TOML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	normalizePaths(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validating: %w", err)
	}

	return &cfg, nil
}

// Reload reads and validates a configuration file. It mirrors Load but is
// intentionally named to reflect runtime refresh paths.
func Reload(path string) (*Config, error) {
	return Load(path)
}

func applyDefaults(cfg *Config) {
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.General.DataDir == "" {
		cfg.General.DataDir = "~/.membria"
	}
	if cfg.General.LogDir == "" {
		cfg.General.LogDir = filepath.Join(cfg.General.DataDir, "logs")
	}
	if cfg.General.DefaultModule == "" {
		cfg.General.DefaultModule = "general"
	}
	if cfg.General.Namespace.TenantID == "" {
		cfg.General.Namespace.TenantID = "default"
	}
	if cfg.General.Namespace.TeamID == "" {
		cfg.General.Namespace.TeamID = "default"
	}
	if cfg.General.Namespace.ProjectID == "" {
		cfg.General.Namespace.ProjectID = "default"
	}

	if cfg.Graph.URI == "" {
		cfg.Graph.URI = "bolt://127.0.0.1:7687"
	}
	if cfg.Graph.Database == "" {
		cfg.Graph.Database = "neo4j"
	}
	if cfg.Graph.ConnectTimeout.Duration == 0 {
		cfg.Graph.ConnectTimeout.Duration = 10 * time.Second
	}
	if cfg.Graph.QueryTimeout.Duration == 0 {
		cfg.Graph.QueryTimeout.Duration = 15 * time.Second
	}

	if cfg.Calibration.RollingWindowSize == 0 {
		cfg.Calibration.RollingWindowSize = 20
	}

	if cfg.Scheduler.SweepInterval.Duration == 0 {
		cfg.Scheduler.SweepInterval.Duration = 300 * time.Second
	}

	if cfg.Workers.BatchProcessorTick.Duration == 0 {
		cfg.Workers.BatchProcessorTick.Duration = 30 * time.Second
	}
	if cfg.Workers.BatchProcessorInterval.Duration == 0 {
		cfg.Workers.BatchProcessorInterval.Duration = time.Hour
	}
	if cfg.Workers.HealthMonitorInterval.Duration == 0 {
		cfg.Workers.HealthMonitorInterval.Duration = 30 * time.Second
	}
	if cfg.Workers.PendingQueueSoftCap == 0 {
		cfg.Workers.PendingQueueSoftCap = 1000
	}
	if cfg.Workers.PendingQueueHardCap == 0 {
		cfg.Workers.PendingQueueHardCap = 5000
	}
	if cfg.Workers.ShutdownGrace.Duration == 0 {
		cfg.Workers.ShutdownGrace.Duration = 5 * time.Second
	}

	if cfg.Storage.EngramDBPath == "" {
		cfg.Storage.EngramDBPath = filepath.Join(cfg.General.DataDir, "engram.db")
	}

	if cfg.Webhook.Bind == "" {
		cfg.Webhook.Bind = "127.0.0.1:8787"
	}
	if cfg.Webhook.Path == "" {
		cfg.Webhook.Path = "/webhooks/vcs"
	}

	if cfg.ToolServer.Name == "" {
		cfg.ToolServer.Name = "membria-core"
	}
	if cfg.ToolServer.Version == "" {
		cfg.ToolServer.Version = "1.0.0"
	}

	if cfg.Federation.RefreshInterval.Duration == 0 {
		cfg.Federation.RefreshInterval.Duration = 5 * time.Minute
	}
}

func normalizePaths(cfg *Config) {
	cfg.General.DataDir = ExpandHome(cfg.General.DataDir)
	cfg.General.LogDir = ExpandHome(cfg.General.LogDir)
	cfg.Federation.AllowlistPath = ExpandHome(cfg.Federation.AllowlistPath)
	cfg.Storage.EngramDBPath = ExpandHome(cfg.Storage.EngramDBPath)
}

func validate(cfg *Config) error {
	if cfg.General.Namespace.TenantID == "" {
		return fmt.Errorf("general.namespace.tenant_id is required")
	}
	if cfg.Graph.URI == "" {
		return fmt.Errorf("graph.uri is required")
	}
	if strings.TrimSpace(cfg.General.DefaultModule) == "" {
		return fmt.Errorf("general.default_module must not be blank")
	}
	if cfg.Workers.PendingQueueSoftCap > cfg.Workers.PendingQueueHardCap {
		return fmt.Errorf("workers.pending_queue_soft_cap (%d) must not exceed pending_queue_hard_cap (%d)",
			cfg.Workers.PendingQueueSoftCap, cfg.Workers.PendingQueueHardCap)
	}
	if cfg.Federation.Enabled && cfg.Federation.AllowlistPath == "" {
		return fmt.Errorf("federation.allowlist_path is required when federation.enabled is true")
	}
	return nil
}

// ExpandHome expands a leading "~" into the user's home directory.
func ExpandHome(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

// String returns the namespace triple as a single cache-key-safe string.
func (n Namespace) String() string {
	return n.TenantID + "/" + n.TeamID + "/" + n.ProjectID
}
