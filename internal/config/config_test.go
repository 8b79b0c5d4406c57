package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const minimalConfig = `
[general]
log_level = "debug"

[general.namespace]
tenant_id = "acme"
team_id = "platform"
project_id = "membria"

[graph]
uri = "bolt://localhost:7687"
`

func writeTestConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTestConfig(t, minimalConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "acme", cfg.General.Namespace.TenantID)
	require.Equal(t, "general", cfg.General.DefaultModule)
	require.Equal(t, "neo4j", cfg.Graph.Database)
	require.Equal(t, 20, cfg.Calibration.RollingWindowSize)
	require.Equal(t, "membria-core", cfg.ToolServer.Name)
	require.Equal(t, 300, int(cfg.Scheduler.SweepInterval.Seconds()))
	require.Equal(t, 1000, cfg.Workers.PendingQueueSoftCap)
	require.Equal(t, 5000, cfg.Workers.PendingQueueHardCap)
}

func TestLoadDefaultsMissingTenant(t *testing.T) {
	path := writeTestConfig(t, `
[graph]
uri = "bolt://localhost:7687"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "default", cfg.General.Namespace.TenantID)
}

func TestLoadAppliesGraphURIDefault(t *testing.T) {
	path := writeTestConfig(t, `
[general.namespace]
tenant_id = "acme"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "bolt://127.0.0.1:7687", cfg.Graph.URI)
}

func TestLoadRejectsInconsistentQueueCaps(t *testing.T) {
	path := writeTestConfig(t, minimalConfig+`
[workers]
pending_queue_soft_cap = 500
pending_queue_hard_cap = 100
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsFederationWithoutAllowlist(t *testing.T) {
	path := writeTestConfig(t, minimalConfig+`
[federation]
enabled = true
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadAcceptsFederationWithAllowlist(t *testing.T) {
	path := writeTestConfig(t, minimalConfig+`
[federation]
enabled = true
allowlist_path = "~/.membria/federation-allowlist.json"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.True(t, cfg.Federation.Enabled)
	require.NotContains(t, cfg.Federation.AllowlistPath, "~")
}

func TestDurationUnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	require.Equal(t, 90e9, float64(d.Duration))

	text, err := d.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "1m30s", string(text))
}

func TestDurationUnmarshalTextRejectsGarbage(t *testing.T) {
	var d Duration
	require.Error(t, d.UnmarshalText([]byte("not-a-duration")))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "foo"), ExpandHome("~/foo"))
	require.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	require.Equal(t, "", ExpandHome(""))
}

func TestNamespaceString(t *testing.T) {
	ns := Namespace{TenantID: "t", TeamID: "u", ProjectID: "p"}
	require.Equal(t, "t/u/p", ns.String())
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := &Config{General: General{LogLevel: "info"}}
	clone := cfg.Clone()
	require.NotSame(t, cfg, clone)
	clone.General.LogLevel = "error"
	require.Equal(t, "info", cfg.General.LogLevel)
}

func TestCloneNil(t *testing.T) {
	var cfg *Config
	require.Nil(t, cfg.Clone())
}
