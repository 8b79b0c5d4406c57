package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "membria-core.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEnvOverridesGraphAndNamespace(t *testing.T) {
	t.Setenv("MEMBRIA_GRAPH_URI", "bolt://graph.internal:7687")
	t.Setenv("MEMBRIA_GRAPH_PASSWORD", "hunter2")
	t.Setenv("MEMBRIA_TENANT_ID", "acme")
	t.Setenv("MEMBRIA_QUERY_TIMEOUT", "7s")

	path := writeConfig(t, `
[graph]
uri = "bolt://127.0.0.1:7687"

[general.namespace]
tenant_id = "from-toml"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "bolt://graph.internal:7687", cfg.Graph.URI)
	require.Equal(t, "hunter2", cfg.Graph.Password)
	require.Equal(t, "acme", cfg.General.Namespace.TenantID)
	require.Equal(t, 7*time.Second, cfg.Graph.QueryTimeout.Duration)
}

func TestEnvAbsentLeavesTOMLValues(t *testing.T) {
	path := writeConfig(t, `
[graph]
uri = "bolt://toml-host:7687"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "bolt://toml-host:7687", cfg.Graph.URI)
}

func TestEnvMalformedDurationIsIgnored(t *testing.T) {
	t.Setenv("MEMBRIA_QUERY_TIMEOUT", "not-a-duration")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	require.Equal(t, 15*time.Second, cfg.Graph.QueryTimeout.Duration)
}

func TestEnvFederationOverrides(t *testing.T) {
	t.Setenv("MEMBRIA_FEDERATION_ALLOWLIST", "/etc/membria/allowlist.json")
	t.Setenv("MEMBRIA_FEDERATION_REFRESH", "90s")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	require.Equal(t, "/etc/membria/allowlist.json", cfg.Federation.AllowlistPath)
	require.Equal(t, 90*time.Second, cfg.Federation.RefreshInterval.Duration)
}
