package federation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/actiquest-dev/membria-core/internal/config"
	"github.com/actiquest-dev/membria-core/internal/toolserver"
	"github.com/stretchr/testify/require"
)

func writeAllowlist(t *testing.T, names ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "allowlist.json")
	data, err := json.Marshal(names)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func remoteEndpoint(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/tools", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"tools": []map[string]any{
			{"name": "summarize", "description": "Summarize a text."},
			{"name": "translate", "description": "Translate a text."},
		}})
	})
	mux.HandleFunc("/call", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Name == "translate" {
			json.NewEncoder(w).Encode(map[string]any{"error": "unsupported language"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"summary": "short"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRefreshRegistersOnlyAllowlistedTools(t *testing.T) {
	remote := remoteEndpoint(t)
	reg := toolserver.NewRegistry()
	c := New(config.Federation{
		Enabled:       true,
		Endpoint:      remote.URL,
		AllowlistPath: writeAllowlist(t, "summarize"),
	}, reg, nil)

	require.NoError(t, c.Refresh(context.Background()))

	_, ok := reg.Lookup("ext.summarize")
	require.True(t, ok)
	_, ok = reg.Lookup("ext.translate")
	require.False(t, ok)
	_, ok = reg.Lookup("summarize") // never registered unprefixed
	require.False(t, ok)
}

func TestRefreshIsIdempotent(t *testing.T) {
	remote := remoteEndpoint(t)
	reg := toolserver.NewRegistry()
	c := New(config.Federation{
		Endpoint:      remote.URL,
		AllowlistPath: writeAllowlist(t, "summarize"),
	}, reg, nil)

	require.NoError(t, c.Refresh(context.Background()))
	require.NoError(t, c.Refresh(context.Background()))
	require.Len(t, reg.Names(), 1)
}

func TestDelegatedCallRelaysResult(t *testing.T) {
	remote := remoteEndpoint(t)
	reg := toolserver.NewRegistry()
	c := New(config.Federation{
		Endpoint:      remote.URL,
		AllowlistPath: writeAllowlist(t, "summarize", "translate"),
	}, reg, nil)
	require.NoError(t, c.Refresh(context.Background()))

	tool, ok := reg.Lookup("ext.summarize")
	require.True(t, ok)
	out, err := tool.Handler(context.Background(), json.RawMessage(`{"text":"long input"}`))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"summary": "short"}, out)
}

func TestDelegatedCallRelaysRemoteError(t *testing.T) {
	remote := remoteEndpoint(t)
	reg := toolserver.NewRegistry()
	c := New(config.Federation{
		Endpoint:      remote.URL,
		AllowlistPath: writeAllowlist(t, "translate"),
	}, reg, nil)
	require.NoError(t, c.Refresh(context.Background()))

	tool, ok := reg.Lookup("ext.translate")
	require.True(t, ok)
	_, err := tool.Handler(context.Background(), json.RawMessage(`{}`))
	require.ErrorContains(t, err, "unsupported language")
}

func TestRefreshFailsOnMissingAllowlist(t *testing.T) {
	remote := remoteEndpoint(t)
	c := New(config.Federation{
		Endpoint:      remote.URL,
		AllowlistPath: filepath.Join(t.TempDir(), "missing.json"),
	}, toolserver.NewRegistry(), nil)

	require.Error(t, c.Refresh(context.Background()))
}
