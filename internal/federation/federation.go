// Package federation implements the optional external tool federation of
// §4.9: a discovery client that reads an allowlist of remote tool names,
// fetches the remote endpoint's tool catalogue, and registers each allowed
// tool under an "ext."-prefixed name whose handler delegates the call over
// HTTP. Federated tools bypass local schema validation — their shape is
// owned by the remote endpoint — so they register through the Registry's
// raw path rather than the reflected-schema one.
package federation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/actiquest-dev/membria-core/internal/config"
	"github.com/actiquest-dev/membria-core/internal/toolserver"
)

// Prefix marks every federated tool name exposed locally.
const Prefix = "ext."

// defaultHTTPTimeout bounds discovery and delegated calls when the remote
// endpoint stalls, the same ceiling the graph client's query timeout uses.
const defaultHTTPTimeout = 15 * time.Second

// remoteTool is one entry of the remote endpoint's GET /tools response.
type remoteTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Client discovers and delegates federated tools.
type Client struct {
	cfg  config.Federation
	reg  *toolserver.Registry
	http *http.Client
	log  *slog.Logger

	mu         sync.Mutex
	registered map[string]bool
}

// New constructs a federation Client over reg. Nothing is registered until
// the first Refresh.
func New(cfg config.Federation, reg *toolserver.Registry, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		reg:        reg,
		http:       &http.Client{Timeout: defaultHTTPTimeout},
		log:        logger,
		registered: make(map[string]bool),
	}
}

// Run performs an initial Refresh and then re-discovers on the configured
// interval until ctx is cancelled. A failed refresh is logged and retried on
// the next tick; already-registered tools keep working.
func (c *Client) Run(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		c.log.Error("federation refresh failed", "error", err)
	}

	interval := c.cfg.RefreshInterval.Duration
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.log.Error("federation refresh failed", "error", err)
			}
		}
	}
}

// Refresh re-reads the allowlist, fetches the remote catalogue, and
// registers any newly allowed tools. Registration is additive: a tool
// removed from the allowlist stops being offered on the next process start,
// since the registry has no deregistration path and in-flight callers may
// still hold its name.
func (c *Client) Refresh(ctx context.Context) error {
	allowed, err := loadAllowlist(c.cfg.AllowlistPath)
	if err != nil {
		return err
	}

	tools, err := c.discover(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tool := range tools {
		if !allowed[tool.Name] || c.registered[tool.Name] {
			continue
		}
		c.reg.RegisterRaw(Prefix+tool.Name, tool.Description, c.delegate(tool.Name))
		c.registered[tool.Name] = true
		c.log.Info("registered federated tool", "name", Prefix+tool.Name)
	}
	return nil
}

// loadAllowlist reads a JSON array of remote tool names from path.
func loadAllowlist(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("federation: reading allowlist %s: %w", path, err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("federation: parsing allowlist %s: %w", path, err)
	}
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	return allowed, nil
}

// discover fetches the remote endpoint's tool catalogue.
func (c *Client) discover(ctx context.Context) ([]remoteTool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"/tools", nil)
	if err != nil {
		return nil, fmt.Errorf("federation: building discovery request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("federation: discovery: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("federation: discovery: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Tools []remoteTool `json:"tools"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("federation: decoding discovery response: %w", err)
	}
	return payload.Tools, nil
}

// delegate returns a handler that forwards a tool call to the remote
// endpoint and relays its result or error verbatim.
func (c *Client) delegate(remoteName string) toolserver.Handler {
	return func(ctx context.Context, args json.RawMessage) (any, error) {
		body, err := json.Marshal(map[string]any{
			"name":      remoteName,
			"arguments": args,
		})
		if err != nil {
			return nil, fmt.Errorf("federation: encoding call for %s: %w", remoteName, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/call", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("federation: building call request for %s: %w", remoteName, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("federation: calling %s: %w", remoteName, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("federation: reading response for %s: %w", remoteName, err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("federation: %s: unexpected status %d", remoteName, resp.StatusCode)
		}

		var payload struct {
			Result json.RawMessage `json:"result"`
			Error  string          `json:"error"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("federation: decoding response for %s: %w", remoteName, err)
		}
		if payload.Error != "" {
			return nil, fmt.Errorf("federation: %s: %s", remoteName, payload.Error)
		}

		var out any
		if len(payload.Result) > 0 {
			if err := json.Unmarshal(payload.Result, &out); err != nil {
				return nil, fmt.Errorf("federation: decoding result for %s: %w", remoteName, err)
			}
		}
		return out, nil
	}
}
