// Package graphstore provides typed accessors over a property-graph engine
// (Neo4j/Bolt), injecting the current namespace triple into every query,
// binding all user-supplied values as parameters, and surfacing a small
// typed error taxonomy instead of raw driver errors. It is the thin Go
// wrapper the rest of the core builds on, grounded on the
// quanticsoul4772-unified-thinking manifest (neo4j-go-driver/v5 paired with
// an MCP tool server) and evalgo-org-eve's GraphRepository shape reference.
package graphstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/actiquest-dev/membria-core/internal/apperrors"
	"github.com/actiquest-dev/membria-core/internal/config"
)

// Client wraps a neo4j.DriverWithContext, threading the process-wide
// namespace into every operation. Mirrors the teacher's store.Store
// Open/Close connection-lifecycle pattern in internal/store/store.go.
type Client struct {
	driver    neo4j.DriverWithContext
	database  string
	namespace config.Namespace
	timeout   time.Duration
	log       *slog.Logger

	connected bool
}

// Connect opens a Bolt driver session against the configured graph engine
// and verifies connectivity. On failure it returns apperrors.ErrNotConnected
// wrapped with the underlying cause; no partial client is returned.
func Connect(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}

	auth := neo4j.NoAuth()
	if cfg.Graph.Username != "" {
		auth = neo4j.BasicAuth(cfg.Graph.Username, cfg.Graph.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.Graph.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("graphstore: creating driver: %w: %v", apperrors.ErrNotConnected, err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Graph.ConnectTimeout.Duration)
	defer cancel()
	if err := driver.VerifyConnectivity(connectCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graphstore: verifying connectivity: %w: %v", apperrors.ErrNotConnected, err)
	}

	return &Client{
		driver:    driver,
		database:  cfg.Graph.Database,
		namespace: cfg.General.Namespace,
		timeout:   cfg.Graph.QueryTimeout.Duration,
		log:       log,
		connected: true,
	}, nil
}

// Connected reports whether the client currently holds a live driver.
// Every public accessor checks this first and refuses to operate otherwise,
// per §4.1's "refuse to operate if not connected" rule.
func (c *Client) Connected() bool {
	return c != nil && c.connected
}

// Close releases the underlying driver. Safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || !c.connected {
		return nil
	}
	c.connected = false
	return c.driver.Close(ctx)
}

// Namespace returns the process-wide namespace triple threaded into every
// query this client issues.
func (c *Client) Namespace() config.Namespace { return c.namespace }

// nsParams returns the namespace triple as a parameter map fragment, merged
// into every query's parameter set so MATCH/CREATE/MERGE clauses can filter
// or tag by tenant_id/team_id/project_id.
func (c *Client) nsParams() map[string]any {
	return map[string]any{
		"tenant_id":  c.namespace.TenantID,
		"team_id":    c.namespace.TeamID,
		"project_id": c.namespace.ProjectID,
	}
}

func mergeParams(base map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// session opens a fresh Bolt session for one logical operation, matching
// §4.1 AMBIENT STACK's "a session is opened per logical operation" rule.
func (c *Client) session(ctx context.Context) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
}

// write executes cypher as a write transaction, injecting the namespace
// triple into params, and returns the raw result records.
func (c *Client) write(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	if !c.Connected() {
		return nil, apperrors.ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	session := c.session(ctx)
	defer session.Close(ctx)

	full := mergeParams(c.nsParams(), params)
	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, full)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		c.log.Error("graphstore write failed", "error", err)
		return nil, fmt.Errorf("graphstore: write: %w: %v", apperrors.ErrQueryFailed, err)
	}
	records, _ := result.([]*neo4j.Record)
	return records, nil
}

// read executes cypher as a read transaction, injecting the namespace
// triple into params, and returns the raw result records.
func (c *Client) read(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	if !c.Connected() {
		return nil, apperrors.ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	session := c.session(ctx)
	defer session.Close(ctx)

	full := mergeParams(c.nsParams(), params)
	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, full)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		c.log.Error("graphstore read failed", "error", err)
		return nil, fmt.Errorf("graphstore: read: %w: %v", apperrors.ErrQueryFailed, err)
	}
	records, _ := result.([]*neo4j.Record)
	return records, nil
}

// Query executes an arbitrary read-only Cypher statement with bound
// parameters, exposed for the analytics method group and for callers that
// need a raw escape hatch. It never accepts caller-concatenated strings;
// params must be bound.
func (c *Client) Query(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	return c.read(ctx, cypher, params)
}

// Ping issues a trivial read to confirm the driver can still reach the
// graph engine, used by the health-monitor background worker (§4.9).
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.read(ctx, "RETURN 1 AS ok", nil)
	return err
}

// recordLike lets the typed field getters below work against both
// *neo4j.Record and lightweight test doubles.
type recordLike interface {
	Get(key string) (any, bool)
}

func getString(rec recordLike, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func getInt64(rec recordLike, key string) int64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

func getFloat(rec recordLike, key string) float64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

func getBool(rec recordLike, key string) bool {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

func getStrings(rec recordLike, key string) []string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
