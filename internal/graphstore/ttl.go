package graphstore

import "context"

// deactivateExpired runs the fixed §4.1 TTL-sweep template against a single
// label, comparing <originTSField> + ttl_days*86400 against nowTS, and
// returns the count of newly deactivated records. The query is a single
// bounded write: idempotent, since a record already deactivated no longer
// matches "is_active IN (null,true)".
func (c *Client) deactivateExpired(ctx context.Context, label, originTSField string, nowTS int64) (int64, error) {
	cypher := `
MATCH (n:` + cypherLabel(label) + ` {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
WHERE (n.is_active IS NULL OR n.is_active = true)
  AND n.ttl_days IS NOT NULL AND n.` + originTSField + ` IS NOT NULL
  AND n.` + originTSField + ` + n.ttl_days * 86400 < $now
SET n.is_active = false, n.deprecated_reason = "ttl_expired"
RETURN count(n) AS deactivated`
	records, err := c.write(ctx, cypher, map[string]any{"now": nowTS})
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return getInt64(records[0], "deactivated"), nil
}

// DeactivateExpiredDecisions sweeps Decision nodes whose created_at + ttl
// has elapsed.
func (c *Client) DeactivateExpiredDecisions(ctx context.Context, nowTS int64) (int64, error) {
	return c.deactivateExpired(ctx, "Decision", "created_at", nowTS)
}

// DeactivateExpiredOutcomes sweeps Outcome nodes whose measured_at + ttl has
// elapsed.
func (c *Client) DeactivateExpiredOutcomes(ctx context.Context, nowTS int64) (int64, error) {
	return c.deactivateExpired(ctx, "Outcome", "measured_at", nowTS)
}

// DeactivateExpiredNegativeKnowledge sweeps NegativeKnowledge nodes whose
// discovered_at + ttl has elapsed.
func (c *Client) DeactivateExpiredNegativeKnowledge(ctx context.Context, nowTS int64) (int64, error) {
	return c.deactivateExpired(ctx, "NegativeKnowledge", "discovered_at", nowTS)
}

// DeactivateExpiredSkills sweeps Skill nodes whose created_at + ttl has
// elapsed.
func (c *Client) DeactivateExpiredSkills(ctx context.Context, nowTS int64) (int64, error) {
	return c.deactivateExpired(ctx, "Skill", "created_at", nowTS)
}

// DeactivateExpiredSessionContexts deactivates SessionContext rows whose
// expires_at has passed. Session contexts already carry a precomputed
// expires_at rather than a ttl_days + origin pair, so this uses a dedicated
// comparison instead of the shared helper.
func (c *Client) DeactivateExpiredSessionContexts(ctx context.Context, nowTS int64) (int64, error) {
	cypher := `
MATCH (n:SessionContext {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
WHERE (n.is_active IS NULL OR n.is_active = true) AND n.expires_at < $now
SET n.is_active = false
RETURN count(n) AS deactivated`
	records, err := c.write(ctx, cypher, map[string]any{"now": nowTS})
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return getInt64(records[0], "deactivated"), nil
}
