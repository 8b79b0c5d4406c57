package graphstore

import (
	"context"

	"github.com/actiquest-dev/membria-core/internal/model"
	"github.com/actiquest-dev/membria-core/internal/sanitize"
)

// AddNegativeKnowledge creates a NegativeKnowledge node.
func (c *Client) AddNegativeKnowledge(ctx context.Context, nk *model.NegativeKnowledge) error {
	cypher := `
CREATE (n:NegativeKnowledge {
  id: $id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id,
  hypothesis: $hypothesis, conclusion: $conclusion, evidence: $evidence,
  domain: $domain, severity: $severity, discovered_at: $discovered_at,
  expires_at: $expires_at, blocks_pattern: $blocks_pattern,
  recommendation: $recommendation, source: $source, ttl_days: $ttl_days,
  is_active: $is_active
})`
	params := map[string]any{
		"id": nk.ID, "hypothesis": sanitize.Statement(nk.Hypothesis),
		"conclusion": sanitize.Evidence(nk.Conclusion), "evidence": sanitize.Evidence(nk.Evidence),
		"domain": nk.Domain, "severity": nk.Severity, "discovered_at": nk.DiscoveredAt,
		"expires_at": nk.ExpiresAt, "blocks_pattern": nk.BlocksPattern,
		"recommendation": nk.Recommendation, "source": nk.Source, "ttl_days": nk.TTLDays,
		"is_active": true,
	}
	_, err := c.write(ctx, cypher, params)
	return err
}

// ListNegativeKnowledge returns up to limit active NK entries, optionally
// filtered by domain, most recently discovered first.
func (c *Client) ListNegativeKnowledge(ctx context.Context, domain string, limit int) ([]*model.NegativeKnowledge, error) {
	cypher := `
MATCH (n:NegativeKnowledge {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
WHERE n.is_active AND ($domain = '' OR n.domain = $domain)
RETURN n.id AS id, n.hypothesis AS hypothesis, n.conclusion AS conclusion, n.evidence AS evidence,
       n.domain AS domain, n.severity AS severity, n.discovered_at AS discovered_at,
       n.blocks_pattern AS blocks_pattern, n.recommendation AS recommendation,
       n.is_active AS is_active
ORDER BY n.discovered_at DESC
LIMIT $limit`
	records, err := c.read(ctx, cypher, map[string]any{"domain": domain, "limit": limit})
	if err != nil {
		return nil, err
	}
	out := make([]*model.NegativeKnowledge, 0, len(records))
	for _, rec := range records {
		out = append(out, &model.NegativeKnowledge{
			ID: getString(rec, "id"), Hypothesis: getString(rec, "hypothesis"),
			Conclusion: getString(rec, "conclusion"), Evidence: getString(rec, "evidence"),
			Domain: getString(rec, "domain"), Severity: getString(rec, "severity"),
			DiscoveredAt: getInt64(rec, "discovered_at"), BlocksPattern: getString(rec, "blocks_pattern"),
			Recommendation: getString(rec, "recommendation"), IsActive: getBool(rec, "is_active"),
		})
	}
	return out, nil
}

// UpdateNegativeKnowledgeMemory applies a memory-lifecycle mutation
// (deactivation with a reason) to an NK entry.
func (c *Client) UpdateNegativeKnowledgeMemory(ctx context.Context, id string, isActive bool, deprecatedReason string) error {
	cypher := `
MATCH (n:NegativeKnowledge {id: $id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
SET n.is_active = $is_active, n.deprecated_reason = $deprecated_reason`
	_, err := c.write(ctx, cypher, map[string]any{"id": id, "is_active": isActive, "deprecated_reason": deprecatedReason})
	return err
}

// DeleteNegativeKnowledge soft-deactivates an NK entry with an explicit
// reason, used by the memory_delete tool.
func (c *Client) DeleteNegativeKnowledge(ctx context.Context, id, reason string) error {
	return c.UpdateNegativeKnowledgeMemory(ctx, id, false, reason)
}
