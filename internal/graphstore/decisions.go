package graphstore

import (
	"context"
	"fmt"

	"github.com/actiquest-dev/membria-core/internal/apperrors"
	"github.com/actiquest-dev/membria-core/internal/model"
	"github.com/actiquest-dev/membria-core/internal/sanitize"
)

// AddDecision creates a Decision node tagged with the client's namespace.
// Text fields pass through sanitize before binding, as defense in depth on
// top of parameter binding.
func (c *Client) AddDecision(ctx context.Context, d *model.Decision) error {
	if !c.Connected() {
		return apperrors.ErrNotConnected
	}
	if err := d.Valid(); err != nil {
		return fmt.Errorf("graphstore: add_decision: %w", err)
	}

	cypher := `
CREATE (d:Decision {
  id: $id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id,
  statement: $statement, alternatives: $alternatives, confidence: $confidence,
  module: $module, created_at: $created_at, created_by: $created_by,
  outcome: $outcome, engram_id: $engram_id, commit_sha: $commit_sha,
  memory_type: $memory_type, memory_subject: $memory_subject, ttl_days: $ttl_days,
  is_active: $is_active, source: $source, role_id: $role_id, assignment_id: $assignment_id
})`
	params := map[string]any{
		"id":            d.ID,
		"statement":     sanitize.Statement(d.Statement),
		"alternatives":  d.Alternatives,
		"confidence":    d.Confidence,
		"module":        d.Module,
		"created_at":    d.CreatedAt,
		"created_by":    d.CreatedBy,
		"outcome":       d.Outcome,
		"engram_id":     d.EngramID,
		"commit_sha":    d.CommitSHA,
		"memory_type":   d.MemoryType,
		"memory_subject": d.MemorySubject,
		"ttl_days":      d.TTLDays,
		"is_active":     true,
		"source":        d.Source,
		"role_id":       d.RoleID,
		"assignment_id": d.AssignmentID,
	}
	_, err := c.write(ctx, cypher, params)
	return err
}

// GetDecision returns the Decision by id within the client's namespace, or
// nil if none exists.
func (c *Client) GetDecision(ctx context.Context, id string) (*model.Decision, error) {
	cypher := `
MATCH (d:Decision {id: $id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
RETURN d.id AS id, d.statement AS statement, d.alternatives AS alternatives,
       d.confidence AS confidence, d.module AS module, d.created_at AS created_at,
       d.created_by AS created_by, d.outcome AS outcome, d.engram_id AS engram_id,
       d.commit_sha AS commit_sha, d.is_active AS is_active, d.ttl_days AS ttl_days`
	records, err := c.read(ctx, cypher, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return decisionFromRecord(records[0]), nil
}

func decisionFromRecord(rec recordLike) *model.Decision {
	alternatives := getStrings(rec, "alternatives")
	if alternatives == nil {
		alternatives = []string{}
	}
	return &model.Decision{
		ID:           getString(rec, "id"),
		Statement:    getString(rec, "statement"),
		Alternatives: alternatives,
		Confidence:   getFloat(rec, "confidence"),
		Module:       getString(rec, "module"),
		CreatedAt:    getInt64(rec, "created_at"),
		CreatedBy:    getString(rec, "created_by"),
		Outcome:      getString(rec, "outcome"),
		EngramID:     getString(rec, "engram_id"),
		CommitSHA:    getString(rec, "commit_sha"),
		IsActive:     getBool(rec, "is_active"),
		TTLDays:      int(getInt64(rec, "ttl_days")),
	}
}

// ListRecentDecisions returns up to limit decisions in a module, most recent
// first. Used by the pattern extractor and plan context builder.
func (c *Client) ListRecentDecisions(ctx context.Context, module string, limit int) ([]*model.Decision, error) {
	cypher := `
MATCH (d:Decision {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
WHERE $module = '' OR d.module = $module
RETURN d.id AS id, d.statement AS statement, d.alternatives AS alternatives,
       d.confidence AS confidence, d.module AS module, d.created_at AS created_at,
       d.created_by AS created_by, d.outcome AS outcome, d.engram_id AS engram_id,
       d.commit_sha AS commit_sha, d.is_active AS is_active, d.ttl_days AS ttl_days
ORDER BY d.created_at DESC
LIMIT $limit`
	records, err := c.read(ctx, cypher, map[string]any{"module": module, "limit": limit})
	if err != nil {
		return nil, err
	}
	out := make([]*model.Decision, 0, len(records))
	for _, rec := range records {
		out = append(out, decisionFromRecord(rec))
	}
	return out, nil
}

// ListDecisionsByOutcome returns decisions matching a given outcome status
// ("failure", "success", ...) in a module, most recent first.
func (c *Client) ListDecisionsByOutcome(ctx context.Context, module, outcome string, limit int) ([]*model.Decision, error) {
	cypher := `
MATCH (d:Decision {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
WHERE d.outcome = $outcome AND ($module = '' OR d.module = $module)
RETURN d.id AS id, d.statement AS statement, d.alternatives AS alternatives,
       d.confidence AS confidence, d.module AS module, d.created_at AS created_at,
       d.created_by AS created_by, d.outcome AS outcome, d.engram_id AS engram_id,
       d.commit_sha AS commit_sha, d.is_active AS is_active, d.ttl_days AS ttl_days
ORDER BY d.created_at DESC
LIMIT $limit`
	records, err := c.read(ctx, cypher, map[string]any{"module": module, "outcome": outcome, "limit": limit})
	if err != nil {
		return nil, err
	}
	out := make([]*model.Decision, 0, len(records))
	for _, rec := range records {
		out = append(out, decisionFromRecord(rec))
	}
	return out, nil
}

// ListDecisionsByEngram returns the decisions extracted from one engram, used
// by the plan context builder to score a past plan's decisions by outcome.
func (c *Client) ListDecisionsByEngram(ctx context.Context, engramID string) ([]*model.Decision, error) {
	cypher := `
MATCH (d:Decision {engram_id: $engram_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
RETURN d.id AS id, d.statement AS statement, d.alternatives AS alternatives,
       d.confidence AS confidence, d.module AS module, d.created_at AS created_at,
       d.created_by AS created_by, d.outcome AS outcome, d.engram_id AS engram_id,
       d.commit_sha AS commit_sha, d.is_active AS is_active, d.ttl_days AS ttl_days`
	records, err := c.read(ctx, cypher, map[string]any{"engram_id": engramID})
	if err != nil {
		return nil, err
	}
	out := make([]*model.Decision, 0, len(records))
	for _, rec := range records {
		out = append(out, decisionFromRecord(rec))
	}
	return out, nil
}

// UpdateDecisionMemory records a Decision's resolution: it sets outcome,
// resolved_at, actual_success_rate, and last_verified_at (= resolved_at).
// Deactivation goes through DeactivateDecisionMemory instead.
func (c *Client) UpdateDecisionMemory(ctx context.Context, id string, outcome string, resolvedAt int64, actualSuccessRate *float64) error {
	cypher := `
MATCH (d:Decision {id: $id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
SET d.outcome = $outcome, d.resolved_at = $resolved_at, d.actual_success_rate = $actual_success_rate,
    d.last_verified_at = $resolved_at`
	_, err := c.write(ctx, cypher, map[string]any{
		"id": id, "outcome": outcome, "resolved_at": resolvedAt, "actual_success_rate": actualSuccessRate,
	})
	return err
}

// DeactivateDecisionMemory soft-deactivates a Decision with an explicit
// reason, the decision-side counterpart of DeleteNegativeKnowledge, used by
// the memory_delete tool.
func (c *Client) DeactivateDecisionMemory(ctx context.Context, id, reason string) error {
	cypher := `
MATCH (d:Decision {id: $id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
SET d.is_active = false, d.deprecated_reason = $reason`
	_, err := c.write(ctx, cypher, map[string]any{"id": id, "reason": reason})
	return err
}

