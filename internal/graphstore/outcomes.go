package graphstore

import (
	"context"
	"encoding/json"

	"github.com/actiquest-dev/membria-core/internal/apperrors"
	"github.com/actiquest-dev/membria-core/internal/model"
	"github.com/actiquest-dev/membria-core/internal/sanitize"
)

// AddOutcome creates an Outcome node linked back to its CodeChange (and,
// transitively, its Decision) via RESULTED_IN.
func (c *Client) AddOutcome(ctx context.Context, o *model.Outcome) error {
	signalsJSON, err := json.Marshal(o.Signals)
	if err != nil {
		return err
	}
	cypher := `
CREATE (o:Outcome {
  id: $id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id,
  status: $status, evidence: $evidence, measured_at: $measured_at,
  code_change_id: $code_change_id, decision_id: $decision_id,
  is_active: $is_active, ttl_days: $ttl_days, signals_json: $signals_json
})
WITH o
OPTIONAL MATCH (cc:CodeChange {id: $code_change_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
FOREACH (_ IN CASE WHEN cc IS NULL THEN [] ELSE [1] END |
  CREATE (cc)-[:RESULTED_IN {days_to_outcome: 0}]->(o)
)`
	params := map[string]any{
		"id": o.ID, "status": o.Status, "evidence": sanitize.Evidence(o.Evidence),
		"measured_at": o.MeasuredAt, "code_change_id": o.CodeChangeID,
		"decision_id": o.DecisionID, "is_active": true, "ttl_days": o.TTLDays,
		"signals_json": string(signalsJSON),
	}
	_, err = c.write(ctx, cypher, params)
	return err
}

// GetOutcome returns the Outcome by id, or apperrors.ErrNotFound if absent.
func (c *Client) GetOutcome(ctx context.Context, id string) (*model.Outcome, error) {
	cypher := `
MATCH (o:Outcome {id: $id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
RETURN o.id AS id, o.status AS status, o.evidence AS evidence, o.measured_at AS measured_at,
       o.code_change_id AS code_change_id, o.decision_id AS decision_id,
       o.is_active AS is_active, o.ttl_days AS ttl_days, o.signals_json AS signals_json,
       o.submitted_at AS submitted_at, o.pr_number AS pr_number, o.pr_url AS pr_url,
       o.merged_at AS merged_at, o.completed_at AS completed_at,
       o.final_status AS final_status, o.final_score AS final_score`
	records, err := c.read(ctx, cypher, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return outcomeFromRecord(records[0]), nil
}

func outcomeFromRecord(rec recordLike) *model.Outcome {
	o := &model.Outcome{
		ID:           getString(rec, "id"),
		Status:       getString(rec, "status"),
		Evidence:     getString(rec, "evidence"),
		MeasuredAt:   getInt64(rec, "measured_at"),
		CodeChangeID: getString(rec, "code_change_id"),
		DecisionID:   getString(rec, "decision_id"),
		IsActive:     getBool(rec, "is_active"),
		TTLDays:      int(getInt64(rec, "ttl_days")),
		PRNumber:     int(getInt64(rec, "pr_number")),
		PRURL:        getString(rec, "pr_url"),
		FinalStatus:  getString(rec, "final_status"),
		FinalScore:   getFloat(rec, "final_score"),
	}
	if raw := getString(rec, "signals_json"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &o.Signals)
	}
	if v := getInt64(rec, "submitted_at"); v != 0 {
		o.SubmittedAt = &v
	}
	if v := getInt64(rec, "merged_at"); v != 0 {
		o.MergedAt = &v
	}
	if v := getInt64(rec, "completed_at"); v != 0 {
		o.CompletedAt = &v
	}
	return o
}

// SaveOutcome persists the full mutable state of an outcome (status,
// signals, and the phase-specific timestamp fields set by the state
// machine). It is the single write path the outcome tracker uses after
// loading an outcome via GetOutcome.
func (c *Client) SaveOutcome(ctx context.Context, o *model.Outcome) error {
	signalsJSON, err := json.Marshal(o.Signals)
	if err != nil {
		return err
	}
	cypher := `
MATCH (o:Outcome {id: $id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
SET o.status = $status, o.signals_json = $signals_json,
    o.submitted_at = $submitted_at, o.pr_number = $pr_number, o.pr_url = $pr_url,
    o.merged_at = $merged_at, o.completed_at = $completed_at,
    o.final_status = $final_status, o.final_score = $final_score,
    o.is_active = $is_active, o.deprecated_reason = $deprecated_reason,
    o.code_change_id = $code_change_id
WITH o
OPTIONAL MATCH (cc:CodeChange {id: $code_change_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
FOREACH (_ IN CASE WHEN cc IS NULL THEN [] ELSE [1] END |
  MERGE (cc)-[:RESULTED_IN]->(o)
)`
	params := map[string]any{
		"id": o.ID, "status": o.Status, "signals_json": string(signalsJSON),
		"code_change_id": o.CodeChangeID,
		"submitted_at": o.SubmittedAt, "pr_number": o.PRNumber, "pr_url": o.PRURL,
		"merged_at": o.MergedAt, "completed_at": o.CompletedAt,
		"final_status": o.FinalStatus, "final_score": o.FinalScore,
		"is_active": o.IsActive, "deprecated_reason": o.DeprecatedReason,
	}
	_, err = c.write(ctx, cypher, params)
	return err
}

// FindOutcomeByCommit returns the outcome whose code change carries the
// given commit SHA, used by the webhook handler to find the outcome a PR
// merge or CI event's head commit belongs to.
func (c *Client) FindOutcomeByCommit(ctx context.Context, commitSHA string) (*model.Outcome, error) {
	cypher := `
MATCH (cc:CodeChange {commit_sha: $commit_sha, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})-[:RESULTED_IN]->(o:Outcome)
RETURN o.id AS id, o.status AS status, o.evidence AS evidence, o.measured_at AS measured_at,
       o.code_change_id AS code_change_id, o.decision_id AS decision_id,
       o.is_active AS is_active, o.ttl_days AS ttl_days, o.signals_json AS signals_json,
       o.submitted_at AS submitted_at, o.pr_number AS pr_number, o.pr_url AS pr_url,
       o.merged_at AS merged_at, o.completed_at AS completed_at,
       o.final_status AS final_status, o.final_score AS final_score
LIMIT 1`
	records, err := c.read(ctx, cypher, map[string]any{"commit_sha": commitSHA})
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return outcomeFromRecord(records[0]), nil
}

// FindOutcomeByDecision returns the outcome created for a decision, or nil.
func (c *Client) FindOutcomeByDecision(ctx context.Context, decisionID string) (*model.Outcome, error) {
	cypher := `
MATCH (o:Outcome {decision_id: $decision_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
RETURN o.id AS id, o.status AS status, o.evidence AS evidence, o.measured_at AS measured_at,
       o.code_change_id AS code_change_id, o.decision_id AS decision_id,
       o.is_active AS is_active, o.ttl_days AS ttl_days, o.signals_json AS signals_json,
       o.submitted_at AS submitted_at, o.pr_number AS pr_number, o.pr_url AS pr_url,
       o.merged_at AS merged_at, o.completed_at AS completed_at,
       o.final_status AS final_status, o.final_score AS final_score
ORDER BY o.measured_at DESC
LIMIT 1`
	records, err := c.read(ctx, cypher, map[string]any{"decision_id": decisionID})
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return outcomeFromRecord(records[0]), nil
}

// ListOutcomes returns outcomes filtered by status (empty means any).
func (c *Client) ListOutcomes(ctx context.Context, status string, limit int) ([]*model.Outcome, error) {
	cypher := `
MATCH (o:Outcome {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
WHERE $status = '' OR o.status = $status
RETURN o.id AS id, o.status AS status, o.evidence AS evidence, o.measured_at AS measured_at,
       o.code_change_id AS code_change_id, o.decision_id AS decision_id,
       o.is_active AS is_active, o.ttl_days AS ttl_days, o.signals_json AS signals_json,
       o.submitted_at AS submitted_at, o.pr_number AS pr_number, o.pr_url AS pr_url,
       o.merged_at AS merged_at, o.completed_at AS completed_at,
       o.final_status AS final_status, o.final_score AS final_score
ORDER BY o.measured_at DESC
LIMIT $limit`
	records, err := c.read(ctx, cypher, map[string]any{"status": status, "limit": limit})
	if err != nil {
		return nil, err
	}
	out := make([]*model.Outcome, 0, len(records))
	for _, rec := range records {
		out = append(out, outcomeFromRecord(rec))
	}
	return out, nil
}
