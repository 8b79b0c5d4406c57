package graphstore

import (
	"context"
	"encoding/json"

	"github.com/actiquest-dev/membria-core/internal/model"
)

// AddEngram creates an Engram node. It creates no edges; MADE_IN links to
// decisions are made separately by LinkDecisionEngram.
func (c *Client) AddEngram(ctx context.Context, e *model.Engram) error {
	transcriptJSON, err := json.Marshal(e.Transcript)
	if err != nil {
		return err
	}
	filesJSON, err := json.Marshal(e.FilesChanged)
	if err != nil {
		return err
	}
	summaryJSON, err := json.Marshal(e.Summary)
	if err != nil {
		return err
	}
	cypher := `
CREATE (e:Engram {
  id: $id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id,
  session_id: $session_id, commit_sha: $commit_sha, branch: $branch,
  created_at: $created_at, agent_type: $agent_type, model: $model,
  session_duration_sec: $session_duration_sec, total_tokens: $total_tokens,
  total_cost_usd: $total_cost_usd, decisions_extracted: $decisions_extracted,
  files_changed_count: $files_changed_count, transcript_json: $transcript_json,
  files_changed_json: $files_changed_json, summary_json: $summary_json
})`
	params := map[string]any{
		"id": e.ID, "session_id": e.SessionID, "commit_sha": e.CommitSHA, "branch": e.Branch,
		"created_at": e.CreatedAt, "agent_type": e.AgentType, "model": e.Model,
		"session_duration_sec": e.SessionDurationSec, "total_tokens": e.TotalTokens,
		"total_cost_usd": e.TotalCostUSD, "decisions_extracted": e.DecisionsExtracted,
		"files_changed_count": e.FilesChangedCount, "transcript_json": string(transcriptJSON),
		"files_changed_json": string(filesJSON), "summary_json": string(summaryJSON),
	}
	_, err = c.write(ctx, cypher, params)
	return err
}

// LinkDecisionEngram creates the MADE_IN edge from a Decision to the Engram
// it was extracted in, carrying the confidence given at capture time.
func (c *Client) LinkDecisionEngram(ctx context.Context, decisionID, engramID string, confidenceGiven float64) error {
	cypher := `
MATCH (d:Decision {id: $decision_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
MATCH (e:Engram {id: $engram_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
CREATE (d)-[:MADE_IN {confidence_given: $confidence_given}]->(e)`
	_, err := c.write(ctx, cypher, map[string]any{
		"decision_id": decisionID, "engram_id": engramID, "confidence_given": confidenceGiven,
	})
	return err
}

// LinkEngramSessionContext links an Engram to the SessionContext it was
// captured from, used by record_plan to stitch together a planning session.
func (c *Client) LinkEngramSessionContext(ctx context.Context, engramID, sessionID string) error {
	cypher := `
MATCH (e:Engram {id: $engram_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
MATCH (s:SessionContext {session_id: $session_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
MERGE (e)-[:IN_SESSION]->(s)`
	_, err := c.write(ctx, cypher, map[string]any{"engram_id": engramID, "session_id": sessionID})
	return err
}

// ListRecentEngrams returns up to limit engrams in the namespace, most
// recent first, with no further filtering; the plan context builder uses
// these as "past plans".
func (c *Client) ListRecentEngrams(ctx context.Context, limit int) ([]*model.Engram, error) {
	cypher := `
MATCH (e:Engram {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
RETURN e.id AS id, e.session_id AS session_id, e.commit_sha AS commit_sha, e.branch AS branch,
       e.created_at AS created_at, e.agent_type AS agent_type, e.model AS model,
       e.decisions_extracted AS decisions_extracted, e.files_changed_count AS files_changed_count,
       e.summary_json AS summary_json
ORDER BY e.created_at DESC
LIMIT $limit`
	records, err := c.read(ctx, cypher, map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}
	out := make([]*model.Engram, 0, len(records))
	for _, rec := range records {
		e := &model.Engram{
			ID: getString(rec, "id"), SessionID: getString(rec, "session_id"),
			CommitSHA: getString(rec, "commit_sha"), Branch: getString(rec, "branch"),
			CreatedAt: getInt64(rec, "created_at"), AgentType: getString(rec, "agent_type"),
			Model: getString(rec, "model"), DecisionsExtracted: int(getInt64(rec, "decisions_extracted")),
			FilesChangedCount: int(getInt64(rec, "files_changed_count")),
		}
		if raw := getString(rec, "summary_json"); raw != "" && raw != "null" {
			_ = json.Unmarshal([]byte(raw), &e.Summary)
		}
		out = append(out, e)
	}
	return out, nil
}
