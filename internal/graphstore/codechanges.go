package graphstore

import (
	"context"

	"github.com/actiquest-dev/membria-core/internal/model"
)

// AddCodeChange creates a CodeChange node, optionally linking it to the
// decision it implements via IMPLEMENTED_IN.
func (c *Client) AddCodeChange(ctx context.Context, cc *model.CodeChange) error {
	cypher := `
CREATE (cc:CodeChange {
  id: $id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id,
  commit_sha: $commit_sha, files_changed: $files_changed, timestamp: $timestamp,
  author: $author, decision_id: $decision_id, lines_added: $lines_added,
  lines_removed: $lines_removed
})
WITH cc
OPTIONAL MATCH (d:Decision {id: $decision_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
FOREACH (_ IN CASE WHEN d IS NULL THEN [] ELSE [1] END |
  CREATE (d)-[:IMPLEMENTED_IN {implemented_at: $timestamp}]->(cc)
)`
	params := map[string]any{
		"id": cc.ID, "commit_sha": cc.CommitSHA, "files_changed": cc.FilesChanged,
		"timestamp": cc.Timestamp, "author": cc.Author, "decision_id": cc.DecisionID,
		"lines_added": cc.LinesAdded, "lines_removed": cc.LinesRemoved,
	}
	_, err := c.write(ctx, cypher, params)
	return err
}

// GetCodeChangeByDecision returns the most recent CodeChange implementing a
// decision, or nil if none exists.
func (c *Client) GetCodeChangeByDecision(ctx context.Context, decisionID string) (*model.CodeChange, error) {
	cypher := `
MATCH (cc:CodeChange {decision_id: $decision_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
RETURN cc.id AS id, cc.commit_sha AS commit_sha, cc.files_changed AS files_changed,
       cc.timestamp AS timestamp, cc.author AS author, cc.decision_id AS decision_id,
       cc.lines_added AS lines_added, cc.lines_removed AS lines_removed
ORDER BY cc.timestamp DESC
LIMIT 1`
	records, err := c.read(ctx, cypher, map[string]any{"decision_id": decisionID})
	if err != nil || len(records) == 0 {
		return nil, err
	}
	rec := records[0]
	return &model.CodeChange{
		ID:           getString(rec, "id"),
		CommitSHA:    getString(rec, "commit_sha"),
		FilesChanged: getStrings(rec, "files_changed"),
		Timestamp:    getInt64(rec, "timestamp"),
		Author:       getString(rec, "author"),
		DecisionID:   getString(rec, "decision_id"),
		LinesAdded:   int(getInt64(rec, "lines_added")),
		LinesRemoved: int(getInt64(rec, "lines_removed")),
	}, nil
}
