package graphstore

import (
	"context"

	"github.com/actiquest-dev/membria-core/internal/model"
)

// UpsertSessionContext creates or replaces a SessionContext keyed by its
// unique session_id within the namespace.
func (c *Client) UpsertSessionContext(ctx context.Context, sc *model.SessionContext) error {
	cypher := `
MERGE (s:SessionContext {session_id: $session_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
SET s.task = $task, s.focus = $focus, s.current_plan = $current_plan,
    s.constraints = $constraints, s.doc_shot_id = $doc_shot_id,
    s.created_at = $created_at, s.expires_at = $expires_at, s.is_active = $is_active`
	params := map[string]any{
		"session_id": sc.SessionID, "task": sc.Task, "focus": sc.Focus,
		"current_plan": sc.CurrentPlan, "constraints": sc.Constraints, "doc_shot_id": sc.DocShotID,
		"created_at": sc.CreatedAt, "expires_at": sc.ExpiresAt, "is_active": true,
	}
	_, err := c.write(ctx, cypher, params)
	return err
}

// GetSessionContext returns the SessionContext by session_id, or nil.
func (c *Client) GetSessionContext(ctx context.Context, sessionID string) (*model.SessionContext, error) {
	cypher := `
MATCH (s:SessionContext {session_id: $session_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
RETURN s.session_id AS session_id, s.task AS task, s.focus AS focus,
       s.current_plan AS current_plan, s.constraints AS constraints, s.doc_shot_id AS doc_shot_id,
       s.created_at AS created_at, s.expires_at AS expires_at, s.is_active AS is_active`
	records, err := c.read(ctx, cypher, map[string]any{"session_id": sessionID})
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return sessionContextFromRecord(records[0]), nil
}

func sessionContextFromRecord(rec recordLike) *model.SessionContext {
	return &model.SessionContext{
		SessionID: getString(rec, "session_id"), Task: getString(rec, "task"),
		Focus: getString(rec, "focus"), CurrentPlan: getString(rec, "current_plan"),
		Constraints: getStrings(rec, "constraints"), DocShotID: getString(rec, "doc_shot_id"),
		CreatedAt: getInt64(rec, "created_at"), ExpiresAt: getInt64(rec, "expires_at"),
		IsActive: getBool(rec, "is_active"),
	}
}

// ListSessionContexts returns up to limit active session contexts, most
// recently created first.
func (c *Client) ListSessionContexts(ctx context.Context, limit int) ([]*model.SessionContext, error) {
	cypher := `
MATCH (s:SessionContext {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
WHERE s.is_active
RETURN s.session_id AS session_id, s.task AS task, s.focus AS focus,
       s.current_plan AS current_plan, s.constraints AS constraints, s.doc_shot_id AS doc_shot_id,
       s.created_at AS created_at, s.expires_at AS expires_at, s.is_active AS is_active
ORDER BY s.created_at DESC
LIMIT $limit`
	records, err := c.read(ctx, cypher, map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}
	out := make([]*model.SessionContext, 0, len(records))
	for _, rec := range records {
		out = append(out, sessionContextFromRecord(rec))
	}
	return out, nil
}

// DeactivateSessionContext marks a session context inactive on demand (the
// session_context_delete tool), independent of TTL expiry.
func (c *Client) DeactivateSessionContext(ctx context.Context, sessionID string) error {
	cypher := `
MATCH (s:SessionContext {session_id: $session_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
SET s.is_active = false`
	_, err := c.write(ctx, cypher, map[string]any{"session_id": sessionID})
	return err
}
