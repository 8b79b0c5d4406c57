package graphstore

import (
	"context"

	"github.com/actiquest-dev/membria-core/internal/model"
)

// UpsertProfile creates or updates a Profile, matched by id.
func (c *Client) UpsertProfile(ctx context.Context, p *model.Profile) error {
	cypher := `
MERGE (p:Profile {id: $id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
ON CREATE SET p.created_at = $created_at
SET p.name = $name, p.config_path = $config_path`
	_, err := c.write(ctx, cypher, map[string]any{
		"id": p.ID, "name": p.Name, "config_path": p.ConfigPath, "created_at": p.CreatedAt,
	})
	return err
}

// UpsertRole creates or updates a Role, matched by id, setting its name and
// prompt_path. It does not touch the role's DocShot/Skill/NegativeKnowledge
// links; those are managed by LinkRole and UnlinkRole.
func (c *Client) UpsertRole(ctx context.Context, r *model.Role) error {
	cypher := `
MERGE (role:Role {id: $id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
ON CREATE SET role.created_at = $created_at
SET role.name = $name, role.prompt_path = $prompt_path`
	_, err := c.write(ctx, cypher, map[string]any{
		"id": r.ID, "name": r.Name, "prompt_path": r.PromptPath, "created_at": r.CreatedAt,
	})
	return err
}

// GetRole returns a Role by id, or nil.
func (c *Client) GetRole(ctx context.Context, id string) (*model.Role, error) {
	cypher := `
MATCH (role:Role {id: $id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
OPTIONAL MATCH (role)-[:ROLE_USES_DOCSHOT]->(ds:DocShot)
OPTIONAL MATCH (role)-[:ROLE_USES_SKILL]->(sk:Skill)
OPTIONAL MATCH (role)-[:ROLE_USES_NK]->(nk:NegativeKnowledge)
RETURN role.id AS id, role.name AS name, role.prompt_path AS prompt_path, role.created_at AS created_at,
       collect(DISTINCT ds.id) AS doc_shot_ids, collect(DISTINCT sk.id) AS skill_ids,
       collect(DISTINCT nk.id) AS nk_ids`
	records, err := c.read(ctx, cypher, map[string]any{"id": id})
	if err != nil || len(records) == 0 {
		return nil, err
	}
	rec := records[0]
	return &model.Role{
		ID: getString(rec, "id"), Name: getString(rec, "name"), PromptPath: getString(rec, "prompt_path"),
		CreatedAt: getInt64(rec, "created_at"), DocShotIDs: getStrings(rec, "doc_shot_ids"),
		SkillIDs: getStrings(rec, "skill_ids"), NegativeKnowledgeIDs: getStrings(rec, "nk_ids"),
	}, nil
}

// LinkRole creates a ROLE_USES_{DOCSHOT,SKILL,NK} edge depending on
// toLabel, used by role_link.
func (c *Client) LinkRole(ctx context.Context, roleID, toLabel, toID string) error {
	edge := model.EdgeRoleUsesDocshot
	switch toLabel {
	case model.LabelSkill:
		edge = model.EdgeRoleUsesSkill
	case model.LabelNegativeKnowledge:
		edge = model.EdgeRoleUsesNK
	}
	return c.CreateRelationship(ctx, model.LabelRole, roleID, edge, toLabel, toID, map[string]any{})
}

// UnlinkRole removes a ROLE_USES_{DOCSHOT,SKILL,NK} edge, used by
// role_unlink.
func (c *Client) UnlinkRole(ctx context.Context, roleID, toLabel, toID string) error {
	edge := model.EdgeRoleUsesDocshot
	switch toLabel {
	case model.LabelSkill:
		edge = model.EdgeRoleUsesSkill
	case model.LabelNegativeKnowledge:
		edge = model.EdgeRoleUsesNK
	}
	cypher := `
MATCH (role:Role {id: $role_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
      -[r:` + cypherEdge(edge) + `]->(target {id: $to_id})
DELETE r`
	_, err := c.write(ctx, cypher, map[string]any{"role_id": roleID, "to_id": toID})
	return err
}

// CreateSquad creates a Squad node. Fails with apperrors.ErrConflict at the
// orchestration layer if a squad with the same name already exists in the
// namespace (checked there, not here, since uniqueness is a business rule
// rather than a graph constraint in this schema).
func (c *Client) CreateSquad(ctx context.Context, s *model.Squad) error {
	cypher := `
CREATE (s:Squad {
  id: $id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id,
  name: $name, strategy: $strategy, created_at: $created_at
})`
	_, err := c.write(ctx, cypher, map[string]any{
		"id": s.ID, "name": s.Name, "strategy": s.Strategy, "created_at": s.CreatedAt,
	})
	return err
}

// FindSquadByName returns the squad id with the given name in the
// namespace, or "" if none.
func (c *Client) FindSquadByName(ctx context.Context, name string) (string, error) {
	cypher := `
MATCH (s:Squad {name: $name, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
RETURN s.id AS id LIMIT 1`
	records, err := c.read(ctx, cypher, map[string]any{"name": name})
	if err != nil || len(records) == 0 {
		return "", err
	}
	return getString(records[0], "id"), nil
}

// AddAssignment creates an Assignment bound into a Squad (via ASSIGNS), a
// Role (via PLAYS_ROLE), and a Profile (via USES_PROFILE).
func (c *Client) AddAssignment(ctx context.Context, a *model.Assignment) error {
	cypher := `
MATCH (squad:Squad {id: $squad_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
MATCH (role:Role {id: $role_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
MATCH (profile:Profile {id: $profile_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
CREATE (asn:Assignment {
  id: $id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id,
  squad_id: $squad_id, role_id: $role_id, profile_id: $profile_id,
  order: $order, created_at: $created_at
})
CREATE (squad)-[:ASSIGNS]->(asn)
CREATE (asn)-[:PLAYS_ROLE]->(role)
CREATE (asn)-[:USES_PROFILE]->(profile)`
	_, err := c.write(ctx, cypher, map[string]any{
		"id": a.ID, "squad_id": a.SquadID, "role_id": a.RoleID, "profile_id": a.ProfileID,
		"order": a.Order, "created_at": a.CreatedAt,
	})
	return err
}

// ListSquads returns every squad in the namespace, most recently created
// first.
func (c *Client) ListSquads(ctx context.Context, limit int) ([]*model.Squad, error) {
	cypher := `
MATCH (s:Squad {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
RETURN s.id AS id, s.name AS name, s.strategy AS strategy, s.created_at AS created_at
ORDER BY s.created_at DESC
LIMIT $limit`
	records, err := c.read(ctx, cypher, map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}
	out := make([]*model.Squad, 0, len(records))
	for _, rec := range records {
		out = append(out, &model.Squad{
			ID: getString(rec, "id"), Name: getString(rec, "name"),
			Strategy: getString(rec, "strategy"), CreatedAt: getInt64(rec, "created_at"),
		})
	}
	return out, nil
}

// ListAssignments returns the ordered assignments for a squad.
func (c *Client) ListAssignments(ctx context.Context, squadID string) ([]*model.Assignment, error) {
	cypher := `
MATCH (a:Assignment {squad_id: $squad_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
RETURN a.id AS id, a.squad_id AS squad_id, a.role_id AS role_id, a.profile_id AS profile_id,
       a.order AS order, a.created_at AS created_at
ORDER BY a.order ASC`
	records, err := c.read(ctx, cypher, map[string]any{"squad_id": squadID})
	if err != nil {
		return nil, err
	}
	out := make([]*model.Assignment, 0, len(records))
	for _, rec := range records {
		out = append(out, &model.Assignment{
			ID: getString(rec, "id"), SquadID: getString(rec, "squad_id"),
			RoleID: getString(rec, "role_id"), ProfileID: getString(rec, "profile_id"),
			Order: int(getInt64(rec, "order")), CreatedAt: getInt64(rec, "created_at"),
		})
	}
	return out, nil
}
