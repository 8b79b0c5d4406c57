package graphstore

import (
	"context"

	"github.com/actiquest-dev/membria-core/internal/model"
)

// AddSkill creates a Skill node and GENERATED_FROM edges to the decisions
// its patterns were drawn from.
func (c *Client) AddSkill(ctx context.Context, s *model.Skill) error {
	cypher := `
CREATE (s:Skill {
  id: $id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id,
  domain: $domain, name: $name, version: $version, success_rate: $success_rate,
  confidence: $confidence, sample_size: $sample_size, procedure: $procedure,
  green_zone: $green_zone, yellow_zone: $yellow_zone, red_zone: $red_zone,
  quality_score: $quality_score, generated_from_decisions: $generated_from_decisions,
  created_at: $created_at, last_updated: $last_updated, next_review: $next_review,
  ttl_days: $ttl_days, is_active: $is_active
})`
	params := map[string]any{
		"id": s.ID, "domain": s.Domain, "name": s.Name, "version": s.Version,
		"success_rate": s.SuccessRate, "confidence": s.Confidence, "sample_size": s.SampleSize,
		"procedure": s.Procedure, "green_zone": s.GreenZone, "yellow_zone": s.YellowZone,
		"red_zone": s.RedZone, "quality_score": s.QualityScore,
		"generated_from_decisions": s.GeneratedFromDecisions,
		"created_at": s.CreatedAt, "last_updated": s.LastUpdated, "next_review": s.NextReview,
		"ttl_days": s.TTLDays, "is_active": s.IsActive,
	}
	_, err := c.write(ctx, cypher, params)
	return err
}

func skillFromRecord(rec recordLike) *model.Skill {
	return &model.Skill{
		ID: getString(rec, "id"), Domain: getString(rec, "domain"), Name: getString(rec, "name"),
		Version: int(getInt64(rec, "version")), SuccessRate: getFloat(rec, "success_rate"),
		Confidence: getFloat(rec, "confidence"), SampleSize: int(getInt64(rec, "sample_size")),
		Procedure: getString(rec, "procedure"), GreenZone: getStrings(rec, "green_zone"),
		YellowZone: getStrings(rec, "yellow_zone"), RedZone: getStrings(rec, "red_zone"),
		QualityScore: getFloat(rec, "quality_score"),
		GeneratedFromDecisions: getStrings(rec, "generated_from_decisions"),
		CreatedAt: getInt64(rec, "created_at"), LastUpdated: getInt64(rec, "last_updated"),
		NextReview: getInt64(rec, "next_review"), TTLDays: int(getInt64(rec, "ttl_days")),
		IsActive: getBool(rec, "is_active"),
	}
}

// ListSkillsByDomain returns every skill generated for domain, most recent
// version first.
func (c *Client) ListSkillsByDomain(ctx context.Context, domain string) ([]*model.Skill, error) {
	cypher := `
MATCH (s:Skill {domain: $domain, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
RETURN s.id AS id, s.domain AS domain, s.name AS name, s.version AS version,
       s.success_rate AS success_rate, s.confidence AS confidence, s.sample_size AS sample_size,
       s.procedure AS procedure, s.green_zone AS green_zone, s.yellow_zone AS yellow_zone,
       s.red_zone AS red_zone, s.quality_score AS quality_score,
       s.generated_from_decisions AS generated_from_decisions,
       s.created_at AS created_at, s.last_updated AS last_updated, s.next_review AS next_review,
       s.ttl_days AS ttl_days, s.is_active AS is_active
ORDER BY s.version DESC`
	records, err := c.read(ctx, cypher, map[string]any{"domain": domain})
	if err != nil {
		return nil, err
	}
	out := make([]*model.Skill, 0, len(records))
	for _, rec := range records {
		out = append(out, skillFromRecord(rec))
	}
	return out, nil
}

// MaxSkillVersion returns the highest existing version number for domain,
// or 0 if no skill has been generated for it yet.
func (c *Client) MaxSkillVersion(ctx context.Context, domain string) (int, error) {
	cypher := `
MATCH (s:Skill {domain: $domain, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
RETURN max(s.version) AS max_version`
	records, err := c.read(ctx, cypher, map[string]any{"domain": domain})
	if err != nil || len(records) == 0 {
		return 0, err
	}
	return int(getInt64(records[0], "max_version")), nil
}

// ListRoleSkills returns the skills linked to a role via ROLE_USES_SKILL.
func (c *Client) ListRoleSkills(ctx context.Context, roleID string) ([]*model.Skill, error) {
	cypher := `
MATCH (r:Role {id: $role_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})-[:ROLE_USES_SKILL]->(s:Skill)
RETURN s.id AS id, s.domain AS domain, s.name AS name, s.version AS version,
       s.success_rate AS success_rate, s.confidence AS confidence, s.sample_size AS sample_size,
       s.procedure AS procedure, s.green_zone AS green_zone, s.yellow_zone AS yellow_zone,
       s.red_zone AS red_zone, s.quality_score AS quality_score,
       s.generated_from_decisions AS generated_from_decisions,
       s.created_at AS created_at, s.last_updated AS last_updated, s.next_review AS next_review,
       s.ttl_days AS ttl_days, s.is_active AS is_active`
	records, err := c.read(ctx, cypher, map[string]any{"role_id": roleID})
	if err != nil {
		return nil, err
	}
	out := make([]*model.Skill, 0, len(records))
	for _, rec := range records {
		out = append(out, skillFromRecord(rec))
	}
	return out, nil
}
