package graphstore

import (
	"context"

	"github.com/actiquest-dev/membria-core/internal/model"
)

// AddAntiPattern creates an AntiPattern detection-rule node.
func (c *Client) AddAntiPattern(ctx context.Context, ap *model.AntiPattern) error {
	cypher := `
CREATE (a:AntiPattern {
  id: $id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id,
  name: $name, category: $category, severity: $severity,
  occurrence_count: $occurrence_count, removal_rate: $removal_rate,
  avg_days_to_removal: $avg_days_to_removal, keywords: $keywords,
  regex_pattern: $regex_pattern, example_bad: $example_bad, example_good: $example_good,
  first_seen: $first_seen, recommendation: $recommendation
})`
	params := map[string]any{
		"id": ap.ID, "name": ap.Name, "category": ap.Category, "severity": ap.Severity,
		"occurrence_count": ap.OccurrenceCount, "removal_rate": ap.RemovalRate,
		"avg_days_to_removal": ap.AvgDaysToRemoval, "keywords": ap.Keywords,
		"regex_pattern": ap.RegexPattern, "example_bad": ap.ExampleBad, "example_good": ap.ExampleGood,
		"first_seen": ap.FirstSeen, "recommendation": ap.Recommendation,
	}
	_, err := c.write(ctx, cypher, params)
	return err
}

// ListAntiPatternsByRemovalRate returns antipatterns ordered by descending
// removal_rate, the order the plan validator scans them in.
func (c *Client) ListAntiPatternsByRemovalRate(ctx context.Context, limit int) ([]*model.AntiPattern, error) {
	cypher := `
MATCH (a:AntiPattern {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
RETURN a.id AS id, a.name AS name, a.category AS category, a.severity AS severity,
       a.occurrence_count AS occurrence_count, a.removal_rate AS removal_rate,
       a.avg_days_to_removal AS avg_days_to_removal, a.keywords AS keywords,
       a.regex_pattern AS regex_pattern, a.example_bad AS example_bad,
       a.example_good AS example_good, a.first_seen AS first_seen,
       a.recommendation AS recommendation
ORDER BY a.removal_rate DESC
LIMIT $limit`
	records, err := c.read(ctx, cypher, map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}
	out := make([]*model.AntiPattern, 0, len(records))
	for _, rec := range records {
		out = append(out, &model.AntiPattern{
			ID: getString(rec, "id"), Name: getString(rec, "name"), Category: getString(rec, "category"),
			Severity: getString(rec, "severity"), OccurrenceCount: int(getInt64(rec, "occurrence_count")),
			RemovalRate: getFloat(rec, "removal_rate"), AvgDaysToRemoval: getFloat(rec, "avg_days_to_removal"),
			Keywords: getStrings(rec, "keywords"), RegexPattern: getString(rec, "regex_pattern"),
			ExampleBad: getString(rec, "example_bad"), ExampleGood: getString(rec, "example_good"),
			FirstSeen: getInt64(rec, "first_seen"), Recommendation: getString(rec, "recommendation"),
		})
	}
	return out, nil
}

// AntiPatternsTriggeredInCodeChanges returns the count of TRIGGERED edges per
// antipattern id, an analytics accessor over which antipatterns have
// actually fired against real code changes.
func (c *Client) AntiPatternsTriggeredInCodeChanges(ctx context.Context) (map[string]int64, error) {
	cypher := `
MATCH (cc:CodeChange {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})-[:TRIGGERED]->(a:AntiPattern)
RETURN a.id AS id, count(cc) AS triggered`
	records, err := c.read(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(records))
	for _, rec := range records {
		out[getString(rec, "id")] = getInt64(rec, "triggered")
	}
	return out, nil
}
