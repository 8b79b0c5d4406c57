package graphstore

import (
	"context"

	"github.com/actiquest-dev/membria-core/internal/model"
)

// This file holds the fixed library of read-only analytics templates named
// in §4.1, plus the consolidated causal-analysis method set the Design
// Notes settle on in place of two overlapping "CausalAgent" definitions in
// the distilled spec: GetCausalChain, FindSimilarDecisions,
// AnalyzePreventionEffectiveness, FindPreventionGaps, and
// GetAntipatternTriggersByDomain. All of it is exposed read-only to other
// core components, never directly to the tool server's external callers.

// ModuleSuccessRate is one row of the success-rate-by-module report.
type ModuleSuccessRate struct {
	Module       string  `json:"module"`
	Total        int64   `json:"total"`
	Successes    int64   `json:"successes"`
	SuccessRate  float64 `json:"success_rate"`
}

// SuccessRateByModule aggregates resolved decisions' outcome over module.
func (c *Client) SuccessRateByModule(ctx context.Context) ([]*ModuleSuccessRate, error) {
	cypher := `
MATCH (d:Decision {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
WHERE d.outcome IS NOT NULL AND d.outcome <> 'pending'
RETURN d.module AS module, count(d) AS total,
       sum(CASE WHEN d.outcome = 'success' THEN 1 ELSE 0 END) AS successes
ORDER BY module`
	records, err := c.read(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	out := make([]*ModuleSuccessRate, 0, len(records))
	for _, rec := range records {
		total := getInt64(rec, "total")
		successes := getInt64(rec, "successes")
		rate := 0.0
		if total > 0 {
			rate = float64(successes) / float64(total)
		}
		out = append(out, &ModuleSuccessRate{
			Module: getString(rec, "module"), Total: total, Successes: successes, SuccessRate: rate,
		})
	}
	return out, nil
}

// ConfidenceBucket is one row of the success-rate-by-confidence-bucket
// report, bucketed into 1/10-wide bands: [0.0,0.1), [0.1,0.2), ..., [0.9,1.0].
type ConfidenceBucket struct {
	Bucket      float64 `json:"bucket"` // lower bound of the band
	Total       int64   `json:"total"`
	Successes   int64   `json:"successes"`
	SuccessRate float64 `json:"success_rate"`
}

// SuccessRateByConfidenceBucket buckets resolved decisions by confidence
// into tenths and reports the observed success rate per bucket, the core
// input to calibration-gap detection.
func (c *Client) SuccessRateByConfidenceBucket(ctx context.Context) ([]*ConfidenceBucket, error) {
	cypher := `
MATCH (d:Decision {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
WHERE d.outcome IS NOT NULL AND d.outcome <> 'pending'
WITH CASE WHEN d.confidence >= 1.0 THEN 0.9 ELSE floor(d.confidence * 10) / 10.0 END AS bucket, d
RETURN bucket, count(d) AS total,
       sum(CASE WHEN d.outcome = 'success' THEN 1 ELSE 0 END) AS successes
ORDER BY bucket`
	records, err := c.read(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	out := make([]*ConfidenceBucket, 0, len(records))
	for _, rec := range records {
		total := getInt64(rec, "total")
		successes := getInt64(rec, "successes")
		rate := 0.0
		if total > 0 {
			rate = float64(successes) / float64(total)
		}
		out = append(out, &ConfidenceBucket{
			Bucket: getFloat(rec, "bucket"), Total: total, Successes: successes, SuccessRate: rate,
		})
	}
	return out, nil
}

// ReworkCount is a decision's count of REWORKED_BY edges, together with the
// confidence it was made at.
type ReworkCount struct {
	DecisionID string `json:"decision_id"`
	Module     string `json:"module"`
	Confidence float64 `json:"confidence"`
	Reworks    int64  `json:"reworks"`
}

// DecisionsByReworkCount returns decisions ordered by descending rework
// count (REWORKED_BY edge fan-out), the "this kept needing fixes" report.
func (c *Client) DecisionsByReworkCount(ctx context.Context, limit int) ([]*ReworkCount, error) {
	cypher := `
MATCH (d:Decision {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
OPTIONAL MATCH (d)-[:REWORKED_BY]->(cc:CodeChange)
WITH d, count(cc) AS reworks
WHERE reworks > 0
RETURN d.id AS decision_id, d.module AS module, d.confidence AS confidence, reworks
ORDER BY reworks DESC
LIMIT $limit`
	records, err := c.read(ctx, cypher, map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}
	out := make([]*ReworkCount, 0, len(records))
	for _, rec := range records {
		out = append(out, &ReworkCount{
			DecisionID: getString(rec, "decision_id"), Module: getString(rec, "module"),
			Confidence: getFloat(rec, "confidence"), Reworks: getInt64(rec, "reworks"),
		})
	}
	return out, nil
}

// LowConfidenceReworkRate reports the fraction of low-confidence
// (confidence < 0.5) decisions that were subsequently reworked.
func (c *Client) LowConfidenceReworkRate(ctx context.Context) (float64, error) {
	cypher := `
MATCH (d:Decision {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
WHERE d.confidence < 0.5
OPTIONAL MATCH (d)-[:REWORKED_BY]->(cc:CodeChange)
WITH count(DISTINCT d) AS total, count(DISTINCT cc) AS reworked_nonnull, collect(DISTINCT d) AS ds
RETURN total,
       size([x IN ds WHERE EXISTS {
         MATCH (x)-[:REWORKED_BY]->(:CodeChange)
       }]) AS reworked`
	records, err := c.read(ctx, cypher, nil)
	if err != nil || len(records) == 0 {
		return 0, err
	}
	total := getInt64(records[0], "total")
	if total == 0 {
		return 0, nil
	}
	reworked := getInt64(records[0], "reworked")
	return float64(reworked) / float64(total), nil
}

// NKPreventionValue reports how many decisions were blocked by a PREVENTED
// edge from NegativeKnowledge, the measured value of the NK corpus.
func (c *Client) NKPreventionValue(ctx context.Context) (int64, error) {
	cypher := `
MATCH (:NegativeKnowledge {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})-[:PREVENTED]->(:Decision)
RETURN count(*) AS prevented`
	records, err := c.read(ctx, cypher, nil)
	if err != nil || len(records) == 0 {
		return 0, err
	}
	return getInt64(records[0], "prevented"), nil
}

// DomainFailureCount is one row of the failures-by-domain report.
type DomainFailureCount struct {
	Domain   string `json:"domain"`
	Failures int64  `json:"failures"`
}

// FailuresByDomain reports the count of failed decisions per module.
func (c *Client) FailuresByDomain(ctx context.Context) ([]*DomainFailureCount, error) {
	cypher := `
MATCH (d:Decision {outcome: 'failure', tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
RETURN d.module AS domain, count(d) AS failures
ORDER BY failures DESC`
	records, err := c.read(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	out := make([]*DomainFailureCount, 0, len(records))
	for _, rec := range records {
		out = append(out, &DomainFailureCount{Domain: getString(rec, "domain"), Failures: getInt64(rec, "failures")})
	}
	return out, nil
}

// DecisionFlow describes the decision → implementation → outcome chain for
// one decision.
type DecisionFlow struct {
	DecisionID   string `json:"decision_id"`
	CodeChangeID string `json:"code_change_id,omitempty"`
	CommitSHA    string `json:"commit_sha,omitempty"`
	OutcomeID    string `json:"outcome_id,omitempty"`
	OutcomeStatus string `json:"outcome_status,omitempty"`
}

// GetCausalChain walks Decision -[:IMPLEMENTED_IN]-> CodeChange
// -[:RESULTED_IN]-> Outcome for one decision, the canonical causal trace a
// reader or tool caller asks for by decision id.
func (c *Client) GetCausalChain(ctx context.Context, decisionID string) ([]*DecisionFlow, error) {
	cypher := `
MATCH (d:Decision {id: $decision_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
OPTIONAL MATCH (d)-[:IMPLEMENTED_IN]->(cc:CodeChange)
OPTIONAL MATCH (cc)-[:RESULTED_IN]->(o:Outcome)
RETURN d.id AS decision_id, cc.id AS code_change_id, cc.commit_sha AS commit_sha,
       o.id AS outcome_id, o.status AS outcome_status`
	records, err := c.read(ctx, cypher, map[string]any{"decision_id": decisionID})
	if err != nil {
		return nil, err
	}
	out := make([]*DecisionFlow, 0, len(records))
	for _, rec := range records {
		out = append(out, &DecisionFlow{
			DecisionID: getString(rec, "decision_id"), CodeChangeID: getString(rec, "code_change_id"),
			CommitSHA: getString(rec, "commit_sha"), OutcomeID: getString(rec, "outcome_id"),
			OutcomeStatus: getString(rec, "outcome_status"),
		})
	}
	return out, nil
}

// ReworkTimelineEntry is one rework event ordered by days_to_revert.
type ReworkTimelineEntry struct {
	DecisionID   string  `json:"decision_id"`
	CodeChangeID string  `json:"code_change_id"`
	DaysToRevert float64 `json:"days_to_revert"`
	Reason       string  `json:"reason,omitempty"`
}

// ReworkTimeline returns REWORKED_BY edges ordered by days_to_revert
// ascending, the "how fast did this unravel" view.
func (c *Client) ReworkTimeline(ctx context.Context, limit int) ([]*ReworkTimelineEntry, error) {
	cypher := `
MATCH (d:Decision {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})-[r:REWORKED_BY]->(cc:CodeChange)
RETURN d.id AS decision_id, cc.id AS code_change_id, r.days_to_revert AS days_to_revert, r.reason AS reason
ORDER BY r.days_to_revert ASC
LIMIT $limit`
	records, err := c.read(ctx, cypher, map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}
	out := make([]*ReworkTimelineEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, &ReworkTimelineEntry{
			DecisionID: getString(rec, "decision_id"), CodeChangeID: getString(rec, "code_change_id"),
			DaysToRevert: getFloat(rec, "days_to_revert"), Reason: getString(rec, "reason"),
		})
	}
	return out, nil
}

// SessionDecisionCount is the decision count for one Engram/session.
type SessionDecisionCount struct {
	SessionID string `json:"session_id"`
	Decisions int64  `json:"decisions"`
}

// PerSessionDecisionCounts counts Decisions MADE_IN each Engram's session.
func (c *Client) PerSessionDecisionCounts(ctx context.Context) ([]*SessionDecisionCount, error) {
	cypher := `
MATCH (d:Decision {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})-[:MADE_IN]->(e:Engram)
RETURN e.session_id AS session_id, count(d) AS decisions
ORDER BY decisions DESC`
	records, err := c.read(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	out := make([]*SessionDecisionCount, 0, len(records))
	for _, rec := range records {
		out = append(out, &SessionDecisionCount{SessionID: getString(rec, "session_id"), Decisions: getInt64(rec, "decisions")})
	}
	return out, nil
}

// HighRiskSession is a session whose failure rate among resolved decisions
// is at or above the given threshold, with at least minDecisions resolved.
type HighRiskSession struct {
	SessionID   string  `json:"session_id"`
	Total       int64   `json:"total"`
	Failures    int64   `json:"failures"`
	FailureRate float64 `json:"failure_rate"`
}

// HighRiskSessions flags sessions whose resolved-decision failure rate is
// at or above threshold, restricted to sessions with at least minDecisions
// resolved decisions to avoid noise from tiny samples.
func (c *Client) HighRiskSessions(ctx context.Context, threshold float64, minDecisions int64) ([]*HighRiskSession, error) {
	cypher := `
MATCH (d:Decision {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})-[:MADE_IN]->(e:Engram)
WHERE d.outcome IS NOT NULL AND d.outcome <> 'pending'
WITH e.session_id AS session_id, count(d) AS total,
     sum(CASE WHEN d.outcome = 'failure' THEN 1 ELSE 0 END) AS failures
WHERE total >= $min_decisions AND (toFloat(failures) / total) >= $threshold
RETURN session_id, total, failures, toFloat(failures) / total AS failure_rate
ORDER BY failure_rate DESC`
	records, err := c.read(ctx, cypher, map[string]any{"threshold": threshold, "min_decisions": minDecisions})
	if err != nil {
		return nil, err
	}
	out := make([]*HighRiskSession, 0, len(records))
	for _, rec := range records {
		out = append(out, &HighRiskSession{
			SessionID: getString(rec, "session_id"), Total: getInt64(rec, "total"),
			Failures: getInt64(rec, "failures"), FailureRate: getFloat(rec, "failure_rate"),
		})
	}
	return out, nil
}

// TrendPoint is one day's aggregate success rate and mean confidence,
// covering a 7-day window ending at the query time.
type TrendPoint struct {
	DayStart      int64   `json:"day_start"` // epoch seconds, UTC midnight
	Total         int64   `json:"total"`
	SuccessRate   float64 `json:"success_rate"`
	MeanConfidence float64 `json:"mean_confidence"`
}

// SevenDayTrend buckets resolved decisions by UTC day over the 7 days ending
// at nowTS, reporting success rate and mean confidence per day.
func (c *Client) SevenDayTrend(ctx context.Context, nowTS int64) ([]*TrendPoint, error) {
	const daySeconds = 86400
	windowStart := nowTS - 7*daySeconds
	cypher := `
MATCH (d:Decision {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
WHERE d.outcome IS NOT NULL AND d.outcome <> 'pending'
  AND d.created_at >= $window_start AND d.created_at <= $now
WITH (d.created_at / 86400) * 86400 AS day_start, d
RETURN day_start, count(d) AS total,
       sum(CASE WHEN d.outcome = 'success' THEN 1 ELSE 0 END) AS successes,
       avg(d.confidence) AS mean_confidence
ORDER BY day_start`
	records, err := c.read(ctx, cypher, map[string]any{"window_start": windowStart, "now": nowTS})
	if err != nil {
		return nil, err
	}
	out := make([]*TrendPoint, 0, len(records))
	for _, rec := range records {
		total := getInt64(rec, "total")
		successes := getInt64(rec, "successes")
		rate := 0.0
		if total > 0 {
			rate = float64(successes) / float64(total)
		}
		out = append(out, &TrendPoint{
			DayStart: getInt64(rec, "day_start"), Total: total, SuccessRate: rate,
			MeanConfidence: getFloat(rec, "mean_confidence"),
		})
	}
	return out, nil
}

// SimilarDecision is one match from FindSimilarDecisions.
type SimilarDecision struct {
	Decision   *model.Decision `json:"decision"`
	Similarity float64         `json:"similarity"` // 1 / (1 + distance), or 0 for module-only matches
}

// FindSimilarDecisions ranks decisions in the same namespace by semantic
// distance to embedding via vec.euclideanDistance when embedding is
// non-empty; when embedding is empty it degrades to a plain module match,
// per §7's graceful-degradation rule for absent embeddings.
func (c *Client) FindSimilarDecisions(ctx context.Context, module string, embedding []float64, limit int) ([]*SimilarDecision, error) {
	if len(embedding) == 0 {
		decisions, err := c.ListRecentDecisions(ctx, module, limit)
		if err != nil {
			return nil, err
		}
		out := make([]*SimilarDecision, 0, len(decisions))
		for _, d := range decisions {
			out = append(out, &SimilarDecision{Decision: d, Similarity: 0})
		}
		return out, nil
	}

	cypher := `
MATCH (d:Decision {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
WHERE d.embedding IS NOT NULL AND ($module = '' OR d.module = $module)
WITH d, vec.euclideanDistance(d.embedding, $embedding) AS distance
RETURN d.id AS id, d.statement AS statement, d.alternatives AS alternatives,
       d.confidence AS confidence, d.module AS module, d.created_at AS created_at,
       d.created_by AS created_by, d.outcome AS outcome, d.engram_id AS engram_id,
       d.commit_sha AS commit_sha, d.is_active AS is_active, d.ttl_days AS ttl_days,
       distance
ORDER BY distance ASC
LIMIT $limit`
	records, err := c.read(ctx, cypher, map[string]any{"module": module, "embedding": embedding, "limit": limit})
	if err != nil {
		return nil, err
	}
	out := make([]*SimilarDecision, 0, len(records))
	for _, rec := range records {
		distance := getFloat(rec, "distance")
		similarity := 1.0 / (1.0 + distance)
		out = append(out, &SimilarDecision{Decision: decisionFromRecord(rec), Similarity: similarity})
	}
	return out, nil
}

// PreventionEffectiveness reports, for one NegativeKnowledge entry, how many
// decisions it has prevented and its age in days.
type PreventionEffectiveness struct {
	NegativeKnowledgeID string  `json:"negative_knowledge_id"`
	Domain              string  `json:"domain"`
	PreventedCount      int64   `json:"prevented_count"`
	AgeDays             float64 `json:"age_days"`
}

// AnalyzePreventionEffectiveness reports prevented-decision counts per
// active NK entry, most effective first.
func (c *Client) AnalyzePreventionEffectiveness(ctx context.Context, nowTS int64) ([]*PreventionEffectiveness, error) {
	cypher := `
MATCH (n:NegativeKnowledge {is_active: true, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
OPTIONAL MATCH (n)-[:PREVENTED]->(d:Decision)
WITH n, count(d) AS prevented_count
RETURN n.id AS id, n.domain AS domain, prevented_count,
       toFloat($now - n.discovered_at) / 86400.0 AS age_days
ORDER BY prevented_count DESC`
	records, err := c.read(ctx, cypher, map[string]any{"now": nowTS})
	if err != nil {
		return nil, err
	}
	out := make([]*PreventionEffectiveness, 0, len(records))
	for _, rec := range records {
		out = append(out, &PreventionEffectiveness{
			NegativeKnowledgeID: getString(rec, "id"), Domain: getString(rec, "domain"),
			PreventedCount: getInt64(rec, "prevented_count"), AgeDays: getFloat(rec, "age_days"),
		})
	}
	return out, nil
}

// PreventionGap is a domain with repeated failures but no NK entry guarding
// it, a candidate for new negative-knowledge capture.
type PreventionGap struct {
	Domain   string `json:"domain"`
	Failures int64  `json:"failures"`
}

// FindPreventionGaps reports domains with at least minFailures failed
// decisions but zero active NegativeKnowledge entries, i.e. places the
// system keeps failing without having learned not to.
func (c *Client) FindPreventionGaps(ctx context.Context, minFailures int64) ([]*PreventionGap, error) {
	cypher := `
MATCH (d:Decision {outcome: 'failure', tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
WITH d.module AS domain, count(d) AS failures
WHERE failures >= $min_failures
  AND NOT EXISTS {
    MATCH (n:NegativeKnowledge {domain: domain, is_active: true, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
  }
RETURN domain, failures
ORDER BY failures DESC`
	records, err := c.read(ctx, cypher, map[string]any{"min_failures": minFailures})
	if err != nil {
		return nil, err
	}
	out := make([]*PreventionGap, 0, len(records))
	for _, rec := range records {
		out = append(out, &PreventionGap{Domain: getString(rec, "domain"), Failures: getInt64(rec, "failures")})
	}
	return out, nil
}

// AntipatternTriggerCount is one antipattern's trigger count within a
// domain (the module of the triggering CodeChange's decision).
type AntipatternTriggerCount struct {
	AntiPatternID string `json:"antipattern_id"`
	Name          string `json:"name"`
	Domain        string `json:"domain"`
	Triggers      int64  `json:"triggers"`
}

// GetAntipatternTriggersByDomain reports TRIGGERED-edge counts per
// antipattern, grouped by the module of the decision that led to the
// triggering code change.
func (c *Client) GetAntipatternTriggersByDomain(ctx context.Context, domain string) ([]*AntipatternTriggerCount, error) {
	cypher := `
MATCH (d:Decision {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})-[:IMPLEMENTED_IN]->(cc:CodeChange)-[:TRIGGERED]->(a:AntiPattern)
WHERE $domain = '' OR d.module = $domain
RETURN a.id AS id, a.name AS name, d.module AS domain, count(*) AS triggers
ORDER BY triggers DESC`
	records, err := c.read(ctx, cypher, map[string]any{"domain": domain})
	if err != nil {
		return nil, err
	}
	out := make([]*AntipatternTriggerCount, 0, len(records))
	for _, rec := range records {
		out = append(out, &AntipatternTriggerCount{
			AntiPatternID: getString(rec, "id"), Name: getString(rec, "name"),
			Domain: getString(rec, "domain"), Triggers: getInt64(rec, "triggers"),
		})
	}
	return out, nil
}
