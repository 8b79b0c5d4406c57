// Package planvalidator implements the Plan Context Builder and Plan
// Validator (§4.8): assembling a domain's planning history into a
// recommendation bundle, and scanning a proposed plan's steps against
// NegativeKnowledge, AntiPatterns, past failures, and calibration for
// warnings before an agent commits to it. Grounded on the same
// aggregate-query-then-report-struct idiom as internal/calibration and
// internal/patternextractor, generalized here to a multi-source bundle
// instead of a single metric.
package planvalidator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/actiquest-dev/membria-core/internal/calibration"
	"github.com/actiquest-dev/membria-core/internal/model"
	"github.com/actiquest-dev/membria-core/internal/patternextractor"
)

// GraphStore is the subset of *graphstore.Client the plan context builder
// and validator depend on.
type GraphStore interface {
	ListRecentEngrams(ctx context.Context, limit int) ([]*model.Engram, error)
	ListDecisionsByEngram(ctx context.Context, engramID string) ([]*model.Decision, error)
	ListDecisionsByOutcome(ctx context.Context, module, outcome string, limit int) ([]*model.Decision, error)
	ListNegativeKnowledge(ctx context.Context, domain string, limit int) ([]*model.NegativeKnowledge, error)
	ListAntiPatternsByRemovalRate(ctx context.Context, limit int) ([]*model.AntiPattern, error)
}

// Calibration is the subset of *calibration.Engine the builder and
// validator depend on.
type Calibration interface {
	GuidanceFor(domain string, confidence float64) (*calibration.Guidance, error)
}

// assumedConfidence is the confidence value used when deriving the
// "calibration gap" for plan review, where no caller-supplied confidence
// exists (§4.8 does not thread one through, unlike build_decision_context):
// a plan author is treated as implicitly fully confident, so the gap is the
// full distance between 1.0 and the domain's observed mean success rate.
const assumedConfidence = 1.0

// DefaultRecentEngramLimit bounds how many recent engrams are scanned for
// past_plans.
const DefaultRecentEngramLimit = 50

// DefaultFailedApproachLimit and DefaultSuccessfulPatternLimit bound the
// top-N lists in a PlanContext.
const (
	DefaultFailedApproachLimit    = 5
	DefaultSuccessfulPatternLimit = 5
)

// PastPlan is one prior engram considered relevant planning history for a
// domain, with the outcome mix of the decisions it produced.
type PastPlan struct {
	EngramID     string `json:"engram_id"`
	SessionID    string `json:"session_id"`
	CreatedAt    int64  `json:"created_at"`
	SuccessCount int    `json:"success_count"`
	FailureCount int    `json:"failure_count"`
}

// FailedApproach is a normalized statement group with its observed failure
// count, the plan builder's "don't repeat this" list.
type FailedApproach struct {
	Statement    string `json:"statement"`
	FailureCount int    `json:"failure_count"`
}

// PlanContext is the assembled planning-history bundle for a domain,
// produced by BuildPlanContext and consumed by contextmgr.BuildPlanContext
// for rendering. ValidatePlan does not take one.
type PlanContext struct {
	Domain             string             `json:"domain"`
	PastPlans          []PastPlan         `json:"past_plans"`
	FailedApproaches   []FailedApproach   `json:"failed_approaches"`
	SuccessfulPatterns []model.Pattern    `json:"successful_patterns"`
	Calibration        *calibration.Guidance `json:"calibration"`
	CalibrationNote    string             `json:"calibration_note"`
	Constraints        []string           `json:"constraints,omitempty"`
	Recommendations    []string           `json:"recommendations"`
}

// Builder assembles PlanContext bundles for a domain.
type Builder struct {
	store GraphStore
	cal   Calibration
	extr  *patternextractor.Extractor
}

// NewBuilder constructs a Builder.
func NewBuilder(store GraphStore, cal Calibration, extr *patternextractor.Extractor) *Builder {
	return &Builder{store: store, cal: cal, extr: extr}
}

// Build assembles the PlanContext for domain, optionally carrying
// caller-supplied constraints straight through.
func (b *Builder) Build(ctx context.Context, domain string, constraints []string) (*PlanContext, error) {
	pc := &PlanContext{
		Domain:             domain,
		Constraints:        constraints,
		PastPlans:          []PastPlan{},
		SuccessfulPatterns: []model.Pattern{},
		Recommendations:    []string{},
	}

	engrams, err := b.store.ListRecentEngrams(ctx, DefaultRecentEngramLimit)
	if err != nil {
		return nil, fmt.Errorf("planvalidator: list engrams: %w", err)
	}
	for _, e := range engrams {
		decisions, err := b.store.ListDecisionsByEngram(ctx, e.ID)
		if err != nil {
			return nil, fmt.Errorf("planvalidator: list decisions for engram %s: %w", e.ID, err)
		}
		var inDomain bool
		plan := PastPlan{EngramID: e.ID, SessionID: e.SessionID, CreatedAt: e.CreatedAt}
		for _, d := range decisions {
			if domain != "" && d.Module != domain {
				continue
			}
			inDomain = true
			switch d.Outcome {
			case model.OutcomeSuccess:
				plan.SuccessCount++
			case model.OutcomeFailure:
				plan.FailureCount++
			}
		}
		if inDomain || domain == "" {
			pc.PastPlans = append(pc.PastPlans, plan)
		}
	}

	failed, err := b.store.ListDecisionsByOutcome(ctx, domain, model.OutcomeFailure, 200)
	if err != nil {
		return nil, fmt.Errorf("planvalidator: list failed decisions: %w", err)
	}
	pc.FailedApproaches = topFailedApproaches(failed, DefaultFailedApproachLimit)

	if b.extr != nil {
		patterns, err := b.extr.Extract(ctx, domain, 200, patternextractor.DefaultMinSampleSize)
		if err != nil {
			return nil, fmt.Errorf("planvalidator: extract patterns: %w", err)
		}
		successful := make([]model.Pattern, 0, len(patterns))
		for _, p := range patterns {
			if p.SuccessRate >= model.GreenZoneThreshold {
				successful = append(successful, p)
			}
		}
		if len(successful) > DefaultSuccessfulPatternLimit {
			successful = successful[:DefaultSuccessfulPatternLimit]
		}
		pc.SuccessfulPatterns = successful
	}

	if b.cal != nil {
		guidance, err := b.cal.GuidanceFor(domain, assumedConfidence)
		if err != nil {
			return nil, fmt.Errorf("planvalidator: calibration guidance: %w", err)
		}
		pc.Calibration = guidance
		pc.CalibrationNote = calibrationNote(guidance)
		pc.Recommendations = append(pc.Recommendations, recommendationsFromGuidance(guidance)...)
	}

	return pc, nil
}

func topFailedApproaches(decisions []*model.Decision, limit int) []FailedApproach {
	counts := map[string]int{}
	var order []string
	for _, d := range decisions {
		key := patternextractor.Normalize(d.Statement)
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key]++
	}
	approaches := make([]FailedApproach, 0, len(order))
	for _, key := range order {
		approaches = append(approaches, FailedApproach{Statement: key, FailureCount: counts[key]})
	}
	sort.SliceStable(approaches, func(i, j int) bool {
		return approaches[i].FailureCount > approaches[j].FailureCount
	})
	if len(approaches) > limit {
		approaches = approaches[:limit]
	}
	return approaches
}

func calibrationNote(g *calibration.Guidance) string {
	return fmt.Sprintf("%s has a mean success rate of %.0f%% over %.0f samples, trending %s.",
		g.Domain, g.MeanSuccessRate*100, g.SampleSize, g.Trend)
}

// recommendationGapPadThreshold is the calibration-gap threshold above
// which the plan context recommends padding estimates. The validator's
// overconfidence warning fires above this threshold plus 0.05 (0.15).
const recommendationGapPadThreshold = 0.1

func recommendationsFromGuidance(g *calibration.Guidance) []string {
	var out []string
	if g.ConfidenceGap > recommendationGapPadThreshold {
		pad := int(g.ConfidenceGap * 100)
		out = append(out, fmt.Sprintf("pad estimates by %d%% given this domain's historical miss rate", pad))
	}
	if g.Trend == model.TrendDeclining {
		out = append(out, "recent outcomes in this domain are trending down; consider a smaller first step")
	}
	return out
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "this": true,
	"with": true, "from": true, "will": true, "have": true, "has": true,
	"been": true, "were": true, "into": true, "onto": true, "their": true,
	"then": true, "than": true, "when": true, "where": true, "which": true,
	"should": true, "would": true, "could": true, "about": true, "using": true,
}

// contentWords extracts lowercase alphanumeric tokens longer than 3
// characters and not in the stopword list, the keyword tokenizer for the
// past-failure check.
func contentWords(text string) []string {
	return tokenize(text, 4)
}

// overlapWords is the looser cut used by the NK-overlap check: tokens of 3+
// characters still count, so short domain terms (jwt, orm, tls) reach the
// two-word overlap threshold.
func overlapWords(text string) []string {
	return tokenize(text, 3)
}

// WordOverlap counts the distinct content words (3+ characters, stopwords
// dropped) shared by two texts. It is the keyword-match rule behind both
// the validator's NK check and the context manager's NK alert filter;
// exported for the same reason patternextractor.Normalize is — one rule,
// not two drifting copies.
func WordOverlap(a, b string) int {
	set := make(map[string]bool)
	for _, w := range overlapWords(a) {
		set[w] = true
	}
	count := 0
	seen := make(map[string]bool)
	for _, w := range overlapWords(b) {
		if set[w] && !seen[w] {
			seen[w] = true
			count++
		}
	}
	return count
}

func tokenize(text string, minLen int) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if len(f) >= minLen && !stopwords[f] {
			out = append(out, f)
		}
	}
	return out
}
