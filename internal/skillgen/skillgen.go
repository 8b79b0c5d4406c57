// Package skillgen composes a per-domain markdown procedure ("Skill") from
// extracted patterns, NK entries, and the domain's calibration profile
// (§4.6). The markdown is hand-assembled section by section with
// strings.Builder, matching the teacher's internal/learner.
// generateRecommendations style — no templating library is introduced
// because the teacher itself never reaches for one.
package skillgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/actiquest-dev/membria-core/internal/apperrors"
	"github.com/actiquest-dev/membria-core/internal/model"
)

// MinPatternsForSkill is the minimum number of eligible patterns a domain
// must have before a skill is generated.
const MinPatternsForSkill = 3

// MaxNKEntries is the maximum number of domain NK entries folded into the
// "Known Failures" section.
const MaxNKEntries = 5

// PatternExtractor is the subset of *patternextractor.Extractor skillgen
// depends on.
type PatternExtractor interface {
	Extract(ctx context.Context, domain string, limit, minSampleSize int) ([]model.Pattern, error)
}

// GraphStore is the subset of *graphstore.Client skillgen depends on.
type GraphStore interface {
	ListNegativeKnowledge(ctx context.Context, domain string, limit int) ([]*model.NegativeKnowledge, error)
	AddSkill(ctx context.Context, s *model.Skill) error
	MaxSkillVersion(ctx context.Context, domain string) (int, error)
}

// Calibration is the subset of *calibration.Engine skillgen depends on.
type Calibration interface {
	Get(domain string) (*model.CalibrationProfile, error)
}

// Generator produces domain Skills.
type Generator struct {
	patterns PatternExtractor
	store    GraphStore
	cal      Calibration
	now      func() int64
}

// New constructs a Generator. now supplies the current epoch-seconds
// timestamp; pass a fixed function in tests.
func New(patterns PatternExtractor, store GraphStore, cal Calibration, now func() int64) *Generator {
	return &Generator{patterns: patterns, store: store, cal: cal, now: now}
}

// Generate produces (and persists) a new Skill version for domain, or
// returns apperrors.ErrNotEligible if fewer than MinPatternsForSkill
// patterns exist or no calibration profile has been recorded yet.
func (g *Generator) Generate(ctx context.Context, domain string, decisionLimit int) (*model.Skill, error) {
	patterns, err := g.patterns.Extract(ctx, domain, decisionLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("skillgen: extract patterns: %w", err)
	}
	if len(patterns) < MinPatternsForSkill {
		return nil, apperrors.ErrNotEligible
	}

	profile, err := g.cal.Get(domain)
	if err != nil {
		return nil, fmt.Errorf("skillgen: get calibration profile: %w", err)
	}
	if profile == nil {
		return nil, apperrors.ErrNotEligible
	}

	var green, yellow, red []model.Pattern
	for _, p := range patterns {
		switch model.Zone(p.SuccessRate) {
		case "green":
			green = append(green, p)
		case "yellow":
			yellow = append(yellow, p)
		default:
			red = append(red, p)
		}
	}

	nkEntries, err := g.store.ListNegativeKnowledge(ctx, domain, MaxNKEntries)
	if err != nil {
		return nil, fmt.Errorf("skillgen: list negative knowledge: %w", err)
	}

	maxVersion, err := g.store.MaxSkillVersion(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("skillgen: max skill version: %w", err)
	}
	version := maxVersion + 1
	if version <= 0 {
		version = 1
	}

	var totalSuccesses, totalSamples int
	var supporting []string
	for _, p := range patterns {
		totalSamples += p.SampleSize
		totalSuccesses += int(p.SuccessRate * float64(p.SampleSize))
		supporting = append(supporting, p.SupportingDecisions...)
	}
	var successRate float64
	if totalSamples > 0 {
		successRate = float64(totalSuccesses) / float64(totalSamples)
	}

	confidenceGap := profile.MeanSuccessRate - successRate
	procedure := renderProcedure(domain, patterns, green, yellow, red, nkEntries, profile, confidenceGap, totalSamples)

	now := g.now()
	skill := &model.Skill{
		ID:                     fmt.Sprintf("sk-%s-v%d", domain, version),
		Domain:                 domain,
		Name:                   fmt.Sprintf("%s procedure", domain),
		Version:                version,
		SuccessRate:            successRate,
		Confidence:             profile.MeanSuccessRate,
		SampleSize:             totalSamples,
		Procedure:              procedure,
		GreenZone:              statements(green),
		YellowZone:             statements(yellow),
		RedZone:                statements(red),
		QualityScore:           model.SkillQuality(successRate, totalSamples),
		GeneratedFromDecisions: supporting,
		CreatedAt:              now,
		LastUpdated:            now,
		NextReview:             now + model.NextReviewOffsetDays*86400,
		TTLDays:                model.DefaultSkillTTLDays,
		IsActive:               true,
	}

	if err := g.store.AddSkill(ctx, skill); err != nil {
		return nil, fmt.Errorf("skillgen: add skill: %w", err)
	}
	return skill, nil
}

func statements(patterns []model.Pattern) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = p.Statement
	}
	return out
}

func renderProcedure(domain string, all, green, yellow, red []model.Pattern, nk []*model.NegativeKnowledge, profile *model.CalibrationProfile, confidenceGap float64, totalSamples int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s Procedure\n\n", domain)

	b.WriteString("## Team Experience\n\n")
	fmt.Fprintf(&b, "- Sample size: %d decisions\n", totalSamples)
	fmt.Fprintf(&b, "- Mean success rate: %.0f%%\n", profile.MeanSuccessRate*100)
	fmt.Fprintf(&b, "- Confidence gap: %.2f\n", confidenceGap)
	fmt.Fprintf(&b, "- Trend: %s\n\n", profile.Trend)

	writeZoneSection(&b, "## Strongly Recommend\n\n", green)
	writeZoneSection(&b, "## Consider Carefully\n\n", yellow)
	writeZoneSection(&b, "## Avoid\n\n", red)

	b.WriteString("## Known Failures\n\n")
	if len(nk) == 0 {
		b.WriteString("- none recorded\n")
	}
	for _, n := range nk {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", n.Hypothesis, n.Conclusion, n.Severity)
	}

	return b.String()
}

func writeZoneSection(b *strings.Builder, header string, patterns []model.Pattern) {
	b.WriteString(header)
	if len(patterns) == 0 {
		b.WriteString("- none\n\n")
		return
	}
	for _, p := range patterns {
		fmt.Fprintf(b, "- %s (success rate %.0f%%, n=%d)\n", p.Statement, p.SuccessRate*100, p.SampleSize)
	}
	b.WriteString("\n")
}
