package model

import "math"

// Skill is a generated procedure composed from patterns in a domain.
type Skill struct {
	Namespace

	ID                    string   `json:"id"` // sk-<domain>-v<n>
	Domain                string   `json:"domain"`
	Name                  string   `json:"name"`
	Version               int      `json:"version"`
	SuccessRate           float64  `json:"success_rate"`
	Confidence            float64  `json:"confidence"`
	SampleSize            int      `json:"sample_size"`
	Procedure             string   `json:"procedure"` // markdown
	GreenZone             []string `json:"green_zone,omitempty"`
	YellowZone            []string `json:"yellow_zone,omitempty"`
	RedZone               []string `json:"red_zone,omitempty"`
	QualityScore          float64  `json:"quality_score"`
	GeneratedFromDecisions []string `json:"generated_from_decisions,omitempty"`
	CreatedAt             int64    `json:"created_at"`
	LastUpdated           int64    `json:"last_updated"`
	NextReview            int64    `json:"next_review"`
	TTLDays               int      `json:"ttl_days"`
	IsActive              bool     `json:"is_active"`
}

// DefaultSkillTTLDays is the skill's default time-to-live in days.
const DefaultSkillTTLDays = 720

// NextReviewOffsetDays is how far ahead a newly generated skill's next
// review date is set.
const NextReviewOffsetDays = 90

// SkillQuality computes the quality score formula: success_rate times a
// confidence-growth factor that discounts small sample sizes, falling back
// to a neutral 0.5 below the minimum sample threshold.
func SkillQuality(successRate float64, sampleSize int) float64 {
	if sampleSize < 3 {
		return 0.5
	}
	return successRate * (1 - 1/math.Sqrt(float64(sampleSize)))
}

// Pattern is one extracted, grouped decision statement with its observed
// success rate.
type Pattern struct {
	Statement           string   `json:"statement"`
	SuccessRate         float64  `json:"success_rate"`
	SampleSize          int      `json:"sample_size"`
	SupportingDecisions []string `json:"supporting_decisions"`
}

// Zone classification thresholds for partitioning patterns into a skill's
// green/yellow/red sections.
const (
	GreenZoneThreshold  = 0.75
	YellowZoneThreshold = 0.50
)

// Zone classifies a pattern's success rate into green/yellow/red.
func Zone(successRate float64) string {
	switch {
	case successRate > GreenZoneThreshold:
		return "green"
	case successRate >= YellowZoneThreshold:
		return "yellow"
	default:
		return "red"
	}
}
