package contextmgr

import (
	"fmt"
	"strings"

	"github.com/actiquest-dev/membria-core/internal/model"
	"github.com/actiquest-dev/membria-core/internal/planvalidator"
)

// BuildPlanContext renders a planvalidator.PlanContext bundle into a
// token-budgeted compact context, optionally appending a DocShot reference
// section fetched by docShotID. Section order follows §4.8: calibration,
// failed approaches, successful patterns, recommendations, constraints,
// DocShot.
func (m *Manager) BuildPlanContext(planCtx *planvalidator.PlanContext, maxTokens int, docShotID string, docs []*model.Document) *Assembled {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var sections []Section
	if planCtx.Calibration != nil {
		sections = append(sections, newSection("calibration", renderPlanCalibration(planCtx)))
	}
	if text := renderFailedApproaches(planCtx.FailedApproaches); text != "" {
		sections = append(sections, newSection("failed_approaches", text))
	}
	if text := renderSuccessfulPatterns(planCtx.SuccessfulPatterns); text != "" {
		sections = append(sections, newSection("successful_patterns", text))
	}
	if text := renderRecommendations(planCtx.Recommendations); text != "" {
		sections = append(sections, newSection("recommendations", text))
	}
	if text := renderConstraints(planCtx.Constraints); text != "" {
		sections = append(sections, newSection("constraints", text))
	}
	if docShotID != "" {
		if text := renderDocShot(docShotID, docs); text != "" {
			sections = append(sections, newSection("doc_shot_reference", text))
		}
	}

	return assemble(sections, maxTokens)
}

func renderPlanCalibration(pc *planvalidator.PlanContext) string {
	var b strings.Builder
	b.WriteString("## Calibration\n")
	fmt.Fprintf(&b, "- %s\n\n", pc.CalibrationNote)
	return b.String()
}

func renderFailedApproaches(entries []planvalidator.FailedApproach) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Failed approaches\n")
	for _, f := range entries {
		fmt.Fprintf(&b, "- %s (failed %d times)\n", f.Statement, f.FailureCount)
	}
	b.WriteString("\n")
	return b.String()
}

func renderSuccessfulPatterns(patterns []model.Pattern) string {
	if len(patterns) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Successful patterns\n")
	for _, p := range patterns {
		fmt.Fprintf(&b, "- %s (success rate %.0f%%, n=%d)\n", p.Statement, p.SuccessRate*100, p.SampleSize)
	}
	b.WriteString("\n")
	return b.String()
}

func renderRecommendations(recs []string) string {
	if len(recs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Recommendations\n")
	for _, r := range recs {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	b.WriteString("\n")
	return b.String()
}

func renderConstraints(constraints []string) string {
	if len(constraints) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Constraints\n")
	for _, c := range constraints {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	b.WriteString("\n")
	return b.String()
}
