package contextmgr

import (
	"context"
	"fmt"
	"strings"

	"github.com/actiquest-dev/membria-core/internal/calibration"
	"github.com/actiquest-dev/membria-core/internal/graphstore"
	"github.com/actiquest-dev/membria-core/internal/model"
	"github.com/actiquest-dev/membria-core/internal/planvalidator"
)

// GraphStore is the subset of *graphstore.Client the context manager
// depends on. FindSimilarDecisions returns graphstore's own result type
// (rather than a locally redeclared shape) since it carries the similarity
// score alongside the decision.
type GraphStore interface {
	ListNegativeKnowledge(ctx context.Context, domain string, limit int) ([]*model.NegativeKnowledge, error)
	ListRoleSkills(ctx context.Context, roleID string) ([]*model.Skill, error)
	FindSimilarDecisions(ctx context.Context, module string, embedding []float64, limit int) ([]*graphstore.SimilarDecision, error)
	GetSessionContext(ctx context.Context, sessionID string) (*model.SessionContext, error)
	GetDocShotDocuments(ctx context.Context, docShotID string) ([]*model.Document, error)
}

// Calibration is the subset of *calibration.Engine the context manager
// depends on.
type Calibration interface {
	GuidanceFor(domain string, confidence float64) (*calibration.Guidance, error)
}

// Manager builds decision and plan contexts.
type Manager struct {
	store GraphStore
	cal   Calibration
}

// New constructs a Manager.
func New(store GraphStore, cal Calibration) *Manager {
	return &Manager{store: store, cal: cal}
}

// DecisionContextParams carries build_decision_context's inputs (§4.7).
type DecisionContextParams struct {
	Statement            string
	Module               string
	Confidence           float64
	MaxTokens            int
	IncludeChains        bool
	DocShotID            string
	SessionID            string
	RoleID               string
	RoleSkills           bool
	RoleNegativeKnowledge bool
}

const (
	// DefaultMaxTokens is used when a caller omits max_tokens for
	// build_decision_context.
	DefaultMaxTokens = 2000
	// MaxSimilarDecisions bounds how many past decisions are surfaced.
	MaxSimilarDecisions = 5
	// MaxNKAlerts bounds how many negative-knowledge entries are surfaced.
	MaxNKAlerts = 5
	// maxNKFetch bounds how many domain NK entries are pulled before the
	// statement-keyword filter narrows them to MaxNKAlerts, matching the
	// plan validator's fetch bound.
	maxNKFetch = 20
)

// BuildDecisionContext assembles a token-budgeted compact context for a
// proposed decision, in the fixed section-priority order: calibration
// guidance, NK alerts, role-linked skills, similar past decisions, session
// summary, DocShot reference.
func (m *Manager) BuildDecisionContext(ctx context.Context, p DecisionContextParams) (*Assembled, error) {
	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var sections []Section

	if m.cal != nil {
		guidance, err := m.cal.GuidanceFor(p.Module, p.Confidence)
		if err != nil {
			return nil, fmt.Errorf("contextmgr: calibration guidance: %w", err)
		}
		sections = append(sections, newSection("calibration_guidance", renderGuidance(guidance)))
	}

	nkEntries, err := m.store.ListNegativeKnowledge(ctx, p.Module, maxNKFetch)
	if err != nil {
		return nil, fmt.Errorf("contextmgr: list negative knowledge: %w", err)
	}
	if text := renderNKAlerts(matchNKToStatement(nkEntries, p.Statement)); text != "" {
		sections = append(sections, newSection("negative_knowledge_alerts", text))
	}

	if p.RoleID != "" && (p.RoleSkills || p.RoleNegativeKnowledge) {
		skills, err := m.store.ListRoleSkills(ctx, p.RoleID)
		if err != nil {
			return nil, fmt.Errorf("contextmgr: list role skills: %w", err)
		}
		if text := renderRoleSkills(skills); text != "" {
			sections = append(sections, newSection("role_skills", text))
		}
	}

	similar, err := m.store.FindSimilarDecisions(ctx, p.Module, nil, MaxSimilarDecisions)
	if err != nil {
		return nil, fmt.Errorf("contextmgr: find similar decisions: %w", err)
	}
	if text := renderSimilarDecisions(similar); text != "" {
		sections = append(sections, newSection("similar_past_decisions", text))
	}

	if p.SessionID != "" {
		sc, err := m.store.GetSessionContext(ctx, p.SessionID)
		if err != nil {
			return nil, fmt.Errorf("contextmgr: get session context: %w", err)
		}
		if sc != nil {
			sections = append(sections, newSection("session_context_summary", renderSessionSummary(sc)))
		}
	}

	docShotID := p.DocShotID
	if docShotID == "" {
		// Fall back to the current session's linked docshot, if any.
		if p.SessionID != "" {
			if sc, err := m.store.GetSessionContext(ctx, p.SessionID); err == nil && sc != nil {
				docShotID = sc.DocShotID
			}
		}
	}
	if docShotID != "" {
		docs, err := m.store.GetDocShotDocuments(ctx, docShotID)
		if err != nil {
			return nil, fmt.Errorf("contextmgr: get docshot documents: %w", err)
		}
		if text := renderDocShot(docShotID, docs); text != "" {
			sections = append(sections, newSection("doc_shot_reference", text))
		}
	}

	return assemble(sections, maxTokens), nil
}

func renderGuidance(g *calibration.Guidance) string {
	var b strings.Builder
	b.WriteString("## Calibration guidance\n")
	fmt.Fprintf(&b, "- domain %q: mean success rate %.0f%%, trend %s (n=%.0f)\n", g.Domain, g.MeanSuccessRate*100, g.Trend, g.SampleSize)
	fmt.Fprintf(&b, "- your confidence looks %s (gap %.2f); suggested adjustment %.2f\n", g.Recommendation, g.ConfidenceGap, g.Adjustment)
	fmt.Fprintf(&b, "- 95%% credible interval: [%.2f, %.2f]\n\n", g.CredibleIntervalLo, g.CredibleIntervalHi)
	return b.String()
}

// matchNKToStatement keeps the NK entries whose hypothesis shares enough
// content words with the proposed statement, the same overlap rule the plan
// validator applies to plan steps. An unrelated domain entry never becomes
// an alert just because it shares the module.
func matchNKToStatement(entries []*model.NegativeKnowledge, statement string) []*model.NegativeKnowledge {
	var matched []*model.NegativeKnowledge
	for _, nk := range entries {
		if planvalidator.WordOverlap(statement, nk.Hypothesis) < planvalidator.MinNKOverlapWords {
			continue
		}
		matched = append(matched, nk)
		if len(matched) == MaxNKAlerts {
			break
		}
	}
	return matched
}

func renderNKAlerts(entries []*model.NegativeKnowledge) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Negative knowledge alerts\n")
	for _, nk := range entries {
		fmt.Fprintf(&b, "- [%s] %s -> %s\n", nk.Severity, nk.Hypothesis, nk.Conclusion)
	}
	b.WriteString("\n")
	return b.String()
}

func renderRoleSkills(skills []*model.Skill) string {
	if len(skills) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Role-linked skills\n")
	for _, s := range skills {
		fmt.Fprintf(&b, "- %s v%d (%s, success rate %.0f%%)\n", s.Name, s.Version, s.Domain, s.SuccessRate*100)
	}
	b.WriteString("\n")
	return b.String()
}

func renderSimilarDecisions(similar []*graphstore.SimilarDecision) string {
	if len(similar) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Similar past decisions\n")
	for _, s := range similar {
		fmt.Fprintf(&b, "- %s (outcome: %s, confidence: %.2f)\n", s.Decision.Statement, orPending(s.Decision.Outcome), s.Decision.Confidence)
	}
	b.WriteString("\n")
	return b.String()
}

func orPending(outcome string) string {
	if outcome == "" {
		return model.OutcomePending
	}
	return outcome
}

func renderSessionSummary(sc *model.SessionContext) string {
	var b strings.Builder
	b.WriteString("## Session context\n")
	fmt.Fprintf(&b, "- task: %s\n", sc.Task)
	if sc.Focus != "" {
		fmt.Fprintf(&b, "- focus: %s\n", sc.Focus)
	}
	if sc.CurrentPlan != "" {
		fmt.Fprintf(&b, "- current plan: %s\n", sc.CurrentPlan)
	}
	if len(sc.Constraints) > 0 {
		fmt.Fprintf(&b, "- constraints: %s\n", strings.Join(sc.Constraints, "; "))
	}
	b.WriteString("\n")
	return b.String()
}

func renderDocShot(docShotID string, docs []*model.Document) string {
	if len(docs) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## DocShot reference (%s)\n", docShotID)
	for _, d := range docs {
		fmt.Fprintf(&b, "- %s\n", d.FilePath)
	}
	b.WriteString("\n")
	return b.String()
}
