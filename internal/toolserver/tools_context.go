package toolserver

import (
	"context"

	"github.com/actiquest-dev/membria-core/internal/contextmgr"
	"github.com/actiquest-dev/membria-core/internal/model"
	"github.com/actiquest-dev/membria-core/internal/planvalidator"
)

const (
	minMaxTokens = 256
	maxMaxTokens = 8000
)

func clampMaxTokens(v int) int {
	if v == 0 {
		return 0
	}
	if v < minMaxTokens {
		return minMaxTokens
	}
	if v > maxMaxTokens {
		return maxMaxTokens
	}
	return v
}

// GetDecisionContextInput is get_decision_context's argument shape.
type GetDecisionContextInput struct {
	Statement  string  `json:"statement" jsonschema:"minLength=1"`
	Module     string  `json:"module,omitempty"`
	Confidence float64 `json:"confidence,omitempty" default:"0.5" jsonschema:"minimum=0,maximum=1"`
	MaxTokens  int     `json:"max_tokens,omitempty" default:"2000" jsonschema:"minimum=256,maximum=8000"`
}

// GetDecisionContextOutput is get_decision_context's result shape.
type GetDecisionContextOutput struct {
	CompactContext   string                `json:"compact_context"`
	TotalTokens      int                   `json:"total_tokens"`
	Truncated        bool                  `json:"truncated"`
	SectionsIncluded []contextmgr.Section  `json:"sections_included"`
}

// GetPlanContextInput is get_plan_context's argument shape.
type GetPlanContextInput struct {
	Domain    string   `json:"domain" jsonschema:"minLength=1"`
	Scope     []string `json:"scope,omitempty"`
	MaxTokens int      `json:"max_tokens,omitempty" default:"1500" jsonschema:"minimum=256,maximum=8000"`
}

// GetPlanContextOutput is get_plan_context's result shape.
type GetPlanContextOutput struct {
	Domain             string                  `json:"domain"`
	CompactContext     string                  `json:"compact_context"`
	TotalTokens        int                     `json:"total_tokens"`
	Truncated          bool                    `json:"truncated"`
	SectionsIncluded   []contextmgr.Section    `json:"sections_included"`
	FailedApproaches   []planvalidator.FailedApproach `json:"failed_approaches"`
	SuccessfulPatterns []model.Pattern         `json:"successful_patterns"`
}

// ValidatePlanInput is validate_plan's argument shape.
type ValidatePlanInput struct {
	Steps  []string `json:"steps" jsonschema:"minItems=1"`
	Domain string   `json:"domain,omitempty"`
}

// ValidatePlanOutput mirrors planvalidator.Result.
type ValidatePlanOutput struct {
	TotalSteps     int                   `json:"total_steps"`
	WarningsCount  int                   `json:"warnings_count"`
	HighSeverity   int                   `json:"high_severity"`
	MediumSeverity int                   `json:"medium_severity"`
	LowSeverity    int                   `json:"low_severity"`
	Warnings       []planvalidator.Warning `json:"warnings"`
	CanProceed     bool                  `json:"can_proceed"`
	Timestamp      int64                 `json:"timestamp"`
}

// RecordPlanInput is record_plan's argument shape.
type RecordPlanInput struct {
	PlanSteps      []string `json:"plan_steps" jsonschema:"minItems=1"`
	Domain         string   `json:"domain" jsonschema:"minLength=1"`
	PlanConfidence float64  `json:"plan_confidence,omitempty" default:"0.5" jsonschema:"minimum=0,maximum=1"`
	SessionID      string   `json:"session_id,omitempty"`
}

// RecordPlanOutput is record_plan's result shape.
type RecordPlanOutput struct {
	EngramID    string   `json:"engram_id"`
	DecisionIDs []string `json:"decision_ids"`
	Domain      string   `json:"domain"`
}

func registerContextTools(r *Registry, d *Deps) {
	Register(r, "get_decision_context", "Assemble a token-budgeted compact context for a proposed decision.",
		func(ctx context.Context, in GetDecisionContextInput) (GetDecisionContextOutput, error) {
			assembled, err := d.ContextMgr.BuildDecisionContext(ctx, contextmgr.DecisionContextParams{
				Statement:  in.Statement,
				Module:     d.module(in.Module),
				Confidence: in.Confidence,
				MaxTokens:  clampMaxTokens(in.MaxTokens),
			})
			if err != nil {
				return GetDecisionContextOutput{}, err
			}
			return GetDecisionContextOutput{
				CompactContext:   assembled.CompactContext,
				TotalTokens:      assembled.TotalTokens,
				Truncated:        assembled.Truncated,
				SectionsIncluded: assembled.SectionsIncluded,
			}, nil
		})

	Register(r, "get_plan_context", "Assemble a domain's planning history into a recommendation bundle.",
		func(ctx context.Context, in GetPlanContextInput) (GetPlanContextOutput, error) {
			domain := d.module(in.Domain)
			planCtx, err := d.PlanBuilder.Build(ctx, domain, in.Scope)
			if err != nil {
				return GetPlanContextOutput{}, err
			}
			assembled := d.ContextMgr.BuildPlanContext(planCtx, clampMaxTokens(in.MaxTokens), "", nil)
			return GetPlanContextOutput{
				Domain:             domain,
				CompactContext:     assembled.CompactContext,
				TotalTokens:        assembled.TotalTokens,
				Truncated:          assembled.Truncated,
				SectionsIncluded:   assembled.SectionsIncluded,
				FailedApproaches:   planCtx.FailedApproaches,
				SuccessfulPatterns: planCtx.SuccessfulPatterns,
			}, nil
		})

	Register(r, "validate_plan", "Scan proposed plan steps for known-bad patterns, antipatterns, and overconfidence.",
		func(ctx context.Context, in ValidatePlanInput) (ValidatePlanOutput, error) {
			domain := d.module(in.Domain)
			res, err := d.Validator.ValidatePlan(ctx, domain, in.Steps, d.now())
			if err != nil {
				return ValidatePlanOutput{}, err
			}
			return ValidatePlanOutput{
				TotalSteps: res.TotalSteps, WarningsCount: res.WarningsCount,
				HighSeverity: res.HighSeverity, MediumSeverity: res.MediumSeverity, LowSeverity: res.LowSeverity,
				Warnings: res.Warnings, CanProceed: res.CanProceed, Timestamp: res.Timestamp,
			}, nil
		})

	Register(r, "record_plan", "Persist a plan's steps as decisions linked through one engram.",
		func(ctx context.Context, in RecordPlanInput) (RecordPlanOutput, error) {
			domain := d.module(in.Domain)
			now := d.now()
			engramID := newEngramID(now)

			engram := &model.Engram{
				ID:                 engramID,
				SessionID:          in.SessionID,
				CreatedAt:          now,
				DecisionsExtracted: len(in.PlanSteps),
				Summary:            &model.EngramSummary{Intent: "record_plan", Learnings: in.PlanSteps},
			}
			if err := d.Graph.AddEngram(ctx, engram); err != nil {
				return RecordPlanOutput{}, err
			}

			ids := make([]string, 0, len(in.PlanSteps))
			for i, step := range in.PlanSteps {
				dec := &model.Decision{
					ID:           newStepDecisionID(now, i),
					Statement:    step,
					Alternatives: []string{"(no alternative recorded)"},
					Confidence:   in.PlanConfidence,
					Module:       domain,
					CreatedAt:    now,
					Outcome:      model.OutcomePending,
					EngramID:     engramID,
					TTLDays:      model.DefaultSkillTTLDays,
					IsActive:     true,
					Source:       "record_plan",
				}
				if err := dec.Valid(); err != nil {
					return RecordPlanOutput{}, err
				}
				if err := d.Graph.AddDecision(ctx, dec); err != nil {
					return RecordPlanOutput{}, err
				}
				_ = d.Engram.IndexDecision(indexEntryFor(dec))
				if err := d.Graph.LinkDecisionEngram(ctx, dec.ID, engramID, in.PlanConfidence); err != nil {
					return RecordPlanOutput{}, err
				}
				ids = append(ids, dec.ID)
			}

			if in.SessionID != "" {
				_ = d.Graph.LinkEngramSessionContext(ctx, engramID, in.SessionID)
			}

			return RecordPlanOutput{EngramID: engramID, DecisionIDs: ids, Domain: domain}, nil
		})
}
