package toolserver

import (
	"context"
	"fmt"

	"github.com/actiquest-dev/membria-core/internal/apperrors"
	"github.com/actiquest-dev/membria-core/internal/model"
)

// defaultModule is the module a capture_decision payload falls back to when
// its context carries no module key, per the original spec's explicit
// instruction that this default be "general", not "unknown".
const defaultModule = "general"

func newDecisionID(now int64) string {
	return fmt.Sprintf("dec_%d_%08x", now, hashSeq())
}

func newOutcomeID(now int64) string {
	return fmt.Sprintf("out_%d_%08x", now, hashSeq())
}

// CaptureDecisionInput is capture_decision's argument shape.
type CaptureDecisionInput struct {
	Statement    string            `json:"statement" jsonschema:"minLength=1"`
	Alternatives []string          `json:"alternatives" jsonschema:"minItems=1"`
	Confidence   float64           `json:"confidence,omitempty" default:"0.5" jsonschema:"minimum=0,maximum=1"`
	Context      map[string]string `json:"context,omitempty"`
}

// CaptureDecisionOutput is capture_decision's result shape.
type CaptureDecisionOutput struct {
	DecisionID string  `json:"decision_id"`
	Statement  string  `json:"statement"`
	Confidence float64 `json:"confidence"`
	Module     string  `json:"module"`
	Status     string  `json:"status"`
}

func registerDecisionTools(r *Registry, d *Deps) {
	Register(r, "capture_decision", "Record a new decision with its alternatives and confidence.",
		func(ctx context.Context, in CaptureDecisionInput) (CaptureDecisionOutput, error) {
			module := defaultModule
			if m, ok := in.Context["module"]; ok && m != "" {
				module = m
			}
			now := d.now()
			dec := &model.Decision{
				ID:           newDecisionID(now),
				Statement:    in.Statement,
				Alternatives: in.Alternatives,
				Confidence:   in.Confidence,
				Module:       module,
				CreatedAt:    now,
				Outcome:      "pending",
				TTLDays:      model.DefaultSkillTTLDays,
				IsActive:     true,
				Source:       "tool_call",
			}
			if err := dec.Valid(); err != nil {
				return CaptureDecisionOutput{}, err
			}
			if err := d.Graph.AddDecision(ctx, dec); err != nil {
				return CaptureDecisionOutput{}, err
			}
			_ = d.Engram.IndexDecision(indexEntryFor(dec))
			return CaptureDecisionOutput{
				DecisionID: dec.ID,
				Statement:  dec.Statement,
				Confidence: dec.Confidence,
				Module:     dec.Module,
				Status:     "captured",
			}, nil
		})

	Register(r, "record_outcome", "Write a final outcome status for a decision and fold it into calibration.",
		func(ctx context.Context, in RecordOutcomeInput) (RecordOutcomeOutput, error) {
			now := d.now()
			domain := d.module(in.DecisionDomain)

			outcomeID, err := d.resolveOutcomeID(ctx, in.DecisionID, now)
			if err != nil {
				return RecordOutcomeOutput{}, err
			}

			before, _ := d.Calibration.Get(domain)
			out, err := d.Tracker.FinalizeOutcome(ctx, outcomeID, in.FinalStatus, in.FinalScore, now, domain)
			if err != nil {
				return RecordOutcomeOutput{}, err
			}
			after, _ := d.Calibration.Get(domain)

			_ = d.Engram.UpdateDecisionIndexOutcome(in.DecisionID, in.FinalStatus)

			return RecordOutcomeOutput{
				OutcomeID:        out.ID,
				DecisionID:       in.DecisionID,
				FinalStatus:      out.Status,
				FinalScore:       in.FinalScore,
				CalibrationImpact: calibrationDelta(before, after),
			}, nil
		})

	Register(r, "get_decision", "Fetch one captured decision by id.",
		func(ctx context.Context, in GetDecisionInput) (GetDecisionOutput, error) {
			dec, err := d.Graph.GetDecision(ctx, in.DecisionID)
			if err != nil {
				return GetDecisionOutput{}, err
			}
			if dec == nil {
				return GetDecisionOutput{}, fmt.Errorf("decision %s: %w", in.DecisionID, apperrors.ErrNotFound)
			}
			return GetDecisionOutput{Decision: dec}, nil
		})

	Register(r, "get_calibration", "Return calibration guidance for a domain, or the default module's if omitted.",
		func(ctx context.Context, in GetCalibrationInput) (GetCalibrationOutput, error) {
			domain := d.module(in.Domain)
			profile, err := d.Calibration.Get(domain)
			if err != nil {
				return GetCalibrationOutput{}, err
			}
			guidance, err := d.Calibration.GuidanceFor(domain, in.Confidence)
			if err != nil {
				return GetCalibrationOutput{}, err
			}
			return GetCalibrationOutput{
				Domain:              domain,
				MeanSuccessRate:     guidance.MeanSuccessRate,
				ConfidenceGap:       guidance.ConfidenceGap,
				Adjustment:          guidance.Adjustment,
				CredibleIntervalLo:  guidance.CredibleIntervalLo,
				CredibleIntervalHi:  guidance.CredibleIntervalHi,
				Recommendation:      guidance.Recommendation,
				Trend:               guidance.Trend,
				SampleSize:          guidance.SampleSize,
				Alpha:               profile.Alpha,
				Beta:                profile.Beta,
			}, nil
		})
}

// resolveOutcomeID finds an existing outcome for decisionID, or creates one,
// so record_outcome can be called without a prior pending/submitted/merged
// lifecycle; FinalizeOutcome itself tolerates any forward transition from
// whatever status it finds.
func (d *Deps) resolveOutcomeID(ctx context.Context, decisionID string, now int64) (string, error) {
	outcomes, err := d.Tracker.List(ctx, "", 0)
	if err != nil {
		return "", err
	}
	for _, o := range outcomes {
		if o.DecisionID == decisionID {
			return o.ID, nil
		}
	}
	out, err := d.Tracker.CreateOutcome(ctx, newOutcomeID(now), decisionID, now, model.DefaultSkillTTLDays)
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

func calibrationDelta(before, after *model.CalibrationProfile) float64 {
	if before == nil || after == nil {
		return 0
	}
	return after.MeanSuccessRate - before.MeanSuccessRate
}

// RecordOutcomeInput is record_outcome's argument shape.
type RecordOutcomeInput struct {
	DecisionID     string  `json:"decision_id" jsonschema:"minLength=1"`
	FinalStatus    string  `json:"final_status" jsonschema:"minLength=1"`
	FinalScore     float64 `json:"final_score,omitempty" default:"0.5" jsonschema:"minimum=0,maximum=1"`
	DecisionDomain string  `json:"decision_domain,omitempty" default:"general"`
}

// RecordOutcomeOutput is record_outcome's result shape.
type RecordOutcomeOutput struct {
	OutcomeID         string  `json:"outcome_id"`
	DecisionID        string  `json:"decision_id"`
	FinalStatus       string  `json:"final_status"`
	FinalScore        float64 `json:"final_score"`
	CalibrationImpact float64 `json:"calibration_impact"`
}

// GetDecisionInput is get_decision's argument shape.
type GetDecisionInput struct {
	DecisionID string `json:"decision_id" jsonschema:"minLength=1"`
}

// GetDecisionOutput is get_decision's result shape.
type GetDecisionOutput struct {
	Decision *model.Decision `json:"decision"`
}

// GetCalibrationInput is get_calibration's argument shape.
type GetCalibrationInput struct {
	Domain     string  `json:"domain,omitempty"`
	Confidence float64 `json:"confidence,omitempty" default:"0.5" jsonschema:"minimum=0,maximum=1"`
}

// GetCalibrationOutput is get_calibration's result shape.
type GetCalibrationOutput struct {
	Domain             string  `json:"domain"`
	MeanSuccessRate    float64 `json:"mean_success_rate"`
	ConfidenceGap      float64 `json:"confidence_gap"`
	Adjustment         float64 `json:"adjustment"`
	CredibleIntervalLo float64 `json:"credible_interval_lo"`
	CredibleIntervalHi float64 `json:"credible_interval_hi"`
	Recommendation     string  `json:"recommendation"`
	Trend              string  `json:"trend"`
	SampleSize         float64 `json:"sample_size"`
	Alpha              float64 `json:"alpha"`
	Beta               float64 `json:"beta"`
}
