package planvalidator

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/actiquest-dev/membria-core/internal/model"
)

// Warning severities, ordered high < medium < low per §4.8's sort rule.
const (
	warnOrderHigh = iota
	warnOrderMedium
	warnOrderLow
)

func warnOrder(sev string) int {
	switch sev {
	case model.SeverityHigh, model.SeverityCritical:
		return warnOrderHigh
	case model.SeverityMedium:
		return warnOrderMedium
	default:
		return warnOrderLow
	}
}

// Warning is one plan-validation finding.
type Warning struct {
	Step       int    `json:"step"`
	StepText   string `json:"step_text"`
	Source     string `json:"source"` // negative_knowledge|antipattern|past_failure|overconfidence
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	ReferenceID string `json:"reference_id,omitempty"`
}

// Result is the validate_plan tool's output contract (§4.8).
type Result struct {
	TotalSteps    int       `json:"total_steps"`
	WarningsCount int       `json:"warnings_count"`
	HighSeverity  int       `json:"high_severity"`
	MediumSeverity int      `json:"medium_severity"`
	LowSeverity   int       `json:"low_severity"`
	Warnings      []Warning `json:"warnings"`
	CanProceed    bool      `json:"can_proceed"`
	Timestamp     int64     `json:"timestamp"`
}

// MinNKOverlapWords is the minimum count of shared content words between a
// plan step (or decision statement) and an NK hypothesis before the entry
// is flagged or surfaced.
const MinNKOverlapWords = 2

// maxPastFailureKeywords bounds how many keywords are extracted per step for
// the past-failure check.
const maxPastFailureKeywords = 3

// compiledAntiPattern caches an AntiPattern's regex, compiled once per
// Validator lifetime rather than per validate_plan call.
type compiledAntiPattern struct {
	ap  *model.AntiPattern
	re  *regexp.Regexp
}

// Validator scans proposed plan steps against negative knowledge,
// antipatterns, past failures, and calibration.
type Validator struct {
	store GraphStore
	cal   Calibration

	mu       sync.Mutex
	apCache  []compiledAntiPattern
	apDomain string
}

// NewValidator constructs a Validator.
func NewValidator(store GraphStore, cal Calibration) *Validator {
	return &Validator{store: store, cal: cal}
}

func (v *Validator) compiledAntiPatterns(ctx context.Context) ([]compiledAntiPattern, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.apCache != nil {
		return v.apCache, nil
	}
	aps, err := v.store.ListAntiPatternsByRemovalRate(ctx, 200)
	if err != nil {
		return nil, fmt.Errorf("planvalidator: list antipatterns: %w", err)
	}
	cached := make([]compiledAntiPattern, 0, len(aps))
	for _, ap := range aps {
		if ap.RegexPattern == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + ap.RegexPattern)
		if err != nil {
			continue
		}
		cached = append(cached, compiledAntiPattern{ap: ap, re: re})
	}
	v.apCache = cached
	return cached, nil
}

// ValidatePlan checks every step of a plan against NK, antipatterns, past
// failures in domain, and the domain's calibration gap, returning a sorted,
// counted Result.
func (v *Validator) ValidatePlan(ctx context.Context, domain string, steps []string, now int64) (*Result, error) {
	res := &Result{TotalSteps: len(steps), Timestamp: now}

	nkEntries, err := v.store.ListNegativeKnowledge(ctx, domain, 200)
	if err != nil {
		return nil, fmt.Errorf("planvalidator: list negative knowledge: %w", err)
	}
	antipatterns, err := v.compiledAntiPatterns(ctx)
	if err != nil {
		return nil, err
	}
	pastFailures, err := v.store.ListDecisionsByOutcome(ctx, domain, model.OutcomeFailure, 200)
	if err != nil {
		return nil, fmt.Errorf("planvalidator: list failed decisions: %w", err)
	}

	warnings := []Warning{}
	for i, step := range steps {
		for _, nk := range nkEntries {
			if WordOverlap(step, nk.Hypothesis) >= MinNKOverlapWords {
				warnings = append(warnings, Warning{
					Step: i + 1, StepText: step, Source: "negative_knowledge",
					Severity: nk.Severity, ReferenceID: nk.ID,
					Message: fmt.Sprintf("overlaps a known-bad approach: %s", nk.Hypothesis),
				})
			}
		}

		for _, entry := range antipatterns {
			if entry.re.MatchString(step) {
				warnings = append(warnings, Warning{
					Step: i + 1, StepText: step, Source: "antipattern",
					Severity: model.RemovalSeverity(entry.ap.RemovalRate), ReferenceID: entry.ap.ID,
					Message: fmt.Sprintf("matches antipattern %q", entry.ap.Name),
				})
			}
		}

		for _, kw := range topKeywords(step, maxPastFailureKeywords) {
			for _, d := range pastFailures {
				if strings.Contains(strings.ToLower(d.Statement), kw) {
					warnings = append(warnings, Warning{
						Step: i + 1, StepText: step, Source: "past_failure",
						Severity: model.SeverityMedium, ReferenceID: d.ID,
						Message: fmt.Sprintf("keyword %q appears in a previously failed decision: %s", kw, d.Statement),
					})
					break
				}
			}
		}
	}

	if v.cal != nil {
		guidance, err := v.cal.GuidanceFor(domain, assumedConfidence)
		if err != nil {
			return nil, fmt.Errorf("planvalidator: calibration guidance: %w", err)
		}
		if guidance.ConfidenceGap > recommendationGapPadThreshold+0.05 {
			warnings = append(warnings, Warning{
				Step: 0, Source: "overconfidence", Severity: model.SeverityLow,
				Message: fmt.Sprintf("%s's observed success rate (%.0f%%) is well below full confidence; the plan may be overconfident", domain, guidance.MeanSuccessRate*100),
			})
		}
	}

	sort.SliceStable(warnings, func(i, j int) bool {
		return warnOrder(warnings[i].Severity) < warnOrder(warnings[j].Severity)
	})

	for _, w := range warnings {
		switch warnOrder(w.Severity) {
		case warnOrderHigh:
			res.HighSeverity++
		case warnOrderMedium:
			res.MediumSeverity++
		default:
			res.LowSeverity++
		}
	}
	res.Warnings = warnings
	res.WarningsCount = len(warnings)
	res.CanProceed = res.HighSeverity == 0
	return res, nil
}

// topKeywords extracts up to limit distinct content words from text, in
// order of first appearance.
func topKeywords(text string, limit int) []string {
	words := contentWords(text)
	seen := map[string]bool{}
	var out []string
	for _, w := range words {
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) >= limit {
			break
		}
	}
	return out
}
