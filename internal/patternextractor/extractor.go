// Package patternextractor groups recent decisions by normalized statement
// and reports their observed success rate as a Pattern (§4.5). Grounded
// directly on the teacher's internal/learner.detectPatterns/Pattern idiom:
// aggregate query results into report structs with a fixed minimum-sample
// threshold, generalized here from dispatch failure-category grouping to
// decision-statement grouping.
package patternextractor

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/actiquest-dev/membria-core/internal/model"
)

// DefaultMinSampleSize is the minimum number of decisions a statement group
// must have before it is emitted as a Pattern.
const DefaultMinSampleSize = 3

// GraphStore is the subset of *graphstore.Client the extractor depends on.
type GraphStore interface {
	ListRecentDecisions(ctx context.Context, module string, limit int) ([]*model.Decision, error)
}

// Extractor computes Patterns for a domain from recent decision history.
type Extractor struct {
	store GraphStore
}

// New constructs an Extractor.
func New(store GraphStore) *Extractor {
	return &Extractor{store: store}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize lowercases and collapses runs of whitespace, the grouping key
// for a decision statement. Exported so the plan context builder's
// failed_approaches grouping (§4.8) uses the identical normalization rule
// rather than a second, possibly-diverging implementation.
func Normalize(statement string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(statement)), " ")
}

func normalize(statement string) string { return Normalize(statement) }

// Extract retrieves up to limit recent decisions for domain and groups them
// by normalized statement, emitting a Pattern for every group whose sample
// size meets minSampleSize (DefaultMinSampleSize if minSampleSize <= 0).
// Patterns are ordered by success rate descending, ties broken by larger
// sample size.
func (e *Extractor) Extract(ctx context.Context, domain string, limit, minSampleSize int) ([]model.Pattern, error) {
	if minSampleSize <= 0 {
		minSampleSize = DefaultMinSampleSize
	}
	decisions, err := e.store.ListRecentDecisions(ctx, domain, limit)
	if err != nil {
		return nil, fmt.Errorf("patternextractor: list decisions: %w", err)
	}

	type group struct {
		statement  string
		successes  int
		total      int
		supporting []string
	}
	groups := map[string]*group{}
	var order []string
	for _, d := range decisions {
		key := normalize(d.Statement)
		g, ok := groups[key]
		if !ok {
			g = &group{statement: d.Statement}
			groups[key] = g
			order = append(order, key)
		}
		g.total++
		if d.Outcome == model.OutcomeSuccess {
			g.successes++
		}
		g.supporting = append(g.supporting, d.ID)
	}

	var patterns []model.Pattern
	for _, key := range order {
		g := groups[key]
		if g.total < minSampleSize {
			continue
		}
		patterns = append(patterns, model.Pattern{
			Statement:           g.statement,
			SuccessRate:         float64(g.successes) / float64(g.total),
			SampleSize:          g.total,
			SupportingDecisions: g.supporting,
		})
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].SuccessRate != patterns[j].SuccessRate {
			return patterns[i].SuccessRate > patterns[j].SuccessRate
		}
		return patterns[i].SampleSize > patterns[j].SampleSize
	})
	return patterns, nil
}
