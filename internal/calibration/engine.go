// Package calibration maintains per-domain Beta posteriors over outcome
// success, derives a rolling trend, and renders confidence guidance,
// generalizing internal/learner's "aggregate -> report struct ->
// recommendation text" idiom from dispatch-history SQL aggregation to
// Beta-posterior arithmetic.
package calibration

import (
	"fmt"
	"sync"

	"github.com/actiquest-dev/membria-core/internal/model"
)

// DefaultRollingWindowSize bounds how many recent outcomes are kept per
// domain to compute Trend when NewEngine is given a window size <= 0.
// Configurable via config.Calibration.RollingWindowSize.
const DefaultRollingWindowSize = 20

// Engine owns an in-memory set of per-domain calibration profiles, saving a
// profile to its Store on every RecordOutcome.
type Engine struct {
	mu         sync.Mutex
	store      Store
	windowSize int
	profiles   map[string]*model.CalibrationProfile
}

// Store persists and loads calibration profiles, keyed by domain within a
// namespace. Implementations back this with JSON files under the data
// directory (see FileStore).
type Store interface {
	Load(domain string) (*model.CalibrationProfile, error)
	Save(profile *model.CalibrationProfile) error
	List() ([]*model.CalibrationProfile, error)
}

// NewEngine constructs a calibration engine backed by store, with trend
// windows of windowSize outcomes. A windowSize <= 0 uses the default.
func NewEngine(store Store, windowSize int) *Engine {
	if windowSize <= 0 {
		windowSize = DefaultRollingWindowSize
	}
	return &Engine{
		store:      store,
		windowSize: windowSize,
		profiles:   make(map[string]*model.CalibrationProfile),
	}
}

func (e *Engine) profile(domain string) (*model.CalibrationProfile, error) {
	if p, ok := e.profiles[domain]; ok {
		return p, nil
	}
	p, err := e.store.Load(domain)
	if err != nil {
		return nil, fmt.Errorf("calibration: loading profile for %q: %w", domain, err)
	}
	if p == nil {
		p = model.NewCalibrationProfile(domain)
	}
	e.profiles[domain] = p
	return p, nil
}

// RecordOutcome folds a finalized outcome into the domain's posterior,
// updates its rolling window, and recomputes mean/variance/trend.
func (e *Engine) RecordOutcome(domain string, success bool) (*model.CalibrationProfile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.profile(domain)
	if err != nil {
		return nil, err
	}

	if success {
		p.Alpha++
	} else {
		p.Beta++
	}

	p.RecentOutcomes = append(p.RecentOutcomes, success)
	if len(p.RecentOutcomes) > e.windowSize {
		p.RecentOutcomes = p.RecentOutcomes[len(p.RecentOutcomes)-e.windowSize:]
	}

	p.MeanSuccessRate = Mean(p.Alpha, p.Beta)
	p.Variance = Variance(p.Alpha, p.Beta)
	p.SampleSize = SampleSize(p.Alpha, p.Beta)
	p.Trend = trendFromWindow(p.RecentOutcomes)

	if err := e.store.Save(p); err != nil {
		return nil, fmt.Errorf("calibration: saving profile for %q: %w", domain, err)
	}
	return p, nil
}

// trendFromWindow implements the rolling-window trend rule: improving if the
// mean of the most recent half exceeds the earlier half by >= 0.1, declining
// if less by >= 0.1, stable otherwise, unknown if the window has fewer than
// four entries.
func trendFromWindow(window []bool) string {
	if len(window) < 4 {
		return model.TrendUnknown
	}

	half := len(window) / 2
	earlier := window[:half]
	recent := window[len(window)-half:]

	earlierMean := boolMean(earlier)
	recentMean := boolMean(recent)

	switch {
	case recentMean-earlierMean >= 0.1:
		return model.TrendImproving
	case earlierMean-recentMean >= 0.1:
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}

func boolMean(vals []bool) float64 {
	if len(vals) == 0 {
		return 0
	}
	count := 0
	for _, v := range vals {
		if v {
			count++
		}
	}
	return float64(count) / float64(len(vals))
}

// Get returns the current profile for a domain, seeding a fresh Beta(1,1)
// prior if none exists yet.
func (e *Engine) Get(domain string) (*model.CalibrationProfile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile(domain)
}

// Guidance is the confidence-calibration recommendation returned to a
// caller-supplied confidence estimate for a domain.
type Guidance struct {
	Domain            string  `json:"domain"`
	MeanSuccessRate    float64 `json:"mean_success_rate"`
	ConfidenceGap      float64 `json:"confidence_gap"`
	Adjustment         float64 `json:"adjustment"`
	CredibleIntervalLo float64 `json:"credible_interval_low"`
	CredibleIntervalHi float64 `json:"credible_interval_high"`
	Recommendation     string  `json:"recommendation"`
	Trend              string  `json:"trend"`
	SampleSize         float64 `json:"sample_size"`
}

// Overconfidence thresholds for the guidance recommendation text.
const (
	OverconfidentGapThreshold  = 0.15
	UnderconfidentGapThreshold = -0.15
)

// GuidanceFor computes confidence guidance for a caller-supplied confidence
// estimate against a domain's current profile.
func (e *Engine) GuidanceFor(domain string, confidence float64) (*Guidance, error) {
	p, err := e.Get(domain)
	if err != nil {
		return nil, err
	}

	gap := confidence - p.MeanSuccessRate
	lo, hi := CredibleInterval95(p.Alpha, p.Beta)

	var rec string
	switch {
	case gap > OverconfidentGapThreshold:
		rec = "overconfident"
	case gap < UnderconfidentGapThreshold:
		rec = "underconfident"
	default:
		rec = "well-calibrated"
	}

	return &Guidance{
		Domain:             domain,
		MeanSuccessRate:    p.MeanSuccessRate,
		ConfidenceGap:      gap,
		Adjustment:         -gap,
		CredibleIntervalLo: lo,
		CredibleIntervalHi: hi,
		Recommendation:     rec,
		Trend:              p.Trend,
		SampleSize:         p.SampleSize,
	}, nil
}
