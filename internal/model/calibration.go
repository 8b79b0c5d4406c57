package model

// Trend classifications for a domain's rolling calibration window.
const (
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendDeclining = "declining"
	TrendUnknown   = "unknown"
)

// CalibrationProfile is a per-domain Beta-posterior record. It is not a graph
// node; it lives in the calibration engine's own JSON persistence layer,
// keyed by (namespace, domain).
type CalibrationProfile struct {
	Domain          string  `json:"domain"`
	Alpha           float64 `json:"alpha"`
	Beta            float64 `json:"beta"`
	MeanSuccessRate float64 `json:"mean_success_rate"`
	Variance        float64 `json:"variance"`
	SampleSize      float64 `json:"sample_size"`
	Trend           string  `json:"trend"`
	LastUpdated     int64   `json:"last_updated"`

	// RecentOutcomes is the bounded rolling window (most recent last) used
	// to derive Trend; it is not part of the public calibration contract
	// but is persisted so a restart does not lose trend history.
	RecentOutcomes []bool `json:"recent_outcomes,omitempty"`
}

// NewCalibrationProfile returns a profile seeded with the uniform Beta(1,1)
// prior.
func NewCalibrationProfile(domain string) *CalibrationProfile {
	return &CalibrationProfile{
		Domain: domain,
		Alpha:  1,
		Beta:   1,
	}
}
