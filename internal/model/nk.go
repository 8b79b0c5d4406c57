package model

// Severity levels shared by NegativeKnowledge and validator warnings.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// severityRank orders severities for sorting (high first).
var severityRank = map[string]int{
	SeverityHigh:     0,
	SeverityMedium:   1,
	SeverityLow:      2,
	SeverityCritical: -1, // outranks high; only used on NK records, not warnings
}

// SeverityLess reports whether severity a sorts before severity b (more
// severe first).
func SeverityLess(a, b string) bool {
	return severityRank[a] < severityRank[b]
}

// NegativeKnowledge is a learned-not-to-do entry.
type NegativeKnowledge struct {
	Namespace

	ID              string  `json:"id"` // prefix nk_
	Hypothesis      string  `json:"hypothesis"`
	Conclusion      string  `json:"conclusion"`
	Evidence        string  `json:"evidence,omitempty"`
	Domain          string  `json:"domain"`
	Severity        string  `json:"severity"`
	DiscoveredAt    int64   `json:"discovered_at"`
	ExpiresAt       *int64  `json:"expires_at,omitempty"`
	BlocksPattern   string  `json:"blocks_pattern,omitempty"`
	Recommendation  string  `json:"recommendation,omitempty"`
	Source          string  `json:"source,omitempty"`
	MemoryType      string  `json:"memory_type,omitempty"`
	TTLDays         int     `json:"ttl_days,omitempty"`
	IsActive        bool    `json:"is_active"`
	DeprecatedReason string `json:"deprecated_reason,omitempty"`
}

// AntiPattern is a reusable detection rule. It holds only the pattern
// string; planvalidator.Validator compiles it on first use and caches the
// compiled regex for the Validator's lifetime.
type AntiPattern struct {
	Namespace

	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Category         string   `json:"category"`
	Severity         string   `json:"severity"`
	ReposAffected    []string `json:"repos_affected,omitempty"`
	OccurrenceCount  int      `json:"occurrence_count"`
	RemovalRate      float64  `json:"removal_rate"` // 0..1
	AvgDaysToRemoval float64  `json:"avg_days_to_removal"`
	Keywords         []string `json:"keywords,omitempty"`
	RegexPattern     string   `json:"regex_pattern"`
	ExampleBad       string   `json:"example_bad,omitempty"`
	ExampleGood      string   `json:"example_good,omitempty"`
	FirstSeen        int64    `json:"first_seen"`
	Recommendation   string   `json:"recommendation,omitempty"`
}

// RemovalSeverity maps an AntiPattern's removal rate to a warning severity
// per the plan validator's fixed thresholds.
func RemovalSeverity(removalRate float64) string {
	switch {
	case removalRate > 0.70:
		return SeverityHigh
	case removalRate > 0.50:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
