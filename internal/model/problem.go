package model

// ProblemCategory is the domain taxonomy for extracted problems.
type ProblemCategory string

const (
	CategoryTechnical   ProblemCategory = "technical"
	CategoryOperational ProblemCategory = "operational"
	CategoryMarket      ProblemCategory = "market"
	CategoryProduct     ProblemCategory = "product"
	CategoryScaling     ProblemCategory = "scaling"
	CategoryOther       ProblemCategory = "other"
)

// ParseCategory maps a model-reported category string onto the domain
// taxonomy. The model sometimes answers "business" for market problems.
func ParseCategory(s string) ProblemCategory {
	switch ProblemCategory(s) {
	case CategoryTechnical, CategoryOperational, CategoryMarket,
		CategoryProduct, CategoryScaling, CategoryOther:
		return ProblemCategory(s)
	}
	if s == "business" {
		return CategoryMarket
	}
	return CategoryOther
}

// Severity buckets a 1-10 severity score.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityFromScore buckets a 1-10 score: <=3 low, 4-5 medium, 6-8 high,
// 9-10 critical. Out-of-range scores clamp to the nearest bucket.
func SeverityFromScore(score int) Severity {
	switch {
	case score <= 3:
		return SeverityLow
	case score <= 5:
		return SeverityMedium
	case score <= 8:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// Evidence is one supporting excerpt for an extracted problem.
type Evidence struct {
	Source  string `json:"source"`
	Excerpt string `json:"excerpt"`
	URL     string `json:"url"`
}

// Problem is one candidate pain point extracted from search results. A
// problem carries a store ID only once the persist stage has created its
// record; downstream entities may only reference persisted problems.
type Problem struct {
	ID            string          `json:"id,omitempty"`
	Statement     string          `json:"statement"`
	Description   string          `json:"description"`
	Category      ProblemCategory `json:"category"`
	Severity      Severity        `json:"severity"`
	SeverityScore int             `json:"severity_score"`
	Frequency     int             `json:"frequency,omitempty"`
	Urgency       int             `json:"urgency,omitempty"`
	Confidence    float64         `json:"confidence"`
	Evidence      []Evidence      `json:"evidence,omitempty"`
	Tags          []string        `json:"tags,omitempty"`
	StartupID     string          `json:"startup_id,omitempty"`
	Embedding     []float32       `json:"-"`
}

// Persisted reports whether the problem has a store record.
func (p *Problem) Persisted() bool {
	return p.ID != ""
}
