package model

import "strings"

// FundingStage labels how far along a company's fundraising is.
type FundingStage string

const (
	StagePreSeed FundingStage = "pre_seed"
	StageSeed    FundingStage = "seed"
	StageSeriesA FundingStage = "series_a"
	StageSeriesB FundingStage = "series_b"
	StageSeriesC FundingStage = "series_c"
	StageLater   FundingStage = "later"
	StageUnknown FundingStage = "unknown"
)

// ParseFundingStage maps upstream stage labels onto the domain enum.
func ParseFundingStage(s string) FundingStage {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PRE_SEED", "PRESEED", "ANGEL":
		return StagePreSeed
	case "SEED":
		return StageSeed
	case "SERIES_A", "SERIES A":
		return StageSeriesA
	case "SERIES_B", "SERIES B":
		return StageSeriesB
	case "SERIES_C", "SERIES C":
		return StageSeriesC
	case "SERIES_D", "SERIES_E", "SERIES_F", "GROWTH", "IPO", "LATE":
		return StageLater
	default:
		return StageUnknown
	}
}

// EmployeeBucket is an upstream employee-count enum mapped to a range.
// Max 0 means unbounded.
type EmployeeBucket struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

var employeeBuckets = map[string]EmployeeBucket{
	"SIZE_1_10":      {1, 10},
	"SIZE_11_50":     {11, 50},
	"SIZE_51_200":    {51, 200},
	"SIZE_201_500":   {201, 500},
	"SIZE_501_1000":  {501, 1000},
	"SIZE_1000_PLUS": {1001, 0},
}

// ParseEmployeeBucket resolves an upstream headcount enum. ok is false for
// unrecognized values.
func ParseEmployeeBucket(s string) (EmployeeBucket, bool) {
	b, ok := employeeBuckets[strings.ToUpper(strings.TrimSpace(s))]
	return b, ok
}

// Startup is an external company record after filtering and mapping.
type Startup struct {
	ID           string         `json:"id,omitempty"`
	Name         string         `json:"name"`
	Website      string         `json:"website,omitempty"`
	ProfileURL   string         `json:"profile_url"`
	Description  string         `json:"description,omitempty"`
	FundingTotal float64        `json:"funding_total"`
	FundingStage FundingStage   `json:"funding_stage"`
	FoundedYear  int            `json:"founded_year"`
	Employees    EmployeeBucket `json:"employees"`
	Industries   []string       `json:"industries,omitempty"`
	Locations    []string       `json:"locations,omitempty"`
}

// CompanyFilter is the hard filter applied before a company is synced.
type CompanyFilter struct {
	MinFunding     float64
	MinFoundedYear int
	MinEmployees   int
	MaxEmployees   int
	Stages         []FundingStage
}

// Match reports whether a startup passes the filter.
func (f CompanyFilter) Match(s Startup) bool {
	if s.FundingTotal < f.MinFunding {
		return false
	}
	if s.FoundedYear < f.MinFoundedYear {
		return false
	}
	if f.MinEmployees > 0 && s.Employees.Max > 0 && s.Employees.Max < f.MinEmployees {
		return false
	}
	if f.MaxEmployees > 0 && s.Employees.Min > f.MaxEmployees {
		return false
	}
	if len(f.Stages) > 0 {
		found := false
		for _, st := range f.Stages {
			if st == s.FundingStage {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
