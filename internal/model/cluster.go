package model

// ProblemCluster groups semantically related problems. Members index into
// the extracted problem collection as it stood when clustering ran; the
// persist stage resolves them to store IDs.
type ProblemCluster struct {
	ID            string   `json:"id,omitempty"`
	Theme         string   `json:"theme"`
	Description   string   `json:"description"`
	Members       []int    `json:"members"`
	Size          int      `json:"size"`
	Industries    []string `json:"industries,omitempty"`
	FundingStages []string `json:"funding_stages,omitempty"`
	GrowthRate    float64  `json:"growth_rate"`
}
