package model

// MatchScore is a derived value, recomputed deterministically from its
// inputs. All components and the total are in [0,1].
type MatchScore struct {
	Total        float64 `json:"total"`
	Distance     float64 `json:"distance"`
	Interests    float64 `json:"interests"`
	Verification float64 `json:"verification"`
	Availability float64 `json:"availability"`
	Preferences  float64 `json:"preferences"`
	Age          float64 `json:"age"`
	Photo        float64 `json:"photo"`
}
