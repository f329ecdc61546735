package models

import "time"

// CleanupAction proposes deleting one resource. EstimatedSavings is the
// resource's monthly cost in USD.
type CleanupAction struct {
	Resource         Resource  `json:"resource"`
	Reason           string    `json:"reason"`
	EstimatedSavings float64   `json:"estimated_savings_usd"`
	ProposedAt       time.Time `json:"proposed_at"`
}

// TotalSavings sums estimated savings across a batch.
func TotalSavings(actions []CleanupAction) float64 {
	var total float64
	for i := range actions {
		total += actions[i].EstimatedSavings
	}
	return total
}
