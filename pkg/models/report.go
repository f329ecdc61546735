package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AlertSeverity string

const (
	AlertWarning  AlertSeverity = "warning"
	AlertCritical AlertSeverity = "critical"
)

// ServiceCost is one service's spend inside a cost report period.
type ServiceCost struct {
	Service string          `json:"service"`
	Amount  decimal.Decimal `json:"amount"`
}

// BudgetAlert flags spend against a configured budget threshold.
type BudgetAlert struct {
	Severity AlertSeverity   `json:"severity"`
	Message  string          `json:"message"`
	Budget   decimal.Decimal `json:"budget"`
	Actual   decimal.Decimal `json:"actual"`
}

// CostReport aggregates provider spend over a date range. Money is
// decimal throughout; float sums drift.
type CostReport struct {
	Provider    CloudProvider   `json:"provider"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	Currency    string          `json:"currency"`
	Services    []ServiceCost   `json:"services"`
	Alerts      []BudgetAlert   `json:"alerts,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
}
