package model

import "time"

// BillingCycle is monthly or yearly.
type BillingCycle string

const (
	Monthly BillingCycle = "monthly"
	Yearly  BillingCycle = "yearly"
	// Both is only valid as a campaign target.
	Both BillingCycle = "both"
)

// PricingPlan is an admin managed catalog entry.
type PricingPlan struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Tier         SubscriptionTier `json:"tier"`
	MonthlyPrice float64          `json:"monthlyPrice"`
	YearlyPrice  float64          `json:"yearlyPrice"`
	Features     []string         `json:"features,omitempty"`
	MaxProjects  int              `json:"maxProjects"`
	MaxTables    int              `json:"maxTables"`
	Active       bool             `json:"active"`
}

// Price returns the list price for the cycle.
func (p *PricingPlan) Price(cycle BillingCycle) float64 {
	if cycle == Yearly {
		return p.YearlyPrice
	}
	return p.MonthlyPrice
}

// DiscountType is how a campaign reduces the price.
type DiscountType string

const (
	DiscountPercentage  DiscountType = "percentage"
	DiscountFixedAmount DiscountType = "fixed_amount"
	DiscountFreeTrial   DiscountType = "free_trial"
)

// Campaign is a time bounded discount rule applicable to one or more plans.
type Campaign struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty"`
	DiscountType  DiscountType `json:"discountType"`
	DiscountValue float64      `json:"discountValue"`
	AppliesTo     BillingCycle `json:"appliesTo"`
	PlanIDs       []string     `json:"planIds,omitempty"`
	StartDate     *time.Time   `json:"startDate,omitempty"`
	EndDate       *time.Time   `json:"endDate,omitempty"`
	TrialDays     int          `json:"trialDays,omitempty"`
	Active        bool         `json:"active"`
}

// ComplianceReport is a read-only report shown to admins.
type ComplianceReport struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Status      string         `json:"status"`
	ProjectID   string         `json:"projectId,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	Findings    []string       `json:"findings,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// DetailedColumn is a backend column as reported by the debug endpoints.
type DetailedColumn struct {
	Name     string  `json:"name"`
	DataType string  `json:"dataType"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
}

// DetailedTable is a backend table as reported by /debug/tables-detailed.
type DetailedTable struct {
	Schema   string           `json:"schema"`
	Name     string           `json:"name"`
	RowCount int64            `json:"rowCount"`
	Columns  []DetailedColumn `json:"columns"`
}
