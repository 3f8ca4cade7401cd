// Package pricing calculates plan prices with promotional campaigns applied.
package pricing

import (
	"math"
	"time"

	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/util"
)

// Price is the outcome of applying a campaign to a plan.
type Price struct {
	OriginalPrice float64         `json:"originalPrice"`
	FinalPrice    float64         `json:"finalPrice"`
	Discount      float64         `json:"discount"`
	HasDiscount   bool            `json:"hasDiscount"`
	Campaign      *model.Campaign `json:"campaign,omitempty"`
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}

// Applies returns true if the campaign can discount the plan for the cycle at now.
func Applies(plan *model.PricingPlan, campaign *model.Campaign, cycle model.BillingCycle, now time.Time) bool {
	if campaign == nil || !campaign.Active {
		return false
	}
	if campaign.StartDate != nil && now.Before(*campaign.StartDate) {
		return false
	}
	if campaign.EndDate != nil && now.After(*campaign.EndDate) {
		return false
	}
	if len(campaign.PlanIDs) > 0 && !util.SliceContains(campaign.PlanIDs, plan.ID) {
		return false
	}
	// a free trial is independent of the billing cycle
	if campaign.DiscountType == model.DiscountFreeTrial {
		return true
	}
	return campaign.AppliesTo == model.Both || campaign.AppliesTo == cycle
}

// CalculatePriceWithCampaign returns the price of the plan for the cycle with the campaign applied when it applies.
func CalculatePriceWithCampaign(plan *model.PricingPlan, campaign *model.Campaign, cycle model.BillingCycle, now time.Time) Price {
	original := round(plan.Price(cycle))
	price := Price{OriginalPrice: original, FinalPrice: original}
	if !Applies(plan, campaign, cycle, now) {
		return price
	}
	var discount float64
	switch campaign.DiscountType {
	case model.DiscountPercentage:
		discount = original * campaign.DiscountValue / 100
	case model.DiscountFixedAmount:
		discount = math.Min(campaign.DiscountValue, original)
	case model.DiscountFreeTrial:
		discount = original
	default:
		return price
	}
	discount = math.Max(0, math.Min(round(discount), original))
	if discount == 0 && campaign.DiscountType != model.DiscountFreeTrial {
		return price
	}
	price.Discount = discount
	price.FinalPrice = round(original - discount)
	price.HasDiscount = true
	price.Campaign = campaign
	return price
}

// BestCampaign returns the price using whichever campaign gives the largest discount. Ties keep the first campaign.
func BestCampaign(plan *model.PricingPlan, campaigns []*model.Campaign, cycle model.BillingCycle, now time.Time) Price {
	best := CalculatePriceWithCampaign(plan, nil, cycle, now)
	for _, c := range campaigns {
		p := CalculatePriceWithCampaign(plan, c, cycle, now)
		if p.HasDiscount && (!best.HasDiscount || p.Discount > best.Discount) {
			best = p
		}
	}
	return best
}

// YearlySavings returns how much paying yearly saves against twelve monthly payments, never negative.
func YearlySavings(plan *model.PricingPlan) float64 {
	return math.Max(0, round(plan.MonthlyPrice*12-plan.YearlyPrice))
}

// YearlySavingsPercent returns YearlySavings as a whole percentage of twelve monthly payments.
func YearlySavingsPercent(plan *model.PricingPlan) int {
	total := plan.MonthlyPrice * 12
	if total <= 0 {
		return 0
	}
	return int(math.Round(YearlySavings(plan) / total * 100))
}
