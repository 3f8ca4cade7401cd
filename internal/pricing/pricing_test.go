package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tablecraft/tablecraft/internal/model"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func plan() *model.PricingPlan {
	return &model.PricingPlan{ID: "pro", Name: "Pro", MonthlyPrice: 100, YearlyPrice: 1000, Active: true}
}

func campaign(dt model.DiscountType, value float64) *model.Campaign {
	return &model.Campaign{ID: "c1", Name: "promo", DiscountType: dt, DiscountValue: value, AppliesTo: model.Both, Active: true}
}

func TestPercentage(t *testing.T) {
	p := CalculatePriceWithCampaign(plan(), campaign(model.DiscountPercentage, 20), model.Monthly, now)
	assert.Equal(t, 100.0, p.OriginalPrice)
	assert.Equal(t, 80.0, p.FinalPrice)
	assert.Equal(t, 20.0, p.Discount)
	assert.True(t, p.HasDiscount)
	assert.NotNil(t, p.Campaign)
}

func TestFixedAmountCapped(t *testing.T) {
	p := CalculatePriceWithCampaign(plan(), campaign(model.DiscountFixedAmount, 30), model.Monthly, now)
	assert.Equal(t, 70.0, p.FinalPrice)
	assert.Equal(t, 30.0, p.Discount)

	p = CalculatePriceWithCampaign(plan(), campaign(model.DiscountFixedAmount, 250), model.Monthly, now)
	assert.Equal(t, 0.0, p.FinalPrice)
	assert.Equal(t, 100.0, p.Discount)
}

func TestFreeTrial(t *testing.T) {
	c := campaign(model.DiscountFreeTrial, 0)
	c.AppliesTo = model.Monthly
	c.TrialDays = 14
	p := CalculatePriceWithCampaign(plan(), c, model.Yearly, now)
	assert.Equal(t, 0.0, p.FinalPrice)
	assert.Equal(t, 1000.0, p.Discount)
	assert.True(t, p.HasDiscount)
}

func TestRounding(t *testing.T) {
	pl := &model.PricingPlan{ID: "x", MonthlyPrice: 9.99}
	p := CalculatePriceWithCampaign(pl, campaign(model.DiscountPercentage, 15), model.Monthly, now)
	assert.Equal(t, 1.5, p.Discount)
	assert.Equal(t, 8.49, p.FinalPrice)
}

func TestNotApplicable(t *testing.T) {
	inactive := campaign(model.DiscountPercentage, 20)
	inactive.Active = false

	expired := campaign(model.DiscountPercentage, 20)
	end := now.Add(-time.Hour)
	expired.EndDate = &end

	future := campaign(model.DiscountPercentage, 20)
	start := now.Add(time.Hour)
	future.StartDate = &start

	yearlyOnly := campaign(model.DiscountPercentage, 20)
	yearlyOnly.AppliesTo = model.Yearly

	otherPlan := campaign(model.DiscountPercentage, 20)
	otherPlan.PlanIDs = []string{"basic"}

	for name, c := range map[string]*model.Campaign{
		"nil":        nil,
		"inactive":   inactive,
		"expired":    expired,
		"future":     future,
		"cycle":      yearlyOnly,
		"other plan": otherPlan,
	} {
		p := CalculatePriceWithCampaign(plan(), c, model.Monthly, now)
		assert.False(t, p.HasDiscount, name)
		assert.Equal(t, 100.0, p.FinalPrice, name)
		assert.Equal(t, 0.0, p.Discount, name)
		assert.Nil(t, p.Campaign, name)
	}
}

func TestMatchingPlanID(t *testing.T) {
	c := campaign(model.DiscountPercentage, 10)
	c.PlanIDs = []string{"basic", "pro"}
	p := CalculatePriceWithCampaign(plan(), c, model.Yearly, now)
	assert.Equal(t, 900.0, p.FinalPrice)
}

func TestBestCampaign(t *testing.T) {
	small := campaign(model.DiscountPercentage, 10)
	big := campaign(model.DiscountFixedAmount, 25)
	big.ID = "c2"
	off := campaign(model.DiscountPercentage, 90)
	off.Active = false
	p := BestCampaign(plan(), []*model.Campaign{small, off, big}, model.Monthly, now)
	assert.Equal(t, "c2", p.Campaign.ID)
	assert.Equal(t, 75.0, p.FinalPrice)

	p = BestCampaign(plan(), nil, model.Monthly, now)
	assert.False(t, p.HasDiscount)
	assert.Equal(t, 100.0, p.FinalPrice)
}

func TestYearlySavings(t *testing.T) {
	assert.Equal(t, 200.0, YearlySavings(plan()))
	assert.Equal(t, 17, YearlySavingsPercent(plan()))
	assert.Equal(t, 0.0, YearlySavings(&model.PricingPlan{MonthlyPrice: 10, YearlyPrice: 200}))
	assert.Equal(t, 0, YearlySavingsPercent(&model.PricingPlan{}))
}
