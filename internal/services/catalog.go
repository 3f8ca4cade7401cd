package services

import (
	"context"
	"time"

	"github.com/tablecraft/tablecraft/internal/apiclient"
	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/pricing"
	"github.com/tablecraft/tablecraft/internal/query"
	"github.com/tablecraft/tablecraft/internal/util"
)

// Catalog reads pricing plans and campaigns. Both change rarely so reads are cached.
type Catalog struct {
	plans     *Resource[model.PricingPlan]
	campaigns *Resource[model.Campaign]
	cache     *util.Cache[any]
	ttl       time.Duration
	now       func() time.Time
}

func listAll[T any](ctx context.Context, cache *util.Cache[any], ttl time.Duration, r *Resource[T], activeOnly bool) ([]*T, error) {
	params := &query.Params{Sort: []query.Sort{{Field: "name"}}}
	if activeOnly {
		params.Filters = []query.Filter{{Field: "active", Op: query.Eq, Value: true}}
	}
	val, err := cache.GetOrLoad(util.Hash(r.Name(), query.Encode(params.Map())), ttl, func() (any, error) {
		res, err := r.List(ctx, params)
		if err != nil {
			return nil, err
		}
		return res.Items, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]*T), nil
}

// Plans returns the pricing plans.
func (c *Catalog) Plans(ctx context.Context, activeOnly bool) ([]*model.PricingPlan, error) {
	return listAll(ctx, c.cache, c.ttl, c.plans, activeOnly)
}

// Campaigns returns the campaigns.
func (c *Catalog) Campaigns(ctx context.Context, activeOnly bool) ([]*model.Campaign, error) {
	return listAll(ctx, c.cache, c.ttl, c.campaigns, activeOnly)
}

// Invalidate drops the cached catalog.
func (c *Catalog) Invalidate() {
	c.cache.Purge()
}

// Quote returns the best price for the plan and cycle using the active campaigns.
func (c *Catalog) Quote(ctx context.Context, planID string, cycle model.BillingCycle) (*model.PricingPlan, pricing.Price, error) {
	plans, err := c.Plans(ctx, true)
	if err != nil {
		return nil, pricing.Price{}, err
	}
	var plan *model.PricingPlan
	for _, p := range plans {
		if p.ID == planID || p.Name == planID || string(p.Tier) == planID {
			plan = p
			break
		}
	}
	if plan == nil {
		return nil, pricing.Price{}, &apiclient.NotFoundError{APIError: apiclient.APIError{Status: 404, Message: "plan " + planID}}
	}
	campaigns, err := c.Campaigns(ctx, true)
	if err != nil {
		return nil, pricing.Price{}, err
	}
	return plan, pricing.BestCampaign(plan, campaigns, cycle, c.now()), nil
}
