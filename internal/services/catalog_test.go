package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablecraft/tablecraft/internal/apiclient"
	"github.com/tablecraft/tablecraft/internal/model"
)

func seedCatalog(b *fakeBackend) {
	b.Seed("pricing_plans",
		map[string]any{"id": "basic", "name": "Basic", "tier": "basic", "monthlyPrice": 10, "yearlyPrice": 100, "active": true},
		map[string]any{"id": "pro", "name": "Pro", "tier": "pro", "monthlyPrice": 100, "yearlyPrice": 1000, "active": true},
		map[string]any{"id": "old", "name": "Old", "tier": "pro", "monthlyPrice": 1, "yearlyPrice": 1, "active": false},
	)
	b.Seed("campaigns",
		map[string]any{"id": "c1", "name": "Spring", "discountType": "percentage", "discountValue": 20, "appliesTo": "both", "active": true},
		map[string]any{"id": "c2", "name": "Yearly", "discountType": "fixed_amount", "discountValue": 300, "appliesTo": "yearly", "active": true},
	)
}

func TestCatalogCaches(t *testing.T) {
	backend, svc := newFakeBackend(t)
	seedCatalog(backend)
	ctx := context.Background()
	plans, err := svc.Catalog.Plans(ctx, true)
	require.NoError(t, err)
	assert.Len(t, plans, 2)
	_, err = svc.Catalog.Plans(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.Hits("GET", "/data/pricing_plans"))

	all, err := svc.Catalog.Plans(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 2, backend.Hits("GET", "/data/pricing_plans"))

	svc.Catalog.Invalidate()
	_, err = svc.Catalog.Plans(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 3, backend.Hits("GET", "/data/pricing_plans"))
}

func TestCatalogErrorsNotCached(t *testing.T) {
	backend, svc := newFakeBackend(t)
	backend.Fail("campaigns")
	_, err := svc.Catalog.Campaigns(context.Background(), false)
	assert.Equal(t, apiclient.KindServer, apiclient.KindOf(err))
	_, err = svc.Catalog.Campaigns(context.Background(), false)
	assert.Error(t, err)
	assert.Equal(t, 2, backend.Hits("GET", "/data/campaigns"))
}

func TestCatalogQuote(t *testing.T) {
	backend, svc := newFakeBackend(t)
	seedCatalog(backend)
	svc.Catalog.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	plan, price, err := svc.Catalog.Quote(ctx, "pro", model.Monthly)
	require.NoError(t, err)
	assert.Equal(t, "Pro", plan.Name)
	assert.Equal(t, 80.0, price.FinalPrice)
	assert.Equal(t, "c1", price.Campaign.ID)

	_, price, err = svc.Catalog.Quote(ctx, "Pro", model.Yearly)
	require.NoError(t, err)
	assert.Equal(t, 700.0, price.FinalPrice)
	assert.Equal(t, "c2", price.Campaign.ID)

	_, _, err = svc.Catalog.Quote(ctx, "enterprise", model.Monthly)
	assert.Equal(t, apiclient.KindNotFound, apiclient.KindOf(err))
}
