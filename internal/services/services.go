// Package services wraps the api client with one type per backend resource.
package services

import (
	"context"
	"time"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tablecraft/tablecraft/internal/apiclient"
	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/schema"
	"github.com/tablecraft/tablecraft/internal/util"
)

const (
	DefaultCatalogTTL = 5 * time.Minute

	cacheExpiryCheck = time.Minute
)

type Config struct {
	Logger logger.Logger
	// CatalogTTL is how long plans and campaigns are cached
	CatalogTTL time.Duration
	// ImportConcurrency is the number of rows created in parallel by Rows.Import
	ImportConcurrency int
}

// Services groups every resource service over a single client.
type Services struct {
	Auth          *Auth
	Projects      *Projects
	Users         *Resource[model.User]
	Tenants       *Resource[model.Tenant]
	Organizations *Resource[model.Organization]
	APIKeys       *APIKeys
	Catalog       *Catalog
	Debug         *Debug
	Compliance    *Resource[model.ComplianceReport]
	Rows          *Rows

	catalogCache   *util.Cache[any]
	validatorCache *util.Cache[*schema.RowValidator]
}

// New returns the services for client.
func New(ctx context.Context, client *apiclient.Client, config Config) *Services {
	log := config.Logger
	if log == nil {
		log = logger.NewConsoleLogger(logger.LevelInfo)
	}
	log = log.WithPrefix("[services]")
	ttl := config.CatalogTTL
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	concurrency := config.ImportConcurrency
	if concurrency <= 0 {
		concurrency = DefaultImportConcurrency
	}
	s := &Services{
		Users:          newResource[model.User](client, "users"),
		Tenants:        newResource[model.Tenant](client, "tenants"),
		Organizations:  newResource[model.Organization](client, "organizations"),
		Compliance:     newResource[model.ComplianceReport](client, "compliance_reports"),
		catalogCache:   util.NewCache[any](ctx, cacheExpiryCheck),
		validatorCache: util.NewCache[*schema.RowValidator](ctx, cacheExpiryCheck),
	}
	s.Projects = &Projects{Resource: newResource[model.Project](client, "projects"), logger: log}
	s.APIKeys = &APIKeys{Resource: newResource[model.APIKey](client, "api_keys"), client: client}
	s.Catalog = &Catalog{
		plans:     newResource[model.PricingPlan](client, "pricing_plans"),
		campaigns: newResource[model.Campaign](client, "campaigns"),
		cache:     s.catalogCache,
		ttl:       ttl,
		now:       time.Now,
	}
	s.Debug = &Debug{client: client}
	s.Rows = &Rows{client: client, validators: s.validatorCache, logger: log, concurrency: concurrency}
	s.Auth = &Auth{client: client, projects: s.Projects, users: s.Users, logger: log}
	return s
}

// Close stops the background cache eviction.
func (s *Services) Close() error {
	s.catalogCache.Close()
	s.validatorCache.Close()
	return nil
}
