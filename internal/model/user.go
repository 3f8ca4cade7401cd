package model

import "time"

// SubscriptionTier is the plan a user is subscribed to.
type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierBasic      SubscriptionTier = "basic"
	TierPro        SubscriptionTier = "pro"
	TierEnterprise SubscriptionTier = "enterprise"
)

// User is the authenticated account.
type User struct {
	ID               string           `json:"id" msgpack:"id"`
	Email            string           `json:"email" msgpack:"email"`
	Name             string           `json:"name,omitempty" msgpack:"name,omitempty"`
	SubscriptionTier SubscriptionTier `json:"subscriptionTier" msgpack:"subscriptionTier"`
	MaxProjects      int              `json:"maxProjects" msgpack:"maxProjects"`
	MaxTables        int              `json:"maxTables" msgpack:"maxTables"`
	IsAdmin          bool             `json:"isAdmin" msgpack:"isAdmin"`
	CreatedAt        time.Time        `json:"createdAt" msgpack:"createdAt"`
}

// CanCreateProject returns true if a user owning count projects may add another. A negative quota is unlimited.
func (u *User) CanCreateProject(count int) bool {
	return u.MaxProjects < 0 || count < u.MaxProjects
}

// CanCreateTable returns true if a project holding count tables may add another for this user.
func (u *User) CanCreateTable(count int) bool {
	return u.MaxTables < 0 || count < u.MaxTables
}

// Tenant is a cross organization grouping managed by admins.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   string    `json:"ownerId,omitempty"`
	Plan      string    `json:"plan,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Organization groups users inside a tenant.
type Organization struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId,omitempty"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   string    `json:"ownerId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
