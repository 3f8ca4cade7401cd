package model

import (
	"fmt"
	"time"
)

// Permission is a single capability granted to an api key.
type Permission string

const (
	PermissionRead   Permission = "read"
	PermissionWrite  Permission = "write"
	PermissionDelete Permission = "delete"
	PermissionAdmin  Permission = "admin"
)

// ParsePermissions validates a list of permission names.
func ParsePermissions(vals []string) ([]Permission, error) {
	res := make([]Permission, 0, len(vals))
	for _, val := range vals {
		switch p := Permission(val); p {
		case PermissionRead, PermissionWrite, PermissionDelete, PermissionAdmin:
			res = append(res, p)
		default:
			return nil, fmt.Errorf("invalid permission: %s", val)
		}
	}
	return res, nil
}

// APIKey is a scoped key issued for a project. Its lifecycle is independent of the project's main key.
type APIKey struct {
	ID          string       `json:"id" msgpack:"id"`
	ProjectID   string       `json:"projectId,omitempty" msgpack:"projectId,omitempty"`
	Name        string       `json:"name" msgpack:"name"`
	Key         string       `json:"key" msgpack:"key"`
	Permissions []Permission `json:"permissions" msgpack:"permissions"`
	ExpiresAt   *time.Time   `json:"expiresAt,omitempty" msgpack:"expiresAt,omitempty"`
	UsageCount  int64        `json:"usageCount" msgpack:"usageCount"`
	LastUsedAt  *time.Time   `json:"lastUsedAt,omitempty" msgpack:"lastUsedAt,omitempty"`
	Active      bool         `json:"active" msgpack:"active"`
	CreatedAt   time.Time    `json:"createdAt" msgpack:"createdAt"`
}

// Has returns true if the key grants the permission. admin implies everything.
func (k *APIKey) Has(p Permission) bool {
	for _, perm := range k.Permissions {
		if perm == p || perm == PermissionAdmin {
			return true
		}
	}
	return false
}

// Expired returns true if the key has an expiry in the past relative to now.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && !k.ExpiresAt.After(now)
}

// Usable returns true if the key is active and not expired.
func (k *APIKey) Usable(now time.Time) bool {
	return k.Active && !k.Expired(now)
}

// MasterAdminKey is the system wide credential listed by the master admin endpoints.
type MasterAdminKey struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	KeyPrefix   string     `json:"keyPrefix"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`
	Description string     `json:"description,omitempty"`
}
