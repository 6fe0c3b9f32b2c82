// Package identity is the boundary to the identity/authorization
// collaborator. The engine only needs to know who the actor is and which
// users may lend provider credentials within a tenant.
package identity

import "context"

const RoleAdmin = "admin"

// Identity is the per-request actor supplied by the collaborator.
type Identity struct {
	UserID   string
	Role     string
	TenantID string
}

// AdminResolver names the users whose provider connections may back
// meeting and calendar calls for a tenant. Injected explicitly so there
// is no hidden shared-admin assumption.
type AdminResolver interface {
	Admins(ctx context.Context, tenantID string) ([]string, error)
}

// StaticResolver serves a fixed admin set per tenant, for deployments
// where the identity service is configured out of band.
type StaticResolver struct {
	byTenant map[string][]string
}

func NewStaticResolver(byTenant map[string][]string) *StaticResolver {
	if byTenant == nil {
		byTenant = make(map[string][]string)
	}
	return &StaticResolver{byTenant: byTenant}
}

func (r *StaticResolver) Admins(ctx context.Context, tenantID string) ([]string, error) {
	return r.byTenant[tenantID], nil
}

// FixedResolver returns the same admin set for every tenant.
type FixedResolver []string

func (r FixedResolver) Admins(ctx context.Context, tenantID string) ([]string, error) {
	return r, nil
}
