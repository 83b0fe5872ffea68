package authz

import "sync"

// FallbackVersion identifies the built-in grant set. Bump it whenever the
// tiers below change.
const FallbackVersion = 1

type fallbackTier struct {
	role    string
	extends string
	grants  []permission
}

// Each tier inherits every grant of the tier it extends.
var fallbackTiers = []fallbackTier{
	{
		role: RoleUser,
		grants: []permission{
			{ActionReadOwn, ResourceUser},
			{ActionUpdateOwn, ResourceUser},
			{ActionReadOwn, ResourceRFQ},
			{ActionCreateOwn, ResourceRFQ},
			{ActionReadOwn, ResourceCustomer},
			{ActionReadOwn, ResourceSalesFunnel},
			{ActionReadOwn, ResourceInvoice},
		},
	},
	{
		role:    RoleSalesPerson,
		extends: RoleUser,
		grants: []permission{
			{ActionCreateAny, ResourceRFQ},
			{ActionReadAny, ResourceRFQ},
			{ActionUpdateAny, ResourceRFQ},
			{ActionCreateAny, ResourceCustomer},
			{ActionReadAny, ResourceCustomer},
			{ActionUpdateAny, ResourceCustomer},
			{ActionCreateAny, ResourceSalesFunnel},
			{ActionReadAny, ResourceSalesFunnel},
			{ActionUpdateAny, ResourceSalesFunnel},
			{ActionCreateAny, ResourceInvoice},
			{ActionReadAny, ResourceInvoice},
			{ActionUpdateAny, ResourceInvoice},
		},
	},
	{
		role:    RoleAdmin,
		extends: RoleSalesPerson,
		grants: []permission{
			{ActionReadAny, ResourceUser},
			{ActionUpdateAny, ResourceUser},
			{ActionDeleteAny, ResourceRFQ},
			{ActionDeleteAny, ResourceCustomer},
			{ActionDeleteAny, ResourceSalesFunnel},
			{ActionDeleteAny, ResourceInvoice},
			{ActionReadAny, ResourceAuditLog},
		},
	},
	{
		// Everything else for super-admin comes from the bypass.
		role:    RoleSuperAdmin,
		extends: RoleAdmin,
	},
}

var fallbackGrants = sync.OnceValue(func() []Grant {
	flat := make(map[string][]permission, len(fallbackTiers))
	var out []Grant
	for _, tier := range fallbackTiers {
		perms := append(append([]permission(nil), flat[tier.extends]...), tier.grants...)
		flat[tier.role] = perms
		for _, p := range perms {
			out = append(out, Grant{Role: tier.role, Action: p.action, Resource: p.resource})
		}
	}
	return out
})

// FallbackGrants returns the flattened built-in grant set used when the grant
// store is empty or unreadable. The returned slice is a copy.
func FallbackGrants() []Grant {
	return append([]Grant(nil), fallbackGrants()...)
}
