package authz

import "strings"

// Action is a verb with own/any scope.
type Action string

const (
	ActionCreateOwn Action = "createOwn"
	ActionCreateAny Action = "createAny"
	ActionReadOwn   Action = "readOwn"
	ActionReadAny   Action = "readAny"
	ActionUpdateOwn Action = "updateOwn"
	ActionUpdateAny Action = "updateAny"
	ActionDeleteOwn Action = "deleteOwn"
	ActionDeleteAny Action = "deleteAny"
)

// Actions is the closed set of actions, in catalogue order.
var Actions = []Action{
	ActionCreateOwn, ActionCreateAny,
	ActionReadOwn, ActionReadAny,
	ActionUpdateOwn, ActionUpdateAny,
	ActionDeleteOwn, ActionDeleteAny,
}

// Valid reports whether a is part of the closed action set.
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// ownScope returns the Own counterpart of an Any action. A grant on "any"
// always covers the actor's own records too.
func (a Action) ownScope() (Action, bool) {
	s := string(a)
	if !strings.HasSuffix(s, "Any") {
		return "", false
	}
	return Action(strings.TrimSuffix(s, "Any") + "Own"), true
}

// Resource is a domain noun permissions are granted on.
type Resource string

const (
	ResourceRFQ         Resource = "rfq"
	ResourceCustomer    Resource = "customer"
	ResourceSalesFunnel Resource = "sales-funnel"
	ResourceInvoice     Resource = "invoice"
	ResourceUser        Resource = "user"
	ResourceRole        Resource = "role"
	ResourceAuditLog    Resource = "audit-log"
)

// Resources is the closed set of resources, in catalogue order.
var Resources = []Resource{
	ResourceRFQ, ResourceCustomer, ResourceSalesFunnel, ResourceInvoice,
	ResourceUser, ResourceRole, ResourceAuditLog,
}

// Valid reports whether r is part of the closed resource set.
func (r Resource) Valid() bool {
	for _, known := range Resources {
		if r == known {
			return true
		}
	}
	return false
}

// Built-in role names.
const (
	RoleUser        = "user"
	RoleSalesPerson = "sales-person"
	RoleAdmin       = "admin"
	RoleSuperAdmin  = "super-admin"
)

// KnownRoles lists the roles this binary enforces, least privileged first.
var KnownRoles = []string{RoleUser, RoleSalesPerson, RoleAdmin, RoleSuperAdmin}

// Rank is the position of the strongest known role in KnownRoles, counted
// from one. Unknown names rank zero.
func Rank(roles []string) int {
	best := 0
	for _, role := range roles {
		role = normalizeRole(role)
		for i, known := range KnownRoles {
			if role == known && i+1 > best {
				best = i + 1
			}
		}
	}
	return best
}

func normalizeRole(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
