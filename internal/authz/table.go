package authz

// Grant is one (role, action, resource) triple as held by the grant store.
type Grant struct {
	Role     string
	Action   Action
	Resource Resource
}

type permission struct {
	action   Action
	resource Resource
}

// Table is an immutable role -> permission set lookup. Build it with Build.
type Table struct {
	grants map[string]map[permission]struct{}
	rows   int
}

// Build projects grant rows into a Table. Rows with an empty component are
// skipped. An Any grant also covers the matching Own action.
func Build(grants []Grant) *Table {
	t := &Table{grants: make(map[string]map[permission]struct{})}
	for _, g := range grants {
		role := normalizeRole(g.Role)
		if role == "" || g.Action == "" || g.Resource == "" {
			continue
		}
		set, ok := t.grants[role]
		if !ok {
			set = make(map[permission]struct{})
			t.grants[role] = set
		}
		set[permission{g.Action, g.Resource}] = struct{}{}
		if own, ok := g.Action.ownScope(); ok {
			set[permission{own, g.Resource}] = struct{}{}
		}
		t.rows++
	}
	return t
}

// Len is the number of grant rows the table was built from.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.rows
}

// Has reports whether role holds (action, resource). No bypass is applied.
func (t *Table) Has(role string, action Action, resource Resource) bool {
	if t == nil {
		return false
	}
	_, ok := t.grants[normalizeRole(role)][permission{action, resource}]
	return ok
}

// Allows decides for an ordered role set. super-admin is granted before any
// lookup; otherwise the first role holding the permission grants.
func (t *Table) Allows(roles []string, action Action, resource Resource) bool {
	for _, role := range roles {
		if normalizeRole(role) == RoleSuperAdmin {
			return true
		}
	}
	for _, role := range roles {
		if t.Has(role, action, resource) {
			return true
		}
	}
	return false
}
