package authz

import (
	"fmt"
	"strings"

	"rfqportal/internal/apperr"
	"rfqportal/internal/model"
)

// Decider is the slice of Engine the gate depends on.
type Decider interface {
	Decide(roles []string, action Action, resource Resource) error
}

// GatePolicy configures the sales funnel creation rule.
type GatePolicy struct {
	// ExemptRoles skip the progress check, provided the role itself holds
	// createAny on sales-funnel.
	ExemptRoles []string
	// AllowedProgress lists RFQ states a funnel may be opened from.
	AllowedProgress []model.RFQProgress
}

// DefaultGatePolicy exempts admin and super-admin and allows the two
// hand-off states.
func DefaultGatePolicy() GatePolicy {
	return GatePolicy{
		ExemptRoles:     []string{RoleAdmin, RoleSuperAdmin},
		AllowedProgress: []model.RFQProgress{model.ProgressSentToSalesperson, model.ProgressSentToCustomer},
	}
}

// Gate enforces that sales funnels are only opened for RFQs that reached a
// hand-off state.
type Gate struct {
	decider Decider
	policy  GatePolicy
	exempt  map[string]struct{}
	allowed map[model.RFQProgress]struct{}
}

// NewGate builds a gate. An empty AllowedProgress falls back to the default states.
func NewGate(decider Decider, policy GatePolicy) *Gate {
	if len(policy.AllowedProgress) == 0 {
		policy.AllowedProgress = DefaultGatePolicy().AllowedProgress
	}
	g := &Gate{
		decider: decider,
		policy:  policy,
		exempt:  make(map[string]struct{}, len(policy.ExemptRoles)),
		allowed: make(map[model.RFQProgress]struct{}, len(policy.AllowedProgress)),
	}
	for _, r := range policy.ExemptRoles {
		if r = normalizeRole(r); r != "" {
			g.exempt[r] = struct{}{}
		}
	}
	for _, p := range policy.AllowedProgress {
		g.allowed[p] = struct{}{}
	}
	return g
}

// Policy returns the active policy.
func (g *Gate) Policy() GatePolicy {
	return g.policy
}

// CanCreateSalesFunnel checks baseline permission first, then the RFQ progress
// rule. Baseline failures are Unauthorized; progress failures are
// WorkflowGateDenied and name the state and the exemption set.
func (g *Gate) CanCreateSalesFunnel(roles []string, progress model.RFQProgress) error {
	if err := g.baseline(roles); err != nil {
		return err
	}

	for _, role := range roles {
		role = normalizeRole(role)
		if _, ok := g.exempt[role]; !ok {
			continue
		}
		if g.decider.Decide([]string{role}, ActionCreateAny, ResourceSalesFunnel) == nil {
			return nil
		}
	}

	if _, ok := g.allowed[progress]; ok {
		return nil
	}

	return apperr.New(apperr.KindWorkflowGateDenied,
		"cannot create sales funnel: RFQ progress is %q but must be one of %s, and none of the roles [%s] is exempt (exempt roles: [%s])",
		progress, quoteProgress(g.policy.AllowedProgress), strings.Join(roles, ", "), strings.Join(g.policy.ExemptRoles, ", "))
}

func (g *Gate) baseline(roles []string) error {
	anyErr := g.decider.Decide(roles, ActionCreateAny, ResourceSalesFunnel)
	if anyErr == nil {
		return nil
	}
	if g.decider.Decide(roles, ActionCreateOwn, ResourceSalesFunnel) == nil {
		return nil
	}
	return anyErr
}

func quoteProgress(states []model.RFQProgress) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(parts, " or ")
}
