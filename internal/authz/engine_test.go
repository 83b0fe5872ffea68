package authz_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfqportal/internal/apperr"
	"rfqportal/internal/authz"
)

type stubSource struct {
	mu     sync.Mutex
	grants []authz.Grant
	err    error
	calls  int
}

func (s *stubSource) ListGrants(ctx context.Context) ([]authz.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]authz.Grant(nil), s.grants...), nil
}

func (s *stubSource) set(grants []authz.Grant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants = grants
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSuperAdminGrantedForEveryPair(t *testing.T) {
	engine := authz.NewEngine(nil, quietLogger())

	for _, a := range authz.Actions {
		for _, r := range append(authz.Resources, authz.Resource("not-yet-invented")) {
			assert.NoError(t, engine.Decide([]string{authz.RoleSuperAdmin}, a, r), "%s %s", a, r)
		}
	}
}

func TestSuperAdminBypassIgnoresStoreContents(t *testing.T) {
	src := &stubSource{grants: []authz.Grant{{Role: "user", Action: authz.ActionReadOwn, Resource: authz.ResourceRFQ}}}
	engine := authz.NewEngine(src, quietLogger())
	st := engine.Reload(context.Background())
	require.Equal(t, authz.OriginStore, st.Origin)

	assert.NoError(t, engine.Decide([]string{"user", authz.RoleSuperAdmin}, authz.ActionDeleteAny, authz.ResourceInvoice))
}

func TestEmptyRoleSetIsUnauthorized(t *testing.T) {
	src := &stubSource{grants: authz.FallbackGrants()}
	engine := authz.NewEngine(src, quietLogger())

	for _, reload := range []bool{false, true} {
		if reload {
			engine.Reload(context.Background())
		}
		for _, a := range authz.Actions {
			for _, r := range authz.Resources {
				err := engine.Decide(nil, a, r)
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
				assert.False(t, engine.Can([]string{}, a, r))
			}
		}
	}
}

func TestStoreFailureFallsBack(t *testing.T) {
	src := &stubSource{err: errors.New("connection refused")}
	engine := authz.NewEngine(src, quietLogger())

	st := engine.Reload(context.Background())

	assert.Equal(t, authz.OriginFallback, st.Origin)
	assert.Equal(t, "connection refused", st.LoadError)
	assert.NoError(t, engine.Decide([]string{"user"}, authz.ActionReadOwn, authz.ResourceRFQ))
	assert.Error(t, engine.Decide([]string{"user"}, authz.ActionDeleteAny, authz.ResourceRFQ))
}

func TestEmptyStoreFallsBack(t *testing.T) {
	engine := authz.NewEngine(&stubSource{}, quietLogger())

	st := engine.Reload(context.Background())

	assert.Equal(t, authz.OriginFallback, st.Origin)
	assert.Empty(t, st.LoadError)
	assert.True(t, engine.Can([]string{"user"}, authz.ActionReadOwn, authz.ResourceRFQ))
}

func TestFallbackHierarchyIsCumulative(t *testing.T) {
	engine := authz.NewEngine(nil, quietLogger())

	cases := []struct {
		role     string
		action   authz.Action
		resource authz.Resource
		want     bool
	}{
		{"user", authz.ActionCreateOwn, authz.ResourceRFQ, true},
		{"user", authz.ActionCreateAny, authz.ResourceRFQ, false},
		{"sales-person", authz.ActionReadOwn, authz.ResourceRFQ, true},
		{"sales-person", authz.ActionCreateAny, authz.ResourceSalesFunnel, true},
		{"sales-person", authz.ActionDeleteAny, authz.ResourceRFQ, false},
		{"admin", authz.ActionUpdateOwn, authz.ResourceUser, true},
		{"admin", authz.ActionDeleteAny, authz.ResourceInvoice, true},
		{"admin", authz.ActionDeleteAny, authz.ResourceUser, false},
		{"admin", authz.ActionUpdateAny, authz.ResourceRole, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, engine.Can([]string{tc.role}, tc.action, tc.resource), "%s %s %s", tc.role, tc.action, tc.resource)
	}
}

func TestAnyGrantCoversOwn(t *testing.T) {
	table := authz.Build([]authz.Grant{{Role: "sales-person", Action: authz.ActionCreateAny, Resource: authz.ResourceSalesFunnel}})

	assert.True(t, table.Has("sales-person", authz.ActionCreateOwn, authz.ResourceSalesFunnel))
	assert.False(t, table.Has("sales-person", authz.ActionReadOwn, authz.ResourceSalesFunnel))
}

func TestBuildSkipsIncompleteRowsAndNormalisesRoles(t *testing.T) {
	table := authz.Build([]authz.Grant{
		{Role: "", Action: authz.ActionReadAny, Resource: authz.ResourceRFQ},
		{Role: "user", Action: "", Resource: authz.ResourceRFQ},
		{Role: "user", Action: authz.ActionReadAny, Resource: ""},
		{Role: " Admin ", Action: authz.ActionReadAny, Resource: authz.ResourceRFQ},
	})

	assert.Equal(t, 1, table.Len())
	assert.True(t, table.Has("admin", authz.ActionReadAny, authz.ResourceRFQ))
}

func TestDecisionUsesAnyRoleInSet(t *testing.T) {
	engine := authz.NewEngine(nil, quietLogger())

	assert.NoError(t, engine.Decide([]string{"user", "admin"}, authz.ActionDeleteAny, authz.ResourceCustomer))
	err := engine.Decide([]string{"user", "sales-person"}, authz.ActionDeleteAny, authz.ResourceCustomer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user,sales-person cannot deleteAny on customer")
}

func TestBuildIsIdempotent(t *testing.T) {
	grants := append(authz.FallbackGrants(), authz.Grant{Role: "user", Action: authz.ActionReadAny, Resource: authz.ResourceInvoice})
	first := authz.Build(grants)
	second := authz.Build(grants)

	roleSets := [][]string{{"user"}, {"sales-person"}, {"admin"}, {"user", "admin"}, {"ghost"}}
	for _, roles := range roleSets {
		for _, a := range authz.Actions {
			for _, r := range authz.Resources {
				assert.Equal(t, first.Allows(roles, a, r), second.Allows(roles, a, r))
			}
		}
	}
	assert.Equal(t, first.Len(), second.Len())
}

func TestReloadSwapsAtomicallyUnderConcurrentDecisions(t *testing.T) {
	onlyStore := []authz.Grant{{Role: "user", Action: authz.ActionReadAny, Resource: authz.ResourceInvoice}}
	src := &stubSource{grants: onlyStore}
	engine := authz.NewEngine(src, quietLogger())

	var (
		wg   sync.WaitGroup
		torn atomic.Bool
	)
	stop := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				// Fallback grants readOwn rfq but not readAny invoice; the store
				// grants the reverse. One snapshot never holds both or neither.
				perms := engine.PermissionsFor([]string{"user"})
				fallback := slices.Contains(perms, "readOwn:rfq")
				store := slices.Contains(perms, "readAny:invoice")
				if fallback == store {
					torn.Store(true)
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			src.set(onlyStore)
		} else {
			src.set(nil)
		}
		engine.Reload(context.Background())
	}
	close(stop)
	wg.Wait()

	assert.False(t, torn.Load())
	assert.Equal(t, uint64(51), engine.Status().Version)
}

func TestReloadHookAndVersion(t *testing.T) {
	var seen []authz.Status
	src := &stubSource{grants: authz.FallbackGrants()}
	engine := authz.NewEngine(src, quietLogger(), authz.WithReloadHook(func(st authz.Status) {
		seen = append(seen, st)
	}))

	require.Equal(t, uint64(1), engine.Status().Version)
	engine.Reload(context.Background())
	engine.Reload(context.Background())

	require.Len(t, seen, 2)
	assert.Equal(t, uint64(3), seen[1].Version)
	assert.Equal(t, authz.OriginStore, seen[1].Origin)
	assert.Equal(t, 2, src.calls)
}

func TestPermissionsFor(t *testing.T) {
	engine := authz.NewEngine(nil, quietLogger())

	perms := engine.PermissionsFor([]string{"user"})
	assert.Contains(t, perms, "readOwn:rfq")
	assert.NotContains(t, perms, "readAny:rfq")

	all := engine.PermissionsFor([]string{authz.RoleSuperAdmin})
	assert.Len(t, all, len(authz.Actions)*len(authz.Resources))
	assert.Empty(t, engine.PermissionsFor(nil))
}

func TestRoleLookupIgnoresCaseAndSpace(t *testing.T) {
	engine := authz.NewEngine(nil, quietLogger())

	assert.True(t, engine.Can([]string{"Admin"}, authz.ActionUpdateAny, authz.ResourceUser))
	assert.True(t, engine.Can([]string{" SUPER-ADMIN "}, authz.ActionUpdateAny, authz.ResourceUser))
	assert.False(t, engine.Can([]string{"User"}, authz.ActionUpdateAny, authz.ResourceUser))
}

func TestRank(t *testing.T) {
	assert.Equal(t, 0, authz.Rank(nil))
	assert.Equal(t, 0, authz.Rank([]string{"wizard"}))
	assert.Equal(t, 1, authz.Rank([]string{"user"}))
	assert.Equal(t, 3, authz.Rank([]string{"user", " Admin ", "sales-person"}))
	assert.Equal(t, 4, authz.Rank([]string{"Super-Admin", "user"}))
}
