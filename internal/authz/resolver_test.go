package authz_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfqportal/internal/apperr"
	"rfqportal/internal/authz"
)

func TestResolveShapes(t *testing.T) {
	resolver := authz.NewResolver()

	cases := []struct {
		name string
		raw  any
		want []string
	}{
		{"single", "admin", []string{"admin"}},
		{"comma separated", "sales-person, admin", []string{"sales-person", "admin"}},
		{"json array text", `["user","admin"]`, []string{"user", "admin"}},
		{"string slice", []string{"admin", "user"}, []string{"admin", "user"}},
		{"any slice from jwt claims", []any{"user", 42, "sales-person"}, []string{"user", "sales-person"}},
		{"dedup keeps first seen", "admin,user,admin,USER", []string{"admin", "user"}},
		{"unknown dropped", "auditor, user", []string{"user"}},
		{"case and spaces", "  Super-Admin ", []string{"super-admin"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolver.Resolve(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveInvalid(t *testing.T) {
	resolver := authz.NewResolver()

	for _, raw := range []any{nil, "", " , ", "auditor", []string{}, []any{1, 2}, 17} {
		_, err := resolver.Resolve(raw)
		require.Error(t, err, "%v", raw)
		assert.True(t, errors.Is(err, apperr.ErrInvalidRole), "%v", raw)
	}
}

func TestResolveCustomKnownSet(t *testing.T) {
	resolver := authz.NewResolver("auditor")

	got, err := resolver.Resolve("auditor,admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"auditor"}, got)
}
