package authz

import (
	"encoding/json"
	"fmt"
	"strings"

	"rfqportal/internal/apperr"
)

// Resolver normalises role claims into a deduplicated, ordered list of known roles.
type Resolver struct {
	known map[string]struct{}
}

// NewResolver accepts the given role names, or KnownRoles when none are passed.
func NewResolver(known ...string) *Resolver {
	if len(known) == 0 {
		known = KnownRoles
	}
	r := &Resolver{known: make(map[string]struct{}, len(known))}
	for _, k := range known {
		r.known[normalizeRole(k)] = struct{}{}
	}
	return r
}

// Resolve accepts a single role string, a comma-separated string, JSON array
// text, []string or []any. Unknown tokens are dropped; an empty result is an
// InvalidRole error.
func (r *Resolver) Resolve(raw any) ([]string, error) {
	tokens, err := tokenize(raw)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		role := normalizeRole(tok)
		if _, ok := r.known[role]; !ok {
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	if len(out) == 0 {
		return nil, apperr.New(apperr.KindInvalidRole, "no recognised role in %v", raw)
	}
	return out, nil
}

func tokenize(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, apperr.New(apperr.KindInvalidRole, "role claim is missing")
	case string:
		s := strings.TrimSpace(v)
		if strings.HasPrefix(s, "[") {
			var list []string
			if err := json.Unmarshal([]byte(s), &list); err == nil {
				return list, nil
			}
		}
		return strings.Split(s, ","), nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		return nil, apperr.New(apperr.KindInvalidRole, "unsupported role claim type %s", fmt.Sprintf("%T", raw))
	}
}
