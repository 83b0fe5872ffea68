package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"rfqportal/internal/apperr"
	"rfqportal/internal/authz"
)

const dateLayout = "2006-01-02"

func parseID(raw, entity string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.KindInvalid, "invalid %s id %q", entity, raw)
	}
	return id, nil
}

func parseDate(raw, field string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, apperr.New(apperr.KindInvalid, "%s must be a date in YYYY-MM-DD format", field)
	}
	return d, nil
}

func parseOptionalDate(raw, field string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := parseDate(raw, field)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func requireActor(ctx context.Context) (authz.Actor, error) {
	actor, ok := authz.ActorFrom(ctx)
	if !ok {
		return authz.Actor{}, apperr.New(apperr.KindUnauthorized, "no authenticated actor")
	}
	return actor, nil
}

// dedupIDs keeps first-seen order.
func dedupIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
