package authz

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"rfqportal/internal/apperr"
)

// GrantSource reads every (role, action, resource) triple from durable storage.
type GrantSource interface {
	ListGrants(ctx context.Context) ([]Grant, error)
}

// Origin says where the active grant table came from.
type Origin string

const (
	OriginStore    Origin = "store"
	OriginFallback Origin = "fallback"
)

// Status describes the installed snapshot.
type Status struct {
	Origin          Origin    `json:"origin"`
	Version         uint64    `json:"version"`
	Grants          int       `json:"grants"`
	BuiltAt         time.Time `json:"built_at"`
	FallbackVersion int       `json:"fallback_version"`
	LoadError       string    `json:"load_error,omitempty"`
}

type snapshot struct {
	table  *Table
	status Status
}

// Option configures an Engine.
type Option func(*Engine)

// WithReloadHook registers fn to run after every installed rebuild.
func WithReloadHook(fn func(Status)) Option {
	return func(e *Engine) {
		e.hooks = append(e.hooks, fn)
	}
}

// WithClock overrides the time source used for BuiltAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine answers authorization decisions against an immutable snapshot that
// is replaced wholesale on Reload.
type Engine struct {
	source  GrantSource
	logger  *slog.Logger
	now     func() time.Time
	hooks   []func(Status)
	current atomic.Pointer[snapshot]

	mu      sync.Mutex // serialises rebuilds
	version uint64
}

// NewEngine returns an engine serving the fallback grant set until the first Reload.
func NewEngine(source GrantSource, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{source: source, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	e.mu.Lock()
	e.install(FallbackGrants(), OriginFallback, "")
	e.mu.Unlock()
	return e
}

// Reload rebuilds the table from the grant source. A failed or empty read
// installs the fallback grants instead; the failure is logged, never returned.
func (e *Engine) Reload(ctx context.Context) Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		grants  []Grant
		loadErr error
	)
	if e.source != nil {
		grants, loadErr = e.source.ListGrants(ctx)
	}

	var st Status
	switch {
	case loadErr != nil:
		e.logger.Error("grant store read failed, using fallback grants",
			slog.Any("error", loadErr), slog.Int("fallback_version", FallbackVersion))
		st = e.install(FallbackGrants(), OriginFallback, loadErr.Error())
	case len(grants) == 0:
		e.logger.Warn("grant store is empty, using fallback grants", slog.Int("fallback_version", FallbackVersion))
		st = e.install(FallbackGrants(), OriginFallback, "")
	default:
		st = e.install(grants, OriginStore, "")
		e.logger.Info("grants loaded from store", slog.Int("grants", st.Grants), slog.Uint64("version", st.Version))
	}

	for _, hook := range e.hooks {
		hook(st)
	}
	return st
}

// install must be called with e.mu held.
func (e *Engine) install(grants []Grant, origin Origin, loadErr string) Status {
	e.version++
	table := Build(grants)
	st := Status{
		Origin:          origin,
		Version:         e.version,
		Grants:          table.Len(),
		BuiltAt:         e.now(),
		FallbackVersion: FallbackVersion,
		LoadError:       loadErr,
	}
	e.current.Store(&snapshot{table: table, status: st})
	return st
}

// Status reports the active snapshot.
func (e *Engine) Status() Status {
	return e.current.Load().status
}

// Decide returns nil when any of roles may perform action on resource, and an
// Unauthorized error otherwise. An empty role set is always denied.
func (e *Engine) Decide(roles []string, action Action, resource Resource) error {
	if len(roles) == 0 {
		return apperr.New(apperr.KindUnauthorized, "no roles presented")
	}
	if e.current.Load().table.Allows(roles, action, resource) {
		return nil
	}
	return apperr.New(apperr.KindUnauthorized, "forbidden: %s cannot %s on %s",
		strings.Join(roles, ","), action, resource)
}

// Can is Decide as a boolean.
func (e *Engine) Can(roles []string, action Action, resource Resource) bool {
	return e.Decide(roles, action, resource) == nil
}

// PermissionsFor lists every (action, resource) the roles hold, in catalogue
// order. super-admin receives the full catalogue.
func (e *Engine) PermissionsFor(roles []string) []string {
	table := e.current.Load().table
	var out []string
	for _, r := range Resources {
		for _, a := range Actions {
			if len(roles) > 0 && table.Allows(roles, a, r) {
				out = append(out, string(a)+":"+string(r))
			}
		}
	}
	return out
}
