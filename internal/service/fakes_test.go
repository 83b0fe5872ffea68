package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"rfqportal/internal/apperr"
	"rfqportal/internal/authz"
	"rfqportal/internal/model"
	"rfqportal/internal/repository"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// inlineTx runs fn without a database.
type inlineTx struct{}

func (inlineTx) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type txMarker struct{}

// countingTx marks the context it hands to fn so stubs can tell they ran
// inside a transaction.
type countingTx struct {
	calls int
}

func (c *countingTx) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	c.calls++
	return fn(context.WithValue(ctx, txMarker{}, true))
}

func inTx(ctx context.Context) bool {
	return ctx.Value(txMarker{}) != nil
}

type recordedAudit struct {
	action   string
	entityID string
	actor    uuid.UUID
	details  map[string]interface{}
}

type auditRecorder struct {
	AuditService
	mu      sync.Mutex
	entries []recordedAudit
}

func (a *auditRecorder) Record(ctx context.Context, action, entityID, _ string, details map[string]interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	entry := recordedAudit{action: action, entityID: entityID, details: details}
	if actor, ok := authz.ActorFrom(ctx); ok {
		entry.actor = actor.UserID
	}
	a.entries = append(a.entries, entry)
	return nil
}

type publishedEvent struct {
	kind    string
	payload interface{}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (e *eventRecorder) Publish(kind string, payload interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, publishedEvent{kind: kind, payload: payload})
}

// fallbackEngine is an engine serving the built-in grants.
func fallbackEngine() *authz.Engine {
	return authz.NewEngine(nil, quietLogger())
}

type stubRFQRepo struct {
	repository.RFQRepository
	rfqs     map[uuid.UUID]*model.RFQ
	prepared map[uuid.UUID][]uuid.UUID
	filter   repository.RFQFilter
}

func newStubRFQRepo(rfqs ...*model.RFQ) *stubRFQRepo {
	r := &stubRFQRepo{rfqs: map[uuid.UUID]*model.RFQ{}, prepared: map[uuid.UUID][]uuid.UUID{}}
	for _, rfq := range rfqs {
		r.rfqs[rfq.ID] = rfq
	}
	return r
}

func (r *stubRFQRepo) FindByID(_ context.Context, id uuid.UUID) (*model.RFQ, error) {
	rfq, ok := r.rfqs[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "rfq not found")
	}
	cp := *rfq
	for _, uid := range r.prepared[id] {
		cp.PreparedBy = append(cp.PreparedBy, model.User{ID: uid})
	}
	return &cp, nil
}

func (r *stubRFQRepo) Create(_ context.Context, rfq *model.RFQ) error {
	rfq.ID = uuid.New()
	cp := *rfq
	r.rfqs[rfq.ID] = &cp
	return nil
}

func (r *stubRFQRepo) Update(_ context.Context, rfq *model.RFQ) error {
	cp := *rfq
	r.rfqs[rfq.ID] = &cp
	return nil
}

func (r *stubRFQRepo) UpdateProgress(_ context.Context, id uuid.UUID, progress model.RFQProgress) error {
	rfq, ok := r.rfqs[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "rfq not found")
	}
	rfq.Progress = progress
	return nil
}

func (r *stubRFQRepo) ReplacePreparedPeople(_ context.Context, rfqID uuid.UUID, ids []uuid.UUID) error {
	r.prepared[rfqID] = append([]uuid.UUID(nil), ids...)
	return nil
}

func (r *stubRFQRepo) List(_ context.Context, filter repository.RFQFilter, _, _ int) ([]model.RFQ, int64, error) {
	r.filter = filter
	out := make([]model.RFQ, 0, len(r.rfqs))
	for _, rfq := range r.rfqs {
		out = append(out, *rfq)
	}
	return out, int64(len(out)), nil
}

type stubFunnelRepo struct {
	repository.SalesFunnelRepository
	rfqs    *stubRFQRepo
	funnels map[uuid.UUID]*model.SalesFunnel
}

func (r *stubFunnelRepo) Create(_ context.Context, f *model.SalesFunnel) error {
	f.ID = uuid.New()
	cp := *f
	r.funnels[f.ID] = &cp
	return nil
}

func (r *stubFunnelRepo) Update(_ context.Context, f *model.SalesFunnel) error {
	cp := *f
	r.funnels[f.ID] = &cp
	return nil
}

func (r *stubFunnelRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.SalesFunnel, error) {
	f, ok := r.funnels[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "sales funnel not found")
	}
	cp := *f
	if rfq, err := r.rfqs.FindByID(ctx, f.RFQID); err == nil {
		cp.RFQ = rfq
	}
	return &cp, nil
}
