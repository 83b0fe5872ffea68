package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfqportal/internal/apperr"
	"rfqportal/internal/authz"
	"rfqportal/internal/model"
)

type funnelFixture struct {
	svc     SalesFunnelService
	rfqs    *stubRFQRepo
	funnels *stubFunnelRepo
	audit   *auditRecorder
	events  *eventRecorder
}

func newFunnelFixture(policy authz.GatePolicy, rfqs ...*model.RFQ) *funnelFixture {
	engine := fallbackEngine()
	f := &funnelFixture{
		rfqs:   newStubRFQRepo(rfqs...),
		audit:  &auditRecorder{},
		events: &eventRecorder{},
	}
	f.funnels = &stubFunnelRepo{rfqs: f.rfqs, funnels: map[uuid.UUID]*model.SalesFunnel{}}
	f.svc = NewSalesFunnelService(f.funnels, f.rfqs, authz.NewGate(engine, policy), engine,
		f.audit, inlineTx{}, f.events, quietLogger())
	return f
}

func rfqAt(progress model.RFQProgress) *model.RFQ {
	return &model.RFQ{ID: uuid.New(), Progress: progress}
}

func actorCtx(roles ...string) (context.Context, uuid.UUID) {
	id := uuid.New()
	return authz.WithActor(context.Background(), authz.Actor{UserID: id, Roles: roles}), id
}

func funnelRequest(rfqID, sentBy uuid.UUID) CreateSalesFunnelRequest {
	return CreateSalesFunnelRequest{
		RFQID:      rfqID.String(),
		QuoteDate:  "2026-03-01",
		SentBy:     sentBy.String(),
		ExpWinDate: "2026-04-01",
	}
}

func TestCreateSalesFunnel_GateDeniesEarlyProgress(t *testing.T) {
	rfq := rfqAt(model.ProgressWaitingForVendorQuotation)
	f := newFunnelFixture(authz.DefaultGatePolicy(), rfq)
	ctx, me := actorCtx(authz.RoleSalesPerson)

	_, err := f.svc.CreateSalesFunnel(ctx, funnelRequest(rfq.ID, me))

	require.Error(t, err)
	assert.Equal(t, apperr.KindWorkflowGateDenied, apperr.KindOf(err))
	assert.Contains(t, err.Error(), string(model.ProgressWaitingForVendorQuotation))
	assert.Empty(t, f.funnels.funnels, "nothing may be written when the gate refuses")
	assert.Empty(t, f.audit.entries)
	assert.Empty(t, f.events.events)
}

func TestCreateSalesFunnel_AllowedProgressCreates(t *testing.T) {
	rfq := rfqAt(model.ProgressSentToSalesperson)
	f := newFunnelFixture(authz.DefaultGatePolicy(), rfq)
	ctx, me := actorCtx(authz.RoleSalesPerson)

	resp, err := f.svc.CreateSalesFunnel(ctx, funnelRequest(rfq.ID, me))

	require.NoError(t, err)
	assert.Equal(t, model.ProgressSentToSalesperson, resp.RFQProgress)
	assert.Equal(t, "2026-03-01", resp.QuoteDate)
	assert.Len(t, f.funnels.funnels, 1)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, model.ActionCreateSalesFunnel, f.audit.entries[0].action)
	assert.Equal(t, me, f.audit.entries[0].actor)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, EventSalesFunnelCreated, f.events.events[0].kind)
}

func TestCreateSalesFunnel_AdminExemptByDefault(t *testing.T) {
	rfq := rfqAt(model.ProgressWaitingForDrawing)
	f := newFunnelFixture(authz.DefaultGatePolicy(), rfq)
	ctx, _ := actorCtx(authz.RoleAdmin)

	_, err := f.svc.CreateSalesFunnel(ctx, funnelRequest(rfq.ID, uuid.New()))
	require.NoError(t, err)
}

func TestCreateSalesFunnel_AdminNotExemptUnderStrictPolicy(t *testing.T) {
	rfq := rfqAt(model.ProgressWaitingForDrawing)
	f := newFunnelFixture(authz.GatePolicy{ExemptRoles: []string{authz.RoleSuperAdmin}}, rfq)
	ctx, _ := actorCtx(authz.RoleAdmin)

	_, err := f.svc.CreateSalesFunnel(ctx, funnelRequest(rfq.ID, uuid.New()))
	assert.Equal(t, apperr.KindWorkflowGateDenied, apperr.KindOf(err))
}

func TestCreateSalesFunnel_PlainUserIsUnauthorized(t *testing.T) {
	rfq := rfqAt(model.ProgressSentToCustomer)
	f := newFunnelFixture(authz.DefaultGatePolicy(), rfq)
	ctx, me := actorCtx(authz.RoleUser)

	_, err := f.svc.CreateSalesFunnel(ctx, funnelRequest(rfq.ID, me))
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestCreateSalesFunnel_MissingRFQ(t *testing.T) {
	f := newFunnelFixture(authz.DefaultGatePolicy())
	ctx, me := actorCtx(authz.RoleSalesPerson)

	_, err := f.svc.CreateSalesFunnel(ctx, funnelRequest(uuid.New(), me))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCreateSalesFunnel_RejectsBadDates(t *testing.T) {
	rfq := rfqAt(model.ProgressSentToCustomer)
	f := newFunnelFixture(authz.DefaultGatePolicy(), rfq)
	ctx, me := actorCtx(authz.RoleSalesPerson)

	req := funnelRequest(rfq.ID, me)
	req.QuoteDate = "01/03/2026"
	_, err := f.svc.CreateSalesFunnel(ctx, req)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
}

func TestUpdateSalesFunnel_StampsLastUpdated(t *testing.T) {
	rfq := rfqAt(model.ProgressSentToCustomer)
	f := newFunnelFixture(authz.DefaultGatePolicy(), rfq)
	ctx, me := actorCtx(authz.RoleSalesPerson)

	created, err := f.svc.CreateSalesFunnel(ctx, funnelRequest(rfq.ID, me))
	require.NoError(t, err)
	assert.Nil(t, created.LastUpdated)

	fixed := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	f.svc.(*salesFunnelService).now = func() time.Time { return fixed }

	status := "won"
	updated, err := f.svc.UpdateSalesFunnel(ctx, created.ID, UpdateSalesFunnelRequest{Status: &status})
	require.NoError(t, err)
	require.NotNil(t, updated.LastUpdated)
	assert.True(t, fixed.Equal(*updated.LastUpdated))
	assert.Equal(t, "won", updated.Status)
	assert.Equal(t, "2026-03-01", updated.QuoteDate)
}
