package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfqportal/internal/apperr"
	"rfqportal/internal/authz"
	"rfqportal/internal/model"
)

func newRFQFixture(rfqs ...*model.RFQ) (RFQService, *stubRFQRepo, *auditRecorder, *eventRecorder) {
	repo := newStubRFQRepo(rfqs...)
	audit := &auditRecorder{}
	events := &eventRecorder{}
	svc := NewRFQService(repo, fallbackEngine(), audit, inlineTx{}, events, quietLogger())
	return svc, repo, audit, events
}

func rfqRequest(salesperson uuid.UUID, prepared ...uuid.UUID) RFQRequest {
	ids := make([]string, 0, len(prepared))
	for _, id := range prepared {
		ids = append(ids, id.String())
	}
	return RFQRequest{
		ReceiveDate:   "2026-02-01",
		StartDate:     "2026-02-02",
		EndDate:       "2026-02-20",
		CustomerID:    uuid.NewString(),
		SalespersonID: salesperson.String(),
		Quantity:      decimal.RequireFromString("10.555"),
		Price:         "on request",
		PreparedBy:    ids,
	}
}

func TestCreateRFQ_DefaultsProgressAndDedupsPreparers(t *testing.T) {
	svc, repo, _, _ := newRFQFixture()
	ctx, me := actorCtx(authz.RoleSalesPerson)
	helper := uuid.New()

	resp, err := svc.CreateRFQ(ctx, rfqRequest(me, helper, helper, me))

	require.NoError(t, err)
	assert.Equal(t, model.ProgressWaitingForDrawing, resp.Progress)
	assert.Equal(t, "10.56", resp.Quantity.StringFixed(2))
	id := uuid.MustParse(resp.ID)
	assert.Equal(t, []uuid.UUID{helper, me}, repo.prepared[id])
}

func TestCreateRFQ_OwnScopeRequiresSelfAsSalesperson(t *testing.T) {
	svc, _, _, _ := newRFQFixture()
	ctx, me := actorCtx(authz.RoleUser)

	_, err := svc.CreateRFQ(ctx, rfqRequest(uuid.New(), me))
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = svc.CreateRFQ(ctx, rfqRequest(me, me))
	assert.NoError(t, err)
}

func TestCreateRFQ_Validation(t *testing.T) {
	svc, _, _, _ := newRFQFixture()
	ctx, me := actorCtx(authz.RoleSalesPerson)

	req := rfqRequest(me, me)
	req.EndDate = "2026-01-01"
	_, err := svc.CreateRFQ(ctx, req)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	req = rfqRequest(me)
	_, err = svc.CreateRFQ(ctx, req)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err), "prepared_by must not be empty")

	req = rfqRequest(me, me)
	req.Progress = "Almost there"
	_, err = svc.CreateRFQ(ctx, req)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
}

func TestListRFQs_ScopesOwnReaders(t *testing.T) {
	svc, repo, _, _ := newRFQFixture()

	ctx, me := actorCtx(authz.RoleUser)
	_, _, err := svc.ListRFQs(ctx, RFQListQuery{}, 1, 50)
	require.NoError(t, err)
	require.NotNil(t, repo.filter.PreparedBy)
	assert.Equal(t, me, *repo.filter.PreparedBy)

	ctx, _ = actorCtx(authz.RoleSalesPerson)
	_, _, err = svc.ListRFQs(ctx, RFQListQuery{Progress: "Waiting for Customer’s BOM"}, 1, 50)
	require.NoError(t, err)
	assert.Nil(t, repo.filter.PreparedBy)
	assert.Equal(t, model.ProgressWaitingForCustomerBOM, repo.filter.Progress)
}

func TestGetRFQ_OwnReaderMustBeInvolved(t *testing.T) {
	rfq := &model.RFQ{ID: uuid.New(), SalespersonID: uuid.New(), Progress: model.ProgressWaitingForDrawing}
	svc, _, _, _ := newRFQFixture(rfq)

	ctx, _ := actorCtx(authz.RoleUser)
	_, err := svc.GetRFQ(ctx, rfq.ID.String())
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	owner := authz.WithActor(ctx, authz.Actor{UserID: rfq.SalespersonID, Roles: []string{authz.RoleUser}})
	_, err = svc.GetRFQ(owner, rfq.ID.String())
	assert.NoError(t, err)
}

func TestUpdateProgress_AuditsAndBroadcasts(t *testing.T) {
	rfq := &model.RFQ{ID: uuid.New(), Progress: model.ProgressPartiallySubmitted}
	svc, _, audit, events := newRFQFixture(rfq)
	ctx, me := actorCtx(authz.RoleSalesPerson)

	resp, err := svc.UpdateProgress(ctx, rfq.ID.String(), UpdateProgressRequest{Progress: string(model.ProgressSentToSalesperson)})

	require.NoError(t, err)
	assert.Equal(t, model.ProgressSentToSalesperson, resp.Progress)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, model.ActionUpdateRFQProgress, audit.entries[0].action)
	require.Len(t, events.events, 1)
	ev := events.events[0].payload.(ProgressChangedEvent)
	assert.Equal(t, model.ProgressPartiallySubmitted, ev.From)
	assert.Equal(t, model.ProgressSentToSalesperson, ev.To)
	assert.Equal(t, me.String(), ev.ChangedBy)
}

func TestUpdateProgress_SameStateIsQuiet(t *testing.T) {
	rfq := &model.RFQ{ID: uuid.New(), Progress: model.ProgressSentToCustomer}
	svc, _, audit, events := newRFQFixture(rfq)
	ctx, _ := actorCtx(authz.RoleSalesPerson)

	_, err := svc.UpdateProgress(ctx, rfq.ID.String(), UpdateProgressRequest{Progress: string(model.ProgressSentToCustomer)})
	require.NoError(t, err)
	assert.Empty(t, audit.entries)
	assert.Empty(t, events.events)
}
