package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rfqportal/internal/apperr"
	"rfqportal/internal/authz"
	"rfqportal/internal/model"
	"rfqportal/internal/repository"
)

// AccessChecker answers plain yes/no grant questions.
type AccessChecker interface {
	Can(roles []string, action authz.Action, resource authz.Resource) bool
}

type RFQRequest struct {
	ReceiveDate   string          `json:"receive_date" binding:"required"`
	StartDate     string          `json:"start_date" binding:"required"`
	EndDate       string          `json:"end_date" binding:"required"`
	CustomerID    string          `json:"customer_id" binding:"required,uuid"`
	SalespersonID string          `json:"salesperson_id" binding:"required,uuid"`
	Quantity      decimal.Decimal `json:"quantity" swaggertype:"string" example:"12.50"`
	Price         string          `json:"price" binding:"required,max=100"`
	Progress      string          `json:"progress" binding:"omitempty,rfqprogress"`
	Location      string          `json:"rfq_location" binding:"max=255"`
	Remarks       string          `json:"remarks"`
	PreparedBy    []string        `json:"prepared_by" binding:"required,min=1,dive,uuid"`
}

type UpdateProgressRequest struct {
	Progress string `json:"progress" binding:"required,rfqprogress"`
}

type RFQListQuery struct {
	Search     string `form:"q"`
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	Progress   string `form:"progress" binding:"omitempty,rfqprogress"`
	DateFrom   string `form:"date_from"`
	DateTo     string `form:"date_to"`
}

type PersonRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortForm string `json:"short_form"`
}

type RFQResponse struct {
	ID              string            `json:"id"`
	ReceiveDate     string            `json:"receive_date"`
	StartDate       string            `json:"start_date"`
	EndDate         string            `json:"end_date"`
	CustomerID      string            `json:"customer_id"`
	CustomerName    string            `json:"customer_name"`
	SalespersonID   string            `json:"salesperson_id"`
	SalespersonName string            `json:"salesperson_name"`
	Quantity        decimal.Decimal   `json:"quantity" swaggertype:"string"`
	Price           string            `json:"price"`
	Progress        model.RFQProgress `json:"progress"`
	Location        string            `json:"rfq_location"`
	Remarks         string            `json:"remarks"`
	PreparedBy      []PersonRef       `json:"prepared_by"`
	CreatedAt       string            `json:"created_at"`
	UpdatedAt       string            `json:"updated_at"`
}

// ProgressChangedEvent is broadcast whenever an RFQ moves to another state.
type ProgressChangedEvent struct {
	RFQID     string            `json:"rfq_id"`
	From      model.RFQProgress `json:"from"`
	To        model.RFQProgress `json:"to"`
	ChangedBy string            `json:"changed_by"`
}

type RFQService interface {
	CreateRFQ(ctx context.Context, req RFQRequest) (*RFQResponse, error)
	GetRFQ(ctx context.Context, id string) (*RFQResponse, error)
	ListRFQs(ctx context.Context, query RFQListQuery, page, limit int) ([]RFQResponse, int64, error)
	UpdateRFQ(ctx context.Context, id string, req RFQRequest) (*RFQResponse, error)
	UpdateProgress(ctx context.Context, id string, req UpdateProgressRequest) (*RFQResponse, error)
	DeleteRFQ(ctx context.Context, id string) error
}

type rfqService struct {
	repo      repository.RFQRepository
	access    AccessChecker
	audit     AuditService
	txManager repository.TransactionManager
	events    EventPublisher
	logger    *slog.Logger
}

func NewRFQService(repo repository.RFQRepository, access AccessChecker, audit AuditService, txManager repository.TransactionManager, events EventPublisher, logger *slog.Logger) RFQService {
	return &rfqService{
		repo:      repo,
		access:    access,
		audit:     audit,
		txManager: txManager,
		events:    publisherOrNoop(events),
		logger:    logger,
	}
}

func toRFQResponse(r *model.RFQ) *RFQResponse {
	resp := &RFQResponse{
		ID:            r.ID.String(),
		ReceiveDate:   formatDate(r.ReceiveDate),
		StartDate:     formatDate(r.StartDate),
		EndDate:       formatDate(r.EndDate),
		CustomerID:    r.CustomerID.String(),
		SalespersonID: r.SalespersonID.String(),
		Quantity:      r.Quantity,
		Price:         r.Price,
		Progress:      r.Progress,
		Location:      r.Location,
		Remarks:       r.Remarks,
		PreparedBy:    make([]PersonRef, 0, len(r.PreparedBy)),
		CreatedAt:     r.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:     r.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
	if r.Customer != nil {
		resp.CustomerName = r.Customer.Name
	}
	if r.Salesperson != nil {
		resp.SalespersonName = r.Salesperson.Name
	}
	for _, u := range r.PreparedBy {
		resp.PreparedBy = append(resp.PreparedBy, PersonRef{ID: u.ID.String(), Name: u.Name, ShortForm: u.ShortForm})
	}
	return resp
}

// applyRFQ validates req and copies it onto rfq, returning the deduplicated
// prepared-by ids.
func applyRFQ(rfq *model.RFQ, req RFQRequest) ([]uuid.UUID, error) {
	receive, err := parseDate(req.ReceiveDate, "receive_date")
	if err != nil {
		return nil, err
	}
	start, err := parseDate(req.StartDate, "start_date")
	if err != nil {
		return nil, err
	}
	end, err := parseDate(req.EndDate, "end_date")
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, apperr.New(apperr.KindInvalid, "end_date must not be before start_date")
	}
	customerID, err := parseID(req.CustomerID, "customer")
	if err != nil {
		return nil, err
	}
	salespersonID, err := parseID(req.SalespersonID, "salesperson")
	if err != nil {
		return nil, err
	}
	if req.Quantity.IsNegative() {
		return nil, apperr.New(apperr.KindInvalid, "quantity must not be negative")
	}

	progress := model.ProgressWaitingForDrawing
	if strings.TrimSpace(req.Progress) != "" {
		p, ok := model.ParseRFQProgress(req.Progress)
		if !ok {
			return nil, apperr.New(apperr.KindInvalid, "unknown progress %q", req.Progress)
		}
		progress = p
	} else if rfq.Progress != "" {
		progress = rfq.Progress
	}

	if len(req.PreparedBy) == 0 {
		return nil, apperr.New(apperr.KindInvalid, "prepared_by must name at least one user")
	}
	prepared := make([]uuid.UUID, 0, len(req.PreparedBy))
	for _, raw := range req.PreparedBy {
		id, err := parseID(raw, "prepared_by user")
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, id)
	}

	rfq.ReceiveDate = receive
	rfq.StartDate = start
	rfq.EndDate = end
	rfq.CustomerID = customerID
	rfq.SalespersonID = salespersonID
	rfq.Quantity = req.Quantity.Round(2)
	rfq.Price = strings.TrimSpace(req.Price)
	rfq.Progress = progress
	rfq.Location = strings.TrimSpace(req.Location)
	rfq.Remarks = req.Remarks
	return dedupIDs(prepared), nil
}

// involved reports whether the user is the salesperson or a preparer of rfq.
func involved(rfq *model.RFQ, userID uuid.UUID) bool {
	if rfq.SalespersonID == userID {
		return true
	}
	for _, u := range rfq.PreparedBy {
		if u.ID == userID {
			return true
		}
	}
	return false
}

func (s *rfqService) CreateRFQ(ctx context.Context, req RFQRequest) (*RFQResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	var rfq model.RFQ
	prepared, err := applyRFQ(&rfq, req)
	if err != nil {
		return nil, err
	}
	if !s.access.Can(actor.Roles, authz.ActionCreateAny, authz.ResourceRFQ) && rfq.SalespersonID != actor.UserID {
		return nil, apperr.New(apperr.KindUnauthorized, "you may only create RFQs where you are the salesperson")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, &rfq); err != nil {
			return err
		}
		return s.repo.ReplacePreparedPeople(txCtx, rfq.ID, prepared)
	})
	if err != nil {
		return nil, err
	}

	created, err := s.repo.FindByID(ctx, rfq.ID)
	if err != nil {
		return nil, err
	}
	return toRFQResponse(created), nil
}

func (s *rfqService) GetRFQ(ctx context.Context, id string) (*RFQResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	rid, err := parseID(id, "rfq")
	if err != nil {
		return nil, err
	}
	rfq, err := s.repo.FindByID(ctx, rid)
	if err != nil {
		return nil, err
	}
	if !s.access.Can(actor.Roles, authz.ActionReadAny, authz.ResourceRFQ) && !involved(rfq, actor.UserID) {
		return nil, apperr.New(apperr.KindUnauthorized, "you are not involved in this RFQ")
	}
	return toRFQResponse(rfq), nil
}

func (s *rfqService) ListRFQs(ctx context.Context, query RFQListQuery, page, limit int) ([]RFQResponse, int64, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, 0, err
	}

	filter := repository.RFQFilter{Search: strings.TrimSpace(query.Search)}
	if query.CustomerID != "" {
		cid, err := parseID(query.CustomerID, "customer")
		if err != nil {
			return nil, 0, err
		}
		filter.CustomerID = &cid
	}
	if query.Progress != "" {
		p, ok := model.ParseRFQProgress(query.Progress)
		if !ok {
			return nil, 0, apperr.New(apperr.KindInvalid, "unknown progress %q", query.Progress)
		}
		filter.Progress = p
	}
	if filter.DateFrom, err = parseOptionalDate(query.DateFrom, "date_from"); err != nil {
		return nil, 0, err
	}
	if filter.DateTo, err = parseOptionalDate(query.DateTo, "date_to"); err != nil {
		return nil, 0, err
	}
	if !s.access.Can(actor.Roles, authz.ActionReadAny, authz.ResourceRFQ) {
		uid := actor.UserID
		filter.PreparedBy = &uid
	}

	rfqs, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, err
	}
	res := make([]RFQResponse, 0, len(rfqs))
	for i := range rfqs {
		res = append(res, *toRFQResponse(&rfqs[i]))
	}
	return res, total, nil
}

func (s *rfqService) UpdateRFQ(ctx context.Context, id string, req RFQRequest) (*RFQResponse, error) {
	rid, err := parseID(id, "rfq")
	if err != nil {
		return nil, err
	}

	var from, to model.RFQProgress
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rfq, err := s.repo.FindByID(txCtx, rid)
		if err != nil {
			return err
		}
		from = rfq.Progress
		prepared, err := applyRFQ(rfq, req)
		if err != nil {
			return err
		}
		to = rfq.Progress
		rfq.Customer, rfq.Salesperson, rfq.PreparedBy = nil, nil, nil
		if err := s.repo.Update(txCtx, rfq); err != nil {
			return err
		}
		if err := s.repo.ReplacePreparedPeople(txCtx, rid, prepared); err != nil {
			return err
		}
		if from != to {
			return s.recordProgress(txCtx, rid, from, to)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if from != to {
		s.broadcastProgress(ctx, rid, from, to)
	}
	return s.load(ctx, rid)
}

func (s *rfqService) UpdateProgress(ctx context.Context, id string, req UpdateProgressRequest) (*RFQResponse, error) {
	rid, err := parseID(id, "rfq")
	if err != nil {
		return nil, err
	}
	to, ok := model.ParseRFQProgress(req.Progress)
	if !ok {
		return nil, apperr.New(apperr.KindInvalid, "unknown progress %q", req.Progress)
	}

	var from model.RFQProgress
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rfq, err := s.repo.FindByID(txCtx, rid)
		if err != nil {
			return err
		}
		from = rfq.Progress
		if from == to {
			return nil
		}
		if err := s.repo.UpdateProgress(txCtx, rid, to); err != nil {
			return err
		}
		return s.recordProgress(txCtx, rid, from, to)
	})
	if err != nil {
		return nil, err
	}

	if from != to {
		s.broadcastProgress(ctx, rid, from, to)
	}
	return s.load(ctx, rid)
}

func (s *rfqService) DeleteRFQ(ctx context.Context, id string) error {
	rid, err := parseID(id, "rfq")
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, rid)
}

func (s *rfqService) load(ctx context.Context, id uuid.UUID) (*RFQResponse, error) {
	rfq, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toRFQResponse(rfq), nil
}

func (s *rfqService) recordProgress(ctx context.Context, id uuid.UUID, from, to model.RFQProgress) error {
	return s.audit.Record(ctx, model.ActionUpdateRFQProgress, id.String(), "rfq", map[string]interface{}{
		"from": from,
		"to":   to,
	})
}

func (s *rfqService) broadcastProgress(ctx context.Context, id uuid.UUID, from, to model.RFQProgress) {
	changedBy := ""
	if actor, ok := authz.ActorFrom(ctx); ok {
		changedBy = actor.UserID.String()
	}
	s.logger.Info("rfq progress changed", "rfq_id", id, "from", from, "to", to)
	s.events.Publish(EventRFQProgressChanged, ProgressChangedEvent{
		RFQID:     id.String(),
		From:      from,
		To:        to,
		ChangedBy: changedBy,
	})
}
