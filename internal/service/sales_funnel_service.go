package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"rfqportal/internal/apperr"
	"rfqportal/internal/authz"
	"rfqportal/internal/model"
	"rfqportal/internal/repository"
)

// FunnelGate decides whether a sales funnel may be opened from an RFQ state.
type FunnelGate interface {
	CanCreateSalesFunnel(roles []string, progress model.RFQProgress) error
}

type CreateSalesFunnelRequest struct {
	RFQID       string `json:"rfq_id" binding:"required,uuid"`
	QuoteDate   string `json:"quote_date" binding:"required"`
	SentBy      string `json:"sent_by" binding:"required,uuid"`
	Description string `json:"description"`
	ExpWinDate  string `json:"exp_win_date" binding:"required"`
	Status      string `json:"status" binding:"max=50"`
	Remarks     string `json:"remarks"`
}

type UpdateSalesFunnelRequest struct {
	QuoteDate   string  `json:"quote_date"`
	SentBy      string  `json:"sent_by" binding:"omitempty,uuid"`
	Description *string `json:"description"`
	ExpWinDate  string  `json:"exp_win_date"`
	Status      *string `json:"status" binding:"omitempty,max=50"`
	Remarks     *string `json:"remarks"`
}

type SalesFunnelResponse struct {
	ID          string            `json:"id"`
	RFQID       string            `json:"rfq_id"`
	RFQProgress model.RFQProgress `json:"rfq_progress"`
	QuoteDate   string            `json:"quote_date"`
	SentBy      string            `json:"sent_by"`
	SentByName  string            `json:"sent_by_name"`
	Description string            `json:"description"`
	ExpWinDate  string            `json:"exp_win_date"`
	LastUpdated *time.Time        `json:"last_updated"`
	Status      string            `json:"status"`
	Remarks     string            `json:"remarks"`
	CreatedAt   string            `json:"created_at"`
}

type SalesFunnelService interface {
	CreateSalesFunnel(ctx context.Context, req CreateSalesFunnelRequest) (*SalesFunnelResponse, error)
	GetSalesFunnel(ctx context.Context, id string) (*SalesFunnelResponse, error)
	ListSalesFunnels(ctx context.Context, rfqID string, page, limit int) ([]SalesFunnelResponse, int64, error)
	UpdateSalesFunnel(ctx context.Context, id string, req UpdateSalesFunnelRequest) (*SalesFunnelResponse, error)
	DeleteSalesFunnel(ctx context.Context, id string) error
}

type salesFunnelService struct {
	repo      repository.SalesFunnelRepository
	rfqs      repository.RFQRepository
	gate      FunnelGate
	access    AccessChecker
	audit     AuditService
	txManager repository.TransactionManager
	events    EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewSalesFunnelService(
	repo repository.SalesFunnelRepository,
	rfqs repository.RFQRepository,
	gate FunnelGate,
	access AccessChecker,
	audit AuditService,
	txManager repository.TransactionManager,
	events EventPublisher,
	logger *slog.Logger,
) SalesFunnelService {
	return &salesFunnelService{
		repo:      repo,
		rfqs:      rfqs,
		gate:      gate,
		access:    access,
		audit:     audit,
		txManager: txManager,
		events:    publisherOrNoop(events),
		logger:    logger,
		now:       time.Now,
	}
}

func toSalesFunnelResponse(f *model.SalesFunnel) *SalesFunnelResponse {
	resp := &SalesFunnelResponse{
		ID:          f.ID.String(),
		RFQID:       f.RFQID.String(),
		QuoteDate:   formatDate(f.QuoteDate),
		SentBy:      f.SentByID.String(),
		Description: f.Description,
		ExpWinDate:  formatDate(f.ExpWinDate),
		LastUpdated: f.LastUpdated,
		Status:      f.Status,
		Remarks:     f.Remarks,
		CreatedAt:   f.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if f.RFQ != nil {
		resp.RFQProgress = f.RFQ.Progress
	}
	if f.SentBy != nil {
		resp.SentByName = f.SentBy.Name
	}
	return resp
}

// CreateSalesFunnel runs the workflow gate against the RFQ's current progress
// before anything is written.
func (s *salesFunnelService) CreateSalesFunnel(ctx context.Context, req CreateSalesFunnelRequest) (*SalesFunnelResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	rfqID, err := parseID(req.RFQID, "rfq")
	if err != nil {
		return nil, err
	}
	sentBy, err := parseID(req.SentBy, "sent_by user")
	if err != nil {
		return nil, err
	}
	quoteDate, err := parseDate(req.QuoteDate, "quote_date")
	if err != nil {
		return nil, err
	}
	expWin, err := parseDate(req.ExpWinDate, "exp_win_date")
	if err != nil {
		return nil, err
	}

	rfq, err := s.rfqs.FindByID(ctx, rfqID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.CanCreateSalesFunnel(actor.Roles, rfq.Progress); err != nil {
		s.logger.Info("sales funnel creation refused",
			"rfq_id", rfqID, "progress", rfq.Progress, "roles", actor.Roles, "kind", apperr.KindOf(err))
		return nil, err
	}
	if !s.access.Can(actor.Roles, authz.ActionCreateAny, authz.ResourceSalesFunnel) && sentBy != actor.UserID {
		return nil, apperr.New(apperr.KindUnauthorized, "you may only record sales funnels you sent")
	}

	funnel := model.SalesFunnel{
		RFQID:       rfqID,
		QuoteDate:   quoteDate,
		SentByID:    sentBy,
		Description: req.Description,
		ExpWinDate:  expWin,
		Status:      strings.TrimSpace(req.Status),
		Remarks:     req.Remarks,
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, &funnel); err != nil {
			return err
		}
		return s.audit.Record(txCtx, model.ActionCreateSalesFunnel, funnel.ID.String(), "sales funnel", map[string]interface{}{
			"rfq_id":       rfqID.String(),
			"rfq_progress": rfq.Progress,
			"sent_by":      sentBy.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	created, err := s.repo.FindByID(ctx, funnel.ID)
	if err != nil {
		return nil, err
	}
	resp := toSalesFunnelResponse(created)
	s.events.Publish(EventSalesFunnelCreated, resp)
	return resp, nil
}

func (s *salesFunnelService) GetSalesFunnel(ctx context.Context, id string) (*SalesFunnelResponse, error) {
	fid, err := parseID(id, "sales funnel")
	if err != nil {
		return nil, err
	}
	funnel, err := s.repo.FindByID(ctx, fid)
	if err != nil {
		return nil, err
	}
	return toSalesFunnelResponse(funnel), nil
}

func (s *salesFunnelService) ListSalesFunnels(ctx context.Context, rfqID string, page, limit int) ([]SalesFunnelResponse, int64, error) {
	var filter *uuid.UUID
	if strings.TrimSpace(rfqID) != "" {
		rid, err := parseID(rfqID, "rfq")
		if err != nil {
			return nil, 0, err
		}
		filter = &rid
	}
	funnels, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, err
	}
	res := make([]SalesFunnelResponse, 0, len(funnels))
	for i := range funnels {
		res = append(res, *toSalesFunnelResponse(&funnels[i]))
	}
	return res, total, nil
}

func (s *salesFunnelService) UpdateSalesFunnel(ctx context.Context, id string, req UpdateSalesFunnelRequest) (*SalesFunnelResponse, error) {
	fid, err := parseID(id, "sales funnel")
	if err != nil {
		return nil, err
	}
	funnel, err := s.repo.FindByID(ctx, fid)
	if err != nil {
		return nil, err
	}

	if req.QuoteDate != "" {
		if funnel.QuoteDate, err = parseDate(req.QuoteDate, "quote_date"); err != nil {
			return nil, err
		}
	}
	if req.ExpWinDate != "" {
		if funnel.ExpWinDate, err = parseDate(req.ExpWinDate, "exp_win_date"); err != nil {
			return nil, err
		}
	}
	if req.SentBy != "" {
		if funnel.SentByID, err = parseID(req.SentBy, "sent_by user"); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		funnel.Description = *req.Description
	}
	if req.Status != nil {
		funnel.Status = strings.TrimSpace(*req.Status)
	}
	if req.Remarks != nil {
		funnel.Remarks = *req.Remarks
	}
	now := s.now()
	funnel.LastUpdated = &now
	funnel.RFQ, funnel.SentBy = nil, nil

	if err := s.repo.Update(ctx, funnel); err != nil {
		return nil, err
	}
	return s.GetSalesFunnel(ctx, id)
}

func (s *salesFunnelService) DeleteSalesFunnel(ctx context.Context, id string) error {
	fid, err := parseID(id, "sales funnel")
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, fid)
}
