package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"rfqportal/internal/model"
)

// RFQFilter narrows RFQ listings. Zero values are ignored.
type RFQFilter struct {
	Search     string
	CustomerID *uuid.UUID
	Progress   model.RFQProgress
	DateFrom   *time.Time
	DateTo     *time.Time
	// PreparedBy limits results to RFQs the user is salesperson for or prepared.
	PreparedBy *uuid.UUID
}

type RFQRepository interface {
	Create(ctx context.Context, rfq *model.RFQ) error
	Update(ctx context.Context, rfq *model.RFQ) error
	UpdateProgress(ctx context.Context, id uuid.UUID, progress model.RFQProgress) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.RFQ, error)
	List(ctx context.Context, filter RFQFilter, page, limit int) ([]model.RFQ, int64, error)
	ReplacePreparedPeople(ctx context.Context, rfqID uuid.UUID, userIDs []uuid.UUID) error
}

type rfqRepository struct {
	db *gorm.DB
}

func NewRFQRepository(db *gorm.DB) RFQRepository {
	return &rfqRepository{db: db}
}

func (r *rfqRepository) Create(ctx context.Context, rfq *model.RFQ) error {
	return translate(GetDB(ctx, r.db).Omit("PreparedBy", "Customer", "Salesperson").Create(rfq).Error, "rfq")
}

func (r *rfqRepository) Update(ctx context.Context, rfq *model.RFQ) error {
	return translate(GetDB(ctx, r.db).Omit("PreparedBy", "Customer", "Salesperson").Save(rfq).Error, "rfq")
}

func (r *rfqRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress model.RFQProgress) error {
	res := GetDB(ctx, r.db).Model(&model.RFQ{}).Where("id = ?", id).Update("progress", progress)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "rfq")
	}
	return nil
}

func (r *rfqRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleted(GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.RFQ{}), "rfq")
}

func (r *rfqRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.RFQ, error) {
	var rfq model.RFQ
	err := GetDB(ctx, r.db).
		Preload("Customer").Preload("Salesperson").Preload("PreparedBy").
		First(&rfq, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "rfq")
	}
	return &rfq, nil
}

func (r *rfqRepository) List(ctx context.Context, filter RFQFilter, page, limit int) ([]model.RFQ, int64, error) {
	var rfqs []model.RFQ
	var total int64

	query := GetDB(ctx, r.db).Model(&model.RFQ{}).Joins("JOIN customers ON customers.id = rfq.customer_id")
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("rfq.rfq_location ILIKE ? OR rfq.remarks ILIKE ? OR customers.name ILIKE ?", like, like, like)
	}
	if filter.CustomerID != nil {
		query = query.Where("rfq.customer_id = ?", *filter.CustomerID)
	}
	if filter.Progress != "" {
		query = query.Where("rfq.progress = ?", filter.Progress)
	}
	if filter.DateFrom != nil {
		query = query.Where("rfq.receive_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("rfq.receive_date <= ?", *filter.DateTo)
	}
	if filter.PreparedBy != nil {
		query = query.Where("rfq.salesperson_id = ? OR EXISTS (SELECT 1 FROM rfq_prepared_people pp WHERE pp.rfq_id = rfq.id AND pp.user_id = ?)",
			*filter.PreparedBy, *filter.PreparedBy)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Preload("Customer").Preload("Salesperson").Preload("PreparedBy").
		Order("rfq.receive_date DESC, rfq.created_at DESC").
		Offset(offset).Limit(limit).Find(&rfqs).Error; err != nil {
		return nil, 0, err
	}
	return rfqs, total, nil
}

func (r *rfqRepository) ReplacePreparedPeople(ctx context.Context, rfqID uuid.UUID, userIDs []uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("rfq_id = ?", rfqID).Delete(&model.RFQPreparedPerson{}).Error; err != nil {
		return err
	}
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]model.RFQPreparedPerson, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, model.RFQPreparedPerson{RFQID: rfqID, UserID: id})
	}
	return translate(db.Create(&rows).Error, "prepared person")
}
