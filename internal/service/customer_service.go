package service

import (
	"context"
	"strings"

	"rfqportal/internal/model"
	"rfqportal/internal/repository"
)

type CustomerRequest struct {
	Name  string `json:"name" binding:"required,max=150"`
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"omitempty,max=50"`
}

type CustomerResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Code      string `json:"code"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type CustomerService interface {
	CreateCustomer(ctx context.Context, req CustomerRequest) (*CustomerResponse, error)
	GetCustomer(ctx context.Context, id string) (*CustomerResponse, error)
	ListCustomers(ctx context.Context, search string, page, limit int) ([]CustomerResponse, int64, error)
	UpdateCustomer(ctx context.Context, id string, req CustomerRequest) (*CustomerResponse, error)
	DeleteCustomer(ctx context.Context, id string) error
}

type customerService struct {
	repo repository.CustomerRepository
}

func NewCustomerService(repo repository.CustomerRepository) CustomerService {
	return &customerService{repo: repo}
}

func toCustomerResponse(c *model.Customer) *CustomerResponse {
	return &CustomerResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Email:     c.Email,
		Code:      c.Code,
		CreatedAt: c.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt: c.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

func (s *customerService) CreateCustomer(ctx context.Context, req CustomerRequest) (*CustomerResponse, error) {
	customer := &model.Customer{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
		Code:  strings.TrimSpace(req.Code),
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	return toCustomerResponse(customer), nil
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (*CustomerResponse, error) {
	cid, err := parseID(id, "customer")
	if err != nil {
		return nil, err
	}
	customer, err := s.repo.FindByID(ctx, cid)
	if err != nil {
		return nil, err
	}
	return toCustomerResponse(customer), nil
}

func (s *customerService) ListCustomers(ctx context.Context, search string, page, limit int) ([]CustomerResponse, int64, error) {
	customers, total, err := s.repo.List(ctx, strings.TrimSpace(search), page, limit)
	if err != nil {
		return nil, 0, err
	}
	res := make([]CustomerResponse, 0, len(customers))
	for i := range customers {
		res = append(res, *toCustomerResponse(&customers[i]))
	}
	return res, total, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id string, req CustomerRequest) (*CustomerResponse, error) {
	cid, err := parseID(id, "customer")
	if err != nil {
		return nil, err
	}
	customer, err := s.repo.FindByID(ctx, cid)
	if err != nil {
		return nil, err
	}
	customer.Name = strings.TrimSpace(req.Name)
	customer.Email = strings.ToLower(strings.TrimSpace(req.Email))
	customer.Code = strings.TrimSpace(req.Code)
	if err := s.repo.Update(ctx, customer); err != nil {
		return nil, err
	}
	return toCustomerResponse(customer), nil
}

// DeleteCustomer fails with a conflict while RFQs or invoices still point at the customer.
func (s *customerService) DeleteCustomer(ctx context.Context, id string) error {
	cid, err := parseID(id, "customer")
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, cid)
}
