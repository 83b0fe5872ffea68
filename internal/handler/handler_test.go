package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfqportal/internal/apperr"
	"rfqportal/internal/authz"
	"rfqportal/internal/middleware"
	"rfqportal/internal/model"
	"rfqportal/internal/repository"
	"rfqportal/internal/service"
	"rfqportal/pkg/response"
	"rfqportal/pkg/validation"
)

const roleHeader = "X-Test-Roles"

// testGuard authenticates from a header instead of a token and decides with
// the fallback grants.
func testGuard() Guard {
	engine := authz.NewEngine(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return Guard{
		Authenticate: func(c *gin.Context) {
			raw := c.GetHeader(roleHeader)
			if raw == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}
			actor := authz.Actor{UserID: uuid.New(), Email: "t@example.com", Roles: strings.Split(raw, ",")}
			c.Request = c.Request.WithContext(authz.WithActor(c.Request.Context(), actor))
			c.Next()
		},
		Decider: engine,
	}
}

type routes interface {
	RegisterRoutes(*gin.RouterGroup)
}

func newRouter(hs ...routes) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if err := validation.RegisterWithGin(); err != nil {
		panic(err)
	}
	r := gin.New()
	api := r.Group("/api")
	for _, h := range hs {
		h.RegisterRoutes(api)
	}
	return r
}

func do(r *gin.Engine, method, path, roles string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if roles != "" {
		req.Header.Set(roleHeader, roles)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

type stubFunnelService struct {
	service.SalesFunnelService
	createErr error
	created   int
	deleted   []string
}

func (s *stubFunnelService) CreateSalesFunnel(_ context.Context, req service.CreateSalesFunnelRequest) (*service.SalesFunnelResponse, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created++
	return &service.SalesFunnelResponse{ID: uuid.NewString(), RFQID: req.RFQID}, nil
}

func (s *stubFunnelService) DeleteSalesFunnel(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func funnelPayload() service.CreateSalesFunnelRequest {
	return service.CreateSalesFunnelRequest{
		RFQID:      uuid.NewString(),
		QuoteDate:  "2026-03-01",
		SentBy:     uuid.NewString(),
		ExpWinDate: "2026-04-01",
	}
}

func TestCreateSalesFunnel_GateRefusalKeepsKind(t *testing.T) {
	svc := &stubFunnelService{createErr: apperr.New(apperr.KindWorkflowGateDenied, "RFQ progress is Partially Submitted")}
	r := newRouter(NewSalesFunnelHandler(svc, testGuard()))

	w := do(r, http.MethodPost, "/api/sales-funnels", authz.RoleSalesPerson, funnelPayload())

	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decode(t, w)
	assert.Equal(t, string(apperr.KindWorkflowGateDenied), body.Kind)
	assert.Equal(t, "error", body.Status)
}

func TestCreateSalesFunnel_Created(t *testing.T) {
	svc := &stubFunnelService{}
	r := newRouter(NewSalesFunnelHandler(svc, testGuard()))

	w := do(r, http.MethodPost, "/api/sales-funnels", authz.RoleSalesPerson, funnelPayload())

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, svc.created)
}

func TestCreateSalesFunnel_RejectsBadPayload(t *testing.T) {
	svc := &stubFunnelService{}
	r := newRouter(NewSalesFunnelHandler(svc, testGuard()))

	payload := funnelPayload()
	payload.RFQID = "not-a-uuid"
	w := do(r, http.MethodPost, "/api/sales-funnels", authz.RoleSalesPerson, payload)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, svc.created)
}

func TestCreateSalesFunnel_RequiresAuthentication(t *testing.T) {
	r := newRouter(NewSalesFunnelHandler(&stubFunnelService{}, testGuard()))

	w := do(r, http.MethodPost, "/api/sales-funnels", "", funnelPayload())

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeleteSalesFunnel_NeedsDeleteAny(t *testing.T) {
	svc := &stubFunnelService{}
	r := newRouter(NewSalesFunnelHandler(svc, testGuard()))
	id := uuid.NewString()

	w := do(r, http.MethodDelete, "/api/sales-funnels/"+id, authz.RoleSalesPerson, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, string(apperr.KindUnauthorized), decode(t, w).Kind)
	assert.Empty(t, svc.deleted)

	w = do(r, http.MethodDelete, "/api/sales-funnels/"+id, authz.RoleAdmin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{id}, svc.deleted)
}

type stubRFQService struct {
	service.RFQService
	query service.RFQListQuery
	page  int
	limit int
}

func (s *stubRFQService) ListRFQs(_ context.Context, q service.RFQListQuery, page, limit int) ([]service.RFQResponse, int64, error) {
	s.query, s.page, s.limit = q, page, limit
	return []service.RFQResponse{{ID: "a"}, {ID: "b"}}, 7, nil
}

func (s *stubRFQService) GetRFQ(context.Context, string) (*service.RFQResponse, error) {
	return nil, apperr.New(apperr.KindNotFound, "RFQ not found")
}

func TestListRFQs_WrapsPage(t *testing.T) {
	svc := &stubRFQService{}
	r := newRouter(NewRFQHandler(svc, testGuard()))

	w := do(r, http.MethodGet, "/api/rfqs?page=2&limit=5&q=perth&progress=Partially+Submitted", authz.RoleUser, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, svc.page)
	assert.Equal(t, 5, svc.limit)
	assert.Equal(t, "perth", svc.query.Search)
	assert.Equal(t, string(model.ProgressPartiallySubmitted), svc.query.Progress)

	var body struct {
		Data struct {
			Items      []service.RFQResponse `json:"items"`
			Total      int64                 `json:"total"`
			TotalPages int                   `json:"total_pages"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data.Items, 2)
	assert.EqualValues(t, 7, body.Data.Total)
	assert.Equal(t, 2, body.Data.TotalPages)
}

func TestGetRFQ_NotFound(t *testing.T) {
	r := newRouter(NewRFQHandler(&stubRFQService{}, testGuard()))

	w := do(r, http.MethodGet, "/api/rfqs/"+uuid.NewString(), authz.RoleUser, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(apperr.KindNotFound), decode(t, w).Kind)
}

func TestUpdateProgress_UserRoleRefused(t *testing.T) {
	r := newRouter(NewRFQHandler(&stubRFQService{}, testGuard()))

	w := do(r, http.MethodPatch, "/api/rfqs/"+uuid.NewString()+"/progress", authz.RoleUser,
		service.UpdateProgressRequest{Progress: string(model.ProgressSentToCustomer)})

	assert.Equal(t, http.StatusForbidden, w.Code)
}

type stubAuditService struct {
	service.AuditService
	filter repository.AuditFilter
}

func (s *stubAuditService) GetAuditLogs(_ context.Context, f repository.AuditFilter, _, _ int) ([]service.AuditLogResponse, int64, error) {
	s.filter = f
	return nil, 0, nil
}

func TestAuditLogs_AdminOnly(t *testing.T) {
	svc := &stubAuditService{}
	r := newRouter(NewAuditHandler(svc, testGuard()))

	w := do(r, http.MethodGet, "/api/audit-logs", authz.RoleSalesPerson, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/api/audit-logs?action=DELETE_USER&entity_id=42", authz.RoleAdmin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, repository.AuditFilter{Action: "DELETE_USER", EntityID: "42"}, svc.filter)
}

type stubAuthService struct {
	service.AuthService
	loginErr  error
	verifyErr error
}

func (s *stubAuthService) Login(context.Context, service.LoginRequest) (*service.LoginResponse, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &service.LoginResponse{Message: "OTP sent to email"}, nil
}

func (s *stubAuthService) VerifyOTP(context.Context, service.VerifyOTPRequest) (*service.AuthResponse, error) {
	return nil, s.verifyErr
}

func TestLogin_InvalidCredentialsIs401(t *testing.T) {
	r := newRouter(NewAuthHandler(&stubAuthService{loginErr: service.ErrInvalidCredentials}, testGuard(), middleware.CookieConfig{}, nil))

	w := do(r, http.MethodPost, "/api/auth/login", "", service.LoginRequest{Email: "a@example.com", Password: "secret"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyOTP_ExpiredCodeKind(t *testing.T) {
	svc := &stubAuthService{verifyErr: apperr.New(apperr.KindInvalidOrExpiredCode, "invalid or expired code")}
	r := newRouter(NewAuthHandler(svc, testGuard(), middleware.CookieConfig{}, nil))

	w := do(r, http.MethodPost, "/api/auth/verify-otp", "", service.VerifyOTPRequest{Email: "a@example.com", OTP: "123456"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, string(apperr.KindInvalidOrExpiredCode), decode(t, w).Kind)
}

func TestVerifyOTP_NonNumericCodeRejected(t *testing.T) {
	r := newRouter(NewAuthHandler(&stubAuthService{}, testGuard(), middleware.CookieConfig{}, nil))

	w := do(r, http.MethodPost, "/api/auth/verify-otp", "", service.VerifyOTPRequest{Email: "a@example.com", OTP: "12ab56"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
