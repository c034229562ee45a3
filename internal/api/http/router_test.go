package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/spec-kit/legal-service/internal/app"
	"github.com/spec-kit/legal-service/internal/auth"
	"github.com/spec-kit/legal-service/internal/config"
	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

type RouterSuite struct {
	suite.Suite
	app        *fiber.App
	subscriber string
	stranger   string
	provider   string
	admin      string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	cfg := &config.Config{
		App:        config.AppConfig{Name: "legal-service-test", Version: "test", RequestTimeoutSeconds: 5},
		Auth:       config.AuthConfig{JWTSecret: "test-secret", Issuer: "test", AccessTokenTTLMinutes: 5},
		UnitOfWork: config.UnitOfWorkConfig{TxTimeoutSeconds: 5},
	}
	container, err := app.New(context.Background(), cfg, zap.NewNop(), app.Options{Registry: prometheus.NewRegistry()})
	s.Require().NoError(err)
	s.app = container.HTTP()

	s.subscriber = s.token(container.Tokens, "sub-1", auth.RoleSubscriber)
	s.stranger = s.token(container.Tokens, "sub-2", auth.RoleSubscriber)
	s.provider = s.token(container.Tokens, "prov-1", auth.RoleProvider)
	s.admin = s.token(container.Tokens, "adm-1", auth.RoleAdmin)
}

func (s *RouterSuite) token(tm *auth.TokenManager, subject string, role auth.Role) string {
	token, _, err := tm.GenerateToken(subject, role)
	s.Require().NoError(err)
	return token
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *RouterSuite) call(method, path, token string, body any) (int, envelope) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	if len(raw) > 0 {
		s.Require().NoError(json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (s *RouterSuite) decode(env envelope, out any) {
	s.Require().NoError(json.Unmarshal(env.Data, out))
}

type requestBody struct {
	ID         string  `json:"id"`
	Number     string  `json:"number"`
	Status     string  `json:"status"`
	ProviderID *string `json:"provider_id"`
	SLAStatus  string  `json:"sla_status"`
}

func (s *RouterSuite) createConsultation() requestBody {
	status, env := s.call(fiber.MethodPost, "/v1/consultations", s.subscriber, map[string]any{
		"urgency":     "high",
		"title":       "Tenancy deposit dispute",
		"description": "My landlord is withholding the full deposit without explanation.",
		"category":    "Property",
	})
	s.Require().Equal(fiber.StatusCreated, status)
	var created requestBody
	s.decode(env, &created)
	return created
}

func (s *RouterSuite) TestConsultationLifecycle() {
	created := s.createConsultation()
	s.Equal("pending", created.Status)
	s.True(strings.HasPrefix(created.Number, "CON-"))
	base := "/v1/consultations/" + created.ID

	steps := []struct {
		path   string
		token  string
		body   any
		status string
	}{
		{path: "/assign", token: s.admin, body: map[string]string{"provider_id": "prov-1"}, status: "assigned"},
		{path: "/start", token: s.provider, status: "in_progress"},
		{path: "/request-info", token: s.provider, body: map[string]string{"reason": "Need the tenancy agreement"}, status: "awaiting_info"},
		{path: "/start", token: s.provider, status: "in_progress"},
		{path: "/respond", token: s.provider, status: "responded"},
		{path: "/complete", token: s.subscriber, status: "completed"},
	}
	for _, step := range steps {
		code, env := s.call(fiber.MethodPost, base+step.path, step.token, step.body)
		s.Require().Equal(fiber.StatusOK, code, step.path)
		var got requestBody
		s.decode(env, &got)
		s.Equal(step.status, got.Status, step.path)
	}

	code, env := s.call(fiber.MethodPost, base+"/rate", s.subscriber, map[string]any{"rating": 5, "feedback": "Clear advice"})
	s.Require().Equal(fiber.StatusOK, code)
	var rated struct {
		Rating *int `json:"rating"`
	}
	s.decode(env, &rated)
	s.Require().NotNil(rated.Rating)
	s.Equal(5, *rated.Rating)

	code, env = s.call(fiber.MethodGet, base+"/history", s.subscriber, nil)
	s.Require().Equal(fiber.StatusOK, code)
	var history []struct {
		FromStatus *string `json:"from_status"`
		ToStatus   string  `json:"to_status"`
		ChangedBy  *string `json:"changed_by"`
		Reason     *string `json:"reason"`
	}
	s.decode(env, &history)
	s.Require().Len(history, 7)
	s.Nil(history[0].FromStatus)
	s.Equal("pending", history[0].ToStatus)
	s.Equal("completed", history[6].ToStatus)
	s.Require().NotNil(history[3].Reason)
	s.Equal("Need the tenancy agreement", *history[3].Reason)
	s.Require().NotNil(history[1].ChangedBy)
	s.Equal("adm-1", *history[1].ChangedBy)
}

func (s *RouterSuite) TestErrorsAreMappedToEnvelope() {
	created := s.createConsultation()
	base := "/v1/consultations/" + created.ID

	code, env := s.call(fiber.MethodGet, base, "", nil)
	s.Equal(fiber.StatusUnauthorized, code)
	s.Equal(apperrors.CodeUnauthorized, env.Error.Code)

	code, env = s.call(fiber.MethodGet, base, s.stranger, nil)
	s.Equal(fiber.StatusForbidden, code)
	s.Equal(apperrors.CodeForbidden, env.Error.Code)

	code, env = s.call(fiber.MethodGet, "/v1/consultations/6f1f7c1e-0000-4000-8000-000000000000", s.admin, nil)
	s.Equal(fiber.StatusNotFound, code)
	s.Equal(apperrors.CodeNotFound, env.Error.Code)

	code, env = s.call(fiber.MethodPost, base+"/respond", s.admin, nil)
	s.Equal(fiber.StatusConflict, code)
	s.Equal(apperrors.CodeInvalidTransition, env.Error.Code)
	s.Equal("pending", env.Error.Details["status"])

	code, env = s.call(fiber.MethodPost, base+"/assign", s.provider, map[string]string{"provider_id": "prov-1"})
	s.Equal(fiber.StatusForbidden, code)
	s.Equal(apperrors.CodeForbidden, env.Error.Code)

	code, env = s.call(fiber.MethodPost, "/v1/consultations", s.subscriber, map[string]any{"title": "x"})
	s.Equal(fiber.StatusBadRequest, code)
	s.Equal(apperrors.CodeValidation, env.Error.Code)

	code, env = s.call(fiber.MethodGet, "/nowhere", "", nil)
	s.Equal(fiber.StatusNotFound, code)
	s.Equal(apperrors.CodeNotFound, env.Error.Code)
}

func (s *RouterSuite) TestListIsScopedToCaller() {
	s.createConsultation()
	s.createConsultation()

	code, env := s.call(fiber.MethodGet, "/v1/consultations?status=pending", s.subscriber, nil)
	s.Require().Equal(fiber.StatusOK, code)
	var mine []requestBody
	s.decode(env, &mine)
	s.Len(mine, 2)

	code, env = s.call(fiber.MethodGet, "/v1/consultations?subscriber_id=sub-1", s.stranger, nil)
	s.Require().Equal(fiber.StatusOK, code)
	var theirs []requestBody
	s.decode(env, &theirs)
	s.Empty(theirs)

	code, env = s.call(fiber.MethodGet, "/v1/consultations?limit=1", s.admin, nil)
	s.Require().Equal(fiber.StatusOK, code)
	var page []requestBody
	s.decode(env, &page)
	s.Len(page, 1)
}

func (s *RouterSuite) TestLitigationQuoteToClose() {
	code, env := s.call(fiber.MethodPost, "/v1/litigation", s.subscriber, map[string]any{
		"urgency":     "normal",
		"title":       "Breach of supply contract",
		"description": "The supplier stopped deliveries despite a signed two year contract.",
		"category":    "commercial",
		"case_type":   "civil",
	})
	s.Require().Equal(fiber.StatusCreated, code)
	var created requestBody
	s.decode(env, &created)
	s.True(strings.HasPrefix(created.Number, "LIT-"))
	base := "/v1/litigation/" + created.ID

	steps := []struct {
		path   string
		token  string
		body   any
		status string
	}{
		{path: "/assign", token: s.admin, body: map[string]string{"provider_id": "prov-1"}, status: "pending"},
		{path: "/quote", token: s.provider, body: map[string]any{
			"amount": "1500.00", "currency": "USD", "valid_until": time.Now().Add(72 * time.Hour).UTC(), "details": "Filing and two hearings",
		}, status: "quote_sent"},
		{path: "/accept-quote", token: s.subscriber, status: "quote_accepted"},
		{path: "/pay", token: s.admin, body: map[string]string{"reference": "pay_123", "amount": "1500", "currency": "USD"}, status: "quote_accepted"},
		{path: "/activate", token: s.provider, status: "active"},
		{path: "/close", token: s.provider, body: map[string]string{"reason": "Settled"}, status: "closed"},
	}
	for _, step := range steps {
		code, env := s.call(fiber.MethodPost, base+step.path, step.token, step.body)
		s.Require().Equal(fiber.StatusOK, code, "%s: %+v", step.path, env.Error)
		var got requestBody
		s.decode(env, &got)
		s.Equal(step.status, got.Status, step.path)
	}

	code, env = s.call(fiber.MethodGet, base, s.subscriber, nil)
	s.Require().Equal(fiber.StatusOK, code)
	var detail struct {
		PaymentStatus string `json:"payment_status"`
		Quote         *struct {
			Amount struct {
				Amount   string `json:"amount"`
				Currency string `json:"currency"`
			} `json:"amount"`
		} `json:"quote"`
	}
	s.decode(env, &detail)
	s.Equal("paid", detail.PaymentStatus)
	s.Require().NotNil(detail.Quote)
	s.Equal("1500.00", detail.Quote.Amount.Amount)
}

func (s *RouterSuite) TestSLAReportIsAdminOnly() {
	s.createConsultation()

	code, _ := s.call(fiber.MethodGet, "/v1/sla/report", s.subscriber, nil)
	s.Equal(fiber.StatusForbidden, code)

	code, env := s.call(fiber.MethodGet, "/v1/sla/report?kind=consultation", s.admin, nil)
	s.Require().Equal(fiber.StatusOK, code)
	var report struct {
		Open   int            `json:"open"`
		Counts map[string]int `json:"counts"`
	}
	s.decode(env, &report)
	s.Equal(1, report.Open)
	s.Equal(1, report.Counts["on_time"])
}

func (s *RouterSuite) TestHealthAndMetrics() {
	code, _ := s.call(fiber.MethodGet, "/health/live", "", nil)
	s.Equal(fiber.StatusOK, code)

	req := httptest.NewRequest(fiber.MethodGet, "/health/ready", nil)
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	body, _ := io.ReadAll(resp.Body)
	s.Equal(fiber.StatusOK, resp.StatusCode)
	s.Contains(string(body), `"postgres":"disabled"`)

	s.createConsultation()
	resp, err = s.app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil), -1)
	s.Require().NoError(err)
	body, _ = io.ReadAll(resp.Body)
	s.Equal(fiber.StatusOK, resp.StatusCode)
	s.Contains(string(body), "legal_http_requests_total")
	s.Contains(string(body), `legal_request_transitions_total{family="consultation",operation="create",outcome="ok"} 1`)
}

func TestMalformedIDIsRejected(t *testing.T) {
	cfg := &config.Config{Auth: config.AuthConfig{JWTSecret: "s", Issuer: "i"}}
	container, err := app.New(context.Background(), cfg, zap.NewNop(), app.Options{Registry: prometheus.NewRegistry()})
	require.NoError(t, err)
	token, _, err := container.Tokens.GenerateToken("adm-1", auth.RoleAdmin)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, "/v1/consultations/not-a-uuid/start", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := container.HTTP().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
