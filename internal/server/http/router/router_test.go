package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/velostore/ordercore/internal/domain/model"
	"github.com/velostore/ordercore/internal/domain/status"
	"github.com/velostore/ordercore/internal/server/http/dto"
	"github.com/velostore/ordercore/internal/server/http/handlers"
	testhelpers "github.com/velostore/ordercore/internal/test"
)

func TestSetupRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	facade := testhelpers.PipelineFacadeStub{}
	engine := Setup(facade, logger)

	body, _ := json.Marshal(dto.CreateOrderRequest{
		UserID:        3,
		PaymentMethod: "GATEWAY",
		Items:         []dto.OrderItemRequest{{VariantID: 11, Quantity: 1}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for order creation, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/orders/1", nil)
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for order fetch, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/payments/ipn?txn_ref=ORD-1", nil)
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for ipn, got %d", resp.Code)
	}
	var gwResp dto.GatewayResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &gwResp); err != nil {
		t.Fatalf("bad ipn body: %v", err)
	}
	if gwResp.RspCode != "00" {
		t.Fatalf("expected code 00, got %s", gwResp.RspCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/discounts/eligibility?userId=3", nil)
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for eligibility, got %d", resp.Code)
	}
}

func TestSetupRoleHeaderReachesHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	recorder := &testhelpers.TransitionRecorder{}
	facade := testhelpers.PipelineFacadeStub{
		OrderFacadeStub: testhelpers.OrderFacadeStub{
			ChangeFn: func(_ context.Context, id int64, target status.Status, role status.Role, note string) (*model.Order, error) {
				recorder.Record(testhelpers.TransitionCall{OrderID: id, Target: target, Role: role, Note: note})
				return &model.Order{ID: id, Status: target}, nil
			},
		},
	}
	engine := Setup(facade, logger)

	body, _ := json.Marshal(dto.ChangeStatusRequest{TargetStatus: "PREPARING"})
	req := httptest.NewRequest(http.MethodPost, "/api/orders/7/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-Role", "STAFF")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	calls := recorder.Recorded()
	if len(calls) != 1 || calls[0].Role != status.RoleStaff {
		t.Fatalf("role header not propagated: %+v", calls)
	}
}

var _ handlers.PipelineFacade = (*testhelpers.PipelineFacadeStub)(nil)
