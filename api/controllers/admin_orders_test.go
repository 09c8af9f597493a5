package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/archivobordado/bordado-backend/internal/orders"
	pkgerrors "github.com/archivobordado/bordado-backend/pkg/errors"
)

type stubOrdersService struct {
	list     *orders.OrderListResult
	order    *orders.OrderDTO
	err      error
	gotInput orders.ListOrdersInput
	approved []uuid.UUID
	resent   []uuid.UUID
}

func (s *stubOrdersService) ListOrders(ctx context.Context, input orders.ListOrdersInput) (*orders.OrderListResult, error) {
	s.gotInput = input
	return s.list, s.err
}

func (s *stubOrdersService) GetOrder(ctx context.Context, id uuid.UUID) (*orders.OrderDTO, error) {
	return s.order, s.err
}

func (s *stubOrdersService) ApproveTransferOrder(ctx context.Context, id uuid.UUID) (*orders.OrderDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.approved = append(s.approved, id)
	return s.order, nil
}

func (s *stubOrdersService) ResendFulfillmentEmail(ctx context.Context, id uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.resent = append(s.resent, id)
	return nil
}

func adminOrdersRouter(svc orders.Service) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/admin/v1/orders", AdminListOrders(svc, nil))
	r.Get("/api/admin/v1/orders/{orderId}", AdminOrderDetail(svc, nil))
	r.Post("/api/admin/v1/orders/{orderId}/approve-transfer", AdminApproveTransfer(svc, nil))
	r.Post("/api/admin/v1/orders/{orderId}/resend-email", AdminResendFulfillment(svc, nil))
	return r
}

func TestAdminListOrdersForwardsFilters(t *testing.T) {
	svc := &stubOrdersService{list: &orders.OrderListResult{Items: []orders.OrderDTO{}}}
	router := adminOrdersRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?status=pending&payment_method=transfer&limit=5", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.gotInput.Status == nil || *svc.gotInput.Status != "pending" {
		t.Fatalf("status filter not forwarded: %+v", svc.gotInput.Status)
	}
	if svc.gotInput.PaymentMethod == nil || *svc.gotInput.PaymentMethod != "transfer" {
		t.Fatalf("payment method filter not forwarded: %+v", svc.gotInput.PaymentMethod)
	}
	if svc.gotInput.Pagination.Limit != 5 {
		t.Fatalf("limit not forwarded: %d", svc.gotInput.Pagination.Limit)
	}
}

func TestAdminListOrdersRejectsUnknownStatus(t *testing.T) {
	router := adminOrdersRouter(&stubOrdersService{})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?status=shipped", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminOrderDetail(t *testing.T) {
	order := &orders.OrderDTO{ID: uuid.New(), Total: decimal.NewFromInt(6700), Status: "approved"}
	router := adminOrdersRouter(&stubOrdersService{order: order})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders/"+order.ID.String(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data orders.OrderDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != order.ID {
		t.Fatalf("unexpected order id %s", envelope.Data.ID)
	}
}

func TestAdminApproveTransfer(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{order: &orders.OrderDTO{ID: orderID, Status: "approved", PaymentMethod: "transfer"}}
	router := adminOrdersRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/"+orderID.String()+"/approve-transfer", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(svc.approved) != 1 || svc.approved[0] != orderID {
		t.Fatalf("approve not forwarded: %v", svc.approved)
	}
}

func TestAdminApproveTransferStateConflict(t *testing.T) {
	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "order already approved")}
	router := adminOrdersRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/"+uuid.NewString()+"/approve-transfer", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestAdminResendFulfillment(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{}
	router := adminOrdersRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/"+orderID.String()+"/resend-email", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(svc.resent) != 1 || svc.resent[0] != orderID {
		t.Fatalf("resend not forwarded: %v", svc.resent)
	}
}

func TestAdminOrderDetailBadID(t *testing.T) {
	router := adminOrdersRouter(&stubOrdersService{})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders/not-a-uuid", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
