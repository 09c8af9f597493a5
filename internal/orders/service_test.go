package orders

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/archivobordado/bordado-backend/pkg/db/models"
	"github.com/archivobordado/bordado-backend/pkg/enums"
	pkgerrors "github.com/archivobordado/bordado-backend/pkg/errors"
	"github.com/archivobordado/bordado-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeOrderRepo struct {
	orders   map[uuid.UUID]*models.Order
	approved []uuid.UUID
}

func newFakeOrderRepo(orders ...*models.Order) *fakeOrderRepo {
	repo := &fakeOrderRepo{orders: make(map[uuid.UUID]*models.Order)}
	for _, order := range orders {
		repo.orders[order.ID] = order
	}
	return repo
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if order, ok := f.orders[id]; ok {
		return order, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrderRepo) SetPreferenceID(ctx context.Context, id uuid.UUID, preferenceID string) error {
	return nil
}

func (f *fakeOrderRepo) MarkApproved(ctx context.Context, id uuid.UUID, paymentID *string) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	order.Status = enums.OrderStatusApproved
	if paymentID != nil {
		order.MPPaymentID = paymentID
	}
	f.approved = append(f.approved, id)
	return order, nil
}

func (f *fakeOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.orders, id)
	return nil
}

func (f *fakeOrderRepo) List(ctx context.Context, input ListOrdersInput) (*OrderListResult, error) {
	result := &OrderListResult{}
	for _, order := range f.orders {
		result.Items = append(result.Items, *NewOrderDTO(order))
	}
	return result, nil
}

type fakeFulfiller struct {
	sent []uuid.UUID
	err  error
}

func (f *fakeFulfiller) SendOrderFiles(ctx context.Context, orderID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, orderID)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "orders-test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func pendingTransferOrder() *models.Order {
	name := "Ana"
	return &models.Order{
		ID:            uuid.New(),
		CustomerEmail: "ana@example.com",
		CustomerName:  &name,
		Total:         decimal.NewFromInt(6700),
		Status:        enums.OrderStatusPending,
		PaymentMethod: enums.PaymentMethodTransfer,
		Items: []models.OrderItem{
			{ID: uuid.New(), MatrixID: uuid.New(), Title: "Rosa", Price: decimal.NewFromInt(3500)},
			{ID: uuid.New(), MatrixID: uuid.New(), Title: "Mariposa", Price: decimal.NewFromInt(3200)},
		},
	}
}

func TestApproveTransferOrder(t *testing.T) {
	order := pendingTransferOrder()
	repo := newFakeOrderRepo(order)
	fulfillment := &fakeFulfiller{}

	svc, err := NewService(repo, fulfillment, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	dto, err := svc.ApproveTransferOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if dto.Status != "approved" {
		t.Fatalf("expected approved status, got %q", dto.Status)
	}
	if len(repo.approved) != 1 || repo.approved[0] != order.ID {
		t.Fatalf("expected repo approval recorded")
	}
	if len(fulfillment.sent) != 1 || fulfillment.sent[0] != order.ID {
		t.Fatalf("expected fulfillment email triggered")
	}
}

func TestApproveTransferOrderRejectsGatewayOrders(t *testing.T) {
	order := pendingTransferOrder()
	order.PaymentMethod = enums.PaymentMethodMercadoPago
	repo := newFakeOrderRepo(order)

	svc, _ := NewService(repo, &fakeFulfiller{}, testLogger())

	_, err := svc.ApproveTransferOrder(context.Background(), order.ID)
	if err == nil {
		t.Fatal("expected error for gateway order")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(repo.approved) != 0 {
		t.Fatal("gateway order must not be approved manually")
	}
}

func TestApproveTransferOrderRejectsAlreadyApproved(t *testing.T) {
	order := pendingTransferOrder()
	order.Status = enums.OrderStatusApproved
	repo := newFakeOrderRepo(order)
	fulfillment := &fakeFulfiller{}

	svc, _ := NewService(repo, fulfillment, testLogger())

	_, err := svc.ApproveTransferOrder(context.Background(), order.ID)
	if err == nil {
		t.Fatal("expected error for already approved order")
	}
	if len(fulfillment.sent) != 0 {
		t.Fatal("re-approval must not resend the email")
	}
}

func TestApproveTransferOrderSurvivesEmailFailure(t *testing.T) {
	order := pendingTransferOrder()
	repo := newFakeOrderRepo(order)
	fulfillment := &fakeFulfiller{err: fmt.Errorf("smtp down")}

	svc, _ := NewService(repo, fulfillment, testLogger())

	dto, err := svc.ApproveTransferOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("approval should succeed despite email failure, got %v", err)
	}
	if dto.Status != "approved" {
		t.Fatalf("expected approved status, got %q", dto.Status)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	svc, _ := NewService(newFakeOrderRepo(), &fakeFulfiller{}, testLogger())

	_, err := svc.GetOrder(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected not found error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}

func TestOrderDTOShortNumber(t *testing.T) {
	order := pendingTransferOrder()
	dto := NewOrderDTO(order)

	id := order.ID.String()
	if dto.ShortNumber != id[len(id)-6:] {
		t.Fatalf("expected last six characters of the id, got %q", dto.ShortNumber)
	}
	if len(dto.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(dto.Items))
	}
}
