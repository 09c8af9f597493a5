package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/archivobordado/bordado-backend/pkg/enums"
	pkgerrors "github.com/archivobordado/bordado-backend/pkg/errors"
	"github.com/archivobordado/bordado-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes admin order management.
type Service interface {
	ListOrders(ctx context.Context, input ListOrdersInput) (*OrderListResult, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	ApproveTransferOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	ResendFulfillmentEmail(ctx context.Context, id uuid.UUID) error
}

type fulfiller interface {
	SendOrderFiles(ctx context.Context, orderID uuid.UUID) error
}

type service struct {
	repo        OrderRepository
	fulfillment fulfiller
	logg        *logger.Logger
}

// NewService constructs the order management service.
func NewService(repo OrderRepository, fulfillment fulfiller, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if fulfillment == nil {
		return nil, fmt.Errorf("fulfillment service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, fulfillment: fulfillment, logg: logg}, nil
}

func (s *service) ListOrders(ctx context.Context, input ListOrdersInput) (*OrderListResult, error) {
	result, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return result, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return NewOrderDTO(order), nil
}

// ApproveTransferOrder settles a bank-transfer order once the admin has
// confirmed the deposit, then delivers the files.
func (s *service) ApproveTransferOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.PaymentMethod != enums.PaymentMethodTransfer {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not a bank transfer")
	}
	if order.Status == enums.OrderStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already approved")
	}

	approved, err := s.repo.MarkApproved(ctx, order.ID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve order")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	if err := s.fulfillment.SendOrderFiles(ctx, order.ID); err != nil {
		// the order is settled either way; delivery can be retried
		s.logg.Error(ctx, "fulfillment email failed after transfer approval", err)
	}

	return NewOrderDTO(approved), nil
}

// ResendFulfillmentEmail re-delivers the files for an approved order.
func (s *service) ResendFulfillmentEmail(ctx context.Context, id uuid.UUID) error {
	return s.fulfillment.SendOrderFiles(ctx, id)
}
