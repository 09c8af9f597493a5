package mpwebhook

import (
	"context"
	"errors"

	"github.com/archivobordado/bordado-backend/pkg/db/models"
	"github.com/archivobordado/bordado-backend/pkg/enums"
	pkgerrors "github.com/archivobordado/bordado-backend/pkg/errors"
	"github.com/archivobordado/bordado-backend/pkg/logger"
	"github.com/archivobordado/bordado-backend/pkg/mercadopago"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type paymentFetcher interface {
	GetPayment(ctx context.Context, id string) (*mercadopago.Payment, error)
}

type orderStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkApproved(ctx context.Context, id uuid.UUID, paymentID *string) (*models.Order, error)
}

type fulfiller interface {
	SendOrderFiles(ctx context.Context, orderID uuid.UUID) error
}

type guard interface {
	CheckAndMark(ctx context.Context, paymentID string) (bool, error)
	Release(ctx context.Context, paymentID string) error
}

type Service struct {
	gateway     paymentFetcher
	orders      orderStore
	fulfillment fulfiller
	guard       guard
	logg        *logger.Logger
}

func NewService(gateway paymentFetcher, orders orderStore, fulfillment fulfiller, g guard, logg *logger.Logger) (*Service, error) {
	if gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway required")
	}
	if orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order store required")
	}
	if fulfillment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service required")
	}
	if g == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{gateway: gateway, orders: orders, fulfillment: fulfillment, guard: g, logg: logg}, nil
}

// HandlePaymentNotification reconciles a payment against the gateway.
// The notification payload is never trusted, the payment is re-fetched
// from the API and only its status drives the order transition.
func (s *Service) HandlePaymentNotification(ctx context.Context, paymentID string) error {
	if paymentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	ctx = s.logg.WithPaymentID(ctx, paymentID)

	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			s.logg.Warn(ctx, "notification for unknown payment, ignoring")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch payment")
	}

	if !payment.Approved() {
		// pending and rejected payments leave the order as is, the
		// gateway notifies again on the next status change
		s.logg.Info(ctx, "payment not approved yet, no action")
		return nil
	}

	orderID, err := uuid.Parse(payment.ExternalReference)
	if err != nil {
		s.logg.Warn(ctx, "payment carries no usable external reference, ignoring")
		return nil
	}

	duplicate, err := s.guard.CheckAndMark(ctx, paymentID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency check")
	}
	if duplicate {
		s.logg.Info(ctx, "payment already processed, skipping")
		return nil
	}

	if err := s.settle(ctx, orderID, paymentID); err != nil {
		// release so the gateway retry can finish the job
		if relErr := s.guard.Release(ctx, paymentID); relErr != nil {
			s.logg.Error(ctx, "releasing idempotency mark failed", relErr)
		}
		return err
	}
	return nil
}

func (s *Service) settle(ctx context.Context, orderID uuid.UUID, paymentID string) error {
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(ctx, "approved payment references a missing order")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.Status == enums.OrderStatusApproved {
		s.logg.Info(ctx, "order already approved, nothing to settle")
		return nil
	}

	if _, err := s.orders.MarkApproved(ctx, orderID, &paymentID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "approve order")
	}
	s.logg.Info(ctx, "order approved from payment notification")

	if err := s.fulfillment.SendOrderFiles(ctx, orderID); err != nil {
		// the payment settled; delivery failures are retried by hand
		// through the admin resend, never by failing the webhook
		s.logg.Error(ctx, "fulfillment email failed after payment approval", err)
	}
	return nil
}
