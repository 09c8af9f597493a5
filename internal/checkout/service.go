package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/archivobordado/bordado-backend/internal/orders"
	"github.com/archivobordado/bordado-backend/pkg/config"
	"github.com/archivobordado/bordado-backend/pkg/db/models"
	"github.com/archivobordado/bordado-backend/pkg/enums"
	pkgerrors "github.com/archivobordado/bordado-backend/pkg/errors"
	"github.com/archivobordado/bordado-backend/pkg/logger"
	"github.com/archivobordado/bordado-backend/pkg/mercadopago"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service turns a cart into a pending order and opens the matching payment
// path.
type Service interface {
	CreatePreferenceCheckout(ctx context.Context, input CheckoutInput) (*PreferenceCheckoutResult, error)
	CreateTransferCheckout(ctx context.Context, input CheckoutInput) (*orders.OrderDTO, error)
}

// CheckoutInput is the validated buyer payload shared by both payment paths.
type CheckoutInput struct {
	CustomerEmail string
	CustomerName  *string
	MatrixIDs     []uuid.UUID
}

// PreferenceCheckoutResult carries the created order plus the gateway
// redirect the buyer must follow.
type PreferenceCheckoutResult struct {
	Order        orders.OrderDTO `json:"order"`
	PreferenceID string          `json:"preference_id"`
	InitPoint    string          `json:"init_point"`
}

type matrixReader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Matrix, error)
}

type preferenceCreator interface {
	CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
}

type orderStore interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	SetPreferenceID(ctx context.Context, id uuid.UUID, preferenceID string) error
}

type service struct {
	orderRepo orderStore
	matrices  matrixReader
	gateway   preferenceCreator
	appCfg    config.AppConfig
	logg      *logger.Logger
}

// NewService constructs the checkout service.
func NewService(orderRepo orderStore, matrices matrixReader, gateway preferenceCreator, appCfg config.AppConfig, logg *logger.Logger) (Service, error) {
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if matrices == nil {
		return nil, fmt.Errorf("matrix reader required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orderRepo: orderRepo,
		matrices:  matrices,
		gateway:   gateway,
		appCfg:    appCfg,
		logg:      logg,
	}, nil
}

// CreatePreferenceCheckout creates a pending order and opens a Mercado Pago
// checkout session for it. The order survives a gateway failure so the
// buyer can retry payment; reconciliation keys off the order id.
func (s *service) CreatePreferenceCheckout(ctx context.Context, input CheckoutInput) (*PreferenceCheckoutResult, error) {
	order, err := s.createPendingOrder(ctx, input, enums.PaymentMethodMercadoPago)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	items := make([]mercadopago.PreferenceItem, len(order.Items))
	for i, item := range order.Items {
		items[i] = mercadopago.PreferenceItem{
			ID:        item.MatrixID.String(),
			Title:     item.Title,
			Quantity:  1,
			UnitPrice: item.Price,
		}
	}

	req := mercadopago.PreferenceRequest{
		ExternalReference: order.ID.String(),
		Items:             items,
		PayerEmail:        order.CustomerEmail,
		SuccessURL:        s.storefrontURL("/gracias"),
		FailureURL:        s.storefrontURL("/error-pago"),
		PendingURL:        s.storefrontURL("/pago-pendiente"),
	}
	if order.CustomerName != nil {
		req.PayerName = *order.CustomerName
	}
	if s.appCfg.APIURL != "" {
		req.NotificationURL = strings.TrimRight(s.appCfg.APIURL, "/") + "/api/v1/webhooks/mercadopago"
	}

	pref, err := s.gateway.CreatePreference(ctx, req)
	if err != nil {
		s.logg.Warn(ctx, "gateway rejected checkout preference, order left pending")
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout preference")
	}

	if err := s.orderRepo.SetPreferenceID(ctx, order.ID, pref.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist preference id")
	}
	prefID := pref.ID
	order.MPPreferenceID = &prefID

	return &PreferenceCheckoutResult{
		Order:        *orders.NewOrderDTO(order),
		PreferenceID: pref.ID,
		InitPoint:    pref.InitPoint,
	}, nil
}

// CreateTransferCheckout records a pending order the buyer will settle by
// bank transfer; an admin approves it once the deposit shows up.
func (s *service) CreateTransferCheckout(ctx context.Context, input CheckoutInput) (*orders.OrderDTO, error) {
	order, err := s.createPendingOrder(ctx, input, enums.PaymentMethodTransfer)
	if err != nil {
		return nil, err
	}
	return orders.NewOrderDTO(order), nil
}

func (s *service) createPendingOrder(ctx context.Context, input CheckoutInput, method enums.PaymentMethod) (*models.Order, error) {
	email := strings.TrimSpace(strings.ToLower(input.CustomerEmail))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	if len(input.MatrixIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout requires at least one matrix")
	}

	ids := dedupeIDs(input.MatrixIDs)
	matrices, err := s.matrices.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load matrices")
	}
	if len(matrices) != len(ids) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "one or more matrices no longer exist")
	}

	// Totals always come from catalog prices at the moment of checkout, never
	// from the client payload.
	total := decimal.Zero
	items := make([]models.OrderItem, len(matrices))
	for i, matrix := range matrices {
		total = total.Add(matrix.Price)
		items[i] = models.OrderItem{
			MatrixID: matrix.ID,
			Title:    matrix.Title,
			Price:    matrix.Price,
		}
	}

	order := &models.Order{
		CustomerEmail: email,
		CustomerName:  normalizeName(input.CustomerName),
		Total:         total,
		Status:        enums.OrderStatusPending,
		PaymentMethod: method,
		Items:         items,
	}

	created, err := s.orderRepo.Create(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
	}

	return created, nil
}

func (s *service) storefrontURL(path string) string {
	return strings.TrimRight(s.appCfg.PublicURL, "/") + path
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func normalizeName(name *string) *string {
	if name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
