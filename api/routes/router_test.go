package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/archivobordado/bordado-backend/internal/auth"
	"github.com/archivobordado/bordado-backend/internal/cart"
	"github.com/archivobordado/bordado-backend/internal/catalog"
	checkoutsvc "github.com/archivobordado/bordado-backend/internal/checkout"
	"github.com/archivobordado/bordado-backend/internal/orders"
	mpwebhook "github.com/archivobordado/bordado-backend/internal/webhooks/mercadopago"
	pkgAuth "github.com/archivobordado/bordado-backend/pkg/auth"
	"github.com/archivobordado/bordado-backend/pkg/config"
	"github.com/archivobordado/bordado-backend/pkg/db/models"
	pkgerrors "github.com/archivobordado/bordado-backend/pkg/errors"
	"github.com/archivobordado/bordado-backend/pkg/logger"
	"github.com/archivobordado/bordado-backend/pkg/mercadopago"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubChecker struct {
	active bool
}

func (c stubChecker) HasSession(ctx context.Context, sessionID string) (bool, error) {
	return c.active, nil
}

type stubCatalogService struct{}

func (stubCatalogService) ListMatrices(ctx context.Context, input catalog.ListMatricesInput) (*catalog.MatrixListResult, error) {
	return &catalog.MatrixListResult{Items: []catalog.MatrixDTO{}}, nil
}

func (stubCatalogService) GetMatrixBySlug(ctx context.Context, slug string) (*catalog.MatrixDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "matrix not found")
}

func (stubCatalogService) RandomMatrix(ctx context.Context, excludeIDs []uuid.UUID) (*catalog.MatrixDTO, error) {
	return nil, nil
}

func (stubCatalogService) CreateMatrix(ctx context.Context, input catalog.CreateMatrixInput) (*catalog.AdminMatrixDTO, error) {
	return &catalog.AdminMatrixDTO{}, nil
}

func (stubCatalogService) UpdateMatrix(ctx context.Context, id uuid.UUID, input catalog.UpdateMatrixInput) (*catalog.AdminMatrixDTO, error) {
	return &catalog.AdminMatrixDTO{}, nil
}

func (stubCatalogService) DeleteMatrix(ctx context.Context, id uuid.UUID) error {
	return nil
}

type stubCartService struct{}

func (stubCartService) Get(ctx context.Context, token string) (cart.CartDTO, error) {
	return cart.CartDTO{Token: token}, nil
}

func (stubCartService) Add(ctx context.Context, token string, matrixID uuid.UUID) (cart.CartDTO, error) {
	return cart.CartDTO{Token: token}, nil
}

func (stubCartService) Remove(ctx context.Context, token string, matrixID uuid.UUID) (cart.CartDTO, error) {
	return cart.CartDTO{Token: token}, nil
}

func (stubCartService) Clear(ctx context.Context, token string) error {
	return nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) CreatePreferenceCheckout(ctx context.Context, input checkoutsvc.CheckoutInput) (*checkoutsvc.PreferenceCheckoutResult, error) {
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "matrices not found")
}

func (stubCheckoutService) CreateTransferCheckout(ctx context.Context, input checkoutsvc.CheckoutInput) (*orders.OrderDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "matrices not found")
}

type stubOrdersService struct{}

func (stubOrdersService) ListOrders(ctx context.Context, input orders.ListOrdersInput) (*orders.OrderListResult, error) {
	return &orders.OrderListResult{Items: []orders.OrderDTO{}}, nil
}

func (stubOrdersService) GetOrder(ctx context.Context, id uuid.UUID) (*orders.OrderDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (stubOrdersService) ApproveTransferOrder(ctx context.Context, id uuid.UUID) (*orders.OrderDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (stubOrdersService) ResendFulfillmentEmail(ctx context.Context, id uuid.UUID) error {
	return nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}

func (stubAuthService) Logout(ctx context.Context, sessionID string) error {
	return nil
}

type stubGateway struct{}

func (stubGateway) GetPayment(ctx context.Context, id string) (*mercadopago.Payment, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
}

type stubOrderStore struct{}

func (stubOrderStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (stubOrderStore) MarkApproved(ctx context.Context, id uuid.UUID, paymentID *string) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

type stubFulfiller struct{}

func (stubFulfiller) SendOrderFiles(ctx context.Context, orderID uuid.UUID) error {
	return nil
}

type stubGuard struct{}

func (stubGuard) CheckAndMark(ctx context.Context, paymentID string) (bool, error) {
	return false, nil
}

func (stubGuard) Release(ctx context.Context, paymentID string) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
			SessionTTLMinutes: 120,
		},
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func newTestRouter(t *testing.T, cfg *config.Config, checker stubChecker) http.Handler {
	t.Helper()

	logg := testLogger()
	webhookSvc, err := mpwebhook.NewService(stubGateway{}, stubOrderStore{}, stubFulfiller{}, stubGuard{}, logg)
	if err != nil {
		t.Fatalf("build webhook service: %v", err)
	}

	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		nil, // redis client, rate limiting disabled in tests
		nil, // storage client, readiness is not exercised here
		checker,
		stubCatalogService{},
		stubCartService{},
		stubCheckoutService{},
		stubOrdersService{},
		stubAuthService{},
		webhookSvc,
	)
}

func buildToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		Email: "admin@archivobordado.com",
		JTI:   uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, testConfig(), stubChecker{active: true})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPublicCatalogRoutes(t *testing.T) {
	router := newTestRouter(t, testConfig(), stubChecker{active: true})

	for _, path := range []string{"/api/v1/matrices", "/api/v1/matrices/random"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 on %s got %d", path, resp.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/matrices/rosa-clasica", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown slug got %d", resp.Code)
	}
}

func TestCartRoutesNeedNoAuth(t *testing.T) {
	router := newTestRouter(t, testConfig(), stubChecker{active: true})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for cart fetch got %d", resp.Code)
	}
	if resp.Header().Get("X-Cart-Token") == "" {
		t.Fatalf("expected a minted cart token header")
	}
}

func TestCheckoutRouteValidatesBody(t *testing.T) {
	router := newTestRouter(t, testConfig(), stubChecker{active: true})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/preference", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed checkout got %d", resp.Code)
	}
}

func TestWebhookRouteIgnoresNonPayment(t *testing.T) {
	router := newTestRouter(t, testConfig(), stubChecker{active: true})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mercadopago?topic=merchant_order&id=55", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for ignored notification got %d", resp.Code)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg, stubChecker{active: true})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}

	authed := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	authed.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, authed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d", resp.Code)
	}
}

func TestAdminRoutesRejectRevokedSession(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg, stubChecker{active: false})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked session got %d", resp.Code)
	}
}

func TestLoginRouteIsMounted(t *testing.T) {
	router := newTestRouter(t, testConfig(), stubChecker{active: true})

	body := `{"email":"admin@archivobordado.com","password":"nope"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 from stub credentials got %d", resp.Code)
	}
}
