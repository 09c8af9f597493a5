package cart

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/archivobordado/bordado-backend/internal/catalog"
	"github.com/archivobordado/bordado-backend/pkg/config"
	"github.com/archivobordado/bordado-backend/pkg/db/models"
	pkgerrors "github.com/archivobordado/bordado-backend/pkg/errors"
	"github.com/archivobordado/bordado-backend/pkg/logger"
	redisclient "github.com/archivobordado/bordado-backend/pkg/redis"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartDTO is the cart as the storefront renders it. Items carry the
// current catalog price, not the price at the time the item was added.
type CartDTO struct {
	Token string          `json:"token"`
	Items []CartItemDTO   `json:"items"`
	Total decimal.Decimal `json:"total"`
}

type CartItemDTO struct {
	Matrix catalog.MatrixDTO `json:"matrix"`
}

// payload is what actually lives in redis. Only matrix ids are
// persisted; titles and prices are re-read from the catalog on every
// load so stale carts never undercharge.
type payload struct {
	MatrixIDs []uuid.UUID `json:"matrix_ids"`
}

type cartStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type cartKeyer interface {
	CartKey(token string) string
}

type matrixReader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Matrix, error)
}

type Service interface {
	Get(ctx context.Context, token string) (CartDTO, error)
	Add(ctx context.Context, token string, matrixID uuid.UUID) (CartDTO, error)
	Remove(ctx context.Context, token string, matrixID uuid.UUID) (CartDTO, error)
	Clear(ctx context.Context, token string) error
}

type service struct {
	store    cartStore
	keyer    cartKeyer
	matrices matrixReader
	ttl      time.Duration
	logg     *logger.Logger
}

func NewService(client *redisclient.Client, matrices matrixReader, cfg config.CartConfig, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service requires a redis client")
	}
	if matrices == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service requires a matrix reader")
	}
	if cfg.TTL <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart ttl must be positive")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service requires a logger")
	}
	return &service{store: client, keyer: client, matrices: matrices, ttl: cfg.TTL, logg: logg}, nil
}

// NewCartToken mints the opaque token the storefront keeps in a cookie.
func NewCartToken() string {
	return uuid.NewString()
}

func (s *service) Get(ctx context.Context, token string) (CartDTO, error) {
	token, err := normalizeToken(token)
	if err != nil {
		return CartDTO{}, err
	}
	stored, err := s.load(ctx, token)
	if err != nil {
		return CartDTO{}, err
	}
	return s.hydrate(ctx, token, stored)
}

func (s *service) Add(ctx context.Context, token string, matrixID uuid.UUID) (CartDTO, error) {
	token, err := normalizeToken(token)
	if err != nil {
		return CartDTO{}, err
	}
	if matrixID == uuid.Nil {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "matrix id is required")
	}

	rows, err := s.matrices.FindByIDs(ctx, []uuid.UUID{matrixID})
	if err != nil {
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up matrix")
	}
	if len(rows) == 0 {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "matrix not found")
	}

	stored, err := s.load(ctx, token)
	if err != nil {
		return CartDTO{}, err
	}
	// adding the same matrix twice is a no-op, digital files have no
	// quantity
	if !containsID(stored.MatrixIDs, matrixID) {
		stored.MatrixIDs = append(stored.MatrixIDs, matrixID)
		if err := s.save(ctx, token, stored); err != nil {
			return CartDTO{}, err
		}
	}
	return s.hydrate(ctx, token, stored)
}

func (s *service) Remove(ctx context.Context, token string, matrixID uuid.UUID) (CartDTO, error) {
	token, err := normalizeToken(token)
	if err != nil {
		return CartDTO{}, err
	}
	stored, err := s.load(ctx, token)
	if err != nil {
		return CartDTO{}, err
	}

	kept := stored.MatrixIDs[:0]
	for _, id := range stored.MatrixIDs {
		if id != matrixID {
			kept = append(kept, id)
		}
	}
	if len(kept) != len(stored.MatrixIDs) {
		stored.MatrixIDs = kept
		if err := s.save(ctx, token, stored); err != nil {
			return CartDTO{}, err
		}
	}
	return s.hydrate(ctx, token, stored)
}

func (s *service) Clear(ctx context.Context, token string) error {
	token, err := normalizeToken(token)
	if err != nil {
		return err
	}
	if err := s.store.Del(ctx, s.keyer.CartKey(token)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart")
	}
	return nil
}

func (s *service) load(ctx context.Context, token string) (payload, error) {
	raw, err := s.store.Get(ctx, s.keyer.CartKey(token))
	if err == redisclient.Nil {
		return payload{}, nil
	}
	if err != nil {
		return payload{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}

	var stored payload
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		// a corrupt cart is recoverable, start the buyer over instead
		// of failing the page
		s.logg.Warn(s.logg.WithCartToken(ctx, token), "discarding corrupt cart payload")
		return payload{}, nil
	}
	return stored, nil
}

func (s *service) save(ctx context.Context, token string, stored payload) error {
	raw, err := json.Marshal(stored)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding cart")
	}
	if err := s.store.Set(ctx, s.keyer.CartKey(token), string(raw), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart")
	}
	return nil
}

// hydrate resolves persisted ids against the catalog. Matrices removed
// from the catalog since the item was added just disappear from the
// cart.
func (s *service) hydrate(ctx context.Context, token string, stored payload) (CartDTO, error) {
	dto := CartDTO{Token: token, Items: []CartItemDTO{}, Total: decimal.Zero}
	if len(stored.MatrixIDs) == 0 {
		return dto, nil
	}

	rows, err := s.matrices.FindByIDs(ctx, stored.MatrixIDs)
	if err != nil {
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart matrices")
	}
	byID := make(map[uuid.UUID]models.Matrix, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	for _, id := range stored.MatrixIDs {
		row, ok := byID[id]
		if !ok {
			continue
		}
		dto.Items = append(dto.Items, CartItemDTO{Matrix: *catalog.NewMatrixDTO(&row)})
		dto.Total = dto.Total.Add(row.Price)
	}
	return dto, nil
}

func normalizeToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart token is required")
	}
	if _, err := uuid.Parse(token); err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart token is not valid")
	}
	return token, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
