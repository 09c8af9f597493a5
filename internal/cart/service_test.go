package cart

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/archivobordado/bordado-backend/pkg/db/models"
	pkgerrors "github.com/archivobordado/bordado-backend/pkg/errors"
	"github.com/archivobordado/bordado-backend/pkg/logger"
	redisclient "github.com/archivobordado/bordado-backend/pkg/redis"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = value.(string)
	return nil
}

func (f *fakeStore) Get(ctx context.Context, key string) (string, error) {
	val, ok := f.data[key]
	if !ok {
		return "", redisclient.Nil
	}
	return val, nil
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

type fakeKeyer struct{}

func (fakeKeyer) CartKey(token string) string {
	return "bordado:cart:" + token
}

type fakeMatrixReader struct {
	rows map[uuid.UUID]models.Matrix
}

func (f *fakeMatrixReader) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Matrix, error) {
	var out []models.Matrix
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func testService(store *fakeStore, reader *fakeMatrixReader) *service {
	return &service{
		store:    store,
		keyer:    fakeKeyer{},
		matrices: reader,
		ttl:      time.Hour,
		logg:     logger.New(logger.Options{ServiceName: "cart-test", Level: zerolog.ErrorLevel, Output: io.Discard}),
	}
}

func seedCatalog() (*fakeMatrixReader, uuid.UUID, uuid.UUID) {
	rosaID, mariposaID := uuid.New(), uuid.New()
	return &fakeMatrixReader{rows: map[uuid.UUID]models.Matrix{
		rosaID:     {ID: rosaID, Title: "Rosa", Slug: "rosa", Price: decimal.NewFromInt(3500)},
		mariposaID: {ID: mariposaID, Title: "Mariposa", Slug: "mariposa", Price: decimal.NewFromInt(3200)},
	}}, rosaID, mariposaID
}

func TestAddIsIdempotentPerMatrix(t *testing.T) {
	reader, rosaID, _ := seedCatalog()
	svc := testService(newFakeStore(), reader)
	token := NewCartToken()

	for i := 0; i < 3; i++ {
		if _, err := svc.Add(context.Background(), token, rosaID); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	dto, err := svc.Get(context.Background(), token)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(dto.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(dto.Items))
	}
	if !dto.Total.Equal(decimal.NewFromInt(3500)) {
		t.Fatalf("expected total 3500, got %s", dto.Total)
	}
}

func TestCartTotalsSumCatalogPrices(t *testing.T) {
	reader, rosaID, mariposaID := seedCatalog()
	svc := testService(newFakeStore(), reader)
	token := NewCartToken()

	if _, err := svc.Add(context.Background(), token, rosaID); err != nil {
		t.Fatalf("add rosa: %v", err)
	}
	dto, err := svc.Add(context.Background(), token, mariposaID)
	if err != nil {
		t.Fatalf("add mariposa: %v", err)
	}
	if !dto.Total.Equal(decimal.NewFromInt(6700)) {
		t.Fatalf("expected total 6700, got %s", dto.Total)
	}
}

func TestRemoveAndClear(t *testing.T) {
	reader, rosaID, mariposaID := seedCatalog()
	store := newFakeStore()
	svc := testService(store, reader)
	token := NewCartToken()

	svc.Add(context.Background(), token, rosaID)
	svc.Add(context.Background(), token, mariposaID)

	dto, err := svc.Remove(context.Background(), token, rosaID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(dto.Items) != 1 || dto.Items[0].Matrix.ID != mariposaID {
		t.Fatalf("expected only mariposa left, got %+v", dto.Items)
	}

	if err := svc.Clear(context.Background(), token); err != nil {
		t.Fatalf("clear: %v", err)
	}
	dto, err = svc.Get(context.Background(), token)
	if err != nil {
		t.Fatalf("get after clear: %v", err)
	}
	if len(dto.Items) != 0 || !dto.Total.IsZero() {
		t.Fatalf("expected empty cart, got %+v", dto)
	}
}

func TestAddUnknownMatrix(t *testing.T) {
	reader, _, _ := seedCatalog()
	svc := testService(newFakeStore(), reader)

	_, err := svc.Add(context.Background(), NewCartToken(), uuid.New())
	if err == nil {
		t.Fatal("expected error for unknown matrix")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCorruptPayloadResetsCart(t *testing.T) {
	reader, rosaID, _ := seedCatalog()
	store := newFakeStore()
	svc := testService(store, reader)
	token := NewCartToken()

	store.data[fakeKeyer{}.CartKey(token)] = "{not json"

	dto, err := svc.Get(context.Background(), token)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(dto.Items) != 0 {
		t.Fatalf("expected corrupt cart treated as empty, got %+v", dto.Items)
	}

	// the cart stays usable after the reset
	dto, err = svc.Add(context.Background(), token, rosaID)
	if err != nil {
		t.Fatalf("add after reset: %v", err)
	}
	if len(dto.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(dto.Items))
	}
}

func TestDeletedMatrixDropsFromCart(t *testing.T) {
	reader, rosaID, mariposaID := seedCatalog()
	svc := testService(newFakeStore(), reader)
	token := NewCartToken()

	svc.Add(context.Background(), token, rosaID)
	svc.Add(context.Background(), token, mariposaID)

	delete(reader.rows, rosaID)

	dto, err := svc.Get(context.Background(), token)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(dto.Items) != 1 || dto.Items[0].Matrix.ID != mariposaID {
		t.Fatalf("expected rosa dropped, got %+v", dto.Items)
	}
	if !dto.Total.Equal(decimal.NewFromInt(3200)) {
		t.Fatalf("expected total 3200, got %s", dto.Total)
	}
}

func TestTokenValidation(t *testing.T) {
	reader, _, _ := seedCatalog()
	svc := testService(newFakeStore(), reader)

	for _, token := range []string{"", "  ", "not-a-uuid"} {
		_, err := svc.Get(context.Background(), token)
		if err == nil {
			t.Fatalf("expected error for token %q", token)
		}
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %q, got %v", token, err)
		}
	}
}
