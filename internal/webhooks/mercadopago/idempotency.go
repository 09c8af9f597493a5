package mpwebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/archivobordado/bordado-backend/pkg/redis"
)

// IdempotencyGuard stops a redelivered payment notification from
// sending the fulfillment email twice. Mercado Pago retries webhooks
// until it sees a 2xx, so the guard only marks once the payment is
// actually being processed, and releases on failure so the retry can
// succeed.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark returns true when the payment id was already marked.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, paymentID string) (bool, error) {
	if paymentID == "" {
		return false, errors.New("payment id is required")
	}
	key := g.store.IdempotencyKey(g.scope, paymentID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

func (g *IdempotencyGuard) Release(ctx context.Context, paymentID string) error {
	if paymentID == "" {
		return errors.New("payment id is required")
	}
	key := g.store.IdempotencyKey(g.scope, paymentID)
	return g.store.Del(ctx, key)
}
