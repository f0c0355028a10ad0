package redisstock

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	domain "github.com/pharmakart/pharmakart/internal/domain/medicine"
)

const stockKeyPrefix = "stock:"

// decrementScript checks and decrements in one round trip so concurrent
// orders for the same medicine serialize inside Redis.
var decrementScript = redis.NewScript(`
local key = KEYS[1]
local quantity = tonumber(ARGV[1])

local current = redis.call('GET', key)
if not current then
	return -1
end

current = tonumber(current)
if current >= quantity then
	redis.call('DECRBY', key, quantity)
	return 1
end

return 0
`)

// Guard fronts a durable medicine repository with a Redis stock counter.
// The counter takes the oversell check off the database hot path; the
// durable ledger below stays the system of record and is decremented only
// after the guard admits the request.
type Guard struct {
	client *redis.Client
	inner  domain.Repository
}

func NewGuard(client *redis.Client, inner domain.Repository) *Guard {
	return &Guard{client: client, inner: inner}
}

func (g *Guard) FindByID(ctx context.Context, id string) (*domain.Medicine, error) {
	return g.inner.FindByID(ctx, id)
}

func (g *Guard) Save(ctx context.Context, m *domain.Medicine) error {
	if err := g.inner.Save(ctx, m); err != nil {
		return err
	}
	return g.client.Set(ctx, stockKeyPrefix+m.ID, m.Stock, 0).Err()
}

func (g *Guard) DecrementStock(ctx context.Context, id string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	admitted, err := decrementScript.Run(ctx, g.client, []string{stockKeyPrefix + id}, quantity).Int()
	if err != nil {
		return fmt.Errorf("redis stock check: %w", err)
	}

	switch admitted {
	case 1:
		// fall through to the durable ledger
	case 0:
		return domain.ErrInsufficientStock
	default:
		// Counter not seeded for this medicine; the durable ledger's
		// conditional decrement still protects against oversell.
	}

	if err := g.inner.DecrementStock(ctx, id, quantity); err != nil {
		if admitted == 1 {
			if rbErr := g.client.IncrBy(ctx, stockKeyPrefix+id, int64(quantity)).Err(); rbErr != nil {
				return fmt.Errorf("durable decrement failed (%w), redis rollback failed: %v", err, rbErr)
			}
		}
		return err
	}
	return nil
}

func (g *Guard) IncrementStock(ctx context.Context, id string, quantity int) error {
	if err := g.inner.IncrementStock(ctx, id, quantity); err != nil {
		return err
	}
	return g.client.IncrBy(ctx, stockKeyPrefix+id, int64(quantity)).Err()
}

// SeedStock mirrors the durable stock count into Redis for one medicine.
func (g *Guard) SeedStock(ctx context.Context, id string) error {
	m, err := g.inner.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return g.client.Set(ctx, stockKeyPrefix+id, m.Stock, 0).Err()
}
