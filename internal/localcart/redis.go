package localcart

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/storefront/internal/cart"
)

const DefaultTTL = 7 * 24 * time.Hour

// addScript accumulates a quantity and drops the entry when the result is
// not positive, all in one round trip.
var addScript = redis.NewScript(`
local q = redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[3])
if q <= 0 then
  redis.call('HDEL', KEYS[1], ARGV[1], ARGV[2])
else
  redis.call('HSET', KEYS[1], ARGV[2], ARGV[4])
end
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return q
`)

// setScript replaces the quantity only when the entry exists and returns 0
// otherwise.
var setScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[3], ARGV[2], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

// Redis stores each session cart as one hash with a sliding expiry:
// field q:<product> holds the quantity and t:<product> the update time.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		client: client,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *Redis) For(session string) cart.LocalStore {
	return &redisCart{r: r, key: cartKey(session)}
}

type redisCart struct {
	r   *Redis
	key string
}

func (c *redisCart) Add(ctx context.Context, productID int64, qty int) error {
	q, t := fields(productID)
	err := addScript.Run(ctx, c.r.client, []string{c.key},
		q, t, qty, c.r.now().UnixMilli(), c.r.ttl.Milliseconds(),
	).Err()
	if err != nil {
		return errors.Wrap(err, "redis add")
	}
	return nil
}

func (c *redisCart) SetQuantity(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		return c.Remove(ctx, productID)
	}

	q, t := fields(productID)
	found, err := setScript.Run(ctx, c.r.client, []string{c.key},
		q, t, qty, c.r.now().UnixMilli(), c.r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return errors.Wrap(err, "redis set quantity")
	}
	if found == 0 {
		return cart.ErrEntryNotFound
	}
	return nil
}

func (c *redisCart) Remove(ctx context.Context, productID int64) error {
	q, t := fields(productID)
	if err := c.r.client.HDel(ctx, c.key, q, t).Err(); err != nil {
		return errors.Wrap(err, "redis remove")
	}
	return nil
}

func (c *redisCart) Entries(ctx context.Context) ([]cart.Entry, error) {
	raw, err := c.r.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis entries")
	}
	return parseHash(raw)
}

func (c *redisCart) Drain(ctx context.Context) ([]cart.Entry, error) {
	var all *redis.MapStringStringCmd
	_, err := c.r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		all = pipe.HGetAll(ctx, c.key)
		pipe.Del(ctx, c.key)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "redis drain")
	}
	return parseHash(all.Val())
}

func cartKey(session string) string {
	return fmt.Sprintf("cart:guest:%s", session)
}

func fields(productID int64) (string, string) {
	id := strconv.FormatInt(productID, 10)
	return "q:" + id, "t:" + id
}

func parseHash(raw map[string]string) ([]cart.Entry, error) {
	byID := make(map[int64]cart.Entry, len(raw)/2)
	for field, value := range raw {
		kind, idStr, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parse field %q", field)
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parse value of %q", field)
		}

		e := byID[id]
		e.ProductID = id
		switch kind {
		case "q":
			e.Quantity = int(n)
		case "t":
			e.UpdatedAt = time.UnixMilli(n).UTC()
		}
		byID[id] = e
	}

	out := make([]cart.Entry, 0, len(byID))
	for _, e := range byID {
		if e.Quantity > 0 {
			out = append(out, e)
		}
	}
	cart.SortEntries(out)
	return out, nil
}
