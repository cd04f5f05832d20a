package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisTransport is the shared queue backend. Layout:
//
//   - <prefix>:main       LIST of ready task envelopes
//   - <prefix>:delayed    ZSET of envelopes scored by ready-at (unix ms)
//   - <prefix>:pending    HASH delivery id -> envelope, for unsettled deliveries
//   - <prefix>:deadlines  ZSET of delivery ids scored by visibility deadline
//
// ReceiveAll promotes due delayed tasks and expired pending deliveries back to
// the main list before popping a batch, which gives at-least-once semantics
// without a server-side reaper.
type RedisTransport struct {
	db redis.UniversalClient

	mainKey      string
	delayedKey   string
	pendingKey   string
	deadlinesKey string

	pollInterval      time.Duration
	batchSize         int
	visibilityTimeout time.Duration
}

type redisEnvelope struct {
	ID      uuid.UUID       `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// NewRedisTransport wraps an established Redis client in the queue contract.
func NewRedisTransport(client redis.UniversalClient, cfg Config) *RedisTransport {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "hookrelay"
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 20
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	visibility := cfg.VisibilityTimeout
	if visibility <= 0 {
		visibility = 3 * time.Minute
	}

	return &RedisTransport{
		db:                client,
		mainKey:           prefix + ":main",
		delayedKey:        prefix + ":delayed",
		pendingKey:        prefix + ":pending",
		deadlinesKey:      prefix + ":deadlines",
		pollInterval:      poll,
		batchSize:         batch,
		visibilityTimeout: visibility,
	}
}

func (t *RedisTransport) Send(ctx context.Context, payload []byte, delay time.Duration) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}

	raw, err := json.Marshal(redisEnvelope{ID: uuid.New(), Payload: payload})
	if err != nil {
		return err
	}

	if delay <= 0 {
		return t.db.LPush(ctx, t.mainKey, raw).Err()
	}

	readyAt := float64(time.Now().Add(delay).UnixMilli())
	return t.db.ZAdd(ctx, t.delayedKey, redis.Z{Score: readyAt, Member: string(raw)}).Err()
}

func (t *RedisTransport) Ack(ctx context.Context, d Delivery) error {
	pipe := t.db.TxPipeline()
	del := pipe.HDel(ctx, t.pendingKey, d.ID.String())
	pipe.ZRem(ctx, t.deadlinesKey, d.ID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	if del.Val() == 0 {
		return ErrUnknownDelivery
	}
	return nil
}

func (t *RedisTransport) Nack(ctx context.Context, d Delivery) error {
	raw, err := t.db.HGet(ctx, t.pendingKey, d.ID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return ErrUnknownDelivery
	}
	if err != nil {
		return err
	}

	pipe := t.db.TxPipeline()
	pipe.HDel(ctx, t.pendingKey, d.ID.String())
	pipe.ZRem(ctx, t.deadlinesKey, d.ID.String())
	pipe.LPush(ctx, t.mainKey, raw)
	_, err = pipe.Exec(ctx)
	return err
}

func (t *RedisTransport) ReceiveAll(ctx context.Context) ([]Delivery, error) {
	for {
		if err := t.promoteDue(ctx); err != nil {
			return nil, err
		}
		if err := t.requeueExpired(ctx); err != nil {
			return nil, err
		}

		batch, err := t.popBatch(ctx, t.batchSize)
		if err != nil {
			return nil, err
		}
		if len(batch) > 0 {
			return batch, nil
		}

		// Block on the main list up to the poll interval so due delayed tasks
		// and expired deliveries are still promoted in a timely manner.
		raw, err := t.db.BRPop(ctx, t.pollInterval, t.mainKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		// BRPop returns [key, value].
		d, err := t.claim(ctx, raw[1])
		if err != nil {
			return nil, err
		}

		rest, err := t.popBatch(ctx, t.batchSize-1)
		if err != nil {
			return nil, err
		}
		return append([]Delivery{d}, rest...), nil
	}
}

// popBatch pops up to limit ready tasks without blocking.
func (t *RedisTransport) popBatch(ctx context.Context, limit int) ([]Delivery, error) {
	var out []Delivery
	for len(out) < limit {
		raw, err := t.db.RPop(ctx, t.mainKey).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return nil, err
		}
		d, err := t.claim(ctx, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// claim marks a popped envelope as pending and returns its delivery.
func (t *RedisTransport) claim(ctx context.Context, raw string) (Delivery, error) {
	var env redisEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Delivery{}, err
	}

	deadline := float64(time.Now().Add(t.visibilityTimeout).UnixMilli())
	pipe := t.db.TxPipeline()
	pipe.HSet(ctx, t.pendingKey, env.ID.String(), raw)
	pipe.ZAdd(ctx, t.deadlinesKey, redis.Z{Score: deadline, Member: env.ID.String()})
	if _, err := pipe.Exec(ctx); err != nil {
		return Delivery{}, err
	}

	return Delivery{ID: env.ID, Payload: env.Payload}, nil
}

// promoteDue moves delayed tasks whose ready-at has passed onto the main list.
func (t *RedisTransport) promoteDue(ctx context.Context) error {
	now := float64(time.Now().UnixMilli())
	due, err := t.db.ZRangeByScore(ctx, t.delayedKey, &redis.ZRangeBy{
		Min: "-inf", Max: formatFloat(now), Count: int64(t.batchSize),
	}).Result()
	if err != nil {
		return err
	}

	for _, raw := range due {
		// ZRem first: only the remover may push, so two workers promoting the
		// same member cannot double-deliver it.
		removed, err := t.db.ZRem(ctx, t.delayedKey, raw).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		if err := t.db.LPush(ctx, t.mainKey, raw).Err(); err != nil {
			return err
		}
	}
	return nil
}

// requeueExpired returns pending deliveries whose visibility deadline lapsed
// to the main list.
func (t *RedisTransport) requeueExpired(ctx context.Context) error {
	now := float64(time.Now().UnixMilli())
	expired, err := t.db.ZRangeByScore(ctx, t.deadlinesKey, &redis.ZRangeBy{
		Min: "-inf", Max: formatFloat(now), Count: int64(t.batchSize),
	}).Result()
	if err != nil {
		return err
	}

	for _, id := range expired {
		removed, err := t.db.ZRem(ctx, t.deadlinesKey, id).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		raw, err := t.db.HGet(ctx, t.pendingKey, id).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return err
		}
		pipe := t.db.TxPipeline()
		pipe.HDel(ctx, t.pendingKey, id)
		pipe.LPush(ctx, t.mainKey, raw)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
