package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"dinebot/pkg/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	fieldReceipt      = "_receipt"
	fieldReceiveCount = "_receive_count"

	defaultRedisPollInterval = 100 * time.Millisecond
)

// Keys: <name>:pending is a list of message ids, <name>:inflight a sorted set
// of ids scored by visibility deadline (unix ms), <name>:msg:<id> a hash of
// attributes plus bookkeeping fields.
var (
	// KEYS: pending, inflight. ARGV: now ms.
	reapScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1])
for _, id in ipairs(ids) do
  redis.call('ZREM', KEYS[2], id)
  redis.call('RPUSH', KEYS[1], id)
end
return #ids
`)

	// KEYS: pending, inflight. ARGV: deadline ms, receipt, message key prefix.
	receiveScript = redis.NewScript(`
while true do
  local id = redis.call('RPOP', KEYS[1])
  if not id then return false end
  local key = ARGV[3] .. id
  if redis.call('EXISTS', key) == 1 then
    redis.call('ZADD', KEYS[2], ARGV[1], id)
    redis.call('HSET', key, '_receipt', ARGV[2])
    redis.call('HINCRBY', key, '_receive_count', 1)
    return {id, redis.call('HGETALL', key)}
  end
end
`)

	// KEYS: pending, inflight. ARGV: id, receipt, message key prefix.
	ackScript = redis.NewScript(`
local key = ARGV[3] .. ARGV[1]
if redis.call('HGET', key, '_receipt') ~= ARGV[2] then return 0 end
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('LREM', KEYS[1], 0, ARGV[1])
redis.call('DEL', key)
return 1
`)
)

// RedisQueue is a visibility-timeout queue on plain Redis data structures.
// Every state change runs in a Lua script, so concurrent receivers in any
// number of processes never hand the same message to two callers inside one
// visibility window.
type RedisQueue struct {
	rdb          redis.Cmdable
	name         string
	visibility   time.Duration
	pollInterval time.Duration
	now          func() time.Time
}

func NewRedisQueue(rdb redis.Cmdable, name string, visibility time.Duration) *RedisQueue {
	return &RedisQueue{
		rdb:          rdb,
		name:         name,
		visibility:   visibility,
		pollInterval: defaultRedisPollInterval,
		now:          time.Now,
	}
}

func (q *RedisQueue) pendingKey() string  { return q.name + ":pending" }
func (q *RedisQueue) inflightKey() string { return q.name + ":inflight" }
func (q *RedisQueue) msgPrefix() string   { return q.name + ":msg:" }

func (q *RedisQueue) Enqueue(ctx context.Context, req *model.BookingRequest) error {
	id := uuid.NewString()
	attrs := req.Attributes()

	values := make([]any, 0, len(attrs)*2)
	for k, v := range attrs {
		values = append(values, k, v)
	}

	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.msgPrefix()+id, values...)
		pipe.LPush(ctx, q.pendingKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue request %s: %w", id, err)
	}
	return nil
}

func (q *RedisQueue) ReceiveOne(ctx context.Context, wait time.Duration) (*Delivery, error) {
	deadline := time.Now().Add(wait)
	keys := []string{q.pendingKey(), q.inflightKey()}

	for {
		now := q.now()
		if err := reapScript.Run(ctx, q.rdb, keys, now.UnixMilli()).Err(); err != nil {
			return nil, fmt.Errorf("requeue expired messages: %w", err)
		}

		receipt := uuid.NewString()
		res, err := receiveScript.Run(ctx, q.rdb, keys,
			now.Add(q.visibility).UnixMilli(), receipt, q.msgPrefix()).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return nil, fmt.Errorf("receive message: %w", err)
		default:
			return decodeRedisDelivery(res, receipt)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrNoMessage
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(min(q.pollInterval, remaining)):
		}
	}
}

func decodeRedisDelivery(res any, receipt string) (*Delivery, error) {
	parts, ok := res.([]any)
	if !ok || len(parts) != 2 {
		return nil, fmt.Errorf("%w: unexpected receive reply %T", ErrMalformedMessage, res)
	}
	id, ok := parts[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: message id is %T", ErrMalformedMessage, parts[0])
	}
	fields, ok := parts[1].([]any)
	if !ok || len(fields)%2 != 0 {
		return nil, fmt.Errorf("%w: message %s has a malformed field list", ErrMalformedMessage, id)
	}

	d := &Delivery{
		MessageID:  id,
		Token:      id + ":" + receipt,
		Attributes: make(map[string]string, len(fields)/2),
	}
	for i := 0; i < len(fields); i += 2 {
		k, _ := fields[i].(string)
		v, _ := fields[i+1].(string)
		switch k {
		case fieldReceipt:
		case fieldReceiveCount:
			d.ReceiveCount, _ = strconv.Atoi(v)
		default:
			d.Attributes[k] = v
		}
	}
	return d, nil
}

func (q *RedisQueue) Acknowledge(ctx context.Context, token string) error {
	id, receipt, ok := strings.Cut(token, ":")
	if !ok || id == "" || receipt == "" {
		return ErrUnknownToken
	}

	n, err := ackScript.Run(ctx, q.rdb,
		[]string{q.pendingKey(), q.inflightKey()},
		id, receipt, q.msgPrefix()).Int()
	if err != nil {
		return fmt.Errorf("acknowledge message %s: %w", id, err)
	}
	if n == 0 {
		return ErrUnknownToken
	}
	return nil
}
