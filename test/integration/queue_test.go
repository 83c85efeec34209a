//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"dinebot/pkg/model"
	"dinebot/pkg/queue"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// newRedisClient returns a client and a unique key namespace that is wiped
// when the test ends.
func newRedisClient(t *testing.T) (*redis.Client, string) {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("failed to ping Redis: %v", err)
	}

	name := "dinebot-test:" + uuid.NewString()
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := rdb.Keys(ctx, name+":*").Result()
		if len(keys) > 0 {
			rdb.Del(ctx, keys...)
		}
		rdb.Close()
	})
	return rdb, name
}

func newRedisQueue(t *testing.T, visibility time.Duration) *queue.RedisQueue {
	t.Helper()
	rdb, name := newRedisClient(t)
	return queue.NewRedisQueue(rdb, name, visibility)
}

func request() *model.BookingRequest {
	return &model.BookingRequest{
		Location:    "New York",
		Cuisine:     "korean",
		PartySize:   2,
		DiningDate:  "2026-03-12",
		DiningTime:  "19:30",
		PhoneNumber: "2125550123",
	}
}

func TestRedisQueue_ReceiveAcknowledge(t *testing.T) {
	q := newRedisQueue(t, 30*time.Second)
	ctx := context.Background()

	if err := q.Enqueue(ctx, request()); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	d, err := q.ReceiveOne(ctx, time.Second)
	if err != nil {
		t.Fatalf("ReceiveOne() error = %v", err)
	}
	got, err := model.BookingRequestFromAttributes(d.Attributes)
	if err != nil || *got != *request() {
		t.Fatalf("got %+v, %v", got, err)
	}
	if d.ReceiveCount != 1 {
		t.Errorf("ReceiveCount = %d", d.ReceiveCount)
	}

	if _, err := q.ReceiveOne(ctx, 200*time.Millisecond); !errors.Is(err, queue.ErrNoMessage) {
		t.Errorf("expected in-flight message hidden, got %v", err)
	}

	if err := q.Acknowledge(ctx, d.Token); err != nil {
		t.Fatalf("Acknowledge() error = %v", err)
	}
	if err := q.Acknowledge(ctx, d.Token); !errors.Is(err, queue.ErrUnknownToken) {
		t.Errorf("expected second acknowledge rejected, got %v", err)
	}
}

func TestRedisQueue_RedeliversAfterVisibilityWindow(t *testing.T) {
	q := newRedisQueue(t, 300*time.Millisecond)
	ctx := context.Background()
	_ = q.Enqueue(ctx, request())

	first, err := q.ReceiveOne(ctx, time.Second)
	if err != nil {
		t.Fatalf("ReceiveOne() error = %v", err)
	}

	second, err := q.ReceiveOne(ctx, 2*time.Second)
	if err != nil {
		t.Fatalf("expected redelivery, got %v", err)
	}
	if second.MessageID != first.MessageID || second.ReceiveCount != 2 {
		t.Errorf("unexpected redelivery: %+v", second)
	}
	if err := q.Acknowledge(ctx, first.Token); !errors.Is(err, queue.ErrUnknownToken) {
		t.Errorf("expected stale token rejected, got %v", err)
	}
	if err := q.Acknowledge(ctx, second.Token); err != nil {
		t.Errorf("Acknowledge() error = %v", err)
	}
}
