package queue

import (
	"context"
	"errors"
	"testing"
)

func TestDecodeRedisDelivery(t *testing.T) {
	reply := []any{
		"m1",
		[]any{
			"cuisine", "korean",
			"phone_number", "2125550123",
			fieldReceipt, "r1",
			fieldReceiveCount, "2",
		},
	}

	d, err := decodeRedisDelivery(reply, "r1")
	if err != nil {
		t.Fatalf("decodeRedisDelivery() error = %v", err)
	}
	if d.MessageID != "m1" || d.Token != "m1:r1" || d.ReceiveCount != 2 {
		t.Errorf("unexpected delivery: %+v", d)
	}
	if len(d.Attributes) != 2 || d.Attributes["cuisine"] != "korean" {
		t.Errorf("bookkeeping fields leaked into attributes: %v", d.Attributes)
	}
}

func TestDecodeRedisDelivery_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		reply any
	}{
		{name: "not a list", reply: "m1"},
		{name: "wrong arity", reply: []any{"m1"}},
		{name: "id not a string", reply: []any{int64(1), []any{}}},
		{name: "odd field list", reply: []any{"m1", []any{"cuisine"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeRedisDelivery(tt.reply, "r1"); !errors.Is(err, ErrMalformedMessage) {
				t.Errorf("expected ErrMalformedMessage, got %v", err)
			}
		})
	}
}

func TestRedisQueue_AcknowledgeRejectsMalformedToken(t *testing.T) {
	q := NewRedisQueue(nil, "test", 0)
	for _, token := range []string{"", "no-separator", ":r1", "m1:"} {
		if err := q.Acknowledge(context.Background(), token); !errors.Is(err, ErrUnknownToken) {
			t.Errorf("Acknowledge(%q) = %v, want ErrUnknownToken", token, err)
		}
	}
}
