package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	fulfillmenterrors "dinebot/internal/fulfillment/errors"
	restaurantserrors "dinebot/internal/restaurants/errors"
	"dinebot/pkg/logger"
	"dinebot/pkg/model"
	"dinebot/pkg/queue"
)

type mockSearchIndex struct {
	searchFunc func(ctx context.Context, cuisine string) ([]string, error)
	queries    []string
}

func (m *mockSearchIndex) SearchByCuisine(ctx context.Context, cuisine string) ([]string, error) {
	m.queries = append(m.queries, cuisine)
	return m.searchFunc(ctx, cuisine)
}

type mockStore struct {
	findFunc func(ctx context.Context, businessID string) (*model.Restaurant, error)
}

func (m *mockStore) FindByBusinessID(ctx context.Context, businessID string) (*model.Restaurant, error) {
	return m.findFunc(ctx, businessID)
}

type sentMessage struct {
	to   string
	text string
}

type mockNotifier struct {
	mu       sync.Mutex
	sendFunc func(ctx context.Context, to, text string) error
	sent     []sentMessage
}

func (m *mockNotifier) Send(ctx context.Context, to, text string) error {
	if m.sendFunc != nil {
		if err := m.sendFunc(ctx, to, text); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.sent = append(m.sent, sentMessage{to: to, text: text})
	m.mu.Unlock()
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

const visibility = 30 * time.Second

func restaurantIDs(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%02d", prefix, i)
	}
	return ids
}

func indexOf(byCuisine map[string][]string) *mockSearchIndex {
	return &mockSearchIndex{
		searchFunc: func(ctx context.Context, cuisine string) ([]string, error) {
			return byCuisine[cuisine], nil
		},
	}
}

func storeOf(ids []string) *mockStore {
	records := make(map[string]*model.Restaurant, len(ids))
	for _, id := range ids {
		records[id] = &model.Restaurant{
			BusinessID: id,
			Name:       "Restaurant " + id,
			Address:    model.Address{DisplayAddress: []string{"Street " + id, "New York, NY"}},
		}
	}
	return &mockStore{
		findFunc: func(ctx context.Context, businessID string) (*model.Restaurant, error) {
			r, ok := records[businessID]
			if !ok {
				return nil, restaurantserrors.ErrNotFound
			}
			return r, nil
		},
	}
}

func request(cuisine string) *model.BookingRequest {
	return &model.BookingRequest{
		Location:    "NYC",
		Cuisine:     cuisine,
		PartySize:   2,
		DiningDate:  "2099-01-01",
		DiningTime:  "19:00",
		PhoneNumber: "2125551234",
	}
}

type fixture struct {
	clock    *fakeClock
	queue    *queue.MemoryQueue
	index    *mockSearchIndex
	store    *mockStore
	notifier *mockNotifier
	worker   *Worker
}

func newFixture(t *testing.T, index *mockSearchIndex, store *mockStore) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)}
	q := queue.NewMemoryQueue(visibility, queue.WithClock(clock.Now))
	notifier := &mockNotifier{}
	w := NewWorker(q, index, store, notifier, logger.Discard(),
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithWaitTime(10*time.Millisecond),
	)
	return &fixture{clock: clock, queue: q, index: index, store: store, notifier: notifier, worker: w}
}

func (f *fixture) enqueue(t *testing.T, req *model.BookingRequest) {
	t.Helper()
	if err := f.queue.Enqueue(context.Background(), req); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
}

func TestRunOnce_Idle(t *testing.T) {
	f := newFixture(t, indexOf(nil), storeOf(nil))

	result, err := f.worker.RunOnce(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeIdle {
		t.Errorf("expected idle, got %s", result.Outcome)
	}
	if len(f.index.queries) != 0 {
		t.Error("expected no search when the queue is empty")
	}
}

func TestRunOnce_NotEnoughRestaurants(t *testing.T) {
	ids := restaurantIDs("thai", 2)
	f := newFixture(t, indexOf(map[string][]string{"thai": ids}), storeOf(ids))
	f.enqueue(t, request("thai"))

	result, err := f.worker.RunOnce(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeNotEnoughRestaurants {
		t.Errorf("expected not enough restaurants, got %s", result.Outcome)
	}
	if result.Body != MsgNotEnoughRestaurants {
		t.Errorf("unexpected body %q", result.Body)
	}
	if f.queue.Len() != 1 {
		t.Errorf("expected request to stay on the queue, got %d messages", f.queue.Len())
	}
	if len(f.notifier.sent) != 0 {
		t.Errorf("expected no notification, got %d", len(f.notifier.sent))
	}
}

func TestRunOnce_Delivered(t *testing.T) {
	ids := restaurantIDs("korean", 10)
	f := newFixture(t, indexOf(map[string][]string{"korean": ids}), storeOf(ids))
	f.enqueue(t, request("korean"))

	result, err := f.worker.RunOnce(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeDelivered {
		t.Fatalf("expected delivered, got %s", result.Outcome)
	}
	if len(f.notifier.sent) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(f.notifier.sent))
	}

	sent := f.notifier.sent[0]
	if sent.to != "+12125551234" {
		t.Errorf("unexpected destination %q", sent.to)
	}
	if sent.text != result.Body {
		t.Error("expected result body to be the sent text")
	}

	format := regexp.MustCompile(`^Hello! Here are my Korean restaurant suggestions for 2 people for 2099-01-01 at 19:00: ` +
		`1\. Restaurant (korean-\d\d) located at Street (korean-\d\d), ` +
		`2\. Restaurant (korean-\d\d) located at Street (korean-\d\d), ` +
		`3\. Restaurant (korean-\d\d) located at Street (korean-\d\d)\. Enjoy your meal!$`)
	m := format.FindStringSubmatch(sent.text)
	if m == nil {
		t.Fatalf("message does not match the expected format: %q", sent.text)
	}
	seen := map[string]bool{}
	for i := 1; i < len(m); i += 2 {
		if m[i] != m[i+1] {
			t.Errorf("name and address belong to different restaurants: %s vs %s", m[i], m[i+1])
		}
		if seen[m[i]] {
			t.Errorf("restaurant %s suggested twice", m[i])
		}
		seen[m[i]] = true
	}

	if f.queue.Len() != 0 {
		t.Errorf("expected request to be acknowledged, got %d messages", f.queue.Len())
	}
}

func TestRunOnce_SearchUsesCanonicalCuisine(t *testing.T) {
	ids := restaurantIDs("thai", 3)
	f := newFixture(t, indexOf(map[string][]string{"thai": ids}), storeOf(ids))
	f.enqueue(t, request("  Thai "))

	result, err := f.worker.RunOnce(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeDelivered {
		t.Errorf("expected delivered, got %s", result.Outcome)
	}
	if len(f.index.queries) != 1 || f.index.queries[0] != "thai" {
		t.Errorf("expected search for %q, got %v", "thai", f.index.queries)
	}
}

func TestRunOnce_Failures(t *testing.T) {
	ids := restaurantIDs("italian", 5)
	lookupErr := errors.New("mongo timeout")
	sendErr := errors.New("carrier rejected")
	searchErr := errors.New("cluster red")

	tests := []struct {
		name     string
		index    *mockSearchIndex
		store    *mockStore
		sendFunc func(ctx context.Context, to, text string) error
		wantErr  []error
	}{
		{
			name: "search fails",
			index: &mockSearchIndex{searchFunc: func(ctx context.Context, cuisine string) ([]string, error) {
				return nil, searchErr
			}},
			store:   storeOf(ids),
			wantErr: []error{fulfillmenterrors.ErrSearch, searchErr},
		},
		{
			name:  "lookup fails",
			index: indexOf(map[string][]string{"italian": ids}),
			store: &mockStore{findFunc: func(ctx context.Context, businessID string) (*model.Restaurant, error) {
				return nil, lookupErr
			}},
			wantErr: []error{fulfillmenterrors.ErrLookup, lookupErr},
		},
		{
			name:    "record missing",
			index:   indexOf(map[string][]string{"italian": ids}),
			store:   storeOf(nil),
			wantErr: []error{fulfillmenterrors.ErrLookup, restaurantserrors.ErrNotFound},
		},
		{
			name:     "delivery fails",
			index:    indexOf(map[string][]string{"italian": ids}),
			store:    storeOf(ids),
			sendFunc: func(ctx context.Context, to, text string) error { return sendErr },
			wantErr:  []error{fulfillmenterrors.ErrDelivery, sendErr},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.index, tt.store)
			f.notifier.sendFunc = tt.sendFunc
			f.enqueue(t, request("italian"))

			result, err := f.worker.RunOnce(context.Background())

			for _, want := range tt.wantErr {
				if !errors.Is(err, want) {
					t.Errorf("expected error to match %v, got %v", want, err)
				}
			}
			if result.Outcome == OutcomeDelivered {
				t.Error("expected no delivered outcome")
			}
			if result.MessageID == "" {
				t.Error("expected message id to be reported")
			}
			if f.queue.Len() != 1 {
				t.Errorf("expected request to stay on the queue, got %d messages", f.queue.Len())
			}
			if len(f.notifier.sent) != 0 {
				t.Errorf("expected nothing sent, got %d", len(f.notifier.sent))
			}
		})
	}
}

func TestRunOnce_MalformedRequest(t *testing.T) {
	f := newFixture(t, indexOf(nil), storeOf(nil))
	bad := request("thai")
	bad.PhoneNumber = ""
	f.enqueue(t, bad)

	_, err := f.worker.RunOnce(context.Background())

	if !errors.Is(err, fulfillmenterrors.ErrMalformedRequest) {
		t.Errorf("expected ErrMalformedRequest, got %v", err)
	}
	if len(f.index.queries) != 0 {
		t.Error("expected no search for a malformed request")
	}
	if f.queue.Len() != 1 {
		t.Errorf("expected request to stay on the queue, got %d messages", f.queue.Len())
	}
}

func TestRunOnce_RedeliveryGivesSameOutcome(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		outcome Outcome
	}{
		{"not enough restaurants", 2, OutcomeNotEnoughRestaurants},
		{"delivery fails", 6, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := restaurantIDs("vegan", tt.count)
			f := newFixture(t, indexOf(map[string][]string{"vegan": ids}), storeOf(ids))
			f.notifier.sendFunc = func(ctx context.Context, to, text string) error {
				return errors.New("provider down")
			}
			f.enqueue(t, request("vegan"))

			first, firstErr := f.worker.RunOnce(context.Background())

			again, err := f.worker.RunOnce(context.Background())
			if err != nil || again.Outcome != OutcomeIdle {
				t.Fatalf("expected request to be invisible inside the window, got %s, %v", again.Outcome, err)
			}

			f.clock.Advance(visibility + time.Second)
			second, secondErr := f.worker.RunOnce(context.Background())

			if first.Outcome != tt.outcome || second.Outcome != tt.outcome {
				t.Errorf("expected %q both times, got %q and %q", tt.outcome, first.Outcome, second.Outcome)
			}
			if (firstErr == nil) != (secondErr == nil) {
				t.Errorf("expected same error category, got %v and %v", firstErr, secondErr)
			}
			if first.MessageID != second.MessageID {
				t.Error("expected the same message to be redelivered")
			}
			if f.queue.Len() != 1 {
				t.Errorf("expected request to stay on the queue, got %d messages", f.queue.Len())
			}
		})
	}
}

func TestRunOnce_RetryAfterDeliveryFailureSucceeds(t *testing.T) {
	ids := restaurantIDs("indian", 4)
	f := newFixture(t, indexOf(map[string][]string{"indian": ids}), storeOf(ids))
	attempts := 0
	f.notifier.sendFunc = func(ctx context.Context, to, text string) error {
		attempts++
		if attempts == 1 {
			return errors.New("timeout")
		}
		return nil
	}
	f.enqueue(t, request("indian"))

	if _, err := f.worker.RunOnce(context.Background()); !errors.Is(err, fulfillmenterrors.ErrDelivery) {
		t.Fatalf("expected delivery error on first pass, got %v", err)
	}

	f.clock.Advance(visibility + time.Second)
	result, err := f.worker.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if result.Outcome != OutcomeDelivered {
		t.Errorf("expected delivered on retry, got %s", result.Outcome)
	}
	if f.queue.Len() != 0 {
		t.Errorf("expected request to be acknowledged, got %d messages", f.queue.Len())
	}
}

type failingAckReceiver struct {
	*queue.MemoryQueue
}

func (r failingAckReceiver) Acknowledge(ctx context.Context, token string) error {
	return queue.ErrUnknownToken
}

func TestRunOnce_AcknowledgeFailure(t *testing.T) {
	ids := restaurantIDs("chinese", 3)
	q := queue.NewMemoryQueue(visibility)
	if err := q.Enqueue(context.Background(), request("chinese")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	notifier := &mockNotifier{}
	w := NewWorker(failingAckReceiver{q}, indexOf(map[string][]string{"chinese": ids}), storeOf(ids), notifier,
		logger.Discard(), WithWaitTime(10*time.Millisecond))

	result, err := w.RunOnce(context.Background())

	if !errors.Is(err, fulfillmenterrors.ErrAcknowledge) {
		t.Errorf("expected ErrAcknowledge, got %v", err)
	}
	if result.Outcome != OutcomeDelivered {
		t.Errorf("expected delivered outcome, got %s", result.Outcome)
	}
	if len(notifier.sent) != 1 {
		t.Errorf("expected the notification to have been sent, got %d", len(notifier.sent))
	}
}

func TestRunOnce_SinglePersonNoun(t *testing.T) {
	ids := restaurantIDs("american", 3)
	f := newFixture(t, indexOf(map[string][]string{"american": ids}), storeOf(ids))
	req := request("american")
	req.PartySize = 1
	f.enqueue(t, req)

	result, err := f.worker.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Body, "for 1 person for") {
		t.Errorf("expected singular noun, got %q", result.Body)
	}
}
