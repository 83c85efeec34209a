package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	dialogerrors "dinebot/internal/dialog/errors"
	"dinebot/internal/dialog/validator"
	apperrors "dinebot/pkg/errors"
	"dinebot/pkg/logger"
	"dinebot/pkg/model"
)

type mockPublisher struct {
	enqueueFunc func(ctx context.Context, req *model.BookingRequest) error
	enqueued    []*model.BookingRequest
}

func (m *mockPublisher) Enqueue(ctx context.Context, req *model.BookingRequest) error {
	m.enqueued = append(m.enqueued, req)
	if m.enqueueFunc != nil {
		return m.enqueueFunc(ctx, req)
	}
	return nil
}

var fixedNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestService(pub *mockPublisher) DialogService {
	v := validator.NewSlotValidator(time.UTC, func() time.Time { return fixedNow })
	return NewDialogService(v, pub, logger.Discard())
}

func str(s string) *string { return &s }

func bookingSlots() model.Slots {
	return model.Slots{
		model.SlotLocation:       str("NYC"),
		model.SlotCuisine:        str("italian"),
		model.SlotNumberOfPeople: str("4"),
		model.SlotDiningDate:     str("2099-01-01"),
		model.SlotDiningTime:     str("19:00"),
		model.SlotPhoneNumber:    str("2125551234"),
	}
}

func newEvent(source model.InvocationSource, slots model.Slots) *model.DialogEvent {
	return &model.DialogEvent{
		InvocationSource: source,
		UserID:           "user-1",
		Bot:              model.Bot{Name: "DiningConcierge"},
		CurrentIntent: model.Intent{
			Name:  DiningSuggestionsIntent,
			Slots: slots,
		},
		SessionAttributes: map[string]string{"greeted": "true"},
	}
}

func TestDispatch_FulfillmentEnqueuesAndCloses(t *testing.T) {
	pub := &mockPublisher{}
	svc := newTestService(pub)

	resp, err := svc.Dispatch(context.Background(), newEvent(model.InvocationFulfillmentCodeHook, bookingSlots()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pub.enqueued) != 1 {
		t.Fatalf("expected exactly one enqueue, got %d", len(pub.enqueued))
	}
	want := model.BookingRequest{
		Location:    "NYC",
		Cuisine:     "italian",
		PartySize:   4,
		DiningDate:  "2099-01-01",
		DiningTime:  "19:00",
		PhoneNumber: "2125551234",
	}
	if *pub.enqueued[0] != want {
		t.Errorf("expected enqueued %+v, got %+v", want, *pub.enqueued[0])
	}

	closeAction, ok := resp.DialogAction.(*model.Close)
	if !ok {
		t.Fatalf("expected Close action, got %T", resp.DialogAction)
	}
	if closeAction.FulfillmentState != model.FulfillmentFulfilled {
		t.Errorf("expected Fulfilled, got %s", closeAction.FulfillmentState)
	}
	if closeAction.Message.Content != MsgConfirmation {
		t.Errorf("expected confirmation %q, got %q", MsgConfirmation, closeAction.Message.Content)
	}
	if closeAction.Message.ContentType != model.ContentTypePlainText {
		t.Errorf("expected PlainText content type, got %q", closeAction.Message.ContentType)
	}
	if resp.SessionAttributes["greeted"] != "true" {
		t.Errorf("expected session attributes to pass through, got %v", resp.SessionAttributes)
	}
}

func TestDispatch_EnqueueFailure(t *testing.T) {
	queueErr := errors.New("broker unavailable")
	pub := &mockPublisher{
		enqueueFunc: func(ctx context.Context, req *model.BookingRequest) error {
			return queueErr
		},
	}
	svc := newTestService(pub)

	resp, err := svc.Dispatch(context.Background(), newEvent(model.InvocationFulfillmentCodeHook, bookingSlots()))

	if resp != nil {
		t.Errorf("expected no response, got %+v", resp)
	}
	if !errors.Is(err, dialogerrors.ErrEnqueue) {
		t.Errorf("expected ErrEnqueue, got %v", err)
	}
	if !errors.Is(err, queueErr) {
		t.Errorf("expected the queue error to be wrapped, got %v", err)
	}
	if appErr := apperrors.AsAppError(err); appErr.StatusCode() != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", appErr.StatusCode())
	}
}

func TestDispatch_ElicitingValidDelegates(t *testing.T) {
	pub := &mockPublisher{}
	svc := newTestService(pub)
	slots := model.Slots{
		model.SlotLocation: str("new york"),
		model.SlotCuisine:  nil,
	}

	resp, err := svc.Dispatch(context.Background(), newEvent(model.InvocationDialogCodeHook, slots))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	delegate, ok := resp.DialogAction.(*model.Delegate)
	if !ok {
		t.Fatalf("expected Delegate action, got %T", resp.DialogAction)
	}
	if got, _ := delegate.Slots.Get(model.SlotLocation); got != "new york" {
		t.Errorf("expected slots to be echoed, got %q", got)
	}
	if _, present := delegate.Slots[model.SlotCuisine]; !present {
		t.Error("expected unfilled slot key to be kept")
	}
	if len(pub.enqueued) != 0 {
		t.Errorf("expected no enqueue while eliciting, got %d", len(pub.enqueued))
	}
}

func TestDispatch_ElicitingInvalidClearsSlot(t *testing.T) {
	pub := &mockPublisher{}
	svc := newTestService(pub)
	slots := bookingSlots()
	slots.Set(model.SlotLocation, "Chicago")

	event := newEvent(model.InvocationDialogCodeHook, slots)
	resp, err := svc.Dispatch(context.Background(), event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	elicit, ok := resp.DialogAction.(*model.ElicitSlot)
	if !ok {
		t.Fatalf("expected ElicitSlot action, got %T", resp.DialogAction)
	}
	if elicit.SlotToElicit != model.SlotLocation {
		t.Errorf("expected slot to elicit %q, got %q", model.SlotLocation, elicit.SlotToElicit)
	}
	if elicit.IntentName != DiningSuggestionsIntent {
		t.Errorf("expected intent name to be echoed, got %q", elicit.IntentName)
	}
	if v, present := elicit.Slots[model.SlotLocation]; !present || v != nil {
		t.Errorf("expected violated slot to be cleared, got %v", v)
	}
	if got, _ := elicit.Slots.Get(model.SlotCuisine); got != "italian" {
		t.Errorf("expected other slots to be kept, got cuisine %q", got)
	}
	if elicit.Message.Content != validator.MsgUnsupportedLocation("Chicago") {
		t.Errorf("unexpected message %q", elicit.Message.Content)
	}
	if got, _ := event.CurrentIntent.Slots.Get(model.SlotLocation); got != "Chicago" {
		t.Error("expected the incoming event slots to be left untouched")
	}
	if len(pub.enqueued) != 0 {
		t.Errorf("expected no enqueue while eliciting, got %d", len(pub.enqueued))
	}
}

func TestDispatch_FulfillmentWithInvalidSlotElicits(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(model.Slots)
		wantSlot string
	}{
		{
			name:     "invalid cuisine",
			mutate:   func(s model.Slots) { s.Set(model.SlotCuisine, "martian") },
			wantSlot: model.SlotCuisine,
		},
		{
			name:     "missing phone",
			mutate:   func(s model.Slots) { s.Clear(model.SlotPhoneNumber) },
			wantSlot: model.SlotPhoneNumber,
		},
		{
			name:     "time already passed",
			mutate:   func(s model.Slots) { s.Set(model.SlotDiningDate, "2026-03-10"); s.Set(model.SlotDiningTime, "08:00") },
			wantSlot: model.SlotDiningTime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{}
			svc := newTestService(pub)
			slots := bookingSlots()
			tt.mutate(slots)

			resp, err := svc.Dispatch(context.Background(), newEvent(model.InvocationFulfillmentCodeHook, slots))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			elicit, ok := resp.DialogAction.(*model.ElicitSlot)
			if !ok {
				t.Fatalf("expected ElicitSlot action, got %T", resp.DialogAction)
			}
			if elicit.SlotToElicit != tt.wantSlot {
				t.Errorf("expected slot %q, got %q", tt.wantSlot, elicit.SlotToElicit)
			}
			if elicit.Message.Content == "" {
				t.Error("expected a prompt")
			}
			if len(pub.enqueued) != 0 {
				t.Errorf("expected no enqueue, got %d", len(pub.enqueued))
			}
		})
	}
}

func TestDispatch_UnsupportedIntent(t *testing.T) {
	pub := &mockPublisher{}
	svc := newTestService(pub)
	event := newEvent(model.InvocationFulfillmentCodeHook, bookingSlots())
	event.CurrentIntent.Name = "OrderFlowers"

	_, err := svc.Dispatch(context.Background(), event)

	if !errors.Is(err, dialogerrors.ErrUnsupportedIntent) {
		t.Fatalf("expected ErrUnsupportedIntent, got %v", err)
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeUnsupported {
		t.Errorf("expected code %s, got %s", apperrors.CodeUnsupported, appErr.Code)
	}
	if appErr.Message != "Intent with name OrderFlowers not supported" {
		t.Errorf("unexpected message %q", appErr.Message)
	}
	if len(pub.enqueued) != 0 {
		t.Errorf("expected no enqueue, got %d", len(pub.enqueued))
	}
}

func TestDispatch_IntentNameIsExact(t *testing.T) {
	svc := newTestService(&mockPublisher{})
	event := newEvent(model.InvocationDialogCodeHook, bookingSlots())
	event.CurrentIntent.Name = "diningsuggestionsintent"

	if _, err := svc.Dispatch(context.Background(), event); !errors.Is(err, dialogerrors.ErrUnsupportedIntent) {
		t.Errorf("expected ErrUnsupportedIntent, got %v", err)
	}
}

func TestDispatch_UnknownInvocationSource(t *testing.T) {
	svc := newTestService(&mockPublisher{})

	_, err := svc.Dispatch(context.Background(), newEvent("SomethingElse", bookingSlots()))

	if !errors.Is(err, dialogerrors.ErrInvalidInvocationSource) {
		t.Errorf("expected ErrInvalidInvocationSource, got %v", err)
	}
}

func TestDispatch_NilSessionAttributes(t *testing.T) {
	svc := newTestService(&mockPublisher{})
	event := newEvent(model.InvocationDialogCodeHook, bookingSlots())
	event.SessionAttributes = nil

	resp, err := svc.Dispatch(context.Background(), event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.SessionAttributes == nil {
		t.Error("expected empty session attributes, got nil")
	}
}

func TestDispatch_NilEvent(t *testing.T) {
	svc := newTestService(&mockPublisher{})

	if _, err := svc.Dispatch(context.Background(), nil); err == nil {
		t.Error("expected error for nil event")
	}
}
