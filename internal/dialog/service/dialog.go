package service

import (
	"context"
	"fmt"

	dialogerrors "dinebot/internal/dialog/errors"
	"dinebot/internal/dialog/validator"
	apperrors "dinebot/pkg/errors"
	"dinebot/pkg/logger"
	"dinebot/pkg/model"
	"dinebot/pkg/queue"
)

const (
	DiningSuggestionsIntent = "DiningSuggestionsIntent"

	MsgConfirmation = "You're all set. Expect my suggestions shortly! Have a good day."
)

type DialogService interface {
	Dispatch(ctx context.Context, event *model.DialogEvent) (*model.DialogResponse, error)
}

type intentHandler func(ctx context.Context, event *model.DialogEvent) (*model.DialogResponse, error)

type dialogService struct {
	validator *validator.SlotValidator
	queue     queue.Publisher
	log       *logger.Logger
	intents   map[string]intentHandler
}

func NewDialogService(v *validator.SlotValidator, publisher queue.Publisher, log *logger.Logger) DialogService {
	s := &dialogService{
		validator: v,
		queue:     publisher,
		log:       log,
	}
	s.intents = map[string]intentHandler{
		DiningSuggestionsIntent: s.diningSuggestions,
	}
	return s
}

func (s *dialogService) Dispatch(ctx context.Context, event *model.DialogEvent) (*model.DialogResponse, error) {
	if event == nil {
		return nil, apperrors.InvalidInput("Dialog event cannot be empty")
	}

	intentName := event.CurrentIntent.Name
	s.log.Debug("Dispatching dialog turn",
		"user_id", event.UserID,
		"bot", event.Bot.Name,
		"intent", intentName,
		"invocation_source", event.InvocationSource,
	)

	handle, ok := s.intents[intentName]
	if !ok {
		s.log.Warn("Unsupported intent", "intent", intentName, "user_id", event.UserID)
		appErr := apperrors.Unsupported(fmt.Sprintf("Intent with name %s not supported", intentName))
		appErr.Err = dialogerrors.ErrUnsupportedIntent
		return nil, appErr
	}
	return handle(ctx, event)
}

func (s *dialogService) diningSuggestions(ctx context.Context, event *model.DialogEvent) (*model.DialogResponse, error) {
	slots := event.CurrentIntent.Slots.Clone()

	switch event.InvocationSource {
	case model.InvocationDialogCodeHook:
		if action := s.elicitIfInvalid(event.CurrentIntent.Name, slots); action != nil {
			return model.NewDialogResponse(event.SessionAttributes, action), nil
		}
		return model.NewDialogResponse(event.SessionAttributes, model.NewDelegate(slots)), nil

	case model.InvocationFulfillmentCodeHook:
		return s.fulfill(ctx, event, slots)

	default:
		appErr := apperrors.InvalidInput(fmt.Sprintf("Invocation source %q is not supported", event.InvocationSource))
		appErr.Err = dialogerrors.ErrInvalidInvocationSource
		return nil, appErr
	}
}

// elicitIfInvalid returns an ElicitSlot action for the first violated slot,
// clearing its value, or nil when every filled slot is valid.
func (s *dialogService) elicitIfInvalid(intentName string, slots model.Slots) model.DialogAction {
	result := s.validator.Validate(slots)
	if result.Valid {
		return nil
	}
	s.log.Debug("Slot failed validation", "slot", result.ViolatedSlot, "intent", intentName)
	slots.Clear(result.ViolatedSlot)
	return model.NewElicitSlot(intentName, slots, result.ViolatedSlot, result.Message)
}

func (s *dialogService) fulfill(ctx context.Context, event *model.DialogEvent, slots model.Slots) (*model.DialogResponse, error) {
	intentName := event.CurrentIntent.Name

	if action := s.elicitIfInvalid(intentName, slots); action != nil {
		return model.NewDialogResponse(event.SessionAttributes, action), nil
	}
	if missing, ok := validator.MissingSlot(slots); ok {
		s.log.Warn("Fulfillment requested with unfilled slot", "slot", missing, "user_id", event.UserID)
		action := model.NewElicitSlot(intentName, slots, missing, promptFor(missing))
		return model.NewDialogResponse(event.SessionAttributes, action), nil
	}

	req, err := s.validator.BookingRequest(slots)
	if err != nil {
		return nil, apperrors.Validation("Booking request is invalid", map[string]any{"error": err.Error()})
	}

	if err := s.queue.Enqueue(ctx, req); err != nil {
		s.log.Error("Failed to enqueue dining request", "user_id", event.UserID, "cuisine", req.Cuisine, "error", err)
		return nil, apperrors.Internal("Failed to submit dining request", fmt.Errorf("%w: %w", dialogerrors.ErrEnqueue, err))
	}

	s.log.Info("Dining request enqueued",
		"user_id", event.UserID,
		"location", req.Location,
		"cuisine", req.Cuisine,
		"party_size", req.PartySize,
		"dining_date", req.DiningDate,
		"dining_time", req.DiningTime,
	)

	action := model.NewClose(model.FulfillmentFulfilled, MsgConfirmation)
	return model.NewDialogResponse(event.SessionAttributes, action), nil
}

var slotPrompts = map[string]string{
	model.SlotLocation:       "What city are you looking to dine in?",
	model.SlotDiningDate:     "What date would you like to dine?",
	model.SlotDiningTime:     "What time would you like to dine?",
	model.SlotPhoneNumber:    "What phone number should I send my suggestions to?",
	model.SlotNumberOfPeople: "How many people are in your party?",
	model.SlotCuisine:        "What cuisine would you like to try?",
}

func promptFor(slot string) string {
	return slotPrompts[slot]
}
