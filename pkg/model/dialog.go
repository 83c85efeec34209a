package model

import (
	"encoding/json"
	"maps"
	"strings"
)

type InvocationSource string

const (
	InvocationDialogCodeHook      InvocationSource = "DialogCodeHook"
	InvocationFulfillmentCodeHook InvocationSource = "FulfillmentCodeHook"
)

// Slot names as the bot runtime sends them.
const (
	SlotLocation       = "location"
	SlotCuisine        = "cuisine"
	SlotNumberOfPeople = "numberOfPeople"
	SlotDiningDate     = "diningDate"
	SlotDiningTime     = "diningTime"
	SlotPhoneNumber    = "phoneNumber"
)

// Slots maps slot names to values. A nil value is an unfilled slot and is
// serialized as JSON null.
type Slots map[string]*string

// Get returns the trimmed value of a slot and whether it is filled.
func (s Slots) Get(name string) (string, bool) {
	v, ok := s[name]
	if !ok || v == nil {
		return "", false
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

func (s Slots) Set(name, value string) {
	s[name] = &value
}

// Clear keeps the key but marks the slot unfilled.
func (s Slots) Clear(name string) {
	s[name] = nil
}

func (s Slots) Clone() Slots {
	out := make(Slots, len(s))
	for k, v := range s {
		if v == nil {
			out[k] = nil
			continue
		}
		value := *v
		out[k] = &value
	}
	return out
}

type Bot struct {
	Name    string `json:"name"`
	Alias   string `json:"alias,omitempty"`
	Version string `json:"version,omitempty"`
}

type Intent struct {
	Name               string `json:"name"`
	Slots              Slots  `json:"slots"`
	ConfirmationStatus string `json:"confirmationStatus,omitempty"`
}

// DialogEvent is one code-hook invocation from the bot runtime.
type DialogEvent struct {
	InvocationSource  InvocationSource  `json:"invocationSource"`
	UserID            string            `json:"userId"`
	InputTranscript   string            `json:"inputTranscript,omitempty"`
	Bot               Bot               `json:"bot"`
	CurrentIntent     Intent            `json:"currentIntent"`
	SessionAttributes map[string]string `json:"sessionAttributes"`
}

type DialogActionType string

const (
	ActionElicitSlot DialogActionType = "ElicitSlot"
	ActionDelegate   DialogActionType = "Delegate"
	ActionClose      DialogActionType = "Close"
)

type FulfillmentState string

const (
	FulfillmentFulfilled FulfillmentState = "Fulfilled"
	FulfillmentFailed    FulfillmentState = "Failed"
)

const ContentTypePlainText = "PlainText"

type Message struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

func PlainText(content string) Message {
	return Message{ContentType: ContentTypePlainText, Content: content}
}

// DialogAction is one of ElicitSlot, Delegate or Close. The set is closed:
// values are built only through NewElicitSlot, NewDelegate and NewClose.
type DialogAction interface {
	Type() DialogActionType
	dialogAction()
}

type ElicitSlot struct {
	IntentName   string
	Slots        Slots
	SlotToElicit string
	Message      Message
}

type Delegate struct {
	Slots   Slots
	Message *Message
}

type Close struct {
	FulfillmentState FulfillmentState
	Message          Message
}

func NewElicitSlot(intentName string, slots Slots, slotToElicit, content string) *ElicitSlot {
	return &ElicitSlot{
		IntentName:   intentName,
		Slots:        slots,
		SlotToElicit: slotToElicit,
		Message:      PlainText(content),
	}
}

func NewDelegate(slots Slots) *Delegate {
	return &Delegate{Slots: slots}
}

func NewClose(state FulfillmentState, content string) *Close {
	return &Close{FulfillmentState: state, Message: PlainText(content)}
}

func (*ElicitSlot) Type() DialogActionType { return ActionElicitSlot }
func (*Delegate) Type() DialogActionType   { return ActionDelegate }
func (*Close) Type() DialogActionType      { return ActionClose }

func (*ElicitSlot) dialogAction() {}
func (*Delegate) dialogAction()   {}
func (*Close) dialogAction()      {}

func (a *ElicitSlot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type         DialogActionType `json:"type"`
		IntentName   string           `json:"intentName"`
		Slots        Slots            `json:"slots"`
		SlotToElicit string           `json:"slotToElicit"`
		Message      Message          `json:"message"`
	}{ActionElicitSlot, a.IntentName, a.Slots, a.SlotToElicit, a.Message})
}

func (a *Delegate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    DialogActionType `json:"type"`
		Slots   Slots            `json:"slots"`
		Message *Message         `json:"message,omitempty"`
	}{ActionDelegate, a.Slots, a.Message})
}

func (a *Close) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type             DialogActionType `json:"type"`
		FulfillmentState FulfillmentState `json:"fulfillmentState"`
		Message          Message          `json:"message"`
	}{ActionClose, a.FulfillmentState, a.Message})
}

type DialogResponse struct {
	SessionAttributes map[string]string `json:"sessionAttributes"`
	DialogAction      DialogAction      `json:"dialogAction"`
}

// NewDialogResponse copies the session attributes so the response never
// aliases the caller's map. A nil map becomes an empty one.
func NewDialogResponse(sessionAttributes map[string]string, action DialogAction) *DialogResponse {
	attrs := make(map[string]string, len(sessionAttributes))
	maps.Copy(attrs, sessionAttributes)
	return &DialogResponse{SessionAttributes: attrs, DialogAction: action}
}
