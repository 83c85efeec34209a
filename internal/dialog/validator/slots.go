package validator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"dinebot/pkg/model"
	"dinebot/pkg/sanitizer"

	"github.com/go-playground/validator/v10"
)

const (
	MinPartySize = 1
	MaxPartySize = 20
)

var supportedLocations = map[string]struct{}{
	"new york":      {},
	"newyork":       {},
	"ny":            {},
	"new york city": {},
	"nyc":           {},
}

// SupportedCuisines in the order they are offered to the user.
var SupportedCuisines = []string{
	"Japanese", "Italian", "Chinese", "American", "Indian",
	"Korean", "Vietnamese", "Thai", "Vegan",
}

var supportedCuisines = func() map[string]struct{} {
	m := make(map[string]struct{}, len(SupportedCuisines))
	for _, c := range SupportedCuisines {
		m[strings.ToLower(c)] = struct{}{}
	}
	return m
}()

const (
	MsgDateNotUnderstood   = "I did not understand your dining date. When would you like to dine?"
	MsgDateInPast          = "Reservations cannot be scheduled for past dates. Can you try a different date?"
	MsgTimeNotUnderstood   = "I did not understand your dining time. What time would you like to dine?"
	MsgTimeInPast          = "Reservations must be scheduled for future times. Can you try a different time?"
	MsgInvalidPhone        = "Please enter a valid 10 digit phone number."
	MsgPartyNotUnderstood  = "I did not understand the number of people in your party. How many people are in your party?"
	MsgPartyNotPositive    = "The number of people in your party must be positive. How many people are in your party?"
	MsgPartyTooLarge       = "The number of people in your party must be less than 20. How many people are in your party?"
	msgUnsupportedLocation = "Sorry, we do not support %s. We currently only support New York"
)

var MsgUnsupportedCuisine = "I did not recognize that cuisine. What cuisine would you like to try? Please choose from the following: " +
	strings.Join(SupportedCuisines, ", ") + "."

func MsgUnsupportedLocation(location string) string {
	return fmt.Sprintf(msgUnsupportedLocation, location)
}

// Result reports the first violated slot, if any.
type Result struct {
	Valid        bool
	ViolatedSlot string
	Message      string
}

func valid() Result {
	return Result{Valid: true}
}

func invalid(slot, message string) Result {
	return Result{ViolatedSlot: slot, Message: message}
}

// SlotValidator checks the booking slots a user has filled so far. Dates and
// times are read in the dialog time zone.
type SlotValidator struct {
	validate *validator.Validate
	loc      *time.Location
	now      func() time.Time
}

func NewSlotValidator(loc *time.Location, now func() time.Time) *SlotValidator {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &SlotValidator{
		validate: validator.New(),
		loc:      loc,
		now:      now,
	}
}

func (v *SlotValidator) Location() *time.Location {
	return v.loc
}

// Validate checks slots against the current time.
func (v *SlotValidator) Validate(slots model.Slots) Result {
	return v.ValidateAt(slots, v.now())
}

// ValidateAt applies the rules in order and stops at the first failure.
// Unfilled slots are skipped. A time without a date is checked for format
// only; the future check runs once both are filled.
func (v *SlotValidator) ValidateAt(slots model.Slots, now time.Time) Result {
	now = now.In(v.loc)

	if location, ok := slots.Get(model.SlotLocation); ok {
		if _, supported := supportedLocations[sanitizer.NormalizeTag(location)]; !supported {
			return invalid(model.SlotLocation, MsgUnsupportedLocation(location))
		}
	}

	date, hasDate := slots.Get(model.SlotDiningDate)
	if hasDate {
		if r := v.checkDate(date, now); !r.Valid {
			return r
		}
	}

	if diningTime, ok := slots.Get(model.SlotDiningTime); ok {
		if r := v.checkTime(date, hasDate, diningTime, now); !r.Valid {
			return r
		}
	}

	if phone, ok := slots.Get(model.SlotPhoneNumber); ok {
		if v.validate.Var(phone, "len=10,number") != nil {
			return invalid(model.SlotPhoneNumber, MsgInvalidPhone)
		}
	}

	if people, ok := slots.Get(model.SlotNumberOfPeople); ok {
		if r := checkPartySize(people); !r.Valid {
			return r
		}
	}

	if cuisine, ok := slots.Get(model.SlotCuisine); ok {
		if _, supported := supportedCuisines[sanitizer.NormalizeTag(cuisine)]; !supported {
			return invalid(model.SlotCuisine, MsgUnsupportedCuisine)
		}
	}

	return valid()
}

func (v *SlotValidator) checkDate(date string, now time.Time) Result {
	if v.validate.Var(date, "datetime="+model.DateLayout) != nil {
		return invalid(model.SlotDiningDate, MsgDateNotUnderstood)
	}
	d, err := time.ParseInLocation(model.DateLayout, date, v.loc)
	if err != nil {
		return invalid(model.SlotDiningDate, MsgDateNotUnderstood)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, v.loc)
	if d.Before(today) {
		return invalid(model.SlotDiningDate, MsgDateInPast)
	}
	return valid()
}

func (v *SlotValidator) checkTime(date string, hasDate bool, diningTime string, now time.Time) Result {
	if v.validate.Var(diningTime, "datetime="+model.TimeLayout) != nil {
		return invalid(model.SlotDiningTime, MsgTimeNotUnderstood)
	}
	if !hasDate {
		return valid()
	}

	at, err := time.ParseInLocation(model.DateLayout+" "+model.TimeLayout, date+" "+diningTime, v.loc)
	if err != nil {
		return invalid(model.SlotDiningTime, MsgTimeNotUnderstood)
	}
	if !at.After(now) {
		return invalid(model.SlotDiningTime, MsgTimeInPast)
	}
	return valid()
}

func checkPartySize(people string) Result {
	n, err := strconv.Atoi(people)
	switch {
	case err != nil:
		return invalid(model.SlotNumberOfPeople, MsgPartyNotUnderstood)
	case n < MinPartySize:
		return invalid(model.SlotNumberOfPeople, MsgPartyNotPositive)
	case n > MaxPartySize:
		return invalid(model.SlotNumberOfPeople, MsgPartyTooLarge)
	}
	return valid()
}

// RequiredSlots is every slot a booking needs, in validation order.
var RequiredSlots = []string{
	model.SlotLocation,
	model.SlotDiningDate,
	model.SlotDiningTime,
	model.SlotPhoneNumber,
	model.SlotNumberOfPeople,
	model.SlotCuisine,
}

// MissingSlot returns the first required slot that is not filled.
func MissingSlot(slots model.Slots) (string, bool) {
	for _, name := range RequiredSlots {
		if _, ok := slots.Get(name); !ok {
			return name, true
		}
	}
	return "", false
}

// BookingRequest builds a request from a complete slot set and checks it
// once more against the struct rules.
func (v *SlotValidator) BookingRequest(slots model.Slots) (*model.BookingRequest, error) {
	if name, missing := MissingSlot(slots); missing {
		return nil, fmt.Errorf("slot %s is not filled", name)
	}

	get := func(name string) string {
		value, _ := slots.Get(name)
		return value
	}

	partySize, err := strconv.Atoi(get(model.SlotNumberOfPeople))
	if err != nil {
		return nil, fmt.Errorf("slot %s is not an integer", model.SlotNumberOfPeople)
	}

	req := &model.BookingRequest{
		Location:    get(model.SlotLocation),
		Cuisine:     get(model.SlotCuisine),
		PartySize:   partySize,
		DiningDate:  get(model.SlotDiningDate),
		DiningTime:  get(model.SlotDiningTime),
		PhoneNumber: get(model.SlotPhoneNumber),
	}
	if err := v.validate.Struct(req); err != nil {
		return nil, err
	}
	return req, nil
}
