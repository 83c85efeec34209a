package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Queue attribute names. Every attribute is carried as a string.
const (
	AttrLocation       = "location"
	AttrCuisine        = "cuisine"
	AttrNumberOfPeople = "number_of_people"
	AttrDiningDate     = "dining_date"
	AttrDiningTime     = "dining_time"
	AttrPhoneNumber    = "phone_number"
)

var BookingRequestAttributes = []string{
	AttrLocation,
	AttrCuisine,
	AttrNumberOfPeople,
	AttrDiningDate,
	AttrDiningTime,
	AttrPhoneNumber,
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// BookingRequest is one fully validated dining request waiting for suggestions.
type BookingRequest struct {
	Location    string `json:"location" validate:"required"`
	Cuisine     string `json:"cuisine" validate:"required"`
	PartySize   int    `json:"number_of_people" validate:"required,min=1,max=20"`
	DiningDate  string `json:"dining_date" validate:"required,datetime=2006-01-02"`
	DiningTime  string `json:"dining_time" validate:"required,datetime=15:04"`
	PhoneNumber string `json:"phone_number" validate:"required,len=10,number"`
}

func (b *BookingRequest) Attributes() map[string]string {
	return map[string]string{
		AttrLocation:       b.Location,
		AttrCuisine:        b.Cuisine,
		AttrNumberOfPeople: strconv.Itoa(b.PartySize),
		AttrDiningDate:     b.DiningDate,
		AttrDiningTime:     b.DiningTime,
		AttrPhoneNumber:    b.PhoneNumber,
	}
}

// BookingRequestFromAttributes rebuilds a request from queue attributes.
// Missing attributes and a non-numeric party size are reported together.
func BookingRequestFromAttributes(attrs map[string]string) (*BookingRequest, error) {
	var missing []string
	for _, name := range BookingRequestAttributes {
		if strings.TrimSpace(attrs[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing attributes: %s", strings.Join(missing, ", "))
	}

	partySize, err := strconv.Atoi(attrs[AttrNumberOfPeople])
	if err != nil {
		return nil, fmt.Errorf("attribute %s is not an integer: %q", AttrNumberOfPeople, attrs[AttrNumberOfPeople])
	}

	return &BookingRequest{
		Location:    attrs[AttrLocation],
		Cuisine:     attrs[AttrCuisine],
		PartySize:   partySize,
		DiningDate:  attrs[AttrDiningDate],
		DiningTime:  attrs[AttrDiningTime],
		PhoneNumber: attrs[AttrPhoneNumber],
	}, nil
}
