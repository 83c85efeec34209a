package testutil

import (
	"fmt"
	"time"

	"dinebot/pkg/model"
)

// Restaurants returns n records of one cuisine with ids "<cuisine>-0".."<cuisine>-(n-1)".
func Restaurants(cuisine string, n int) []model.Restaurant {
	out := make([]model.Restaurant, n)
	for i := range out {
		id := fmt.Sprintf("%s-%d", cuisine, i)
		out[i] = model.Restaurant{
			BusinessID:  id,
			Name:        fmt.Sprintf("%s place %d", cuisine, i),
			CuisineType: cuisine,
			Address: model.Address{
				Address1:       fmt.Sprintf("%d Broadway", 100+i),
				City:           "New York",
				State:          "NY",
				ZipCode:        "10001",
				Country:        "US",
				DisplayAddress: []string{fmt.Sprintf("%d Broadway", 100+i), "New York, NY 10001"},
			},
			Coordinates: model.Coordinates{Latitude: 40.75, Longitude: -73.99},
			ReviewCount: 10 * (i + 1),
			Rating:      4.5,
			ZipCode:     "10001",
			InsertedAt:  time.Now().UTC().Truncate(time.Millisecond),
		}
	}
	return out
}

// ValidSlots is a complete booking a week ahead of now.
func ValidSlots(cuisine string) model.Slots {
	slots := model.Slots{}
	slots.Set(model.SlotLocation, "New York")
	slots.Set(model.SlotCuisine, cuisine)
	slots.Set(model.SlotNumberOfPeople, "2")
	slots.Set(model.SlotDiningDate, time.Now().AddDate(0, 0, 7).Format(time.DateOnly))
	slots.Set(model.SlotDiningTime, "19:00")
	slots.Set(model.SlotPhoneNumber, "2125550123")
	return slots
}

func DialogEvent(source model.InvocationSource, userID string, slots model.Slots) model.DialogEvent {
	return model.DialogEvent{
		InvocationSource:  source,
		UserID:            userID,
		Bot:               model.Bot{Name: "DiningConcierge"},
		CurrentIntent:     model.Intent{Name: "DiningSuggestionsIntent", Slots: slots},
		SessionAttributes: map[string]string{},
	}
}
