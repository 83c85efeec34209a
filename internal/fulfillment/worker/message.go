package worker

import (
	"strconv"
	"strings"

	"dinebot/pkg/model"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	MsgNotEnoughRestaurants = "Not enough restaurants for this cuisine type were available."

	msgClosing = "Enjoy your meal!"
)

var titleCaser = cases.Title(language.English)

// composeSuggestions renders the SMS body:
//
//	Hello! Here are my Thai restaurant suggestions for 2 people for
//	2026-05-01 at 19:00: 1. A located at X, 2. B located at Y, 3. C located
//	at Z. Enjoy your meal!
func composeSuggestions(req *model.BookingRequest, restaurants []*model.Restaurant) string {
	noun := " people"
	if req.PartySize == 1 {
		noun = " person"
	}

	var b strings.Builder
	b.WriteString("Hello! Here are my ")
	b.WriteString(titleCaser.String(req.Cuisine))
	b.WriteString(" restaurant suggestions for ")
	b.WriteString(strconv.Itoa(req.PartySize))
	b.WriteString(noun)
	b.WriteString(" for ")
	b.WriteString(req.DiningDate)
	b.WriteString(" at ")
	b.WriteString(req.DiningTime)
	b.WriteString(": ")

	for i, r := range restaurants {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(r.Name)
		b.WriteString(" located at ")
		b.WriteString(r.StreetAddress())
		if i < len(restaurants)-1 {
			b.WriteString(", ")
		} else {
			b.WriteString(". ")
		}
	}
	b.WriteString(msgClosing)
	return b.String()
}
