package model

import "time"

type Restaurant struct {
	BusinessID  string      `json:"business_id" bson:"business_id"`
	Name        string      `json:"name" bson:"name"`
	CuisineType string      `json:"cuisine_type" bson:"cuisine_type"`
	Address     Address     `json:"address" bson:"address"`
	Coordinates Coordinates `json:"coordinates" bson:"coordinates"`
	ReviewCount int         `json:"review_count" bson:"review_count"`
	Rating      float64     `json:"rating" bson:"rating"`
	ZipCode     string      `json:"zip_code" bson:"zip_code"`
	InsertedAt  time.Time   `json:"inserted_at" bson:"inserted_at"`
}

type Address struct {
	Address1       string   `json:"address1" bson:"address1"`
	Address2       string   `json:"address2,omitempty" bson:"address2,omitempty"`
	Address3       string   `json:"address3,omitempty" bson:"address3,omitempty"`
	City           string   `json:"city" bson:"city"`
	State          string   `json:"state" bson:"state"`
	ZipCode        string   `json:"zip_code" bson:"zip_code"`
	Country        string   `json:"country" bson:"country"`
	DisplayAddress []string `json:"display_address" bson:"display_address"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// StreetAddress is the first display line, falling back to address1.
func (r *Restaurant) StreetAddress() string {
	if len(r.Address.DisplayAddress) > 0 && r.Address.DisplayAddress[0] != "" {
		return r.Address.DisplayAddress[0]
	}
	return r.Address.Address1
}
