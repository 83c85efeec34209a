package validators

import "go.mongodb.org/mongo-driver/bson"

var RestaurantValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"business_id", "name", "cuisine_type", "address"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":          bson.M{"bsonType": "objectId"},
			"business_id":  bson.M{"bsonType": "string", "minLength": 1},
			"name":         bson.M{"bsonType": "string"},
			"cuisine_type": bson.M{"bsonType": "string"},
			"address": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"address1": bson.M{"bsonType": "string"},
					"city":     bson.M{"bsonType": "string"},
					"zip_code": bson.M{"bsonType": "string"},
					"display_address": bson.M{
						"bsonType": "array",
						"items":    bson.M{"bsonType": "string"},
					},
				},
			},
			"coordinates": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"latitude":  bson.M{"bsonType": []string{"double", "int"}},
					"longitude": bson.M{"bsonType": []string{"double", "int"}},
				},
			},
			"review_count": bson.M{"bsonType": []string{"int", "long"}},
			"rating":       bson.M{"bsonType": []string{"double", "int"}},
			"zip_code":     bson.M{"bsonType": "string"},
			"inserted_at":  bson.M{"bsonType": "date"},
		},
	},
}
