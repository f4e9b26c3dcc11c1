package validators

import "go.mongodb.org/mongo-driver/bson"

var JobValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"business_id",
			"title",
			"start_date",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"business_id": bson.M{
				"bsonType":  "string",
				"minLength": 36,
				"maxLength": 36,
			},

			"title": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 200,
			},

			"start_date": bson.M{
				"bsonType": "date",
			},

			// Legacy free-form status; newer writers also set "stage"
			"status": bson.M{
				"bsonType": "string",
			},

			"stage": bson.M{
				"enum": []string{"scheduled", "in_progress", "completed", "cancelled", "unknown"},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
