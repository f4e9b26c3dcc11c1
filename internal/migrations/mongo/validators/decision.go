package validators

import "go.mongodb.org/mongo-driver/bson"

var DecisionQueueValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"estimate_id",
			"business_id",
			"status",
			"decided_at",
			"source",
			"recorded_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"estimate_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"business_id": bson.M{
				"bsonType":  "string",
				"minLength": 36,
				"maxLength": 36,
			},

			"status": bson.M{
				"enum": []string{"accepted", "declined"},
			},

			"decided_at": bson.M{
				"bsonType": "date",
			},

			"source": bson.M{
				"enum": []string{"deeplink", "portal", "event"},
			},

			"recorded_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
