package validators

import "go.mongodb.org/mongo-driver/bson"

var DocumentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"business_id",
			"document_type",
			"items",
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

			"document_type": bson.M{
				"enum": []string{"invoice", "estimate"},
			},

			"estimate_status": bson.M{
				"enum": []string{"draft", "sent", "accepted", "declined", "unknown"},
			},

			"items": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"description", "quantity", "unit_price"},
					"properties": bson.M{
						"description": bson.M{
							"bsonType":  "string",
							"minLength": 1,
							"maxLength": 200,
						},
						"quantity": bson.M{
							"bsonType": []string{"double", "int", "long", "decimal"},
						},
						"unit_price": bson.M{
							"bsonType": []string{"double", "int", "long", "decimal"},
							"minimum":  0,
						},
					},
				},
			},

			"tax_rate": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
				"maximum":  100,
			},

			"discount": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},

			"paid": bson.M{
				"bsonType": "bool",
			},

			"paid_at": bson.M{
				"bsonType": []string{"date", "null"},
			},

			"issue_date": bson.M{
				"bsonType": "date",
			},

			"client_portal_enabled": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
