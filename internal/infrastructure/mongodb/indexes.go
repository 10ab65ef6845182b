package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	CollectionEntries    = "inventory_entries"
	CollectionIdentities = "identities"
	CollectionReference  = "reference_inventory"
)

// EnsureIndexes creates the indexes the repositories rely on. Safe to run on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	stringField := func(field string) bson.M {
		return bson.M{field: bson.M{"$type": "string"}}
	}

	plan := map[string][]mongo.IndexModel{
		CollectionEntries: {
			{Keys: bson.D{{Key: "itemKey", Value: 1}, {Key: "locationKey", Value: 1}, {Key: "timestamps.staffEntry", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "assignedClientId", Value: 1}, {Key: "timestamps.staffEntry", Value: -1}}},
			{Keys: bson.D{{Key: "staffId", Value: 1}, {Key: "timestamps.staffEntry", Value: -1}}},
			{Keys: bson.D{{Key: "timestamps.staffEntry", Value: -1}}},
		},
		CollectionIdentities: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(stringField("email")),
			},
			{
				Keys:    bson.D{{Key: "uniqueCode", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(stringField("uniqueCode")),
			},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "locations", Value: 1}}},
		},
		CollectionReference: {
			{Keys: bson.D{{Key: "skuId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for collection, models := range plan {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", collection, err)
		}
	}
	return nil
}
