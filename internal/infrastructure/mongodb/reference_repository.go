package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/audit-service/internal/domain"
	sharedMongo "github.com/wms-platform/audit-service/pkg/mongodb"
)

// ReferenceRepository implements domain.ReferenceRepository
type ReferenceRepository struct {
	collection *mongo.Collection
	observer   *sharedMongo.Observer
}

// NewReferenceRepository creates a new ReferenceRepository. observer may be nil.
func NewReferenceRepository(db *mongo.Database, observer *sharedMongo.Observer) *ReferenceRepository {
	return &ReferenceRepository{
		collection: db.Collection(CollectionReference),
		observer:   observer,
	}
}

// candidateFilter translates one lookup step into a query. Numeric candidates convert the
// stored id server side so that "1001", 1001 and "1001.0" all match.
func candidateFilter(c domain.LookupCandidate) bson.M {
	switch c.Kind {
	case domain.CandidateExact:
		return bson.M{"skuId": c.Value}
	case domain.CandidateNumeric:
		return bson.M{"$expr": bson.M{"$eq": bson.A{
			bson.M{"$convert": bson.M{"input": "$skuId", "to": "double", "onError": nil, "onNull": nil}},
			c.Number,
		}}}
	default:
		return bson.M{"skuId": sharedMongo.CaseInsensitiveExact(c.Value)}
	}
}

func (r *ReferenceRepository) Lookup(ctx context.Context, candidates []domain.LookupCandidate) (*domain.ReferenceItem, error) {
	for _, c := range candidates {
		var item domain.ReferenceItem
		err := r.observer.Observe(ctx, CollectionReference, "lookup_"+c.Kind.String(), func(ctx context.Context) (int64, error) {
			if err := r.collection.FindOne(ctx, candidateFilter(c)).Decode(&item); err != nil {
				return 0, err
			}
			return 1, nil
		})
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up sku: %w", err)
		}
		return &item, nil
	}
	return nil, domain.ErrReferenceNotFound
}

// BulkUpsert writes the catalog keyed by skuId. Rows are independent so the batch is unordered.
func (r *ReferenceRepository) BulkUpsert(ctx context.Context, items []*domain.ReferenceItem) (domain.BulkResult, error) {
	result := domain.BulkResult{Received: len(items)}
	if len(items) == 0 {
		return result, nil
	}

	models := make([]mongo.WriteModel, 0, len(items))
	for _, item := range items {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"skuId": item.SkuID}).
			SetUpdate(bson.M{"$set": bson.M{
				"name":            item.Name,
				"pickingLocation": item.PickingLocation,
				"bulkLocation":    item.BulkLocation,
				"systemQuantity":  item.SystemQuantity,
				"updatedAt":       item.UpdatedAt,
			}}).
			SetUpsert(true))
	}

	err := r.observer.Observe(ctx, CollectionReference, "bulk_upsert", func(ctx context.Context) (int64, error) {
		res, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
		if res != nil {
			result.Matched = res.MatchedCount
			result.Modified = res.ModifiedCount
			result.Upserted = res.UpsertedCount
		}
		return result.Modified + result.Upserted, err
	})
	if err != nil {
		return result, fmt.Errorf("failed to upsert reference inventory: %w", err)
	}
	return result, nil
}

func (r *ReferenceRepository) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.observer.Observe(ctx, CollectionReference, "delete_all", func(ctx context.Context) (int64, error) {
		res, err := r.collection.DeleteMany(ctx, bson.M{})
		if err != nil {
			return 0, err
		}
		deleted = res.DeletedCount
		return deleted, nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete reference inventory: %w", err)
	}
	return deleted, nil
}
