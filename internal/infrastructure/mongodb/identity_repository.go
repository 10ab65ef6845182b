package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/audit-service/internal/domain"
	sharedMongo "github.com/wms-platform/audit-service/pkg/mongodb"
)

// IdentityRepository implements domain.IdentityRepository
type IdentityRepository struct {
	collection *mongo.Collection
	observer   *sharedMongo.Observer
	now        func() time.Time
}

// NewIdentityRepository creates a new IdentityRepository. observer may be nil.
func NewIdentityRepository(db *mongo.Database, observer *sharedMongo.Observer) *IdentityRepository {
	return &IdentityRepository{
		collection: db.Collection(CollectionIdentities),
		observer:   observer,
		now:        sharedMongo.Now,
	}
}

func (r *IdentityRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Identity, error) {
	return r.findOne(ctx, "find_by_id", bson.M{"_id": id})
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	if email == "" {
		return nil, domain.ErrIdentityNotFound
	}
	return r.findOne(ctx, "find_by_email", bson.M{"email": email})
}

func (r *IdentityRepository) FindByUniqueCode(ctx context.Context, code string) (*domain.Identity, error) {
	if code == "" {
		return nil, domain.ErrIdentityNotFound
	}
	return r.findOne(ctx, "find_by_unique_code", bson.M{"uniqueCode": code})
}

func (r *IdentityRepository) findOne(ctx context.Context, op string, filter bson.M) (*domain.Identity, error) {
	var identity domain.Identity
	err := r.observer.Observe(ctx, CollectionIdentities, op, func(ctx context.Context) (int64, error) {
		if err := r.collection.FindOne(ctx, filter).Decode(&identity); err != nil {
			return 0, err
		}
		return 1, nil
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	return &identity, nil
}

func (r *IdentityRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.Identity, error) {
	if len(ids) == 0 {
		return []*domain.Identity{}, nil
	}
	return r.find(ctx, "find_by_ids", bson.M{"_id": bson.M{"$in": ids}})
}

// FindClientsNear narrows clients in the database. The exact eligibility rule is applied by the caller.
func (r *IdentityRepository) FindClientsNear(ctx context.Context, loc string) ([]*domain.Identity, error) {
	want := domain.NormalizeLocation(loc)
	if want == "" {
		return []*domain.Identity{}, nil
	}
	filter := bson.M{
		"role": domain.RoleClient,
		"$or": bson.A{
			bson.M{"locations": sharedMongo.CaseInsensitiveExact(want)},
			bson.M{"mappedLocation": sharedMongo.CaseInsensitiveContains(want)},
		},
	}
	return r.find(ctx, "find_clients_near", filter)
}

func (r *IdentityRepository) List(ctx context.Context, role domain.Role) ([]*domain.Identity, error) {
	filter := bson.M{}
	if role != "" {
		filter["role"] = role
	}
	return r.find(ctx, "list", filter, options.Find().SetSort(sharedMongo.SortDescending("createdAt")))
}

func (r *IdentityRepository) find(ctx context.Context, op string, filter bson.M, opts ...*options.FindOptions) ([]*domain.Identity, error) {
	identities := make([]*domain.Identity, 0)
	err := r.observer.Observe(ctx, CollectionIdentities, op, func(ctx context.Context) (int64, error) {
		cursor, err := r.collection.Find(ctx, filter, opts...)
		if err != nil {
			return 0, err
		}
		defer cursor.Close(ctx)
		if err := cursor.All(ctx, &identities); err != nil {
			return 0, err
		}
		return int64(len(identities)), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	return identities, nil
}

func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	err := r.observer.Observe(ctx, CollectionIdentities, "insert", func(ctx context.Context) (int64, error) {
		res, err := r.collection.InsertOne(ctx, identity)
		if err != nil {
			return 0, err
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			identity.ID = id
		}
		return 1, nil
	})
	if sharedMongo.IsDuplicateKey(err) {
		return domain.ErrIdentityExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}
	return nil
}

func (r *IdentityRepository) Update(ctx context.Context, identity *domain.Identity) error {
	var matched int64
	err := r.observer.Observe(ctx, CollectionIdentities, "replace", func(ctx context.Context) (int64, error) {
		res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": identity.ID}, identity)
		if err != nil {
			return 0, err
		}
		matched = res.MatchedCount
		return res.ModifiedCount, nil
	})
	if sharedMongo.IsDuplicateKey(err) {
		return domain.ErrIdentityExists
	}
	if err != nil {
		return fmt.Errorf("failed to update identity: %w", err)
	}
	if matched == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

// BulkUpsertRoster upserts by unique code. Empty email, phone or PIN hash leave the stored value alone.
func (r *IdentityRepository) BulkUpsertRoster(ctx context.Context, identities []*domain.Identity) (domain.BulkResult, error) {
	result := domain.BulkResult{Received: len(identities)}
	if len(identities) == 0 {
		return result, nil
	}

	now := r.now()
	models := make([]mongo.WriteModel, 0, len(identities))
	for _, identity := range identities {
		locations := identity.Locations
		if locations == nil {
			locations = []string{}
		}
		set := bson.M{
			"name":           identity.Name,
			"role":           identity.Role,
			"locations":      locations,
			"mappedLocation": identity.MappedLocation,
			"updatedAt":      now,
		}
		if identity.Email != "" {
			set["email"] = identity.Email
		}
		if identity.Phone != "" {
			set["phone"] = identity.Phone
		}
		if identity.PinHash != "" {
			set["pinHash"] = identity.PinHash
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"uniqueCode": identity.UniqueCode}).
			SetUpdate(bson.M{"$set": set, "$setOnInsert": bson.M{"createdAt": now}}).
			SetUpsert(true))
	}

	err := r.observer.Observe(ctx, CollectionIdentities, "bulk_upsert", func(ctx context.Context) (int64, error) {
		res, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
		if res != nil {
			result.Matched = res.MatchedCount
			result.Modified = res.ModifiedCount
			result.Upserted = res.UpsertedCount
		}
		return result.Modified + result.Upserted, err
	})
	if sharedMongo.IsDuplicateKey(err) {
		return result, domain.ErrIdentityExists
	}
	if err != nil {
		return result, fmt.Errorf("failed to upsert roster: %w", err)
	}
	return result, nil
}

func (r *IdentityRepository) RecordLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return r.observer.Observe(ctx, CollectionIdentities, "record_login", func(ctx context.Context) (int64, error) {
		res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastLoginAt": at}})
		if err != nil {
			return 0, fmt.Errorf("failed to record login: %w", err)
		}
		return res.ModifiedCount, nil
	})
}

func (r *IdentityRepository) DeleteByRole(ctx context.Context, role domain.Role) (int64, error) {
	var deleted int64
	err := r.observer.Observe(ctx, CollectionIdentities, "delete_by_role", func(ctx context.Context) (int64, error) {
		res, err := r.collection.DeleteMany(ctx, bson.M{"role": role})
		if err != nil {
			return 0, err
		}
		deleted = res.DeletedCount
		return deleted, nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete identities: %w", err)
	}
	return deleted, nil
}
