package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/audit-service/internal/domain"
	sharedMongo "github.com/wms-platform/audit-service/pkg/mongodb"
)

// EntryRepository implements domain.EntryRepository
type EntryRepository struct {
	collection *mongo.Collection
	observer   *sharedMongo.Observer
}

// NewEntryRepository creates a new EntryRepository. observer may be nil.
func NewEntryRepository(db *mongo.Database, observer *sharedMongo.Observer) *EntryRepository {
	return &EntryRepository{
		collection: db.Collection(CollectionEntries),
		observer:   observer,
	}
}

func (r *EntryRepository) Create(ctx context.Context, entry *domain.InventoryEntry) error {
	return r.observer.Observe(ctx, CollectionEntries, "insert", func(ctx context.Context) (int64, error) {
		res, err := r.collection.InsertOne(ctx, entry)
		if err != nil {
			return 0, fmt.Errorf("failed to insert entry: %w", err)
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			entry.ID = id
		}
		return 1, nil
	})
}

func (r *EntryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.InventoryEntry, error) {
	return r.findOne(ctx, "find_by_id", bson.M{"_id": id})
}

func (r *EntryRepository) FindLatestByKey(ctx context.Context, itemKey, locationKey string) (*domain.InventoryEntry, error) {
	filter := bson.M{"itemKey": itemKey, "locationKey": locationKey}
	opts := options.FindOne().SetSort(sharedMongo.SortDescending("timestamps.staffEntry"))
	return r.findOne(ctx, "find_latest_by_key", filter, opts)
}

func (r *EntryRepository) findOne(ctx context.Context, op string, filter bson.M, opts ...*options.FindOneOptions) (*domain.InventoryEntry, error) {
	var entry domain.InventoryEntry
	err := r.observer.Observe(ctx, CollectionEntries, op, func(ctx context.Context) (int64, error) {
		if err := r.collection.FindOne(ctx, filter, opts...).Decode(&entry); err != nil {
			return 0, err
		}
		return 1, nil
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find entry: %w", err)
	}
	return &entry, nil
}

// SaveResponse only matches while the stored status is still pending-client
func (r *EntryRepository) SaveResponse(ctx context.Context, entry *domain.InventoryEntry) error {
	filter := bson.M{"_id": entry.ID, "status": domain.StatusPendingClient}
	update := bson.M{"$set": bson.M{
		"status":                    entry.Status,
		"clientResponse":            entry.ClientResponse,
		"timestamps.clientResponse": entry.Timestamps.ClientResponse,
		"timestamps.finalStatus":    entry.Timestamps.FinalStatus,
	}}

	var matched int64
	err := r.observer.Observe(ctx, CollectionEntries, "save_response", func(ctx context.Context) (int64, error) {
		res, err := r.collection.UpdateOne(ctx, filter, update)
		if err != nil {
			return 0, err
		}
		matched = res.MatchedCount
		return res.ModifiedCount, nil
	})
	if err != nil {
		return fmt.Errorf("failed to save response: %w", err)
	}
	if matched == 0 {
		return domain.ErrEntryNotPending
	}
	return nil
}

func (r *EntryRepository) FindPending(ctx context.Context, clientID primitive.ObjectID) ([]*domain.InventoryEntry, error) {
	filter := bson.M{"status": domain.StatusPendingClient}
	if !clientID.IsZero() {
		filter["assignedClientId"] = clientID
	}
	return r.find(ctx, "find_pending", filter)
}

func (r *EntryRepository) FindByStaff(ctx context.Context, staffID primitive.ObjectID) ([]*domain.InventoryEntry, error) {
	return r.find(ctx, "find_by_staff", bson.M{"staffId": staffID})
}

func (r *EntryRepository) find(ctx context.Context, op string, filter bson.M) ([]*domain.InventoryEntry, error) {
	opts := options.Find().SetSort(sharedMongo.SortDescending("timestamps.staffEntry"))

	entries := make([]*domain.InventoryEntry, 0)
	err := r.observer.Observe(ctx, CollectionEntries, op, func(ctx context.Context) (int64, error) {
		cursor, err := r.collection.Find(ctx, filter, opts)
		if err != nil {
			return 0, err
		}
		defer cursor.Close(ctx)
		if err := cursor.All(ctx, &entries); err != nil {
			return 0, err
		}
		return int64(len(entries)), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

type namedDoc struct {
	Name string `bson:"name"`
}

type reportDoc struct {
	domain.InventoryEntry `bson:",inline"`
	Staff                 []namedDoc             `bson:"staff"`
	Client                []namedDoc             `bson:"client"`
	Reference             []domain.ReferenceItem `bson:"reference"`
}

// Report filters on submission date, sorts newest first, applies the limit and then joins
// the staff member, the assigned client and the catalog item
func (r *EntryRepository) Report(ctx context.Context, filter domain.ReportFilter) ([]domain.ReportRow, error) {
	match := bson.M{}
	dateRange := bson.M{}
	if filter.StartDate != nil {
		dateRange["$gte"] = *filter.StartDate
	}
	if filter.EndDate != nil {
		dateRange["$lte"] = *filter.EndDate
	}
	if len(dateRange) > 0 {
		match["timestamps.staffEntry"] = dateRange
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: sharedMongo.SortDescending("timestamps.staffEntry")}},
	}
	if filter.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: filter.Limit}})
	}
	pipeline = append(pipeline,
		lookupStage(CollectionIdentities, "staffId", "_id", "staff"),
		lookupStage(CollectionIdentities, "assignedClientId", "_id", "client"),
		lookupStage(CollectionReference, "sku.skuId", "skuId", "reference"),
	)

	var docs []reportDoc
	err := r.observer.Observe(ctx, CollectionEntries, "report", func(ctx context.Context) (int64, error) {
		cursor, err := r.collection.Aggregate(ctx, pipeline)
		if err != nil {
			return 0, err
		}
		defer cursor.Close(ctx)
		if err := cursor.All(ctx, &docs); err != nil {
			return 0, err
		}
		return int64(len(docs)), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build report: %w", err)
	}

	rows := make([]domain.ReportRow, 0, len(docs))
	for i := range docs {
		rows = append(rows, docs[i].toRow())
	}
	return rows, nil
}

func lookupStage(from, localField, foreignField, as string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: from},
		{Key: "localField", Value: localField},
		{Key: "foreignField", Value: foreignField},
		{Key: "as", Value: as},
	}}}
}

func (d *reportDoc) toRow() domain.ReportRow {
	e := &d.InventoryEntry
	row := domain.ReportRow{
		EntryID:           e.ID.Hex(),
		Kind:              e.Kind,
		ItemID:            e.ItemID(),
		ItemName:          e.ItemName(),
		SubmittedLocation: e.Location,
		OdinMin:           e.MinQuantity,
		OdinMax:           e.MaxQuantity,
		PhysicalCount:     e.TotalIdentified,
		Status:            e.Status,
		AuditResult:       e.AuditResult,
		DateSubmitted:     e.Timestamps.StaffEntry,
	}
	if e.Sku != nil {
		row.OdinBlocked = e.Sku.Odin.BlockedQuantity
		row.Counts = e.Sku.Counts
	}
	if e.ClientResponse != nil {
		row.ClientComment = e.ClientResponse.Comment
	}
	if len(d.Staff) > 0 {
		row.StaffName = d.Staff[0].Name
	}
	if len(d.Client) > 0 {
		row.ClientName = d.Client[0].Name
	}
	if len(d.Reference) > 0 {
		ref := d.Reference[0]
		row.PickingLocation = ref.PickingLocation
		row.BulkLocation = ref.BulkLocation
		if row.ItemName == "" {
			row.ItemName = ref.Name
		}
	}
	return row
}
