// Package mongostore implements the catalog store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/ammerola/warehouse-crm/internal/core/domain"
	"github.com/ammerola/warehouse-crm/internal/core/ports"
)

// countersCollection holds one sequence document per catalog collection
const countersCollection = "counters"

type store struct {
	coll     *mongo.Collection
	counters *mongo.Collection
	logger   *slog.Logger
}

var _ ports.CatalogStore = (*store)(nil)

// NewCatalogStore wraps a collection. Call EnsureIndexes once before serving.
func NewCatalogStore(collection *mongo.Collection, logger *slog.Logger) ports.CatalogStore {
	return &store{
		coll:     collection,
		counters: collection.Database().Collection(countersCollection),
		logger:   logger.With(slog.String("repository", "catalog_mongo")),
	}
}

// EnsureIndexes creates the unique sku index and the listing index
func EnsureIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sku", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("sku_unique"),
		},
		{Keys: listingSort()},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	}, options.CreateIndexes())

	return err
}

func (s *store) Find(ctx context.Context, filter domain.CatalogFilter, opts ports.FindOptions) ([]*domain.CatalogRecord, error) {
	const op = "mongostore.Find"

	findOpts := options.Find().SetSort(listingSort())
	if opts.Skip > 0 {
		findOpts.SetSkip(int64(opts.Skip))
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	return s.findMany(ctx, op, buildFilter(filter), findOpts)
}

func (s *store) Count(ctx context.Context, filter domain.CatalogFilter) (int64, error) {
	const op = "mongostore.Count"

	n, err := s.coll.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

func (s *store) FindByID(ctx context.Context, id uuid.UUID) (*domain.CatalogRecord, error) {
	return s.findOne(ctx, "mongostore.FindByID", bson.M{"_id": id.String()})
}

func (s *store) FindBySKU(ctx context.Context, sku string) (*domain.CatalogRecord, error) {
	return s.findOne(ctx, "mongostore.FindBySKU", bson.M{"sku": sku})
}

func (s *store) FindLowStock(ctx context.Context) ([]*domain.CatalogRecord, error) {
	return s.findMany(ctx, "mongostore.FindLowStock", lowStockFilter(), options.Find().SetSort(listingSort()))
}

func (s *store) Insert(ctx context.Context, record *domain.CatalogRecord) error {
	const op = "mongostore.Insert"

	ent, err := entityFromModel(record)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if ent.Seq, err = s.nextSeq(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.coll.InsertOne(ctx, ent); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("sku %q: %w", record.SKU, domain.ErrDuplicateKey)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	s.logger.DebugContext(ctx, "catalog record inserted",
		slog.String("id", ent.ID),
		slog.String("sku", ent.SKU))

	return nil
}

// nextSeq atomically increments the collection's counter document. Every
// process sharing the database draws from the same sequence.
func (s *store) nextSeq(ctx context.Context) (int64, error) {
	var doc struct {
		Value int64 `bson:"value"`
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = s.counters.FindOneAndUpdate(ctx,
			bson.M{"_id": s.coll.Name()},
			bson.M{"$inc": bson.M{"value": int64(1)}},
			opts,
		).Decode(&doc)
		// Two first inserts can race on the upsert; the loser retries as an update.
		if err == nil || !mongo.IsDuplicateKeyError(err) {
			break
		}
	}
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return doc.Value, nil
}

func (s *store) UpdateOne(ctx context.Context, record *domain.CatalogRecord) error {
	const op = "mongostore.UpdateOne"

	ent, err := entityFromModel(record)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": ent.ID}, bson.M{"$set": bson.M{
		"name":         ent.Name,
		"sku":          ent.SKU,
		"description":  ent.Description,
		"category":     ent.Category,
		"price":        ent.Price,
		"quantity":     ent.Quantity,
		"minimumStock": ent.MinimumStock,
		"location":     ent.Location,
		"supplier":     ent.Supplier,
		"imageUrl":     ent.ImageURL,
		"isActive":     ent.IsActive,
		"updatedAt":    ent.UpdatedAt,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("sku %q: %w", record.SKU, domain.ErrDuplicateKey)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (s *store) DeleteOne(ctx context.Context, id uuid.UUID) error {
	const op = "mongostore.DeleteOne"

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}

	s.logger.InfoContext(ctx, "catalog record deleted", slog.String("id", id.String()))
	return nil
}

func (s *store) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func (s *store) findOne(ctx context.Context, op string, filter bson.M) (*domain.CatalogRecord, error) {
	var ent recordEntity
	if err := s.coll.FindOne(ctx, filter).Decode(&ent); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	record, err := entityToModel(&ent)
	if err != nil {
		return nil, fmt.Errorf("%s decode: %w", op, err)
	}
	return record, nil
}

func (s *store) findMany(ctx context.Context, op string, filter bson.M, opts *options.FindOptionsBuilder) ([]*domain.CatalogRecord, error) {
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if cerr := cur.Close(ctx); cerr != nil {
			s.logger.WarnContext(ctx, "failed to close cursor",
				slog.String("op", op),
				slog.String("error", cerr.Error()))
		}
	}()

	out := make([]*domain.CatalogRecord, 0)
	for cur.Next(ctx) {
		var ent recordEntity
		if err := cur.Decode(&ent); err != nil {
			return nil, fmt.Errorf("%s decode: %w", op, err)
		}
		record, err := entityToModel(&ent)
		if err != nil {
			return nil, fmt.Errorf("%s decode: %w", op, err)
		}
		out = append(out, record)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s cursor: %w", op, err)
	}

	return out, nil
}
