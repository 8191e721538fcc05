package image

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// CollectionName is the MongoDB collection holding image records.
const CollectionName = "imageposts"

var _ Repository = (*MongoRepository)(nil)

type mongoImage struct {
	Key string `bson:"imageKey"`
	URL string `bson:"url"`
}

type mongoRecord struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Images    []mongoImage  `bson:"images"`
	CreatedAt time.Time     `bson:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

func (m *mongoRecord) toRecord() *Record {
	r := &Record{
		ID:        m.ID.Hex(),
		Images:    make([]Image, 0, len(m.Images)),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	for _, img := range m.Images {
		r.Images = append(r.Images, Image{Key: img.Key, URL: img.URL})
	}
	return r
}

// MongoRepository stores records as documents with embedded images.
type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoRepository creates a repository on the imageposts collection of db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName), now: time.Now}
}

// Create inserts a new record and returns it.
func (r *MongoRepository) Create(ctx context.Context, keys []string) (*Record, error) {
	now := r.now().UTC().Truncate(time.Millisecond)
	doc := mongoRecord{
		Images:    make([]mongoImage, 0, len(keys)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, k := range keys {
		doc.Images = append(doc.Images, mongoImage{Key: k})
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert image record: %w", err)
	}
	id, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return nil, fmt.Errorf("insert image record: unexpected id type %T", res.InsertedID)
	}
	doc.ID = id
	return doc.toRecord(), nil
}

// FindByID fetches a record by its hex ObjectID.
func (r *MongoRepository) FindByID(ctx context.Context, id string) (*Record, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc mongoRecord
	err = r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find image record: %w", err)
	}
	return doc.toRecord(), nil
}

// UpdateImageURL sets images.$.url for the embedded image matching key.
func (r *MongoRepository) UpdateImageURL(ctx context.Context, id, key, url string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	filter := bson.D{
		{Key: "_id", Value: oid},
		{Key: "images.imageKey", Value: key},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "images.$.url", Value: url},
		{Key: "updatedAt", Value: r.now().UTC()},
	}}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update image url: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByID removes a record.
func (r *MongoRepository) DeleteByID(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("delete image record: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
