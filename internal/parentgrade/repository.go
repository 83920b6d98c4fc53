package parentgrade

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SettingsRepository persists parent notification settings.
type SettingsRepository struct {
	collection *mongo.Collection
}

func NewSettingsRepository(db *mongo.Database) *SettingsRepository {
	return &SettingsRepository{collection: db.Collection("parent_notification_settings")}
}

func (r *SettingsRepository) Get(ctx context.Context, userID string) (*Settings, error) {
	var st Settings
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&st)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

func (r *SettingsRepository) Put(ctx context.Context, st Settings) error {
	st.UpdatedAt = time.Now()
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": st.UserID}, st, opts)
	return err
}

func (r *SettingsRepository) AllEnabled(ctx context.Context) ([]Settings, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"enabled": true})
	if err != nil {
		return nil, err
	}
	var all []Settings
	if err := cursor.All(ctx, &all); err != nil {
		return nil, err
	}
	return all, nil
}

// QueueRepository persists deferred grade notifications.
type QueueRepository struct {
	collection *mongo.Collection
}

func NewQueueRepository(db *mongo.Database) *QueueRepository {
	return &QueueRepository{collection: db.Collection("parent_notification_queue")}
}

func (r *QueueRepository) Add(ctx context.Context, q QueuedNotification) error {
	_, err := r.collection.InsertOne(ctx, q)
	return err
}

func (r *QueueRepository) Due(ctx context.Context, freq Frequency, now time.Time) ([]QueuedNotification, error) {
	filter := bson.M{
		"sent":          false,
		"frequency":     freq,
		"scheduled_for": bson.M{"$lte": now},
	}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var due []QueuedNotification
	if err := cursor.All(ctx, &due); err != nil {
		return nil, err
	}
	return due, nil
}

func (r *QueueRepository) MarkSent(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"sent": true}})
	return err
}

func (r *QueueRepository) Compact(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{
		"sent":          true,
		"scheduled_for": bson.M{"$lt": before},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *QueueRepository) Clear(ctx context.Context) error {
	return r.collection.Drop(ctx)
}

// OCRQueueRepository persists deferred OCR validation notifications.
type OCRQueueRepository struct {
	collection *mongo.Collection
}

func NewOCRQueueRepository(db *mongo.Database) *OCRQueueRepository {
	return &OCRQueueRepository{collection: db.Collection("ocr_validation_queue")}
}

func (r *OCRQueueRepository) Add(ctx context.Context, q QueuedOCR) error {
	_, err := r.collection.InsertOne(ctx, q)
	return err
}

func (r *OCRQueueRepository) Due(ctx context.Context, now time.Time) ([]QueuedOCR, error) {
	filter := bson.M{"sent": false, "scheduled_for": bson.M{"$lte": now}}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var due []QueuedOCR
	if err := cursor.All(ctx, &due); err != nil {
		return nil, err
	}
	return due, nil
}

func (r *OCRQueueRepository) MarkSent(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"sent": true}})
	return err
}

func (r *OCRQueueRepository) Compact(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{
		"sent":          true,
		"scheduled_for": bson.M{"$lt": before},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *OCRQueueRepository) Clear(ctx context.Context) error {
	return r.collection.Drop(ctx)
}
