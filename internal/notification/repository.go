package notification

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo-backed stores. Each former browser storage key maps to its own
// collection, read and written per document so interleaved flows cannot
// lose each other's updates.

// HistoryRepository persists delivered notifications.
type HistoryRepository struct {
	collection *mongo.Collection
}

func NewHistoryRepository(db *mongo.Database) *HistoryRepository {
	return &HistoryRepository{collection: db.Collection("notification_history")}
}

func (r *HistoryRepository) Append(ctx context.Context, item HistoryItem) error {
	_, err := r.collection.InsertOne(ctx, item)
	return err
}

func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]HistoryItem, error) {
	opts := options.Find().SetSort(bson.M{"delivered_at": -1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var items []HistoryItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *HistoryRepository) Trim(ctx context.Context, keep int) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return err
	}
	excess := count - int64(keep)
	if excess <= 0 {
		return nil
	}
	opts := options.Find().
		SetSort(bson.M{"delivered_at": 1}).
		SetLimit(excess).
		SetProjection(bson.M{"_id": 1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return err
	}
	var oldest []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &oldest); err != nil {
		return err
	}
	ids := make([]string, 0, len(oldest))
	for _, doc := range oldest {
		ids = append(ids, doc.ID)
	}
	_, err = r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

func (r *HistoryRepository) MarkRead(ctx context.Context, id string) error {
	res, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New("notification not found")
	}
	return nil
}

func (r *HistoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errors.New("notification not found")
	}
	return nil
}

func (r *HistoryRepository) Drop(ctx context.Context) error {
	return r.collection.Drop(ctx)
}

// AnalyticsRepository persists per-notification interaction counters.
type AnalyticsRepository struct {
	collection *mongo.Collection
}

func NewAnalyticsRepository(db *mongo.Database) *AnalyticsRepository {
	return &AnalyticsRepository{collection: db.Collection("notification_analytics")}
}

func (r *AnalyticsRepository) Increment(ctx context.Context, id string, action Action, role string) error {
	inc := bson.M{string(action): 1}
	if role != "" {
		inc["role_breakdown."+role] = 1
	}
	update := bson.M{
		"$inc": inc,
		"$set": bson.M{"updated_at": time.Now()},
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateByID(ctx, id, update, opts)
	return err
}

func (r *AnalyticsRepository) Get(ctx context.Context, id string) (*Analytics, error) {
	var a Analytics
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *AnalyticsRepository) All(ctx context.Context) ([]Analytics, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var records []Analytics
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *AnalyticsRepository) Drop(ctx context.Context) error {
	return r.collection.Drop(ctx)
}

// TemplateRepository persists user-created templates. Built-ins never hit
// the database.
type TemplateRepository struct {
	collection *mongo.Collection
}

func NewTemplateRepository(db *mongo.Database) *TemplateRepository {
	return &TemplateRepository{collection: db.Collection("notification_templates")}
}

func (r *TemplateRepository) All(ctx context.Context) ([]Template, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var templates []Template
	if err := cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *TemplateRepository) Put(ctx context.Context, tpl Template) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": tpl.ID}, tpl, opts)
	return err
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errors.New("template not found")
	}
	return nil
}

// SubscriptionRepository persists push permission state and endpoints.
type SubscriptionRepository struct {
	collection *mongo.Collection
}

func NewSubscriptionRepository(db *mongo.Database) *SubscriptionRepository {
	return &SubscriptionRepository{collection: db.Collection("push_subscriptions")}
}

func (r *SubscriptionRepository) Get(ctx context.Context, userID string) (*PushSubscription, error) {
	var sub PushSubscription
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&sub)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) Put(ctx context.Context, sub PushSubscription) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": sub.UserID}, sub, opts)
	return err
}

func (r *SubscriptionRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": userID})
	return err
}

// BatchRepository persists bulk-send batches.
type BatchRepository struct {
	collection *mongo.Collection
}

func NewBatchRepository(db *mongo.Database) *BatchRepository {
	return &BatchRepository{collection: db.Collection("notification_batches")}
}

func (r *BatchRepository) Put(ctx context.Context, batch *Batch) error {
	batch.UpdatedAt = time.Now()
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": batch.ID}, batch, opts)
	return err
}

func (r *BatchRepository) Get(ctx context.Context, id string) (*Batch, error) {
	var batch Batch
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&batch)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// ScheduledRepository persists admin-scheduled notifications.
type ScheduledRepository struct {
	collection *mongo.Collection
}

func NewScheduledRepository(db *mongo.Database) *ScheduledRepository {
	return &ScheduledRepository{collection: db.Collection("scheduled_notifications")}
}

func (r *ScheduledRepository) Create(ctx context.Context, s *Scheduled) error {
	_, err := r.collection.InsertOne(ctx, s)
	return err
}

func (r *ScheduledRepository) Due(ctx context.Context, now time.Time) ([]*Scheduled, error) {
	filter := bson.M{"status": "scheduled", "send_time": bson.M{"$lte": now}}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var due []*Scheduled
	if err := cursor.All(ctx, &due); err != nil {
		return nil, err
	}
	return due, nil
}

func (r *ScheduledRepository) UpdateStatus(ctx context.Context, id, status string, sentTo int) error {
	update := bson.M{"$set": bson.M{"status": status, "sent_to": sentTo, "updated_at": time.Now()}}
	res, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New("scheduled notification not found")
	}
	return nil
}

func (r *ScheduledRepository) List(ctx context.Context) ([]*Scheduled, error) {
	opts := options.Find().SetSort(bson.M{"send_time": -1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var all []*Scheduled
	if err := cursor.All(ctx, &all); err != nil {
		return nil, err
	}
	return all, nil
}

func (r *ScheduledRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errors.New("scheduled notification not found")
	}
	return nil
}
