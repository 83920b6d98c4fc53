package user

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repository handles DB access for the user directory.
type Repository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{collection: db.Collection("users")}
}

// FindByID returns the user with the given id, or nil when absent.
func (r *Repository) FindByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// FindByRoles returns users whose primary or extra role matches any of the
// given roles. An empty role list means no role filter: all users.
func (r *Repository) FindByRoles(ctx context.Context, roles []string) ([]User, error) {
	filter := bson.M{}
	if len(roles) > 0 {
		filter = bson.M{"$or": []bson.M{
			{"role": bson.M{"$in": roles}},
			{"extra_roles": bson.M{"$in": roles}},
		}}
	}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var users []User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// FindByIDs returns the users with the given ids, skipping unknown ids.
func (r *Repository) FindByIDs(ctx context.Context, ids []string) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var users []User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdatePreferences stores the notification preference fields for a user.
func (r *Repository) UpdatePreferences(ctx context.Context, id string, email, voice bool, disabledTypes []string) error {
	update := bson.M{"$set": bson.M{
		"email_notifications": email,
		"voice_notifications": voice,
		"disabled_types":      disabledTypes,
	}}
	_, err := r.collection.UpdateByID(ctx, id, update)
	return err
}
