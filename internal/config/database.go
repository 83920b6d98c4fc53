package config

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewMongoDatabase connects to MongoDB and registers a lifecycle hook to
// close the connection on shutdown.
func NewMongoDatabase(lc fx.Lifecycle, cfg *Config, log *zap.Logger) (*mongo.Database, error) {
	clientOptions := options.Client().ApplyURI(cfg.MongoURI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	log.Info("Connected to MongoDB", zap.String("database", cfg.MongoDatabase))

	lc.Append(fx.Hook{
		OnStop: func(stopCtx context.Context) error {
			log.Info("Closing MongoDB connection ...")
			return client.Disconnect(stopCtx)
		},
	})
	return client.Database(cfg.MongoDatabase), nil
}
