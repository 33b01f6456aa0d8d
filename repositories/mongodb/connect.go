package mongodb

import (
	// Go Internal Packages
	"context"
	"time"

	// External Packages
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect connects to the mongodb server holding the durable transaction
// records and verifies the connection with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	timeout := time.Second * 5
	opts := &options.ClientOptions{ServerSelectionTimeout: &timeout}

	client, err := mongo.Connect(ctx, opts.ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}
