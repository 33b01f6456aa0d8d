package mongodb

import (
	// Go Internal Packages
	"context"
	"time"

	// Local Packages
	errors "payflow/errors"
	lifecycle "payflow/lifecycle"
	models "payflow/models"

	// External Packages
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TransactionStore struct {
	client     *mongo.Client
	database   string
	collection string
}

func NewTransactionStore(client *mongo.Client, database string) *TransactionStore {
	return &TransactionStore{client: client, database: database, collection: "transactions"}
}

func (r *TransactionStore) coll() *mongo.Collection {
	return r.client.Database(r.database).Collection(r.collection)
}

// EnsureIndexes creates the unique reference index that backs duplicate
// detection outside the idempotency TTL window.
func (r *TransactionStore) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "internal_reference", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	return err
}

// Create inserts a new transaction. A duplicate internal reference surfaces
// as a Conflict error.
func (r *TransactionStore) Create(ctx context.Context, tx *models.Transaction) error {
	_, err := r.coll().InsertOne(ctx, tx)
	if mongo.IsDuplicateKeyError(err) {
		return errors.DuplicateTransactionErr(tx.InternalRef, err)
	}
	return err
}

func (r *TransactionStore) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&tx)
	if err == mongo.ErrNoDocuments {
		return nil, errors.TransactionNotFoundErr(id)
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Update replaces the document conditioned on the version the caller read,
// so concurrent writers cannot silently overwrite each other. The version is
// bumped on success.
func (r *TransactionStore) Update(ctx context.Context, tx *models.Transaction) error {
	readVersion := tx.Version
	tx.Version++
	tx.UpdatedAt = time.Now().UTC()

	res, err := r.coll().ReplaceOne(ctx, bson.M{"_id": tx.ID, "version": readVersion}, tx)
	if err != nil {
		tx.Version = readVersion
		return err
	}
	if res.MatchedCount == 0 {
		tx.Version = readVersion
		return errors.ConflictErr(tx.ID, nil)
	}
	return nil
}

// UpdateStatus applies a status transition conditioned on the expected
// current status. A losing racer gets a Conflict error and the stored
// document is untouched. Timestamp side effects follow the state machine.
func (r *TransactionStore) UpdateStatus(ctx context.Context, id string, from, to models.TransactionStatus) (*models.Transaction, error) {
	now := time.Now().UTC()
	set := bson.M{"status": to, "updated_at": now}

	stamps := lifecycle.StampsFor(to, now)
	if stamps.ProcessedAt != nil {
		set["processed_at"] = *stamps.ProcessedAt
	}
	if stamps.SettledAt != nil {
		set["settled_at"] = *stamps.SettledAt
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var tx models.Transaction
	err := r.coll().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
		opts,
	).Decode(&tx)
	if err == mongo.ErrNoDocuments {
		return nil, errors.ConflictErr(id, nil)
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Query returns a page of transactions matching the filter, newest first.
func (r *TransactionStore) Query(ctx context.Context, f models.TxFilter, page, limit int64) (*models.TxPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := bson.M{}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.MerchantID != "" {
		filter["merchant_id"] = f.MerchantID
	}
	if f.GatewayID != "" {
		filter["gateway_id"] = f.GatewayID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Currency != "" {
		filter["currency"] = f.Currency
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		created := bson.M{}
		if !f.From.IsZero() {
			created["$gte"] = f.From
		}
		if !f.To.IsZero() {
			created["$lte"] = f.To
		}
		filter["created_at"] = created
	}

	total, err := r.coll().CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cur, err := r.coll().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cur.Close(ctx)
	}()

	data := make([]models.Transaction, 0, limit)
	if err := cur.All(ctx, &data); err != nil {
		return nil, err
	}

	return &models.TxPage{
		Data:       data,
		Pagination: models.Pagination{Page: page, Limit: limit, Total: total},
	}, nil
}
