package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"order-lifecycle-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrVersionConflict means another transition won the race; callers
	// re-read and observe the new state instead of overwriting it.
	ErrVersionConflict = errors.New("order was modified concurrently")
)

// ListFilter narrows admin order listings. All set fields compose with AND;
// Query alone expands to an OR over order number and user identifier.
type ListFilter struct {
	Status        models.OrderStatus
	PaymentStatus models.PaymentStatus
	From          *time.Time
	To            *time.Time
	Query         string
	MatchUsers    bool
}

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByIDAndUserID(ctx context.Context, id, userID string) (*models.Order, error)
	FindByIntentID(ctx context.Context, intentID string) (*models.Order, error)
	FindByUserID(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error)
	List(ctx context.Context, filter ListFilter, page, limit int) ([]models.Order, int64, error)
	MarkCartCleared(ctx context.Context, id string) error
	SetPaymentIntent(ctx context.Context, id, intentID, currency string) error
	UpdateWithVersion(ctx context.Context, id string, version int64, set bson.M, inc bson.M) (*models.Order, error)
}

// MongoOrderRepository implements OrderRepository on a MongoDB collection.
type MongoOrderRepository struct {
	coll *mongo.Collection
}

func NewMongoOrderRepository(coll *mongo.Collection) OrderRepository {
	return &MongoOrderRepository{coll: coll}
}

func (r *MongoOrderRepository) Create(ctx context.Context, order *models.Order) error {
	_, err := r.coll.InsertOne(ctx, order)
	return err
}

func (r *MongoOrderRepository) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var order models.Order
	err := r.coll.FindOne(ctx, filter).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *MongoOrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoOrderRepository) FindByIDAndUserID(ctx context.Context, id, userID string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id, "user_id": userID})
}

func (r *MongoOrderRepository) FindByIntentID(ctx context.Context, intentID string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"payment_intent_id": intentID})
}

// FindByUserID retrieves orders for a specific user with pagination,
// newest first.
func (r *MongoOrderRepository) FindByUserID(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	return r.paginate(ctx, bson.M{"user_id": userID}, page, limit)
}

// List retrieves orders matching the admin filter with pagination.
func (r *MongoOrderRepository) List(ctx context.Context, filter ListFilter, page, limit int) ([]models.Order, int64, error) {
	query := bson.M{}

	if filter.Status != "" {
		query["order_status"] = filter.Status
	}
	if filter.PaymentStatus != "" {
		query["payment_status"] = filter.PaymentStatus
	}
	if filter.From != nil || filter.To != nil {
		created := bson.M{}
		if filter.From != nil {
			created["$gte"] = *filter.From
		}
		if filter.To != nil {
			created["$lte"] = *filter.To
		}
		query["created_at"] = created
	}
	if filter.Query != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Query), Options: "i"}
		or := []bson.M{{"order_number": pattern}}
		if filter.MatchUsers {
			or = append(or, bson.M{"user_id": pattern})
		}
		query["$or"] = or
	}

	return r.paginate(ctx, query, page, limit)
}

func (r *MongoOrderRepository) paginate(ctx context.Context, query bson.M, page, limit int) ([]models.Order, int64, error) {
	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0, limit)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// MarkCartCleared stamps the write-ahead marker after the cart delete
// succeeded. Not version-guarded: the flag only ever goes false -> true.
func (r *MongoOrderRepository) MarkCartCleared(ctx context.Context, id string) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"cart_cleared": true, "updated_at": time.Now().UTC()},
	})
	return err
}

// SetPaymentIntent records the gateway intent handle on the order.
func (r *MongoOrderRepository) SetPaymentIntent(ctx context.Context, id, intentID, currency string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"payment_intent_id": intentID,
			"currency":          currency,
			"updated_at":        time.Now().UTC(),
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateWithVersion applies a state transition guarded by the order's
// version counter, so concurrent transitions serialize per order and only
// one writer wins. Returns the updated document.
func (r *MongoOrderRepository) UpdateWithVersion(ctx context.Context, id string, version int64, set bson.M, inc bson.M) (*models.Order, error) {
	if set == nil {
		set = bson.M{}
	}
	set["updated_at"] = time.Now().UTC()

	if inc == nil {
		inc = bson.M{}
	}
	inc["version"] = int64(1)

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Order
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "version": version},
		bson.M{"$set": set, "$inc": inc},
		opts,
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// The id exists (caller just loaded it); the version moved under us.
		return nil, ErrVersionConflict
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
