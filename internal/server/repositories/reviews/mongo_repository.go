package reviews

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/dmitrijs2005/tours/internal/server/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "reviews"

type reviewDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Review    string             `bson:"review"`
	Rating    int                `bson:"rating"`
	Tour      primitive.ObjectID `bson:"tour"`
	User      primitive.ObjectID `bson:"user"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d *reviewDocument) toModel() *models.Review {
	return &models.Review{
		ID:        d.ID.Hex(),
		Review:    d.Review,
		Rating:    d.Rating,
		TourID:    d.Tour.Hex(),
		UserID:    d.User.Hex(),
		CreatedAt: d.CreatedAt,
	}
}

type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName), now: time.Now}
}

// Indexes returns the indexes the collection relies on.
func Indexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "tour", Value: 1}}},
	}
}

func (r *MongoRepository) Create(ctx context.Context, review *models.Review) (*models.Review, error) {
	tour, err := primitive.ObjectIDFromHex(review.TourID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a valid id", common.ErrorValidation, review.TourID)
	}
	user, err := primitive.ObjectIDFromHex(review.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a valid id", common.ErrorValidation, review.UserID)
	}

	doc := reviewDocument{
		ID:        primitive.NewObjectID(),
		Review:    review.Review,
		Rating:    review.Rating,
		Tour:      tour,
		User:      user,
		CreatedAt: r.now().UTC().Truncate(time.Millisecond),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	review.ID = doc.ID.Hex()
	review.CreatedAt = doc.CreatedAt
	return review, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.Review, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.ErrorNotFound
	}

	var doc reviewDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoRepository) List(ctx context.Context) ([]*models.Review, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoRepository) ListByTour(ctx context.Context, tourID string) ([]*models.Review, error) {
	oid, err := primitive.ObjectIDFromHex(tourID)
	if err != nil {
		return []*models.Review{}, nil
	}
	return r.find(ctx, bson.M{"tour": oid})
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M) ([]*models.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer cur.Close(ctx)

	var docs []reviewDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	result := make([]*models.Review, 0, len(docs))
	for i := range docs {
		result = append(result, docs[i].toModel())
	}
	return result, nil
}
