package tours

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

const CollectionName = "tours"

var mongoOperators = map[models.FilterOp]string{
	models.OpEq:  "$eq",
	models.OpGt:  "$gt",
	models.OpGte: "$gte",
	models.OpLt:  "$lt",
	models.OpLte: "$lte",
}

type locationDocument struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
	Address     string    `bson:"address,omitempty"`
	Description string    `bson:"description,omitempty"`
	Day         int       `bson:"day,omitempty"`
}

type tourDocument struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	Name            string               `bson:"name"`
	Duration        int                  `bson:"duration"`
	MaxGroupSize    int                  `bson:"maxGroupSize"`
	Difficulty      string               `bson:"difficulty"`
	RatingsAverage  float64              `bson:"ratingsAverage"`
	RatingsQuantity int                  `bson:"ratingsQuantity"`
	Price           float64              `bson:"price"`
	PriceDiscount   *float64             `bson:"priceDiscount,omitempty"`
	Summary         string               `bson:"summary"`
	Description     string               `bson:"description,omitempty"`
	ImageCover      string               `bson:"imageCover"`
	Images          []string             `bson:"images"`
	StartDates      []time.Time          `bson:"startDates"`
	StartLocation   *locationDocument    `bson:"startLocation,omitempty"`
	Locations       []locationDocument   `bson:"locations"`
	Guides          []primitive.ObjectID `bson:"guides"`
	CreatedAt       time.Time            `bson:"createdAt"`
}

func toLocationDocument(l models.Location) locationDocument {
	return locationDocument{Type: l.Type, Coordinates: l.Coordinates, Address: l.Address, Description: l.Description, Day: l.Day}
}

func (d locationDocument) toModel() models.Location {
	return models.Location{Type: d.Type, Coordinates: d.Coordinates, Address: d.Address, Description: d.Description, Day: d.Day}
}

func toLocationDocuments(ls []models.Location) []locationDocument {
	out := make([]locationDocument, len(ls))
	for i, l := range ls {
		out[i] = toLocationDocument(l)
	}
	return out
}

func toObjectIDs(ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("%w: guide %q is not a valid id", common.ErrorValidation, id)
		}
		out = append(out, oid)
	}
	return out, nil
}

func (d *tourDocument) toModel() *models.Tour {
	t := &models.Tour{
		ID:              d.ID.Hex(),
		Name:            d.Name,
		Duration:        d.Duration,
		MaxGroupSize:    d.MaxGroupSize,
		Difficulty:      d.Difficulty,
		RatingsAverage:  d.RatingsAverage,
		RatingsQuantity: d.RatingsQuantity,
		Price:           d.Price,
		PriceDiscount:   d.PriceDiscount,
		Summary:         d.Summary,
		Description:     d.Description,
		ImageCover:      d.ImageCover,
		Images:          nonNil(d.Images),
		StartDates:      nonNil(d.StartDates),
		Locations:       make([]models.Location, len(d.Locations)),
		Guides:          make([]string, len(d.Guides)),
		CreatedAt:       d.CreatedAt,
	}
	if d.StartLocation != nil {
		l := d.StartLocation.toModel()
		t.StartLocation = &l
	}
	for i, l := range d.Locations {
		t.Locations[i] = l.toModel()
	}
	for i, g := range d.Guides {
		t.Guides[i] = g.Hex()
	}
	return t
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
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "price", Value: 1}, {Key: "ratingsAverage", Value: -1}}},
	}
}

func (r *MongoRepository) Create(ctx context.Context, tour *models.Tour) (*models.Tour, error) {
	guides, err := toObjectIDs(tour.Guides)
	if err != nil {
		return nil, err
	}

	doc := tourDocument{
		ID:              primitive.NewObjectID(),
		Name:            tour.Name,
		Duration:        tour.Duration,
		MaxGroupSize:    tour.MaxGroupSize,
		Difficulty:      tour.Difficulty,
		RatingsAverage:  tour.RatingsAverage,
		RatingsQuantity: tour.RatingsQuantity,
		Price:           tour.Price,
		PriceDiscount:   tour.PriceDiscount,
		Summary:         tour.Summary,
		Description:     tour.Description,
		ImageCover:      tour.ImageCover,
		Images:          nonNil(tour.Images),
		StartDates:      nonNil(tour.StartDates),
		Locations:       toLocationDocuments(tour.Locations),
		Guides:          guides,
		CreatedAt:       r.now().UTC().Truncate(time.Millisecond),
	}
	if tour.StartLocation != nil {
		l := toLocationDocument(*tour.StartLocation)
		doc.StartLocation = &l
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	tour.ID = doc.ID.Hex()
	tour.CreatedAt = doc.CreatedAt
	return tour, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.Tour, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.ErrorNotFound
	}

	var doc tourDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoRepository) List(ctx context.Context, q models.TourQuery) ([]*models.Tour, error) {
	filter, err := buildFilter(q.Filters)
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(buildSort(q.Sort)).
		SetSkip(int64(q.Skip())).
		SetLimit(int64(q.Limit))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer cur.Close(ctx)

	result := make([]*models.Tour, 0)
	for cur.Next(ctx) {
		var doc tourDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *MongoRepository) Count(ctx context.Context, filters []models.Filter) (int64, error) {
	filter, err := buildFilter(filters)
	if err != nil {
		return 0, err
	}
	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *MongoRepository) Update(ctx context.Context, id string, upd models.TourUpdate) (*models.Tour, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.ErrorNotFound
	}
	if upd.Empty() {
		return r.GetByID(ctx, id)
	}

	set, err := buildSetDocument(upd)
	if err != nil {
		return nil, err
	}

	var doc tourDocument
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return common.ErrorNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if res.DeletedCount == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func buildFilter(filters []models.Filter) (bson.M, error) {
	filter := bson.M{}
	for _, f := range filters {
		if _, ok := models.TourFields[f.Field]; !ok {
			return nil, fmt.Errorf("%w: cannot filter on %s", common.ErrorValidation, f.Field)
		}
		op, ok := mongoOperators[f.Op]
		if !ok {
			return nil, fmt.Errorf("%w: unknown operator %s", common.ErrorValidation, f.Op)
		}
		cond, _ := filter[f.Field].(bson.M)
		if cond == nil {
			cond = bson.M{}
			filter[f.Field] = cond
		}
		cond[op] = f.Value
	}
	return filter, nil
}

func buildSort(sort []models.SortField) bson.D {
	d := make(bson.D, 0, len(sort)+1)
	for _, s := range sort {
		if _, ok := models.TourFields[s.Field]; !ok {
			continue
		}
		dir := 1
		if s.Desc {
			dir = -1
		}
		d = append(d, bson.E{Key: s.Field, Value: dir})
	}
	return append(d, bson.E{Key: "_id", Value: 1})
}

func buildSetDocument(upd models.TourUpdate) (bson.M, error) {
	set := bson.M{}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Duration != nil {
		set["duration"] = *upd.Duration
	}
	if upd.MaxGroupSize != nil {
		set["maxGroupSize"] = *upd.MaxGroupSize
	}
	if upd.Difficulty != nil {
		set["difficulty"] = *upd.Difficulty
	}
	if upd.RatingsAverage != nil {
		set["ratingsAverage"] = *upd.RatingsAverage
	}
	if upd.RatingsQuantity != nil {
		set["ratingsQuantity"] = *upd.RatingsQuantity
	}
	if upd.Price != nil {
		set["price"] = *upd.Price
	}
	if upd.PriceDiscount != nil {
		set["priceDiscount"] = *upd.PriceDiscount
	}
	if upd.Summary != nil {
		set["summary"] = *upd.Summary
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.ImageCover != nil {
		set["imageCover"] = *upd.ImageCover
	}
	if upd.Images != nil {
		set["images"] = nonNil(*upd.Images)
	}
	if upd.StartDates != nil {
		set["startDates"] = nonNil(*upd.StartDates)
	}
	if upd.StartLocation != nil {
		set["startLocation"] = toLocationDocument(*upd.StartLocation)
	}
	if upd.Locations != nil {
		set["locations"] = toLocationDocuments(*upd.Locations)
	}
	if upd.Guides != nil {
		guides, err := toObjectIDs(*upd.Guides)
		if err != nil {
			return nil, err
		}
		set["guides"] = guides
	}
	return set, nil
}
