package tours

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/dmitrijs2005/tours/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const ns = "tours.tours"

func tourDoc(id primitive.ObjectID, name string, price float64, guides ...primitive.ObjectID) bson.D {
	if guides == nil {
		guides = []primitive.ObjectID{}
	}
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: name},
		{Key: "duration", Value: 5},
		{Key: "maxGroupSize", Value: 25},
		{Key: "difficulty", Value: "easy"},
		{Key: "ratingsAverage", Value: 4.7},
		{Key: "ratingsQuantity", Value: 37},
		{Key: "price", Value: price},
		{Key: "summary", Value: "summary"},
		{Key: "imageCover", Value: "cover.jpg"},
		{Key: "images", Value: bson.A{"a.jpg"}},
		{Key: "startDates", Value: bson.A{time.Date(2027, 3, 1, 9, 0, 0, 0, time.UTC)}},
		{Key: "startLocation", Value: bson.D{{Key: "type", Value: "Point"}, {Key: "coordinates", Value: bson.A{-80.18, 25.77}}}},
		{Key: "locations", Value: bson.A{}},
		{Key: "guides", Value: guides},
		{Key: "createdAt", Value: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func TestBuildFilter(t *testing.T) {
	f, err := buildFilter([]models.Filter{
		{Field: "duration", Op: models.OpGte, Value: 5.0},
		{Field: "duration", Op: models.OpLt, Value: 10.0},
		{Field: "difficulty", Op: models.OpEq, Value: "easy"},
	})
	require.NoError(t, err)
	assert.Equal(t, bson.M{
		"duration":   bson.M{"$gte": 5.0, "$lt": 10.0},
		"difficulty": bson.M{"$eq": "easy"},
	}, f)

	_, err = buildFilter([]models.Filter{{Field: "password", Op: models.OpEq, Value: "x"}})
	assert.True(t, errors.Is(err, common.ErrorValidation))
}

func TestBuildSort(t *testing.T) {
	got := buildSort([]models.SortField{{Field: "price"}, {Field: "bogus"}, {Field: "ratingsAverage", Desc: true}})
	assert.Equal(t, bson.D{
		{Key: "price", Value: 1},
		{Key: "ratingsAverage", Value: -1},
		{Key: "_id", Value: 1},
	}, got)
}

func TestMongoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		tour := &models.Tour{Name: "The Forest Hiker", Guides: []string{primitive.NewObjectID().Hex()}}
		got, err := repo.Create(ctx, tour)
		require.NoError(mt, err)
		assert.NotEmpty(mt, got.ID)
	})

	mt.Run("create rejects malformed guide id", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)

		_, err := repo.Create(ctx, &models.Tour{Name: "x", Guides: []string{"nope"}})
		assert.True(mt, errors.Is(err, common.ErrorValidation), "got %v", err)
	})

	mt.Run("create duplicate name", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key"}))

		_, err := repo.Create(ctx, &models.Tour{Name: "The Forest Hiker"})
		assert.True(mt, errors.Is(err, common.ErrorConflict), "got %v", err)
	})

	mt.Run("get by id", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		id, guide := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, tourDoc(id, "The Sea Explorer", 497, guide)))

		got, err := repo.GetByID(ctx, id.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, "The Sea Explorer", got.Name)
		assert.Equal(mt, []string{guide.Hex()}, got.Guides)
		require.NotNil(mt, got.StartLocation)
		assert.Equal(mt, []float64{-80.18, 25.77}, got.StartLocation.Coordinates)
		assert.Len(mt, got.StartDates, 1)
	})

	mt.Run("get by id not found", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.GetByID(ctx, primitive.NewObjectID().Hex())
		assert.True(mt, errors.Is(err, common.ErrorNotFound))
	})

	mt.Run("list", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			tourDoc(primitive.NewObjectID(), "The Forest Hiker", 397),
			tourDoc(primitive.NewObjectID(), "The Sea Explorer", 497),
		))

		q := models.NewTourQuery()
		q.Filters = []models.Filter{{Field: "price", Op: models.OpLt, Value: 1000.0}}
		got, err := repo.List(ctx, q)
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, 497.0, got[1].Price)
	})

	mt.Run("count", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(9)}}))

		n, err := repo.Count(ctx, nil)
		require.NoError(mt, err)
		assert.Equal(mt, int64(9), n)
	})

	mt.Run("update", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: tourDoc(id, "The Forest Hiker", 450)}})

		price := 450.0
		got, err := repo.Update(ctx, id.Hex(), models.TourUpdate{Price: &price})
		require.NoError(mt, err)
		assert.Equal(mt, 450.0, got.Price)
	})

	mt.Run("update missing", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}})

		price := 450.0
		_, err := repo.Update(ctx, primitive.NewObjectID().Hex(), models.TourUpdate{Price: &price})
		assert.True(mt, errors.Is(err, common.ErrorNotFound), "got %v", err)
	})

	mt.Run("delete", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		id := primitive.NewObjectID().Hex()
		assert.NoError(mt, repo.Delete(ctx, id))
		assert.True(mt, errors.Is(repo.Delete(ctx, id), common.ErrorNotFound))
		assert.True(mt, errors.Is(repo.Delete(ctx, "bad"), common.ErrorNotFound))
	})
}
