package users

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

const ns = "tours.users"

func userDoc(id primitive.ObjectID, email string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: "Jonas"},
		{Key: "email", Value: email},
		{Key: "password", Value: "$2a$hash"},
		{Key: "createdAt", Value: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func TestMongoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		u, err := repo.Create(ctx, &models.User{Email: "jonas@example.com", PasswordHash: "$2a$hash"})
		require.NoError(mt, err)
		_, err = primitive.ObjectIDFromHex(u.ID)
		assert.NoError(mt, err)
		assert.False(mt, u.CreatedAt.IsZero())
	})

	mt.Run("create duplicate email", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key error"}))

		_, err := repo.Create(ctx, &models.User{Email: "jonas@example.com"})
		assert.True(mt, errors.Is(err, common.ErrorConflict), "got %v", err)
	})

	mt.Run("get by email", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, userDoc(id, "jonas@example.com")))

		u, err := repo.GetByEmail(ctx, "jonas@example.com")
		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), u.ID)
		assert.Equal(mt, "$2a$hash", u.PasswordHash)
		assert.Nil(mt, u.PasswordChangedAt)
	})

	mt.Run("get by email not found", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.GetByEmail(ctx, "ghost@example.com")
		assert.True(mt, errors.Is(err, common.ErrorNotFound), "got %v", err)
	})

	mt.Run("get by malformed id", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)

		_, err := repo.GetByID(ctx, "not-an-object-id")
		assert.True(mt, errors.Is(err, common.ErrorNotFound), "got %v", err)
	})

	mt.Run("get by id command error", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad value"}))

		_, err := repo.GetByID(ctx, primitive.NewObjectID().Hex())
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "db error")
	})

	mt.Run("update returns new document", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		id := primitive.NewObjectID()
		doc := userDoc(id, "new@example.com")
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: doc}})

		email := "new@example.com"
		u, err := repo.Update(ctx, id.Hex(), models.UserUpdate{Email: &email})
		require.NoError(mt, err)
		assert.Equal(mt, "new@example.com", u.Email)
	})

	mt.Run("update missing user", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}})

		name := "x"
		_, err := repo.Update(ctx, primitive.NewObjectID().Hex(), models.UserUpdate{Name: &name})
		assert.True(mt, errors.Is(err, common.ErrorNotFound), "got %v", err)
	})

	mt.Run("set reset token", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		err := repo.SetResetToken(ctx, primitive.NewObjectID().Hex(), "digest", time.Now().Add(10*time.Minute))
		assert.NoError(mt, err)
	})

	mt.Run("reset password redeems token once", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)

		id := primitive.NewObjectID().Hex()
		assert.NoError(mt, repo.ResetPassword(ctx, id, "digest", "$2a$new", time.Now()))
		err := repo.ResetPassword(ctx, id, "digest", "$2a$new", time.Now())
		assert.True(mt, errors.Is(err, common.ErrInvalidOrExpiredResetToken), "got %v", err)

		err = repo.ResetPassword(ctx, "bad-id", "digest", "$2a$new", time.Now())
		assert.True(mt, errors.Is(err, common.ErrInvalidOrExpiredResetToken), "got %v", err)
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
	})
}
