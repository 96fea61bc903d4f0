package users

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

const CollectionName = "users"

type userDocument struct {
	ID                          primitive.ObjectID `bson:"_id,omitempty"`
	Name                        string             `bson:"name"`
	Email                       string             `bson:"email"`
	Photo                       string             `bson:"photo,omitempty"`
	Password                    string             `bson:"password"`
	PasswordChangedAt           *time.Time         `bson:"passwordChangedAt,omitempty"`
	PasswordResetToken          *string            `bson:"passwordResetToken,omitempty"`
	PasswordResetTokenExpiresIn *time.Time         `bson:"passwordResetTokenExpiresIn,omitempty"`
	CreatedAt                   time.Time          `bson:"createdAt"`
}

func (d *userDocument) toModel() *models.User {
	return &models.User{
		ID:                  d.ID.Hex(),
		Name:                d.Name,
		Email:               d.Email,
		Photo:               d.Photo,
		PasswordHash:        d.Password,
		PasswordChangedAt:   d.PasswordChangedAt,
		ResetTokenHash:      d.PasswordResetToken,
		ResetTokenExpiresAt: d.PasswordResetTokenExpiresIn,
		CreatedAt:           d.CreatedAt,
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
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "passwordResetToken", Value: 1}}, Options: options.Index().SetSparse(true)},
	}
}

func (r *MongoRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	doc := userDocument{
		ID:                primitive.NewObjectID(),
		Name:              user.Name,
		Email:             user.Email,
		Photo:             user.Photo,
		Password:          user.PasswordHash,
		PasswordChangedAt: user.PasswordChangedAt,
		CreatedAt:         r.now().UTC().Truncate(time.Millisecond),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.ID = doc.ID.Hex()
	user.CreatedAt = doc.CreatedAt
	return user, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.ErrorNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoRepository) GetByResetTokenHash(ctx context.Context, digest string) (*models.User, error) {
	return r.findOne(ctx, bson.M{
		"passwordResetToken":          digest,
		"passwordResetTokenExpiresIn": bson.M{"$gt": r.now()},
	})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoRepository) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.ErrorNotFound
	}
	if upd.Empty() {
		return r.GetByID(ctx, id)
	}

	set := bson.M{}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if upd.Photo != nil {
		set["photo"] = *upd.Photo
	}

	var doc userDocument
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

func (r *MongoRepository) SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{
		"passwordResetToken":          digest,
		"passwordResetTokenExpiresIn": expiresAt,
	}})
}

func (r *MongoRepository) ClearResetToken(ctx context.Context, id string) error {
	return r.updateOne(ctx, id, bson.M{"$unset": bson.M{
		"passwordResetToken":          "",
		"passwordResetTokenExpiresIn": "",
	}})
}

func (r *MongoRepository) ResetPassword(ctx context.Context, id, digest, passwordHash string, changedAt time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return common.ErrInvalidOrExpiredResetToken
	}

	filter := bson.M{
		"_id":                         oid,
		"passwordResetToken":          digest,
		"passwordResetTokenExpiresIn": bson.M{"$gt": changedAt},
	}
	update := bson.M{
		"$set": bson.M{"password": passwordHash, "passwordChangedAt": changedAt},
		"$unset": bson.M{
			"passwordResetToken":          "",
			"passwordResetTokenExpiresIn": "",
		},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if res.MatchedCount == 0 {
		return common.ErrInvalidOrExpiredResetToken
	}
	return nil
}

func (r *MongoRepository) updateOne(ctx context.Context, id string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return common.ErrorNotFound
	}
	res, err := r.coll.UpdateByID(ctx, oid, update)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if res.MatchedCount == 0 {
		return common.ErrorNotFound
	}
	return nil
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
