package repo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Skotchmaster/storefront/internal/auth/models"
)

const usersCollection = "users"

var hideRefreshToken = bson.M{"refreshToken": 0}

// MongoRepo keeps users in a document collection, one document per user with
// the refresh token stored inline.
type MongoRepo struct {
	Users *mongo.Collection
}

func OpenMongo(ctx context.Context, uri, database string) (*mongo.Client, *MongoRepo, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	r := &MongoRepo{Users: client.Database(database).Collection(usersCollection)}
	if err := r.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return client, r, nil
}

func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.Users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}
	return nil
}

func (r *MongoRepo) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	u.RefreshToken = nil

	if _, err := r.Users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrUserAlreadyExist
		}
		return err
	}
	return nil
}

func (r *MongoRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, options.FindOne().SetProjection(hideRefreshToken))
}

func (r *MongoRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(hideRefreshToken))
}

func (r *MongoRepo) GetUserWithRefreshToken(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, options.FindOne())
}

func (r *MongoRepo) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*models.User, error) {
	var u models.User
	if err := r.Users.FindOne(ctx, filter, opts).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoRepo) SetRefreshToken(ctx context.Context, id, token string) error {
	res, err := r.Users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"refreshToken": token, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *MongoRepo) ClearRefreshToken(ctx context.Context, id string) error {
	_, err := r.Users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$unset": bson.M{"refreshToken": ""}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
	)
	return err
}

func (r *MongoRepo) ClearRefreshTokenIf(ctx context.Context, id, expected string) (bool, error) {
	res, err := r.Users.UpdateOne(ctx,
		bson.M{"_id": id, "refreshToken": expected},
		bson.M{"$unset": bson.M{"refreshToken": ""}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoRepo) ListUsers(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	filter := bson.M{"role": bson.M{"$ne": models.RoleAdmin}}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
		filter["$or"] = bson.A{bson.M{"username": pattern}, bson.M{"email": pattern}}
	}
	created := bson.M{}
	if f.From != nil {
		created["$gte"] = *f.From
	}
	if f.To != nil {
		created["$lte"] = *f.To
	}
	if len(created) > 0 {
		filter["createdAt"] = created
	}

	total, err := r.Users.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetProjection(hideRefreshToken).
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(f.Offset)).
		SetLimit(int64(f.Limit))
	cur, err := r.Users.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	users := make([]models.User, 0, f.Limit)
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *MongoRepo) CountUsers(ctx context.Context) (int64, error) {
	return r.Users.CountDocuments(ctx, bson.M{"role": models.RoleUser})
}
