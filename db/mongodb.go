package db

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/yeauxdejuan/seen/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// verify MongoDB implements database interface in compile time
var _ Database = (*MongoDB)(nil)

const (
	USER_COLL = "users"
)

type MongoDB struct {
	client *mongo.Client
	db     string
}

func NewMongo(conn string, db string) (*MongoDB, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(conn))
	if err != nil {
		return nil, err
	}

	return &MongoDB{client: client, db: db}, nil
}

func (m *MongoDB) CreateUser(user CreateUser) (models.User, error) {
	now := time.Now().Unix()
	dbuser := models.User{
		ID:            models.UserID(bson.NewObjectID()),
		CreatedAt:     now,
		UpdatedAt:     now,
		Email:         normalizeEmail(user.Email),
		PasswordHash:  user.PasswordHash,
		Salt:          user.Salt,
		Role:          user.Role,
		EmailVerified: false,
	}

	_, err := m.users().InsertOne(context.TODO(), dbuser)
	if err != nil {
		slog.Error("failed to insert user", "error", err)
		return models.User{}, err
	}

	slog.Debug("user created", "user_id", dbuser.ID.String())
	return dbuser, nil
}

func (m *MongoDB) EmailExists(email string) (bool, error) {
	_, err := m.FindByEmail(email)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *MongoDB) FindByEmail(email string) (user models.User, err error) {
	err = m.users().FindOne(context.TODO(), bson.D{{Key: "email", Value: normalizeEmail(email)}}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return user, ErrNotFound
	}
	return user, err
}

func (m *MongoDB) FindByID(id string) (user models.User, err error) {
	uid, err := models.ParseUserID(id)
	if err != nil {
		return user, ErrNotFound
	}

	err = m.users().FindOne(context.TODO(), bson.D{{Key: "_id", Value: bson.ObjectID(uid)}}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return user, ErrNotFound
	}
	return user, err
}

func (m *MongoDB) SaveUser(user models.User) error {
	user.UpdatedAt = time.Now().Unix()

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "email", Value: user.Email},
		{Key: "password_hash", Value: user.PasswordHash},
		{Key: "salt", Value: user.Salt},
		{Key: "role", Value: user.Role},
		{Key: "email_verified", Value: user.EmailVerified},
		{Key: "last_login_at", Value: user.LastLoginAt},
		{Key: "updated_at", Value: user.UpdatedAt},
	}}}

	res, err := m.users().UpdateOne(context.TODO(), bson.D{{Key: "_id", Value: bson.ObjectID(user.ID)}}, update)
	if err != nil {
		slog.Error("failed to save user", "error", err, "user_id", user.ID.String())
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoDB) users() *mongo.Collection {
	return m.client.Database(m.db).Collection(USER_COLL)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
