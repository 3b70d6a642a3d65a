package user

import (
	"context"
	"errors"
	"fmt"
	"qrlogin-svc/src/clients"
	"qrlogin-svc/src/internal/models"
	"qrlogin-svc/src/internal/token"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// Directory is the external user collaborator the state machine
// consults during confirm. FindOrCreateByID reports whether the user
// was provisioned on this call (scan-to-provision).
type Directory interface {
	FindByID(ctx context.Context, userID string) (*User, error)
	FindOrCreateByID(ctx context.Context, userID string) (*User, bool, error)
}

type directory struct {
	collection *mongo.Collection
}

func NewDirectory(db *clients.MongoDB, collectionName string) Directory {
	return &directory{collection: db.Database.Collection(collectionName)}
}

func (d *directory) FindByID(ctx context.Context, userID string) (*User, error) {
	var usr User
	filter := bson.M{"user_id": userID}

	err := d.collection.FindOne(ctx, filter).Decode(&usr)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrUserNotFound
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to get user")
		return nil, models.ErrDatabaseQuery
	}

	return &usr, nil
}

func (d *directory) FindOrCreateByID(ctx context.Context, userID string) (*User, bool, error) {
	usr, err := d.FindByID(ctx, userID)
	if err == nil {
		return usr, false, nil
	}
	if !errors.Is(err, models.ErrUserNotFound) {
		return nil, false, err
	}

	logrus.WithField("user_id", userID).Info("User does not exist, creating (scan-to-provision)")

	hash, err := bcrypt.GenerateFromPassword([]byte(fmt.Sprintf("%s@123456", userID)), bcrypt.DefaultCost)
	if err != nil {
		logrus.WithError(err).Error("Failed to hash default password")
		return nil, false, models.ErrDatabaseInsert
	}

	email := fmt.Sprintf("%s@qr-login.local", userID)
	now := time.Now()
	usr = &User{
		UserID:       userID,
		Email:        &email,
		Role:         token.RoleUser,
		PasswordHash: string(hash),
		IsActive:     true,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := d.collection.InsertOne(ctx, usr); err != nil {
		// Lost a provisioning race; the record is there now.
		if mongo.IsDuplicateKeyError(err) {
			existing, findErr := d.FindByID(ctx, userID)
			if findErr == nil {
				return existing, false, nil
			}
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to create user")
		return nil, false, models.ErrDatabaseInsert
	}

	logrus.WithField("user_id", userID).Info("New user created")
	return usr, true, nil
}
