package user

import (
	"qrlogin-svc/src/internal/token"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID       string             `json:"userId" bson:"user_id"`
	Email        *string            `json:"email,omitempty" bson:"email,omitempty"`
	Role         token.Role         `json:"role" bson:"role"`
	PasswordHash string             `json:"-" bson:"password_hash"`
	IsActive     bool               `json:"isActive" bson:"is_active"`
	IsVerified   bool               `json:"isVerified" bson:"is_verified"`
	CreatedAt    time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updated_at"`
}

// IsAdmin checks if user carries the elevated role
func (u *User) IsAdmin() bool {
	return u.Role == token.RoleAdmin
}
