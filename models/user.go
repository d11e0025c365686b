package models

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Role names end up verbatim in access-token claims
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

type User struct {
	ID        UserID `json:"id" bson:"_id"`
	CreatedAt int64  `json:"-" bson:"created_at"`
	UpdatedAt int64  `json:"-" bson:"updated_at"`

	Email         string `json:"email" bson:"email"`
	PasswordHash  string `json:"-" bson:"password_hash"`
	Salt          string `json:"-" bson:"salt"`
	Role          Role   `json:"role" bson:"role"`
	EmailVerified bool   `json:"email_verified" bson:"email_verified"`
	LastLoginAt   int64  `json:"-" bson:"last_login_at"`
}

// PublicUser is the projection returned to clients; no hash, no salt
type PublicUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
	CreatedAt     int64  `json:"created_at"`
	LastLoginAt   int64  `json:"last_login_at,omitempty"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID.String(),
		Email:         u.Email,
		Role:          string(u.Role),
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		LastLoginAt:   u.LastLoginAt,
	}
}

// UserID is the canonical subject identifier. It marshals to BSON as a
// plain objectID so that inserted documents and _id filters agree.
type UserID bson.ObjectID

var (
	_ bson.ValueMarshaler   = UserID{}
	_ bson.ValueUnmarshaler = (*UserID)(nil)
)

func (id UserID) MarshalBSONValue() (byte, []byte, error) {
	typ, data, err := bson.MarshalValue(bson.ObjectID(id))
	return byte(typ), data, err
}

func (id *UserID) UnmarshalBSONValue(typ byte, data []byte) error {
	var oid bson.ObjectID
	if err := bson.UnmarshalValue(bson.Type(typ), data, &oid); err != nil {
		return err
	}
	*id = UserID(oid)
	return nil
}

func ParseUserID(id string) (UserID, error) {
	uid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return UserID{}, err
	}

	return UserID(uid), nil
}

func (id UserID) String() string {
	return bson.ObjectID(id).Hex()
}
