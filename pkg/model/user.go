package model

import "time"

type User struct {
	ID             string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Email          string    `json:"email" bson:"email" validate:"required,email"`
	HashedPassword string    `json:"-" bson:"hashed_password"`
	IsActive       bool      `json:"is_active" bson:"is_active"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// UserRegistration is the register/login request body. The plaintext password
// never reaches the persistence layer.
type UserRegistration struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}
