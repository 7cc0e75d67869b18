package model

import "time"

// SlotLock is an advisory lock document serializing the overlap-check-then-
// insert sequence for a single resource. The unique _id makes concurrent
// acquisition fail with a duplicate key error; ExpiresAt is TTL-indexed so a
// crashed holder cannot wedge a resource.
type SlotLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
