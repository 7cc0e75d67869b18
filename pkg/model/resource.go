package model

import "time"

const (
	ResourceTypeHotel           = "hotel"
	ResourceTypeOffice          = "office"
	ResourceTypeSportsGround    = "sports_ground"
	ResourceTypeRestaurantTable = "restaurant_table"
)

type Resource struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name        string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Type        string    `json:"type" bson:"type" validate:"required,oneof=hotel office sports_ground restaurant_table"`
	Description string    `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=1000"`
	OwnerID     string    `json:"owner_id" bson:"owner_id" validate:"required,mongodb"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// ResourceUpdate carries a partial field replacement. Nil / empty fields keep
// their current values; ownership is immutable.
type ResourceUpdate struct {
	Name        string  `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Type        string  `json:"type,omitempty" validate:"omitempty,oneof=hotel office sports_ground restaurant_table"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// ResourceWithBookings is the GetByID projection: the resource together with
// every booking made on it.
type ResourceWithBookings struct {
	Resource
	Bookings []*Booking `json:"bookings"`
}
