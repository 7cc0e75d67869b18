// Package authz holds the stateless authorization predicates shared by the
// booking and resource services. All checks run after existence checks and
// before any persistence.
package authz

import "slotly/pkg/model"

// CanMutateResource reports whether actorID may update or delete the resource.
// Only the owner holds mutation rights.
func CanMutateResource(resource *model.Resource, actorID string) bool {
	if resource == nil || actorID == "" {
		return false
	}
	return resource.OwnerID == actorID
}

// CanMutateBooking reports whether actorID may cancel the booking. Both the
// requester and the owner of the booked resource may.
func CanMutateBooking(booking *model.Booking, resource *model.Resource, actorID string) bool {
	if booking == nil || actorID == "" {
		return false
	}
	if booking.UserID == actorID {
		return true
	}
	return CanMutateResource(resource, actorID)
}
