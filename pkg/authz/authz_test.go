package authz

import (
	"slotly/pkg/model"
	"testing"
)

func TestCanMutateResource(t *testing.T) {
	resource := &model.Resource{ID: "res1", OwnerID: "owner1"}

	if !CanMutateResource(resource, "owner1") {
		t.Error("owner must be allowed to mutate their resource")
	}
	if CanMutateResource(resource, "other") {
		t.Error("non-owner must not be allowed to mutate the resource")
	}
	if CanMutateResource(nil, "owner1") {
		t.Error("nil resource must never be mutable")
	}
	if CanMutateResource(resource, "") {
		t.Error("empty actor id must never be authorized")
	}
}

func TestCanMutateBooking(t *testing.T) {
	resource := &model.Resource{ID: "res1", OwnerID: "owner1"}
	booking := &model.Booking{ID: "bk1", ResourceID: "res1", UserID: "requester1"}

	if !CanMutateBooking(booking, resource, "requester1") {
		t.Error("requester must be allowed to cancel their booking")
	}
	if !CanMutateBooking(booking, resource, "owner1") {
		t.Error("resource owner must be allowed to cancel bookings on their resource")
	}
	if CanMutateBooking(booking, resource, "stranger") {
		t.Error("third party must not be allowed to cancel the booking")
	}
	if CanMutateBooking(booking, nil, "owner1") {
		t.Error("without the resource only the requester is authorized")
	}
	if !CanMutateBooking(booking, nil, "requester1") {
		t.Error("requester authorization must not depend on the resource")
	}
	if CanMutateBooking(nil, resource, "owner1") {
		t.Error("nil booking must never be mutable")
	}
}
