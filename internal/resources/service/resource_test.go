package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	resourceserrors "slotly/internal/resources/errors"
	"slotly/internal/resources/validator"
	"slotly/pkg/config"
	apperrors "slotly/pkg/errors"
	"slotly/pkg/logger"
	"slotly/pkg/model"
)

const (
	ownerID    = "65b000000000000000000001"
	strangerID = "65b000000000000000000002"
	resourceID = "65a000000000000000000001"
)

type mockResourceRepository struct {
	createFunc   func(ctx context.Context, resource *model.Resource) error
	findByIDFunc func(ctx context.Context, id string) (*model.Resource, error)
	findAllFunc  func(ctx context.Context, limit int, offset int64) ([]*model.Resource, error)
	updateFunc   func(ctx context.Context, id string, resource *model.Resource) (*mongo.UpdateResult, error)
	deleteFunc   func(ctx context.Context, id string) error
	countFunc    func(ctx context.Context) (int64, error)
}

func (m *mockResourceRepository) Create(ctx context.Context, resource *model.Resource) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, resource)
	}
	resource.ID = resourceID
	return nil
}

func (m *mockResourceRepository) FindByID(ctx context.Context, id string) (*model.Resource, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, resourceserrors.ErrNotFound
}

func (m *mockResourceRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Resource, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, limit, offset)
	}
	return []*model.Resource{}, nil
}

func (m *mockResourceRepository) Update(ctx context.Context, id string, resource *model.Resource) (*mongo.UpdateResult, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, resource)
	}
	return &mongo.UpdateResult{MatchedCount: 1}, nil
}

func (m *mockResourceRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockResourceRepository) Count(ctx context.Context) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, nil
}

type mockBookingFinder struct {
	findByResourceFunc func(ctx context.Context, resourceID string) ([]*model.Booking, error)
	countConfirmedFunc func(ctx context.Context, resourceID string) (int64, error)
}

func (m *mockBookingFinder) FindByResource(ctx context.Context, resourceID string) ([]*model.Booking, error) {
	if m.findByResourceFunc != nil {
		return m.findByResourceFunc(ctx, resourceID)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingFinder) CountConfirmedByResource(ctx context.Context, resourceID string) (int64, error) {
	if m.countConfirmedFunc != nil {
		return m.countConfirmedFunc(ctx, resourceID)
	}
	return 0, nil
}

func newService(repo *mockResourceRepository, bookings *mockBookingFinder) *resourceService {
	cfg := &config.Config{
		Log: logger.New(logger.Config{
			Level:     "error",
			Format:    logger.JSON,
			AddSource: false,
			Service:   "test",
		}),
	}
	return &resourceService{
		repo:      repo,
		bookings:  bookings,
		validator: validator.NewResourceValidator(cfg.Log),
		cfg:       cfg,
	}
}

func existingResource() *model.Resource {
	return &model.Resource{
		ID:      resourceID,
		Name:    "Conference Room A",
		Type:    model.ResourceTypeOffice,
		OwnerID: ownerID,
	}
}

func assertAppErrorCode(t *testing.T, err error, code string, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, appErr.Code, err)
	}
	if appErr.HTTPStatus != status {
		t.Fatalf("expected status %d, got %d", status, appErr.HTTPStatus)
	}
}

func TestCreate_SetsOwnerAndSanitizes(t *testing.T) {
	var stored *model.Resource
	repo := &mockResourceRepository{
		createFunc: func(ctx context.Context, resource *model.Resource) error {
			resource.ID = resourceID
			stored = resource
			return nil
		},
	}
	svc := newService(repo, &mockBookingFinder{})

	resource := &model.Resource{
		Name: "  Padel   Court ",
		Type: model.ResourceTypeSportsGround,
	}
	if err := svc.Create(context.Background(), resource, ownerID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stored.OwnerID != ownerID {
		t.Fatalf("expected owner %s, got %s", ownerID, stored.OwnerID)
	}
	if stored.Name != "Padel Court" {
		t.Fatalf("expected sanitized name, got %q", stored.Name)
	}
}

func TestCreate_RequiresAuthentication(t *testing.T) {
	svc := newService(&mockResourceRepository{}, &mockBookingFinder{})

	err := svc.Create(context.Background(), &model.Resource{
		Name: "Room",
		Type: model.ResourceTypeOffice,
	}, "")
	assertAppErrorCode(t, err, apperrors.CodeUnauthorized, http.StatusUnauthorized)
}

func TestCreate_InvalidTypeRejected(t *testing.T) {
	svc := newService(&mockResourceRepository{}, &mockBookingFinder{})

	err := svc.Create(context.Background(), &model.Resource{
		Name: "Room",
		Type: "spaceship",
	}, ownerID)
	assertAppErrorCode(t, err, apperrors.CodeValidation, http.StatusUnprocessableEntity)
}

func TestGetByID_IncludesBookings(t *testing.T) {
	repo := &mockResourceRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Resource, error) {
			return existingResource(), nil
		},
	}
	start := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	bookings := &mockBookingFinder{
		findByResourceFunc: func(ctx context.Context, resourceID string) ([]*model.Booking, error) {
			return []*model.Booking{
				{ID: "65c000000000000000000001", ResourceID: resourceID, StartTime: start, EndTime: start.Add(time.Hour)},
			}, nil
		},
	}
	svc := newService(repo, bookings)

	result, err := svc.GetByID(context.Background(), resourceID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ID != resourceID {
		t.Fatalf("expected resource %s, got %s", resourceID, result.ID)
	}
	if len(result.Bookings) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(result.Bookings))
	}
}

func TestGetByID_NotFound(t *testing.T) {
	svc := newService(&mockResourceRepository{}, &mockBookingFinder{})

	_, err := svc.GetByID(context.Background(), resourceID)
	assertAppErrorCode(t, err, apperrors.CodeNotFound, http.StatusNotFound)
}

func TestUpdate_OwnerOnly(t *testing.T) {
	repo := &mockResourceRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Resource, error) {
			return existingResource(), nil
		},
	}
	svc := newService(repo, &mockBookingFinder{})

	name := "Updated Room"
	err := svc.Update(context.Background(), resourceID, &model.ResourceUpdate{Name: name}, strangerID)
	assertAppErrorCode(t, err, apperrors.CodeForbidden, http.StatusForbidden)
}

func TestUpdate_MergesFields(t *testing.T) {
	var updated *model.Resource
	repo := &mockResourceRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Resource, error) {
			return existingResource(), nil
		},
		updateFunc: func(ctx context.Context, id string, resource *model.Resource) (*mongo.UpdateResult, error) {
			updated = resource
			return &mongo.UpdateResult{MatchedCount: 1}, nil
		},
	}
	svc := newService(repo, &mockBookingFinder{})

	description := "Now with a projector"
	err := svc.Update(context.Background(), resourceID, &model.ResourceUpdate{
		Description: &description,
	}, ownerID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.Name != "Conference Room A" {
		t.Fatalf("untouched field changed: %q", updated.Name)
	}
	if updated.Description != description {
		t.Fatalf("expected description update, got %q", updated.Description)
	}
	if updated.OwnerID != ownerID {
		t.Fatal("ownership must be immutable")
	}
}

func TestDelete_RejectedWhileConfirmedBookingsExist(t *testing.T) {
	repo := &mockResourceRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Resource, error) {
			return existingResource(), nil
		},
	}
	bookings := &mockBookingFinder{
		countConfirmedFunc: func(ctx context.Context, resourceID string) (int64, error) {
			return 2, nil
		},
	}
	svc := newService(repo, bookings)

	err := svc.Delete(context.Background(), resourceID, ownerID)
	assertAppErrorCode(t, err, apperrors.CodeConflict, http.StatusConflict)
}

func TestDelete_OwnerSucceedsWithoutConfirmedBookings(t *testing.T) {
	deleted := false
	repo := &mockResourceRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Resource, error) {
			return existingResource(), nil
		},
		deleteFunc: func(ctx context.Context, id string) error {
			deleted = true
			return nil
		},
	}
	svc := newService(repo, &mockBookingFinder{})

	if err := svc.Delete(context.Background(), resourceID, ownerID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted {
		t.Fatal("expected repository delete to be called")
	}
}

func TestDelete_NonOwnerForbidden(t *testing.T) {
	repo := &mockResourceRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Resource, error) {
			return existingResource(), nil
		},
	}
	svc := newService(repo, &mockBookingFinder{})

	err := svc.Delete(context.Background(), resourceID, strangerID)
	assertAppErrorCode(t, err, apperrors.CodeForbidden, http.StatusForbidden)
}

func TestGetAll_ReturnsCountAndItems(t *testing.T) {
	repo := &mockResourceRepository{
		countFunc: func(ctx context.Context) (int64, error) {
			return 7, nil
		},
		findAllFunc: func(ctx context.Context, limit int, offset int64) ([]*model.Resource, error) {
			return []*model.Resource{existingResource()}, nil
		},
	}
	svc := newService(repo, &mockBookingFinder{})

	resources, count, err := svc.GetAll(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 7 {
		t.Fatalf("expected count 7, got %d", count)
	}
	if len(resources) != 1 {
		t.Fatalf("expected 1 resource, got %d", len(resources))
	}
}
