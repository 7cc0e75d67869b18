package service

import (
	"context"
	"errors"
	"sync"

	resourceserrors "slotly/internal/resources/errors"
	"slotly/internal/resources/repository"
	"slotly/internal/resources/validator"
	"slotly/pkg/authz"
	"slotly/pkg/config"
	apperrors "slotly/pkg/errors"
	"slotly/pkg/model"
	"slotly/pkg/sanitizer"
)

// BookingFinder is the narrow view of the booking store this service needs:
// listing a resource's bookings and refusing deletion while confirmed
// bookings remain.
type BookingFinder interface {
	FindByResource(ctx context.Context, resourceID string) ([]*model.Booking, error)
	CountConfirmedByResource(ctx context.Context, resourceID string) (int64, error)
}

type ResourceService interface {
	Create(ctx context.Context, resource *model.Resource, actorID string) error
	GetByID(ctx context.Context, id string) (*model.ResourceWithBookings, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Resource, int64, error)
	Update(ctx context.Context, id string, updates *model.ResourceUpdate, actorID string) error
	Delete(ctx context.Context, id string, actorID string) error
}

type resourceService struct {
	repo      repository.ResourceRepository
	bookings  BookingFinder
	validator *validator.ResourceValidator
	cfg       *config.Config
}

func NewResourceService(
	repo repository.ResourceRepository,
	bookings BookingFinder,
	validator *validator.ResourceValidator,
	cfg *config.Config,
) ResourceService {
	return &resourceService{
		repo:      repo,
		bookings:  bookings,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *resourceService) Create(ctx context.Context, resource *model.Resource, actorID string) error {
	if actorID == "" {
		return apperrors.Unauthorized("Authentication required")
	}

	resource.OwnerID = actorID
	s.sanitize(resource)
	if err := s.validate(resource); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, resource); err != nil {
		s.cfg.Log.Error("Failed to create resource", "error", err)
		return apperrors.Internal("Failed to create resource", err)
	}

	s.cfg.Log.Info("Resource created successfully",
		"id", resource.ID,
		"type", resource.Type,
		"owner_id", resource.OwnerID,
	)
	return nil
}

func (s *resourceService) GetByID(ctx context.Context, id string) (*model.ResourceWithBookings, error) {
	resource, err := s.findResource(ctx, id)
	if err != nil {
		return nil, err
	}

	bookings, err := s.bookings.FindByResource(ctx, id)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings for resource", "resource_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve resource bookings", err)
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}

	return &model.ResourceWithBookings{
		Resource: *resource,
		Bookings: bookings,
	}, nil
}

func (s *resourceService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Resource, int64, error) {
	var count int64
	var resources []*model.Resource
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count resources", "error", errCount)
			errCount = apperrors.Internal("Failed to count resources", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		resources, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list resources", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve resources", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return resources, count, nil
}

func (s *resourceService) Update(ctx context.Context, id string, updates *model.ResourceUpdate, actorID string) error {
	if actorID == "" {
		return apperrors.Unauthorized("Authentication required")
	}

	existing, err := s.findResource(ctx, id)
	if err != nil {
		return err
	}

	if !authz.CanMutateResource(existing, actorID) {
		return apperrors.Forbidden("Only the resource owner may modify it")
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Resource update validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := s.mergeResourceUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.validate(merged); err != nil {
		return err
	}

	if _, err := s.repo.Update(ctx, id, merged); err != nil {
		if errors.Is(err, resourceserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Resource", id)
		}
		s.cfg.Log.Error("Failed to update resource", "id", id, "error", err)
		return apperrors.Internal("Failed to update resource", err)
	}

	s.cfg.Log.Info("Resource updated successfully", "id", id)
	return nil
}

// Delete removes a resource. A resource with confirmed bookings cannot be
// deleted; those bookings must be cancelled first.
func (s *resourceService) Delete(ctx context.Context, id string, actorID string) error {
	if actorID == "" {
		return apperrors.Unauthorized("Authentication required")
	}

	existing, err := s.findResource(ctx, id)
	if err != nil {
		return err
	}

	if !authz.CanMutateResource(existing, actorID) {
		return apperrors.Forbidden("Only the resource owner may delete it")
	}

	confirmed, err := s.bookings.CountConfirmedByResource(ctx, id)
	if err != nil {
		s.cfg.Log.Error("Failed to count confirmed bookings", "resource_id", id, "error", err)
		return apperrors.Internal("Failed to check resource bookings", err)
	}
	if confirmed > 0 {
		return apperrors.ConflictWithDetails("Resource has confirmed bookings and cannot be deleted", map[string]any{
			"confirmed_bookings": confirmed,
		})
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, resourceserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Resource", id)
		}
		s.cfg.Log.Error("Failed to delete resource", "id", id, "error", err)
		return apperrors.Internal("Failed to delete resource", err)
	}

	s.cfg.Log.Info("Resource deleted successfully", "id", id)
	return nil
}

// --- Helpers ---

func (s *resourceService) findResource(ctx context.Context, id string) (*model.Resource, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Resource ID cannot be empty")
	}

	resource, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, resourceserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Resource", id)
		}
		if errors.Is(err, resourceserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid resource ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve resource", err)
	}

	return resource, nil
}

func (s *resourceService) sanitize(resource *model.Resource) {
	resource.Name = sanitizer.SanitizeName(resource.Name)
	resource.Description = sanitizer.SanitizeDescription(resource.Description)
}

func (s *resourceService) mergeResourceUpdates(existing *model.Resource, updates *model.ResourceUpdate) *model.Resource {
	merged := *existing

	if updates.Name != "" {
		merged.Name = updates.Name
	}
	if updates.Type != "" {
		merged.Type = updates.Type
	}
	if updates.Description != nil {
		merged.Description = *updates.Description
	}

	return &merged
}

func (s *resourceService) validate(resource *model.Resource) error {
	if err := s.validator.Validate(resource); err != nil {
		s.cfg.Log.Warn("Resource validation failed", "error", err)
		return apperrors.Validation("Resource validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}
