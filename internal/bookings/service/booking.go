package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "slotly/internal/bookings/errors"
	"slotly/internal/bookings/repository"
	"slotly/internal/bookings/validator"
	resourceserrors "slotly/internal/resources/errors"
	userserrors "slotly/internal/users/errors"
	"slotly/pkg/authz"
	"slotly/pkg/config"
	apperrors "slotly/pkg/errors"
	"slotly/pkg/events"
	"slotly/pkg/model"
)

// ResourceFinder is the narrow view of the resource store the booking flow
// needs: existence and ownership.
type ResourceFinder interface {
	FindByID(ctx context.Context, id string) (*model.Resource, error)
}

// UserFinder resolves a user id to the account it belongs to, used to address
// cancellation notifications to the original requester.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type BookingService interface {
	Create(ctx context.Context, request *model.BookingRequest, actorID, actorEmail string) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	Cancel(ctx context.Context, id string, actorID string) error
}

type bookingService struct {
	repo      repository.BookingRepository
	lockRepo  repository.SlotLockRepository
	resources ResourceFinder
	users     UserFinder
	validator *validator.BookingValidator
	emitter   events.Emitter
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.SlotLockRepository,
	resources ResourceFinder,
	users UserFinder,
	validator *validator.BookingValidator,
	emitter events.Emitter,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		resources: resources,
		users:     users,
		validator: validator,
		emitter:   emitter,
		cfg:       cfg,
	}
}

// Create books a slot on a resource for the authenticated caller. The overlap
// check and the insert run inside a transaction guarded by a per-resource
// advisory lock, so two concurrent requests for the same window cannot both
// commit.
func (s *bookingService) Create(ctx context.Context, request *model.BookingRequest, actorID, actorEmail string) (*model.Booking, error) {
	if actorID == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	if err := s.validator.ValidateRequest(request); err != nil {
		s.cfg.Log.Warn("Booking request validation failed", "error", err)
		return nil, apperrors.Validation("Invalid booking input", map[string]any{"error": err.Error()})
	}

	if !request.EndTime.After(request.StartTime) {
		return nil, apperrors.InvalidInput(bookingserrors.ErrInvalidTimeRange.Error())
	}

	resource, err := s.findResource(ctx, request.ResourceID)
	if err != nil {
		return nil, err
	}

	lockID, err := s.acquireSlotLock(ctx, request.ResourceID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.releaseSlotLock(lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	booking := &model.Booking{
		ResourceID: request.ResourceID,
		UserID:     actorID,
		StartTime:  request.StartTime,
		EndTime:    request.EndTime,
		Status:     model.BookingStatusConfirmed,
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifySlotFree(sessCtx, booking); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking",
			"resource_id", request.ResourceID,
			"user_id", actorID,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"resource_id", booking.ResourceID,
		"user_id", booking.UserID,
		"start_time", booking.StartTime,
	)

	s.emitter.BookingCreated(ctx, &events.BookingCreated{
		BookingID:    booking.ID,
		ResourceID:   booking.ResourceID,
		ResourceName: resource.Name,
		UserID:       booking.UserID,
		UserEmail:    actorEmail,
		StartTime:    booking.StartTime,
		EndTime:      booking.EndTime,
	})

	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

// Cancel soft-cancels a booking. Only the requester or the owner of the
// booked resource may cancel; anyone else gets Forbidden, even for a booking
// that is already cancelled. For an authorized caller, cancelling an
// already-cancelled booking is a no-op success.
func (s *bookingService) Cancel(ctx context.Context, id string, actorID string) error {
	if actorID == "" {
		return apperrors.Unauthorized("Authentication required")
	}

	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	resource, err := s.resources.FindByID(ctx, booking.ResourceID)
	if err != nil {
		if !errors.Is(err, resourceserrors.ErrNotFound) {
			s.cfg.Log.Error("Failed to look up resource for cancellation", "resource_id", booking.ResourceID, "error", err)
			return apperrors.Internal("Failed to retrieve resource", err)
		}
		resource = nil
	}

	if !authz.CanMutateBooking(booking, resource, actorID) {
		return apperrors.Forbidden("Only the requester or the resource owner may cancel this booking")
	}

	if booking.Status == model.BookingStatusCancelled {
		s.cfg.Log.Info("Booking already cancelled", "id", id)
		return nil
	}

	if _, err := s.repo.UpdateStatus(ctx, id, model.BookingStatusCancelled); err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Booking", id)
		}
		s.cfg.Log.Error("Failed to cancel booking", "id", id, "error", err)
		return apperrors.Internal("Failed to cancel booking", err)
	}

	s.cfg.Log.Info("Booking cancelled successfully", "id", id, "cancelled_by", actorID)

	resourceName := ""
	if resource != nil {
		resourceName = resource.Name
	}
	s.emitter.BookingCancelled(ctx, &events.BookingCancelled{
		BookingID:    booking.ID,
		ResourceID:   booking.ResourceID,
		ResourceName: resourceName,
		UserID:       booking.UserID,
		UserEmail:    s.lookupEmail(ctx, booking.UserID),
		StartTime:    booking.StartTime,
		EndTime:      booking.EndTime,
	})

	return nil
}

// --- Helpers ---

func (s *bookingService) findResource(ctx context.Context, id string) (*model.Resource, error) {
	resource, err := s.resources.FindByID(ctx, id)
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

func (s *bookingService) verifySlotFree(ctx context.Context, booking *model.Booking) error {
	existing, err := s.repo.FindOverlapping(ctx, booking.ResourceID, booking.StartTime, booking.EndTime)
	if err != nil {
		return apperrors.Internal("Failed to check existing bookings", err)
	}

	if len(existing) > 0 {
		conflicting := existing[0]
		return apperrors.ConflictWithDetails(fmt.Sprintf(
			"Requested slot overlaps an existing booking (%s - %s)",
			conflicting.StartTime.Format(time.RFC3339),
			conflicting.EndTime.Format(time.RFC3339),
		), map[string]any{
			"conflicting_booking_id": conflicting.ID,
		})
	}
	return nil
}

const slotLockReleaseTimeout = 5 * time.Second

// acquireSlotLock takes the per-resource advisory lock, retrying a bounded
// number of times before reporting contention to the caller.
func (s *bookingService) acquireSlotLock(ctx context.Context, resourceID string) (string, error) {
	lockID := fmt.Sprintf("resource_lock_%s", resourceID)

	var lastErr error
	for attempt := 0; attempt < s.cfg.SlotLockRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", apperrors.Timeout("Booking request cancelled while waiting for slot lock")
			case <-time.After(s.cfg.SlotLockRetryBackoff):
			}
		}

		lock := &model.SlotLock{
			ID:        lockID,
			ExpiresAt: time.Now().Add(s.cfg.SlotLockTTL),
		}

		_, err := s.lockRepo.Create(ctx, lock)
		if err == nil {
			return lockID, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Internal("Failed to acquire slot lock", err)
		}
		lastErr = err
	}

	s.cfg.Log.Warn("Slot lock contention exhausted retries",
		"lock_id", lockID,
		"attempts", s.cfg.SlotLockRetryAttempts,
		"error", lastErr,
	)
	return "", apperrors.Conflict("This resource is currently being booked by another request. Please try again.")
}

// releaseSlotLock runs on its own short-lived context: the lock must come off
// even when the request context is already cancelled, e.g. after the client
// disconnected mid-commit. Otherwise the resource stays locked until the TTL
// expires.
func (s *bookingService) releaseSlotLock(lockID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), slotLockReleaseTimeout)
	defer cancel()
	return s.lockRepo.Delete(ctx, lockID)
}

func (s *bookingService) lookupEmail(ctx context.Context, userID string) string {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, userserrors.ErrNotFound) {
			s.cfg.Log.Warn("Failed to resolve user email for notification", "user_id", userID, "error", err)
		}
		return ""
	}
	return user.Email
}
