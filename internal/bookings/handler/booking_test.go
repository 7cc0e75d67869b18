package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"

	"slotly/pkg/logger"
	"slotly/pkg/middleware"
	"slotly/pkg/model"
)

const bookingID = "65c000000000000000000001"

type mockBookingService struct {
	createFunc  func(ctx context.Context, request *model.BookingRequest, actorID, actorEmail string) (*model.Booking, error)
	getByIDFunc func(ctx context.Context, id string) (*model.Booking, error)
	getAllFunc  func(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	cancelFunc  func(ctx context.Context, id string, actorID string) error
}

func (m *mockBookingService) Create(ctx context.Context, request *model.BookingRequest, actorID, actorEmail string) (*model.Booking, error) {
	return m.createFunc(ctx, request, actorID, actorEmail)
}

func (m *mockBookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockBookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	return m.getAllFunc(ctx, limit, offset)
}

func (m *mockBookingService) Cancel(ctx context.Context, id string, actorID string) error {
	return m.cancelFunc(ctx, id, actorID)
}

func newRouter(svc *mockBookingService) *httprouter.Router {
	log := logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
	router := httprouter.New()
	NewBookingHandler(svc, log).RegisterRoutes(router)
	return router
}

func authenticated(req *http.Request, userID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.IdentityKey, middleware.Identity{
		UserID: userID,
		Email:  "requester@example.com",
	})
	return req.WithContext(ctx)
}

func TestCancel_Returns200WithStatus(t *testing.T) {
	var cancelledID, cancelledBy string
	svc := &mockBookingService{
		cancelFunc: func(ctx context.Context, id string, actorID string) error {
			cancelledID, cancelledBy = id, actorID
			return nil
		},
	}
	router := newRouter(svc)

	req := authenticated(httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/id/"+bookingID, nil), "65b000000000000000000002")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if cancelledID != bookingID || cancelledBy != "65b000000000000000000002" {
		t.Fatalf("service called with %q by %q", cancelledID, cancelledBy)
	}

	var body struct {
		Data CancelResponse `json:"data"`
	}
	if err := json.NewDecoder(recorder.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Data.ID != bookingID {
		t.Fatalf("expected id %s in body, got %s", bookingID, body.Data.ID)
	}
	if body.Data.Status != model.BookingStatusCancelled {
		t.Fatalf("expected status cancelled in body, got %s", body.Data.Status)
	}
}

func TestCancel_RequiresAuthentication(t *testing.T) {
	svc := &mockBookingService{
		cancelFunc: func(ctx context.Context, id string, actorID string) error {
			t.Fatal("service must not be reached without an identity")
			return nil
		},
	}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/id/"+bookingID, nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}
