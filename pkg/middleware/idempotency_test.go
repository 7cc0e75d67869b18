package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func idempotencyFixture(t *testing.T) (http.Handler, *int) {
	t.Helper()

	store := NewInMemoryIdempotencyStore(time.Minute)
	t.Cleanup(store.Stop)

	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, "response %d", calls)
	})

	return Idempotency(store, "Idempotency-Key")(handler), &calls
}

func post(handler http.Handler, key, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	if userID != "" {
		ctx := context.WithValue(req.Context(), IdentityKey, Identity{UserID: userID})
		req = req.WithContext(ctx)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestIdempotency_ReplaysForSameCaller(t *testing.T) {
	handler, calls := idempotencyFixture(t)

	first := post(handler, "key-1", "user-a")
	second := post(handler, "key-1", "user-a")

	if *calls != 1 {
		t.Fatalf("expected 1 handler invocation, got %d", *calls)
	}
	if second.Code != first.Code {
		t.Fatalf("replay status %d differs from original %d", second.Code, first.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replay body %q differs from original %q", second.Body.String(), first.Body.String())
	}
}

func TestIdempotency_KeyIsScopedToCaller(t *testing.T) {
	handler, calls := idempotencyFixture(t)

	first := post(handler, "key-1", "user-a")
	other := post(handler, "key-1", "user-b")

	if *calls != 2 {
		t.Fatalf("expected both callers to reach the handler, got %d invocations", *calls)
	}
	if other.Body.String() == first.Body.String() {
		t.Fatal("a caller must not receive another caller's cached response")
	}
}

func TestIdempotency_MissingKeyBypassesCache(t *testing.T) {
	handler, calls := idempotencyFixture(t)

	post(handler, "", "user-a")
	post(handler, "", "user-a")

	if *calls != 2 {
		t.Fatalf("requests without a key must not be cached, got %d invocations", *calls)
	}
}
