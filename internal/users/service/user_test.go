package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	userserrors "slotly/internal/users/errors"
	"slotly/internal/users/validator"
	"slotly/pkg/config"
	apperrors "slotly/pkg/errors"
	"slotly/pkg/logger"
	"slotly/pkg/model"
	"slotly/pkg/token"
)

const userID = "65b000000000000000000001"

type mockUserRepository struct {
	createFunc      func(ctx context.Context, user *model.User) error
	findByIDFunc    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFunc func(ctx context.Context, email string) (*model.User, error)
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	user.ID = userID
	return nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, userserrors.ErrNotFound
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return nil, userserrors.ErrNotFound
}

func newService(repo *mockUserRepository) (*userService, *token.Manager) {
	cfg := &config.Config{
		Log: logger.New(logger.Config{
			Level:     "error",
			Format:    logger.JSON,
			AddSource: false,
			Service:   "test",
		}),
	}
	tokens := token.NewManager("test-secret", time.Hour)
	return &userService{
		repo:      repo,
		validator: validator.NewUserValidator(cfg.Log),
		tokens:    tokens,
		cfg:       cfg,
	}, tokens
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

func TestRegister_HashesPasswordAndNormalizesEmail(t *testing.T) {
	var stored *model.User
	repo := &mockUserRepository{
		createFunc: func(ctx context.Context, user *model.User) error {
			user.ID = userID
			stored = user
			return nil
		},
	}
	svc, _ := newService(repo)

	user, err := svc.Register(context.Background(), &model.UserRegistration{
		Email:    "  Alice@Example.COM ",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if stored.HashedPassword == "correct horse battery" {
		t.Fatal("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.HashedPassword), []byte("correct horse battery")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if !stored.IsActive {
		t.Fatal("new users should be active")
	}
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	repo := &mockUserRepository{
		createFunc: func(ctx context.Context, user *model.User) error {
			return userserrors.ErrDuplicateEmail
		},
	}
	svc, _ := newService(repo)

	_, err := svc.Register(context.Background(), &model.UserRegistration{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	assertAppErrorCode(t, err, apperrors.CodeConflict, http.StatusConflict)
}

func TestRegister_ValidationFailures(t *testing.T) {
	svc, _ := newService(&mockUserRepository{})

	cases := []struct {
		name         string
		registration model.UserRegistration
	}{
		{"invalid email", model.UserRegistration{Email: "not-an-email", Password: "long enough password"}},
		{"short password", model.UserRegistration{Email: "alice@example.com", Password: "short"}},
		{"missing email", model.UserRegistration{Password: "long enough password"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), &tc.registration)
			assertAppErrorCode(t, err, apperrors.CodeValidation, http.StatusUnprocessableEntity)
		})
	}
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("correct horse battery"), bcrypt.MinCost)
	repo := &mockUserRepository{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{
				ID:             userID,
				Email:          email,
				HashedPassword: string(hashed),
				IsActive:       true,
			}, nil
		},
	}
	svc, tokens := newService(repo)

	signed, err := svc.Login(context.Background(), &model.UserRegistration{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gotID, gotEmail, err := tokens.Verify(signed)
	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}
	if gotID != userID || gotEmail != "alice@example.com" {
		t.Fatalf("token identity mismatch: %s / %s", gotID, gotEmail)
	}
}

func TestLogin_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("correct horse battery"), bcrypt.MinCost)
	knownRepo := &mockUserRepository{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: userID, Email: email, HashedPassword: string(hashed), IsActive: true}, nil
		},
	}

	svcKnown, _ := newService(knownRepo)
	svcUnknown, _ := newService(&mockUserRepository{})

	_, errWrongPassword := svcKnown.Login(context.Background(), &model.UserRegistration{
		Email:    "alice@example.com",
		Password: "wrong password",
	})
	_, errUnknownEmail := svcUnknown.Login(context.Background(), &model.UserRegistration{
		Email:    "nobody@example.com",
		Password: "whatever password",
	})

	assertAppErrorCode(t, errWrongPassword, apperrors.CodeUnauthorized, http.StatusUnauthorized)
	assertAppErrorCode(t, errUnknownEmail, apperrors.CodeUnauthorized, http.StatusUnauthorized)

	if errWrongPassword.Error() != errUnknownEmail.Error() {
		t.Fatal("login failures must be indistinguishable")
	}
}

func TestLogin_InactiveUserRejected(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("correct horse battery"), bcrypt.MinCost)
	repo := &mockUserRepository{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: userID, Email: email, HashedPassword: string(hashed), IsActive: false}, nil
		},
	}
	svc, _ := newService(repo)

	_, err := svc.Login(context.Background(), &model.UserRegistration{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	assertAppErrorCode(t, err, apperrors.CodeUnauthorized, http.StatusUnauthorized)
}

func TestGetByID_NotFound(t *testing.T) {
	svc, _ := newService(&mockUserRepository{})

	_, err := svc.GetByID(context.Background(), userID)
	assertAppErrorCode(t, err, apperrors.CodeNotFound, http.StatusNotFound)
}
