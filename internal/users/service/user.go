package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	userserrors "slotly/internal/users/errors"
	"slotly/internal/users/repository"
	"slotly/internal/users/validator"
	"slotly/pkg/config"
	apperrors "slotly/pkg/errors"
	"slotly/pkg/model"
	"slotly/pkg/sanitizer"
	"slotly/pkg/token"
)

type UserService interface {
	Register(ctx context.Context, registration *model.UserRegistration) (*model.User, error)
	Login(ctx context.Context, credentials *model.UserRegistration) (string, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

type userService struct {
	repo      repository.UserRepository
	validator *validator.UserValidator
	tokens    *token.Manager
	cfg       *config.Config
}

func NewUserService(
	repo repository.UserRepository,
	validator *validator.UserValidator,
	tokens *token.Manager,
	cfg *config.Config,
) UserService {
	return &userService{
		repo:      repo,
		validator: validator,
		tokens:    tokens,
		cfg:       cfg,
	}
}

func (s *userService) Register(ctx context.Context, registration *model.UserRegistration) (*model.User, error) {
	registration.Email = sanitizer.SanitizeEmail(registration.Email)

	if err := s.validator.ValidateRegistration(registration); err != nil {
		s.cfg.Log.Warn("User registration validation failed", "error", err)
		return nil, apperrors.Validation("Invalid registration input", map[string]any{"error": err.Error()})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(registration.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password", err)
	}

	user := &model.User{
		Email:          registration.Email,
		HashedPassword: string(hashed),
		IsActive:       true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, userserrors.ErrDuplicateEmail) {
			return nil, apperrors.Conflict("Email is already registered")
		}
		s.cfg.Log.Error("Failed to create user", "error", err)
		return nil, apperrors.Internal("Failed to create user", err)
	}

	s.cfg.Log.Info("User registered successfully", "id", user.ID, "email", user.Email)
	return user, nil
}

// Login verifies the credentials and issues a bearer token. Unknown email and
// wrong password return the same error so the endpoint cannot be used to
// probe which addresses are registered.
func (s *userService) Login(ctx context.Context, credentials *model.UserRegistration) (string, error) {
	credentials.Email = sanitizer.SanitizeEmail(credentials.Email)

	if credentials.Email == "" || credentials.Password == "" {
		return "", apperrors.InvalidInput("Email and password are required")
	}

	user, err := s.repo.FindByEmail(ctx, credentials.Email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return "", apperrors.Unauthorized("Invalid email or password")
		}
		s.cfg.Log.Error("Failed to look up user for login", "error", err)
		return "", apperrors.Internal("Failed to authenticate", err)
	}

	if !user.IsActive {
		return "", apperrors.Unauthorized("Invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(credentials.Password)); err != nil {
		return "", apperrors.Unauthorized("Invalid email or password")
	}

	signed, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return "", apperrors.Internal("Failed to issue token", err)
	}

	s.cfg.Log.Info("User logged in", "id", user.ID)
	return signed, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", id)
		}
		if errors.Is(err, userserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid user ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}

	return user, nil
}
