package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
	"quill/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const (
	msgInvalidLogin = "Please enter a correct username and password. Note that both fields may be case-sensitive."
	msgOldPassword  = "Your old password was entered incorrectly. Please enter it again."
	msgUsernameUsed = "A user with that username already exists."
)

type UserService struct {
	userRepo repository.UserRepository
	cost     int
	now      func() time.Time
}

type SignupInput struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type ChangePasswordInput struct {
	User        *models.User
	OldPassword string
	NewPassword string
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo, cost: bcrypt.DefaultCost, now: time.Now}
}

// WithHashCost overrides the bcrypt cost, mainly so tests can use bcrypt.MinCost.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.userRepo.GetByUsername(ctx, username)
}

// UsernameTaken reports whether username is in use, ignoring case.
func (s *UserService) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.userRepo.UsernameTaken(ctx, username)
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

func (s *UserService) SetStaff(ctx context.Context, username string, staff bool) error {
	return s.userRepo.SetStaff(ctx, username, staff)
}

// Signup creates an account with a bcrypt-hashed password.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if errs := validation.ValidatePassword(in.Password, username, in.Email, in.FirstName, in.LastName); len(errs) > 0 {
		return nil, models.NewValidationError(errors.Join(errs...).Error())
	}

	taken, err := s.userRepo.UsernameTaken(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.NewConflictError(msgUsernameUsed)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:  username,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     validation.NormalizeEmail(in.Email),
		Password:  string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.AuthEvents.WithLabelValues("signup").Inc()
	middleware.Logger.InfoContext(ctx, "User registered",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Authenticate checks credentials and stamps last_login on success.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if models.IsNotFound(err) {
			observability.AuthEvents.WithLabelValues("login_failed").Inc()
			return nil, models.NewUnauthorizedError(msgInvalidLogin)
		}
		return nil, err
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); cmpErr != nil {
		observability.AuthEvents.WithLabelValues("login_failed").Inc()
		return nil, models.NewUnauthorizedError(msgInvalidLogin)
	}

	now := s.now().UTC()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		middleware.Logger.WarnContext(ctx, "Failed to record last login",
			slog.Uint64("user_id", uint64(user.ID)),
			slog.String("error", err.Error()),
		)
	} else {
		user.LastLogin = &now
	}
	observability.AuthEvents.WithLabelValues("login").Inc()
	return user, nil
}

// VerifyPassword reports whether password matches user's stored hash.
func (s *UserService) VerifyPassword(user *models.User, password string) bool {
	return user != nil && bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
}

// ChangePassword replaces the password of in.User after checking the old one. in.User is updated
// in place so a new session can be issued for it.
func (s *UserService) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	if in.User == nil {
		return models.NewUnauthorizedError("Login required")
	}
	if !s.VerifyPassword(in.User, in.OldPassword) {
		return models.NewValidationError(msgOldPassword)
	}
	u := in.User
	if errs := validation.ValidatePassword(in.NewPassword, u.Username, u.Email, u.FirstName, u.LastName); len(errs) > 0 {
		return models.NewValidationError(errors.Join(errs...).Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.cost)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.userRepo.SetPassword(ctx, u.ID, string(hash)); err != nil {
		return err
	}
	u.Password = string(hash)
	observability.AuthEvents.WithLabelValues("password_change").Inc()
	return nil
}
