package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"ms-theatre/internal/database"
	"ms-theatre/internal/logger"
	"ms-theatre/internal/models"
)

type UserDBLayer interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	SetStaff(ctx context.Context, id string, staff bool) error
}

type TokenIssuer interface {
	Issue(user *models.User) (string, error)
	TTL() time.Duration
}

var errInvalidCredentials = &models.ValidationError{Reason: "unable to log in with provided credentials"}

type UserService struct {
	DB     UserDBLayer
	Tokens TokenIssuer
	Logger *logger.Logger
	cost   int
}

func NewUserService(db UserDBLayer, tokens TokenIssuer, log *logger.Logger) *UserService {
	return &UserService{DB: db, Tokens: tokens, Logger: log, cost: bcrypt.DefaultCost}
}

func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.DB.CreateUser(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, &models.ConflictError{Entity: "user", Field: "email", Value: user.Email}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.Logger.LogSecurity("REGISTER", fmt.Sprintf("user %s registered", user.ID))
	return user, nil
}

func (s *UserService) Token(ctx context.Context, req models.TokenRequest) (*models.TokenResponse, error) {
	user, err := s.DB.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.Logger.LogSecurity("LOGIN_FAILED", "unknown email")
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.Logger.LogSecurity("LOGIN_FAILED", fmt.Sprintf("bad password for user %s", user.ID))
		return nil, errInvalidCredentials
	}

	token, err := s.Tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int(s.Tokens.TTL().Seconds()),
		TokenType:   "Bearer",
	}, nil
}

func (s *UserService) Me(ctx context.Context, id string) (*models.User, error) {
	user, err := s.DB.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{Entity: "user", ID: id}
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// EnsureAdmin registers the account if needed and marks it as staff.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.DB.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		user, err = s.Register(ctx, models.RegisterRequest{Email: email, Password: password})
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.DB.SetStaff(ctx, user.ID, true); err != nil {
		return nil, fmt.Errorf("failed to grant staff: %w", err)
	}
	user.IsStaff = true
	s.Logger.LogSecurity("GRANT_STAFF", fmt.Sprintf("user %s is now staff", user.ID))
	return user, nil
}
