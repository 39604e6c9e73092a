package service

import (
	"context"
	"errors"
	"time"

	"booktracker/internal/config"
	"booktracker/internal/httpapi/middleware/auth"
	"booktracker/internal/httpapi/models"
	"booktracker/internal/httpapi/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNameInUse          = errors.New("username already in use")
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// SessionClaims is the payload carried by the session cookie.
type SessionClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// GoogleProfile is the subset of the provider's userinfo we bind a User to.
type GoogleProfile struct {
	Sub     string
	Email   string
	Name    string
	Picture string
}

type AuthService interface {
	Register(ctx context.Context, username, password, email string) (*models.User, error)
	Login(ctx context.Context, username, password string) (token string, user *models.User, err error)
	// LoginWithGoogle finds-or-creates the user bound to the provider subject
	// id and issues a session token.
	LoginWithGoogle(ctx context.Context, profile GoogleProfile) (token string, user *models.User, err error)
	ValidateSession(tokenString string) (*SessionClaims, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type authService struct {
	users      repository.UserRepository
	jwtSecret  string
	sessionTTL time.Duration
}

func NewAuthService(users repository.UserRepository, cfg *config.Config) AuthService {
	return &authService{
		users:      users,
		jwtSecret:  cfg.JWTSecret,
		sessionTTL: cfg.SessionTTL,
	}
}

// Register creates a local account with the given username, password and email.
func (s *authService) Register(ctx context.Context, username, password, email string) (*models.User, error) {
	// Check if user exists
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return nil, ErrNameInUse
	}
	// Check if email exists
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:       uuid.New().String(),
		Username: &username,
		Email:    email,
		Name:     username,
		Password: &hashedPassword,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates a local account and returns a session token.
func (s *authService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		// Dummy compare so unknown usernames take as long as bad passwords.
		auth.VerifyPassword("$2a$10$7EqJtq98hPqEX7fNZaFWoOHi6VbU5h6K9v8u5rO0m3j0h6dX5r8e", password)
		return "", nil, ErrInvalidCredentials
	}
	if user.Password == nil {
		// Google-only account; no password to check.
		return "", nil, ErrInvalidCredentials
	}
	if err := auth.VerifyPassword(*user.Password, password); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.generateSessionToken(user)
	if err != nil {
		return "", nil, err
	}
	_ = s.users.TouchLastLogin(ctx, user.ID)
	return token, user, nil
}

func (s *authService) LoginWithGoogle(ctx context.Context, profile GoogleProfile) (string, *models.User, error) {
	user, err := s.users.FindByGoogleID(ctx, profile.Sub)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = &models.User{
			ID:       uuid.New().String(),
			GoogleID: &profile.Sub,
			Email:    profile.Email,
			Name:     profile.Name,
			Avatar:   profile.Picture,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return "", nil, err
		}
	} else if err != nil {
		return "", nil, err
	}

	token, err := s.generateSessionToken(user)
	if err != nil {
		return "", nil, err
	}
	_ = s.users.TouchLastLogin(ctx, user.ID)
	return token, user, nil
}

func (s *authService) generateSessionToken(user *models.User) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) ValidateSession(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *authService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return user, err
}
