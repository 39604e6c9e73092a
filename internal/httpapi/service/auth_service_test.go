package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"booktracker/internal/config"
	"booktracker/internal/httpapi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username != nil && *u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) TouchLastLogin(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		now := time.Now()
		u.LastLogin = &now
	}
	return nil
}

func newAuthService() (AuthService, *fakeUserRepo) {
	repo := newFakeUserRepo()
	cfg := &config.Config{
		JWTSecret:  "test-secret-at-least-32-characters-long",
		SessionTTL: time.Hour,
	}
	return NewAuthService(repo, cfg), repo
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService()

	user, err := svc.Register(context.Background(), "paul", "arrakis-dune-desert", "paul@atreides.example")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	require.NotNil(t, user.Password)
	assert.NotEqual(t, "arrakis-dune-desert", *user.Password, "password must be stored hashed")

	t.Run("duplicate username", func(t *testing.T) {
		_, err := svc.Register(context.Background(), "paul", "other", "other@example.com")
		assert.ErrorIs(t, err, ErrNameInUse)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Register(context.Background(), "leto", "other", "paul@atreides.example")
		assert.ErrorIs(t, err, ErrEmailInUse)
	})

	t.Run("login succeeds", func(t *testing.T) {
		token, got, err := svc.Login(context.Background(), "paul", "arrakis-dune-desert")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), "paul", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown username", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), "ghost", "whatever")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestValidateSession(t *testing.T) {
	svc, _ := newAuthService()

	user, err := svc.Register(context.Background(), "paul", "arrakis-dune-desert", "paul@atreides.example")
	require.NoError(t, err)
	token, _, err := svc.Login(context.Background(), "paul", "arrakis-dune-desert")
	require.NoError(t, err)

	claims, err := svc.ValidateSession(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ValidateSession("not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		otherRepo := newFakeUserRepo()
		other := NewAuthService(otherRepo, &config.Config{
			JWTSecret:  "a-completely-different-32-char-secret!!",
			SessionTTL: time.Hour,
		})
		_, err := other.ValidateSession(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestLoginWithGoogle(t *testing.T) {
	svc, repo := newAuthService()

	profile := GoogleProfile{
		Sub:     "google-sub-1",
		Email:   "paul@atreides.example",
		Name:    "Paul Atreides",
		Picture: "https://example.com/avatar.png",
	}

	token, user, err := svc.LoginWithGoogle(context.Background(), profile)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	require.NotNil(t, user.GoogleID)
	assert.Equal(t, "google-sub-1", *user.GoogleID)
	assert.Nil(t, user.Password, "provider accounts carry no local password")

	// A second login with the same subject reuses the account.
	_, again, err := svc.LoginWithGoogle(context.Background(), profile)
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Len(t, repo.users, 1)
}
