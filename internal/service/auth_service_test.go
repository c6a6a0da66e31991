package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raflianugrah/invoice-manager-service/internal/domain"
	"github.com/raflianugrah/invoice-manager-service/internal/repository"
)

type fakeUserRecord struct {
	user domain.User
	hash string
}

// fakeUserRepo keeps users in a map keyed by email
type fakeUserRepo struct {
	users  map[string]*fakeUserRecord
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*fakeUserRecord{}}
}

func (r *fakeUserRepo) CreateUser(ctx context.Context, email, passwordHash, name string) (*domain.User, error) {
	if _, ok := r.users[email]; ok {
		return nil, repository.ErrEmailTaken
	}
	r.nextID++
	user := domain.User{
		ID:       string(rune('a' + r.nextID)),
		Email:    email,
		Name:     name,
		IsActive: true,
	}
	r.users[email] = &fakeUserRecord{user: user, hash: passwordHash}
	return &user, nil
}

func (r *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, string, error) {
	rec, ok := r.users[email]
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	return &rec.user, rec.hash, nil
}

func (r *fakeUserRepo) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	for _, rec := range r.users {
		if rec.user.ID == userID {
			return &rec.user, nil
		}
	}
	return nil, domain.ErrNotFound
}

func newTestAuthService(repo repository.UserRepository) AuthService {
	return NewAuthService(repo, "test-secret", 15*time.Minute, 24*time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())
	ctx := context.Background()

	registered, err := svc.Register(ctx, "user@example.com", "s3cret-pass", "Test User")
	require.NoError(t, err)
	assert.NotEmpty(t, registered.AccessToken)
	assert.NotEmpty(t, registered.RefreshToken)
	assert.Equal(t, "user@example.com", registered.User.Email)

	loggedIn, err := svc.Login(ctx, "user@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, "user@example.com", "s3cret-pass", "Test User")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "user@example.com", "other-pass", "Impostor")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, "user@example.com", "s3cret-pass", "Test User")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "user@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())

	tokens, err := svc.GenerateTokens("user-1", "user@example.com")
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)

	// A refresh token must not pass access validation
	_, err = svc.ValidateAccessToken(tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshAccessToken(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())

	tokens, err := svc.GenerateTokens("user-1", "user@example.com")
	require.NoError(t, err)

	renewed, err := svc.RefreshAccessToken(tokens.RefreshToken)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(renewed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	// An access token must not be exchangeable
	_, err = svc.RefreshAccessToken(tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())
	other := NewAuthService(newFakeUserRepo(), "different-secret", 15*time.Minute, 24*time.Hour)

	tokens, err := other.GenerateTokens("user-1", "user@example.com")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
