package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"docrepo/internal/config"

	"github.com/google/uuid"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenTTL:     time.Minute,
		RefreshTokenTTL:    time.Hour,
		BcryptCost:         4,
	}
}

func TestRegisterSuccess(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())

	result, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Username: "reader",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	if result.User.PasswordHash != "" {
		t.Fatalf("expected password hash to be stripped from response")
	}
	if result.User.Role != RoleViewer {
		t.Fatalf("expected default role VIEWER, got %s", result.User.Role)
	}
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatalf("expected tokens to be issued")
	}
	if len(store.users) != 1 {
		t.Fatalf("expected user stored; got %d", len(store.users))
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())

	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Username: "reader",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("initial registration returned error: %v", err)
	}

	_, err = service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Username: "reader2",
		Password: "AnotherPass2!",
	})

	if err == nil || err != ErrEmailAlreadyExists {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())

	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Username: "reader",
		Password: "StrongPass1!",
		Role:     "SUPERUSER",
	})
	if err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestLoginAndTokenRoundTrip(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())

	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "editor@example.com",
		Username: "editor",
		Password: "StrongPass1!",
		Role:     RoleEditor,
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	result, err := service.Login(context.Background(), LoginInput{
		Email:    "editor@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("login returned error: %v", err)
	}

	claims, err := service.ValidateAccessToken(result.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Username != "editor" {
		t.Fatalf("unexpected username claim: %s", claims.Username)
	}
	if claims.Role != RoleEditor {
		t.Fatalf("unexpected role claim: %s", claims.Role)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())

	registered, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Username: "reader",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	refreshed, err := service.Refresh(context.Background(), registered.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh returned error: %v", err)
	}
	if refreshed.Tokens.RefreshToken == registered.Tokens.RefreshToken {
		t.Fatalf("expected a new refresh token")
	}
	if refreshed.User.ID != registered.User.ID {
		t.Fatalf("refresh changed user identity")
	}

	// The used token is revoked: a second refresh with it must fail.
	if _, err := service.Refresh(context.Background(), registered.Tokens.RefreshToken); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized on replayed refresh token, got %v", err)
	}
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())

	if _, err := service.Refresh(context.Background(), "not-a-real-token"); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := service.Refresh(context.Background(), ""); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized for empty token, got %v", err)
	}
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())

	registered, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Username: "reader",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	service.nowFunc = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := service.Refresh(context.Background(), registered.Tokens.RefreshToken); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized for expired refresh token, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())

	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Username: "reader",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	_, err = service.Login(context.Background(), LoginInput{
		Email:    "user@example.com",
		Password: "WrongPass9!",
	})
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestListUsersStripsPasswordHashes(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())

	for _, in := range []RegisterInput{
		{Email: "a@example.com", Username: "alpha", Password: "StrongPass1!"},
		{Email: "b@example.com", Username: "bravo", Password: "StrongPass1!", Role: RoleEditor},
	} {
		if _, err := service.Register(context.Background(), in); err != nil {
			t.Fatalf("register %s returned error: %v", in.Email, err)
		}
	}

	users, err := service.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users returned error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	for _, user := range users {
		if user.PasswordHash != "" {
			t.Fatalf("expected password hash stripped for %s", user.Email)
		}
	}
}

func TestUpdateRole(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())

	registered, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Username: "reader",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	updated, err := service.UpdateRole(context.Background(), registered.User.ID, RoleEditor)
	if err != nil {
		t.Fatalf("update role returned error: %v", err)
	}
	if updated.Role != RoleEditor {
		t.Fatalf("expected role EDITOR, got %s", updated.Role)
	}
	if updated.PasswordHash != "" {
		t.Fatalf("expected password hash stripped from response")
	}

	if _, err := service.UpdateRole(context.Background(), registered.User.ID, "SUPERUSER"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if _, err := service.UpdateRole(context.Background(), uuid.New(), RoleViewer); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unknown user, got %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())

	registered, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Username: "reader",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	if err := service.DeleteUser(context.Background(), registered.User.ID); err != nil {
		t.Fatalf("delete user returned error: %v", err)
	}
	if _, err := service.GetUser(context.Background(), registered.User.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after delete, got %v", err)
	}
	if err := service.DeleteUser(context.Background(), registered.User.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on second delete, got %v", err)
	}
}

// --- fakes ---

type memoryStore struct {
	users  map[string]User
	tokens map[string]RefreshToken
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:  make(map[string]User),
		tokens: make(map[string]RefreshToken),
	}
}

func (m *memoryStore) CreateUser(ctx context.Context, email, username, passwordHash, role string) (User, error) {
	if _, exists := m.users[email]; exists {
		return User{}, ErrEmailAlreadyExists
	}
	user := User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.users[email] = user
	return user, nil
}

func (m *memoryStore) FindUserByEmail(ctx context.Context, email string) (User, error) {
	user, ok := m.users[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (m *memoryStore) FindUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *memoryStore) ListUsers(ctx context.Context) ([]User, error) {
	users := make([]User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	return users, nil
}

func (m *memoryStore) UpdateUserRole(ctx context.Context, id uuid.UUID, role string) (User, error) {
	for email, user := range m.users {
		if user.ID == id {
			user.Role = role
			user.UpdatedAt = time.Now()
			m.users[email] = user
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *memoryStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	for email, user := range m.users {
		if user.ID == id {
			delete(m.users, email)
			return nil
		}
	}
	return ErrUserNotFound
}

func (m *memoryStore) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	m.tokens[tokenHash] = RefreshToken{UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt}
	return nil
}

func (m *memoryStore) FindRefreshToken(ctx context.Context, tokenHash string) (RefreshToken, error) {
	token, ok := m.tokens[tokenHash]
	if !ok {
		return RefreshToken{}, ErrTokenNotFound
	}
	return token, nil
}

func (m *memoryStore) RevokeToken(ctx context.Context, userID uuid.UUID, tokenHash string) error {
	delete(m.tokens, tokenHash)
	return nil
}
