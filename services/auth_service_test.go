package services

import (
	"context"
	"errors"
	"testing"

	"github.com/gamelle/league-system/models"
	"github.com/gamelle/league-system/repositories"
	"github.com/google/uuid"
)

type fakeUserRepo struct {
	byEmail map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*models.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	if _, taken := r.byEmail[user.Email]; taken {
		return repositories.ErrUserEmailConflict
	}
	user.ID = uuid.New()
	stored := *user
	r.byEmail[user.Email] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	service := NewAuthService(newFakeUserRepo())

	user, err := service.Register(ctx, RegisterInput{
		DisplayName: "Alice",
		Email:       "  Alice@Example.Com ",
		Password:    "correct horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized lowercase", user.Email)
	}
	if user.PasswordHash != "" {
		t.Error("password hash leaked from Register")
	}

	logged, err := service.Login(ctx, LoginInput{Email: "alice@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if logged.ID != user.ID {
		t.Errorf("login returned user %s, want %s", logged.ID, user.ID)
	}
	if logged.PasswordHash != "" {
		t.Error("password hash leaked from Login")
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	service := NewAuthService(newFakeUserRepo())
	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "bob@example.com",
		Password: "short",
	})
	if !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("error = %v, want %v", err, ErrPasswordTooShort)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	service := NewAuthService(newFakeUserRepo())
	input := RegisterInput{Email: "bob@example.com", Password: "long enough"}

	if _, err := service.Register(ctx, input); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := service.Register(ctx, input); !errors.Is(err, ErrAuthEmailTaken) {
		t.Fatalf("duplicate error = %v, want %v", err, ErrAuthEmailTaken)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	service := NewAuthService(newFakeUserRepo())

	if _, err := service.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "long enough"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := service.Login(ctx, LoginInput{Email: "bob@example.com", Password: "wrong password"}); !errors.Is(err, ErrAuthInvalidCredentials) {
		t.Errorf("wrong password error = %v, want %v", err, ErrAuthInvalidCredentials)
	}
	if _, err := service.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "whatever"}); !errors.Is(err, ErrAuthInvalidCredentials) {
		t.Errorf("unknown user error = %v, want %v", err, ErrAuthInvalidCredentials)
	}
}
