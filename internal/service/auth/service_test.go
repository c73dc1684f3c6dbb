package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/pkg/util"
)

const testSecret = "test-secret"

type memUsers struct {
	byName map[string]*model.User
	nextID int64
}

func newMemUsers() *memUsers {
	return &memUsers{byName: make(map[string]*model.User)}
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	if _, ok := m.byName[u.Username]; ok {
		return model.ErrUsernameTaken
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	copied := *u
	m.byName[u.Username] = &copied
	return nil
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := m.byName[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func newTestService(users UserStore) *Service {
	return NewService(users, testSecret, time.Hour, zap.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMemUsers())
	ctx := context.Background()

	u, token, err := svc.Register(ctx, SignUpInput{Username: "alice", Password: "s3cret-pass", PasswordConfirm: "s3cret-pass"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.ID == 0 || u.PasswordHash == "s3cret-pass" {
		t.Fatalf("unexpected user: %+v", u)
	}
	claims, err := util.ParseJWT(token, testSecret)
	if err != nil || claims.UserID != u.ID {
		t.Fatalf("signup token invalid: %v", err)
	}

	token, err = svc.Login(ctx, "alice", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if claims, err := util.ParseJWT(token, testSecret); err != nil || claims.UserID != u.ID || claims.IsAdmin {
		t.Fatalf("login token invalid: %+v %v", claims, err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMemUsers())
	ctx := context.Background()
	if _, _, err := svc.Register(ctx, SignUpInput{Username: "bob", Password: "long-enough", PasswordConfirm: "long-enough"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Login(ctx, "bob", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "long-enough"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    SignUpInput
		field string
	}{
		{"empty username", SignUpInput{Username: " ", Password: "long-enough", PasswordConfirm: "long-enough"}, "username"},
		{"bad characters", SignUpInput{Username: "a b", Password: "long-enough", PasswordConfirm: "long-enough"}, "username"},
		{"mismatch", SignUpInput{Username: "carol", Password: "long-enough", PasswordConfirm: "different"}, "password_confirm"},
		{"too short", SignUpInput{Username: "carol", Password: "short", PasswordConfirm: "short"}, "password"},
		{"numeric", SignUpInput{Username: "carol", Password: "1234567890", PasswordConfirm: "1234567890"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(newMemUsers())
			_, _, err := svc.Register(context.Background(), tt.in)
			var ve *model.ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("expected %s ValidationError, got %v", tt.field, err)
			}
		})
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMemUsers())
	ctx := context.Background()
	in := SignUpInput{Username: "dave", Password: "long-enough", PasswordConfirm: "long-enough"}
	if _, _, err := svc.Register(ctx, in); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, _, err := svc.Register(ctx, in)
	var ve *model.ValidationError
	if !errors.As(err, &ve) || ve.Field != "username" {
		t.Fatalf("expected username ValidationError, got %v", err)
	}
}
