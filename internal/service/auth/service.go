package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/util"
)

const (
	UsernameMaxLen    = 150
	PasswordMinLength = 8
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")

	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
)

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

type Service struct {
	users     UserStore
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewService(users UserStore, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		users:     users,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

type SignUpInput struct {
	Username        string
	Password        string
	PasswordConfirm string
}

// Register creates a user and returns it together with a session token.
func (s *Service) Register(ctx context.Context, in SignUpInput) (*model.User, string, error) {
	log := logger.WithTrace(ctx, s.logger)

	username := strings.TrimSpace(in.Username)
	if err := validateUsername(username); err != nil {
		return nil, "", err
	}
	if in.Password != in.PasswordConfirm {
		return nil, "", &model.ValidationError{Field: "password_confirm", Message: "The two password fields didn't match."}
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, "", err
	}

	hash, err := util.HashPassword(in.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, model.ErrUsernameTaken) {
			return nil, "", &model.ValidationError{Field: "username", Message: "A user with that username already exists."}
		}
		return nil, "", err
	}

	token, err := util.GenerateJWT(u.ID, u.IsAdmin, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	log.Info("User registered", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return u, token, nil
}

// Login checks user credentials and returns JWT.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !util.CheckPassword(password, u.PasswordHash) {
		logger.WithTrace(ctx, s.logger).Debug("Login rejected", zap.String("username", u.Username))
		return "", ErrInvalidCredentials
	}

	return util.GenerateJWT(u.ID, u.IsAdmin, s.jwtSecret, s.tokenTTL)
}

func validateUsername(username string) error {
	switch {
	case username == "":
		return &model.ValidationError{Field: "username", Message: "This field is required."}
	case utf8.RuneCountInString(username) > UsernameMaxLen:
		return &model.ValidationError{Field: "username", Message: fmt.Sprintf("Ensure this value has at most %d characters.", UsernameMaxLen)}
	case !usernamePattern.MatchString(username):
		return &model.ValidationError{Field: "username", Message: "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."}
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < PasswordMinLength {
		return &model.ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("This password is too short. It must contain at least %d characters.", PasswordMinLength),
		}
	}
	if strings.Trim(password, "0123456789") == "" {
		return &model.ValidationError{Field: "password", Message: "This password is entirely numeric."}
	}
	return nil
}
