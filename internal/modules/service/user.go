package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/formcraft-io/formcraft/internal/modules/model"
	"github.com/formcraft-io/formcraft/internal/modules/repo"
	"github.com/formcraft-io/formcraft/internal/pkg/utils/secrets"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

type UserService interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.User, error)
	// NewCoordinator builds an unsaved coordinator account whose password is the
	// argon2id hash of the vehicle number.
	NewCoordinator(in CoordinatorInput) (*model.User, error)
}

type userService struct {
	r      repo.UserRepo
	pepper string
}

func NewUserService(r repo.UserRepo, pepper string) UserService {
	return &userService{r: r, pepper: pepper}
}

type CoordinatorInput struct {
	Name          string
	Email         string
	PhoneNumber   string
	VehicleNumber string
}

func (s *userService) Get(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	u, err := s.r.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

var whitespace = regexp.MustCompile(`\s+`)

// CoordinatorUsername lowercases name and drops all whitespace.
func CoordinatorUsername(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(name), "")
}

func (s *userService) NewCoordinator(in CoordinatorInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := CoordinatorUsername(in.Name)
	if email == "" || username == "" || in.VehicleNumber == "" {
		return nil, ErrInvalidInput
	}

	hash, err := secrets.HashSecret(in.VehicleNumber, s.pepper)
	if err != nil {
		return nil, fmt.Errorf("hash coordinator password: %w", err)
	}
	return &model.User{
		Username:     username,
		Email:        email,
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		PasswordHash: hash,
	}, nil
}
