package service

import (
	"context"
	"strings"

	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/domain/apperr"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
)

// CreateUserInput registers an actor
type CreateUserInput struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required"`
}

// UserService resolves actors and assignees
type UserService interface {
	CreateUser(ctx context.Context, in CreateUserInput) (*entity.User, error)
	GetUser(ctx context.Context, id int64) (*entity.User, error)
}

type userServiceImpl struct {
	userRepo port.UserRepository
	logger   Logger
}

// NewUserService creates a new UserService
func NewUserService(userRepo port.UserRepository, logger Logger) UserService {
	return &userServiceImpl{userRepo: userRepo, logger: logger}
}

func (s *userServiceImpl) CreateUser(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.TrimSpace(in.Role)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	u := &entity.User{Name: in.Name, Email: in.Email, Role: in.Role, IsActive: true}
	if err := s.userRepo.Create(ctx, u); err != nil {
		s.logger.Error("Failed to create user", "email", in.Email, "error", err)
		return nil, err
	}
	s.logger.Info("User created", "id", u.ID, "role", u.Role)
	return u, nil
}

func (s *userServiceImpl) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user", id)
	}
	return u, nil
}
