package service

import (
	"errors"
	"fmt"

	"go-sales-tracker/internal/model"
	"go-sales-tracker/internal/repository"
	"go-sales-tracker/pkg/jwt"
	"go-sales-tracker/pkg/validator"

	"go.uber.org/zap"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type AuthService interface {
	SignUp(req *RegisterRequest) (*model.UserResponse, error)
	SignIn(email, password string) (string, error)
}

type RegisterRequest struct {
	Name     string         `json:"name" validate:"required,max=255"`
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=6"`
	UserType model.UserType `json:"user_type" validate:"required,oneof=AGENT ADMIN"`
}

type authService struct {
	userRepo repository.UserRepository
	logger   *zap.Logger
}

func NewAuthService(userRepo repository.UserRepository, logger *zap.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		logger:   logger,
	}
}

func (s *authService) SignUp(req *RegisterRequest) (*model.UserResponse, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return nil, fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}

	// Duplicate registration is a conflict, not an overwrite
	if existing, _ := s.userRepo.FindByEmail(req.Email); existing != nil {
		return nil, ErrEmailTaken
	}

	user := &model.User{
		Name:     req.Name,
		Email:    req.Email,
		UserType: req.UserType,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, errors.New("failed to hash password")
	}

	if err := s.userRepo.Create(user); err != nil {
		s.logger.Error("failed to create user", zap.String("email", req.Email), zap.Error(err))
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.String()), zap.String("email", user.Email))
	response := user.ToResponse()
	return &response, nil
}

// SignIn distinguishes an unknown email (not found) from a bad password
// (unauthorized) so the handler can map them to different statuses.
func (s *authService) SignIn(email, password string) (string, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		return "", ErrUserNotFound
	}

	if !user.CheckPassword(password) {
		return "", ErrInvalidCredentials
	}

	token, err := jwt.GenerateToken(user.ID, user.Email, user.Name, string(user.UserType))
	if err != nil {
		s.logger.Error("failed to sign token", zap.String("user_id", user.ID.String()), zap.Error(err))
		return "", errors.New("failed to generate token")
	}

	return token, nil
}
