package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-course-api/internal/actor"
	"github.com/noah-isme/sma-course-api/internal/models"
	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

// SetUserRequest replaces a user record.
type SetUserRequest struct {
	Name     string   `json:"name" validate:"required,max=150"`
	ClassIDs []string `json:"class_ids" validate:"omitempty,dive,uuid"`
}

// UserService exposes users and their class assignments.
type UserService struct {
	rt        *actor.Runtime
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(rt *actor.Runtime, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{rt: rt, validator: validate, logger: logger}
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, rawID string) (*models.User, error) {
	id, err := parseID(rawID, "user id")
	if err != nil {
		return nil, err
	}
	user, err := s.rt.User(id).Get(ctx)
	if err != nil {
		return nil, serviceError(err, "failed to load user")
	}
	if !user.Exists() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return &user, nil
}

// Set creates or replaces a user.
func (s *UserService) Set(ctx context.Context, rawID string, req SetUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	id, err := parseID(rawID, "user id")
	if err != nil {
		return nil, err
	}
	classIDs, err := parseIDs(req.ClassIDs, "class id")
	if err != nil {
		return nil, err
	}
	user := models.User{ID: id, Name: req.Name, ClassIDs: classIDs}
	if err := s.rt.User(id).Set(ctx, user); err != nil {
		return nil, serviceError(err, "failed to store user")
	}
	return &user, nil
}

// Classes lists the classes assigned to a user.
func (s *UserService) Classes(ctx context.Context, rawID string) ([]models.Class, error) {
	user, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}
	classes, err := fetchClasses(ctx, s.rt, user.ClassIDs)
	if err != nil {
		return nil, serviceError(err, "failed to load classes")
	}
	return classes, nil
}

// AddClass assigns an existing class to a user.
func (s *UserService) AddClass(ctx context.Context, rawID, rawClassID string) (*models.User, error) {
	user, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}
	classID, err := parseID(rawClassID, "class id")
	if err != nil {
		return nil, err
	}
	class, err := s.rt.Class(classID).Get(ctx)
	if err != nil {
		return nil, serviceError(err, "failed to load class")
	}
	if !class.Exists() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	if err := s.rt.User(user.ID).AddClass(ctx, classID); err != nil {
		return nil, serviceError(err, "failed to assign class")
	}
	return s.Get(ctx, rawID)
}

// RemoveClass drops a class assignment and reports whether it was present.
func (s *UserService) RemoveClass(ctx context.Context, rawID, rawClassID string) (bool, error) {
	user, err := s.Get(ctx, rawID)
	if err != nil {
		return false, err
	}
	classID, err := parseID(rawClassID, "class id")
	if err != nil {
		return false, err
	}
	removed, err := s.rt.User(user.ID).RemoveClass(ctx, classID)
	if err != nil {
		return false, serviceError(err, "failed to unassign class")
	}
	return removed, nil
}
