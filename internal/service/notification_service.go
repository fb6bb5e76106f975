package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-course-api/internal/actor"
	"github.com/noah-isme/sma-course-api/internal/models"
	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

// SetNotificationRequest payload for storing a notification.
type SetNotificationRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=4000"`
}

// NotificationService stores short-lived notifications by id.
type NotificationService struct {
	rt        *actor.Runtime
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNotificationService constructs NotificationService.
func NewNotificationService(rt *actor.Runtime, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{rt: rt, validator: validate, logger: logger}
}

// Get returns a notification. Never-set ids are not found.
func (s *NotificationService) Get(ctx context.Context, rawID string) (*models.Notification, error) {
	id, err := parseID(rawID, "notification id")
	if err != nil {
		return nil, err
	}
	n, err := s.rt.Notification(id).Get(ctx)
	if err != nil {
		return nil, serviceError(err, "failed to load notification")
	}
	if n == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return n, nil
}

// Set stores a notification.
func (s *NotificationService) Set(ctx context.Context, rawID string, req SetNotificationRequest) (*models.Notification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification payload")
	}
	id, err := parseID(rawID, "notification id")
	if err != nil {
		return nil, err
	}
	n := models.Notification{Title: req.Title, Message: req.Message}
	if err := s.rt.Notification(id).Set(ctx, n); err != nil {
		return nil, serviceError(err, "failed to store notification")
	}
	return &n, nil
}

// Delete clears a notification. Deleting an absent one succeeds.
func (s *NotificationService) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID, "notification id")
	if err != nil {
		return err
	}
	if err := s.rt.Notification(id).Delete(ctx); err != nil {
		return serviceError(err, "failed to delete notification")
	}
	return nil
}
