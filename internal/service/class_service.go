package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-course-api/internal/actor"
	"github.com/noah-isme/sma-course-api/internal/models"
	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

// CreateClassRequest payload. OwnerID, when set, assigns the class to that
// user.
type CreateClassRequest struct {
	ID             string    `json:"id" validate:"omitempty,uuid"`
	Name           string    `json:"name" validate:"required,max=150"`
	Description    string    `json:"description" validate:"omitempty,max=2000"`
	InstructorName string    `json:"instructor_name" validate:"omitempty,max=150"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	MaxCapacity    int       `json:"max_capacity" validate:"required,gte=1"`
	IsActive       *bool     `json:"is_active"`
	Category       string    `json:"category" validate:"omitempty,max=64"`
	OwnerID        string    `json:"owner_id" validate:"omitempty,uuid"`
}

// UpdateClassRequest payload. Enrollment is untouched.
type UpdateClassRequest struct {
	Name           string    `json:"name" validate:"required,max=150"`
	Description    string    `json:"description" validate:"omitempty,max=2000"`
	InstructorName string    `json:"instructor_name" validate:"omitempty,max=150"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	MaxCapacity    int       `json:"max_capacity" validate:"required,gte=1"`
	IsActive       bool      `json:"is_active"`
	Category       string    `json:"category" validate:"omitempty,max=64"`
}

// ClassService manages classes, the class registry and the catalog of
// active classes.
type ClassService struct {
	rt        *actor.Runtime
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(rt *actor.Runtime, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{rt: rt, cache: cache, validator: validate, logger: logger}
}

// List returns classes matching filter. ActiveOnly reads the catalog.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	index := s.rt.ClassRegistry()
	if filter.ActiveOnly {
		index = s.rt.ClassCatalog()
	}
	ids, err := index.List(ctx)
	if err != nil {
		return nil, nil, serviceError(err, "failed to list classes")
	}
	classes, err := fetchClasses(ctx, s.rt, ids)
	if err != nil {
		return nil, nil, serviceError(err, "failed to load classes")
	}
	filtered := classes[:0]
	for _, c := range classes {
		if filter.Category != "" && c.Category != filter.Category {
			continue
		}
		if filter.ActiveOnly && !c.IsActive {
			continue
		}
		filtered = append(filtered, c)
	}
	page, size := normalisePage(filter.Page, filter.PageSize)
	start, end := pageBounds(page, size, len(filtered))
	return filtered[start:end], &models.Pagination{Page: page, PageSize: size, TotalCount: len(filtered)}, nil
}

// Get returns a class by id.
func (s *ClassService) Get(ctx context.Context, rawID string) (*models.Class, error) {
	id, err := parseID(rawID, "class id")
	if err != nil {
		return nil, err
	}
	class, err := s.rt.Class(id).Get(ctx)
	if err != nil {
		return nil, serviceError(err, "failed to load class")
	}
	if !class.Exists() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	return &class, nil
}

// Create stores a class and indexes it.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if err := validateSchedule(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	id, err := parseOptionalID(req.ID, "class id")
	if err != nil {
		return nil, err
	}
	var owner uuid.UUID
	if req.OwnerID != "" {
		if owner, err = s.existingUser(ctx, req.OwnerID); err != nil {
			return nil, err
		}
	}
	existing, err := s.rt.Class(id).Get(ctx)
	if err != nil {
		return nil, serviceError(err, "failed to load class")
	}
	if existing.Exists() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class already exists")
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	class := models.Class{
		ID:             id,
		Name:           req.Name,
		Description:    req.Description,
		InstructorName: req.InstructorName,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		MaxCapacity:    req.MaxCapacity,
		IsActive:       active,
		Category:       categoryOrDefault(req.Category),
	}
	if err := s.rt.Class(id).Set(ctx, class); err != nil {
		return nil, serviceError(err, "failed to create class")
	}
	if _, err := s.rt.ClassRegistry().AddID(ctx, id); err != nil {
		return nil, serviceError(err, "failed to register class")
	}
	if err := s.syncCatalog(ctx, id, active); err != nil {
		return nil, err
	}
	if owner != uuid.Nil {
		if err := s.rt.User(owner).AddClass(ctx, id); err != nil {
			return nil, serviceError(err, "failed to assign class")
		}
	}
	s.logger.Info("class created", zap.String("class_id", id.String()), zap.Bool("active", active))
	return &class, nil
}

// Update changes descriptive fields and keeps the catalog in step with the
// active flag.
func (s *ClassService) Update(ctx context.Context, rawID string, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if err := validateSchedule(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	id, err := parseID(rawID, "class id")
	if err != nil {
		return nil, err
	}
	updated, err := s.rt.Class(id).Update(ctx, actor.ClassUpdate{
		Name:           req.Name,
		Description:    req.Description,
		InstructorName: req.InstructorName,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		MaxCapacity:    req.MaxCapacity,
		IsActive:       req.IsActive,
		Category:       categoryOrDefault(req.Category),
	})
	if err != nil {
		return nil, serviceError(err, "failed to update class")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	registered, err := s.rt.ClassRegistry().Contains(ctx, id)
	if err != nil {
		return nil, serviceError(err, "failed to check class registry")
	}
	if err := s.syncCatalog(ctx, id, req.IsActive && registered); err != nil {
		return nil, err
	}
	return s.Get(ctx, rawID)
}

// Delete unregisters a class and drops it from the catalog. When ownerID is
// set the class is also removed from that user's assignments. Enrollment
// and the record itself are kept.
func (s *ClassService) Delete(ctx context.Context, rawID, ownerID string) error {
	id, err := parseID(rawID, "class id")
	if err != nil {
		return err
	}
	removed, err := s.rt.ClassRegistry().RemoveID(ctx, id)
	if err != nil {
		return serviceError(err, "failed to delete class")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	if err := s.syncCatalog(ctx, id, false); err != nil {
		return err
	}
	if ownerID != "" {
		owner, err := parseID(ownerID, "user id")
		if err != nil {
			return err
		}
		if _, err := s.rt.User(owner).RemoveClass(ctx, id); err != nil {
			return serviceError(err, "failed to unassign class")
		}
	}
	s.logger.Info("class unregistered", zap.String("class_id", id.String()))
	return nil
}

// Roster lists the students enrolled in a class.
func (s *ClassService) Roster(ctx context.Context, rawID string) ([]models.Student, error) {
	class, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}
	students, err := fetchStudents(ctx, s.rt, class.EnrolledStudentIDs)
	if err != nil {
		return nil, serviceError(err, "failed to load roster")
	}
	return students, nil
}

func (s *ClassService) syncCatalog(ctx context.Context, id uuid.UUID, listed bool) error {
	var (
		changed bool
		err     error
	)
	if listed {
		changed, err = s.rt.ClassCatalog().AddID(ctx, id)
	} else {
		changed, err = s.rt.ClassCatalog().RemoveID(ctx, id)
	}
	if err != nil {
		return serviceError(err, "failed to update class catalog")
	}
	if changed {
		if err := s.cache.Invalidate(ctx, recommendationCachePattern); err != nil {
			s.logger.Warn("failed to invalidate recommendations", zap.Error(err))
		}
	}
	return nil
}

func (s *ClassService) existingUser(ctx context.Context, rawID string) (uuid.UUID, error) {
	id, err := parseID(rawID, "user id")
	if err != nil {
		return uuid.Nil, err
	}
	user, err := s.rt.User(id).Get(ctx)
	if err != nil {
		return uuid.Nil, serviceError(err, "failed to load user")
	}
	if !user.Exists() {
		return uuid.Nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return id, nil
}

func validateSchedule(start, end time.Time) error {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	return nil
}

func categoryOrDefault(raw string) models.ClassCategory {
	if raw == "" {
		return models.ClassCategoryOther
	}
	return models.ClassCategory(raw)
}
