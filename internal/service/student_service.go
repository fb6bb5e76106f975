package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-course-api/internal/actor"
	"github.com/noah-isme/sma-course-api/internal/models"
	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

// CreateStudentRequest holds payload for creating students. ID is optional
// and generated when empty.
type CreateStudentRequest struct {
	ID          string    `json:"id" validate:"omitempty,uuid"`
	FirstName   string    `json:"first_name" validate:"required,max=100"`
	LastName    string    `json:"last_name" validate:"required,max=100"`
	Email       string    `json:"email" validate:"omitempty,email"`
	PhoneNumber string    `json:"phone_number" validate:"omitempty,max=32"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Address     string    `json:"address" validate:"omitempty,max=255"`
}

// UpdateStudentRequest holds payload for updating student profiles.
type UpdateStudentRequest struct {
	FirstName   string    `json:"first_name" validate:"required,max=100"`
	LastName    string    `json:"last_name" validate:"required,max=100"`
	Email       string    `json:"email" validate:"omitempty,email"`
	PhoneNumber string    `json:"phone_number" validate:"omitempty,max=32"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Address     string    `json:"address" validate:"omitempty,max=255"`
}

// StudentService handles student use-cases on top of the student actors and
// the student registry.
type StudentService struct {
	rt        *actor.Runtime
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(rt *actor.Runtime, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{rt: rt, cache: cache, validator: validate, logger: logger}
}

// List returns registered students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	ids, err := s.rt.StudentRegistry().List(ctx)
	if err != nil {
		return nil, nil, serviceError(err, "failed to list students")
	}
	page, size := normalisePage(filter.Page, filter.PageSize)
	start, end := pageBounds(page, size, len(ids))
	students, err := fetchStudents(ctx, s.rt, ids[start:end])
	if err != nil {
		return nil, nil, serviceError(err, "failed to load students")
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: len(ids)}, nil
}

// Get returns a student by id. Unregistered students stay readable by key.
func (s *StudentService) Get(ctx context.Context, rawID string) (*models.Student, error) {
	id, err := parseID(rawID, "student id")
	if err != nil {
		return nil, err
	}
	student, err := s.rt.Student(id).Get(ctx)
	if err != nil {
		return nil, serviceError(err, "failed to load student")
	}
	if !student.Exists() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	id, err := parseOptionalID(req.ID, "student id")
	if err != nil {
		return nil, err
	}
	student := models.Student{
		ID:          id,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		DateOfBirth: req.DateOfBirth,
		Address:     req.Address,
	}
	registered, err := s.rt.StudentRegistry().Register(ctx, student)
	if err != nil {
		return nil, serviceError(err, "failed to create student")
	}
	if !registered {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already exists")
	}
	s.logger.Info("student registered", zap.String("student_id", id.String()))
	return &student, nil
}

// Update modifies profile fields of an existing student.
func (s *StudentService) Update(ctx context.Context, rawID string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	id, err := parseID(rawID, "student id")
	if err != nil {
		return nil, err
	}
	student, err := s.rt.Student(id).Update(ctx, actor.StudentUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		DateOfBirth: req.DateOfBirth,
		Address:     req.Address,
	})
	if err != nil {
		return nil, serviceError(err, "failed to update student")
	}
	return &student, nil
}

// Delete unregisters a student. The record itself is kept.
func (s *StudentService) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID, "student id")
	if err != nil {
		return err
	}
	removed, err := s.rt.StudentRegistry().Remove(ctx, id)
	if err != nil {
		return serviceError(err, "failed to delete student")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	s.logger.Info("student unregistered", zap.String("student_id", id.String()))
	if err := s.cache.Invalidate(ctx, recommendationCachePattern); err != nil {
		s.logger.Warn("failed to invalidate recommendations", zap.Error(err))
	}
	return nil
}

// Classes lists the classes a student is enrolled in.
func (s *StudentService) Classes(ctx context.Context, rawID string) ([]models.Class, error) {
	student, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}
	classes, err := fetchClasses(ctx, s.rt, student.EnrolledClassIDs)
	if err != nil {
		return nil, serviceError(err, "failed to load classes")
	}
	return classes, nil
}
