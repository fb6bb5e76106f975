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

// CreateGradeRequest payload for recording a grade.
type CreateGradeRequest struct {
	StudentID      string    `json:"student_id" validate:"required,uuid"`
	ClassID        string    `json:"class_id" validate:"required,uuid"`
	Score          float64   `json:"score" validate:"gte=0"`
	MaxScore       float64   `json:"max_score" validate:"gte=0"`
	AssignmentType string    `json:"assignment_type" validate:"required,max=64"`
	DateRecorded   time.Time `json:"date_recorded"`
	SemesterWeek   int       `json:"semester_week" validate:"gte=0,lte=52"`
}

// UpdateGradeRequest payload for correcting a grade.
type UpdateGradeRequest struct {
	Score          float64   `json:"score" validate:"gte=0"`
	MaxScore       float64   `json:"max_score" validate:"gte=0"`
	AssignmentType string    `json:"assignment_type" validate:"required,max=64"`
	DateRecorded   time.Time `json:"date_recorded"`
	SemesterWeek   int       `json:"semester_week" validate:"gte=0,lte=52"`
}

// GradeService records grades and keeps the owning performance record in
// step with them.
type GradeService struct {
	rt          *actor.Runtime
	performance *PerformanceService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewGradeService constructs GradeService.
func NewGradeService(rt *actor.Runtime, performance *PerformanceService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{rt: rt, performance: performance, validator: validate, logger: logger, now: time.Now}
}

// Get returns a grade by id.
func (s *GradeService) Get(ctx context.Context, rawID string) (*models.Grade, error) {
	id, err := parseID(rawID, "grade id")
	if err != nil {
		return nil, err
	}
	grade, err := s.rt.Grade(id).Get(ctx)
	if err != nil {
		return nil, serviceError(err, "failed to load grade")
	}
	if !grade.Exists() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
	}
	return &grade, nil
}

// Create stores a new grade, attaches it to the pair's performance record
// and recomputes that record.
func (s *GradeService) Create(ctx context.Context, req CreateGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	studentID, classID, err := parsePair(req.StudentID, req.ClassID)
	if err != nil {
		return nil, err
	}
	if err := s.ensurePair(ctx, studentID, classID); err != nil {
		return nil, err
	}
	recorded := req.DateRecorded
	if recorded.IsZero() {
		recorded = s.now()
	}
	grade := models.Grade{
		ID:             uuid.New(),
		StudentID:      studentID,
		ClassID:        classID,
		Score:          req.Score,
		MaxScore:       req.MaxScore,
		AssignmentType: req.AssignmentType,
		DateRecorded:   recorded.UTC(),
		SemesterWeek:   req.SemesterWeek,
	}
	if err := s.rt.Grade(grade.ID).Set(ctx, grade); err != nil {
		return nil, serviceError(err, "failed to store grade")
	}
	if _, err := s.rt.Performance(studentID, classID).AddGrade(ctx, grade.ID); err != nil {
		return nil, serviceError(err, "failed to attach grade")
	}
	if _, err := s.performance.refresh(ctx, studentID, classID); err != nil {
		return nil, err
	}
	s.logger.Info("grade recorded", zap.String("grade_id", grade.ID.String()),
		zap.String("student_id", studentID.String()), zap.String("class_id", classID.String()))
	return &grade, nil
}

// Update corrects a grade and recomputes its performance record.
func (s *GradeService) Update(ctx context.Context, rawID string, req UpdateGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	id, err := parseID(rawID, "grade id")
	if err != nil {
		return nil, err
	}
	current, err := s.rt.Grade(id).Get(ctx)
	if err != nil {
		return nil, serviceError(err, "failed to load grade")
	}
	recorded := req.DateRecorded
	if recorded.IsZero() {
		recorded = current.DateRecorded
	}
	grade, err := s.rt.Grade(id).Update(ctx, actor.GradeUpdate{
		Score:          req.Score,
		MaxScore:       req.MaxScore,
		AssignmentType: req.AssignmentType,
		DateRecorded:   recorded.UTC(),
		SemesterWeek:   req.SemesterWeek,
	})
	if err != nil {
		return nil, serviceError(err, "failed to update grade")
	}
	if _, err := s.performance.refresh(ctx, grade.StudentID, grade.ClassID); err != nil {
		return nil, err
	}
	return &grade, nil
}

// Delete clears a grade, detaches it from its performance record and
// recomputes that record.
func (s *GradeService) Delete(ctx context.Context, rawID string) error {
	grade, err := s.Get(ctx, rawID)
	if err != nil {
		return err
	}
	if err := s.rt.Grade(grade.ID).Delete(ctx); err != nil {
		return serviceError(err, "failed to delete grade")
	}
	if _, err := s.rt.Performance(grade.StudentID, grade.ClassID).RemoveGrade(ctx, grade.ID); err != nil {
		return serviceError(err, "failed to detach grade")
	}
	if _, err := s.performance.refresh(ctx, grade.StudentID, grade.ClassID); err != nil {
		return err
	}
	s.logger.Info("grade deleted", zap.String("grade_id", grade.ID.String()))
	return nil
}

func (s *GradeService) ensurePair(ctx context.Context, studentID, classID uuid.UUID) error {
	student, err := s.rt.Student(studentID).Get(ctx)
	if err != nil {
		return serviceError(err, "failed to load student")
	}
	if !student.Exists() {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	class, err := s.rt.Class(classID).Get(ctx)
	if err != nil {
		return serviceError(err, "failed to load class")
	}
	if !class.Exists() {
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	return nil
}
