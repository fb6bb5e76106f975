package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-course-api/internal/actor"
	"github.com/noah-isme/sma-course-api/internal/models"
	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
	"github.com/noah-isme/sma-course-api/pkg/jobs"
	"github.com/noah-isme/sma-course-api/pkg/retry"
)

const (
	repairJobEnroll   = "enrollment.class_enroll"
	repairJobUnenroll = "enrollment.class_unenroll"
)

// EnrollmentConfig tunes retries of the class-side step.
type EnrollmentConfig struct {
	RetryAttempts int
	RetryDelay    time.Duration
	RepairWorkers int
	RepairRetries int
	RepairDelay   time.Duration
}

type enrollmentRepair struct {
	StudentID uuid.UUID
	ClassID   uuid.UUID
}

// EnrollmentService coordinates the student and class actors for enrollment.
// The student side is written first; the class side is retried in place and
// then handed to the repair queue when storage keeps failing.
type EnrollmentService struct {
	rt      *actor.Runtime
	cache   *CacheService
	metrics *MetricsService
	retrier *retry.Retrier
	repairs *jobs.Queue
	logger  *zap.Logger
	now     func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(rt *actor.Runtime, cache *CacheService, metrics *MetricsService, cfg EnrollmentConfig, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	svc := &EnrollmentService{
		rt:      rt,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
	svc.retrier = retry.New(
		retry.WithMaxAttempts(cfg.RetryAttempts),
		retry.WithInitialDelay(cfg.RetryDelay),
		retry.WithRetryIf(func(err error) bool {
			return appErrors.Is(err, appErrors.ErrPersistence)
		}),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Warn("retrying class enrollment step", zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
		}),
	)
	svc.repairs = jobs.NewQueue("enrollment-repair", svc.handleRepair, jobs.QueueConfig{
		Workers:    cfg.RepairWorkers,
		MaxRetries: cfg.RepairRetries,
		RetryDelay: cfg.RepairDelay,
		Logger:     logger.Named("repair"),
		OnExhausted: func(job jobs.Job, err error) {
			logger.Error("enrollment repair abandoned", zap.String("type", job.Type), zap.Any("payload", job.Payload), zap.Error(err))
		},
	})
	metrics.TrackRepairQueue(svc.repairs.Pending)
	return svc
}

// Start runs the repair workers until ctx ends or Stop is called.
func (s *EnrollmentService) Start(ctx context.Context) {
	s.repairs.Start(ctx)
}

// Stop halts the repair workers.
func (s *EnrollmentService) Stop() {
	s.repairs.Stop()
}

// PendingRepairs reports class-side steps still waiting to be applied.
func (s *EnrollmentService) PendingRepairs() int {
	return s.repairs.Pending()
}

// Enroll adds the student to the class on both sides.
func (s *EnrollmentService) Enroll(ctx context.Context, rawStudentID, rawClassID string) (*models.EnrollmentResult, error) {
	studentID, classID, err := parsePair(rawStudentID, rawClassID)
	if err != nil {
		return nil, err
	}
	studentActor := s.rt.Student(studentID)
	classActor := s.rt.Class(classID)

	student, class, err := s.loadPair(ctx, studentActor, classActor)
	if err != nil {
		return nil, err
	}
	registered, err := s.rt.ClassRegistry().Contains(ctx, classID)
	if err != nil {
		return nil, serviceError(err, "failed to load class registry")
	}
	if !registered {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	listed := models.ContainsID(class.EnrolledStudentIDs, studentID)
	if !listed && class.CurrentEnrollment >= class.MaxCapacity {
		s.metrics.RecordEnrollment(models.EnrollmentOutcomeRejected)
		return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, fmt.Sprintf("class %s is full (%d/%d)", class.Name, class.CurrentEnrollment, class.MaxCapacity))
	}

	if err := studentActor.EnrollInClass(ctx, classID); err != nil {
		if isContextError(err) {
			s.scheduleRepair(repairJobEnroll, studentID, classID)
			return nil, err
		}
		return nil, serviceError(err, "failed to enroll student")
	}

	err = s.retrier.Do(ctx, func(ctx context.Context) error {
		err := classActor.EnrollStudent(ctx, studentID)
		if appErrors.Is(err, appErrors.ErrCapacityExceeded) {
			return retry.Permanent(err)
		}
		return err
	})
	switch {
	case err == nil:
	case appErrors.Is(err, appErrors.ErrCapacityExceeded):
		s.compensate(ctx, studentActor, classID)
		return nil, err
	case appErrors.Is(err, appErrors.ErrPersistence), isContextError(err):
		s.scheduleRepair(repairJobEnroll, studentID, classID)
		return nil, err
	default:
		return nil, serviceError(err, "failed to enroll student")
	}

	s.logger.Info("student enrolled", zap.String("student_id", student.ID.String()), zap.String("class_id", classID.String()))
	s.metrics.RecordEnrollment(models.EnrollmentOutcomeEnrolled)
	s.invalidateRecommendations(ctx)
	return s.result(ctx, classActor, studentID, models.EnrollmentOutcomeEnrolled)
}

// Unenroll removes the student from the class on both sides. Removing a
// missing enrollment succeeds without writing.
func (s *EnrollmentService) Unenroll(ctx context.Context, rawStudentID, rawClassID string) (*models.EnrollmentResult, error) {
	studentID, classID, err := parsePair(rawStudentID, rawClassID)
	if err != nil {
		return nil, err
	}
	studentActor := s.rt.Student(studentID)
	classActor := s.rt.Class(classID)
	if _, _, err := s.loadPair(ctx, studentActor, classActor); err != nil {
		return nil, err
	}

	if err := studentActor.UnenrollFromClass(ctx, classID); err != nil {
		if isContextError(err) {
			s.scheduleRepair(repairJobUnenroll, studentID, classID)
			return nil, err
		}
		return nil, serviceError(err, "failed to unenroll student")
	}
	err = s.retrier.Do(ctx, func(ctx context.Context) error {
		return classActor.UnenrollStudent(ctx, studentID)
	})
	if err != nil {
		if appErrors.Is(err, appErrors.ErrPersistence) || isContextError(err) {
			s.scheduleRepair(repairJobUnenroll, studentID, classID)
			return nil, err
		}
		return nil, serviceError(err, "failed to unenroll student")
	}

	s.metrics.RecordEnrollment(models.EnrollmentOutcomeUnenrolled)
	s.invalidateRecommendations(ctx)
	return s.result(ctx, classActor, studentID, models.EnrollmentOutcomeUnenrolled)
}

// isContextError reports a caller that gave up while a step may still be
// applied by the actor.
func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func parsePair(rawStudentID, rawClassID string) (uuid.UUID, uuid.UUID, error) {
	studentID, err := parseID(rawStudentID, "student id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	classID, err := parseID(rawClassID, "class id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return studentID, classID, nil
}

func (s *EnrollmentService) loadPair(ctx context.Context, studentActor actor.StudentActor, classActor actor.ClassActor) (models.Student, models.Class, error) {
	student, err := studentActor.Get(ctx)
	if err != nil {
		return models.Student{}, models.Class{}, serviceError(err, "failed to load student")
	}
	if !student.Exists() {
		return models.Student{}, models.Class{}, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	class, err := classActor.Get(ctx)
	if err != nil {
		return models.Student{}, models.Class{}, serviceError(err, "failed to load class")
	}
	if !class.Exists() {
		return models.Student{}, models.Class{}, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	return student, class, nil
}

// compensate drops the student-side enrollment after the class side refused
// the student.
func (s *EnrollmentService) compensate(ctx context.Context, studentActor actor.StudentActor, classID uuid.UUID) {
	s.logger.Warn("class filled concurrently, compensating student enrollment",
		zap.String("student_id", studentActor.ID().String()), zap.String("class_id", classID.String()))
	if err := studentActor.UnenrollFromClass(context.WithoutCancel(ctx), classID); err != nil {
		s.logger.Error("compensation failed", zap.String("student_id", studentActor.ID().String()), zap.String("class_id", classID.String()), zap.Error(err))
		return
	}
	s.metrics.RecordEnrollment(models.EnrollmentOutcomeCompensated)
}

// scheduleRepair queues the class-side step for background retry.
func (s *EnrollmentService) scheduleRepair(jobType string, studentID, classID uuid.UUID) {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobType,
		Payload: enrollmentRepair{StudentID: studentID, ClassID: classID},
	}
	if err := s.repairs.Enqueue(job); err != nil {
		s.logger.Error("failed to schedule enrollment repair", zap.String("type", jobType), zap.Error(err))
		return
	}
	s.logger.Warn("class step deferred to repair queue", zap.String("type", jobType),
		zap.String("student_id", studentID.String()), zap.String("class_id", classID.String()))
	s.metrics.RecordEnrollment(models.EnrollmentOutcomeDeferred)
}

// handleRepair re-applies the class step only while the student side still
// agrees with it, so a later opposite operation wins.
func (s *EnrollmentService) handleRepair(ctx context.Context, job jobs.Job) error {
	repair, ok := job.Payload.(enrollmentRepair)
	if !ok {
		s.logger.Error("unexpected repair payload", zap.String("job_id", job.ID))
		return nil
	}
	studentActor := s.rt.Student(repair.StudentID)
	classActor := s.rt.Class(repair.ClassID)
	classIDs, err := studentActor.EnrolledClassIDs(ctx)
	if err != nil {
		return err
	}
	listed := models.ContainsID(classIDs, repair.ClassID)

	switch job.Type {
	case repairJobEnroll:
		if !listed {
			return nil
		}
		err := classActor.EnrollStudent(ctx, repair.StudentID)
		if appErrors.Is(err, appErrors.ErrCapacityExceeded) {
			s.compensate(ctx, studentActor, repair.ClassID)
			return nil
		}
		if err != nil {
			return err
		}
	case repairJobUnenroll:
		if listed {
			return nil
		}
		if err := classActor.UnenrollStudent(ctx, repair.StudentID); err != nil {
			return err
		}
	default:
		s.logger.Error("unknown repair job", zap.String("type", job.Type))
		return nil
	}
	s.logger.Info("enrollment repaired", zap.String("type", job.Type),
		zap.String("student_id", repair.StudentID.String()), zap.String("class_id", repair.ClassID.String()))
	s.invalidateRecommendations(ctx)
	return nil
}

func (s *EnrollmentService) result(ctx context.Context, classActor actor.ClassActor, studentID uuid.UUID, outcome models.EnrollmentOutcome) (*models.EnrollmentResult, error) {
	class, err := classActor.Get(ctx)
	if err != nil {
		return nil, serviceError(err, "failed to load class")
	}
	return &models.EnrollmentResult{
		StudentID:         studentID.String(),
		ClassID:           classActor.ID().String(),
		Outcome:           outcome,
		CurrentEnrollment: class.CurrentEnrollment,
		MaxCapacity:       class.MaxCapacity,
		ProcessedAt:       s.now().UTC(),
	}, nil
}

func (s *EnrollmentService) invalidateRecommendations(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, recommendationCachePattern); err != nil {
		s.logger.Warn("failed to invalidate recommendations", zap.Error(err))
	}
}
