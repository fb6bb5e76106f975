package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-course-api/internal/actor"
	"github.com/noah-isme/sma-course-api/internal/models"
	"github.com/noah-isme/sma-course-api/internal/repository"
	"github.com/noah-isme/sma-course-api/internal/scoring"
	"github.com/noah-isme/sma-course-api/pkg/jobs"
)

// faultyStore fails the next failures writes to failPartition.
type faultyStore struct {
	*repository.MemoryStateRepository
	failPartition atomic.Value
	failures      atomic.Int64
	writes        atomic.Int64
	afterWrite    atomic.Pointer[func(partition string)]
}

func newFaultyStore() *faultyStore {
	s := &faultyStore{MemoryStateRepository: repository.NewMemoryStateRepository()}
	s.failPartition.Store("")
	return s
}

func (s *faultyStore) failNext(partition string, n int64) {
	s.failPartition.Store(partition)
	s.failures.Store(n)
}

func (s *faultyStore) WriteState(ctx context.Context, partition, key string, payload []byte) error {
	if partition == s.failPartition.Load().(string) && s.failures.Add(-1) >= 0 {
		return errors.New("connection reset")
	}
	s.writes.Add(1)
	if err := s.MemoryStateRepository.WriteState(ctx, partition, key, payload); err != nil {
		return err
	}
	if hook := s.afterWrite.Load(); hook != nil {
		(*hook)(partition)
	}
	return nil
}

func (s *faultyStore) onWrite(hook func(partition string)) {
	s.afterWrite.Store(&hook)
}

type testEnv struct {
	store         *faultyStore
	rt            *actor.Runtime
	metrics       *MetricsService
	cache         *CacheService
	students      *StudentService
	classes       *ClassService
	grades        *GradeService
	performance   *PerformanceService
	enrollments   *EnrollmentService
	users         *UserService
	notifications *NotificationService
	analytics     *AnalyticsService
}

type envOption func(*envConfig)

type envConfig struct {
	cache *CacheService
	model *scoring.Model
}

func withCache(cache *CacheService) envOption {
	return func(c *envConfig) { c.cache = cache }
}

func withModel(model *scoring.Model) envOption {
	return func(c *envConfig) { c.model = model }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	var cfg envConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	store := newFaultyStore()
	metrics := NewMetricsService()
	rt := actor.NewRuntime(NewInstrumentedStateStore(store, "memory", metrics), actor.Config{
		IdleTimeout: time.Minute,
		Observer:    metrics,
	})
	validate := validator.New()
	logger := zap.NewNop()
	scorer := scoring.NewScorer(cfg.model, metrics, logger)
	performance := NewPerformanceService(rt, scorer, validate, logger)
	enrollments := NewEnrollmentService(rt, cfg.cache, metrics, EnrollmentConfig{
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
		RepairWorkers: 1,
		RepairRetries: 20,
		RepairDelay:   5 * time.Millisecond,
	}, logger)
	ctx, cancel := context.WithCancel(context.Background())
	enrollments.Start(ctx)

	t.Cleanup(func() {
		cancel()
		enrollments.Stop()
		closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second)
		defer closeCancel()
		_ = rt.Close(closeCtx)
	})

	return &testEnv{
		store:         store,
		rt:            rt,
		metrics:       metrics,
		cache:         cfg.cache,
		students:      NewStudentService(rt, cfg.cache, validate, logger),
		classes:       NewClassService(rt, cfg.cache, validate, logger),
		grades:        NewGradeService(rt, performance, validate, logger),
		performance:   performance,
		enrollments:   enrollments,
		users:         NewUserService(rt, validate, logger),
		notifications: NewNotificationService(rt, validate, logger),
		analytics:     NewAnalyticsService(rt, performance, cfg.cache, metrics, 0, logger),
	}
}

func (e *testEnv) student(t *testing.T, first string) models.Student {
	t.Helper()
	st, err := e.students.Create(context.Background(), CreateStudentRequest{FirstName: first, LastName: "Test", Email: first + "@school.com"})
	require.NoError(t, err)
	return *st
}

func (e *testEnv) class(t *testing.T, name string, capacity int) models.Class {
	t.Helper()
	c, err := e.classes.Create(context.Background(), CreateClassRequest{Name: name, MaxCapacity: capacity})
	require.NoError(t, err)
	return *c
}

func (e *testEnv) enroll(t *testing.T, studentID, classID uuid.UUID) {
	t.Helper()
	_, err := e.enrollments.Enroll(context.Background(), studentID.String(), classID.String())
	require.NoError(t, err)
}

func jobsJob(jobType string, studentID, classID uuid.UUID) jobs.Job {
	return jobs.Job{ID: uuid.NewString(), Type: jobType, Payload: enrollmentRepair{StudentID: studentID, ClassID: classID}}
}
