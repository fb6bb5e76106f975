package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-course-api/internal/actor"
	"github.com/noah-isme/sma-course-api/internal/models"
)

const (
	seedStudents      = 5
	seedClasses       = 4
	seedClassCapacity = 30
)

// SeedService loads demo students and classes into an empty store.
type SeedService struct {
	rt          *actor.Runtime
	students    *StudentService
	classes     *ClassService
	enrollments *EnrollmentService
	logger      *zap.Logger
	now         func() time.Time
}

// NewSeedService constructs SeedService.
func NewSeedService(rt *actor.Runtime, students *StudentService, classes *ClassService, enrollments *EnrollmentService, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{rt: rt, students: students, classes: classes, enrollments: enrollments, logger: logger, now: time.Now}
}

// Seed registers the demo data and enrolls every student in every class. It
// reports false when students are already registered.
func (s *SeedService) Seed(ctx context.Context) (bool, error) {
	existing, err := s.rt.StudentRegistry().List(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		s.logger.Info("seed skipped, students already registered", zap.Int("students", len(existing)))
		return false, nil
	}
	now := s.now().UTC()

	studentIDs := make([]string, 0, seedStudents)
	for i := 1; i <= seedStudents; i++ {
		st, err := s.students.Create(ctx, CreateStudentRequest{
			FirstName:   fmt.Sprintf("Student%d", i),
			LastName:    "Test",
			Email:       fmt.Sprintf("student%d@school.com", i),
			PhoneNumber: "123-456-7890",
			Address:     fmt.Sprintf("123 Street %d", i),
			DateOfBirth: now.AddDate(-20, 0, i),
		})
		if err != nil {
			return false, fmt.Errorf("seed student %d: %w", i, err)
		}
		studentIDs = append(studentIDs, st.ID.String())
	}

	classIDs := make([]string, 0, seedClasses)
	for i := 1; i <= seedClasses; i++ {
		c, err := s.classes.Create(ctx, CreateClassRequest{
			Name:           fmt.Sprintf("Class %d", i),
			Description:    fmt.Sprintf("This is the description for Class %d", i),
			InstructorName: fmt.Sprintf("Instructor %d", i),
			StartDate:      now,
			EndDate:        now.AddDate(0, 1, 0),
			MaxCapacity:    seedClassCapacity,
			Category:       string(models.ClassCategoryComputerScience),
		})
		if err != nil {
			return false, fmt.Errorf("seed class %d: %w", i, err)
		}
		classIDs = append(classIDs, c.ID.String())
	}

	for _, studentID := range studentIDs {
		for _, classID := range classIDs {
			if _, err := s.enrollments.Enroll(ctx, studentID, classID); err != nil {
				return false, fmt.Errorf("seed enrollment %s/%s: %w", studentID, classID, err)
			}
		}
	}
	s.logger.Info("demo data seeded", zap.Int("students", len(studentIDs)), zap.Int("classes", len(classIDs)))
	return true, nil
}
