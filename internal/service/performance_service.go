package service

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-course-api/internal/actor"
	"github.com/noah-isme/sma-course-api/internal/models"
	"github.com/noah-isme/sma-course-api/internal/scoring"
	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

// UpdateRatesRequest carries attendance and completion percentages.
type UpdateRatesRequest struct {
	AttendanceRate           int `json:"attendance_rate" validate:"gte=0,lte=100"`
	AssignmentCompletionRate int `json:"assignment_completion_rate" validate:"gte=0,lte=100"`
}

// PerformanceService derives StudentPerformance records from the grades
// they reference and scores them.
type PerformanceService struct {
	rt        *actor.Runtime
	scorer    *scoring.Scorer
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewPerformanceService constructs PerformanceService.
func NewPerformanceService(rt *actor.Runtime, scorer *scoring.Scorer, validate *validator.Validate, logger *zap.Logger) *PerformanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if scorer == nil {
		scorer = scoring.NewScorer(nil, nil, logger)
	}
	return &PerformanceService{rt: rt, scorer: scorer, validator: validate, logger: logger, now: time.Now}
}

// ModelLoaded reports whether scoring uses trained coefficients.
func (s *PerformanceService) ModelLoaded() bool {
	return s.scorer.HasModel()
}

// Get returns the stored record of a pair.
func (s *PerformanceService) Get(ctx context.Context, rawStudentID, rawClassID string) (*models.StudentPerformance, error) {
	studentID, classID, err := parsePair(rawStudentID, rawClassID)
	if err != nil {
		return nil, err
	}
	perf, err := s.rt.Performance(studentID, classID).Get(ctx)
	if err != nil {
		return nil, serviceError(err, "failed to load performance")
	}
	if !perf.Exists() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "performance record not found")
	}
	return &perf, nil
}

// Refresh recomputes the pair's average and scores from its grades.
func (s *PerformanceService) Refresh(ctx context.Context, rawStudentID, rawClassID string) (*models.StudentPerformance, error) {
	studentID, classID, err := parsePair(rawStudentID, rawClassID)
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, studentID, classID)
}

// UpdateRates stores attendance and completion and rescores the pair.
func (s *PerformanceService) UpdateRates(ctx context.Context, rawStudentID, rawClassID string, req UpdateRatesRequest) (*models.StudentPerformance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid performance rates")
	}
	studentID, classID, err := parsePair(rawStudentID, rawClassID)
	if err != nil {
		return nil, err
	}
	if _, err := s.rt.Performance(studentID, classID).UpdateRates(ctx, req.AttendanceRate, req.AssignmentCompletionRate); err != nil {
		return nil, serviceError(err, "failed to update performance rates")
	}
	return s.refresh(ctx, studentID, classID)
}

// StudentGrades lists the grades referenced by the pair, oldest first.
func (s *PerformanceService) StudentGrades(ctx context.Context, rawStudentID, rawClassID string) ([]models.Grade, error) {
	studentID, classID, err := parsePair(rawStudentID, rawClassID)
	if err != nil {
		return nil, err
	}
	perf, err := s.rt.Performance(studentID, classID).Get(ctx)
	if err != nil {
		return nil, serviceError(err, "failed to load performance")
	}
	grades, _, err := s.collect(ctx, studentID, classID, perf.GradeIDs)
	if err != nil {
		return nil, serviceError(err, "failed to load grades")
	}
	sort.SliceStable(grades, func(i, j int) bool {
		return grades[i].DateRecorded.Before(grades[j].DateRecorded)
	})
	return grades, nil
}

// Evaluate scores the pair from its current grades without writing. The
// bool is false when the pair has no record.
func (s *PerformanceService) Evaluate(ctx context.Context, studentID, classID uuid.UUID) (models.StudentPerformance, bool, error) {
	perf, err := s.rt.Performance(studentID, classID).Get(ctx)
	if err != nil || !perf.Exists() {
		return perf, false, err
	}
	grades, kept, err := s.collect(ctx, studentID, classID, perf.GradeIDs)
	if err != nil {
		return perf, false, err
	}
	perf.GradeIDs = kept
	s.score(&perf, grades)
	return perf, true, nil
}

func (s *PerformanceService) refresh(ctx context.Context, studentID, classID uuid.UUID) (*models.StudentPerformance, error) {
	perf, err := s.rt.Performance(studentID, classID).Modify(ctx, func(ctx context.Context, perf *models.StudentPerformance) error {
		grades, kept, err := s.collect(ctx, studentID, classID, perf.GradeIDs)
		if err != nil {
			return err
		}
		if pruned := len(perf.GradeIDs) - len(kept); pruned > 0 {
			s.logger.Debug("pruned stale grade references", zap.String("student_id", studentID.String()),
				zap.String("class_id", classID.String()), zap.Int("pruned", pruned))
		}
		perf.GradeIDs = kept
		s.score(perf, grades)
		return nil
	})
	if err != nil {
		return nil, serviceError(err, "failed to refresh performance")
	}
	return &perf, nil
}

func (s *PerformanceService) score(perf *models.StudentPerformance, grades []models.Grade) {
	now := s.now().UTC()
	perf.CurrentAverage = scoring.Average(grades)
	perf.IsAtRisk, perf.AtRiskProbability = s.scorer.PredictAtRisk(scoring.BuildAtRiskFeatures(*perf, grades, now))
	perf.PredictedFinalGrade = s.scorer.PredictFinalGrade(scoring.BuildFinalGradeFeatures(*perf, grades), grades)
	perf.LastUpdated = now
}

// collect fetches the referenced grades concurrently. Grades that are gone
// or belong to another pair are left out of both results.
func (s *PerformanceService) collect(ctx context.Context, studentID, classID uuid.UUID, ids []uuid.UUID) ([]models.Grade, []uuid.UUID, error) {
	fetched := make([]models.Grade, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, id := range ids {
		g.Go(func() error {
			grade, err := s.rt.Grade(id).Get(gctx)
			if err != nil {
				return err
			}
			fetched[i] = grade
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	grades := make([]models.Grade, 0, len(fetched))
	kept := make([]uuid.UUID, 0, len(fetched))
	for _, grade := range fetched {
		if !grade.Exists() || grade.StudentID != studentID || grade.ClassID != classID {
			continue
		}
		grades = append(grades, grade)
		kept = append(kept, grade.ID)
	}
	return grades, kept, nil
}
