package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-course-api/internal/actor"
	"github.com/noah-isme/sma-course-api/internal/models"
	"github.com/noah-isme/sma-course-api/internal/scoring"
	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

const recommendationCachePattern = "analytics:recommendations:*"

// RecordCounter reports stored actor records per kind.
type RecordCounter interface {
	CountByPartition(ctx context.Context) (map[string]int, error)
}

// AnalyticsService provides class-level scoring and recommendations with
// cache integration.
type AnalyticsService struct {
	rt          *actor.Runtime
	performance *PerformanceService
	cache       *CacheService
	metrics     *MetricsService
	records     RecordCounter
	topN        int
	logger      *zap.Logger
	now         func() time.Time
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(rt *actor.Runtime, performance *PerformanceService, cache *CacheService, metrics *MetricsService, topN int, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topN <= 0 {
		topN = scoring.DefaultTopN
	}
	return &AnalyticsService{rt: rt, performance: performance, cache: cache, metrics: metrics, topN: topN, logger: logger, now: time.Now}
}

type rosterScore struct {
	student models.Student
	perf    models.StudentPerformance
}

// AtRisk returns the at-risk students of a class, most likely first.
// Students without a performance record are not scored.
func (s *AnalyticsService) AtRisk(ctx context.Context, rawClassID string) ([]models.AtRiskStudent, error) {
	class, scores, err := s.scoreRoster(ctx, rawClassID)
	if err != nil {
		return nil, err
	}
	result := make([]models.AtRiskStudent, 0, len(scores))
	for _, sc := range scores {
		if !sc.perf.IsAtRisk {
			continue
		}
		result = append(result, models.AtRiskStudent{
			StudentID:   sc.student.ID,
			StudentName: sc.student.FullName(),
			Probability: sc.perf.AtRiskProbability,
			Average:     sc.perf.CurrentAverage,
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Probability != result[j].Probability {
			return result[i].Probability > result[j].Probability
		}
		return result[i].StudentName < result[j].StudentName
	})
	s.logger.Debug("at-risk students computed", zap.String("class_id", class.ID.String()), zap.Int("count", len(result)))
	return result, nil
}

// ClassSummary aggregates enrollment and scores of a class.
func (s *AnalyticsService) ClassSummary(ctx context.Context, rawClassID string) (*models.ClassAnalytics, error) {
	class, scores, err := s.scoreRoster(ctx, rawClassID)
	if err != nil {
		return nil, err
	}
	summary := &models.ClassAnalytics{
		ClassID:     class.ID.String(),
		ClassName:   class.Name,
		Enrolled:    class.CurrentEnrollment,
		Capacity:    class.MaxCapacity,
		GeneratedAt: s.now().UTC(),
	}
	var averageSum, predictedSum float64
	for _, sc := range scores {
		if sc.perf.IsAtRisk {
			summary.AtRiskCount++
		}
		if len(sc.perf.GradeIDs) == 0 {
			continue
		}
		summary.GradedStudents++
		averageSum += sc.perf.CurrentAverage
		predictedSum += sc.perf.PredictedFinalGrade
	}
	if summary.GradedStudents > 0 {
		summary.AverageScore = averageSum / float64(summary.GradedStudents)
		summary.AveragePredicted = predictedSum / float64(summary.GradedStudents)
	}
	return summary, nil
}

// Recommendations ranks active classes for a student. The boolean indicates
// whether data originated from cache.
func (s *AnalyticsService) Recommendations(ctx context.Context, rawStudentID string, topN int) ([]models.ClassRecommendation, bool, error) {
	studentID, err := parseID(rawStudentID, "student id")
	if err != nil {
		return nil, false, err
	}
	if topN <= 0 {
		topN = s.topN
	}
	cacheKey := makeAnalyticsCacheKey("recommendations", studentID.String(), fmt.Sprintf("%d", topN))
	var cached []models.ClassRecommendation
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		s.logger.Warn("recommendation cache unavailable", zap.Error(err))
	} else if hit {
		return cached, true, nil
	}

	student, err := s.rt.Student(studentID).Get(ctx)
	if err != nil {
		return nil, false, serviceError(err, "failed to load student")
	}
	if !student.Exists() {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	var (
		candidates []scoring.Candidate
		peers      []scoring.Peer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		candidates, err = s.candidates(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		peers, err = s.peers(gctx, studentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, serviceError(err, "failed to compute recommendations")
	}

	recs := scoring.Recommend(studentID, student.EnrolledClassIDs, peers, candidates, topN)
	if err := s.cache.Set(ctx, cacheKey, recs, 0); err != nil {
		s.logger.Warn("cache recommendations", zap.Error(err))
	}
	return recs, false, nil
}

// WithRecordCounter adds per-kind record totals to the system snapshot.
func (s *AnalyticsService) WithRecordCounter(counter RecordCounter) *AnalyticsService {
	s.records = counter
	return s
}

// SystemMetrics returns the current instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics(ctx context.Context) models.AnalyticsSystemMetrics {
	snapshot := s.metrics.Snapshot()
	snapshot.ActiveActivations = s.rt.Active()
	snapshot.ScoringModelLoaded = s.performance.ModelLoaded()
	if s.records != nil {
		counts, err := s.records.CountByPartition(ctx)
		if err != nil {
			s.logger.Warn("count stored records", zap.Error(err))
		} else {
			snapshot.StoredRecords = counts
		}
	}
	return snapshot
}

func (s *AnalyticsService) scoreRoster(ctx context.Context, rawClassID string) (models.Class, []rosterScore, error) {
	classID, err := parseID(rawClassID, "class id")
	if err != nil {
		return models.Class{}, nil, err
	}
	class, err := s.rt.Class(classID).Get(ctx)
	if err != nil {
		return models.Class{}, nil, serviceError(err, "failed to load class")
	}
	if !class.Exists() {
		return models.Class{}, nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}

	students, err := fetchStudents(ctx, s.rt, class.EnrolledStudentIDs)
	if err != nil {
		return models.Class{}, nil, serviceError(err, "failed to load roster")
	}
	scored := make([]*rosterScore, len(students))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, student := range students {
		g.Go(func() error {
			perf, ok, err := s.performance.Evaluate(gctx, student.ID, classID)
			if err != nil || !ok {
				return err
			}
			scored[i] = &rosterScore{student: student, perf: perf}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.Class{}, nil, serviceError(err, "failed to score roster")
	}
	scores := make([]rosterScore, 0, len(scored))
	for _, sc := range scored {
		if sc != nil {
			scores = append(scores, *sc)
		}
	}
	return class, scores, nil
}

func (s *AnalyticsService) candidates(ctx context.Context) ([]scoring.Candidate, error) {
	ids, err := s.rt.ClassCatalog().List(ctx)
	if err != nil {
		return nil, err
	}
	classes, err := fetchClasses(ctx, s.rt, ids)
	if err != nil {
		return nil, err
	}
	candidates := make([]scoring.Candidate, 0, len(classes))
	for _, c := range classes {
		if c.IsActive {
			candidates = append(candidates, scoring.Candidate{ClassID: c.ID, Name: c.Name})
		}
	}
	return candidates, nil
}

func (s *AnalyticsService) peers(ctx context.Context, studentID uuid.UUID) ([]scoring.Peer, error) {
	ids, err := s.rt.StudentRegistry().List(ctx)
	if err != nil {
		return nil, err
	}
	others := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != studentID {
			others = append(others, id)
		}
	}
	students, err := fetchStudents(ctx, s.rt, others)
	if err != nil {
		return nil, err
	}
	peers := make([]scoring.Peer, 0, len(students))
	for _, st := range students {
		peers = append(peers, scoring.Peer{StudentID: st.ID, ClassIDs: st.EnrolledClassIDs})
	}
	return peers, nil
}

func makeAnalyticsCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("analytics")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}
