package scoring

import (
	"math"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-course-api/internal/models"
)

// Fallback thresholds and confidences of the rule-based at-risk score.
const (
	AtRiskAverageThreshold    = 60.0
	AtRiskAttendanceThreshold = 70.0
	AtRiskFallbackProbability = 0.7
	SafeFallbackProbability   = 0.3
)

// FallbackRecorder counts scores produced without a trained model.
type FallbackRecorder interface {
	RecordScoringFallback(kind string)
}

// Scorer applies trained coefficients when present and the documented rules
// otherwise. It never fails.
type Scorer struct {
	model    *Model
	recorder FallbackRecorder
	logger   *zap.Logger
}

// NewScorer builds a scorer. model and recorder may be nil.
func NewScorer(model *Model, recorder FallbackRecorder, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if model == nil {
		model = &Model{}
	}
	return &Scorer{model: model, recorder: recorder, logger: logger}
}

// HasModel reports whether any trained coefficients are loaded.
func (s *Scorer) HasModel() bool {
	return s.model.AtRisk != nil || s.model.FinalGrade != nil
}

func (s *Scorer) fallback(kind string) {
	if s.recorder != nil {
		s.recorder.RecordScoringFallback(kind)
	}
}

// PredictAtRisk classifies a student. With a model, a pair without grades
// is never at risk and a probability above 0.5 means at risk.
func (s *Scorer) PredictAtRisk(f AtRiskFeatures) (bool, float64) {
	if s.model.AtRisk == nil {
		s.fallback("at_risk")
		atRisk := f.CurrentAverage < AtRiskAverageThreshold || f.AttendanceRate < AtRiskAttendanceThreshold
		if atRisk {
			return true, AtRiskFallbackProbability
		}
		return false, SafeFallbackProbability
	}
	if f.AssignmentCount == 0 {
		return false, 0
	}
	p := sigmoid(s.model.AtRisk.apply(f.Vector()))
	if math.IsNaN(p) {
		s.logger.Warn("at-risk model produced NaN", zap.Any("features", f))
		return false, 0
	}
	return p > 0.5, p
}

// PredictFinalGrade estimates the final percentage, clamped to [0, 100].
// Without a model it is the mean of the recorded percentages.
func (s *Scorer) PredictFinalGrade(f FinalGradeFeatures, grades []models.Grade) float64 {
	if s.model.FinalGrade == nil {
		s.fallback("final_grade")
		return clamp(Average(grades))
	}
	if f.AssignmentCount == 0 {
		return 0
	}
	predicted := s.model.FinalGrade.apply(f.Vector())
	if math.IsNaN(predicted) {
		return clamp(f.CurrentAverage)
	}
	return clamp(predicted)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
