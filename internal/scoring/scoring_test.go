package scoring

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-course-api/internal/models"
)

type countingRecorder struct{ kinds []string }

func (r *countingRecorder) RecordScoringFallback(kind string) { r.kinds = append(r.kinds, kind) }

var day0 = time.Date(2024, 9, 1, 9, 0, 0, 0, time.UTC)

func grade(pct float64, kind string, daysAfter, week int) models.Grade {
	return models.Grade{
		ID:             uuid.New(),
		Score:          pct,
		MaxScore:       100,
		AssignmentType: kind,
		DateRecorded:   day0.AddDate(0, 0, daysAfter),
		SemesterWeek:   week,
	}
}

func TestAtRiskFallback(t *testing.T) {
	rec := &countingRecorder{}
	s := NewScorer(nil, rec, nil)

	risk, p := s.PredictAtRisk(AtRiskFeatures{CurrentAverage: 55, AttendanceRate: 80, AssignmentCount: 3})
	assert.True(t, risk)
	assert.Equal(t, 0.7, p)

	risk, p = s.PredictAtRisk(AtRiskFeatures{CurrentAverage: 75, AttendanceRate: 95, AssignmentCount: 3})
	assert.False(t, risk)
	assert.Equal(t, 0.3, p)

	risk, p = s.PredictAtRisk(AtRiskFeatures{CurrentAverage: 90, AttendanceRate: 65})
	assert.True(t, risk)
	assert.Equal(t, 0.7, p)

	assert.Equal(t, []string{"at_risk", "at_risk", "at_risk"}, rec.kinds)
	assert.False(t, s.HasModel())
}

func TestAtRiskWithModel(t *testing.T) {
	s := NewScorer(&Model{AtRisk: &Coefficients{
		Intercept: 6,
		Weights:   map[string]float64{"current_average": -0.1},
	}}, nil, nil)

	risk, p := s.PredictAtRisk(AtRiskFeatures{})
	assert.False(t, risk)
	assert.Equal(t, 0.0, p)

	risk, p = s.PredictAtRisk(AtRiskFeatures{AssignmentCount: 2, CurrentAverage: 40})
	assert.True(t, risk)
	assert.InDelta(t, 0.8808, p, 1e-4)

	risk, p = s.PredictAtRisk(AtRiskFeatures{AssignmentCount: 2, CurrentAverage: 90})
	assert.False(t, risk)
	assert.Less(t, p, 0.5)
}

func TestFinalGradePrediction(t *testing.T) {
	grades := []models.Grade{grade(80, models.AssignmentQuiz, 0, 1), grade(90, models.AssignmentQuiz, 1, 2), grade(70, models.AssignmentHomework, 2, 3)}

	fallback := NewScorer(nil, nil, nil)
	assert.InDelta(t, 80.0, fallback.PredictFinalGrade(FinalGradeFeatures{AssignmentCount: 3}, grades), 1e-9)
	assert.Equal(t, 0.0, fallback.PredictFinalGrade(FinalGradeFeatures{}, nil))

	model := NewScorer(&Model{FinalGrade: &Coefficients{
		Intercept: 10,
		Weights:   map[string]float64{"current_average": 1.2},
	}}, nil, nil)
	assert.Equal(t, 100.0, model.PredictFinalGrade(FinalGradeFeatures{AssignmentCount: 3, CurrentAverage: 95}, grades))
	assert.InDelta(t, 70.0, model.PredictFinalGrade(FinalGradeFeatures{AssignmentCount: 3, CurrentAverage: 50}, grades), 1e-9)
	assert.Equal(t, 0.0, model.PredictFinalGrade(FinalGradeFeatures{}, nil))
}

func TestBuildFeatures(t *testing.T) {
	grades := []models.Grade{
		grade(50, models.AssignmentHomework, 0, 1),
		grade(70, models.AssignmentMidterm, 10, 6),
		grade(90, models.AssignmentQuiz, 20, 8),
		grade(30, models.AssignmentMidterm, 25, 9),
		grade(100, models.AssignmentHomework, 30, 10),
	}
	perf := models.StudentPerformance{CurrentAverage: 68, AttendanceRate: 90, AssignmentCompletionRate: 75}

	risk := BuildAtRiskFeatures(perf, grades, day0.AddDate(0, 0, 37))
	assert.Equal(t, 5, risk.AssignmentCount)
	assert.Equal(t, 7, risk.DaysSinceLastGraded)
	assert.InDelta(t, 0.4, risk.FractionBelow60, 1e-9)
	// recent (90, 30, 100) minus older (50, 70)
	assert.InDelta(t, 220.0/3-60, risk.RecentTrend, 1e-9)
	assert.Equal(t, 90.0, risk.AttendanceRate)

	final := BuildFinalGradeFeatures(perf, grades)
	assert.Equal(t, 70.0, final.MidtermScore)
	assert.Equal(t, 75.0, final.HomeworkAverage)
	assert.Equal(t, 90.0, final.QuizAverage)
	assert.Equal(t, 10, final.SemesterWeek)
}

func TestFeatureEdgeCases(t *testing.T) {
	assert.Equal(t, 0.0, RecentTrend(nil))
	assert.Equal(t, 0.0, RecentTrend([]models.Grade{grade(10, "Lab", 0, 1)}))
	assert.Equal(t, 0.0, RecentTrend([]models.Grade{grade(10, "Lab", 0, 1), grade(90, "Lab", 1, 1)}))
	assert.Equal(t, NoGradesDays, DaysSinceLastGraded(nil, day0))

	empty := BuildAtRiskFeatures(models.StudentPerformance{}, nil, day0)
	assert.Equal(t, 0.0, empty.FractionBelow60)
	final := BuildFinalGradeFeatures(models.StudentPerformance{}, nil)
	assert.Equal(t, 0.0, final.HomeworkAverage)
	assert.Equal(t, 0.0, final.QuizAverage)
}

func TestAverage(t *testing.T) {
	grades := []models.Grade{grade(80, "", 0, 0), grade(90, "", 0, 0), grade(70, "", 0, 0)}
	assert.Equal(t, 80.0, Average(grades))
	assert.Equal(t, 0.0, Average(nil))
}

func TestLoadModel(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"at_risk":{"intercept":1,"weights":{"attendance_rate":-0.02}}}`), 0o600))
	m, err := LoadModel(good)
	require.NoError(t, err)
	require.NotNil(t, m.AtRisk)
	assert.Nil(t, m.FinalGrade)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"final_grade":{"weights":{"shoe_size":1}}}`), 0o600))
	_, err = LoadModel(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shoe_size")

	_, err = LoadModel(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestJaccard(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	assert.Equal(t, 0.0, Jaccard(nil, nil))
	assert.Equal(t, 1.0, Jaccard([]uuid.UUID{a, b}, []uuid.UUID{b, a}))
	assert.InDelta(t, 1.0/3, Jaccard([]uuid.UUID{a, b}, []uuid.UUID{b, c}), 1e-9)
}

func TestRecommendScoresSimilarPeers(t *testing.T) {
	me := uuid.New()
	shared1, shared2 := uuid.New(), uuid.New()
	target, other, unpopular := uuid.New(), uuid.New(), uuid.New()
	mine := []uuid.UUID{shared1, shared2}

	peers := []Peer{
		{StudentID: me, ClassIDs: mine},
		{StudentID: uuid.New(), ClassIDs: []uuid.UUID{shared1, shared2, target}},
		{StudentID: uuid.New(), ClassIDs: []uuid.UUID{shared1, shared2, target, other}},
		{StudentID: uuid.New(), ClassIDs: []uuid.UUID{shared1, shared2}},
		{StudentID: uuid.New(), ClassIDs: []uuid.UUID{shared1, shared2, other}},
		// not similar: 1/4 overlap
		{StudentID: uuid.New(), ClassIDs: []uuid.UUID{shared1, unpopular, uuid.New()}},
	}
	candidates := []Candidate{
		{ClassID: shared1, Name: "Taken"},
		{ClassID: target, Name: "Biology"},
		{ClassID: other, Name: "Astronomy"},
		{ClassID: unpopular, Name: "Knitting"},
	}

	recs := Recommend(me, mine, peers, candidates, 0)
	require.Len(t, recs, 2)
	// 2 of 4 similar peers each; tie broken by name
	assert.Equal(t, other, recs[0].ClassID)
	assert.Equal(t, target, recs[1].ClassID)
	assert.Equal(t, 0.5, recs[0].RecommendationScore)
	assert.Equal(t, 0.5, recs[1].RecommendationScore)
	assert.NotEmpty(t, recs[0].Reason)

	top := Recommend(me, mine, peers, candidates, 1)
	assert.Len(t, top, 1)
}

func TestRecommendThresholdIsStrict(t *testing.T) {
	me := uuid.New()
	a, b, c, extra := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	mine := []uuid.UUID{a, b, c}
	// 3 shared out of a union of 10
	peer := []uuid.UUID{a, b, c, extra, uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	require.Equal(t, 0.3, Jaccard(mine, peer))

	recs := Recommend(me, mine, []Peer{{StudentID: uuid.New(), ClassIDs: peer}}, []Candidate{{ClassID: extra, Name: "Extra"}}, 10)
	assert.Empty(t, recs)
}
