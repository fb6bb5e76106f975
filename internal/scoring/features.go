// Package scoring turns performance data into at-risk, final-grade and
// recommendation scores. Every score has a rule-based fallback used when no
// trained coefficients are loaded.
package scoring

import (
	"sort"
	"time"

	"github.com/noah-isme/sma-course-api/internal/models"
)

// NoGradesDays is reported as days since last graded when nothing was graded.
const NoGradesDays = 999

// AtRiskFeatures is the input of the at-risk classifier.
type AtRiskFeatures struct {
	CurrentAverage      float64 `json:"current_average"`
	AssignmentCount     int     `json:"assignment_count"`
	AttendanceRate      float64 `json:"attendance_rate"`
	CompletionRate      float64 `json:"completion_rate"`
	RecentTrend         float64 `json:"recent_trend"`
	DaysSinceLastGraded int     `json:"days_since_last_graded"`
	FractionBelow60     float64 `json:"fraction_below_60"`
}

// Vector names each feature for coefficient lookup.
func (f AtRiskFeatures) Vector() map[string]float64 {
	return map[string]float64{
		"current_average":        f.CurrentAverage,
		"assignment_count":       float64(f.AssignmentCount),
		"attendance_rate":        f.AttendanceRate,
		"completion_rate":        f.CompletionRate,
		"recent_trend":           f.RecentTrend,
		"days_since_last_graded": float64(f.DaysSinceLastGraded),
		"fraction_below_60":      f.FractionBelow60,
	}
}

// FinalGradeFeatures is the input of the final-grade regressor.
type FinalGradeFeatures struct {
	CurrentAverage  float64 `json:"current_average"`
	AssignmentCount int     `json:"assignment_count"`
	MidtermScore    float64 `json:"midterm_score"`
	HomeworkAverage float64 `json:"homework_average"`
	QuizAverage     float64 `json:"quiz_average"`
	SemesterWeek    int     `json:"semester_week"`
	AttendanceRate  float64 `json:"attendance_rate"`
	CompletionRate  float64 `json:"completion_rate"`
}

// Vector names each feature for coefficient lookup.
func (f FinalGradeFeatures) Vector() map[string]float64 {
	return map[string]float64{
		"current_average":  f.CurrentAverage,
		"assignment_count": float64(f.AssignmentCount),
		"midterm_score":    f.MidtermScore,
		"homework_average": f.HomeworkAverage,
		"quiz_average":     f.QuizAverage,
		"semester_week":    float64(f.SemesterWeek),
		"attendance_rate":  f.AttendanceRate,
		"completion_rate":  f.CompletionRate,
	}
}

// BuildAtRiskFeatures derives classifier input for one (student, class) pair.
func BuildAtRiskFeatures(perf models.StudentPerformance, grades []models.Grade, now time.Time) AtRiskFeatures {
	below := 0
	for _, g := range grades {
		if g.Percentage() < 60 {
			below++
		}
	}
	n := len(grades)
	denom := n
	if denom < 1 {
		denom = 1
	}
	return AtRiskFeatures{
		CurrentAverage:      perf.CurrentAverage,
		AssignmentCount:     n,
		AttendanceRate:      float64(perf.AttendanceRate),
		CompletionRate:      float64(perf.AssignmentCompletionRate),
		RecentTrend:         RecentTrend(grades),
		DaysSinceLastGraded: DaysSinceLastGraded(grades, now),
		FractionBelow60:     float64(below) / float64(denom),
	}
}

// BuildFinalGradeFeatures derives regressor input for one pair.
func BuildFinalGradeFeatures(perf models.StudentPerformance, grades []models.Grade) FinalGradeFeatures {
	f := FinalGradeFeatures{
		CurrentAverage:  perf.CurrentAverage,
		AssignmentCount: len(grades),
		AttendanceRate:  float64(perf.AttendanceRate),
		CompletionRate:  float64(perf.AssignmentCompletionRate),
	}
	midtermSeen := false
	var homework, quiz []float64
	for _, g := range grades {
		switch g.AssignmentType {
		case models.AssignmentMidterm:
			if !midtermSeen {
				f.MidtermScore = g.Percentage()
				midtermSeen = true
			}
		case models.AssignmentHomework:
			homework = append(homework, g.Percentage())
		case models.AssignmentQuiz:
			quiz = append(quiz, g.Percentage())
		}
		if g.SemesterWeek > f.SemesterWeek {
			f.SemesterWeek = g.SemesterWeek
		}
	}
	f.HomeworkAverage = mean(homework)
	f.QuizAverage = mean(quiz)
	return f
}

// RecentTrend is the mean percentage of the three most recent grades minus
// the mean of all older ones. It is 0 with fewer than two grades or when no
// older grade exists.
func RecentTrend(grades []models.Grade) float64 {
	if len(grades) < 2 {
		return 0
	}
	sorted := make([]models.Grade, len(grades))
	copy(sorted, grades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DateRecorded.Before(sorted[j].DateRecorded)
	})
	recentCount := 3
	if len(sorted) < recentCount {
		recentCount = len(sorted)
	}
	older := sorted[:len(sorted)-recentCount]
	if len(older) == 0 {
		return 0
	}
	return mean(percentages(sorted[len(sorted)-recentCount:])) - mean(percentages(older))
}

// DaysSinceLastGraded counts whole days since the latest grade.
func DaysSinceLastGraded(grades []models.Grade, now time.Time) int {
	if len(grades) == 0 {
		return NoGradesDays
	}
	latest := grades[0].DateRecorded
	for _, g := range grades[1:] {
		if g.DateRecorded.After(latest) {
			latest = g.DateRecorded
		}
	}
	return int(now.Sub(latest).Hours() / 24)
}

// Average is the unweighted mean of grade percentages, 0 when empty.
func Average(grades []models.Grade) float64 {
	return mean(percentages(grades))
}

func percentages(grades []models.Grade) []float64 {
	out := make([]float64, len(grades))
	for i, g := range grades {
		out[i] = g.Percentage()
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
