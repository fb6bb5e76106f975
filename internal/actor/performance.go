package actor

import (
	"context"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-course-api/internal/models"
)

// PerformanceActor addresses the performance record of one (student, class)
// pair. During Modify it may call grade actors and nothing else.
type PerformanceActor struct {
	rt        *Runtime
	studentID uuid.UUID
	classID   uuid.UUID
	key       string
}

// Performance returns the actor for the pair.
func (r *Runtime) Performance(studentID, classID uuid.UUID) PerformanceActor {
	return PerformanceActor{
		rt:        r,
		studentID: studentID,
		classID:   classID,
		key:       PerformanceKey(studentID, classID).String(),
	}
}

// Key returns the composite actor key.
func (a PerformanceActor) Key() string { return a.key }

func (a PerformanceActor) stamp(p models.StudentPerformance) models.StudentPerformance {
	p.StudentID = a.studentID
	p.ClassID = a.classID
	return p
}

func performanceCall[R any](ctx context.Context, a PerformanceActor, fn func(ctx context.Context, p models.StudentPerformance) (R, error)) (R, error) {
	return call(ctx, a.rt, KindPerformance, a.key, func(ctx context.Context, cell *Cell[models.StudentPerformance]) (R, error) {
		p, err := cell.Load(ctx)
		if err != nil {
			var zero R
			return zero, err
		}
		return fn(ctx, p)
	})
}

// Get returns the record, zero valued when never written.
func (a PerformanceActor) Get(ctx context.Context) (models.StudentPerformance, error) {
	return performanceCall(ctx, a, func(ctx context.Context, p models.StudentPerformance) (models.StudentPerformance, error) {
		return p.Clone(), nil
	})
}

// Set replaces the record.
func (a PerformanceActor) Set(ctx context.Context, perf models.StudentPerformance) error {
	perf = a.stamp(perf.Clone())
	perf.GradeIDs = models.UniqueIDs(perf.GradeIDs)
	return exec(ctx, a.rt, KindPerformance, a.key, func(ctx context.Context, cell *Cell[models.StudentPerformance]) error {
		return cell.Write(ctx, perf)
	})
}

// Modify runs fn on a copy of the record within one turn and persists the
// result unless fn fails.
func (a PerformanceActor) Modify(ctx context.Context, fn func(ctx context.Context, perf *models.StudentPerformance) error) (models.StudentPerformance, error) {
	return call(ctx, a.rt, KindPerformance, a.key, func(ctx context.Context, cell *Cell[models.StudentPerformance]) (models.StudentPerformance, error) {
		p, err := cell.Load(ctx)
		if err != nil {
			return models.StudentPerformance{}, err
		}
		next := a.stamp(p.Clone())
		if err := fn(ctx, &next); err != nil {
			return models.StudentPerformance{}, err
		}
		next = a.stamp(next)
		if err := cell.Write(ctx, next); err != nil {
			return models.StudentPerformance{}, err
		}
		return next.Clone(), nil
	})
}

// UpdateRates sets attendance and completion percentages.
func (a PerformanceActor) UpdateRates(ctx context.Context, attendance, completion int) (models.StudentPerformance, error) {
	return a.Modify(ctx, func(_ context.Context, perf *models.StudentPerformance) error {
		perf.AttendanceRate = attendance
		perf.AssignmentCompletionRate = completion
		return nil
	})
}

// AddGrade appends gradeID. It reports false, without writing, when the id
// is already referenced.
func (a PerformanceActor) AddGrade(ctx context.Context, gradeID uuid.UUID) (bool, error) {
	return call(ctx, a.rt, KindPerformance, a.key, func(ctx context.Context, cell *Cell[models.StudentPerformance]) (bool, error) {
		p, err := cell.Load(ctx)
		if err != nil || models.ContainsID(p.GradeIDs, gradeID) {
			return false, err
		}
		p = a.stamp(p.Clone())
		p.GradeIDs = append(p.GradeIDs, gradeID)
		if err := cell.Write(ctx, p); err != nil {
			return false, err
		}
		return true, nil
	})
}

// RemoveGrade drops gradeID. It reports false when the id was not present.
func (a PerformanceActor) RemoveGrade(ctx context.Context, gradeID uuid.UUID) (bool, error) {
	return call(ctx, a.rt, KindPerformance, a.key, func(ctx context.Context, cell *Cell[models.StudentPerformance]) (bool, error) {
		p, err := cell.Load(ctx)
		if err != nil {
			return false, err
		}
		ids, removed := models.RemoveID(p.GradeIDs, gradeID)
		if !removed {
			return false, nil
		}
		p = a.stamp(p.Clone())
		p.GradeIDs = ids
		if err := cell.Write(ctx, p); err != nil {
			return false, err
		}
		return true, nil
	})
}

// CurrentAverage returns the stored average.
func (a PerformanceActor) CurrentAverage(ctx context.Context) (float64, error) {
	return performanceCall(ctx, a, func(_ context.Context, p models.StudentPerformance) (float64, error) {
		return p.CurrentAverage, nil
	})
}

// PredictedFinalGrade returns the stored prediction.
func (a PerformanceActor) PredictedFinalGrade(ctx context.Context) (float64, error) {
	return performanceCall(ctx, a, func(_ context.Context, p models.StudentPerformance) (float64, error) {
		return p.PredictedFinalGrade, nil
	})
}

// IsAtRisk returns the stored at-risk flag.
func (a PerformanceActor) IsAtRisk(ctx context.Context) (bool, error) {
	return performanceCall(ctx, a, func(_ context.Context, p models.StudentPerformance) (bool, error) {
		return p.IsAtRisk, nil
	})
}
