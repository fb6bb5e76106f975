package actor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-course-api/internal/models"
	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

// GradeUpdate carries the mutable fields of a grade. Student and class
// references never change after creation.
type GradeUpdate struct {
	Score          float64
	MaxScore       float64
	AssignmentType string
	DateRecorded   time.Time
	SemesterWeek   int
}

// GradeActor addresses the owner of one grade. It never calls other actors.
type GradeActor struct {
	rt *Runtime
	id uuid.UUID
}

// Grade returns the actor owning grade id.
func (r *Runtime) Grade(id uuid.UUID) GradeActor {
	return GradeActor{rt: r, id: id}
}

// ID returns the actor key.
func (a GradeActor) ID() uuid.UUID { return a.id }

// Get returns the stored grade or a zero value.
func (a GradeActor) Get(ctx context.Context) (models.Grade, error) {
	return call(ctx, a.rt, KindGrade, a.id.String(), func(ctx context.Context, cell *Cell[models.Grade]) (models.Grade, error) {
		return cell.Load(ctx)
	})
}

// Set replaces the grade.
func (a GradeActor) Set(ctx context.Context, grade models.Grade) error {
	grade.ID = a.id
	return exec(ctx, a.rt, KindGrade, a.id.String(), func(ctx context.Context, cell *Cell[models.Grade]) error {
		return cell.Write(ctx, grade)
	})
}

// Update rewrites score fields of an existing grade.
func (a GradeActor) Update(ctx context.Context, upd GradeUpdate) (models.Grade, error) {
	return call(ctx, a.rt, KindGrade, a.id.String(), func(ctx context.Context, cell *Cell[models.Grade]) (models.Grade, error) {
		g, err := cell.Load(ctx)
		if err != nil {
			return models.Grade{}, err
		}
		if !g.Exists() {
			return models.Grade{}, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		g.Score = upd.Score
		g.MaxScore = upd.MaxScore
		g.AssignmentType = upd.AssignmentType
		g.DateRecorded = upd.DateRecorded
		g.SemesterWeek = upd.SemesterWeek
		if err := cell.Write(ctx, g); err != nil {
			return models.Grade{}, err
		}
		return g, nil
	})
}

// Delete clears the stored grade.
func (a GradeActor) Delete(ctx context.Context) error {
	return exec(ctx, a.rt, KindGrade, a.id.String(), func(ctx context.Context, cell *Cell[models.Grade]) error {
		return cell.Clear(ctx)
	})
}
