package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-course-api/internal/models"
	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

// ClassUpdate carries the mutable fields of a class. Enrollment is managed
// through EnrollStudent and UnenrollStudent only.
type ClassUpdate struct {
	Name           string
	Description    string
	InstructorName string
	StartDate      time.Time
	EndDate        time.Time
	MaxCapacity    int
	IsActive       bool
	Category       models.ClassCategory
}

// ClassActor addresses the owner of one class record.
type ClassActor struct {
	rt *Runtime
	id uuid.UUID
}

// Class returns the actor owning class id.
func (r *Runtime) Class(id uuid.UUID) ClassActor {
	return ClassActor{rt: r, id: id}
}

// ID returns the actor key.
func (a ClassActor) ID() uuid.UUID { return a.id }

func classCall[R any](ctx context.Context, a ClassActor, fn func(ctx context.Context, cell *Cell[models.Class]) (R, error)) (R, error) {
	return call(ctx, a.rt, KindClass, a.id.String(), fn)
}

// Get returns the stored class or a zero value when never set.
func (a ClassActor) Get(ctx context.Context) (models.Class, error) {
	return classCall(ctx, a, func(ctx context.Context, cell *Cell[models.Class]) (models.Class, error) {
		c, err := cell.Load(ctx)
		return c.Clone(), err
	})
}

// Set replaces the class record. The enrolled set is de-duplicated and the
// enrollment count recomputed from it.
func (a ClassActor) Set(ctx context.Context, class models.Class) error {
	class = class.Clone()
	class.ID = a.id
	class.EnrolledStudentIDs = models.UniqueIDs(class.EnrolledStudentIDs)
	class.CurrentEnrollment = len(class.EnrolledStudentIDs)
	return exec(ctx, a.rt, KindClass, a.id.String(), func(ctx context.Context, cell *Cell[models.Class]) error {
		return cell.Write(ctx, class)
	})
}

// Update changes descriptive fields. It reports false when the class was
// never set.
func (a ClassActor) Update(ctx context.Context, upd ClassUpdate) (bool, error) {
	return classCall(ctx, a, func(ctx context.Context, cell *Cell[models.Class]) (bool, error) {
		c, err := cell.Load(ctx)
		if err != nil || !c.Exists() {
			return false, err
		}
		c = c.Clone()
		c.Name = upd.Name
		c.Description = upd.Description
		c.InstructorName = upd.InstructorName
		c.StartDate = upd.StartDate
		c.EndDate = upd.EndDate
		c.MaxCapacity = upd.MaxCapacity
		c.IsActive = upd.IsActive
		c.Category = upd.Category
		if err := cell.Write(ctx, c); err != nil {
			return false, err
		}
		return true, nil
	})
}

// EnrollStudent adds studentID and keeps CurrentEnrollment equal to the set
// size. A new id is rejected when the class is full; an enrolled id is a
// no-op.
func (a ClassActor) EnrollStudent(ctx context.Context, studentID uuid.UUID) error {
	return exec(ctx, a.rt, KindClass, a.id.String(), func(ctx context.Context, cell *Cell[models.Class]) error {
		c, err := cell.Load(ctx)
		if err != nil {
			return err
		}
		if models.ContainsID(c.EnrolledStudentIDs, studentID) {
			return nil
		}
		if len(c.EnrolledStudentIDs) >= c.MaxCapacity {
			return appErrors.Clone(appErrors.ErrCapacityExceeded, fmt.Sprintf("class %s is full (%d/%d)", a.id, len(c.EnrolledStudentIDs), c.MaxCapacity))
		}
		c = c.Clone()
		c.ID = a.id
		c.EnrolledStudentIDs = append(c.EnrolledStudentIDs, studentID)
		c.CurrentEnrollment = len(c.EnrolledStudentIDs)
		return cell.Write(ctx, c)
	})
}

// UnenrollStudent removes studentID. Removing an absent id is a no-op.
func (a ClassActor) UnenrollStudent(ctx context.Context, studentID uuid.UUID) error {
	return exec(ctx, a.rt, KindClass, a.id.String(), func(ctx context.Context, cell *Cell[models.Class]) error {
		c, err := cell.Load(ctx)
		if err != nil {
			return err
		}
		ids, removed := models.RemoveID(c.EnrolledStudentIDs, studentID)
		if !removed {
			return nil
		}
		c = c.Clone()
		c.EnrolledStudentIDs = ids
		c.CurrentEnrollment = len(ids)
		return cell.Write(ctx, c)
	})
}

// EnrolledStudentIDs lists the students enrolled in the class.
func (a ClassActor) EnrolledStudentIDs(ctx context.Context) ([]uuid.UUID, error) {
	return classCall(ctx, a, func(ctx context.Context, cell *Cell[models.Class]) ([]uuid.UUID, error) {
		c, err := cell.Load(ctx)
		return models.CloneIDs(c.EnrolledStudentIDs), err
	})
}
