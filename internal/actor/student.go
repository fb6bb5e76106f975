package actor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-course-api/internal/models"
	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

// StudentUpdate carries the mutable profile fields of a student.
type StudentUpdate struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	DateOfBirth time.Time
	Address     string
}

// StudentActor addresses the owner of one student record.
type StudentActor struct {
	rt *Runtime
	id uuid.UUID
}

// Student returns the actor owning student id.
func (r *Runtime) Student(id uuid.UUID) StudentActor {
	return StudentActor{rt: r, id: id}
}

// ID returns the actor key.
func (a StudentActor) ID() uuid.UUID { return a.id }

func studentCall[R any](ctx context.Context, a StudentActor, fn func(ctx context.Context, cell *Cell[models.Student]) (R, error)) (R, error) {
	return call(ctx, a.rt, KindStudent, a.id.String(), fn)
}

// Get returns the stored student or a zero value when never set.
func (a StudentActor) Get(ctx context.Context) (models.Student, error) {
	return studentCall(ctx, a, func(ctx context.Context, cell *Cell[models.Student]) (models.Student, error) {
		s, err := cell.Load(ctx)
		return s.Clone(), err
	})
}

// Set replaces the student record.
func (a StudentActor) Set(ctx context.Context, student models.Student) error {
	student = student.Clone()
	student.ID = a.id
	student.EnrolledClassIDs = models.UniqueIDs(student.EnrolledClassIDs)
	return exec(ctx, a.rt, KindStudent, a.id.String(), func(ctx context.Context, cell *Cell[models.Student]) error {
		return cell.Write(ctx, student)
	})
}

// Update changes profile fields only; enrollments are untouched.
func (a StudentActor) Update(ctx context.Context, upd StudentUpdate) (models.Student, error) {
	return studentCall(ctx, a, func(ctx context.Context, cell *Cell[models.Student]) (models.Student, error) {
		s, err := cell.Load(ctx)
		if err != nil {
			return models.Student{}, err
		}
		if !s.Exists() {
			return models.Student{}, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		s = s.Clone()
		s.FirstName = upd.FirstName
		s.LastName = upd.LastName
		s.Email = upd.Email
		s.PhoneNumber = upd.PhoneNumber
		s.DateOfBirth = upd.DateOfBirth
		s.Address = upd.Address
		if err := cell.Write(ctx, s); err != nil {
			return models.Student{}, err
		}
		return s.Clone(), nil
	})
}

// EnrollInClass adds classID to the enrolled set. Duplicates are absorbed
// without a write.
func (a StudentActor) EnrollInClass(ctx context.Context, classID uuid.UUID) error {
	return exec(ctx, a.rt, KindStudent, a.id.String(), func(ctx context.Context, cell *Cell[models.Student]) error {
		s, err := cell.Load(ctx)
		if err != nil {
			return err
		}
		if models.ContainsID(s.EnrolledClassIDs, classID) {
			return nil
		}
		s = s.Clone()
		s.ID = a.id
		s.EnrolledClassIDs = append(s.EnrolledClassIDs, classID)
		return cell.Write(ctx, s)
	})
}

// UnenrollFromClass removes classID. Removing an absent id is a no-op.
func (a StudentActor) UnenrollFromClass(ctx context.Context, classID uuid.UUID) error {
	return exec(ctx, a.rt, KindStudent, a.id.String(), func(ctx context.Context, cell *Cell[models.Student]) error {
		s, err := cell.Load(ctx)
		if err != nil {
			return err
		}
		ids, removed := models.RemoveID(s.EnrolledClassIDs, classID)
		if !removed {
			return nil
		}
		s = s.Clone()
		s.EnrolledClassIDs = ids
		return cell.Write(ctx, s)
	})
}

// EnrolledClassIDs lists the classes the student is enrolled in.
func (a StudentActor) EnrolledClassIDs(ctx context.Context) ([]uuid.UUID, error) {
	return studentCall(ctx, a, func(ctx context.Context, cell *Cell[models.Student]) ([]uuid.UUID, error) {
		s, err := cell.Load(ctx)
		return models.CloneIDs(s.EnrolledClassIDs), err
	})
}
