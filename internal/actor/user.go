package actor

import (
	"context"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-course-api/internal/models"
)

// UserActor addresses the owner of one user record.
type UserActor struct {
	rt *Runtime
	id uuid.UUID
}

// User returns the actor owning user id.
func (r *Runtime) User(id uuid.UUID) UserActor {
	return UserActor{rt: r, id: id}
}

// Get returns the stored user or a zero value.
func (a UserActor) Get(ctx context.Context) (models.User, error) {
	return call(ctx, a.rt, KindUser, a.id.String(), func(ctx context.Context, cell *Cell[models.User]) (models.User, error) {
		u, err := cell.Load(ctx)
		return u.Clone(), err
	})
}

// Set replaces the user.
func (a UserActor) Set(ctx context.Context, user models.User) error {
	user = user.Clone()
	user.ID = a.id
	user.ClassIDs = models.UniqueIDs(user.ClassIDs)
	return exec(ctx, a.rt, KindUser, a.id.String(), func(ctx context.Context, cell *Cell[models.User]) error {
		return cell.Write(ctx, user)
	})
}

// ClassIDs lists the assigned classes.
func (a UserActor) ClassIDs(ctx context.Context) ([]uuid.UUID, error) {
	return call(ctx, a.rt, KindUser, a.id.String(), func(ctx context.Context, cell *Cell[models.User]) ([]uuid.UUID, error) {
		u, err := cell.Load(ctx)
		return models.CloneIDs(u.ClassIDs), err
	})
}

// AddClass assigns classID; an assigned id is a no-op.
func (a UserActor) AddClass(ctx context.Context, classID uuid.UUID) error {
	return exec(ctx, a.rt, KindUser, a.id.String(), func(ctx context.Context, cell *Cell[models.User]) error {
		u, err := cell.Load(ctx)
		if err != nil || models.ContainsID(u.ClassIDs, classID) {
			return err
		}
		u = u.Clone()
		u.ID = a.id
		u.ClassIDs = append(u.ClassIDs, classID)
		return cell.Write(ctx, u)
	})
}

// RemoveClass unassigns classID and reports whether it was assigned.
func (a UserActor) RemoveClass(ctx context.Context, classID uuid.UUID) (bool, error) {
	return call(ctx, a.rt, KindUser, a.id.String(), func(ctx context.Context, cell *Cell[models.User]) (bool, error) {
		u, err := cell.Load(ctx)
		if err != nil {
			return false, err
		}
		ids, removed := models.RemoveID(u.ClassIDs, classID)
		if !removed {
			return false, nil
		}
		u = u.Clone()
		u.ClassIDs = ids
		if err := cell.Write(ctx, u); err != nil {
			return false, err
		}
		return true, nil
	})
}
