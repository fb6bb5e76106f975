package actor

import (
	"context"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-course-api/internal/models"
)

// Registry is a persisted, insertion-ordered set of ids for one entity kind.
// A listed id is discoverable; it is not guaranteed to have content yet.
type Registry struct {
	rt   *Runtime
	kind string
}

// ClassRegistry indexes every created class.
func (r *Runtime) ClassRegistry() Registry {
	return Registry{rt: r, kind: KindClassRegistry}
}

// ClassCatalog indexes active classes offered for enrollment.
func (r *Runtime) ClassCatalog() Registry {
	return Registry{rt: r, kind: KindClassCatalog}
}

func registryCall[R any](ctx context.Context, reg Registry, fn func(ctx context.Context, cell *Cell[models.RegistryState]) (R, error)) (R, error) {
	return call(ctx, reg.rt, reg.kind, RegistryKey, fn)
}

// AddID inserts id and reports false when it was already present.
func (reg Registry) AddID(ctx context.Context, id uuid.UUID) (bool, error) {
	return registryCall(ctx, reg, func(ctx context.Context, cell *Cell[models.RegistryState]) (bool, error) {
		return addToRegistry(ctx, cell, id)
	})
}

// RemoveID deletes id and reports false when it was absent.
func (reg Registry) RemoveID(ctx context.Context, id uuid.UUID) (bool, error) {
	return registryCall(ctx, reg, func(ctx context.Context, cell *Cell[models.RegistryState]) (bool, error) {
		state, err := cell.Load(ctx)
		if err != nil {
			return false, err
		}
		ids, removed := models.RemoveID(state.IDs, id)
		if !removed {
			return false, nil
		}
		if err := cell.Write(ctx, models.RegistryState{IDs: ids}); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Contains reports whether id is registered.
func (reg Registry) Contains(ctx context.Context, id uuid.UUID) (bool, error) {
	return registryCall(ctx, reg, func(ctx context.Context, cell *Cell[models.RegistryState]) (bool, error) {
		state, err := cell.Load(ctx)
		return models.ContainsID(state.IDs, id), err
	})
}

// List returns a snapshot of the ids in insertion order.
func (reg Registry) List(ctx context.Context) ([]uuid.UUID, error) {
	return registryCall(ctx, reg, func(ctx context.Context, cell *Cell[models.RegistryState]) ([]uuid.UUID, error) {
		state, err := cell.Load(ctx)
		return models.CloneIDs(state.IDs), err
	})
}

func addToRegistry(ctx context.Context, cell *Cell[models.RegistryState], id uuid.UUID) (bool, error) {
	state, err := cell.Load(ctx)
	if err != nil {
		return false, err
	}
	if models.ContainsID(state.IDs, id) {
		return false, nil
	}
	ids := append(models.CloneIDs(state.IDs), id)
	if err := cell.Write(ctx, models.RegistryState{IDs: ids}); err != nil {
		return false, err
	}
	return true, nil
}

// StudentRegistry indexes students and creates them on registration.
type StudentRegistry struct {
	Registry
}

// StudentRegistry returns the student index.
func (r *Runtime) StudentRegistry() StudentRegistry {
	return StudentRegistry{Registry{rt: r, kind: KindStudentRegistry}}
}

// Register stores student through its actor, then records the id. It
// reports false, leaving both untouched, when the id is already registered
// or a record for it is still stored after an earlier removal.
func (reg StudentRegistry) Register(ctx context.Context, student models.Student) (bool, error) {
	return registryCall(ctx, reg.Registry, func(ctx context.Context, cell *Cell[models.RegistryState]) (bool, error) {
		state, err := cell.Load(ctx)
		if err != nil {
			return false, err
		}
		if models.ContainsID(state.IDs, student.ID) {
			return false, nil
		}
		studentActor := reg.rt.Student(student.ID)
		existing, err := studentActor.Get(ctx)
		if err != nil {
			return false, err
		}
		if existing.Exists() {
			return false, nil
		}
		if err := studentActor.Set(ctx, student); err != nil {
			return false, err
		}
		return addToRegistry(ctx, cell, student.ID)
	})
}

// Remove unregisters id. The student's own record is kept.
func (reg StudentRegistry) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	return reg.RemoveID(ctx, id)
}
