package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-course-api/internal/actor"
	"github.com/noah-isme/sma-course-api/internal/models"
	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

// fanOutLimit bounds concurrent actor reads issued by one request.
const fanOutLimit = 16

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, appErrors.Clone(appErrors.ErrValidation, "invalid "+field)
	}
	return id, nil
}

// parseOptionalID returns a fresh id for empty input.
func parseOptionalID(raw, field string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.New(), nil
	}
	return parseID(raw, field)
}

func parseIDs(raw []string, field string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := parseID(r, field)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return models.UniqueIDs(ids), nil
}

// fetchStudents loads every id concurrently, keeping order and skipping ids
// without a record.
func fetchStudents(ctx context.Context, rt *actor.Runtime, ids []uuid.UUID) ([]models.Student, error) {
	out := make([]models.Student, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, id := range ids {
		g.Go(func() error {
			st, err := rt.Student(id).Get(gctx)
			if err != nil {
				return err
			}
			out[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	students := out[:0]
	for _, st := range out {
		if st.Exists() {
			students = append(students, st)
		}
	}
	return students, nil
}

// fetchClasses is fetchStudents for classes.
func fetchClasses(ctx context.Context, rt *actor.Runtime, ids []uuid.UUID) ([]models.Class, error) {
	out := make([]models.Class, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, id := range ids {
		g.Go(func() error {
			c, err := rt.Class(id).Get(gctx)
			if err != nil {
				return err
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	classes := out[:0]
	for _, c := range out {
		if c.Exists() {
			classes = append(classes, c)
		}
	}
	return classes, nil
}

func normalisePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

// pageBounds returns the slice window for page over total items.
func pageBounds(page, size, total int) (int, int) {
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return start, end
}

// serviceError keeps typed errors and wraps anything else as internal.
func serviceError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
