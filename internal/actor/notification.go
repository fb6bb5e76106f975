package actor

import (
	"context"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-course-api/internal/models"
)

// NotificationActor addresses one notification.
type NotificationActor struct {
	rt *Runtime
	id uuid.UUID
}

// Notification returns the actor owning notification id.
func (r *Runtime) Notification(id uuid.UUID) NotificationActor {
	return NotificationActor{rt: r, id: id}
}

// Get returns nil when the notification was never set or was deleted.
func (a NotificationActor) Get(ctx context.Context) (*models.Notification, error) {
	return call(ctx, a.rt, KindNotification, a.id.String(), func(ctx context.Context, cell *Cell[models.Notification]) (*models.Notification, error) {
		exists, err := cell.Exists(ctx)
		if err != nil || !exists {
			return nil, err
		}
		n, err := cell.Load(ctx)
		if err != nil {
			return nil, err
		}
		return &n, nil
	})
}

// Set stores the notification.
func (a NotificationActor) Set(ctx context.Context, n models.Notification) error {
	return exec(ctx, a.rt, KindNotification, a.id.String(), func(ctx context.Context, cell *Cell[models.Notification]) error {
		return cell.Write(ctx, n)
	})
}

// Delete clears the notification.
func (a NotificationActor) Delete(ctx context.Context) error {
	return exec(ctx, a.rt, KindNotification, a.id.String(), func(ctx context.Context, cell *Cell[models.Notification]) error {
		return cell.Clear(ctx)
	})
}
