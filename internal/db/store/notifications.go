package store

import (
	"context"
	"time"
)

const createNotification = `
INSERT INTO notifications (id, recipient_id, event_type, payload)
VALUES (?, ?, ?, ?)
`

type CreateNotificationParams struct {
	ID          string
	RecipientID string
	EventType   string
	Payload     string
}

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) error {
	_, err := q.db.ExecContext(ctx, createNotification,
		arg.ID, arg.RecipientID, arg.EventType, arg.Payload)
	return err
}

const listQueuedNotifications = `
SELECT id, recipient_id, event_type, payload, status, created_at, dispatched_at
FROM notifications
WHERE status = 'queued'
ORDER BY created_at
LIMIT ?
`

func (q *Queries) ListQueuedNotifications(ctx context.Context, limit int64) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, listQueuedNotifications, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.EventType, &n.Payload,
			&n.Status, &n.CreatedAt, &n.DispatchedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

const markNotificationDispatched = `
UPDATE notifications
SET status = 'dispatched', dispatched_at = ?
WHERE id = ? AND status = 'queued'
`

type MarkNotificationDispatchedParams struct {
	ID           string
	DispatchedAt time.Time
}

func (q *Queries) MarkNotificationDispatched(ctx context.Context, arg MarkNotificationDispatchedParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, markNotificationDispatched, arg.DispatchedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
