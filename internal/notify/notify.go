// Package notify is the outbound notification queue. Events are written to
// the notifications table in the same transaction as the state change that
// caused them, then drained by a background dispatcher. In this build the
// dispatcher logs each event; a push or email transport slots in behind the
// same drain loop.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sportlink/backend/internal/db"
	"github.com/sportlink/backend/internal/db/store"
)

// Event types written to the queue.
const (
	EventBookingConfirmed = "booking_confirmed"
	EventBookingCancelled = "booking_cancelled"
	EventOpponentMatched  = "opponent_matched"
	EventMatchCancelled   = "match_cancelled"
)

// Queue records an event for recipientID. Call it with a transaction-bound
// Queries so the event commits or rolls back with its cause.
func Queue(ctx context.Context, q *store.Queries, recipientID, eventType string, payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	if err := q.CreateNotification(ctx, store.CreateNotificationParams{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		EventType:   eventType,
		Payload:     string(data),
	}); err != nil {
		return fmt.Errorf("queue notification: %w", err)
	}
	return nil
}

// Dispatcher drains the queue in batches.
type Dispatcher struct {
	db        *db.DB
	batchSize int64
}

func NewDispatcher(database *db.DB) *Dispatcher {
	return &Dispatcher{db: database, batchSize: 100}
}

// Dispatch delivers one batch of queued notifications and marks them
// dispatched. Returns the number delivered.
func (d *Dispatcher) Dispatch(ctx context.Context) (int, error) {
	queued, err := d.db.Queries.ListQueuedNotifications(ctx, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list queued notifications: %w", err)
	}

	dispatched := 0
	for _, n := range queued {
		log.Ctx(ctx).Info().
			Str("component", "notify").
			Str("notification_id", n.ID).
			Str("recipient_id", n.RecipientID).
			Str("event_type", n.EventType).
			RawJSON("payload", []byte(n.Payload)).
			Msg("dispatching notification")

		affected, err := d.db.Queries.MarkNotificationDispatched(ctx, store.MarkNotificationDispatchedParams{
			ID:           n.ID,
			DispatchedAt: time.Now().UTC(),
		})
		if err != nil {
			return dispatched, fmt.Errorf("mark notification dispatched: %w", err)
		}
		if affected > 0 {
			dispatched++
		}
	}
	return dispatched, nil
}
