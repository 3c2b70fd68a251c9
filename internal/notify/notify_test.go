package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportlink/backend/internal/testutil"
)

func TestQueueAndDispatch(t *testing.T) {
	database := testutil.NewTestDB(t)
	userID := testutil.SeedUser(t, database, "Recipient")
	ctx := context.Background()

	require.NoError(t, Queue(ctx, database.Queries, userID, EventBookingConfirmed, map[string]interface{}{
		"booking_id": "b-1",
	}))
	require.NoError(t, Queue(ctx, database.Queries, userID, EventOpponentMatched, map[string]interface{}{
		"match_id": "m-1",
	}))

	queued, err := database.Queries.ListQueuedNotifications(ctx, 10)
	require.NoError(t, err)
	require.Len(t, queued, 2)

	d := NewDispatcher(database)
	n, err := d.Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// The queue drains; a second pass finds nothing.
	queued, err = database.Queries.ListQueuedNotifications(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, queued)

	n, err = d.Dispatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
