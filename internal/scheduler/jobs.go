package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sportlink/backend/internal/config"
	"github.com/sportlink/backend/internal/db"
	"github.com/sportlink/backend/internal/notify"
)

// RegisterMaintenanceJobs wires the periodic sweeps onto the singleton
// scheduler: finishing bookings whose window has passed, expiring
// subscriptions past their end date, and draining the notification queue.
func RegisterMaintenanceJobs(database *db.DB, cfg config.SchedulerConfig) error {
	svc, err := ServiceInstance()
	if err != nil {
		return err
	}

	dispatcher := notify.NewDispatcher(database)

	if _, err := svc.AddJob("complete-bookings", cfg.CompleteBookingsCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := database.Queries.CompleteBookingsEndedBefore(ctx, time.Now().UTC())
		if err != nil {
			log.Error().Err(err).Msg("complete-bookings sweep failed")
			return
		}
		if n > 0 {
			log.Info().Int64("completed", n).Msg("bookings completed")
		}
	}); err != nil {
		return err
	}

	if _, err := svc.AddJob("expire-subscriptions", cfg.ExpireSubscriptionsCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := database.Queries.ExpireSubscriptionsBefore(ctx, time.Now().UTC())
		if err != nil {
			log.Error().Err(err).Msg("expire-subscriptions sweep failed")
			return
		}
		if n > 0 {
			log.Info().Int64("expired", n).Msg("subscriptions expired")
		}
	}); err != nil {
		return err
	}

	if _, err := svc.AddJob("dispatch-notifications", cfg.DispatchNotificationsCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := dispatcher.Dispatch(ctx)
		if err != nil {
			log.Error().Err(err).Msg("notification dispatch failed")
			return
		}
		if n > 0 {
			log.Info().Int("dispatched", n).Msg("notifications dispatched")
		}
	}); err != nil {
		return err
	}

	return nil
}
