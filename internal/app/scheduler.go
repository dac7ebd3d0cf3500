package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// refreshTimeout bounds one full view refresh run.
const refreshTimeout = 5 * time.Minute

// StartRefreshScheduler launches the cron-driven view refresh when enabled
// in config. Stopped by Close.
func (a *App) StartRefreshScheduler() error {
	if !a.Config.Refresh.Enabled {
		a.Logger.Debug().Msg("View refresh scheduler disabled")
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(a.Config.Refresh.Cron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		start := time.Now()
		if err := a.Store.RefreshViews(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Scheduled view refresh failed")
			return
		}
		a.Logger.Info().Dur("elapsed", time.Since(start)).Msg("Scheduled view refresh complete")
	})
	if err != nil {
		return err
	}

	c.Start()
	a.refreshStop = func() {
		stopCtx := c.Stop()
		<-stopCtx.Done()
	}
	a.Logger.Info().Str("cron", a.Config.Refresh.Cron).Msg("View refresh scheduler started")
	return nil
}
