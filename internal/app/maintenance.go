package app

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StartMaintenance schedules hourly session expiry and a daily metric trim.
// The caller stops the returned scheduler.
func (a *App) StartMaintenance(ctx context.Context) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc("@hourly", func() { a.expireSessions(ctx) }); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc("@daily", func() { a.trimMetrics(ctx) }); err != nil {
		return nil, err
	}
	c.Start()
	a.logger.Info("maintenance jobs scheduled", zap.Int("jobs", len(c.Entries())))
	return c, nil
}

func (a *App) expireSessions(ctx context.Context) {
	n, err := a.sessions.CleanupExpired(ctx)
	if err != nil {
		a.logger.Error("session cleanup failed", zap.Error(err))
		return
	}
	a.logger.Info("expired sessions removed", zap.Int64("count", n))
}

func (a *App) trimMetrics(ctx context.Context) {
	n, err := a.metricsStore.Cleanup(ctx, a.cfg.MetricsRetentionDays)
	if err != nil {
		a.logger.Error("metrics cleanup failed", zap.Error(err))
		return
	}
	a.logger.Info("old lookup metrics removed", zap.Int64("count", n))
}
