// Package scheduler runs the recurring clinic jobs, currently the daily
// summary report delivery.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/feldsher/feldsher/internal/notify"
	"github.com/feldsher/feldsher/internal/tools"
)

// Scheduler owns the cron runner.
type Scheduler struct {
	cron *cron.Cron
	deps *tools.Deps
}

// New builds a scheduler with the daily report job registered on spec
// (standard 5-field cron expression).
func New(spec string, deps *tools.Deps) (*Scheduler, error) {
	s := &Scheduler{cron: cron.New(), deps: deps}
	if _, err := s.cron.AddFunc(spec, s.dailyReport); err != nil {
		return nil, fmt.Errorf("register report job %q: %w", spec, err)
	}
	return s, nil
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// dailyReport builds the day's summary and fans it out to Telegram and Slack.
// Delivery failures are logged, never fatal.
func (s *Scheduler) dailyReport() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	today := time.Now().Format("2006-01-02")
	report, err := s.deps.BuildReport(ctx, 0, today, today, "daily")
	if err != nil {
		slog.Error("daily report build failed", slog.Any("error", err))
		return
	}

	for channel, send := range map[string]func(context.Context, string) error{
		"telegram": s.deps.Telegram.Send,
		"slack":    s.deps.Slack.Send,
	} {
		if err := send(ctx, report); err != nil {
			if errors.Is(err, notify.ErrChannelDisabled) {
				continue
			}
			slog.Warn("daily report delivery failed",
				slog.String("channel", channel), slog.Any("error", err))
		}
	}
	slog.Info("daily report dispatched", slog.String("date", today))
}
