// Package scheduler performs the daily automatic ledger reset at the time
// configured in settings. The time is re-read every cycle, so changes made
// through the bot take effect without a restart.
package scheduler

import (
	"context"
	"time"

	"gitlab.com/yelinaung/payments-bot/internal/logger"
	"gitlab.com/yelinaung/payments-bot/internal/models"
)

// settingsReader is the slice of the settings repository the scheduler needs.
type settingsReader interface {
	Get(ctx context.Context) (*models.Settings, error)
}

// resetter is the slice of the ledger service the scheduler needs.
type resetter interface {
	Reset(ctx context.Context) error
}

// recheckInterval bounds how long a disabled or failed cycle sleeps before
// looking at the settings again.
const recheckInterval = time.Minute

// Scheduler fires the ledger reset at the configured local time.
type Scheduler struct {
	settings settingsReader
	ledger   resetter
	loc      *time.Location
}

func New(settings settingsReader, ledger resetter, loc *time.Location) *Scheduler {
	return &Scheduler{settings: settings, ledger: ledger, loc: loc}
}

// Run blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		wait, fire := s.nextWait(ctx, time.Now().In(s.loc))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if !fire {
			// Woke up only to re-read settings.
			continue
		}

		if err := s.ledger.Reset(ctx); err != nil {
			logger.Log.Error().Err(err).Msg("Scheduled reset failed")
			continue
		}
		logger.Log.Info().Msg("Scheduled daily reset done")
	}
}

// nextWait decides how long to sleep and whether a reset fires when the
// sleep ends. Disabled or unreadable settings yield a short recheck sleep.
func (s *Scheduler) nextWait(ctx context.Context, now time.Time) (time.Duration, bool) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Scheduler failed to read settings")
		return recheckInterval, false
	}
	if settings.AutoResetTime == "" {
		return recheckInterval, false
	}

	at, err := models.ParseResetTime(settings.AutoResetTime)
	if err != nil {
		logger.Log.Warn().Err(err).Str("value", settings.AutoResetTime).Msg("Ignoring invalid auto reset time")
		return recheckInterval, false
	}

	// Cap the sleep so settings changes are picked up within a minute.
	until := nextOccurrence(now, at).Sub(now)
	if until > recheckInterval {
		return recheckInterval, false
	}
	return until, true
}

// nextOccurrence returns the next moment the given wall-clock time comes up.
func nextOccurrence(now time.Time, at models.ResetTime) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour, at.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
