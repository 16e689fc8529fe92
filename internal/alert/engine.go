// Package alert implements the emergency alert engine: it evaluates trigger
// conditions against the ledger and settings, and owns the lifecycle of at
// most one recurring broadcast session.
package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/payments-bot/internal/logger"
	"gitlab.com/yelinaung/payments-bot/internal/models"
)

// evalQueueSize bounds the evaluation queue. Evaluation reads only current
// state, so a token dropped behind an already queued one cannot change the
// outcome.
const evalQueueSize = 256

// Sender delivers outbound Telegram messages. Implemented by *bot.Bot and
// by test fakes.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// LedgerReader is the read contract the engine consumes from the ledger store.
type LedgerReader interface {
	GetBalance(ctx context.Context) (*models.BalanceSnapshot, error)
	UnmatchedWithdrawals(ctx context.Context) (int, error)
}

// SettingsReader supplies fresh settings on every evaluation.
type SettingsReader interface {
	Get(ctx context.Context) (*models.Settings, error)
}

// Status is a side-effect-free view of the engine state.
type Status struct {
	Active    bool
	Enabled   bool
	AlertsSent int
	// LastAlertAt is zero when no alert has been sent in the current session.
	LastAlertAt time.Time
}

// session is the handle to one running broadcast loop.
type session struct {
	cancel context.CancelFunc
	// done is closed by the broadcast goroutine on exit; cancellers wait on
	// it so a replaced loop can never produce output past its replacement.
	done chan struct{}
}

// Engine evaluates trigger conditions and maintains the singleton broadcast
// session. All session hand-offs go through mu; the broadcast goroutine
// itself never takes mu, so a canceller may wait for it while holding the
// lock.
type Engine struct {
	sender   Sender
	ledger   LedgerReader
	settings SettingsReader
	chatIDs  []int64
	tiers    []SeverityTier

	queue chan struct{}

	mu      sync.Mutex
	session *session
	runCtx  context.Context

	statsMu     sync.Mutex
	alertsSent  int
	lastAlertAt time.Time
}

// New creates an alert engine broadcasting to the given chats.
func New(sender Sender, ledger LedgerReader, settings SettingsReader, chatIDs []int64) *Engine {
	return &Engine{
		sender:   sender,
		ledger:   ledger,
		settings: settings,
		chatIDs:  chatIDs,
		tiers:    DefaultTiers,
		queue:    make(chan struct{}, evalQueueSize),
	}
}

// Run consumes the evaluation queue until ctx is cancelled. Broadcast
// sessions are parented to ctx, so cancelling it also tears down any active
// loop.
func (e *Engine) Run(ctx context.Context) {
	e.mu.Lock()
	e.runCtx = ctx
	e.mu.Unlock()

	logger.Log.Info().Msg("Alert engine started")

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info().Msg("Alert engine stopped")
			return
		case <-e.queue:
			e.Evaluate(ctx)
		}
	}
}

// Notify schedules one evaluation. It never blocks: ledger mutations must
// return to their callers regardless of alerting health.
func (e *Engine) Notify() {
	select {
	case e.queue <- struct{}{}:
	default:
		logger.Log.Warn().Msg("Alert evaluation queue full, dropping token")
	}
}

// Evaluate reads fresh settings and ledger state, then starts or stops the
// broadcast session accordingly. Read failures are logged and the
// evaluation becomes a no-op; nothing propagates to the mutating caller.
// Safe to call concurrently.
func (e *Engine) Evaluate(ctx context.Context) {
	settings, err := e.settings.Get(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Alert evaluation skipped: failed to read settings")
		return
	}

	if !settings.EmergencyEnabled {
		e.Stop()
		return
	}

	snap, err := e.ledger.GetBalance(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Alert evaluation skipped: failed to read balance")
		return
	}
	unmatched, err := e.ledger.UnmatchedWithdrawals(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Alert evaluation skipped: failed to read unmatched withdrawals")
		return
	}

	balance := snap.Balance()

	var reasons []string
	if unmatched >= settings.WithdrawalThreshold {
		logger.Log.Warn().
			Int("unmatched", unmatched).
			Int("threshold", settings.WithdrawalThreshold).
			Msg("Alert trigger: withdrawals without checks")
		reasons = append(reasons, fmt.Sprintf(
			"%d withdrawals without a check (limit %d)", unmatched, settings.WithdrawalThreshold))
	}
	if balance.GreaterThanOrEqual(settings.BalanceThreshold) {
		logger.Log.Warn().
			Str("balance", balance.StringFixed(2)).
			Str("threshold", settings.BalanceThreshold.StringFixed(2)).
			Msg("Alert trigger: balance threshold")
		reasons = append(reasons, fmt.Sprintf(
			"balance %s is at or above the critical mark %s",
			balance.StringFixed(2), settings.BalanceThreshold.StringFixed(2)))
	}

	if len(reasons) > 0 {
		e.start(settings.AlertRate, reasons)
	} else {
		e.Stop()
	}
}

// start replaces any active broadcast session with a new one. The old loop
// is cancelled and fully awaited before the new one is spawned, so two
// sessions can never interleave output.
func (e *Engine) start(rate int, reasons []string) {
	interval := Interval(rate)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	e.resetStats()

	ctx, cancel := context.WithCancel(e.baseCtxLocked())
	s := &session{cancel: cancel, done: make(chan struct{})}
	e.session = s

	go e.broadcast(ctx, s.done, interval, reasons)

	logger.Log.Info().
		Dur("interval", interval).
		Strs("reasons", reasons).
		Msg("Alert broadcast started")
}

// Stop cancels the active broadcast session and awaits its exit.
// Idempotent: a no-op when nothing is running.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return
	}
	e.stopLocked()
	e.resetStats()
	logger.Log.Info().Msg("Alert broadcast stopped")
}

// ForceStop stops any active session and best-effort notifies every alert
// chat that alerts were halted by hand. Send failures are logged and
// swallowed.
func (e *Engine) ForceStop(ctx context.Context) {
	e.Stop()

	text := composeHalted(time.Now())
	for _, chatID := range e.chatIDs {
		_, err := e.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      text,
			ParseMode: tgmodels.ParseModeHTML,
		})
		if err != nil {
			logger.Log.Warn().Err(err).
				Str("chat_hash", logger.HashChatID(chatID)).
				Msg("Failed to deliver halt notice")
		}
	}
	logger.Log.Info().Msg("Alert system force-stopped")
}

// Status reports whether a session is active, whether the feature is
// enabled, and the current session counters.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	settings, err := e.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	e.mu.Lock()
	active := e.session != nil
	e.mu.Unlock()

	e.statsMu.Lock()
	sent, last := e.alertsSent, e.lastAlertAt
	e.statsMu.Unlock()

	return &Status{
		Active:      active,
		Enabled:     settings.EmergencyEnabled,
		AlertsSent:  sent,
		LastAlertAt: last,
	}, nil
}

// SendTest delivers one test message to every alert chat, outside the
// session lifecycle. Succeeds when at least one chat accepted it.
func (e *Engine) SendTest(ctx context.Context) error {
	text := composeTest(time.Now())
	delivered := 0
	for _, chatID := range e.chatIDs {
		_, err := e.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      text,
			ParseMode: tgmodels.ParseModeHTML,
		})
		if err != nil {
			logger.Log.Warn().Err(err).
				Str("chat_hash", logger.HashChatID(chatID)).
				Msg("Failed to deliver test alert")
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return fmt.Errorf("test alert was not accepted by any of the %d chats", len(e.chatIDs))
	}
	return nil
}

// broadcast is the recurring alert loop of one session. It sends a round
// immediately, then every interval, until cancelled. The interval wait is
// the sole suspension point; a cancelled loop exits without a further send.
func (e *Engine) broadcast(ctx context.Context, done chan struct{}, interval time.Duration, reasons []string) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		e.sendRound(ctx, reasons)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// sendRound re-reads the live ledger state, composes the alert and fans it
// out to every alert chat. One chat failing does not block the others.
func (e *Engine) sendRound(ctx context.Context, reasons []string) {
	now := time.Now()

	e.statsMu.Lock()
	e.alertsSent++
	e.lastAlertAt = now
	count := e.alertsSent
	e.statsMu.Unlock()

	snap, err := e.ledger.GetBalance(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Alert round skipped: failed to read balance")
		return
	}
	unmatched, err := e.ledger.UnmatchedWithdrawals(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Alert round skipped: failed to read unmatched withdrawals")
		return
	}

	text := composeAlert(e.tiers, snap.Balance(), unmatched, reasons, count, now)

	for _, chatID := range e.chatIDs {
		_, err := e.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      text,
			ParseMode: tgmodels.ParseModeHTML,
		})
		if err != nil {
			logger.Log.Error().Err(err).
				Str("chat_hash", logger.HashChatID(chatID)).
				Msg("Failed to deliver alert")
		}
	}
}

// stopLocked cancels and awaits the active session. Caller holds e.mu.
func (e *Engine) stopLocked() {
	if e.session == nil {
		return
	}
	e.session.cancel()
	<-e.session.done
	e.session = nil
}

func (e *Engine) resetStats() {
	e.statsMu.Lock()
	e.alertsSent = 0
	e.lastAlertAt = time.Time{}
	e.statsMu.Unlock()
}

// baseCtxLocked returns the parent context for broadcast sessions.
// Caller holds e.mu.
func (e *Engine) baseCtxLocked() context.Context {
	if e.runCtx != nil {
		return e.runCtx
	}
	return context.Background()
}

// Interval converts a messages-per-minute rate into the broadcast interval.
func Interval(rate int) time.Duration {
	if rate < models.MinAlertRate {
		rate = models.MinAlertRate
	}
	return time.Minute / time.Duration(rate)
}
