package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/payments-bot/internal/models"
)

type sentMessage struct {
	ChatID any
	Text   string
}

// fakeSender records outbound messages and can fail per chat.
type fakeSender struct {
	mu       sync.Mutex
	messages []sentMessage
	failFor  map[int64]error
}

func (f *fakeSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if chatID, ok := params.ChatID.(int64); ok {
		if err, ok := f.failFor[chatID]; ok {
			return nil, err
		}
	}
	f.messages = append(f.messages, sentMessage{ChatID: params.ChatID, Text: params.Text})
	return &tgmodels.Message{ID: len(f.messages)}, nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeSender) last() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[len(f.messages)-1]
}

// fakeLedger serves a mutable balance snapshot.
type fakeLedger struct {
	mu        sync.Mutex
	incoming  decimal.Decimal
	checks    decimal.Decimal
	unmatched int
	err       error
}

func (f *fakeLedger) GetBalance(ctx context.Context) (*models.BalanceSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &models.BalanceSnapshot{Incoming: f.incoming, Checks: f.checks}, nil
}

func (f *fakeLedger) UnmatchedWithdrawals(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.unmatched, nil
}

func (f *fakeLedger) set(incoming, checks string, unmatched int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incoming = decimal.RequireFromString(incoming)
	f.checks = decimal.RequireFromString(checks)
	f.unmatched = unmatched
}

// fakeSettings serves a mutable settings record.
type fakeSettings struct {
	mu       sync.Mutex
	settings models.Settings
	err      error
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{settings: *models.DefaultSettings()}
}

func (f *fakeSettings) Get(ctx context.Context) (*models.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s := f.settings
	return &s, nil
}

func (f *fakeSettings) update(fn func(*models.Settings)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.settings)
}

func newTestEngine(chatIDs ...int64) (*Engine, *fakeSender, *fakeLedger, *fakeSettings) {
	if len(chatIDs) == 0 {
		chatIDs = []int64{100, 200}
	}
	sender := &fakeSender{}
	ledger := &fakeLedger{incoming: decimal.NewFromInt(-5000)}
	settings := newFakeSettings()
	return New(sender, ledger, settings, chatIDs), sender, ledger, settings
}

func requireActive(t *testing.T, e *Engine, want bool) {
	t.Helper()
	status, err := e.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, status.Active)
}

func TestEvaluateStartsBroadcastOnUnmatchedWithdrawals(t *testing.T) {
	t.Parallel()

	e, sender, ledger, settings := newTestEngine()
	defer e.Stop()
	settings.update(func(s *models.Settings) { s.AlertRate = 60 })
	ledger.set("-5000", "0", 5)

	e.Evaluate(context.Background())

	requireActive(t, e, true)
	require.Eventually(t, func() bool { return sender.count() >= 2 },
		time.Second, 10*time.Millisecond, "expected one round fanned out to both chats")

	msg := sender.last()
	require.Contains(t, msg.Text, "EMERGENCY: STOP TRAFFIC!")
	require.Contains(t, msg.Text, "5 withdrawals without a check (limit 5)")
}

func TestEvaluateStopsWhenConditionsClear(t *testing.T) {
	t.Parallel()

	e, sender, ledger, _ := newTestEngine()
	defer e.Stop()
	ledger.set("-5000", "0", 7)

	e.Evaluate(context.Background())
	requireActive(t, e, true)
	require.Eventually(t, func() bool { return sender.count() > 0 },
		time.Second, 10*time.Millisecond)

	// One check pairs off the withdrawals and pulls the balance down.
	ledger.set("-5000", "1000", 0)
	e.Evaluate(context.Background())

	requireActive(t, e, false)
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()

	e, _, ledger, _ := newTestEngine()

	// Nothing running yet.
	e.Stop()
	e.Stop()

	ledger.set("-5000", "0", 9)
	e.Evaluate(context.Background())
	requireActive(t, e, true)

	e.Stop()
	e.Stop()
	requireActive(t, e, false)
}

func TestStopLeavesNoOrphanedLoop(t *testing.T) {
	t.Parallel()

	e, sender, ledger, settings := newTestEngine()
	// Fastest allowed rate so an orphaned loop would resend within a second.
	settings.update(func(s *models.Settings) { s.AlertRate = models.MaxAlertRate })
	ledger.set("-5000", "0", 5)

	e.Evaluate(context.Background())
	require.Eventually(t, func() bool { return sender.count() > 0 },
		time.Second, 10*time.Millisecond)

	e.Stop()
	after := sender.count()

	time.Sleep(1300 * time.Millisecond)
	require.Equal(t, after, sender.count(), "a cancelled loop kept sending")
}

func TestRestartReplacesSessionAndResetsCounter(t *testing.T) {
	t.Parallel()

	e, sender, ledger, _ := newTestEngine(100)
	defer e.Stop()
	ledger.set("-5000", "0", 6)

	e.Evaluate(context.Background())
	require.Eventually(t, func() bool { return sender.count() >= 1 },
		time.Second, 10*time.Millisecond)

	// A second trigger while active replaces the session, numbering restarts.
	e.Evaluate(context.Background())
	require.Eventually(t, func() bool {
		return sender.count() >= 2 && sender.last().Text != ""
	}, time.Second, 10*time.Millisecond)
	require.Contains(t, sender.last().Text, "alert #1")
}

func TestBalanceThresholdBoundary(t *testing.T) {
	t.Parallel()

	// Threshold defaults to -1000, comparison is inclusive.
	tests := []struct {
		name    string
		balance string
		active  bool
	}{
		{name: "below threshold stays quiet", balance: "-1000.01", active: false},
		{name: "exactly at threshold triggers", balance: "-1000.00", active: true},
		{name: "above threshold triggers", balance: "-999.00", active: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e, _, ledger, _ := newTestEngine(100)
			defer e.Stop()
			ledger.set(tt.balance, "0", 0)

			e.Evaluate(context.Background())
			requireActive(t, e, tt.active)
		})
	}
}

func TestWithdrawalThresholdBoundary(t *testing.T) {
	t.Parallel()

	// Balance -5000 keeps the balance trigger quiet, so only the
	// unmatched-withdrawal count decides.
	tests := []struct {
		name      string
		unmatched int
		active    bool
	}{
		{name: "no withdrawals stays quiet", unmatched: 0, active: false},
		{name: "one below threshold stays quiet", unmatched: 2, active: false},
		{name: "exactly at threshold triggers", unmatched: 3, active: true},
		{name: "above threshold triggers", unmatched: 4, active: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e, _, ledger, settings := newTestEngine(100)
			defer e.Stop()
			settings.update(func(s *models.Settings) { s.WithdrawalThreshold = 3 })
			ledger.set("-5000", "0", tt.unmatched)

			e.Evaluate(context.Background())
			requireActive(t, e, tt.active)
		})
	}
}

func TestKillSwitchSuppressesAndStops(t *testing.T) {
	t.Parallel()

	e, _, ledger, settings := newTestEngine(100)
	defer e.Stop()
	ledger.set("-5000", "0", 10)

	settings.update(func(s *models.Settings) { s.EmergencyEnabled = false })
	e.Evaluate(context.Background())
	requireActive(t, e, false)

	// Enable, trigger, then flip the switch off: the session must die.
	settings.update(func(s *models.Settings) { s.EmergencyEnabled = true })
	e.Evaluate(context.Background())
	requireActive(t, e, true)

	settings.update(func(s *models.Settings) { s.EmergencyEnabled = false })
	e.Evaluate(context.Background())
	requireActive(t, e, false)
}

func TestEvaluateReadFailuresAreNoOps(t *testing.T) {
	t.Parallel()

	e, _, ledger, settings := newTestEngine(100)
	defer e.Stop()
	ledger.set("-5000", "0", 10)

	e.Evaluate(context.Background())
	requireActive(t, e, true)

	// A failing ledger read must not tear down the running session.
	ledger.mu.Lock()
	ledger.err = errors.New("connection refused")
	ledger.mu.Unlock()
	e.Evaluate(context.Background())
	requireActive(t, e, true)

	// Same for settings.
	ledger.mu.Lock()
	ledger.err = nil
	ledger.mu.Unlock()
	settings.err = errors.New("connection refused")
	e.Evaluate(context.Background())

	settings.err = nil
	requireActive(t, e, true)
}

func TestConcurrentEvaluateKeepsSingleSession(t *testing.T) {
	t.Parallel()

	e, _, ledger, settings := newTestEngine(100)
	defer e.Stop()
	settings.update(func(s *models.Settings) { s.AlertRate = 60 })
	ledger.set("-5000", "0", 8)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Evaluate(context.Background())
		}()
	}
	wg.Wait()

	requireActive(t, e, true)
	e.Stop()
	requireActive(t, e, false)
}

func TestForceStopNotifiesEveryChat(t *testing.T) {
	t.Parallel()

	e, sender, ledger, _ := newTestEngine(100, 200)
	ledger.set("-5000", "0", 5)
	e.Evaluate(context.Background())
	requireActive(t, e, true)

	before := sender.count()
	e.ForceStop(context.Background())

	requireActive(t, e, false)
	require.Equal(t, before+2, sender.count())
	require.Contains(t, sender.last().Text, "ALERTS HALTED")
}

func TestForceStopSwallowsSendFailures(t *testing.T) {
	t.Parallel()

	e, sender, _, _ := newTestEngine(100, 200)
	sender.failFor = map[int64]error{100: errors.New("blocked")}

	e.ForceStop(context.Background())
	require.Equal(t, 1, sender.count())
}

func TestSendTest(t *testing.T) {
	t.Parallel()

	t.Run("partial delivery succeeds", func(t *testing.T) {
		t.Parallel()
		e, sender, _, _ := newTestEngine(100, 200)
		sender.failFor = map[int64]error{100: errors.New("blocked")}

		require.NoError(t, e.SendTest(context.Background()))
		require.Equal(t, 1, sender.count())
		require.Contains(t, sender.last().Text, "TEST ALERT")
	})

	t.Run("total failure errors", func(t *testing.T) {
		t.Parallel()
		e, sender, _, _ := newTestEngine(100, 200)
		sender.failFor = map[int64]error{
			100: errors.New("blocked"),
			200: errors.New("blocked"),
		}

		require.Error(t, e.SendTest(context.Background()))
	})
}

func TestNotifyNeverBlocks(t *testing.T) {
	t.Parallel()

	e, _, _, _ := newTestEngine(100)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range evalQueueSize * 2 {
			e.Notify()
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}
}

func TestRunConsumesQueueAndTearsDownOnCancel(t *testing.T) {
	t.Parallel()

	e, sender, ledger, settings := newTestEngine(100)
	settings.update(func(s *models.Settings) { s.AlertRate = 60 })
	ledger.set("-5000", "0", 5)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		e.Run(ctx)
	}()

	e.Notify()
	require.Eventually(t, func() bool { return sender.count() > 0 },
		time.Second, 10*time.Millisecond)
	requireActive(t, e, true)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit on context cancellation")
	}

	// The broadcast session is parented to the run context.
	after := sender.count()
	time.Sleep(1200 * time.Millisecond)
	require.Equal(t, after, sender.count())
}

func TestInterval(t *testing.T) {
	t.Parallel()

	require.Equal(t, time.Minute, Interval(1))
	require.Equal(t, 12*time.Second, Interval(5))
	require.Equal(t, time.Second, Interval(60))
	// Out-of-range rates are clamped to the slowest allowed.
	require.Equal(t, time.Minute, Interval(0))
	require.Equal(t, time.Minute, Interval(-3))
}
