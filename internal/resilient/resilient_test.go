package resilient

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fastConfig keeps test sleeps negligible.
func fastConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestDo_FirstTrySucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_RetriesTransientUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Transient(errors.New("flaky"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_NonTransientShortCircuits(t *testing.T) {
	sentinel := errors.New("bad request")
	calls := 0
	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want the original error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry for non-transient)", calls)
	}
}

func TestDo_BudgetExhausted(t *testing.T) {
	sentinel := errors.New("still down")
	calls := 0
	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		return Transient(sentinel)
	})
	if calls != 3 {
		t.Errorf("calls = %d, want exactly the budget of 3", calls)
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want it to wrap the last failure", err)
	}
}

func TestDo_ClassifyHookOverridesDefault(t *testing.T) {
	cfg := fastConfig()
	cfg.Classify = func(error) bool { return true }

	calls := 0
	err := Do(context.Background(), cfg, func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("plain error, retried anyway")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

// resetErr carries a server-directed retry time.
type resetErr struct {
	at time.Time
}

func (e *resetErr) Error() string { return "rate limited" }

func (e *resetErr) WaitUntil() time.Time { return e.at }

func TestDo_WaitsUntilRateLimitReset(t *testing.T) {
	start := time.Now()
	reset := start.Add(10 * time.Millisecond)
	calls := 0

	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		if calls == 1 {
			return &resetErr{at: reset}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	// The plain resetErr is not transient; retrying it proves the
	// rate-limit path ran.
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("elapsed = %v, want at least the reset wait", elapsed)
	}
}

func TestDo_RateLimitStillBoundedByBudget(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		return &resetErr{at: time.Now()}
	})
	if calls != 3 {
		t.Errorf("calls = %d, want the budget of 3", calls)
	}
	if err == nil {
		t.Error("expected an exhaustion error")
	}
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseDelay: time.Minute, MaxDelay: time.Minute}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	calls := 0
	err := Do(ctx, cfg, func(context.Context) error {
		calls++
		return Transient(errors.New("down"))
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (canceled before the retry)", calls)
	}
}

func TestDo_CanceledBeforeFirstCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fastConfig(), func(context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestIsTransient(t *testing.T) {
	base := errors.New("base")
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", base, false},
		{"marked transient", Transient(base), true},
		{"marked permanent", Permanent(base), false},
		{"wrapped transient", fmt.Errorf("call failed: %w", Transient(base)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestBackoff_DoublesAndCaps(t *testing.T) {
	cfg := Config{BaseDelay: time.Second, MaxDelay: 5 * time.Second}

	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 5 * time.Second},
		{10, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := backoff(tt.n, cfg); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestBackoff_JitterStaysInRange(t *testing.T) {
	cfg := Config{BaseDelay: time.Second, MaxDelay: time.Minute, JitterFactor: 0.25}

	for i := 0; i < 100; i++ {
		d := backoff(1, cfg)
		if d < 1500*time.Millisecond || d > 2500*time.Millisecond {
			t.Fatalf("backoff(1) = %v, want within ±25%% of 2s", d)
		}
	}
}
