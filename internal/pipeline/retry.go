package pipeline

import (
	"context"
	"fmt"
	"time"
)

// BackoffMode selects how the retry delay grows between attempts.
type BackoffMode string

const (
	BackoffFixed       BackoffMode = "fixed"
	BackoffLinear      BackoffMode = "linear"
	BackoffExponential BackoffMode = "exponential"
)

// Policy encapsulates retry/backoff settings for flaky collaborator
// calls. It is immutable after construction and passed into the
// controller rather than hard-coded, so tests can run with a no-op
// sleeper.
type Policy struct {
	Mode        BackoffMode   `mapstructure:"mode"`
	Initial     time.Duration `mapstructure:"initial"`
	Max         time.Duration `mapstructure:"max"`
	MaxAttempts int           `mapstructure:"max-attempts"`
}

// DefaultPolicy returns the documented default: exponential, 2s initial,
// 1m cap, 3 attempts.
func DefaultPolicy() Policy {
	return Policy{Mode: BackoffExponential, Initial: 2 * time.Second, Max: time.Minute, MaxAttempts: 3}
}

// Delay returns the backoff delay after the given attempt number
// (1-based: the delay before attempt 2 is Delay(1)).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	switch p.Mode {
	case BackoffFixed:
		return p.Initial
	case BackoffLinear:
		d := time.Duration(attempt) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	default: // exponential
		d := p.Initial * (1 << (attempt - 1))
		if d > p.Max || d <= 0 {
			return p.Max
		}
		return d
	}
}

// Validate ensures the policy can be applied.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("retry initial delay must be positive")
	}
	if p.Max <= 0 {
		return fmt.Errorf("retry max delay must be positive")
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1")
	}
	return nil
}

// Sleeper waits for a backoff delay, honoring cancellation. Injectable
// so tests run without real sleeps.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
