package pipeline

import (
	"context"
	"testing"
	"time"
)

func TestPolicyDelay(t *testing.T) {
	cases := []struct {
		name    string
		policy  Policy
		attempt int
		want    time.Duration
	}{
		{"fixed stays flat", Policy{Mode: BackoffFixed, Initial: 2 * time.Second, Max: time.Minute}, 5, 2 * time.Second},
		{"linear grows", Policy{Mode: BackoffLinear, Initial: 2 * time.Second, Max: time.Minute}, 3, 6 * time.Second},
		{"linear capped", Policy{Mode: BackoffLinear, Initial: 30 * time.Second, Max: time.Minute}, 10, time.Minute},
		{"exponential first", Policy{Mode: BackoffExponential, Initial: 2 * time.Second, Max: time.Minute}, 1, 2 * time.Second},
		{"exponential second", Policy{Mode: BackoffExponential, Initial: 2 * time.Second, Max: time.Minute}, 2, 4 * time.Second},
		{"exponential third", Policy{Mode: BackoffExponential, Initial: 2 * time.Second, Max: time.Minute}, 3, 8 * time.Second},
		{"exponential capped", Policy{Mode: BackoffExponential, Initial: 2 * time.Second, Max: time.Minute}, 10, time.Minute},
		{"overflow falls to cap", Policy{Mode: BackoffExponential, Initial: time.Hour, Max: 2 * time.Hour}, 63, 2 * time.Hour},
		{"zero attempt", DefaultPolicy(), 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.policy.Delay(tc.attempt); got != tc.want {
				t.Fatalf("Delay(%d) = %v, want %v", tc.attempt, got, tc.want)
			}
		})
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy must validate: %v", err)
	}

	cases := []struct {
		name   string
		policy Policy
	}{
		{"zero initial", Policy{Mode: BackoffFixed, Max: time.Minute, MaxAttempts: 3}},
		{"zero max", Policy{Mode: BackoffFixed, Initial: time.Second, MaxAttempts: 3}},
		{"zero attempts", Policy{Mode: BackoffFixed, Initial: time.Second, Max: time.Minute}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.policy.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestSleepContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleepContext(ctx, time.Minute)
	if err == nil {
		t.Fatal("expected a cancellation error")
	}
	if time.Since(start) > time.Second {
		t.Fatal("sleep did not abort on cancellation")
	}
}

func TestSleepContextZeroDelay(t *testing.T) {
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
