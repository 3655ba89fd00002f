package resilience

import (
	"time"
)

// FromRetryConfig converts config values to the fixed-delay RetryConfig
// batch resolution runs on. Non-positive values keep the defaults.
func FromRetryConfig(maxAttempts int, delay time.Duration) RetryConfig {
	cfg := FixedRetryConfig(3, 3*time.Second)
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if delay > 0 {
		cfg.InitialBackoff = delay
		cfg.MaxBackoff = delay
	}
	return cfg
}
