package config

import "time"

// CallbackRetryConfig holds the exponential-backoff shape used to retry the
// critical completion callback of §4.4 Stage 8.
type CallbackRetryConfig struct {
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	ConnectTimeout time.Duration
	TotalTimeout   time.Duration
}

// GetCallbackRetryConfig returns the completion-callback retry configuration.
func (c Config) GetCallbackRetryConfig() CallbackRetryConfig {
	return CallbackRetryConfig{
		MaxRetries:     c.CallbackMaxRetries,
		InitialDelay:   c.CallbackInitialDelay,
		MaxDelay:       c.CallbackMaxDelay,
		Multiplier:     c.CallbackMultiplier,
		ConnectTimeout: c.CallbackConnectTimeout,
		TotalTimeout:   c.CallbackTotalTimeout,
	}
}
