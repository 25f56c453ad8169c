package lock

import "time"

// Config tunes a Manager.
type Config struct {
	Type Type
	// Timeout is the age after which any lock is stale. Zero disables it.
	Timeout time.Duration
	// DetectStale enables the dead-process and inactive-owner checks.
	DetectStale bool
	// ParticipantWindow is how long a hybrid lock owner may stay silent.
	ParticipantWindow time.Duration
	// MaxRetries is the number of extra attempts against a live lock.
	MaxRetries        int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration
	// RemoteTimeout bounds the hybrid remote probe.
	RemoteTimeout time.Duration
}

// DefaultConfig mirrors the embedded configuration defaults.
func DefaultConfig() Config {
	return Config{
		Type:              TypeHybrid,
		Timeout:           300 * time.Second,
		DetectStale:       true,
		ParticipantWindow: 24 * time.Hour,
		MaxRetries:        3,
		RetryInitialDelay: 250 * time.Millisecond,
		RetryMaxDelay:     4 * time.Second,
		RemoteTimeout:     15 * time.Second,
	}
}
