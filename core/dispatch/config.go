package dispatch

import "time"

// Config defines dispatch-related settings.
type Config struct {
	// DefaultTTLMinutes bounds offers when publish is called with no TTL.
	DefaultTTLMinutes int `json:"default_ttl_minutes"`
	// PresenceFreshnessSeconds is the window within which a live-tracked
	// position is trusted over the fixed profile coordinate.
	PresenceFreshnessSeconds int `json:"presence_freshness_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.DefaultTTLMinutes <= 0 {
		c.DefaultTTLMinutes = 30
	}
	if c.PresenceFreshnessSeconds <= 0 {
		c.PresenceFreshnessSeconds = 300
	}
}

// DefaultTTL returns the configured TTL as a duration.
func (c Config) DefaultTTL() time.Duration {
	return time.Duration(c.DefaultTTLMinutes) * time.Minute
}

// PresenceFreshness returns the configured freshness window as a duration.
func (c Config) PresenceFreshness() time.Duration {
	return time.Duration(c.PresenceFreshnessSeconds) * time.Second
}
