package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Config is the daemon configuration. Files may be YAML or JSON; both
// are decoded strictly (unknown fields are rejected).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
	Notify    *NotifyConfig   `json:"notify,omitempty"`
	Digest    *DigestConfig   `json:"digest,omitempty"`
	Listeners map[string]bool `json:"listeners,omitempty"`
	Seed      string          `json:"seed,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console bool          `json:"console"`
	File    LogFileConfig `json:"file"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig selects the event-history backend.
// Driver: "file", "sqlite", or ""/"none" to disable.
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
	KeepDays    int    `json:"keep_days,omitempty"`
}

// NotifyConfig controls the async delivery pipeline behind the hub.
// If the whole section is omitted, the dispatcher defaults to enabled.
type NotifyConfig struct {
	Enabled       bool   `json:"enabled"`
	Workers       int    `json:"workers,omitempty"`
	QueueSize     int    `json:"queue_size,omitempty"`
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
}

// DigestConfig controls the daily timetable digest.
// At accepts a cron expression or "HH:MM" (daily at that local time).
type DigestConfig struct {
	Enabled  bool   `json:"enabled"`
	At       string `json:"at,omitempty"`
	Timezone string `json:"timezone,omitempty"` // IANA TZ, e.g. "Asia/Jakarta"
}

// Duration parses one of the config's duration fields. The empty
// string means "not set" and parses to zero; negative durations are
// rejected. field names the offending key in errors, e.g.
// "notify.retry_base".
func Duration(field, raw string) (time.Duration, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: duration %q is negative", field, raw)
	}
	return d, nil
}

// Clone deep-copies via JSON round trip; fine at config scale.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	var out Config
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return &out
}
