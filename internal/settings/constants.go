package settings

// DB config keys and defaults for settings.
const (
	// QuotaEventsRetentionDaysKey controls how long quota events are kept.
	QuotaEventsRetentionDaysKey = "QUOTA_EVENTS_RETENTION_DAYS"
	// LimitCacheTTLSecondsKey controls the effective-limit cache TTL in seconds.
	LimitCacheTTLSecondsKey = "LIMIT_CACHE_TTL_SECONDS"
	// DefaultQuotaEventsRetentionDays is the fallback retention window (days).
	DefaultQuotaEventsRetentionDays = 90
	// DefaultLimitCacheTTLSeconds is the fallback cache TTL (seconds).
	DefaultLimitCacheTTLSeconds = 300
)
