package config

const (
	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"
	EnvEnvFile  = "ENV_FILE"

	EnvRateLimitRequests  = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow    = "RATE_LIMIT_WINDOW"
	EnvCORSAllowedOrigins = "CORS_ALLOWED_ORIGINS"
	EnvTrustProxyHeaders  = "TRUST_PROXY_HEADERS"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvStoreDriver      = "STORE_DRIVER"
	EnvCalendarID       = "CALENDAR_ID"
	EnvGoogleServiceKey = "GOOGLE_SERVICE_KEY"
	EnvCalendarEndpoint = "CALENDAR_ENDPOINT"
	EnvCalendarTimeout  = "CALENDAR_TIMEOUT"

	EnvTimeZone                  = "TIMEZONE"
	EnvRequiredEmailSuffix       = "REQUIRED_EMAIL_SUFFIX"
	EnvVerificationTokenPattern  = "VERIFICATION_TOKEN_PATTERN"
	EnvVerificationTokenRequired = "VERIFICATION_TOKEN_REQUIRED"
	EnvMaxDurationMinutes        = "MAX_DURATION_MINUTES"
	EnvListWindowDays            = "LIST_WINDOW_DAYS"
	EnvCheckInEarly              = "CHECKIN_EARLY"
	EnvRooms                     = "ROOMS"

	EnvReaperEnabled = "REAPER_ENABLED"
	EnvGracePeriod   = "NO_SHOW_GRACE_PERIOD"
	EnvSweepInterval = "SWEEP_INTERVAL"
	EnvSweepLookback = "SWEEP_LOOKBACK"

	EnvLockBackend = "LOCK_BACKEND"
	EnvLockTTL     = "LOCK_TTL"
	EnvLockWait    = "LOCK_WAIT"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"
)
