package config

import "time"

const (
	StoreDriverGoogle = "google"
	StoreDriverMemory = "memory"

	LockBackendNone   = "none"
	LockBackendMemory = "memory"
	LockBackendMongo  = "mongo"
	LockBackendRedis  = "redis"
)

const (
	DefaultPort     = "3000"
	DefaultLogLevel = "info"
	DefaultEnvFile  = ".env"

	DefaultRateLimitRequests  = 30
	DefaultRateLimitWindow    = 1 * time.Minute
	DefaultCORSAllowedOrigins = ""
	DefaultTrustProxyHeaders  = false

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 64 * 1024 // 64KB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 35 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultStoreDriver     = StoreDriverGoogle
	DefaultCalendarTimeout = 10 * time.Second

	DefaultTimeZone                  = "America/New_York"
	DefaultRequiredEmailSuffix       = "@organization.edu"
	DefaultVerificationTokenPattern  = `^N\d{8}$`
	DefaultVerificationTokenRequired = true
	DefaultMaxDurationMinutes        = 240
	DefaultListWindowDays            = 7
	DefaultCheckInEarly              = 10 * time.Minute
	DefaultRooms                     = ""

	DefaultReaperEnabled = true
	DefaultGracePeriod   = 15 * time.Minute
	DefaultSweepInterval = 5 * time.Minute
	DefaultSweepLookback = 1 * time.Hour

	DefaultLockBackend = LockBackendMemory
	DefaultLockTTL     = 30 * time.Second
	DefaultLockWait    = 3 * time.Second

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "studyrooms"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0
)
