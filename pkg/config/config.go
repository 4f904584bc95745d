package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"studyrooms/pkg/client"
	kafka_config "studyrooms/pkg/kafka/config"
	"studyrooms/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	RateLimitRequests  int
	RateLimitWindow    time.Duration
	CORSAllowedOrigins []string
	TrustProxyHeaders  bool

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	StoreDriver      string
	CalendarID       string
	GoogleServiceKey string
	CalendarEndpoint string
	CalendarTimeout  time.Duration

	TimeZone                  string
	Location                  *time.Location
	RequiredEmailSuffix       string
	VerificationTokenPattern  string
	VerificationTokenRequired bool
	MaxDurationMinutes        int
	ListWindowDays            int
	CheckInEarly              time.Duration
	Rooms                     []string

	ReaperEnabled bool
	GracePeriod   time.Duration
	SweepInterval time.Duration
	SweepLookback time.Duration

	LockBackend string
	LockTTL     time.Duration
	LockWait    time.Duration

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Kafka *kafka_config.Config

	Log    *logger.Logger
	Client *client.Client

	envFileLoaded string
}

// Load reads the configuration from the environment. Values from an optional
// .env file (ENV_FILE, default ".env") never override real variables.
func Load(serviceName string) *Config {
	envFile := getEnvStr(EnvEnvFile, DefaultEnvFile)
	loadedFrom := ""
	if err := godotenv.Load(envFile); err == nil {
		loadedFrom = envFile
	} else if !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", envFile, err)
	}

	cfg := &Config{
		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests:  getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:    getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),
		CORSAllowedOrigins: getEnvList(EnvCORSAllowedOrigins, DefaultCORSAllowedOrigins),
		TrustProxyHeaders:  getEnvBool(EnvTrustProxyHeaders, DefaultTrustProxyHeaders),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		StoreDriver:      getEnvStr(EnvStoreDriver, DefaultStoreDriver),
		CalendarID:       getEnvStr(EnvCalendarID, ""),
		GoogleServiceKey: getEnvStr(EnvGoogleServiceKey, ""),
		CalendarEndpoint: getEnvStr(EnvCalendarEndpoint, ""),
		CalendarTimeout:  getEnvDuration(EnvCalendarTimeout, DefaultCalendarTimeout),

		TimeZone:                  getEnvStr(EnvTimeZone, DefaultTimeZone),
		RequiredEmailSuffix:       getEnvStr(EnvRequiredEmailSuffix, DefaultRequiredEmailSuffix),
		VerificationTokenPattern:  getEnvStr(EnvVerificationTokenPattern, DefaultVerificationTokenPattern),
		VerificationTokenRequired: getEnvBool(EnvVerificationTokenRequired, DefaultVerificationTokenRequired),
		MaxDurationMinutes:        getEnvNum(EnvMaxDurationMinutes, DefaultMaxDurationMinutes),
		ListWindowDays:            getEnvNum(EnvListWindowDays, DefaultListWindowDays),
		CheckInEarly:              getEnvDuration(EnvCheckInEarly, DefaultCheckInEarly),
		Rooms:                     getEnvList(EnvRooms, DefaultRooms),

		ReaperEnabled: getEnvBool(EnvReaperEnabled, DefaultReaperEnabled),
		GracePeriod:   getEnvDuration(EnvGracePeriod, DefaultGracePeriod),
		SweepInterval: getEnvDuration(EnvSweepInterval, DefaultSweepInterval),
		SweepLookback: getEnvDuration(EnvSweepLookback, DefaultSweepLookback),

		LockBackend: getEnvStr(EnvLockBackend, DefaultLockBackend),
		LockTTL:     getEnvDuration(EnvLockTTL, DefaultLockTTL),
		LockWait:    getEnvDuration(EnvLockWait, DefaultLockWait),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		Kafka: kafka_config.Load(),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),

		envFileLoaded: loadedFrom,
	}

	if loc, err := time.LoadLocation(cfg.TimeZone); err == nil {
		cfg.Location = loc
	}

	return cfg
}

// SetClients opens the connections required by the selected drivers.
func (cfg *Config) SetClients() {
	if cfg.StoreDriver == StoreDriverGoogle {
		cfg.Client.SetCalendar(cfg.Log, client.CalendarOptions{
			ServiceAccountJSON: cfg.GoogleServiceKey,
			Endpoint:           cfg.CalendarEndpoint,
		})
	}

	switch cfg.LockBackend {
	case LockBackendMongo:
		cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
	case LockBackendRedis:
		cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
	}
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StoreDriver {
	case StoreDriverGoogle:
		if cfg.CalendarID == "" {
			errors = append(errors, "CalendarID cannot be empty when STORE_DRIVER=google")
		}
		if cfg.GoogleServiceKey == "" {
			errors = append(errors, "GoogleServiceKey cannot be empty when STORE_DRIVER=google")
		}
	case StoreDriverMemory:
	default:
		errors = append(errors, fmt.Sprintf("StoreDriver must be one of [google, memory], got: %s", cfg.StoreDriver))
	}

	if cfg.Location == nil {
		errors = append(errors, fmt.Sprintf("TimeZone must be a valid IANA zone, got: %s", cfg.TimeZone))
	}
	if cfg.RequiredEmailSuffix == "" || !strings.HasPrefix(cfg.RequiredEmailSuffix, "@") {
		errors = append(errors, fmt.Sprintf("RequiredEmailSuffix must start with '@', got: %q", cfg.RequiredEmailSuffix))
	}
	if _, err := regexp.Compile(cfg.VerificationTokenPattern); err != nil {
		errors = append(errors, fmt.Sprintf("VerificationTokenPattern is not a valid regular expression: %v", err))
	}
	if cfg.MaxDurationMinutes <= 0 {
		errors = append(errors, fmt.Sprintf("MaxDurationMinutes must be positive, got: %d", cfg.MaxDurationMinutes))
	}
	if cfg.ListWindowDays <= 0 {
		errors = append(errors, fmt.Sprintf("ListWindowDays must be positive, got: %d", cfg.ListWindowDays))
	}
	if cfg.CheckInEarly < 0 {
		errors = append(errors, fmt.Sprintf("CheckInEarly cannot be negative, got: %s", cfg.CheckInEarly))
	}

	if cfg.GracePeriod <= 0 {
		errors = append(errors, fmt.Sprintf("GracePeriod must be positive, got: %s", cfg.GracePeriod))
	}
	if cfg.SweepInterval <= 0 {
		errors = append(errors, fmt.Sprintf("SweepInterval must be positive, got: %s", cfg.SweepInterval))
	}
	if cfg.SweepLookback < cfg.GracePeriod {
		errors = append(errors, fmt.Sprintf("SweepLookback (%s) must be >= GracePeriod (%s)", cfg.SweepLookback, cfg.GracePeriod))
	}

	switch cfg.LockBackend {
	case LockBackendNone, LockBackendMemory, LockBackendRedis:
	case LockBackendMongo:
		if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
	default:
		errors = append(errors, fmt.Sprintf("LockBackend must be one of [none, memory, mongo, redis], got: %s", cfg.LockBackend))
	}
	if cfg.LockTTL <= 0 {
		errors = append(errors, fmt.Sprintf("LockTTL must be positive, got: %s", cfg.LockTTL))
	} else if cfg.LockTTL <= 2*cfg.CalendarTimeout {
		// A booking lists and then inserts while holding the lock.
		errors = append(errors, fmt.Sprintf("LockTTL (%s) must be greater than twice CalendarTimeout (%s)", cfg.LockTTL, cfg.CalendarTimeout))
	}
	if cfg.LockWait < 0 {
		errors = append(errors, fmt.Sprintf("LockWait cannot be negative, got: %s", cfg.LockWait))
	}

	for name, d := range map[string]time.Duration{
		"CalendarTimeout":  cfg.CalendarTimeout,
		"MongoConnTimeout": cfg.MongoConnTimeout,
		"RateLimitWindow":  cfg.RateLimitWindow,
		"RequestTimeout":   cfg.RequestTimeout,
		"IdempotencyTTL":   cfg.IdempotencyTTL,
		"ReadTimeout":      cfg.ReadTimeout,
		"WriteTimeout":     cfg.WriteTimeout,
		"IdleTimeout":      cfg.IdleTimeout,
		"ShutdownTimeout":  cfg.ShutdownTimeout,
	} {
		if d <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", name, d))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.Kafka != nil {
		if err := cfg.Kafka.Validate(); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"env_file", cfg.envFileLoaded,
		"port", cfg.Port,
		"store_driver", cfg.StoreDriver,
		"calendar_id", cfg.CalendarID,
		"google_service_key_set", cfg.GoogleServiceKey != "",
		"calendar_endpoint", cfg.CalendarEndpoint,
		"calendar_timeout", cfg.CalendarTimeout,
		"timezone", cfg.TimeZone,
		"required_email_suffix", cfg.RequiredEmailSuffix,
		"verification_token_pattern", cfg.VerificationTokenPattern,
		"verification_token_required", cfg.VerificationTokenRequired,
		"max_duration_minutes", cfg.MaxDurationMinutes,
		"list_window_days", cfg.ListWindowDays,
		"checkin_early", cfg.CheckInEarly,
		"rooms", cfg.Rooms,
		"reaper_enabled", cfg.ReaperEnabled,
		"grace_period", cfg.GracePeriod,
		"sweep_interval", cfg.SweepInterval,
		"sweep_lookback", cfg.SweepLookback,
		"lock_backend", cfg.LockBackend,
		"lock_ttl", cfg.LockTTL,
		"lock_wait", cfg.LockWait,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"cors_allowed_origins", cfg.CORSAllowedOrigins,
		"trust_proxy_headers", cfg.TrustProxyHeaders,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
	if cfg.Kafka != nil {
		cfg.Kafka.LogConfiguration(cfg.Log.Info)
	}
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnvStr(key, fallback)
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
