package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "slotly"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr = "localhost:6379"

	DefaultPort = "8080"

	DefaultAuthTokenTTL = 30 * time.Minute

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultSlotLockTTL           = 10 * time.Second
	DefaultSlotLockRetryAttempts = 3
	DefaultSlotLockRetryBackoff  = 150 * time.Millisecond

	DefaultSMTPHost      = "localhost"
	DefaultSMTPPort      = "587"
	DefaultEmailFrom     = "no-reply@slotly.local"
	DefaultEmailFromName = "Slotly"

	DefaultPaginationLimit = 100
)
