package config

import "time"

const (
	QueueBackendKafka = "kafka"
	QueueBackendRedis = "redis"

	SearchBackendElasticsearch = "elasticsearch"
	SearchBackendMongo         = "mongo"

	NotifierBackendTwilio = "twilio"
	NotifierBackendLog    = "log"
)

const (
	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultDialogTimeZone = "America/New_York"

	DefaultQueueBackend           = QueueBackendKafka
	DefaultQueueVisibilityTimeout = 30 * time.Second
	DefaultQueueWaitTime          = 5 * time.Second

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisDB        = 0
	DefaultRedisQueueName = "dinebot:requests"

	DefaultMongoURI              = "mongodb://localhost:27017"
	DefaultMongoDatabaseName     = "dinebot"
	DefaultMongoConnTimeout      = 10 * time.Second
	DefaultRestaurantsCollection = "restaurants"

	DefaultSearchBackend          = SearchBackendElasticsearch
	DefaultElasticsearchAddresses = "http://localhost:9200"
	DefaultElasticsearchIndex     = "restaurants"

	DefaultNotifierBackend = NotifierBackendTwilio

	DefaultWorkerConcurrency  = 1
	DefaultWorkerPollInterval = 1 * time.Second

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultIdempotencyTTL    = 24 * time.Hour
	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)
