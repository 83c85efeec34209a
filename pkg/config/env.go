package config

const (
	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvDialogTimeZone = "DIALOG_TIME_ZONE"

	EnvQueueBackend           = "QUEUE_BACKEND"
	EnvQueueVisibilityTimeout = "QUEUE_VISIBILITY_TIMEOUT"
	EnvQueueWaitTime          = "QUEUE_WAIT_TIME"

	EnvRedisAddr      = "REDIS_ADDR"
	EnvRedisPassword  = "REDIS_PASSWORD"
	EnvRedisDB        = "REDIS_DB"
	EnvRedisQueueName = "REDIS_QUEUE_NAME"

	EnvMongoURI              = "MONGO_URI"
	EnvMongoDatabaseName     = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout      = "MONGO_CONN_TIMEOUT"
	EnvRestaurantsCollection = "RESTAURANTS_COLLECTION"

	EnvSearchBackend          = "SEARCH_BACKEND"
	EnvElasticsearchAddresses = "ELASTICSEARCH_ADDRESSES"
	EnvElasticsearchUsername  = "ELASTICSEARCH_USERNAME"
	EnvElasticsearchPassword  = "ELASTICSEARCH_PASSWORD"
	EnvElasticsearchIndex     = "ELASTICSEARCH_INDEX"

	EnvNotifierBackend  = "NOTIFIER_BACKEND"
	EnvTwilioAccountSID = "TWILIO_ACCOUNT_SID"
	EnvTwilioAuthToken  = "TWILIO_AUTH_TOKEN"
	EnvTwilioFromNumber = "TWILIO_FROM_NUMBER"

	EnvWorkerConcurrency  = "WORKER_CONCURRENCY"
	EnvWorkerPollInterval = "WORKER_POLL_INTERVAL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvCodeHookSecret    = "CODEHOOK_SECRET"
	EnvIdempotencyTTL    = "IDEMPOTENCY_TTL"
	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
