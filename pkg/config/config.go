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

	"dinebot/pkg/client"
	kafka_config "dinebot/pkg/kafka/config"
	"dinebot/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	DialogTimeZone string
	DialogLocation *time.Location

	QueueBackend           string
	QueueVisibilityTimeout time.Duration
	QueueWaitTime          time.Duration

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisQueueName string

	MongoURI              string
	MongoDatabaseName     string
	MongoConnTimeout      time.Duration
	RestaurantsCollection string

	SearchBackend          string
	ElasticsearchAddresses []string
	ElasticsearchUsername  string
	ElasticsearchPassword  string
	ElasticsearchIndex     string

	NotifierBackend  string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	WorkerConcurrency  int
	WorkerPollInterval time.Duration

	RequestTimeout time.Duration
	MaxRequestSize int

	CodeHookSecret    string
	IdempotencyTTL    time.Duration
	RateLimitRequests int
	RateLimitWindow   time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Kafka  *kafka_config.Config
	Log    *logger.Logger
	Client *client.Client
}

// Load reads an optional .env file, then the environment. Any validation
// failure is fatal.
func Load(serviceName string) *Config {
	dotenvErr := godotenv.Load()

	cfg := FromEnv()
	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: true,
		Service:   serviceName,
	})
	cfg.Client = client.NewClient()

	if dotenvErr != nil && !errors.Is(dotenvErr, fs.ErrNotExist) {
		cfg.Log.Warn("Failed to read .env file", "error", dotenvErr)
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}

	if cfg.QueueBackend == QueueBackendKafka {
		kafkaCfg, err := kafka_config.Load()
		if err != nil {
			cfg.Log.Fatal(err.Error())
		}
		cfg.Kafka = kafkaCfg
	}

	cfg.LogConfiguration()
	return cfg
}

// FromEnv builds a configuration from environment variables only, without
// validating it.
func FromEnv() *Config {
	cfg := &Config{
		Port:      getEnvStr(EnvPort, DefaultPort),
		LogLevel:  getEnvStr(EnvLogLevel, DefaultLogLevel),
		LogFormat: getEnvStr(EnvLogFormat, DefaultLogFormat),

		DialogTimeZone: getEnvStr(EnvDialogTimeZone, DefaultDialogTimeZone),

		QueueBackend:           strings.ToLower(getEnvStr(EnvQueueBackend, DefaultQueueBackend)),
		QueueVisibilityTimeout: getEnvDuration(EnvQueueVisibilityTimeout, DefaultQueueVisibilityTimeout),
		QueueWaitTime:          getEnvDuration(EnvQueueWaitTime, DefaultQueueWaitTime),

		RedisAddr:      getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword:  getEnvStr(EnvRedisPassword, ""),
		RedisDB:        getEnvNum(EnvRedisDB, DefaultRedisDB),
		RedisQueueName: getEnvStr(EnvRedisQueueName, DefaultRedisQueueName),

		MongoURI:              getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName:     getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:      getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),
		RestaurantsCollection: getEnvStr(EnvRestaurantsCollection, DefaultRestaurantsCollection),

		SearchBackend:          strings.ToLower(getEnvStr(EnvSearchBackend, DefaultSearchBackend)),
		ElasticsearchAddresses: getEnvList(EnvElasticsearchAddresses, DefaultElasticsearchAddresses),
		ElasticsearchUsername:  getEnvStr(EnvElasticsearchUsername, ""),
		ElasticsearchPassword:  getEnvStr(EnvElasticsearchPassword, ""),
		ElasticsearchIndex:     getEnvStr(EnvElasticsearchIndex, DefaultElasticsearchIndex),

		NotifierBackend:  strings.ToLower(getEnvStr(EnvNotifierBackend, DefaultNotifierBackend)),
		TwilioAccountSID: getEnvStr(EnvTwilioAccountSID, ""),
		TwilioAuthToken:  getEnvStr(EnvTwilioAuthToken, ""),
		TwilioFromNumber: getEnvStr(EnvTwilioFromNumber, ""),

		WorkerConcurrency:  getEnvNum(EnvWorkerConcurrency, DefaultWorkerConcurrency),
		WorkerPollInterval: getEnvDuration(EnvWorkerPollInterval, DefaultWorkerPollInterval),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		CodeHookSecret:    getEnvStr(EnvCodeHookSecret, ""),
		IdempotencyTTL:    getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),
	}
	return cfg
}

// Validate checks the settings every service shares and resolves the dialog
// time zone.
func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.LogFormat != logger.JSON && cfg.LogFormat != logger.TEXT {
		errors = append(errors, fmt.Sprintf("LogFormat must be one of [json, text], got: %s", cfg.LogFormat))
	}

	loc, err := time.LoadLocation(cfg.DialogTimeZone)
	if err != nil {
		errors = append(errors, fmt.Sprintf("DialogTimeZone must be an IANA time zone, got: %s", cfg.DialogTimeZone))
	} else {
		cfg.DialogLocation = loc
	}

	switch cfg.QueueBackend {
	case QueueBackendKafka:
	case QueueBackendRedis:
		if cfg.RedisAddr == "" {
			errors = append(errors, "RedisAddr cannot be empty when QueueBackend is redis")
		}
		if cfg.RedisQueueName == "" {
			errors = append(errors, "RedisQueueName cannot be empty when QueueBackend is redis")
		}
		if cfg.RedisDB < 0 {
			errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
		}
	default:
		errors = append(errors, fmt.Sprintf("QueueBackend must be one of [kafka, redis], got: %s", cfg.QueueBackend))
	}

	if cfg.QueueVisibilityTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("QueueVisibilityTimeout must be positive, got: %s", cfg.QueueVisibilityTimeout))
	}
	if cfg.QueueWaitTime <= 0 {
		errors = append(errors, fmt.Sprintf("QueueWaitTime must be positive, got: %s", cfg.QueueWaitTime))
	}

	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}

	return joinErrors(errors)
}

// ValidateWorker checks the settings only the fulfillment worker needs.
func (cfg *Config) ValidateWorker() error {
	var errors []string

	errors = append(errors, cfg.mongoErrors()...)

	switch cfg.SearchBackend {
	case SearchBackendElasticsearch:
		if len(cfg.ElasticsearchAddresses) == 0 {
			errors = append(errors, "ElasticsearchAddresses cannot be empty when SearchBackend is elasticsearch")
		}
		for _, addr := range cfg.ElasticsearchAddresses {
			if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
				errors = append(errors, fmt.Sprintf("Elasticsearch address must start with http:// or https://, got: %s", addr))
			}
		}
		if cfg.ElasticsearchIndex == "" {
			errors = append(errors, "ElasticsearchIndex cannot be empty")
		}
	case SearchBackendMongo:
	default:
		errors = append(errors, fmt.Sprintf("SearchBackend must be one of [elasticsearch, mongo], got: %s", cfg.SearchBackend))
	}

	switch cfg.NotifierBackend {
	case NotifierBackendTwilio:
		if cfg.TwilioAccountSID == "" {
			errors = append(errors, "TwilioAccountSID cannot be empty when NotifierBackend is twilio")
		}
		if cfg.TwilioAuthToken == "" {
			errors = append(errors, "TwilioAuthToken cannot be empty when NotifierBackend is twilio")
		}
		if !e164Regex.MatchString(cfg.TwilioFromNumber) {
			errors = append(errors, fmt.Sprintf("TwilioFromNumber must be in E.164 format, got: %s", cfg.TwilioFromNumber))
		}
	case NotifierBackendLog:
	default:
		errors = append(errors, fmt.Sprintf("NotifierBackend must be one of [twilio, log], got: %s", cfg.NotifierBackend))
	}

	if cfg.WorkerConcurrency <= 0 {
		errors = append(errors, fmt.Sprintf("WorkerConcurrency must be positive, got: %d", cfg.WorkerConcurrency))
	}
	if cfg.WorkerPollInterval <= 0 {
		errors = append(errors, fmt.Sprintf("WorkerPollInterval must be positive, got: %s", cfg.WorkerPollInterval))
	}

	return joinErrors(errors)
}

// ValidateMongo checks the store settings for the commands that only touch
// MongoDB.
func (cfg *Config) ValidateMongo() error {
	return joinErrors(cfg.mongoErrors())
}

var (
	mongoURIRegex = regexp.MustCompile(`^mongodb(\+srv)?://`)
	e164Regex     = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)
)

func (cfg *Config) mongoErrors() []string {
	var errors []string

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !mongoURIRegex.MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.RestaurantsCollection == "" {
		errors = append(errors, "RestaurantsCollection cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	return errors
}

func joinErrors(errors []string) error {
	if len(errors) == 0 {
		return nil
	}
	errMsg := "Configuration validation failed:\n"
	for i, err := range errors {
		errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
	}
	return fmt.Errorf("%s", errMsg)
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"log_level", cfg.LogLevel,
		"dialog_time_zone", cfg.DialogTimeZone,
		"queue_backend", cfg.QueueBackend,
		"queue_visibility_timeout", cfg.QueueVisibilityTimeout,
		"queue_wait_time", cfg.QueueWaitTime,
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"redis_queue_name", cfg.RedisQueueName,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"restaurants_collection", cfg.RestaurantsCollection,
		"search_backend", cfg.SearchBackend,
		"elasticsearch_addresses", cfg.ElasticsearchAddresses,
		"elasticsearch_index", cfg.ElasticsearchIndex,
		"elasticsearch_password_set", cfg.ElasticsearchPassword != "",
		"notifier_backend", cfg.NotifierBackend,
		"twilio_account_sid_set", cfg.TwilioAccountSID != "",
		"twilio_auth_token_set", cfg.TwilioAuthToken != "",
		"twilio_from_number", cfg.TwilioFromNumber,
		"worker_concurrency", cfg.WorkerConcurrency,
		"worker_poll_interval", cfg.WorkerPollInterval,
		"request_timeout", cfg.RequestTimeout,
		"max_request_size", cfg.MaxRequestSize,
		"codehook_secret_set", cfg.CodeHookSecret != "",
		"idempotency_ttl", cfg.IdempotencyTTL,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
	if cfg.Kafka != nil {
		cfg.Kafka.LogConfiguration(cfg.Log.Info)
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

func (cfg *Config) SetElasticsearch() {
	cfg.Client.SetElasticsearch(cfg.Log, cfg.ElasticsearchAddresses, cfg.ElasticsearchUsername, cfg.ElasticsearchPassword)
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

var credentialRegex = regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)

func redactMongoURI(uri string) string {
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	var out []string
	for _, item := range strings.Split(getEnvStr(key, fallback), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
