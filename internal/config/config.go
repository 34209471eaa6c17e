package config

import (
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

type MySQL struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// DSN returns a go-sql-driver DSN with parseTime enabled.
func (m MySQL) DSN() string {
	c := mysql.NewConfig()
	c.User = m.User
	c.Passwd = m.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(m.Host, m.Port)
	c.DBName = m.Database
	c.ParseTime = true
	c.Loc = time.UTC
	c.MultiStatements = true
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}

type Postgres struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

func (p Postgres) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, p.Port),
		Path:     "/" + p.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

type Mongo struct {
	URI      string
	Database string
}

type AWS struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	EndpointURL     string
	Bucket          string
	BackupFolder    string
	AnalyticsFolder string
}

type DynamoTables struct {
	Movies       string
	Rooms        string
	Reservations string
	Users        string
}

type Config struct {
	MySQL    MySQL
	Postgres Postgres
	Mongo    Mongo
	AWS      AWS
	Dynamo   DynamoTables

	BatchSize  int
	MaxRetries int
	RetryDelay time.Duration

	RedisAddr    string
	RabbitURL    string
	OTLPEndpoint string
	ServiceName  string
	LogLevel     string

	HTTPPort       string
	RateLimit      int
	IdempotencyTTL time.Duration

	IngestBin string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	batchSize, err := intEnv("BATCH_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		return nil, errors.Newf("BATCH_SIZE must be positive, got %d", batchSize)
	}
	maxRetries, err := intEnv("MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	retrySeconds, err := intEnv("RETRY_DELAY", 5)
	if err != nil {
		return nil, err
	}
	rateLimit, err := intEnv("RATE_LIMIT_PER_MINUTE", 100)
	if err != nil {
		return nil, err
	}

	idempTTL := time.Hour
	if v := os.Getenv("IDEMPOTENCY_TTL"); v != "" {
		idempTTL, err = time.ParseDuration(v)
		if err != nil {
			return nil, errors.Wrapf(err, "parse IDEMPOTENCY_TTL %q", v)
		}
		if idempTTL <= 0 {
			return nil, errors.Newf("IDEMPOTENCY_TTL must be positive, got %s", v)
		}
	}

	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = envOr("AWS_DEFAULT_REGION", "us-east-1")
	}

	return &Config{
		MySQL: MySQL{
			Host:     envOr("MYSQL_HOST", "localhost"),
			Port:     envOr("MYSQL_PORT", "3307"),
			User:     envOr("MYSQL_USER", "cinema_user"),
			Password: envOr("MYSQL_PASSWORD", "cinema_password"),
			Database: envOr("MYSQL_DATABASE", "cinema_rooms"),
		},
		Postgres: Postgres{
			Host:     envOr("POSTGRES_HOST", "localhost"),
			Port:     envOr("POSTGRES_PORT", "5432"),
			User:     envOr("POSTGRES_USER", "cinema_user"),
			Password: envOr("POSTGRES_PASSWORD", "cinema_password"),
			Database: envOr("POSTGRES_DATABASE", "cinema_reservations"),
		},
		Mongo: Mongo{
			URI:      envOr("MONGODB_URI", "mongodb://localhost:27017/cinema_movies"),
			Database: envOr("MONGODB_DATABASE", "cinema_movies"),
		},
		AWS: AWS{
			Region:          region,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			EndpointURL:     os.Getenv("AWS_ENDPOINT_URL"),
			Bucket:          envOr("S3_BUCKET", "cinema-analytics-data"),
			BackupFolder:    envOr("S3_BACKUP_FOLDER", "backups"),
			AnalyticsFolder: envOr("S3_ANALYTICS_FOLDER", "analytics"),
		},
		Dynamo: DynamoTables{
			Movies:       envOr("DYNAMODB_MOVIES_TABLE", "cinema-movies"),
			Rooms:        envOr("DYNAMODB_ROOMS_TABLE", "cinema-rooms"),
			Reservations: envOr("DYNAMODB_RESERVATIONS_TABLE", "cinema-reservations"),
			Users:        envOr("DYNAMODB_USERS_TABLE", "cinema-users"),
		},
		BatchSize:      batchSize,
		MaxRetries:     maxRetries,
		RetryDelay:     time.Duration(retrySeconds) * time.Second,
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:    envOr("OTEL_SERVICE_NAME", "cinema-data"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		HTTPPort:       envOr("PORT", "3002"),
		RateLimit:      rateLimit,
		IdempotencyTTL: idempTTL,
		IngestBin:      envOr("INGEST_BIN", "ingest"),
	}, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s", key)
	}
	return v, nil
}
