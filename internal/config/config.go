package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

const (
	DriverMySQL  = "mysql"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	StorageDriver string
	MySQLDSN      string
	MongoURI      string
	MongoDB       string

	// RedisAddr empty disables Idempotency-Key handling.
	RedisAddr string

	// KafkaBrokers empty routes order events to the log.
	KafkaBrokers string
	KafkaTopic   string

	JWTSecret            string
	CommunityEmailDomain string

	OTPCost        int
	EventQueueSize int
	EventWorkers   int

	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: ignoring .env: %v", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		GRPCAddr:             getenv("GRPC_ADDR", ":50051"),
		StorageDriver:        strings.ToLower(getenv("STORAGE_DRIVER", DriverMySQL)),
		MySQLDSN:             getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/campus_market?parseTime=true&clientFoundRows=true"),
		MongoURI:             getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:              getenv("MONGO_DB", "campus_market"),
		RedisAddr:            getenv("REDIS_ADDR", ""),
		KafkaBrokers:         getenv("KAFKA_BROKERS", ""),
		KafkaTopic:           getenv("KAFKA_TOPIC", "campus-market.orders"),
		JWTSecret:            getenv("JWT_SECRET", ""),
		CommunityEmailDomain: strings.ToLower(getenv("COMMUNITY_EMAIL_DOMAIN", "")),
		CORSOrigins:          splitList(getenv("CORS_ORIGINS", "*")),
	}

	var errs []error
	cfg.OTPCost = getInt("OTP_COST", 10, &errs)
	cfg.EventQueueSize = getInt("EVENT_QUEUE_SIZE", 1000, &errs)
	cfg.EventWorkers = getInt("EVENT_WORKERS", 4, &errs)
	cfg.RateLimitBurst = getInt("RATE_LIMIT_BURST", 40, &errs)
	cfg.RateLimitRPS = getFloat("RATE_LIMIT_RPS", 20, &errs)
	cfg.RequestTimeout = getDuration("REQUEST_TIMEOUT", 10*time.Second, &errs)

	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch cfg.StorageDriver {
	case DriverMySQL, DriverMongo, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER %q is not one of mysql, mongo, memory", cfg.StorageDriver))
	}
	if cfg.StorageDriver == DriverMySQL {
		if err := checkMySQLDSN(cfg.MySQLDSN); err != nil {
			errs = append(errs, err)
		}
	}
	if cfg.EventQueueSize < 1 {
		errs = append(errs, errors.New("EVENT_QUEUE_SIZE must be positive"))
	}
	if cfg.EventWorkers < 1 {
		errs = append(errs, errors.New("EVENT_WORKERS must be positive"))
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// checkMySQLDSN rejects DSNs the storage adapter cannot work with: times must
// scan into time.Time and no-op UPDATEs must still count as matched.
func checkMySQLDSN(dsn string) error {
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return fmt.Errorf("MYSQL_DSN: %w", err)
	}
	if !parsed.ParseTime || !parsed.ClientFoundRows {
		return errors.New("MYSQL_DSN must set parseTime=true and clientFoundRows=true")
	}
	return nil
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func getInt(k string, def int, errs *[]error) int {
	v := getenv(k, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return n
}

func getFloat(k string, def float64, errs *[]error) float64 {
	v := getenv(k, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return f
}

func getDuration(k string, def time.Duration, errs *[]error) time.Duration {
	v := getenv(k, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return d
}

func splitList(csv string) []string {
	out := []string{}
	for _, s := range strings.Split(csv, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
