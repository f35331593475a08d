package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	StoreDriver string // postgres / memory

	Postgres PostgresConfig
	Redis    RedisConfig
	Mongo    MongoConfig
	Payment  PaymentConfig
	Log      LogConfig

	AuditSink string // database / mongo

	JWTSecret string // JWT署名シークレット

	//trueのときだけ遷移表を強制する
	StrictTransitions bool
}

type PostgresConfig struct {
	URL      string // DATABASE_URLがあれば最優先
	Host     string
	Port     int
	User     string
	Password string
	DB       string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string // 空ならキャッシュなし
	Password string
	DB       int
	PoolSize int
}

type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

type PaymentConfig struct {
	SecretKey   string // 空なら決済は未設定扱い
	BaseURL     string
	CallbackURL string
	Timeout     time.Duration
	Currency    string
	//処理手数料（%）
	ProcessingFeePercent decimal.Decimal
}

type LogConfig struct {
	Level       string
	Encoding    string
	OutputPaths []string
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	AuditSinkDatabase = "database"
	AuditSinkMongo    = "mongo"
)

// .envがあれば読み込んでから環境変数を見る
func Load() (Config, error) {
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	v.AutomaticEnv()
	setDefaults(v)

	fee, err := decimal.NewFromString(v.GetString("PROCESSING_FEE_PERCENT"))
	if err != nil {
		return Config{}, fmt.Errorf("PROCESSING_FEE_PERCENT must be number: %w", err)
	}

	cfg := Config{
		Port:        v.GetString("PORT"),
		GoEnv:       v.GetString("GO_ENV"),
		StoreDriver: strings.ToLower(v.GetString("STORE_DRIVER")),

		Postgres: PostgresConfig{
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetInt("POSTGRES_PORT"),
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
			DB:       v.GetString("POSTGRES_DB"),
			SSLMode:  v.GetString("POSTGRES_SSLMODE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			PoolSize: v.GetInt("REDIS_POOL_SIZE"),
		},
		Mongo: MongoConfig{
			URI:        v.GetString("MONGO_URI"),
			Database:   v.GetString("MONGO_DATABASE"),
			Collection: v.GetString("MONGO_COLLECTION"),
		},
		Payment: PaymentConfig{
			SecretKey:            v.GetString("PAYSTACK_SECRET_KEY"),
			BaseURL:              strings.TrimRight(v.GetString("PAYSTACK_BASE_URL"), "/"),
			CallbackURL:          v.GetString("PAYMENT_CALLBACK_URL"),
			Timeout:              v.GetDuration("PAYMENT_TIMEOUT"),
			Currency:             strings.ToUpper(v.GetString("CURRENCY")),
			ProcessingFeePercent: fee,
		},
		Log: LogConfig{
			Level:       v.GetString("LOG_LEVEL"),
			Encoding:    v.GetString("LOG_ENCODING"),
			OutputPaths: splitList(v.GetString("LOG_OUTPUT_PATHS")),
		},
		AuditSink:         strings.ToLower(v.GetString("AUDIT_SINK")),
		JWTSecret:         v.GetString("JWT_SECRET"),
		StrictTransitions: v.GetBool("ORDER_STRICT_TRANSITIONS"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GO_ENV", "dev")
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("MONGO_DATABASE", "kiyumart")
	v.SetDefault("MONGO_COLLECTION", "audit_logs")
	v.SetDefault("AUDIT_SINK", AuditSinkDatabase)
	v.SetDefault("PAYSTACK_BASE_URL", "https://api.paystack.co")
	v.SetDefault("PAYMENT_TIMEOUT", "15s")
	v.SetDefault("CURRENCY", "GHS")
	v.SetDefault("PROCESSING_FEE_PERCENT", "1.95")
	v.SetDefault("ORDER_STRICT_TRANSITIONS", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_ENCODING", "json")
	v.SetDefault("LOG_OUTPUT_PATHS", "stdout")
}

func (c Config) validate() error {
	//必須チェック
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	switch c.StoreDriver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		if c.Postgres.URL == "" {
			if c.Postgres.User == "" {
				return fmt.Errorf("POSTGRES_USER is required")
			}
			if c.Postgres.Password == "" {
				return fmt.Errorf("POSTGRES_PASSWORD is required")
			}
			if c.Postgres.DB == "" {
				return fmt.Errorf("POSTGRES_DB is required")
			}
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %s or %s", StoreDriverPostgres, StoreDriverMemory)
	}

	switch c.AuditSink {
	case AuditSinkDatabase:
	case AuditSinkMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("MONGO_URI is required when AUDIT_SINK=mongo")
		}
	default:
		return fmt.Errorf("AUDIT_SINK must be %s or %s", AuditSinkDatabase, AuditSinkMongo)
	}

	if c.Payment.Timeout <= 0 {
		return fmt.Errorf("PAYMENT_TIMEOUT must be positive")
	}
	if c.Payment.ProcessingFeePercent.IsNegative() {
		return fmt.Errorf("PROCESSING_FEE_PERCENT must not be negative")
	}
	if len(c.Payment.Currency) != 3 {
		return fmt.Errorf("CURRENCY must be a 3-letter code")
	}
	return nil
}

// 決済ゲートウェイが使えるか（シークレットキーの有無）
func (c PaymentConfig) Configured() bool {
	return strings.TrimSpace(c.SecretKey) != ""
}

func (c PostgresConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode,
	)
}

func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func splitList(s string) []string {
	out := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
