package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	Square     SquareConfig
	Vision     VisionConfig
	Delivery   DeliveryConfig
	Commission CommissionConfig
	Orders     OrdersConfig
	RateLimit  RateLimitConfig
	GCP        GCPConfig
	PubSub     PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Commission.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"YARDTRACK_APP_ENV" required:"true"`
	Port         string `envconfig:"YARDTRACK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"YARDTRACK_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"YARDTRACK_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"YARDTRACK_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"YARDTRACK_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"YARDTRACK_DB_DSN"`
	Driver string `envconfig:"YARDTRACK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"YARDTRACK_DB_HOST"`
	Port     int    `envconfig:"YARDTRACK_DB_PORT" default:"5432"`
	User     string `envconfig:"YARDTRACK_DB_USER"`
	Password string `envconfig:"YARDTRACK_DB_PASSWORD"`
	Name     string `envconfig:"YARDTRACK_DB_NAME"`
	SSLMode  string `envconfig:"YARDTRACK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"YARDTRACK_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"YARDTRACK_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"YARDTRACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"YARDTRACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQueryThreshold logs statements slower than this; zero disables it.
	SlowQueryThreshold time.Duration `envconfig:"YARDTRACK_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"YARDTRACK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"YARDTRACK_REDIS_ADDR"`
	Password     string        `envconfig:"YARDTRACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"YARDTRACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"YARDTRACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"YARDTRACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"YARDTRACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"YARDTRACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"YARDTRACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"YARDTRACK_SQUARE_ACCESS_TOKEN" required:"true"`
	Env         string `envconfig:"YARDTRACK_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"YARDTRACK_SQUARE_LOCATION_ID" required:"true"`
	// WebhookSignatureKey disables signature verification when empty.
	WebhookSignatureKey    string        `envconfig:"YARDTRACK_SQUARE_WEBHOOK_SIGNATURE_KEY"`
	WebhookNotificationURL string        `envconfig:"YARDTRACK_SQUARE_WEBHOOK_NOTIFICATION_URL"`
	WebhookEventTTL        time.Duration `envconfig:"YARDTRACK_SQUARE_WEBHOOK_EVENT_TTL" default:"72h"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type VisionConfig struct {
	APIKey         string        `envconfig:"YARDTRACK_ANTHROPIC_API_KEY"`
	BaseURL        string        `envconfig:"YARDTRACK_VISION_BASE_URL" default:"https://api.anthropic.com"`
	Model          string        `envconfig:"YARDTRACK_VISION_MODEL" default:"claude-sonnet-4-20250514"`
	MaxTokens      int           `envconfig:"YARDTRACK_VISION_MAX_TOKENS" default:"1024"`
	Timeout        time.Duration `envconfig:"YARDTRACK_VISION_TIMEOUT" default:"30s"`
	ImageMaxWidth  int           `envconfig:"YARDTRACK_VISION_IMAGE_MAX_WIDTH" default:"1568"`
	ImageMaxHeight int           `envconfig:"YARDTRACK_VISION_IMAGE_MAX_HEIGHT" default:"1568"`
	ImageQuality   int           `envconfig:"YARDTRACK_VISION_IMAGE_QUALITY" default:"85"`
	MaxUploadMB    int           `envconfig:"YARDTRACK_VISION_MAX_UPLOAD_MB" default:"10"`
}

type DeliveryConfig struct {
	SlotsPerTruck int `envconfig:"YARDTRACK_DELIVERY_SLOTS_PER_TRUCK" default:"8"`
}

type CommissionConfig struct {
	Rate          string `envconfig:"YARDTRACK_COMMISSION_RATE" default:"0.03"`
	CardSurcharge string `envconfig:"YARDTRACK_CARD_SURCHARGE" default:"1.035"`
	SalesTax      string `envconfig:"YARDTRACK_SALES_TAX" default:"1.0825"`
}

func (c CommissionConfig) validate() error {
	for name, raw := range map[string]string{
		EnvCommissionRate: c.Rate,
		EnvCardSurcharge:  c.CardSurcharge,
		EnvSalesTax:       c.SalesTax,
	} {
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if !d.IsPositive() {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

// Factors returns the parsed commission rate and the two price factors
// removed from a card total to recover the pre-surcharge, pre-tax subtotal.
func (c CommissionConfig) Factors() (rate, surcharge, tax decimal.Decimal) {
	rate = decimal.RequireFromString(strings.TrimSpace(c.Rate))
	surcharge = decimal.RequireFromString(strings.TrimSpace(c.CardSurcharge))
	tax = decimal.RequireFromString(strings.TrimSpace(c.SalesTax))
	return rate, surcharge, tax
}

type OrdersConfig struct {
	LockTTL        time.Duration `envconfig:"YARDTRACK_ORDERS_LOCK_TTL" default:"30s"`
	IdempotencyTTL time.Duration `envconfig:"YARDTRACK_ORDERS_IDEMPOTENCY_TTL" default:"24h"`
}

// RateLimitConfig throttles ticket extraction per client IP; zero disables it.
type RateLimitConfig struct {
	TicketExtractLimit  int           `envconfig:"YARDTRACK_RATE_LIMIT_TICKET_EXTRACT" default:"20"`
	TicketExtractWindow time.Duration `envconfig:"YARDTRACK_RATE_LIMIT_TICKET_EXTRACT_WINDOW" default:"1m"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"YARDTRACK_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"YARDTRACK_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	// AlertsTopic enables reconciliation alerts when set together with GCP.ProjectID.
	AlertsTopic string `envconfig:"YARDTRACK_PUBSUB_ALERTS_TOPIC"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
