package config

const (
	EnvPrefix = "YARDTRACK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv      = "YARDTRACK_APP_ENV"
	EnvPort        = "YARDTRACK_APP_PORT"
	EnvLogLevel    = "YARDTRACK_LOG_LEVEL"
	EnvAutoMigrate = "YARDTRACK_AUTO_MIGRATE"

	EnvDBDSN  = "YARDTRACK_DB_DSN"
	EnvDBHost = "YARDTRACK_DB_HOST"
	EnvDBUser = "YARDTRACK_DB_USER"
	EnvDBName = "YARDTRACK_DB_NAME"

	EnvRedisURL = "YARDTRACK_REDIS_URL"

	EnvSquareAccessToken   = "YARDTRACK_SQUARE_ACCESS_TOKEN"
	EnvSquareEnv           = "YARDTRACK_SQUARE_ENV"
	EnvSquareLocationID    = "YARDTRACK_SQUARE_LOCATION_ID"
	EnvSquareSignatureKey  = "YARDTRACK_SQUARE_WEBHOOK_SIGNATURE_KEY"
	EnvSquareWebhookURL    = "YARDTRACK_SQUARE_WEBHOOK_NOTIFICATION_URL"
	EnvAnthropicAPIKey     = "YARDTRACK_ANTHROPIC_API_KEY"
	EnvDeliverySlots       = "YARDTRACK_DELIVERY_SLOTS_PER_TRUCK"
	EnvCommissionRate      = "YARDTRACK_COMMISSION_RATE"
	EnvCardSurcharge       = "YARDTRACK_CARD_SURCHARGE"
	EnvSalesTax            = "YARDTRACK_SALES_TAX"
	EnvGCPProjectID        = "YARDTRACK_GCP_PROJECT_ID"
	EnvPubSubAlertsTopic   = "YARDTRACK_PUBSUB_ALERTS_TOPIC"
	EnvGCPCredentialsJSON  = "YARDTRACK_GCP_CREDENTIALS_JSON"
	EnvVisionImageMaxWidth = "YARDTRACK_VISION_IMAGE_MAX_WIDTH"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
