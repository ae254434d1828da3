package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyConfigFile string = "PRINTWATCH_CONFIG_FILE"
	EnvKeyLogDir     string = "PRINTWATCH_LOG_DIR"

	EnvKeyDBType string = "PRINTWATCH_DB_TYPE"
	EnvKeyDbPath string = "PRINTWATCH_DB_PATH"

	EnvKeyHttpHostPort string = "PRINTWATCH_HTTP_HOST_PORT"
	EnvKeyGrpcHostPort string = "PRINTWATCH_GRPC_HOST_PORT"

	EnvKeyRefreshRate  string = "PRINTWATCH_REFRESH_RATE"
	EnvKeyRefreshBurst string = "PRINTWATCH_REFRESH_BURST"

	EnvKeyPollConcurrency string = "PRINTWATCH_POLL_CONCURRENCY"

	EnvKeySNMPCommunity string = "SNMP_COMMUNITY"
	EnvKeySNMPPort      string = "SNMP_PORT"
	EnvKeySNMPTimeout   string = "SNMP_TIMEOUT"
	EnvKeyWebTimeout    string = "WEB_TIMEOUT"

	EnvKeyAlertCooldownMinutes string = "ALERT_COOLDOWN_MINUTES"

	EnvKeySMTPHost          string = "SMTP_HOST"
	EnvKeySMTPPort          string = "SMTP_PORT"
	EnvKeySMTPUser          string = "SMTP_USER"
	EnvKeySMTPPass          string = "SMTP_PASS"
	EnvKeySMTPSecure        string = "SMTP_SECURE"
	EnvKeyFromEmail         string = "FROM_EMAIL"
	EnvKeyMailRatePerMinute string = "MAIL_RATE_PER_MINUTE"

	EnvKeyPublicLinkSecret string = "PUBLIC_LINK_SECRET"
	EnvKeyPublicBaseURL    string = "PUBLIC_BASE_URL"
	EnvKeyPublicLinkTTL    string = "PUBLIC_LINK_TTL"

	EnvKeyMQTTBroker      string = "MQTT_BROKER"
	EnvKeyMQTTUsername    string = "MQTT_USERNAME"
	EnvKeyMQTTPassword    string = "MQTT_PASSWORD"
	EnvKeyMQTTTopicPrefix string = "MQTT_TOPIC_PREFIX"

	LoggerNameMonitorCore   string = "monitor_core"
	LoggerNameRestfulServer string = "restful_server"
	LoggerNameGrpcServer    string = "grpc_server"
	LoggerFieldCategory     string = "category"
	LoggerCategoryPoll      string = "poll"
	LoggerCategoryAlert     string = "alert"
	LoggerCategoryDevice    string = "device"
	LoggerCategoryNotify    string = "notify"
	LoggerCategoryLink      string = "link"
	LoggerCategoryEvents    string = "events"
	LoggerCategoryStore     string = "store"
)
