package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"liyu1981.xyz/printwatch-service/pkg/common"
	"liyu1981.xyz/printwatch-service/pkg/notify"
)

const (
	DefaultHTTPHostPort      = ":3000"
	DefaultRefreshRate       = 1.0
	DefaultRefreshBurst      = 3
	DefaultPollConcurrency   = 16
	DefaultSNMPCommunity     = "public"
	DefaultSNMPPort          = 161
	DefaultSNMPTimeout       = 2 * time.Second
	DefaultWebTimeout        = 3 * time.Second
	DefaultAlertCooldown     = 60 * time.Minute
	DefaultSMTPPort          = 587
	DefaultMailRatePerMinute = 60
	DefaultPublicBaseURL     = "http://localhost:3000"
	DefaultLinkTTL           = 24 * time.Hour
	DefaultMQTTTopicPrefix   = "printwatch"
)

type SNMPConfig struct {
	Community string
	Port      uint16
	Timeout   time.Duration
}

type MQTTConfig struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
}

func (c MQTTConfig) Enabled() bool {
	return c.Broker != ""
}

type Config struct {
	DBType       string
	HTTPHostPort string
	GRPCHostPort string

	RefreshRate  float64
	RefreshBurst int

	PollConcurrency int
	SNMP            SNMPConfig
	WebTimeout      time.Duration
	AlertCooldown   time.Duration

	SMTP              notify.SMTPConfig
	FromEmail         string
	MailRatePerMinute int

	PublicLinkSecret string
	PublicBaseURL    string
	PublicLinkTTL    time.Duration

	MQTT MQTTConfig
}

// Load reads .env (if present), then the YAML file named by
// PRINTWATCH_CONFIG_FILE, then the process environment. Keys already set in
// the environment are never overridden.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path := strings.TrimSpace(os.Getenv(common.EnvKeyConfigFile)); path != "" {
		if err := ApplyFile(path); err != nil {
			return nil, err
		}
	}

	return FromEnv()
}

// ApplyFile exports the keys of a flat YAML mapping (KEY: value) into the
// environment, skipping keys the environment already has.
func ApplyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var values map[string]string
	if err := yaml.Unmarshal(b, &values); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	applied := 0
	for key, value := range values {
		if _, found := os.LookupEnv(key); found {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
		applied++
	}

	common.GetLogger().Info("Config file applied",
		zap.String("path", path), zap.Int("keys", applied))
	return nil
}

// FromEnv builds a Config from the current environment, with defaults for
// anything unset.
func FromEnv() (*Config, error) {
	r := &envReader{}

	snmpPort := r.int(common.EnvKeySNMPPort, DefaultSNMPPort)
	if snmpPort < 1 || snmpPort > 65535 {
		r.fail(common.EnvKeySNMPPort, strconv.Itoa(snmpPort), "a port number")
	}

	cfg := &Config{
		DBType:       r.str(common.EnvKeyDBType, "file"),
		HTTPHostPort: r.str(common.EnvKeyHttpHostPort, DefaultHTTPHostPort),
		GRPCHostPort: r.str(common.EnvKeyGrpcHostPort, ""),

		RefreshRate:     r.float(common.EnvKeyRefreshRate, DefaultRefreshRate),
		RefreshBurst:    r.int(common.EnvKeyRefreshBurst, DefaultRefreshBurst),
		PollConcurrency: r.int(common.EnvKeyPollConcurrency, DefaultPollConcurrency),

		SNMP: SNMPConfig{
			Community: r.str(common.EnvKeySNMPCommunity, DefaultSNMPCommunity),
			Port:      uint16(snmpPort),
			Timeout:   r.duration(common.EnvKeySNMPTimeout, DefaultSNMPTimeout),
		},
		WebTimeout:    r.duration(common.EnvKeyWebTimeout, DefaultWebTimeout),
		AlertCooldown: time.Duration(r.int(common.EnvKeyAlertCooldownMinutes, int(DefaultAlertCooldown/time.Minute))) * time.Minute,

		SMTP: notify.SMTPConfig{
			Host:     r.str(common.EnvKeySMTPHost, ""),
			Port:     r.int(common.EnvKeySMTPPort, DefaultSMTPPort),
			Username: r.str(common.EnvKeySMTPUser, ""),
			Password: r.str(common.EnvKeySMTPPass, ""),
			Secure:   r.bool(common.EnvKeySMTPSecure, false),
		},
		FromEmail:         r.str(common.EnvKeyFromEmail, ""),
		MailRatePerMinute: r.int(common.EnvKeyMailRatePerMinute, DefaultMailRatePerMinute),

		PublicLinkSecret: r.str(common.EnvKeyPublicLinkSecret, ""),
		PublicBaseURL:    strings.TrimRight(r.str(common.EnvKeyPublicBaseURL, DefaultPublicBaseURL), "/"),
		PublicLinkTTL:    r.duration(common.EnvKeyPublicLinkTTL, DefaultLinkTTL),

		MQTT: MQTTConfig{
			Broker:      r.str(common.EnvKeyMQTTBroker, ""),
			Username:    r.str(common.EnvKeyMQTTUsername, ""),
			Password:    r.str(common.EnvKeyMQTTPassword, ""),
			TopicPrefix: r.str(common.EnvKeyMQTTTopicPrefix, DefaultMQTTTopicPrefix),
		},
	}

	if r.err != nil {
		return nil, r.err
	}

	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.SMTP.Username
	}
	if cfg.PollConcurrency < 1 {
		return nil, fmt.Errorf("invalid %s: must be at least 1", common.EnvKeyPollConcurrency)
	}
	if cfg.AlertCooldown < 0 {
		return nil, fmt.Errorf("invalid %s: must not be negative", common.EnvKeyAlertCooldownMinutes)
	}

	return cfg, nil
}

// envReader keeps the first parse error so FromEnv can read every key in
// one pass.
type envReader struct {
	err error
}

func (r *envReader) lookup(key string) (string, bool) {
	v, found := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, found && v != ""
}

func (r *envReader) fail(key, value, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid %s=%q, should be %s", key, value, want)
	}
}

func (r *envReader) str(key, def string) string {
	if v, ok := r.lookup(key); ok {
		return v
	}
	return def
}

func (r *envReader) int(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, "an int value")
		return def
	}
	return n
}

func (r *envReader) float(key string, def float64) float64 {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, v, "a float64 value")
		return def
	}
	return f
}

func (r *envReader) bool(key string, def bool) bool {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, "true or false")
		return def
	}
	return b
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, "a duration like 2s or 24h")
		return def
	}
	return d
}
