// Package config
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

/*
YAML config example:

listen_addr: ":8080"
mode: "paper"
broker:
  live_base_url: "https://api.tradier.com"
  paper_base_url: "https://sandbox.tradier.com"
  token: "..."
  account_id: "..."
  paper_token: "..."
  paper_account_id: "..."
  request_timeout: 10s
retry_delay: 75ms
telegram_token: "..."
telegram_chat_id: "..."
*/

type BrokerConfig struct {
	LiveBaseURL    string        `yaml:"live_base_url"`
	PaperBaseURL   string        `yaml:"paper_base_url"`
	Token          string        `yaml:"token"`
	AccountID      string        `yaml:"account_id"`
	PaperToken     string        `yaml:"paper_token"`
	PaperAccountID string        `yaml:"paper_account_id"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type Config struct {
	ListenAddr          string        `yaml:"listen_addr"`
	Mode                string        `yaml:"mode"`
	Broker              BrokerConfig  `yaml:"broker"`
	RetryDelay          time.Duration `yaml:"retry_delay"`
	TelegramToken       string        `yaml:"telegram_token"`
	TelegramChatID      string        `yaml:"telegram_chat_id"`
	NotificationRetries int           `yaml:"notification_retries"`
	NotificationDelay   time.Duration `yaml:"notification_delay"`
}

// Load builds the configuration from flags, environment variables (including
// a .env file when present), and an optional YAML file. The YAML file, when
// given, wins wholesale, matching how the desk is deployed.
func Load() (Config, error) {
	_ = godotenv.Load()

	listenAddr := flag.String("listen", envStr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	mode := flag.String("mode", envStr("TRADING_MODE", "paper"), "Trading mode: paper or live")
	retryDelay := flag.Duration("retry-delay", envDuration("RETRY_DELAY", 75*time.Millisecond), "Delay before the single order resubmission")
	requestTimeout := flag.Duration("request-timeout", envDuration("BROKER_TIMEOUT", 10*time.Second), "Timeout for brokerage HTTP calls")
	notificationRetries := flag.Int("notification-retries", envInt("NOTIFICATION_RETRIES", 3), "Number of notification send attempts")
	notificationDelay := flag.Duration("notification-delay", envDuration("NOTIFICATION_DELAY", 5*time.Second), "Delay between notification retries")
	configFile := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to YAML config file")
	flag.Parse()

	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
		return fileCfg.withDefaults(), nil
	}

	cfg := Config{
		ListenAddr: *listenAddr,
		Mode:       *mode,
		Broker: BrokerConfig{
			LiveBaseURL:    envStr("BROKER_LIVE_URL", "https://api.tradier.com"),
			PaperBaseURL:   envStr("BROKER_PAPER_URL", "https://sandbox.tradier.com"),
			Token:          os.Getenv("BROKER_TOKEN"),
			AccountID:      os.Getenv("BROKER_ACCOUNT_ID"),
			PaperToken:     os.Getenv("BROKER_PAPER_TOKEN"),
			PaperAccountID: os.Getenv("BROKER_PAPER_ACCOUNT_ID"),
			RequestTimeout: *requestTimeout,
		},
		RetryDelay:          *retryDelay,
		TelegramToken:       os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:      os.Getenv("TELEGRAM_CHAT_ID"),
		NotificationRetries: *notificationRetries,
		NotificationDelay:   *notificationDelay,
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.Mode == "" {
		c.Mode = "paper"
	}
	if c.Broker.RequestTimeout <= 0 {
		c.Broker.RequestTimeout = 10 * time.Second
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 75 * time.Millisecond
	}
	if c.NotificationRetries <= 0 {
		c.NotificationRetries = 3
	}
	if c.NotificationDelay <= 0 {
		c.NotificationDelay = 5 * time.Second
	}
	// Paper credentials fall back to the live ones; sandbox accounts often
	// share a token.
	if c.Broker.PaperToken == "" {
		c.Broker.PaperToken = c.Broker.Token
	}
	if c.Broker.PaperAccountID == "" {
		c.Broker.PaperAccountID = c.Broker.AccountID
	}
	return c
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
