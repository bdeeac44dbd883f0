package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	TelegramToken string  `env:"TELEGRAM_TOKEN,required"`
	AdminIDs      []int64 `env:"ADMIN_IDS" envSeparator:","`
	Debug         bool    `env:"DEBUG" envDefault:"false"`

	HTTPAddr        string `env:"HTTP_ADDR" envDefault:":8080"`
	CallbackBaseURL string `env:"CALLBACK_BASE_URL,required"`

	RedisAddr      string        `env:"REDIS_ADDR,required"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	DialogTTL      time.Duration `env:"DIALOG_TTL" envDefault:"24h"`
	CorrelationTTL time.Duration `env:"CORRELATION_TTL" envDefault:"1h"`

	DBHost            string        `env:"DB_HOST,required"`
	DBPort            int           `env:"DB_PORT,required"`
	DBUser            string        `env:"DB_USER,required"`
	DBPassword        string        `env:"DB_PASSWORD,required"`
	DBName            string        `env:"DB_NAME,required"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	DBConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"2m"`

	GatewayBaseURL    string `env:"GATEWAY_BASE_URL" envDefault:"https://api.zarinpal.com"`
	GatewayPayURL     string `env:"GATEWAY_PAY_URL" envDefault:"https://www.zarinpal.com/pg/StartPay/"`
	GatewayMerchantID string `env:"GATEWAY_MERCHANT_ID,required"`

	ExchangeBaseURL string        `env:"EXCHANGE_BASE_URL" envDefault:"https://api.nobitex.ir"`
	TickerSymbols   []string      `env:"TICKER_SYMBOLS" envSeparator:"," envDefault:"USDTIRT"`
	TickerInterval  time.Duration `env:"TICKER_INTERVAL" envDefault:"5m"`
	TickerChannelID int64         `env:"TICKER_CHANNEL_ID"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"10m"`
	OrderMaxAge   time.Duration `env:"ORDER_MAX_AGE" envDefault:"1h"`

	HTTPRequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if len(cfg.AdminIDs) == 0 {
		return nil, fmt.Errorf("at least one admin ID is required")
	}

	return &cfg, nil
}
