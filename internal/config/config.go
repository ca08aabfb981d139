// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	Payments                `yaml:"payments"`
	Pricing                 `yaml:"pricing"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"ADDRESS_HTTP" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"30s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"ADDRESS_REDIS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"10s"`
}

// Payments структура для настройки платёжных провайдеров.
// Provider выбирает провайдера для создания новых счетов; callback-и
// принимаются от обоих провайдеров независимо от выбора.
type Payments struct {
	Provider            string `yaml:"provider" env:"PAYMENT_PROVIDER" env-default:"plisio"`
	BackendURL          string `yaml:"backend_url" env:"BACKEND_URL"`
	PlisioAPIKey        string `yaml:"plisio_api_key" env:"PLISIO_API_KEY"`
	PlisioSecretKey     string `yaml:"plisio_secret_key" env:"PLISIO_SECRET_KEY"`
	CryptomusMerchantID string `yaml:"cryptomus_merchant_id" env:"CRYPTOMUS_MERCHANT_ID"`
	CryptomusAPIKey     string `yaml:"cryptomus_api_key" env:"CRYPTOMUS_API_KEY"`
}

// Pricing структура для настройки расчёта скидок.
// FreeThresholdPercent - суммарная скидка в процентах, начиная с которой
// подписка выдаётся без создания счёта.
type Pricing struct {
	FreeThresholdPercent int `yaml:"free_threshold_percent" env:"FREE_THRESHOLD_PERCENT" env-default:"90"`
}

// MustLoad функция для загрузки конфига, возвращает конфиг, прочитанный из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

// mask скрывает секрет, оставляя первые четыре символа.
func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"MigrationsPath: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  User: %s\n"+
			"  DB: %d\n"+
			"  MaxRetries: %d\n"+
			"  DialTimeout: %s\n"+
			"  Timeout: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Payments:\n"+
			"  Provider: %s\n"+
			"  BackendURL: %s\n"+
			"  PlisioAPIKey: %s\n"+
			"  PlisioSecretKey: %s\n"+
			"  CryptomusMerchantID: %s\n"+
			"  CryptomusAPIKey: %s\n"+
			"Pricing:\n"+
			"  FreeThresholdPercent: %d\n",
		c.Env,
		mask(c.StorageConnectionString),
		c.MigrationsPath,
		c.AddressRedis,
		c.User,
		c.DB,
		c.MaxRetries,
		c.DialTimeout,
		c.TimeoutRedis,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.Provider,
		c.BackendURL,
		mask(c.PlisioAPIKey),
		mask(c.PlisioSecretKey),
		mask(c.CryptomusMerchantID),
		mask(c.CryptomusAPIKey),
		c.FreeThresholdPercent,
	)
}
