// Package config предоставляет структуры и функцию для парсинга и загрузки конфига.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек всех бинарей сервиса.
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
	Sweeper                 `yaml:"sweeper"`
	Reminder                `yaml:"reminder"`
	Dispatcher              `yaml:"dispatcher"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// JWTToken структура для работы с jwt-токеном.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RabbitMQ структура для настройки подключения к RabbitMQ.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"10"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// SMTP структура для настройки почтового транспорта.
type SMTP struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port" env-default:"587"`
	User     string `yaml:"user"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
}

// Sweeper настройки свипера истекших подписок.
// Размер пачки меньше в непродакшен-окружениях, чтобы ограничить
// стоимость прогонов; Disabled останавливает обработку, не снимая расписание.
type Sweeper struct {
	BatchSize  int           `yaml:"batch_size" env:"SWEEPER_BATCH_SIZE" env-default:"100"`
	SweepEvery time.Duration `yaml:"sweep_every" env-default:"10m"`
	Disabled   bool          `yaml:"disabled" env:"SWEEPER_DISABLED"`
}

// Reminder настройки планировщика напоминаний об окончании премиума.
type Reminder struct {
	Windows     []int         `yaml:"windows" env-default:"7,3,1"`
	RemindEvery time.Duration `yaml:"remind_every" env-default:"24h"`
}

// Dispatcher настройки диспетчера отложенных заданий.
type Dispatcher struct {
	PollEvery   time.Duration `yaml:"poll_every" env-default:"1m"`
	JobBatch    int           `yaml:"job_batch" env-default:"50"`
	MaxAttempts int           `yaml:"max_attempts" env-default:"5"`
}

// MustLoad загружает конфиг по пути из CONFIG_PATH, при ошибке завершает процесс.
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
