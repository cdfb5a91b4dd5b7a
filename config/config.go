// Initializing common application configuration
package config

import (
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Email    EmailConfig    `mapstructure:"email"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Push     PushConfig     `mapstructure:"push"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Booking  BookingConfig  `mapstructure:"booking"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

type ServerConfig struct {
	AppVersion  string        `mapstructure:"app_version"`
	Host        string        `mapstructure:"host"`
	Port        string        `mapstructure:"port"`
	Timeout     time.Duration `mapstructure:"timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	Env         string        `mapstructure:"environment"`
	Mode        string        `mapstructure:"mode"`
	LogLevel    string        `mapstructure:"log_level"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// connection pool
	MaxRetries   int           `mapstructure:"max_retries"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type EmailConfig struct {
	From     string `mapstructure:"from"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Enabled  bool   `mapstructure:"enabled"`
}

type RabbitMQConfig struct {
	URL       string `mapstructure:"url"`
	QueueName string `mapstructure:"queue_name"`
}

type PushConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Endpoint  string        `mapstructure:"endpoint"`
	ServerKey string        `mapstructure:"server_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

type RealtimeConfig struct {
	Backplane      string        `mapstructure:"backplane"` // memory | redis
	Channel        string        `mapstructure:"channel"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	AuthTimeout    time.Duration `mapstructure:"auth_timeout"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type BookingConfig struct {
	PendingTimeout time.Duration `mapstructure:"pending_timeout"`
	Currency       string        `mapstructure:"currency"`
}

type WorkerConfig struct {
	NotificationSchedule string        `mapstructure:"notification_schedule"`
	BatchSize            int           `mapstructure:"batch_size"`
	MaxAttempts          int           `mapstructure:"max_attempts"`
	RetryBaseDelay       time.Duration `mapstructure:"retry_base_delay"`
	OrderExpiryInterval  time.Duration `mapstructure:"order_expiry_interval"`
}

func LoadConfig() (*viper.Viper, error) {

	viperInstance := viper.New()

	viperInstance.AddConfigPath("./config")
	viperInstance.SetConfigName("config")
	viperInstance.SetConfigType("yaml")

	viperInstance.SetEnvPrefix("AFRITIX")
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperInstance.AutomaticEnv()

	setDefaults(viperInstance)

	err := viperInstance.ReadInConfig()

	if err != nil {
		return nil, err
	}
	return viperInstance, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {

	var c Config

	err := v.Unmarshal(&c)
	if err != nil {
		logrus.Errorf("unable to decode config into struct, %v", err)
		return nil, err
	}
	return &c, nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.app_version", "1.0.0")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "afritix")
	v.SetDefault("database.dbname", "afritix")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("jwt.issuer", "afritix")

	v.SetDefault("email.from", "noreply@afritix.com")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.enabled", false)

	v.SetDefault("rabbitmq.queue_name", "afritix.email")

	v.SetDefault("push.enabled", false)
	v.SetDefault("push.timeout", 10*time.Second)

	v.SetDefault("kafka.topic", "afritix.ticket-events")

	v.SetDefault("realtime.backplane", "memory")
	v.SetDefault("realtime.channel", "afritix:broadcast")
	v.SetDefault("realtime.auth_timeout", 5*time.Second)
	v.SetDefault("realtime.send_buffer", 64)

	v.SetDefault("booking.pending_timeout", 15*time.Minute)
	v.SetDefault("booking.currency", "XOF")

	v.SetDefault("worker.notification_schedule", "@every 1m")
	v.SetDefault("worker.batch_size", 100)
	v.SetDefault("worker.max_attempts", 5)
	v.SetDefault("worker.retry_base_delay", time.Minute)
	v.SetDefault("worker.order_expiry_interval", time.Minute)
}
