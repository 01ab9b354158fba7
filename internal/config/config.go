package config

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration, read from the environment
// (optionally seeded by .env) and an optional YAML file named by CONFIG_PATH.
type Config struct {
	Env      string         `yaml:"env" env:"APP_ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	OTP      OTPConfig      `yaml:"otp"`
	Redis    RedisConfig    `yaml:"redis"`
	NATS     NATSConfig     `yaml:"nats"`
	Log      LogConfig      `yaml:"log"`
	Tables   TablesConfig   `yaml:"tables"`
	Admin    AdminConfig    `yaml:"admin"`
}

type HTTPConfig struct {
	Port         string        `yaml:"port" env:"PORT" env-default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
}

// DatabaseConfig keeps the DB_* variable names of the original tracker
// deployment. Driver is one of "postgres" (pgx), "pq" (lib/pq) or "sqlite".
type DatabaseConfig struct {
	Driver     string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	Host       string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port       string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User       string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password   string `yaml:"password" env:"DB_PASSWORD" env-default:"password"`
	Name       string `yaml:"name" env:"DB_NAME" env-default:"food_crm"`
	SSLMode    string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	TimeZone   string `yaml:"timezone" env:"DB_TIMEZONE" env-default:"UTC"`
	SQLitePath string `yaml:"sqlite_path" env:"DB_SQLITE_PATH" env-default:"food_crm.db"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret" env:"JWT_SECRET" env-default:"supersecret"`
	TTL    time.Duration `yaml:"ttl" env:"JWT_TTL" env-default:"72h"`
}

// SMTPConfig with an empty Host switches the mailer to log-only mode.
type SMTPConfig struct {
	Host        string        `yaml:"host" env:"SMTP_HOST"`
	Port        int           `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username    string        `yaml:"username" env:"SMTP_USERNAME"`
	Password    string        `yaml:"password" env:"SMTP_PASSWORD"`
	SenderEmail string        `yaml:"sender_email" env:"SMTP_SENDER_EMAIL" env-default:"no-reply@food-crm.local"`
	SenderName  string        `yaml:"sender_name" env:"SMTP_SENDER_NAME" env-default:"Food CRM"`
	Encryption  string        `yaml:"encryption" env:"SMTP_ENCRYPTION" env-default:"tls"`
	Timeout     time.Duration `yaml:"timeout" env:"SMTP_TIMEOUT" env-default:"10s"`
}

type OTPConfig struct {
	// Store is "db" or "redis".
	Store string `yaml:"store" env:"OTP_STORE" env-default:"db"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// NATSConfig with an empty URL disables event publishing to NATS.
type NATSConfig struct {
	URL     string `yaml:"url" env:"NATS_URL"`
	Subject string `yaml:"subject" env:"NATS_SUBJECT_PREFIX" env-default:"food_crm.orders"`
}

type LogConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL" env-default:"debug"`
	File       string `yaml:"file" env:"LOG_FILE" env-default:"./logs/app.log"`
	MaxSize    int    `yaml:"max_size" env:"LOG_MAX_SIZE" env-default:"10"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" env-default:"7"`
	MaxAge     int    `yaml:"max_age" env:"LOG_MAX_AGE" env-default:"7"`
	Compress   bool   `yaml:"compress" env:"LOG_COMPRESS" env-default:"true"`
	Stdout     bool   `yaml:"stdout" env:"LOG_STDOUT" env-default:"true"`
}

type TablesConfig struct {
	BaseURL string `yaml:"base_url" env:"FRONTEND_BASE_URL" env-default:"http://localhost:3000"`
}

// AdminConfig seeds a superuser on boot when Username and Password are set.
type AdminConfig struct {
	Username string `yaml:"username" env:"ADMIN_USERNAME"`
	Password string `yaml:"password" env:"ADMIN_PASSWORD"`
	Email    string `yaml:"email" env:"ADMIN_EMAIL" env-default:"admin@food-crm.local"`
}

// Load reads .env (if present), then the YAML file at path (if non-empty and
// present), then the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found – relying on env vars")
	}

	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			log.Printf("Config file not found at %s, using env vars only", path)
			if err := cleanenv.ReadEnv(&cfg); err != nil {
				return nil, err
			}
			return &cfg, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// MustLoad loads the config from CONFIG_PATH or dies.
func MustLoad() *Config {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	return cfg
}
