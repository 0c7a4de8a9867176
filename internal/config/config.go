// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"golang.org/x/crypto/bcrypt"
)

// Драйверы хранилища аккаунтов.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Режимы ротации refresh-токена.
const (
	RotationStrict        = "strict"
	RotationLastWriteWins = "last_write_wins"
)

// Минимальная длина ключа подписи access-токенов (в байтах).
const minJWTSecretLen = 16

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	GRPC     GRPCConfig    `yaml:"grpc"`
	Auth     AuthConfig    `yaml:"auth"`
	DB       DBConfig      `yaml:"db"`
	Audit    AuditConfig   `yaml:"audit"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
// Service ограничивает обработку запроса целиком, Store — отдельный вызов хранилища.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
	Store   time.Duration `yaml:"store" env:"STORE_TIMEOUT" env-default:"3s"`
}

// HTTPConfig — сетевые настройки HTTP-сервера (REST API, /metrics, /healthz).
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

// GRPCConfig описывает сетевые настройки gRPC-сервера (health-check, reflection).
type GRPCConfig struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50051"`
}

// Addr возвращает адрес в формате host:port.
func (g HTTPConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// Addr возвращает адрес в формате host:port.
func (g GRPCConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// AuthConfig содержит параметры выпуска токенов и хэширования.
//
// RotationMode задаёт запись нового хэша refresh-токена при refresh:
//   - "strict" — условное обновление (compare-and-swap): из двух конкурентных
//     refresh одним секретом выигрывает один, второй считается повторным использованием;
//   - "last_write_wins" — безусловная перезапись, гонка не закрывается.
type AuthConfig struct {
	JWTSecret          string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL     time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	Issuer             string        `yaml:"issuer" env:"ISSUER" env-default:"session-auth"`
	Audience           []string      `yaml:"audience" env:"AUDIENCE" env-default:"session-api"`
	RefreshSecretBytes int           `yaml:"refresh_secret_bytes" env:"REFRESH_SECRET_BYTES" env-default:"32"`
	BcryptCost         int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
	PasswordMinLen     int           `yaml:"password_min_len" env:"PASSWORD_MIN_LEN" env-default:"8"`
	RotationMode       string        `yaml:"rotation_mode" env:"ROTATION_MODE" env-default:"strict"`
}

// Validate проверяет параметры, без которых сервис не может безопасно работать.
func (a AuthConfig) Validate() error {
	if a.JWTSecret == "" {
		return errors.New("auth: jwt_secret is empty")
	}

	if len(a.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("auth: jwt_secret must be at least %d bytes", minJWTSecretLen)
	}

	if a.AccessTokenTTL <= 0 {
		return errors.New("auth: access_token_ttl must be positive")
	}

	if a.BcryptCost < bcrypt.MinCost || a.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("auth: bcrypt_cost must be in [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}

	// hex-секрет хэшируется bcrypt, поэтому 2*n не должно превышать 72 байта.
	if a.RefreshSecretBytes < 16 || a.RefreshSecretBytes > 36 {
		return errors.New("auth: refresh_secret_bytes must be in [16, 36]")
	}

	if a.RotationMode != RotationStrict && a.RotationMode != RotationLastWriteWins {
		return fmt.Errorf("auth: unknown rotation_mode %q", a.RotationMode)
	}

	if a.PasswordMinLen < 1 {
		return errors.New("auth: password_min_len must be positive")
	}

	return nil
}

// DBConfig — настройки хранилища аккаунтов.
type DBConfig struct {
	Driver      string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL"`
	Migrate     bool   `yaml:"migrate" env:"DB_MIGRATE"`
}

// AuditConfig — приёмники аудит-событий. Пустой URL отключает приёмник.
type AuditConfig struct {
	Buffer      int    `yaml:"buffer" env:"AUDIT_BUFFER" env-default:"256"`
	Postgres    bool   `yaml:"postgres" env:"AUDIT_POSTGRES"`
	RedisURL    string `yaml:"redis_url" env:"AUDIT_REDIS_URL"`
	RedisStream string `yaml:"redis_stream" env:"AUDIT_REDIS_STREAM" env-default:"session-auth:audit"`
	MongoURL    string `yaml:"mongo_url" env:"AUDIT_MONGO_URL"`
}

// Validate проверяет согласованность всей конфигурации.
func (c *Config) Validate() error {
	if err := c.Auth.Validate(); err != nil {
		return err
	}

	switch c.DB.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.DB.DatabaseURL == "" {
			return errors.New("db: db_url is required for postgres driver")
		}
	default:
		return fmt.Errorf("db: unknown driver %q", c.DB.Driver)
	}

	return nil
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла поверх значений из YAML накладываются ENV-переменные,
// затем конфигурация валидируется.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func read(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", p)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	if path != "" {
		return tryRead(path)
	}

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}
