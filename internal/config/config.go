package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Security SecurityConfig
	Trading  TradingConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	// Passphrase для деривации AES ключа (pbkdf2), которым шифруются
	// API ключи аккаунтов в БД
	EncryptionPassphrase string
}

// Range - диапазон [Min, Max] для случайной выборки
type Range struct {
	Min float64
	Max float64
}

// IntRange - целочисленный диапазон [Min, Max]
type IntRange struct {
	Min int
	Max int
}

// TradingConfig - read-only торговые параметры
type TradingConfig struct {
	Leverage          int       // плечо для всех ордеров
	PositionSizeRange Range     // размер позиции в USDT, один сэмпл на группу на цикл
	HoldMinutesRange  IntRange  // время удержания в минутах
	InterLegDelayMs   IntRange  // джиттер между ногами пары, мс
	Instruments       []string  // поддерживаемые инструменты

	// Параметры устойчивости цикла
	OpenAttempts      int           // попыток открытия пары (по умолчанию 3)
	QuarantineCooldown time.Duration // пауза после критической ошибки
	QuarantinePoll    time.Duration // период опроса в карантине
	InterCycleDelay   time.Duration // пауза между циклами
	ErrorBackoff      time.Duration // пауза после неклассифицированной ошибки цикла

	DustThreshold float64 // порог пыли для ручного flatten
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "hedgefarm"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			EncryptionPassphrase: getEnv("ENCRYPTION_PASSPHRASE", ""),
		},
		Trading: TradingConfig{
			Leverage: getEnvAsInt("LEVERAGE", 10),
			PositionSizeRange: Range{
				Min: getEnvAsFloat("POSITION_SIZE_MIN", 400),
				Max: getEnvAsFloat("POSITION_SIZE_MAX", 600),
			},
			HoldMinutesRange: IntRange{
				Min: getEnvAsInt("HOLD_MINUTES_MIN", 30),
				Max: getEnvAsInt("HOLD_MINUTES_MAX", 90),
			},
			InterLegDelayMs: IntRange{
				Min: getEnvAsInt("INTER_LEG_DELAY_MS_MIN", 500),
				Max: getEnvAsInt("INTER_LEG_DELAY_MS_MAX", 3000),
			},
			Instruments: getEnvAsList("INSTRUMENTS", []string{"BTCUSDT", "ETHUSDT", "BNBUSDT"}),

			OpenAttempts:       getEnvAsInt("OPEN_ATTEMPTS", 3),
			QuarantineCooldown: getEnvAsDuration("QUARANTINE_COOLDOWN", 10*time.Minute),
			QuarantinePoll:     getEnvAsDuration("QUARANTINE_POLL", 30*time.Second),
			InterCycleDelay:    getEnvAsDuration("INTER_CYCLE_DELAY", 15*time.Second),
			ErrorBackoff:       getEnvAsDuration("ERROR_BACKOFF", 30*time.Second),

			DustThreshold: getEnvAsFloat("DUST_THRESHOLD", 0.001),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Валидация критичных параметров безопасности
	if err := cfg.validateSecurity(); err != nil {
		return nil, err
	}

	// Валидация торговых диапазонов
	if err := cfg.validateTrading(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSecurity проверяет параметры безопасности
func (c *Config) validateSecurity() error {
	// Passphrase обязателен для расшифровки API ключей аккаунтов
	if c.Security.EncryptionPassphrase == "" {
		return fmt.Errorf("ENCRYPTION_PASSPHRASE is required for decrypting account API keys")
	}

	if len(c.Security.EncryptionPassphrase) < 16 {
		return fmt.Errorf("ENCRYPTION_PASSPHRASE must be at least 16 characters")
	}

	return nil
}

// validateTrading проверяет торговые диапазоны
func (c *Config) validateTrading() error {
	t := c.Trading

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if t.Leverage < 1 || t.Leverage > 125 {
		return fmt.Errorf("LEVERAGE must be between 1 and 125, got %d", t.Leverage)
	}

	if t.PositionSizeRange.Min <= 0 || t.PositionSizeRange.Max < t.PositionSizeRange.Min {
		return fmt.Errorf("invalid position size range [%v, %v]",
			t.PositionSizeRange.Min, t.PositionSizeRange.Max)
	}

	if t.HoldMinutesRange.Min <= 0 || t.HoldMinutesRange.Max < t.HoldMinutesRange.Min {
		return fmt.Errorf("invalid hold minutes range [%d, %d]",
			t.HoldMinutesRange.Min, t.HoldMinutesRange.Max)
	}

	if t.InterLegDelayMs.Min < 0 || t.InterLegDelayMs.Max < t.InterLegDelayMs.Min {
		return fmt.Errorf("invalid inter-leg delay range [%d, %d]",
			t.InterLegDelayMs.Min, t.InterLegDelayMs.Max)
	}

	if len(t.Instruments) == 0 {
		return fmt.Errorf("INSTRUMENTS must not be empty")
	}

	if t.OpenAttempts < 1 {
		return fmt.Errorf("OPEN_ATTEMPTS must be at least 1, got %d", t.OpenAttempts)
	}

	if t.QuarantineCooldown <= 0 {
		return fmt.Errorf("QUARANTINE_COOLDOWN must be positive, got %v", t.QuarantineCooldown)
	}

	if t.DustThreshold <= 0 {
		return fmt.Errorf("DUST_THRESHOLD must be positive, got %v", t.DustThreshold)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
