package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"
)

// Config ...
type Config struct {
	Telegram struct {
		Token          string        `mapstructure:"token"`
		ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
	} `mapstructure:"telegram"`
	DB         string `mapstructure:"db_dsn"`
	DBMaxConns int32  `mapstructure:"db_max_conns"`
	Service    struct {
		Name      string `mapstructure:"name"`
		Host      string `mapstructure:"host"`
		AdminPort int    `mapstructure:"admin_port"`
		LogLevel  string `mapstructure:"log_level"`
	} `mapstructure:"service"`
	Tracing struct {
		Enabled bool   `mapstructure:"enabled"`
		Host    string `mapstructure:"host"`
		Port    int    `mapstructure:"port"`
	} `mapstructure:"tracing"`
	Redis struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		LockTTL  time.Duration `mapstructure:"lock_ttl"`
	} `mapstructure:"redis"`
	Processor Processor `mapstructure:"processor"`
	Alerts    Alerts    `mapstructure:"alerts"`
	Paper     Paper     `mapstructure:"paper"`
}

// Processor: внешний сервис тикеров/свечей.
type Processor struct {
	URL           string        `mapstructure:"url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RPS           float64       `mapstructure:"rps"`
	Burst         int           `mapstructure:"burst"`
	PrecisionFile string        `mapstructure:"precision_file"`
}

// Alerts: лимиты и допуски алертов.
type Alerts struct {
	MaxLevelsPerCall   int     `mapstructure:"max_levels_per_call"`
	MaxGuest           int     `mapstructure:"max_guest"`
	MaxRegistered      int     `mapstructure:"max_registered"`
	DuplicateTolerance float64 `mapstructure:"duplicate_tolerance"`
	LowerBound         float64 `mapstructure:"lower_bound"`
	UpperBound         float64 `mapstructure:"upper_bound"`
	// Legacy: старые границы 0.5x..2x
	Legacy bool `mapstructure:"legacy"`
}

// Paper: бумажная торговля.
type Paper struct {
	StartingBalance float64       `mapstructure:"starting_balance"`
	MaxOpenOrders   int           `mapstructure:"max_open_orders"`
	ResetCooldown   time.Duration `mapstructure:"reset_cooldown"`
	FillInterval    time.Duration `mapstructure:"fill_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.confirm_timeout", "60s")
	v.SetDefault("service.name", "alpha_bot")
	v.SetDefault("service.host", "0.0.0.0")
	v.SetDefault("service.admin_port", 8080)
	v.SetDefault("service.log_level", "info")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.host", "localhost")
	v.SetDefault("tracing.port", 6831)
	v.SetDefault("redis.lock_ttl", "15s")
	v.SetDefault("db_max_conns", 10)

	v.SetDefault("processor.timeout", "10s")
	v.SetDefault("processor.rps", 20.0)
	v.SetDefault("processor.burst", 5)
	v.SetDefault("processor.precision_file", "configs/precision.yaml")

	v.SetDefault("alerts.max_levels_per_call", 10)
	v.SetDefault("alerts.max_guest", 20)
	v.SetDefault("alerts.max_registered", 200)
	v.SetDefault("alerts.duplicate_tolerance", 0.001)
	v.SetDefault("alerts.lower_bound", 0.2)
	v.SetDefault("alerts.upper_bound", 5.0)
	v.SetDefault("alerts.legacy", false)

	v.SetDefault("paper.starting_balance", 10000.0)
	v.SetDefault("paper.max_open_orders", 50)
	v.SetDefault("paper.reset_cooldown", "168h")
	v.SetDefault("paper.fill_interval", "1m")
}

func bindEnv(v *viper.Viper) error {
	// старые имена переменных окружения
	binds := map[string]string{
		"telegram.token": "TELEGRAM_TOKEN",
		"db_dsn":         "DATABASE_DSN",
		"redis.addr":     "REDIS_ADDR",
		"redis.password": "REDIS_PASSWORD",
		"processor.url":  "PROCESSOR_URL",
	}
	for key, env := range binds {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return nil
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	configDir := os.Getenv(configDirENV)
	if configDir == "" {
		configDir = "configs"
	}

	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	v.SetConfigFile(configDir + "/" + configFileName)
	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", configFileName, err)
		}
		// без файла живём на дефолтах и env
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	config.applyLegacy()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyLegacy() {
	if c.Alerts.Legacy {
		c.Alerts.LowerBound = 0.5
		c.Alerts.UpperBound = 2
	}
}

// Validate ...
func (c *Config) Validate() error {
	if c.Alerts.LowerBound <= 0 || c.Alerts.UpperBound <= c.Alerts.LowerBound {
		return fmt.Errorf("alerts bounds must satisfy 0 < lower < upper, got %v..%v",
			c.Alerts.LowerBound, c.Alerts.UpperBound)
	}
	if c.Alerts.DuplicateTolerance < 0 || c.Alerts.DuplicateTolerance >= 1 {
		return fmt.Errorf("alerts.duplicate_tolerance out of range: %v", c.Alerts.DuplicateTolerance)
	}
	if c.Paper.StartingBalance <= 0 {
		return fmt.Errorf("paper.starting_balance must be > 0")
	}
	if c.Telegram.ConfirmTimeout <= 0 {
		return fmt.Errorf("telegram.confirm_timeout must be > 0")
	}
	return nil
}
