package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de tradepulse.
type Config struct {
	Account  AccountConfig  `yaml:"account"`
	Strategy StrategyConfig `yaml:"strategy"`
	Symbols  []string       `yaml:"symbols"`
	Resolver ResolverConfig `yaml:"resolver"`
	Backtest BacktestConfig `yaml:"backtest"`
	Paper    PaperConfig    `yaml:"paper"`
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Telegram TelegramConfig `yaml:"telegram"`
	Log      LogConfig      `yaml:"log"`
}

// AccountConfig define la cuenta por defecto. Los valores solo se usan al crearla.
type AccountConfig struct {
	ID             string  `yaml:"id"`
	InitialBalance float64 `yaml:"initial_balance"`
	RiskPercentage float64 `yaml:"risk_percentage"` // % del balance arriesgado por trade, (0,100]
}

// StrategyConfig controla la detección de patrones y el cálculo de setups.
type StrategyConfig struct {
	SwingBars            int    `yaml:"swing_bars"`
	MaxTicks             int    `yaml:"max_ticks"`
	Setup                string `yaml:"setup"` // assisted | fallback
	SetupTimeoutSeconds  int    `yaml:"setup_timeout_seconds"`
	NotifyTimeoutSeconds int    `yaml:"notify_timeout_seconds"`
	SignalWorkers        int    `yaml:"signal_workers"` // workers que calculan setups fuera del stream
}

// ResolverConfig controla el polling de posiciones abiertas.
type ResolverConfig struct {
	IntervalSeconds int    `yaml:"interval_seconds"`
	PriceSource     string `yaml:"price_source"` // cache | rest
}

// BacktestConfig controla las simulaciones históricas.
type BacktestConfig struct {
	InitialBalance float64 `yaml:"initial_balance"`
	RiskFraction   float64 `yaml:"risk_fraction"`
	Workers        int     `yaml:"workers"`
	OutputSize     int     `yaml:"output_size"`
	Timeframe      string  `yaml:"timeframe"` // 1h | 4h | 1d
}

// PaperConfig controla el ejecutor simulado.
type PaperConfig struct {
	Enabled     bool    `yaml:"enabled"`
	SlippageBps float64 `yaml:"slippage_bps"`
}

// APIConfig contiene los base URLs y credenciales de las APIs externas.
type APIConfig struct {
	TwelveDataKey     string `yaml:"twelvedata_key"`
	TwelveDataREST    string `yaml:"twelvedata_rest"`
	TwelveDataWS      string `yaml:"twelvedata_ws"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	GeminiKey         string `yaml:"gemini_key"`
	GeminiBase        string `yaml:"gemini_base"`
	GeminiModel       string `yaml:"gemini_model"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite | postgres
	DSN    string `yaml:"dsn"`    // ruta al archivo SQLite, ":memory:" o DSN de Postgres
}

// CacheConfig selecciona la cache de precios. Addr vacío = memoria del proceso.
type CacheConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	MaxAgeSeconds int    `yaml:"max_age_seconds"`
}

// TelegramConfig habilita las alertas por Telegram si hay token y chat.
type TelegramConfig struct {
	Token    string `yaml:"token"`
	ChatID   int64  `yaml:"chat_id"`
	Endpoint string `yaml:"endpoint"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodifica YAML, aplica overrides de entorno y defaults, y valida.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rechaza valores que el RiskEngine nunca aceptaría.
func (c *Config) Validate() error {
	if c.Account.InitialBalance < 0 {
		return fmt.Errorf("config: account.initial_balance must be >= 0, got %v", c.Account.InitialBalance)
	}
	if c.Account.RiskPercentage <= 0 || c.Account.RiskPercentage > 100 {
		return fmt.Errorf("config: account.risk_percentage must be in (0,100], got %v", c.Account.RiskPercentage)
	}
	if c.Backtest.InitialBalance < 0 {
		return fmt.Errorf("config: backtest.initial_balance must be >= 0, got %v", c.Backtest.InitialBalance)
	}
	if c.Backtest.RiskFraction <= 0 || c.Backtest.RiskFraction > 1 {
		return fmt.Errorf("config: backtest.risk_fraction must be in (0,1], got %v", c.Backtest.RiskFraction)
	}
	switch c.Strategy.Setup {
	case "assisted", "fallback":
	default:
		return fmt.Errorf("config: strategy.setup must be assisted|fallback, got %q", c.Strategy.Setup)
	}
	switch c.Resolver.PriceSource {
	case "cache", "rest":
	default:
		return fmt.Errorf("config: resolver.price_source must be cache|rest, got %q", c.Resolver.PriceSource)
	}
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: storage.driver must be sqlite|postgres, got %q", c.Storage.Driver)
	}
	return nil
}

// ResolveInterval devuelve el intervalo del resolver como time.Duration.
func (c *Config) ResolveInterval() time.Duration {
	return time.Duration(c.Resolver.IntervalSeconds) * time.Second
}

// SetupTimeout devuelve el timeout del generador de setups.
func (c *Config) SetupTimeout() time.Duration {
	return time.Duration(c.Strategy.SetupTimeoutSeconds) * time.Second
}

// NotifyTimeout devuelve el timeout de cada notificación.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Strategy.NotifyTimeoutSeconds) * time.Second
}

// CacheMaxAge devuelve la antigüedad máxima de un precio en cache.
func (c *Config) CacheMaxAge() time.Duration {
	return time.Duration(c.Cache.MaxAgeSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("TWELVEDATA_API_KEY"); v != "" {
		cfg.API.TwelveDataKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.API.GeminiKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			cfg.Telegram.ChatID = id
		}
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		var syms []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				syms = append(syms, s)
			}
		}
		cfg.Symbols = syms
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Account.ID == "" {
		cfg.Account.ID = "default"
	}
	if cfg.Account.InitialBalance == 0 {
		cfg.Account.InitialBalance = 10000
	}
	if cfg.Account.RiskPercentage == 0 {
		cfg.Account.RiskPercentage = 1.0
	}
	if cfg.Strategy.SwingBars <= 0 {
		cfg.Strategy.SwingBars = 3
	}
	if cfg.Strategy.MaxTicks <= 0 {
		cfg.Strategy.MaxTicks = 200
	}
	if cfg.Strategy.Setup == "" {
		cfg.Strategy.Setup = "assisted"
	}
	if cfg.Strategy.SetupTimeoutSeconds <= 0 {
		cfg.Strategy.SetupTimeoutSeconds = 20
	}
	if cfg.Strategy.NotifyTimeoutSeconds <= 0 {
		cfg.Strategy.NotifyTimeoutSeconds = 10
	}
	if cfg.Strategy.SignalWorkers <= 0 {
		cfg.Strategy.SignalWorkers = 2
	}
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = []string{"BTC/USD", "ETH/USD", "XAU/USD"}
	}
	if cfg.Resolver.IntervalSeconds <= 0 {
		cfg.Resolver.IntervalSeconds = 3
	}
	if cfg.Resolver.PriceSource == "" {
		cfg.Resolver.PriceSource = "cache"
	}
	if cfg.Backtest.InitialBalance == 0 {
		cfg.Backtest.InitialBalance = 10000
	}
	if cfg.Backtest.RiskFraction == 0 {
		cfg.Backtest.RiskFraction = 0.01
	}
	if cfg.Backtest.OutputSize <= 0 {
		cfg.Backtest.OutputSize = 250
	}
	if cfg.Backtest.Timeframe == "" {
		cfg.Backtest.Timeframe = "4h"
	}
	if cfg.API.TwelveDataREST == "" {
		cfg.API.TwelveDataREST = "https://api.twelvedata.com"
	}
	if cfg.API.TwelveDataWS == "" {
		cfg.API.TwelveDataWS = "wss://ws.twelvedata.com/v1/quotes/price"
	}
	if cfg.API.RequestsPerMinute <= 0 {
		cfg.API.RequestsPerMinute = 8
	}
	if cfg.API.GeminiBase == "" {
		cfg.API.GeminiBase = "https://generativelanguage.googleapis.com"
	}
	if cfg.API.GeminiModel == "" {
		cfg.API.GeminiModel = "gemini-2.5-flash"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "tradepulse.db"
	}
	if cfg.Cache.MaxAgeSeconds <= 0 {
		cfg.Cache.MaxAgeSeconds = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
