package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/alejandrodnm/txopicker/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del picker.
type Config struct {
	Search  SearchConfig  `yaml:"search"`
	Pricing PricingConfig `yaml:"pricing"`
	Data    DataConfig    `yaml:"data"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// SearchConfig controla qué se busca y cómo se filtra/rankea.
type SearchConfig struct {
	Month          string  `yaml:"month"`           // "YYYYMM"; vacío = mes por defecto
	Side           string  `yaml:"side"`            // call | put | both
	Mode           string  `yaml:"mode"`            // long | short | vacío
	TargetLeverage float64 `yaml:"target_leverage"` // 0 = default del modo
	TopN           int     `yaml:"top_n"`
	MinAbsDelta    float64 `yaml:"min_abs_delta"`
	SafeMode       bool    `yaml:"safe_mode"`
	MinPrice       float64 `yaml:"min_price"`
	Workers        int     `yaml:"workers"` // 0 = NumCPU × 2
	DeriveIV       bool    `yaml:"derive_iv"`
}

// PricingConfig contiene los parámetros del modelo.
type PricingConfig struct {
	RiskFreeRate       float64 `yaml:"risk_free_rate"`
	FallbackVolatility float64 `yaml:"fallback_volatility"`
	ExpiryConvention   string  `yaml:"expiry_convention"` // fifteenth | third_wednesday
	Multiplier         int64   `yaml:"multiplier"`        // TWD por punto
}

// DataConfig indica de dónde sale la cadena.
type DataConfig struct {
	ChainPath string  `yaml:"chain_path"` // snapshot JSON de FinMind
	Symbol    string  `yaml:"symbol"`
	SpotPrice float64 `yaml:"spot_price"` // 0 = derivar por paridad put-call
}

// StorageConfig controla dónde se persiste el historial de búsquedas.
type StorageConfig struct {
	DSN          string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
	HistoryHours int    `yaml:"history_hours"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	// Los knobs donde 0 es un valor válido se siembran antes del parse:
	// solo las keys ausentes quedan con el default.
	cfg := Config{
		Search:  SearchConfig{MinAbsDelta: 0.10, MinPrice: domain.DefaultMinPrice},
		Pricing: PricingConfig{RiskFreeRate: domain.DefaultRiskFreeRate},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	return &cfg, nil
}

// Validate comprueba rangos y valores enumerados. Los errores envuelven domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	if _, err := c.SearchSide(); err != nil {
		return fmt.Errorf("config.Validate: search.side: %v: %w", err, domain.ErrInvalidConfig)
	}
	mode := domain.Mode(c.Search.Mode)
	if mode != "" && !mode.Valid() {
		return fmt.Errorf("config.Validate: search.mode %q: %w", c.Search.Mode, domain.ErrInvalidConfig)
	}
	if c.Search.TargetLeverage <= 0 {
		return fmt.Errorf("config.Validate: search.target_leverage %v must be > 0: %w",
			c.Search.TargetLeverage, domain.ErrInvalidConfig)
	}
	if mode != "" {
		lo, hi := mode.LeverageRange()
		if c.Search.TargetLeverage < lo || c.Search.TargetLeverage > hi {
			return fmt.Errorf("config.Validate: target_leverage %.2f outside %s range [%.1f, %.1f]: %w",
				c.Search.TargetLeverage, mode, lo, hi, domain.ErrInvalidConfig)
		}
	}
	if c.Search.Month != "" {
		if _, _, err := domain.ParseContractMonth(c.Search.Month); err != nil {
			return fmt.Errorf("config.Validate: search.month: %v: %w", err, domain.ErrInvalidConfig)
		}
	}
	if c.Search.TopN <= 0 {
		return fmt.Errorf("config.Validate: search.top_n must be > 0: %w", domain.ErrInvalidConfig)
	}
	if c.Search.MinAbsDelta < 0 || c.Search.MinAbsDelta >= 1 {
		return fmt.Errorf("config.Validate: search.min_abs_delta %v outside [0, 1): %w",
			c.Search.MinAbsDelta, domain.ErrInvalidConfig)
	}
	if c.Search.MinPrice < 0 {
		return fmt.Errorf("config.Validate: search.min_price must be >= 0: %w", domain.ErrInvalidConfig)
	}
	if !domain.ExpiryConvention(c.Pricing.ExpiryConvention).Valid() {
		return fmt.Errorf("config.Validate: pricing.expiry_convention %q: %w",
			c.Pricing.ExpiryConvention, domain.ErrInvalidConfig)
	}
	if c.Pricing.FallbackVolatility <= 0 {
		return fmt.Errorf("config.Validate: pricing.fallback_volatility must be > 0: %w", domain.ErrInvalidConfig)
	}
	if c.Data.ChainPath == "" {
		return fmt.Errorf("config.Validate: data.chain_path is required: %w", domain.ErrInvalidConfig)
	}
	if c.Data.SpotPrice < 0 {
		return fmt.Errorf("config.Validate: data.spot_price must be >= 0: %w", domain.ErrInvalidConfig)
	}
	return nil
}

// SearchSide devuelve el lado pedido; "both" o vacío es domain.SideBoth.
func (c *Config) SearchSide() (domain.Side, error) {
	switch c.Search.Side {
	case "", "both", "BOTH":
		return domain.SideBoth, nil
	}
	return domain.ParseSide(c.Search.Side)
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("TXO_CHAIN_PATH"); v != "" {
		cfg.Data.ChainPath = v
	}
	if v := os.Getenv("TXO_SPOT_PRICE"); v != "" {
		spot, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TXO_SPOT_PRICE %q: %w", v, err)
		}
		cfg.Data.SpotPrice = spot
	}
	if v := os.Getenv("TXO_DB_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Search.TargetLeverage <= 0 {
		mode := domain.Mode(cfg.Search.Mode)
		if mode.Valid() {
			cfg.Search.TargetLeverage = mode.DefaultLeverage()
		} else {
			cfg.Search.TargetLeverage = domain.ModeLong.DefaultLeverage()
		}
	}
	if cfg.Search.TopN <= 0 {
		cfg.Search.TopN = 20
	}
	if cfg.Pricing.FallbackVolatility <= 0 {
		cfg.Pricing.FallbackVolatility = domain.DefaultFallbackVolatility
	}
	if cfg.Pricing.ExpiryConvention == "" {
		cfg.Pricing.ExpiryConvention = string(domain.ExpiryFifteenth)
	}
	if cfg.Pricing.Multiplier <= 0 {
		cfg.Pricing.Multiplier = domain.ContractMultiplier
	}
	if cfg.Data.Symbol == "" {
		cfg.Data.Symbol = "TXO"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "txopicker.db"
	}
	if cfg.Storage.HistoryHours <= 0 {
		cfg.Storage.HistoryHours = 24
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
