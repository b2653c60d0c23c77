// Package config loads run configuration from YAML or JSON files.
// Monetary rates are kept as strings in the file format and converted
// to decimals when the run configuration is built.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/tmarchal/marginpnl/account"
	"github.com/tmarchal/marginpnl/fees"
	"github.com/tmarchal/marginpnl/strategy"
)

// Config represents the complete run configuration.
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Fees     FeesConfig     `json:"fees" yaml:"fees"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Backtest BacktestConfig `json:"backtest" yaml:"backtest"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
}

// AccountConfig contains wallet initialization parameters.
type AccountConfig struct {
	InitialCapital string            `json:"initial_capital" yaml:"initial_capital"`
	QuoteAssets    map[string]string `json:"quote_assets,omitempty" yaml:"quote_assets,omitempty"`
}

// FeesConfig contains fee model parameters as decimal strings.
type FeesConfig struct {
	TradingFeeRate    string `json:"trading_fee_rate" yaml:"trading_fee_rate"`
	HourlyFundingRate string `json:"hourly_funding_rate" yaml:"hourly_funding_rate"`
	Leverage          string `json:"leverage" yaml:"leverage"`
}

// StrategyConfig contains backtest strategy parameters. TrendThreshold
// and MinTPDistancePct are pointers so an explicit zero in the file is
// distinguishable from the field being absent.
type StrategyConfig struct {
	Symbol           string   `json:"symbol" yaml:"symbol"`
	Period           int      `json:"period" yaml:"period"`
	BandMult         float64  `json:"band_mult" yaml:"band_mult"`
	TrendThreshold   *float64 `json:"trend_threshold,omitempty" yaml:"trend_threshold,omitempty"`
	TPRangeRatio     float64  `json:"tp_range_ratio" yaml:"tp_range_ratio"`
	SLRangeRatio     float64  `json:"sl_range_ratio" yaml:"sl_range_ratio"`
	MinTPDistancePct *float64 `json:"min_tp_distance_pct,omitempty" yaml:"min_tp_distance_pct,omitempty"`
	TieBreak         string   `json:"tie_break" yaml:"tie_break"` // "stop-loss" or "take-profit"
}

// BacktestConfig contains candle input parameters.
type BacktestConfig struct {
	CandlesFile string `json:"candles_file" yaml:"candles_file"`
	Timeframe   string `json:"timeframe,omitempty" yaml:"timeframe,omitempty"` // optional resample width, e.g. "1h"
	CloseEnd    bool   `json:"close_end" yaml:"close_end"`
}

// JournalConfig contains journaling parameters.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file, trying YAML first and
// falling back to JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file, choosing the format by
// extension.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := c.FeeConfig(); err != nil {
		return err
	}
	if _, err := c.AccountConfig(); err != nil {
		return err
	}
	if c.Strategy.Symbol != "" {
		if _, err := c.StrategyConfig(); err != nil {
			return err
		}
	}
	switch c.Journal.Type {
	case "", "csv", "sqlite":
	default:
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	if c.Journal.Type == "csv" && (c.Journal.TradesFile == "" || c.Journal.EquityFile == "") {
		return fmt.Errorf("journal trades_file and equity_file required for CSV type")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal db_path required for SQLite type")
	}
	if c.Backtest.Timeframe != "" {
		d, err := time.ParseDuration(c.Backtest.Timeframe)
		if err != nil || d <= 0 {
			return fmt.Errorf("backtest.timeframe must be a positive duration: %q", c.Backtest.Timeframe)
		}
	}
	return nil
}

// FeeConfig converts the string rates into the fee model parameters.
func (c *Config) FeeConfig() (fees.Config, error) {
	var out fees.Config
	for _, f := range []struct {
		name string
		src  string
		dst  *decimal.Decimal
	}{
		{"fees.trading_fee_rate", c.Fees.TradingFeeRate, &out.TradingFeeRate},
		{"fees.hourly_funding_rate", c.Fees.HourlyFundingRate, &out.HourlyFundingRate},
		{"fees.leverage", c.Fees.Leverage, &out.Leverage},
	} {
		if f.src == "" {
			continue
		}
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return fees.Config{}, fmt.Errorf("%s: bad decimal %q: %w", f.name, f.src, err)
		}
		if d.IsNegative() {
			return fees.Config{}, fmt.Errorf("%s must be non-negative, got %s", f.name, d)
		}
		*f.dst = d
	}
	if out.Leverage.IsZero() {
		out.Leverage = decimal.NewFromInt(1)
	}
	return out, nil
}

// AccountConfig builds the accounting run parameters.
func (c *Config) AccountConfig() (account.Config, error) {
	fc, err := c.FeeConfig()
	if err != nil {
		return account.Config{}, err
	}

	out := account.Config{Fees: fc, QuoteAssets: c.Account.QuoteAssets}
	if c.Account.InitialCapital != "" {
		d, err := decimal.NewFromString(c.Account.InitialCapital)
		if err != nil {
			return account.Config{}, fmt.Errorf("account.initial_capital: bad decimal %q: %w", c.Account.InitialCapital, err)
		}
		if d.IsNegative() {
			return account.Config{}, fmt.Errorf("account.initial_capital must be non-negative, got %s", d)
		}
		out.InitialCapital = d
	}
	return out, nil
}

// StrategyConfig builds the strategy parameters, applying defaults for
// zero-valued fields.
func (c *Config) StrategyConfig() (strategy.Config, error) {
	out := strategy.Default()
	if c.Strategy.Period != 0 {
		out.Period = c.Strategy.Period
	}
	if c.Strategy.BandMult != 0 {
		out.BandMult = c.Strategy.BandMult
	}
	if c.Strategy.TrendThreshold != nil {
		out.TrendThreshold = *c.Strategy.TrendThreshold
	}
	if c.Strategy.TPRangeRatio != 0 {
		out.TPRangeRatio = c.Strategy.TPRangeRatio
	}
	if c.Strategy.SLRangeRatio != 0 {
		out.SLRangeRatio = c.Strategy.SLRangeRatio
	}
	if c.Strategy.MinTPDistancePct != nil {
		out.MinTPDistancePct = *c.Strategy.MinTPDistancePct
	}
	switch c.Strategy.TieBreak {
	case "", "stop-loss":
		out.TieBreak = strategy.TieBreakStopLoss
	case "take-profit":
		out.TieBreak = strategy.TieBreakTakeProfit
	default:
		return strategy.Config{}, fmt.Errorf("strategy.tie_break must be 'stop-loss' or 'take-profit', got %q", c.Strategy.TieBreak)
	}
	if err := out.Validate(); err != nil {
		return strategy.Config{}, err
	}
	return out, nil
}

func floatPtr(v float64) *float64 { return &v }

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			InitialCapital: "1000",
		},
		Fees: FeesConfig{
			TradingFeeRate:    "0.00045",
			HourlyFundingRate: "0.0000057",
			Leverage:          "5",
		},
		Strategy: StrategyConfig{
			Symbol:           "BTCUSDT",
			Period:           100,
			BandMult:         2,
			TrendThreshold:   floatPtr(0.3),
			TPRangeRatio:     0.75,
			SLRangeRatio:     1.1,
			MinTPDistancePct: floatPtr(0.75),
			TieBreak:         "stop-loss",
		},
		Backtest: BacktestConfig{
			CloseEnd: true,
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
	}
}
