package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/txopicker/config"
)

func TestApplyFlags_ModeSetsDefaultLeverage(t *testing.T) {
	cfg := &config.Config{}
	applyFlags(cfg, "202406", "put", "short", 0, true, 7)

	assert.Equal(t, "202406", cfg.Search.Month)
	assert.Equal(t, "put", cfg.Search.Side)
	assert.Equal(t, "short", cfg.Search.Mode)
	assert.Equal(t, 12.0, cfg.Search.TargetLeverage)
	assert.True(t, cfg.Search.SafeMode)
	assert.Equal(t, 7, cfg.Search.TopN)
}

func TestApplyFlags_ExplicitLeverageWins(t *testing.T) {
	cfg := &config.Config{}
	applyFlags(cfg, "", "", "long", 3.5, false, 0)

	assert.Equal(t, 3.5, cfg.Search.TargetLeverage)
	assert.Equal(t, 0, cfg.Search.TopN, "top 0 keeps config value")
}

func TestPickerConfig_KeepsZeroKnobs(t *testing.T) {
	cfg := &config.Config{}
	cfg.Data.Symbol = "TXO"
	cfg.Search.MinAbsDelta = 0
	cfg.Search.MinPrice = 0
	cfg.Pricing.RiskFreeRate = 0
	cfg.Search.TopN = 5

	pc := pickerConfig(cfg, true)
	assert.Equal(t, "TXO", pc.Symbol)
	assert.Equal(t, 0.0, pc.RiskFreeRate)
	assert.Equal(t, 0.0, pc.MinPrice)
	assert.Equal(t, 0.0, pc.Filter.MinAbsDelta)
	assert.Equal(t, 5, pc.TopN)
	assert.True(t, pc.DryRun)
}
