package config

import (
	"time"

	"github.com/GoPolymarket/polymarket-trader/internal/executor"
	"github.com/GoPolymarket/polymarket-trader/internal/money"
	"github.com/GoPolymarket/polymarket-trader/internal/runner"
	"github.com/GoPolymarket/polymarket-trader/internal/settlement"
	"github.com/GoPolymarket/polymarket-trader/internal/venue"
)

// RunnerConfig converts the serializable directional settings into
// internal/runner.Config, the type the tick loop actually consumes.
func (d DirectionalConfig) RunnerConfig() runner.Config {
	cfg := runner.DefaultConfig(d.Coins)
	if d.CheckIntervalMs > 0 {
		cfg.CheckInterval = time.Duration(d.CheckIntervalMs) * time.Millisecond
	}
	if d.MarketRefreshMs > 0 {
		cfg.MarketRefresh = time.Duration(d.MarketRefreshMs) * time.Millisecond
	}
	if d.SignalBuffer > 0 {
		cfg.SignalBuffer = d.SignalBuffer
	}
	if d.ReferenceHistory > 0 {
		cfg.ReferenceHistory = d.ReferenceHistory
	}
	return cfg
}

// ExecutorConfig converts the serializable directional settings into
// internal/executor.Config's money.Price-bearing gate thresholds.
func (d DirectionalConfig) ExecutorConfig() executor.Config {
	cfg := executor.DefaultConfig()
	if d.MaxTradesPerWindow > 0 {
		cfg.MaxTradesPerWindow = d.MaxTradesPerWindow
	}
	if d.MaxPositionPerWindow > 0 {
		cfg.MaxPositionPerWindow = money.NewFromFloat(d.MaxPositionPerWindow)
	}
	if d.FixedBetSize > 0 {
		cfg.FixedBetSize = money.NewFromFloat(d.FixedBetSize)
	}
	if d.MinBetSize > 0 {
		cfg.MinBetSize = money.NewFromFloat(d.MinBetSize)
	}
	if d.MaxBetSize > 0 {
		cfg.MaxBetSize = money.NewFromFloat(d.MaxBetSize)
	}
	if d.MaxEntryPrice > 0 {
		cfg.MaxEntryPrice = money.NewFromFloat(d.MaxEntryPrice)
	}
	if d.MinEdge > 0 {
		cfg.MinEdge = d.MinEdge
	}
	if d.BuySlippage > 0 {
		cfg.BuySlippage = d.BuySlippage
	}
	if d.MaxRetries > 0 {
		cfg.MaxRetries = d.MaxRetries
	}
	if d.LotSize > 0 {
		cfg.LotSize = money.NewFromFloat(d.LotSize)
	}
	return cfg
}

// SettlementConfig converts the serializable directional settings into
// internal/settlement.Config.
func (d DirectionalConfig) SettlementConfig() settlement.Config {
	cfg := settlement.DefaultConfig()
	if d.SettlementDelayMs > 0 {
		cfg.SettlementDelayMs = d.SettlementDelayMs
	}
	if d.MaxPendingAgeMs > 0 {
		cfg.MaxPendingAgeMs = d.MaxPendingAgeMs
	}
	if d.FeeRate > 0 {
		cfg.FeeRate = d.FeeRate
	}
	return cfg
}

// RawDataFlushInterval converts the millisecond flush cadence into a
// time.Duration for internal/rawdata.NewBatchWriter.
func (d DirectionalConfig) RawDataFlushInterval() time.Duration {
	if d.RawDataFlushMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(d.RawDataFlushMs) * time.Millisecond
}

// RedisDedupeTTL converts the millisecond de-dup window into a
// time.Duration for internal/reftrack.NewOpportunityDedupe.
func (d DirectionalConfig) RedisDedupeTTL() time.Duration {
	if d.RedisDedupeTTLMs <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(d.RedisDedupeTTLMs) * time.Millisecond
}

// ReconnectPolicy converts the millisecond reconnect settings into an
// internal/venue.ReconnectPolicy shared by the Binance and Polymarket
// sessions. Zero fields fall back to venue.DefaultReconnectPolicy().
func (d DirectionalConfig) ReconnectPolicy() venue.ReconnectPolicy {
	cfg := venue.DefaultReconnectPolicy()
	if d.ReconnectInitialDelayMs > 0 {
		cfg.InitialDelay = time.Duration(d.ReconnectInitialDelayMs) * time.Millisecond
	}
	if d.ReconnectMaxDelayMs > 0 {
		cfg.MaxDelay = time.Duration(d.ReconnectMaxDelayMs) * time.Millisecond
	}
	if d.ReconnectMaxAttempts > 0 {
		cfg.MaxAttempts = d.ReconnectMaxAttempts
	}
	return cfg
}
