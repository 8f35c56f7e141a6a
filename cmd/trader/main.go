// cmd/trader is the composition root that wires the directional-trading
// stack: Binance/Polymarket/Kalshi venue sessions feed internal/runner's
// tick loop, its signals dispatch to per-coin internal/executor
// instances guarded by per-coin internal/settlement handlers, fills and
// raw market data persist through internal/store, and internal/healthsrv
// serves operational status. Stays a flag.FlagSet entrypoint like the
// teacher's own cmd/trader/main.go — CLI argument parsing is out of
// scope, so this never grows into a cobra command tree.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	polymarket "github.com/GoPolymarket/polymarket-go-sdk"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"

	"github.com/GoPolymarket/polymarket-trader/internal/clobclient"
	"github.com/GoPolymarket/polymarket-trader/internal/config"
	"github.com/GoPolymarket/polymarket-trader/internal/detect"
	"github.com/GoPolymarket/polymarket-trader/internal/execport"
	"github.com/GoPolymarket/polymarket-trader/internal/executor"
	"github.com/GoPolymarket/polymarket-trader/internal/gammaclient"
	"github.com/GoPolymarket/polymarket-trader/internal/healthsrv"
	"github.com/GoPolymarket/polymarket-trader/internal/kalshiclient"
	"github.com/GoPolymarket/polymarket-trader/internal/lifecycle"
	"github.com/GoPolymarket/polymarket-trader/internal/money"
	"github.com/GoPolymarket/polymarket-trader/internal/notify"
	"github.com/GoPolymarket/polymarket-trader/internal/postracker"
	"github.com/GoPolymarket/polymarket-trader/internal/rawdata"
	"github.com/GoPolymarket/polymarket-trader/internal/reftrack"
	"github.com/GoPolymarket/polymarket-trader/internal/risk"
	"github.com/GoPolymarket/polymarket-trader/internal/runner"
	"github.com/GoPolymarket/polymarket-trader/internal/settlement"
	"github.com/GoPolymarket/polymarket-trader/internal/store"
	"github.com/GoPolymarket/polymarket-trader/internal/venue"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadFile(*cfgPath)
	if err != nil {
		slog.Warn("config file unreadable, using defaults", "err", err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.Default()
	logger.Info("polymarket-trader starting", "trading_mode", cfg.TradingMode, "coins", cfg.Directional.Coins)

	sched := lifecycle.New(context.Background(), logger)
	group := lifecycle.NewGroup(logger)

	a, err := buildApp(sched.Context(), cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}

	a.start(sched.Context(), group)

	go sched.Wait()
	<-sched.Context().Done()
	logger.Info("shutdown signal received, waiting for components to drain")
	group.Wait()
	a.close()
	logger.Info("shutdown complete")
}

// tokenHistory records every market the runner ever activated, keyed by
// (coin, window_start_ms), so the settlement cascade's fast-settle path
// can resolve a now-rolled-over window's winning token id — the runner
// itself only ever caches the currently active market, not history.
type tokenHistory struct {
	mu     sync.Mutex
	byCoin map[string]map[int64]runner.MarketMetadata
}

func newTokenHistory() *tokenHistory {
	return &tokenHistory{byCoin: make(map[string]map[int64]runner.MarketMetadata)}
}

func (h *tokenHistory) record(m runner.MarketMetadata) {
	h.mu.Lock()
	defer h.mu.Unlock()
	windows, ok := h.byCoin[m.Coin]
	if !ok {
		windows = make(map[int64]runner.MarketMetadata)
		h.byCoin[m.Coin] = windows
	}
	windows[m.WindowStart] = m
	pruneStale(windows, m.WindowStart)
}

// pruneStale drops any window more than 2 hours behind the newest one
// recorded, bounding memory across an unattended multi-day run.
func pruneStale(windows map[int64]runner.MarketMetadata, newestStart int64) {
	const retainMs = 2 * 60 * 60 * 1000
	for start := range windows {
		if newestStart-start > retainMs {
			delete(windows, start)
		}
	}
}

// TokenID satisfies executor.TokenLookup: the executor only ever resolves
// the currently active window's token, so this returns the latest one
// recorded for coin.
func (h *tokenHistory) TokenID(coin string, isYes bool) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var latest runner.MarketMetadata
	found := false
	for _, m := range h.byCoin[coin] {
		if !found || m.WindowStart > latest.WindowStart {
			latest = m
			found = true
		}
	}
	if !found {
		return "", false
	}
	if isYes {
		return latest.YesTokenID, latest.YesTokenID != ""
	}
	return latest.NoTokenID, latest.NoTokenID != ""
}

// CoinForToken reverse-looks-up which coin a token id belongs to, so a
// venue callback keyed only on assetID can label raw-data records by coin.
func (h *tokenHistory) CoinForToken(tokenID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for coin, windows := range h.byCoin {
		for _, m := range windows {
			if m.YesTokenID == tokenID || m.NoTokenID == tokenID {
				return coin, true
			}
		}
	}
	return "", false
}

// WinningTokenID satisfies settlement.TokenResolver: resolve the specific
// historical window's token for whichever leg the tracker actually holds.
func (h *tokenHistory) WinningTokenID(coin string, windowStart int64, tracker *postracker.WindowPositionTracker) (string, bool, bool) {
	h.mu.Lock()
	m, ok := h.byCoin[coin][windowStart]
	h.mu.Unlock()
	if !ok || tracker == nil {
		return "", false, false
	}
	if tracker.YesPosition != nil {
		return m.YesTokenID, true, m.YesTokenID != ""
	}
	if tracker.NoPosition != nil {
		return m.NoTokenID, false, m.NoTokenID != ""
	}
	return "", false, false
}

// app bundles every long-running component and the handles main needs to
// start and later close them.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	runner     *runner.Runner
	binance    *venue.BinanceSession
	poly       *venue.PolymarketSession
	health     *healthsrv.Server
	collectors *rawdata.Collectors
	db         *store.DB
	risk       *risk.Manager
	notifier   *notify.Notifier
	paper      *execport.PaperAdapter

	coins           []string
	executors       map[string]*executor.Executor
	handlers        map[string]*settlement.Handler
	persistence     map[string]*postracker.Persistence
	history         *tokenHistory
	nominalBetUSDC  float64

	crossMarket  *detect.CrossMarketDetector
	kalshiSpread *detect.KalshiSpreadDetector
	kalshi       *kalshiclient.Client
	dedupe       *reftrack.OpportunityDedupe
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	_ = a.dedupe.Close()
}

func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	dcfg := cfg.Directional

	gammaBase := firstNonEmpty(dcfg.GammaBaseURL, "https://gamma-api.polymarket.com")
	clobBase := firstNonEmpty(dcfg.ClobBaseURL, "https://clob.polymarket.com")
	kalshiBase := firstNonEmpty(dcfg.KalshiBaseURL, "https://trading-api.kalshi.com/trade-api/v2")

	gammaCli := gammaclient.NewClient(gammaBase)
	clobCli := clobclient.NewClient(clobBase)

	var kalshiCli *kalshiclient.Client
	if dcfg.KalshiAPIKeyID != "" && dcfg.KalshiPrivKeyPath != "" {
		pemBytes, err := os.ReadFile(dcfg.KalshiPrivKeyPath)
		if err != nil {
			return nil, fmt.Errorf("kalshi private key: %w", err)
		}
		privKey, err := kalshiclient.LoadPrivateKey(pemBytes)
		if err != nil {
			return nil, fmt.Errorf("kalshi private key parse: %w", err)
		}
		kalshiCli = kalshiclient.NewClient(kalshiBase, dcfg.KalshiAPIKeyID, privKey)
	} else {
		logger.Warn("kalshi credentials not configured, cross-exchange spread detection disabled")
	}

	var db *store.DB
	var collectors *rawdata.Collectors
	if dcfg.PostgresDSN != "" {
		var err error
		db, err = store.Open(ctx, dcfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("store migrate: %w", err)
		}
		collectors = rawdata.NewCollectors(db, logger)
	}

	var paper *execport.PaperAdapter
	var port execport.Port
	mode := strings.ToLower(strings.TrimSpace(cfg.TradingMode))
	if mode == "live" {
		if cfg.PrivateKey == "" || cfg.APIKey == "" {
			return nil, fmt.Errorf("live trading requires POLYMARKET_PK and POLYMARKET_API_KEY")
		}
		signer, err := auth.NewPrivateKeySigner(strings.TrimSpace(cfg.PrivateKey), 137)
		if err != nil {
			return nil, fmt.Errorf("signer: %w", err)
		}
		apiKey := &auth.APIKey{
			Key:        strings.TrimSpace(cfg.APIKey),
			Secret:     strings.TrimSpace(cfg.APISecret),
			Passphrase: strings.TrimSpace(cfg.APIPassphrase),
		}
		sdkClient := polymarket.NewClient()
		liveClient := sdkClient.CLOB.WithAuth(signer, apiKey)
		port = execport.NewLiveAdapter(liveClient, signer, apiKey, execport.DefaultLiveConfig(), logger)
	} else {
		paper = execport.NewPaperAdapter(execport.DefaultPaperConfig())
		port = paper
	}

	history := newTokenHistory()

	// poly's onUpdate callback keeps the raw-data book collector and the
	// paper adapter's pricing books current on every delta/snapshot,
	// independent of the runner's own tick cadence.
	var poly *venue.PolymarketSession
	onBookUpdate := func(assetID string) {
		book, ok := poly.Book(assetID)
		if !ok {
			return
		}
		if collectors != nil {
			coin, _ := history.CoinForToken(assetID)
			collectors.ObserveBook(coin, assetID, book, time.Now().UnixMilli())
		}
		if paper != nil {
			paper.SetBook(assetID, &book)
		}
	}
	polyCfg := venue.DefaultPolymarketConfig()
	polyCfg.Reconnect = dcfg.ReconnectPolicy()
	poly = venue.NewPolymarketSession(polyCfg, onBookUpdate, logger)

	var runnerHolder atomicRunner
	symbols := make([]string, 0, len(dcfg.Coins))
	for _, c := range dcfg.Coins {
		symbols = append(symbols, strings.ToUpper(c)+"USDT")
	}
	onTrade := func(t venue.Trade) {
		coin := coinFromSymbol(t.Symbol)
		if r := runnerHolder.Load(); r != nil {
			r.ObserveSpot(coin, t.Price, t.TradeTimeMs)
		}
	}
	onLiq := func(l venue.Liquidation) {
		if collectors != nil {
			coin := coinFromSymbol(l.Symbol)
			collectors.ObserveLiquidation(coin, l.Symbol, l.Side, l.Qty, l.Price, l.TradeTimeMs)
		}
	}
	binanceCfg := venue.DefaultBinanceConfig()
	binanceCfg.Reconnect = dcfg.ReconnectPolicy()
	binance := venue.NewBinanceSession(binanceCfg, symbols, onTrade, onLiq, logger)

	directional := detect.NewDirectionalDetector(detect.DefaultDirectionalConfig(), nil)
	clobTiming := detect.NewClobTimingDetector(detect.DefaultClobTimingConfig(), nil)
	latency := detect.NewLatencyDetector(detect.DefaultLatencyConfig(), nil)
	crossMarket := detect.NewCrossMarketDetector(detect.DefaultCrossMarketConfig())
	var kalshiSpread *detect.KalshiSpreadDetector
	if kalshiCli != nil {
		kalshiSpread = detect.NewKalshiSpreadDetector(detect.DefaultKalshiSpreadConfig())
	}

	r := runner.NewRunner(dcfg.RunnerConfig(), gammaCli, poly, poly, directional, clobTiming, latency, logger)
	if telemetry, err := lifecycle.NewTelemetry("polymarket-trader.runner"); err != nil {
		logger.Error("runner telemetry setup failed", "err", err)
	} else {
		r.SetTelemetry(telemetry.Tracer, telemetry.TicksEvaluated, telemetry.SignalsEmitted, telemetry.SignalsDropped)
	}
	runnerHolder.Store(r)

	persistDir := "data/positions"
	if err := os.MkdirAll(persistDir, 0o755); err != nil {
		return nil, fmt.Errorf("create position directory: %w", err)
	}

	var oracle *venue.ChainlinkOracle
	if dcfg.ChainlinkRPCURL != "" && len(dcfg.ChainlinkFeedAddresses) > 0 {
		var err error
		oracle, err = venue.NewChainlinkOracle(venue.ChainlinkConfig{
			RPCURL:        dcfg.ChainlinkRPCURL,
			FeedAddresses: dcfg.ChainlinkFeedAddresses,
		})
		if err != nil {
			logger.Warn("chainlink oracle unavailable, settlement cascade loses its last-resort step", "err", err)
			oracle = nil
		}
	} else {
		logger.Warn("chainlink oracle not configured, settlement relies on clob fast-settle and the resolution api only")
	}

	executors := make(map[string]*executor.Executor)
	handlers := make(map[string]*settlement.Handler)
	persistence := make(map[string]*postracker.Persistence)
	for _, coin := range dcfg.Coins {
		persist := postracker.NewPersistence(fmt.Sprintf("%s/%s.json", persistDir, strings.ToLower(coin)))
		persistence[coin] = persist

		sources := []settlement.OutcomeSource{
			settlement.NewClobFastSettle(clobCli, history),
			settlement.NewResolutionAPISource(gammaCli),
		}
		if oracle != nil {
			sources = append(sources, settlement.NewOracleFallback(oracle))
		}
		handlers[coin] = settlement.NewHandler(coin, dcfg.SettlementConfig(), logger, sources...)

		executors[coin] = executor.NewExecutor(dcfg.ExecutorConfig(), port, history,
			handlers[coin], func(c string) *postracker.Persistence { return persistence[c] }, 256, logger)
	}

	health := healthsrv.NewServer(dcfg.HealthAddr, healthSource{collectors}, statsAggregator{executors})
	notifier := notify.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)

	riskMgr := risk.New(risk.Config{
		MaxOpenOrders:           cfg.Risk.MaxOpenOrders,
		MaxDailyLossUSDC:        cfg.Risk.MaxDailyLossUSDC,
		MaxDailyLossPct:         cfg.Risk.MaxDailyLossPct,
		AccountCapitalUSDC:      cfg.Risk.AccountCapitalUSDC,
		MaxPositionPerMarket:    cfg.Risk.MaxPositionPerMarket,
		StopLossPerMarket:       cfg.Risk.StopLossPerMarket,
		MaxDrawdownPct:          cfg.Risk.MaxDrawdownPct,
		RiskSyncInterval:        cfg.Risk.RiskSyncInterval,
		MaxConsecutiveLosses:    cfg.Risk.MaxConsecutiveLosses,
		ConsecutiveLossCooldown: cfg.Risk.ConsecutiveLossCooldown,
	})
	riskMgr.SetEmergencyStop(cfg.Risk.EmergencyStop)

	dedupe := reftrack.NewNoopDedupe()
	if dcfg.RedisAddr != "" {
		dedupe = reftrack.NewOpportunityDedupe(dcfg.RedisAddr, dcfg.RedisDedupeTTL())
	} else {
		logger.Info("redis_addr not configured, opportunity de-dup is per-process only")
	}

	return &app{
		cfg:            cfg,
		logger:         logger,
		runner:         r,
		binance:        binance,
		poly:           poly,
		health:         health,
		collectors:     collectors,
		db:             db,
		risk:           riskMgr,
		notifier:       notifier,
		paper:          paper,
		coins:          dcfg.Coins,
		executors:      executors,
		handlers:       handlers,
		persistence:    persistence,
		history:        history,
		nominalBetUSDC: dcfg.ExecutorConfig().FixedBetSize.Float64(),
		crossMarket:    crossMarket,
		kalshiSpread:   kalshiSpread,
		kalshi:         kalshiCli,
		dedupe:         dedupe,
	}, nil
}

func (a *app) start(ctx context.Context, group *lifecycle.Group) {
	run := func(name string, fn func(context.Context) error) {
		group.Go(name, func() error { return fn(ctx) })
	}

	run("runner", a.runner.Run)
	run("binance", a.binance.Run)
	run("polymarket", a.poly.Run)
	run("healthsrv", a.health.ListenAndServe)

	if a.collectors != nil {
		run("rawdata_collectors", a.collectors.Run)
	}

	run("market_history", a.runMarketHistory)
	run("signal_dispatch", a.runSignalDispatch)
	run("settlement_sweep", a.runSettlementSweep)
	run("trade_persistence", a.runTradePersistence)

	if a.crossMarket != nil {
		run("cross_market_poll", a.runCrossMarketPoll)
	}
	if a.kalshiSpread != nil && a.kalshi != nil {
		run("kalshi_spread_poll", a.runKalshiSpreadPoll)
	}
	if a.collectors != nil {
		run("funding_poll", a.runFundingPoll)
	}
}

// runFundingPoll periodically pulls each coin's latest Binance funding rate
// into the raw-data collector — funding is published every 8 hours, so a
// minute-scale poll never misses a print.
func (a *app) runFundingPoll(ctx context.Context) error {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	const fundingPeriodsPerYear = 1095 // Binance settles funding every 8h
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := time.Now().UnixMilli()
			for _, coin := range a.coins {
				symbol := strings.ToUpper(coin) + "USDT"
				rates, err := a.binance.FundingRates(ctx, symbol, now-24*60*60*1000, now, 3)
				if err != nil {
					a.logger.Warn("funding rate poll failed", "coin", coin, "err", err)
					continue
				}
				if len(rates) == 0 {
					continue
				}
				latest := rates[len(rates)-1]
				annualized := latest.Rate.Mul(money.NewFromFloat(fundingPeriodsPerYear))
				a.collectors.ObserveFunding(coin, symbol, latest.Rate, annualized, latest.FundingTimeMs)
			}
		}
	}
}

// runMarketHistory periodically snapshots every coin's active market
// into tokenHistory, the only way a since-rolled-over window's token ids
// stay resolvable for settlement.
func (a *app) runMarketHistory(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, coin := range a.coins {
				if m, ok := a.runner.MarketFor(coin); ok {
					a.history.record(m)
				}
			}
		}
	}
}

// runSignalDispatch drains the runner's shared signal channel and routes
// each signal to its coin's own executor, since one settlement.Handler
// per coin is required to avoid WindowStartMs collisions across coins
// whose windows share the same wall-clock boundaries.
func (a *app) runSignalDispatch(ctx context.Context) error {
	signals := a.runner.Signals()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			ex, found := a.executors[sig.Coin]
			if !found {
				a.logger.Warn("signal for unknown coin", "coin", sig.Coin)
				continue
			}
			if err := a.risk.Allow(sig.Coin, a.nominalBetUSDC); err != nil {
				ex.Stats().RecordGateBlock(time.Now(), "risk_manager")
				a.logger.Warn("risk manager blocked signal", "coin", sig.Coin, "err", err)
				continue
			}
			if err := ex.Handle(ctx, sig); err != nil {
				a.logger.Error("executor handle failed", "coin", sig.Coin, "err", err)
			}
		}
	}
}

// runSettlementSweep periodically checks every coin's handler for
// windows old enough to settle, records the result into Stats, persists
// it, and fires a Telegram alert on a losing settlement.
func (a *app) runSettlementSweep(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := time.Now().UnixMilli()
			for _, coin := range a.coins {
				h := a.handlers[coin]
				for _, windowStart := range h.SettleableWindows(now) {
					result, err := h.SettleWindow(ctx, coin, windowStart)
					if err != nil {
						a.logger.Warn("settlement failed", "coin", coin, "window_start", windowStart, "err", err)
						continue
					}
					if result == nil {
						continue
					}
					a.executors[coin].Stats().RecordSettlement(time.Now(), result.RealizedPnl.Float64())
					a.risk.RecordPnL(result.RealizedPnl.Float64())
					if a.risk.RecordTradeResult(result.RealizedPnl.Float64()) {
						a.logger.Warn("consecutive loss cooldown triggered", "coin", coin)
					}
					if a.db != nil {
						if err := a.db.UpdateTradeSettlement(ctx, coin, windowStart, *result); err != nil {
							a.logger.Error("persist settlement failed", "coin", coin, "err", err)
						}
					}
					if result.RealizedPnl.IsNegative() && a.notifier.Enabled() {
						_ = a.notifier.Send(ctx, fmt.Sprintf("%s window %d settled at a loss: %s", coin, windowStart, result.RealizedPnl.String()))
					}
				}
				if stale := h.CleanupStale(now); stale > 0 {
					a.logger.Warn("cleaned up stale pending settlements", "coin", coin, "count", stale)
				}
			}
		}
	}
}

// runTradePersistence drains every coin's executor trade channel into
// durable storage, when one is configured.
func (a *app) runTradePersistence(ctx context.Context) error {
	if a.db == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	var wg sync.WaitGroup
	for _, ex := range a.executors {
		wg.Add(1)
		go func(ch <-chan executor.TradeRecord) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case tr, ok := <-ch:
					if !ok {
						return
					}
					if _, err := a.db.InsertTrade(ctx, tr); err != nil {
						a.logger.Error("insert trade failed", "coin", tr.Coin, "err", err)
					}
				}
			}
		}(ex.TradeRecords())
	}
	wg.Wait()
	return ctx.Err()
}

// runCrossMarketPoll builds a same-tick snapshot of every coin's market
// and checks every pair/combination for correlation-arbitrage
// opportunities, persisting any that clear the configured thresholds.
func (a *app) runCrossMarketPoll(ctx context.Context) error {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := time.Now().UnixMilli()
			snapshots := make([]detect.CoinMarketSnapshot, 0, len(a.coins))
			for _, coin := range a.coins {
				m, ok := a.runner.MarketFor(coin)
				if !ok {
					continue
				}
				upBook, upOK := a.poly.Book(m.YesTokenID)
				downBook, downOK := a.poly.Book(m.NoTokenID)
				if !upOK || !downOK {
					continue
				}
				upAsk, ok1 := upBook.BestAsk()
				downAsk, ok2 := downBook.BestAsk()
				if !ok1 || !ok2 {
					continue
				}
				snapshots = append(snapshots, detect.CoinMarketSnapshot{
					Coin:        coin,
					UpPrice:     upAsk.Price,
					DownPrice:   downAsk.Price,
					UpTokenID:   m.YesTokenID,
					DownTokenID: m.NoTokenID,
					TimestampMs: now,
				})
			}
			for _, opp := range a.crossMarket.Check(snapshots, now) {
				key := fmt.Sprintf("xmkt:%s:%s:%s:%d", opp.Coin1, opp.Coin2, opp.Combination.String(), reftrack.WindowStart(now))
				if a.dedupe.Seen(ctx, key) {
					continue
				}
				a.logger.Info("cross-market opportunity", "coin1", opp.Coin1, "coin2", opp.Coin2, "combination", opp.Combination.String(), "expected_value", opp.ExpectedValue.String())
				if a.db != nil {
					if _, err := a.db.InsertCrossMarketOpportunity(ctx, opp); err != nil {
						a.logger.Error("persist cross-market opportunity failed", "err", err)
					}
				}
			}
		}
	}
}

// runKalshiSpreadPoll compares each coin's Polymarket YES ask to Kalshi's
// same-underlying quote, logging any spread wide enough to trade.
func (a *app) runKalshiSpreadPoll(ctx context.Context) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := time.Now().UnixMilli()
			for _, coin := range a.coins {
				m, ok := a.runner.MarketFor(coin)
				if !ok {
					continue
				}
				yesBook, ok := a.poly.Book(m.YesTokenID)
				if !ok {
					continue
				}
				yesAsk, ok := yesBook.BestAsk()
				if !ok {
					continue
				}
				quote, err := a.kalshi.Quote(ctx, coin)
				if err != nil {
					a.logger.Warn("kalshi quote failed", "coin", coin, "err", err)
					continue
				}
				if opp := a.kalshiSpread.Evaluate(coin, m.WindowStart, now, yesAsk.Price, quote); opp != nil {
					key := fmt.Sprintf("kalshi:%s:%d", coin, m.WindowStart)
					if a.dedupe.Seen(ctx, key) {
						continue
					}
					a.logger.Info("kalshi spread opportunity", "coin", coin, "spread", opp.Spread, "buy_venue", opp.BuyVenue)
				}
			}
		}
	}
}

type healthSource struct {
	collectors *rawdata.Collectors
}

func (h healthSource) Health(nowMs int64) rawdata.Report {
	if h.collectors == nil {
		return rawdata.Report{Status: "healthy"}
	}
	return h.collectors.Health(nowMs)
}

// statsAggregator merges every coin's executor stats into a single
// snapshot for the /stats endpoint — healthsrv.StatsSource expects one
// source, while the composition root runs one Stats per coin.
type statsAggregator struct {
	executors map[string]*executor.Executor
}

func (s statsAggregator) Snapshot(now time.Time) executor.Snapshot {
	var merged executor.Snapshot
	merged.GateBlocksDaily = make(map[string]int)
	for _, ex := range s.executors {
		snap := ex.Stats().Snapshot(now)
		merged.SignalsSeenDaily += snap.SignalsSeenDaily
		merged.SignalsExecutedDaily += snap.SignalsExecutedDaily
		merged.SettledDaily += snap.SettledDaily
		merged.WonDaily += snap.WonDaily
		merged.LostDaily += snap.LostDaily
		merged.CircuitBreakerTrips += snap.CircuitBreakerTrips
		merged.RealizedPnLDaily += snap.RealizedPnLDaily
		merged.RealizedPnLTotal += snap.RealizedPnLTotal
		for k, v := range snap.GateBlocksDaily {
			merged.GateBlocksDaily[k] += v
		}
	}
	if merged.SettledDaily > 0 {
		merged.WinRateDaily = float64(merged.WonDaily) / float64(merged.SettledDaily)
	}
	return merged
}

func coinFromSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSuffix(strings.ToUpper(symbol), "USDT"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// atomicRunner lets the Binance trade callback, constructed before the
// runner exists, reach it once buildApp finishes wiring everything
// together.
type atomicRunner struct {
	mu sync.Mutex
	r  *runner.Runner
}

func (a *atomicRunner) Store(r *runner.Runner) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.r = r
}

func (a *atomicRunner) Load() *runner.Runner {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.r
}
