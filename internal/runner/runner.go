// Package runner implements the periodic tick loop from spec.md §4.6:
// fetch each coin's market metadata at startup, subscribe the book feed to
// its token IDs, then on every check_interval_ms tick refresh the
// reference/spot state and invoke each enabled detector, pushing emitted
// signals into a bounded channel with a non-blocking send so a slow
// executor never stalls the loop. Grounded on the teacher's
// internal/app's run loop shape (ticker-driven, context-cancelled) and
// strategy.CryptoSignalTracker's per-coin state map (teacher's
// internal/strategy/crypto_signal.go).
package runner

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/GoPolymarket/polymarket-trader/internal/detect"
	"github.com/GoPolymarket/polymarket-trader/internal/money"
	"github.com/GoPolymarket/polymarket-trader/internal/orderbook"
	"github.com/GoPolymarket/polymarket-trader/internal/reftrack"
	"github.com/GoPolymarket/polymarket-trader/internal/rollbuf"
)

// MarketMetadata is one coin's current 15-minute market: its question,
// window boundaries, and the two outcome token IDs.
type MarketMetadata struct {
	Coin        string
	Question    string
	WindowStart int64
	WindowEnd   int64
	YesTokenID  string
	NoTokenID   string
}

// MetadataSource fetches the currently-active market for a coin, backed by
// internal/gammaclient in the live wiring.
type MetadataSource interface {
	FetchMarket(ctx context.Context, coin string) (MarketMetadata, error)
}

// BookSource is the minimal read surface the runner needs from a venue
// session's tracked order books.
type BookSource interface {
	Book(tokenID string) (orderbook.Book, bool)
}

// Subscriber tracks asset IDs a book session should stream, replayed
// automatically across reconnects.
type Subscriber interface {
	Subscribe(tokenIDs []string)
}

// Config carries the tick cadence and per-coin buffer sizes spec.md §4.6
// names.
type Config struct {
	Coins             []string
	CheckInterval     time.Duration // default 200ms
	MarketRefresh     time.Duration // default <= 15min
	SignalBuffer      int           // default 100, per Scenario E
	LatencyLookbackMs int64         // default 5min, mirrors detect.LatencyConfig.LookbackMs
	ReferenceHistory  int           // per-coin reftrack history depth
	SpotWindow        time.Duration // per-coin rollbuf retention window
}

func DefaultConfig(coins []string) Config {
	return Config{
		Coins:             coins,
		CheckInterval:     200 * time.Millisecond,
		MarketRefresh:     15 * time.Minute,
		SignalBuffer:      100,
		LatencyLookbackMs: 5 * 60 * 1000,
		ReferenceHistory:  reftrack.DefaultHistory,
		SpotWindow:        15 * time.Minute,
	}
}

// coinFeed holds the per-coin spot/reference state a detector tick reads.
type coinFeed struct {
	spot      *rollbuf.Buffer
	reference *reftrack.ReferenceTracker
}

// bookView adapts orderbook.Book to detect.BookView, exposing only the
// top-of-book ask a detector needs to price entry.
type bookView struct{ book orderbook.Book }

func (b bookView) BestAsk() (money.Price, bool) {
	lvl, ok := b.book.BestAsk()
	if !ok {
		return money.Zero, false
	}
	return lvl.Price, true
}

// Runner drives the detector tick loop for a fixed set of coins.
type Runner struct {
	cfg      Config
	metadata MetadataSource
	books    BookSource
	sub      Subscriber
	log      *slog.Logger

	directional *detect.DirectionalDetector
	clobTiming  *detect.ClobTimingDetector
	latency     *detect.LatencyDetector

	mu      sync.Mutex
	feeds   map[string]*coinFeed
	markets map[string]MarketMetadata

	signals chan *detect.DirectionalSignal
	dropped atomic.Int64

	tracer         trace.Tracer
	ticksEvaluated metric.Int64Counter
	signalsEmitted metric.Int64Counter
	signalsDropped metric.Int64Counter
}

// SetTelemetry attaches span-per-tick tracing and counter-per-signal
// metrics. Optional — a Runner with none attached behaves identically,
// just without the instrumentation calls.
func (r *Runner) SetTelemetry(tracer trace.Tracer, ticksEvaluated, signalsEmitted, signalsDropped metric.Int64Counter) {
	r.tracer = tracer
	r.ticksEvaluated = ticksEvaluated
	r.signalsEmitted = signalsEmitted
	r.signalsDropped = signalsDropped
}

func NewRunner(
	cfg Config,
	metadata MetadataSource,
	books BookSource,
	sub Subscriber,
	directional *detect.DirectionalDetector,
	clobTiming *detect.ClobTimingDetector,
	latency *detect.LatencyDetector,
	logger *slog.Logger,
) *Runner {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 200 * time.Millisecond
	}
	if cfg.MarketRefresh <= 0 {
		cfg.MarketRefresh = 15 * time.Minute
	}
	if cfg.SignalBuffer <= 0 {
		cfg.SignalBuffer = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		cfg:         cfg,
		metadata:    metadata,
		books:       books,
		sub:         sub,
		log:         logger,
		directional: directional,
		clobTiming:  clobTiming,
		latency:     latency,
		feeds:       make(map[string]*coinFeed),
		markets:     make(map[string]MarketMetadata),
		signals:     make(chan *detect.DirectionalSignal, cfg.SignalBuffer),
	}
	for _, coin := range cfg.Coins {
		r.feeds[coin] = &coinFeed{
			spot:      rollbuf.New(cfg.SpotWindow),
			reference: reftrack.NewReferenceTracker(cfg.ReferenceHistory),
		}
	}
	return r
}

// Signals exposes the bounded channel the executor drains.
func (r *Runner) Signals() <-chan *detect.DirectionalSignal { return r.signals }

// DroppedCount reports how many signals were discarded because the
// channel was full, per Scenario E's backpressure accounting.
func (r *Runner) DroppedCount() int64 { return r.dropped.Load() }

// MarketFor exposes the current active market for coin, so the executor
// can resolve a signal's YES/NO token IDs via the same cache the tick
// loop refreshes — satisfies executor.TokenLookup through a thin
// composition-root adapter.
func (r *Runner) MarketFor(coin string) (MarketMetadata, bool) {
	return r.marketFor(coin)
}

// ObserveSpot feeds a new underlying spot observation for coin — called by
// the venue session's Binance trade callback.
func (r *Runner) ObserveSpot(coin string, price money.Price, tsMs int64) {
	r.mu.Lock()
	feed, ok := r.feeds[coin]
	r.mu.Unlock()
	if !ok {
		return
	}
	feed.spot.Update(price.Float64(), tsMs)
}

// Run fetches each coin's starting market and subscribes the book feed,
// then ticks at cfg.CheckInterval until ctx is cancelled, per spec.md
// §4.6. market_refresh_secs re-query runs on its own ticker so the runner
// rolls onto the next window's tokens without waiting on the tick cadence.
func (r *Runner) Run(ctx context.Context) error {
	r.refreshMarkets(ctx)

	tick := time.NewTicker(r.cfg.CheckInterval)
	defer tick.Stop()
	refresh := time.NewTicker(r.cfg.MarketRefresh)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-refresh.C:
			r.refreshMarkets(ctx)
		case <-tick.C:
			r.tick()
		}
	}
}

func (r *Runner) refreshMarkets(ctx context.Context) {
	for _, coin := range r.cfg.Coins {
		m, err := r.metadata.FetchMarket(ctx, coin)
		if err != nil {
			r.log.Warn("market metadata refresh failed", "coin", coin, "err", err)
			continue
		}
		r.mu.Lock()
		r.markets[coin] = m
		r.mu.Unlock()
		r.sub.Subscribe([]string{m.YesTokenID, m.NoTokenID})
	}
}

func (r *Runner) marketFor(coin string) (MarketMetadata, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.markets[coin]
	return m, ok
}

func (r *Runner) feedFor(coin string) *coinFeed {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.feeds[coin]
}

func (r *Runner) tick() {
	now := time.Now().UnixMilli()
	for _, coin := range r.cfg.Coins {
		r.tickCoin(coin, now)
	}
}

func (r *Runner) tickCoin(coin string, now int64) {
	ctx := context.Background()
	if r.tracer != nil {
		var span trace.Span
		ctx, span = r.tracer.Start(ctx, "runner.tick_coin", trace.WithAttributes(attribute.String("coin", coin)))
		defer span.End()
	}
	if r.ticksEvaluated != nil {
		r.ticksEvaluated.Add(ctx, 1, metric.WithAttributes(attribute.String("coin", coin)))
	}

	m, ok := r.marketFor(coin)
	if !ok {
		return
	}
	feed := r.feedFor(coin)
	if feed == nil {
		return
	}

	spotVal, spotOK := feed.spot.CurrentValue()
	if !spotOK {
		return
	}
	spot := money.NewFromFloat(spotVal)

	// The first observed spot inside a window becomes its immutable
	// reference; SetIfAbsent is a no-op once one is already recorded.
	feed.reference.SetIfAbsent(m.WindowStart, spot)
	reference, ok := feed.reference.ReferenceFor(m.WindowStart)
	if !ok {
		return
	}

	yesBook, yesOK := r.books.Book(m.YesTokenID)
	noBook, noOK := r.books.Book(m.NoTokenID)
	if !yesOK || !noOK {
		return
	}
	yesView, noView := bookView{yesBook}, bookView{noBook}

	if r.directional != nil {
		sig := r.directional.Evaluate(coin, now, m.WindowStart, m.WindowEnd, spot, reference, yesView, noView)
		r.emit(sig)
	}

	if r.clobTiming != nil {
		if yesMid, ok := yesBook.Mid(); ok {
			sig := r.clobTiming.Evaluate(coin, now, m.WindowStart, m.WindowEnd, yesMid, yesView, noView)
			r.emit(sig)
		}
	}

	if r.latency != nil {
		if lookback, ok := spotAt(feed.spot, now-r.cfg.LatencyLookbackMs); ok {
			sig := r.latency.Evaluate(coin, now, m.WindowStart, m.WindowEnd, spot, lookback, yesView, noView)
			r.emit(sig)
		}
	}
}

// spotAt finds the most recent recorded spot observation at or before
// targetMs — the "spot price lookback_mins ago" the latency detector needs.
func spotAt(buf *rollbuf.Buffer, targetMs int64) (money.Price, bool) {
	points := buf.Points()
	var best *rollbuf.Point
	for i := range points {
		p := points[i]
		if p.TimestampMs <= targetMs {
			if best == nil || p.TimestampMs > best.TimestampMs {
				best = &p
			}
		}
	}
	if best == nil {
		return money.Zero, false
	}
	return money.NewFromFloat(best.Value), true
}

// emit performs the bounded, non-blocking try_send from spec.md §4.6: on a
// full channel the signal is logged and dropped so a slow executor can
// never stall detector evaluation.
func (r *Runner) emit(sig *detect.DirectionalSignal) {
	if sig == nil {
		return
	}
	select {
	case r.signals <- sig:
		if r.signalsEmitted != nil {
			r.signalsEmitted.Add(context.Background(), 1, metric.WithAttributes(attribute.String("coin", sig.Coin), attribute.String("detector", sig.Detector)))
		}
	default:
		r.dropped.Add(1)
		if r.signalsDropped != nil {
			r.signalsDropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("coin", sig.Coin)))
		}
		r.log.Warn("signal channel full, dropping", "coin", sig.Coin, "detector", sig.Detector, "window_start", sig.WindowStart)
	}
}
