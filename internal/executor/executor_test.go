package executor

import (
	"context"
	"testing"
	"time"

	"github.com/GoPolymarket/polymarket-trader/internal/aggregator"
	"github.com/GoPolymarket/polymarket-trader/internal/detect"
	"github.com/GoPolymarket/polymarket-trader/internal/execport"
	"github.com/GoPolymarket/polymarket-trader/internal/money"
	"github.com/GoPolymarket/polymarket-trader/internal/postracker"
)

type fakePort struct {
	balance money.Price
	fill    execport.OrderReceipt
	err     error
	calls   int
}

func (f *fakePort) Authenticate(ctx context.Context) error { return nil }
func (f *fakePort) GetBalance(ctx context.Context) (money.Price, error) {
	return f.balance, nil
}
func (f *fakePort) GetPositions(ctx context.Context) ([]execport.Position, error) { return nil, nil }
func (f *fakePort) PlaceOrder(ctx context.Context, req execport.OrderRequest) (execport.OrderReceipt, error) {
	f.calls++
	if f.err != nil {
		return execport.OrderReceipt{}, f.err
	}
	r := f.fill
	r.Filled = true
	return r, nil
}
func (f *fakePort) Cancel(ctx context.Context, orderID string) error { return nil }

type fakeTokens struct{}

func (fakeTokens) TokenID(coin string, isYes bool) (string, bool) {
	if isYes {
		return coin + "-yes", true
	}
	return coin + "-no", true
}

func newTestExecutor(t *testing.T, port execport.Port) *Executor {
	t.Helper()
	dir := t.TempDir()
	return NewExecutor(DefaultConfig(), port, fakeTokens{}, nil, func(coin string) *postracker.Persistence {
		return postracker.NewPersistence(dir + "/" + coin + ".json")
	}, 8, nil)
}

func baseSignal() *detect.DirectionalSignal {
	return &detect.DirectionalSignal{
		Coin:             "BTC",
		Direction:        aggregator.Up,
		WindowStart:      0,
		WindowEnd:        900_000,
		EntryPrice:       money.NewFromFloat(0.40),
		ModelProbability: 0.55,
		Edge:             0.15,
		KellyFraction:    0.1,
		DetectedAtMs:     100,
		Detector:         "directional",
	}
}

func TestExecutorPlacesOrderOnQualifyingSignal(t *testing.T) {
	port := &fakePort{
		balance: money.NewFromFloat(1000),
		fill:    execport.OrderReceipt{FillPrice: money.NewFromFloat(0.40), FillSize: money.NewFromFloat(2.5)},
	}
	ex := newTestExecutor(t, port)

	cfg := ex.cfg
	cfg.FixedBetSize = money.NewFromFloat(1)
	ex.cfg = cfg

	if err := ex.Handle(context.Background(), baseSignal()); err != nil {
		t.Fatal(err)
	}
	if port.calls != 1 {
		t.Fatalf("want 1 order placed, got %d", port.calls)
	}

	select {
	case rec := <-ex.TradeRecords():
		if rec.Coin != "BTC" || rec.TokenID != "BTC-yes" {
			t.Fatalf("unexpected trade record: %+v", rec)
		}
	default:
		t.Fatal("expected a trade record to be enqueued")
	}

	snap := ex.Stats().Snapshot(time.UnixMilli(baseSignal().DetectedAtMs))
	if snap.SignalsExecutedDaily != 1 {
		t.Fatalf("want 1 executed signal, got %d", snap.SignalsExecutedDaily)
	}
}

func TestExecutorBlocksOnMaxTradesPerWindow(t *testing.T) {
	port := &fakePort{
		balance: money.NewFromFloat(1000),
		fill:    execport.OrderReceipt{FillPrice: money.NewFromFloat(0.40), FillSize: money.NewFromFloat(2.5)},
	}
	ex := newTestExecutor(t, port)
	cfg := ex.cfg
	cfg.FixedBetSize = money.NewFromFloat(1)
	cfg.MaxTradesPerWindow = 1
	ex.cfg = cfg

	sig := baseSignal()
	if err := ex.Handle(context.Background(), sig); err != nil {
		t.Fatal(err)
	}
	if err := ex.Handle(context.Background(), sig); err != nil {
		t.Fatal(err)
	}
	if port.calls != 1 {
		t.Fatalf("want only 1 order placed across 2 signals, got %d", port.calls)
	}
}

func TestExecutorBlocksEntryPriceAboveMax(t *testing.T) {
	port := &fakePort{balance: money.NewFromFloat(1000)}
	ex := newTestExecutor(t, port)
	cfg := ex.cfg
	cfg.MaxEntryPrice = money.NewFromFloat(0.50)
	ex.cfg = cfg

	sig := baseSignal()
	sig.EntryPrice = money.NewFromFloat(0.80)
	if err := ex.Handle(context.Background(), sig); err != nil {
		t.Fatal(err)
	}
	if port.calls != 0 {
		t.Fatal("expected entry price gate to block the order")
	}
}
