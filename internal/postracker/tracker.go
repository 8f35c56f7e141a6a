// Package postracker implements the per-window position tracker and its
// atomic disk persistence, per spec.md §4.9. Grounded on original_source's
// crates/exchange-polymarket/src/arbitrage/position_persistence.rs for the
// record shape and staleness rules. spec.md explicitly requires a
// write-temp+fsync+rename save, which supersedes the original's plain
// File::create — that detail is implemented here, not copied from Rust.
package postracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

// OpenPosition is one leg (YES or NO) of a window's holdings.
type OpenPosition struct {
	Quantity money.Price
	Cost     money.Price
}

// WindowPositionTracker holds the YES/NO positions opened for a single
// trading window. Mutated only by the executor.
type WindowPositionTracker struct {
	WindowStartMs int64
	YesPosition   *OpenPosition
	NoPosition    *OpenPosition
	TotalCost     money.Price
}

func NewTracker(windowStartMs int64) *WindowPositionTracker {
	return &WindowPositionTracker{WindowStartMs: windowStartMs, TotalCost: money.Zero}
}

// AddPosition records a new fill on the given side, accumulating cost.
func (t *WindowPositionTracker) AddPosition(isYes bool, quantity, cost money.Price) {
	t.TotalCost = t.TotalCost.Add(cost)
	if isYes {
		if t.YesPosition == nil {
			t.YesPosition = &OpenPosition{}
		}
		t.YesPosition.Quantity = t.YesPosition.Quantity.Add(quantity)
		t.YesPosition.Cost = t.YesPosition.Cost.Add(cost)
		return
	}
	if t.NoPosition == nil {
		t.NoPosition = &OpenPosition{}
	}
	t.NoPosition.Quantity = t.NoPosition.Quantity.Add(quantity)
	t.NoPosition.Cost = t.NoPosition.Cost.Add(cost)
}

// Hedged reports whether both legs are held.
func (t *WindowPositionTracker) Hedged() bool {
	return t.YesPosition != nil && t.NoPosition != nil
}

// record is the self-describing on-disk representation from spec.md §4.9:
// {window_start_ms, yes_position?, no_position?, total_cost, saved_at}.
type record struct {
	WindowStartMs int64            `json:"window_start_ms"`
	YesPosition   *positionRecord  `json:"yes_position,omitempty"`
	NoPosition    *positionRecord  `json:"no_position,omitempty"`
	TotalCost     string           `json:"total_cost"`
	SavedAt       time.Time        `json:"saved_at"`
}

type positionRecord struct {
	Quantity string `json:"quantity"`
	Cost     string `json:"cost"`
}

func (t *WindowPositionTracker) toRecord(savedAt time.Time) record {
	r := record{
		WindowStartMs: t.WindowStartMs,
		TotalCost:     t.TotalCost.String(),
		SavedAt:       savedAt,
	}
	if t.YesPosition != nil {
		r.YesPosition = &positionRecord{Quantity: t.YesPosition.Quantity.String(), Cost: t.YesPosition.Cost.String()}
	}
	if t.NoPosition != nil {
		r.NoPosition = &positionRecord{Quantity: t.NoPosition.Quantity.String(), Cost: t.NoPosition.Cost.String()}
	}
	return r
}

func fromRecord(r record) (*WindowPositionTracker, error) {
	total, err := money.NewFromString(r.TotalCost)
	if err != nil {
		return nil, fmt.Errorf("postracker: total_cost: %w", err)
	}
	t := &WindowPositionTracker{WindowStartMs: r.WindowStartMs, TotalCost: total}
	if r.YesPosition != nil {
		qty, qerr := money.NewFromString(r.YesPosition.Quantity)
		cost, cerr := money.NewFromString(r.YesPosition.Cost)
		if qerr != nil || cerr != nil {
			return nil, fmt.Errorf("postracker: yes_position: %w", errors.Join(qerr, cerr))
		}
		t.YesPosition = &OpenPosition{Quantity: qty, Cost: cost}
	}
	if r.NoPosition != nil {
		qty, qerr := money.NewFromString(r.NoPosition.Quantity)
		cost, cerr := money.NewFromString(r.NoPosition.Cost)
		if qerr != nil || cerr != nil {
			return nil, fmt.Errorf("postracker: no_position: %w", errors.Join(qerr, cerr))
		}
		t.NoPosition = &OpenPosition{Quantity: qty, Cost: cost}
	}
	return t, nil
}

// Persistence atomically saves and loads a WindowPositionTracker snapshot
// to a single path.
type Persistence struct {
	mu   sync.Mutex
	path string
}

func NewPersistence(path string) *Persistence {
	return &Persistence{path: path}
}

// Save serializes the tracker to path.tmp, fsyncs, then renames onto
// path — spec.md §4.9's explicit atomic-write requirement.
func (p *Persistence) Save(t *WindowPositionTracker) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := json.MarshalIndent(t.toRecord(time.Now().UTC()), "", "  ")
	if err != nil {
		return fmt.Errorf("postracker: marshal: %w", err)
	}

	tmpPath := p.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("postracker: open temp: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("postracker: write temp: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("postracker: fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("postracker: close temp: %w", err)
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		return fmt.Errorf("postracker: rename: %w", err)
	}
	return nil
}

// Load reads the tracker for currentWindowStart. If the file is missing,
// returns a fresh tracker. If it fails to parse, logs nothing itself
// (caller logs) and returns a fresh tracker. If the saved window doesn't
// match currentWindowStart, the loaded state is returned separately as
// "archived" (belongs in the pending-settlement map) and a fresh tracker
// is returned for the current window.
func (p *Persistence) Load(currentWindowStart int64) (current *WindowPositionTracker, archived *WindowPositionTracker, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, readErr := os.ReadFile(p.path)
	if errors.Is(readErr, os.ErrNotExist) {
		return NewTracker(currentWindowStart), nil, nil
	}
	if readErr != nil {
		return nil, nil, fmt.Errorf("postracker: read: %w", readErr)
	}

	var r record
	if jsonErr := json.Unmarshal(data, &r); jsonErr != nil {
		return NewTracker(currentWindowStart), nil, nil
	}

	loaded, parseErr := fromRecord(r)
	if parseErr != nil {
		return NewTracker(currentWindowStart), nil, nil
	}

	if loaded.WindowStartMs != currentWindowStart {
		return NewTracker(currentWindowStart), loaded, nil
	}
	return loaded, nil, nil
}

// Clear removes the persisted file, if present.
func (p *Persistence) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := os.Remove(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Exists reports whether a persisted file is present.
func (p *Persistence) Exists() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := os.Stat(p.path)
	return err == nil
}

// EnsureDir creates the parent directory for path if it doesn't exist —
// a small convenience the original's bare File::create didn't need since
// its paths were pre-created by the CLI's session setup.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
