package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot captures positions, pnl and cash at a point in time for reporting.
type Snapshot struct {
	Timestamp int64           `json:"timestamp"`
	LastSeq   uint64          `json:"lastSeq"`
	Positions []PositionEntry `json:"positions"`
	Accounts  []AccountEntry  `json:"accounts"`
	PnLCash   decimal.Decimal `json:"pnlCash"`
}

// PositionEntry is a single symbol position entry.
type PositionEntry struct {
	Symbol     string          `json:"symbol"`
	Position   Position        `json:"position"`
	Net        int64           `json:"net"`
	LastPx     decimal.Decimal `json:"lastPx"`
	Realized   decimal.Decimal `json:"realized"`
	Unrealized decimal.Decimal `json:"unrealized"`
}

// AccountEntry is a single account cash entry.
type AccountEntry struct {
	Name          string          `json:"name"`
	CashAvailable decimal.Decimal `json:"cashAvailable"`
	CashAsset     decimal.Decimal `json:"cashAsset"`
	Reserved      decimal.Decimal `json:"reserved"`
}

// Snapshot builds a snapshot from the current ledger state.
func (l *Ledger) Snapshot() Snapshot {
	return l.SnapshotWithMeta(0)
}

// SnapshotWithMeta builds a snapshot tagged with the last processed event sequence.
func (l *Ledger) SnapshotWithMeta(lastSeq uint64) Snapshot {
	positions := make([]PositionEntry, 0, len(l.symbolOrder))
	for _, symbol := range l.symbolOrder {
		e := l.symbols[symbol]
		positions = append(positions, PositionEntry{
			Symbol:     symbol,
			Position:   e.position,
			Net:        e.position.Net(),
			LastPx:     e.lastPx,
			Realized:   e.position.Realized(),
			Unrealized: e.position.Unrealized(e.lastPx),
		})
	}

	accounts := make([]AccountEntry, 0, len(l.accountOrder))
	for _, name := range l.accountOrder {
		a := l.accounts[name]
		accounts = append(accounts, AccountEntry{
			Name:          name,
			CashAvailable: a.cashAvailable,
			CashAsset:     a.cashAsset,
			Reserved:      l.ReservedTotal(name),
		})
	}

	return Snapshot{
		Timestamp: time.Now().UTC().UnixNano(),
		LastSeq:   lastSeq,
		Positions: positions,
		Accounts:  accounts,
		PnLCash:   l.StrategyPnLCash(),
	}
}

// WriteSnapshot writes a snapshot to disk as JSON.
func WriteSnapshot(path string, snapshot Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSnapshot loads a snapshot from disk.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// CompareSnapshots checks that two snapshots hold the same buckets and cash.
func CompareSnapshots(expected, actual Snapshot) error {
	if len(expected.Positions) != len(actual.Positions) {
		return fmt.Errorf("snapshot length mismatch: expected=%d actual=%d", len(expected.Positions), len(actual.Positions))
	}
	expectedMap := make(map[string]Position, len(expected.Positions))
	for _, entry := range expected.Positions {
		expectedMap[entry.Symbol] = entry.Position
	}
	for _, entry := range actual.Positions {
		want, ok := expectedMap[entry.Symbol]
		if !ok {
			return fmt.Errorf("snapshot missing symbol: %s", entry.Symbol)
		}
		for tag := LongOpen; tag <= ShortClose; tag++ {
			if err := compareBucket(entry.Symbol, tag, *want.Bucket(tag), *entry.Position.Bucket(tag)); err != nil {
				return err
			}
		}
	}

	cash := make(map[string]decimal.Decimal, len(expected.Accounts))
	for _, acc := range expected.Accounts {
		cash[acc.Name] = acc.CashAvailable
	}
	for _, acc := range actual.Accounts {
		want, ok := cash[acc.Name]
		if !ok {
			return fmt.Errorf("snapshot missing account: %s", acc.Name)
		}
		if !want.Equal(acc.CashAvailable) {
			return fmt.Errorf("snapshot cash mismatch: account=%s expected=%s actual=%s", acc.Name, want, acc.CashAvailable)
		}
	}
	return nil
}

func compareBucket(symbol string, tag BucketTag, want, got Bucket) error {
	if want.Qty != got.Qty || want.YesterdayQty != got.YesterdayQty {
		return fmt.Errorf("snapshot qty mismatch: symbol=%s bucket=%s expected=%d/%d actual=%d/%d",
			symbol, tag, want.Qty, want.YesterdayQty, got.Qty, got.YesterdayQty)
	}
	if !want.Notional.Equal(got.Notional) || !want.YesterdayNotional.Equal(got.YesterdayNotional) {
		return fmt.Errorf("snapshot notional mismatch: symbol=%s bucket=%s expected=%s/%s actual=%s/%s",
			symbol, tag, want.Notional, want.YesterdayNotional, got.Notional, got.YesterdayNotional)
	}
	return nil
}
