package journal

import (
	"sync"

	"github.com/shopspring/decimal"

	"tradebook/internal/schema"
)

// Kind classifies a journal entry.
type Kind uint16

const (
	KindOrder Kind = iota + 1
	KindDelayed
	KindResponse
	KindFill
	KindCancel
)

var kindNames = [...]string{"", "order", "delayed", "response", "fill", "cancel"}

func (k Kind) String() string {
	if int(k) < len(kindNames) && k > 0 {
		return kindNames[k]
	}
	return "unknown"
}

// Entry is one order lifecycle record.
type Entry struct {
	Seq       uint64
	Kind      Kind
	OrderID   schema.OrderID
	Symbol    string
	Side      schema.Side
	OpenClose schema.OpenClose
	Status    schema.OrderStatus
	Qty       int64
	Price     decimal.Decimal
	Fee       decimal.Decimal
	CashDelta decimal.Decimal
	ErrorCode int
	ErrorText string
	TsEvent   int64
}

// Journal persists order lifecycle entries. Implementations must be safe to call from
// the engine goroutine only; they are not required to be concurrent.
type Journal interface {
	Append(e Entry) error
	Close() error
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Append(Entry) error { return nil }
func (Nop) Close() error       { return nil }

// Memory keeps entries in process.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	closed  bool
}

// NewMemory creates an empty in-memory journal.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Entries returns a copy of all entries in append order.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// ByOrder returns entries of one order in append order.
func (m *Memory) ByOrder(id schema.OrderID) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.entries {
		if e.OrderID == id {
			out = append(out, e)
		}
	}
	return out
}
