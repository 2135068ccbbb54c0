package state

import (
	"sort"

	"github.com/shopspring/decimal"

	"tradebook/internal/errors"
	"tradebook/internal/fee"
	"tradebook/internal/obs"
	"tradebook/internal/schema"
)

var (
	ErrUnknownSymbol    = errors.New("symbol not found")
	ErrUnknownAccount   = errors.New("account not found")
	ErrInvalidFill      = errors.New("invalid fill")
	ErrNegativePosition = errors.New("position is less than zero")
)

var two = decimal.NewFromInt(2)

// Config controls fill reconciliation.
type Config struct {
	// PreferYesterday makes an undated close consume yesterday inventory first.
	PreferYesterday bool
	Logger          obs.Logger
}

// Fill is one executed quantity of an order.
type Fill struct {
	OrderID   schema.OrderID
	Symbol    string
	Side      schema.Side
	OpenClose schema.OpenClose
	Qty       int64
	Price     decimal.Decimal
}

// FillEffect reports what ApplyFill booked.
type FillEffect struct {
	Tag BucketTag
	// Fee is the fee in price points, stamp tax included for sells.
	Fee decimal.Decimal
	// CloseFee is the fee folded into a close bucket.
	CloseFee decimal.Decimal
	// CashDelta is the change of the account's available cash.
	CashDelta decimal.Decimal
	// YesterdayClamped is set when a close-yesterday fill exceeded the yesterday inventory.
	YesterdayClamped bool
}

type symbolEntry struct {
	contract schema.Contract
	position Position
	lastPx   decimal.Decimal
	// shortGross is the short open notional before fees, used to price buy closes in cash.
	shortGross decimal.Decimal
}

type accountEntry struct {
	info          schema.Account
	cashAvailable decimal.Decimal
	cashAsset     decimal.Decimal
}

// Ledger owns position buckets, mark prices and account cash.
type Ledger struct {
	cfg          Config
	log          obs.Logger
	symbols      map[string]*symbolEntry
	symbolOrder  []string
	accounts     map[string]*accountEntry
	accountOrder []string
	reservations map[schema.OrderID]*reservation
}

// NewLedger seeds a ledger from the startup holdings of every registered contract.
func NewLedger(reg *schema.Registry, cfg Config) *Ledger {
	if cfg.Logger == nil {
		cfg.Logger = obs.NopLogger()
	}
	l := &Ledger{
		cfg:          cfg,
		log:          cfg.Logger,
		symbols:      make(map[string]*symbolEntry, reg.ContractCount()),
		accounts:     make(map[string]*accountEntry),
		reservations: make(map[schema.OrderID]*reservation),
	}

	for _, acc := range reg.Accounts() {
		l.accounts[acc.Name] = &accountEntry{
			info:          acc,
			cashAvailable: acc.CashAvailable,
			cashAsset:     acc.CashAsset,
		}
		l.accountOrder = append(l.accountOrder, acc.Name)
	}

	for _, c := range reg.Contracts() {
		e := &symbolEntry{contract: c}
		e.position.LongOpen = Bucket{
			Qty:               c.Start.Long.Volume,
			Notional:          c.Start.Long.Notional(),
			YesterdayQty:      c.Start.YesterdayLong.Volume,
			YesterdayNotional: c.Start.YesterdayLong.Notional(),
		}
		e.position.ShortOpen = Bucket{
			Qty:               c.Start.Short.Volume,
			Notional:          c.Start.Short.Notional(),
			YesterdayQty:      c.Start.YesterdayShort.Volume,
			YesterdayNotional: c.Start.YesterdayShort.Notional(),
		}
		e.shortGross = c.Start.Short.Notional()
		l.symbols[c.Symbol] = e
		l.symbolOrder = append(l.symbolOrder, c.Symbol)
	}

	return l
}

func (l *Ledger) entry(symbol string) (*symbolEntry, error) {
	e, ok := l.symbols[symbol]
	if !ok {
		return nil, errors.Wrap(ErrUnknownSymbol, symbol)
	}
	return e, nil
}

func (l *Ledger) account(name string) (*accountEntry, error) {
	a, ok := l.accounts[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownAccount, name)
	}
	return a, nil
}

// ApplyFill books one fill into the buckets and the account cash. Nothing is changed when an
// error is returned. A zero quantity is a no-op.
func (l *Ledger) ApplyFill(f Fill) (FillEffect, error) {
	if f.Qty == 0 {
		return FillEffect{}, nil
	}
	if f.Qty < 0 {
		return FillEffect{}, errors.Wrapf(ErrInvalidFill, "order %d qty %d", f.OrderID, f.Qty)
	}
	e, err := l.entry(f.Symbol)
	if err != nil {
		return FillEffect{}, err
	}
	acc, err := l.account(e.contract.Account)
	if err != nil {
		return FillEffect{}, err
	}
	tag, ok := TagOf(f.Side, f.OpenClose)
	if !ok {
		return FillEffect{}, errors.Wrapf(ErrInvalidFill, "order %d %s %s", f.OrderID, f.Side, f.OpenClose)
	}

	c := e.contract
	pos := e.position
	qty := decimal.NewFromInt(f.Qty)
	notional := f.Price.Mul(qty)

	fees := fee.Calculate(c.Fee, c.Exchange, f.Qty, f.Price, false)
	closeFees := fees
	if f.OpenClose == schema.CloseYesterday {
		closeFees = fees.Neg().Add(two.Mul(fee.Calculate(c.Fee, c.Exchange, f.Qty, f.Price, true)))
	}

	var effect FillEffect
	effect.Tag = tag

	opp := pos.Bucket(openTag(f.Side.Opposite()))
	switch {
	case f.OpenClose == schema.CloseYesterday:
		opp.YesterdayQty -= f.Qty
		opp.YesterdayNotional = opp.YesterdayNotional.Sub(notional)
		if opp.YesterdayQty < 0 {
			l.log.Errorf("close yesterday exceeds inventory: order %d %s, qty %d, short by %d", f.OrderID, f.Symbol, f.Qty, -opp.YesterdayQty)
			opp.YesterdayQty = 0
			opp.YesterdayNotional = decimal.Zero
			effect.YesterdayClamped = true
		}
	case f.OpenClose == schema.Close && l.cfg.PreferYesterday:
		if opp.YesterdayQty-f.Qty > 0 {
			opp.YesterdayQty -= f.Qty
			opp.YesterdayNotional = opp.YesterdayNotional.Sub(notional)
		} else {
			opp.YesterdayQty = 0
			opp.YesterdayNotional = decimal.Zero
		}
	}

	same := pos.Bucket(tag)
	if f.Side == schema.SideSell {
		stamp := fee.StampTax(c.Fee, notional)
		fees = fees.Add(stamp)
		closeFees = closeFees.Add(stamp)
	}
	switch {
	case f.Side == schema.SideBuy && f.OpenClose == schema.Open:
		same.Notional = same.Notional.Add(notional).Add(fees)
	case f.Side == schema.SideBuy:
		same.Notional = same.Notional.Add(notional).Add(closeFees)
	case f.OpenClose == schema.Open:
		same.Notional = same.Notional.Add(notional).Sub(fees)
	default:
		same.Notional = same.Notional.Add(notional).Sub(closeFees)
	}
	same.Qty += f.Qty

	effect.Fee = fees
	effect.CloseFee = closeFees
	effect.CashDelta = l.fillCash(e, f)

	e.position = pos
	if tag == ShortOpen {
		e.shortGross = e.shortGross.Add(notional)
	}
	acc.cashAvailable = acc.cashAvailable.Add(effect.CashDelta)
	return effect, nil
}

func openTag(side schema.Side) BucketTag {
	if side == schema.SideSell {
		return ShortOpen
	}
	return LongOpen
}

// UpdateLastPx records the mark price of a tick.
func (l *Ledger) UpdateLastPx(tick schema.Tick) error {
	e, err := l.entry(tick.Symbol)
	if err != nil {
		return err
	}
	e.lastPx = tick.LastPrice
	return nil
}

// LastPx returns the last observed mark price.
func (l *Ledger) LastPx(symbol string) (decimal.Decimal, error) {
	e, err := l.entry(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return e.lastPx, nil
}

// Position returns a copy of the four buckets of symbol.
func (l *Ledger) Position(symbol string) (Position, error) {
	e, err := l.entry(symbol)
	if err != nil {
		return Position{}, err
	}
	return e.position, nil
}

// Bucket returns a copy of one bucket.
func (l *Ledger) Bucket(symbol string, tag BucketTag) (Bucket, error) {
	e, err := l.entry(symbol)
	if err != nil {
		return Bucket{}, err
	}
	b := e.position.Bucket(tag)
	if b == nil {
		return Bucket{}, errors.Wrapf(ErrInvalidFill, "bucket %s", tag)
	}
	return *b, nil
}

// AveragePrice returns the average price of one bucket.
func (l *Ledger) AveragePrice(symbol string, tag BucketTag) (decimal.Decimal, error) {
	b, err := l.Bucket(symbol, tag)
	if err != nil {
		return decimal.Zero, err
	}
	return b.AveragePrice(), nil
}

func (l *Ledger) LongPosition(symbol string) (int64, error) {
	e, err := l.entry(symbol)
	if err != nil {
		return 0, err
	}
	return e.position.Long(), nil
}

func (l *Ledger) ShortPosition(symbol string) (int64, error) {
	e, err := l.entry(symbol)
	if err != nil {
		return 0, err
	}
	return e.position.Short(), nil
}

func (l *Ledger) NetPosition(symbol string) (int64, error) {
	e, err := l.entry(symbol)
	if err != nil {
		return 0, err
	}
	return e.position.Net(), nil
}

// Inventory is a quantity with its notional.
type Inventory struct {
	Qty      int64
	Notional decimal.Decimal
}

// YesterdayPosition returns the carried-over long and short inventory still closable as
// yesterday positions.
func (l *Ledger) YesterdayPosition(symbol string) (long, short Inventory, err error) {
	e, err := l.entry(symbol)
	if err != nil {
		return Inventory{}, Inventory{}, err
	}
	p := e.position
	long = Inventory{Qty: p.LongOpen.YesterdayQty, Notional: p.LongOpen.YesterdayNotional}
	short = Inventory{Qty: p.ShortOpen.YesterdayQty, Notional: p.ShortOpen.YesterdayNotional}
	return long, short, nil
}

// AvgPositionPrice returns the average price of the net long (buy) or short (sell) holding:
// open notional less the notional closed against it, per remaining unit.
func (l *Ledger) AvgPositionPrice(symbol string, side schema.Side) (decimal.Decimal, error) {
	e, err := l.entry(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	p := e.position

	var qty int64
	var notional decimal.Decimal
	if side == schema.SideBuy {
		qty = p.Long()
		notional = p.LongOpen.Notional.Sub(p.ShortClose.Notional)
	} else {
		qty = p.Short()
		notional = p.ShortOpen.Notional.Sub(p.LongClose.Notional)
	}

	switch {
	case qty > 0:
		return notional.Div(decimal.NewFromInt(qty)), nil
	case qty == 0:
		return decimal.Zero, nil
	default:
		return decimal.Zero, errors.Wrapf(ErrNegativePosition, "%s %s %d", symbol, side, qty)
	}
}

// RealizedPnL returns the realized pnl of symbol in price points.
func (l *Ledger) RealizedPnL(symbol string) (decimal.Decimal, error) {
	e, err := l.entry(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return e.position.Realized(), nil
}

// UnrealizedPnL returns the open pnl of symbol in price points against the last mark.
func (l *Ledger) UnrealizedPnL(symbol string) (decimal.Decimal, error) {
	e, err := l.entry(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return e.position.Unrealized(e.lastPx), nil
}

// ContractPnLCash returns (realized + unrealized) * multiplier * account fx rate.
func (l *Ledger) ContractPnLCash(symbol string) (decimal.Decimal, error) {
	e, err := l.entry(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	acc, err := l.account(e.contract.Account)
	if err != nil {
		return decimal.Zero, err
	}
	points := e.position.Realized().Add(e.position.Unrealized(e.lastPx))
	return points.Mul(e.contract.Multiplier).Mul(acc.info.FXRate), nil
}

// StrategyPnLCash sums ContractPnLCash over every tracked symbol.
func (l *Ledger) StrategyPnLCash() decimal.Decimal {
	total := decimal.Zero
	for _, symbol := range l.symbolOrder {
		pnl, err := l.ContractPnLCash(symbol)
		if err != nil {
			continue
		}
		total = total.Add(pnl)
	}
	return total
}

// Symbols returns the tracked symbols in registration order.
func (l *Ledger) Symbols() []string {
	out := make([]string, len(l.symbolOrder))
	copy(out, l.symbolOrder)
	return out
}

// Contract returns the static terms of symbol.
func (l *Ledger) Contract(symbol string) (schema.Contract, error) {
	e, err := l.entry(symbol)
	if err != nil {
		return schema.Contract{}, err
	}
	return e.contract, nil
}

// CashAvailable returns the available cash of an account.
func (l *Ledger) CashAvailable(account string) (decimal.Decimal, error) {
	a, err := l.account(account)
	if err != nil {
		return decimal.Zero, err
	}
	return a.cashAvailable, nil
}

// CashAsset returns the total asset value of an account as seeded at startup.
func (l *Ledger) CashAsset(account string) (decimal.Decimal, error) {
	a, err := l.account(account)
	if err != nil {
		return decimal.Zero, err
	}
	return a.cashAsset, nil
}

func sortedIDs(m map[schema.OrderID]*reservation) []schema.OrderID {
	ids := make([]schema.OrderID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
