package schema

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FeeSchedule is the per-contract fee model.
//
// Rates are per lot when ByLot is set, otherwise per unit of notional.
type FeeSchedule struct {
	ExchangeFee          decimal.Decimal
	YesterdayExchangeFee decimal.Decimal
	BrokerFee            decimal.Decimal
	StampTax             decimal.Decimal
	TransferFee          decimal.Decimal
	ByLot                bool
}

// Holding is a quantity held at an average price.
type Holding struct {
	Volume int64
	Price  decimal.Decimal
}

// Notional returns volume * price.
func (h Holding) Notional() decimal.Decimal {
	return h.Price.Mul(decimal.NewFromInt(h.Volume))
}

// StartPosition is the venue-reported holding of a contract at startup.
//
// Long and Short are the whole current holding. YesterdayLong and YesterdayShort are the
// carried-over part of it that can still be closed as yesterday inventory.
type StartPosition struct {
	Long           Holding
	Short          Holding
	YesterdayLong  Holding
	YesterdayShort Holding
}

// Contract describes the static terms of a tradable instrument.
type Contract struct {
	Symbol     string
	Exchange   Exchange
	Account    string
	Multiplier decimal.Decimal
	Fee        FeeSchedule
	Start      StartPosition
}

// Account describes a trading account at startup.
type Account struct {
	Name          string
	CashAvailable decimal.Decimal
	CashAsset     decimal.Decimal
	FXRate        decimal.Decimal
}

// Registry stores accounts and contracts in registration order.
type Registry struct {
	accounts         []Account
	contracts        []Contract
	accountByName    map[string]int
	contractBySymbol map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		accountByName:    make(map[string]int),
		contractBySymbol: make(map[string]int),
	}
}

// AddAccount registers an account. A zero FX rate defaults to 1.
func (r *Registry) AddAccount(acc Account) error {
	if acc.Name == "" {
		return fmt.Errorf("account name is empty")
	}
	if _, ok := r.accountByName[acc.Name]; ok {
		return fmt.Errorf("account already exists: %s", acc.Name)
	}
	if acc.FXRate.IsZero() {
		acc.FXRate = decimal.NewFromInt(1)
	}
	r.accountByName[acc.Name] = len(r.accounts)
	r.accounts = append(r.accounts, acc)
	return nil
}

// AddContract registers a contract. Its account must already be registered.
func (r *Registry) AddContract(c Contract) error {
	if c.Symbol == "" {
		return fmt.Errorf("contract symbol is empty")
	}
	if _, ok := r.contractBySymbol[c.Symbol]; ok {
		return fmt.Errorf("contract already exists: %s", c.Symbol)
	}
	if _, ok := r.accountByName[c.Account]; !ok {
		return fmt.Errorf("account not found for %s: %q", c.Symbol, c.Account)
	}
	if c.Exchange == ExchangeUnknown {
		return fmt.Errorf("exchange is unknown for %s", c.Symbol)
	}
	if c.Multiplier.IsZero() {
		c.Multiplier = decimal.NewFromInt(1)
	}
	if c.Multiplier.IsNegative() {
		return fmt.Errorf("multiplier must be > 0 for %s", c.Symbol)
	}
	if err := validateStart(c.Start); err != nil {
		return fmt.Errorf("invalid start position for %s: %w", c.Symbol, err)
	}
	r.contractBySymbol[c.Symbol] = len(r.contracts)
	r.contracts = append(r.contracts, c)
	return nil
}

func validateStart(p StartPosition) error {
	if p.Long.Volume < 0 || p.Short.Volume < 0 || p.YesterdayLong.Volume < 0 || p.YesterdayShort.Volume < 0 {
		return fmt.Errorf("volume must be >= 0")
	}
	if p.YesterdayLong.Volume > p.Long.Volume {
		return fmt.Errorf("yesterday long %d exceeds long %d", p.YesterdayLong.Volume, p.Long.Volume)
	}
	if p.YesterdayShort.Volume > p.Short.Volume {
		return fmt.Errorf("yesterday short %d exceeds short %d", p.YesterdayShort.Volume, p.Short.Volume)
	}
	return nil
}

// Contract returns the contract for a symbol.
func (r *Registry) Contract(symbol string) (Contract, bool) {
	idx, ok := r.contractBySymbol[symbol]
	if !ok {
		return Contract{}, false
	}
	return r.contracts[idx], true
}

// Account returns the account by name.
func (r *Registry) Account(name string) (Account, bool) {
	idx, ok := r.accountByName[name]
	if !ok {
		return Account{}, false
	}
	return r.accounts[idx], true
}

// Contracts returns all contracts in registration order.
func (r *Registry) Contracts() []Contract {
	out := make([]Contract, len(r.contracts))
	copy(out, r.contracts)
	return out
}

// Accounts returns all accounts in registration order.
func (r *Registry) Accounts() []Account {
	out := make([]Account, len(r.accounts))
	copy(out, r.accounts)
	return out
}

// ContractCount returns the number of contracts in the registry.
func (r *Registry) ContractCount() int {
	return len(r.contracts)
}
