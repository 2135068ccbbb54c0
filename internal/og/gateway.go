package og

import (
	"tradebook/internal/errors"
	"tradebook/internal/obs"
	"tradebook/internal/schema"
)

// CodeOrderNotFound is returned for a cancel on an order that is not live.
const CodeOrderNotFound = -1001

var (
	ErrTransmitFailed = errors.New("order transmit failed")
	ErrCancelTransmit = errors.New("cancel transmit failed")
	ErrInvalidRequest = errors.New("invalid order request")
)

// GatewayConfig holds the optional collaborators of a gateway.
type GatewayConfig struct {
	Ledger  *Ledger
	Logger  obs.Logger
	Metrics *obs.Metrics
	// OnRegistered runs after a transmitted order enters the ledger, queued sends included.
	OnRegistered func(Order)
}

// Gateway defers sends for a symbol while a cancel on that symbol is in flight.
type Gateway struct {
	transport    Transport
	ledger       *Ledger
	log          obs.Logger
	metrics      *obs.Metrics
	onRegistered func(Order)
	delayed      map[string][]schema.OrderRequest
}

// NewGateway creates a gateway over transport.
func NewGateway(transport Transport, cfg GatewayConfig) *Gateway {
	if cfg.Ledger == nil {
		cfg.Ledger = NewLedger()
	}
	if cfg.Logger == nil {
		cfg.Logger = obs.NopLogger()
	}
	return &Gateway{
		transport:    transport,
		ledger:       cfg.Ledger,
		log:          cfg.Logger,
		metrics:      cfg.Metrics,
		onRegistered: cfg.OnRegistered,
		delayed:      make(map[string][]schema.OrderRequest),
	}
}

// Ledger returns the underlying order ledger.
func (g *Gateway) Ledger() *Ledger {
	return g.ledger
}

// Send transmits req, or queues it while the symbol has a cancel in flight.
//
// NoOrder with a nil error means nothing was transmitted: either the size was zero or the
// request was queued.
func (g *Gateway) Send(req schema.OrderRequest) (schema.OrderID, error) {
	if req.Size == 0 {
		return schema.NoOrder, nil
	}
	if err := validateRequest(req); err != nil {
		return schema.NoOrder, err
	}

	if g.ledger.Cancelling(req.Symbol) {
		g.delayed[req.Symbol] = append(g.delayed[req.Symbol], req)
		g.metrics.IncDelayed()
		g.log.Infof("Delay order: %s %s %s %d @ %s", req.Symbol, req.Side, req.OpenClose, req.Size, req.Price)
		return schema.NoOrder, nil
	}

	return g.transmit(req)
}

func validateRequest(req schema.OrderRequest) error {
	switch {
	case req.Size < 0:
		return errors.Wrapf(ErrInvalidRequest, "negative size %d", req.Size)
	case req.Symbol == "":
		return errors.Wrap(ErrInvalidRequest, "empty symbol")
	case !req.Side.IsValid():
		return errors.Wrapf(ErrInvalidRequest, "side %s", req.Side)
	case !req.OpenClose.IsValid():
		return errors.Wrapf(ErrInvalidRequest, "open_close %s", req.OpenClose)
	}
	return nil
}

func (g *Gateway) transmit(req schema.OrderRequest) (schema.OrderID, error) {
	id := g.transport.Send(req)
	g.log.Infof("Send order: %d %s %s %s %d @ %s", id, req.Symbol, req.Side, req.OpenClose, req.Size, req.Price)
	if id <= schema.NoOrder {
		g.metrics.IncTransmitFailure()
		return schema.NoOrder, errors.Wrapf(ErrTransmitFailed, "send %s, ret: %d", req.Symbol, id)
	}

	o, err := g.ledger.Submit(id, req)
	if err != nil {
		g.log.Errorf("register order %d, err: %+v", id, err)
		return id, nil
	}

	g.metrics.IncSent()
	if g.onRegistered != nil {
		g.onRegistered(o)
	}
	return id, nil
}

// Cancel transmits a cancel for a live order. A second cancel while one is pending is a no-op.
func (g *Gateway) Cancel(id schema.OrderID) error {
	o, ok := g.ledger.Order(id)
	if !ok {
		g.log.Infof("Cancel order: %d, ret: ORDER_NOT_FOUND", id)
		return errors.WithCode(errors.Wrapf(ErrOrderNotFound, "cancel %d", id), CodeOrderNotFound)
	}
	if o.PendingCancel {
		return nil
	}

	ret := g.transport.Cancel(id)
	g.log.Infof("Cancel order: %d, ret: %d", id, ret)
	if ret != 0 {
		g.metrics.IncCancelFailure()
		return errors.WithCode(errors.Wrapf(ErrCancelTransmit, "cancel %d", id), ret)
	}

	if err := g.ledger.MarkCancelRequested(id); err != nil {
		return err
	}
	g.metrics.IncCancel()
	return nil
}

// OnResponse applies resp to the ledger and then releases queued sends for its symbol.
func (g *Gateway) OnResponse(resp schema.Response) Outcome {
	out := g.Apply(resp)
	g.Release(ResponseSymbol(out, resp))
	return out
}

// Apply applies resp to the ledger without touching the queue.
func (g *Gateway) Apply(resp schema.Response) Outcome {
	return g.ledger.Apply(resp)
}

// ResponseSymbol returns the symbol of the order a response was applied to, falling back to
// the symbol carried by the response.
func ResponseSymbol(out Outcome, resp schema.Response) string {
	if out.Order.Symbol != "" {
		return out.Order.Symbol
	}
	return resp.Symbol
}

// Release transmits the queued sends for symbol in arrival order once no cancel on it is
// in flight. It returns the number of requests taken off the queue.
func (g *Gateway) Release(symbol string) int {
	if g.ledger.Cancelling(symbol) {
		return 0
	}
	queue := g.delayed[symbol]
	if len(queue) == 0 {
		return 0
	}
	delete(g.delayed, symbol)

	for _, req := range queue {
		g.metrics.IncFlushed()
		if _, err := g.transmit(req); err != nil {
			g.log.Errorf("flush delayed order %s, err: %+v", symbol, err)
		}
	}
	return len(queue)
}

// Cancelling reports whether symbol has a cancel in flight.
func (g *Gateway) Cancelling(symbol string) bool {
	return g.ledger.Cancelling(symbol)
}

// Delayed returns a copy of the queued sends for symbol.
func (g *Gateway) Delayed(symbol string) []schema.OrderRequest {
	queue := g.delayed[symbol]
	if len(queue) == 0 {
		return nil
	}
	out := make([]schema.OrderRequest, len(queue))
	copy(out, queue)
	return out
}

// DelayedSymbols returns how many sends are queued per symbol.
func (g *Gateway) DelayedSymbols() map[string]int {
	out := make(map[string]int, len(g.delayed))
	for symbol, queue := range g.delayed {
		out[symbol] = len(queue)
	}
	return out
}

// ClearDelayed drops the queued sends for symbol.
func (g *Gateway) ClearDelayed(symbol string) {
	delete(g.delayed, symbol)
}

// ClearAllDelayed drops every queued send.
func (g *Gateway) ClearAllDelayed() {
	g.delayed = make(map[string][]schema.OrderRequest)
}
