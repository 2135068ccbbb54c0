package og

import "tradebook/internal/schema"

// Transport is the venue session. Both calls return immediately; responses arrive later.
type Transport interface {
	// Send transmits a new order and returns its venue id, or a value <= 0 on failure.
	Send(req schema.OrderRequest) schema.OrderID
	// Cancel transmits a cancel and returns the venue status code, 0 when accepted.
	Cancel(id schema.OrderID) int
}

// TransportFunc adapts two functions to Transport.
type TransportFunc struct {
	SendFunc   func(req schema.OrderRequest) schema.OrderID
	CancelFunc func(id schema.OrderID) int
}

func (f TransportFunc) Send(req schema.OrderRequest) schema.OrderID {
	if f.SendFunc == nil {
		return schema.NoOrder
	}
	return f.SendFunc(req)
}

func (f TransportFunc) Cancel(id schema.OrderID) int {
	if f.CancelFunc == nil {
		return CodeOrderNotFound
	}
	return f.CancelFunc(id)
}
