package dex

// OrderWire is the venue's compact order representation. Notional and
// leverage travel as strings; the venue rejects float wire values.
type OrderWire struct {
	Symbol     string `json:"s"`
	IsBuy      bool   `json:"b"`
	Notional   string `json:"n"`
	Leverage   string `json:"l"`
	ReduceOnly bool   `json:"r"`
}

type OrderAction struct {
	Type     string      `json:"type"`
	Orders   []OrderWire `json:"orders"`
	Grouping string      `json:"grouping"`
}

type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V int    `json:"v"`
}

type SignedAction struct {
	Action    OrderAction `json:"action"`
	Nonce     uint64      `json:"nonce"`
	Signature Signature   `json:"signature"`
}
