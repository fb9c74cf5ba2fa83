package chart

// Account is the state of a trading account.
type Account struct {
	Balance  float64 `json:"balance"`
	Equity   float64 `json:"equity"`
	Margin   float64 `json:"margin"`
	Currency string  `json:"currency"`
}

// Order is an order placed with a broker.
type Order struct {
	ID     string  `json:"id"`
	Symbol string  `json:"symbol"`
	Side   string  `json:"side"` // buy, sell
	Type   string  `json:"type"` // market, limit, stop
	Qty    float64 `json:"qty"`
	Price  float64 `json:"price"`
	Status string  `json:"status"`
}

// Position is an open position. Qty is positive for long positions and
// negative for short ones.
type Position struct {
	Symbol    string  `json:"symbol"`
	Qty       float64 `json:"qty"`
	AvgPrice  float64 `json:"avgPrice"`
	LastPrice float64 `json:"lastPrice"`
}

// UnrealizedPnL computes the unrealized profit or loss.
func (p Position) UnrealizedPnL() float64 {
	return (p.LastPrice - p.AvgPrice) * p.Qty
}

// Broker gives access to account data. Implementations may fail or panic;
// callers guard every access.
type Broker interface {
	Account() (Account, error)
	Orders() ([]Order, error)
	Positions() ([]Position, error)
}

// StaticBroker serves fixed data. If Err is set, every access fails.
type StaticBroker struct {
	Acct         Account
	OrderList    []Order
	PositionList []Position
	Err          error
}

var _ Broker = (*StaticBroker)(nil)

// Account returns b.Acct.
func (b *StaticBroker) Account() (Account, error) {
	if b.Err != nil {
		return Account{}, b.Err
	}
	return b.Acct, nil
}

// Orders returns b.OrderList.
func (b *StaticBroker) Orders() ([]Order, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	return b.OrderList, nil
}

// Positions returns b.PositionList.
func (b *StaticBroker) Positions() ([]Position, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	return b.PositionList, nil
}
