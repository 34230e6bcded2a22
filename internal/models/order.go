package models

import "time"

type OrderType string

const (
	OrderBuy      OrderType = "buy"
	OrderSell     OrderType = "sell"
	OrderStopSell OrderType = "stop-sell"
)

// IsSell: stop-sell идёт по тому же пути списания, что и sell.
func (t OrderType) IsSell() bool { return t == OrderSell || t == OrderStopSell }

func (t OrderType) Valid() bool {
	switch t {
	case OrderBuy, OrderSell, OrderStopSell:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderOpen     OrderStatus = "open"
	OrderFilled   OrderStatus = "filled"
	OrderCanceled OrderStatus = "canceled"
)

// PendingOrder is the frozen result of the validation phase.
// It carries everything the commit needs, so the quote is never re-fetched.
type PendingOrder struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	UserID     string    `json:"userId"`
	Ticker     Ticker    `json:"ticker"`
	Venue      string    `json:"venue"`
	OrderType  OrderType `json:"orderType"`
	Amount     float64   `json:"amount"`
	AmountText string    `json:"amountText"`
	Price      float64   `json:"price"`
	PriceText  string    `json:"priceText"`
	LastClose  float64   `json:"lastClose"`
	IsLimit    bool      `json:"isLimit"`
	Placement  Placement `json:"placement,omitempty"`
	BaseAsset  string    `json:"baseAsset"`
	QuoteAsset string    `json:"quoteAsset"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Cost: сумма в quote-активе.
func (o PendingOrder) Cost() float64 { return o.Amount * o.Price }

// PaperOrder: сохранённая заявка (открытая лимитка или история).
type PaperOrder struct {
	PendingOrder
	Status   OrderStatus `json:"status"`
	ClosedAt int64       `json:"closedAt,omitempty"`
}

// Crossed reports whether the close reached an open limit order.
func (o PaperOrder) Crossed(close float64) bool {
	switch o.Placement {
	case PlacementAbove:
		return close >= o.Price
	case PlacementBelow:
		return close <= o.Price
	}
	return false
}
