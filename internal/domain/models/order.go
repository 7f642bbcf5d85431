package models

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusShipped},
}

// CanTransitionTo проверяет переход статуса заказа.
// Из pending - в paid или cancelled, из paid - в shipped
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusCancelled:
		return true
	}
	return false
}

// Order заказ с оплатой банковским переводом
type Order struct {
	ID              int64       `json:"id"`
	UserID          int64       `json:"user_id"`
	TotalPrice      int64       `json:"total_price"`
	DepositorName   string      `json:"depositor_name"`
	ShippingAddress string      `json:"shipping_address"`
	Phone           string      `json:"phone"`
	Status          OrderStatus `json:"status"`
	IdempotencyKey  string      `json:"-"`
	CreatedAt       time.Time   `json:"created_at"`
	Items           []OrderItem `json:"items,omitempty"`
}

// OrderItem позиция заказа. PriceAtPurchase - цена на момент оформления,
// последующие изменения цены товара на неё не влияют
type OrderItem struct {
	OrderID         int64  `json:"order_id"`
	ProductID       int64  `json:"product_id"`
	ProductName     string `json:"product_name,omitempty"` // заполняется через JOIN с products
	Quantity        int64  `json:"quantity"`
	PriceAtPurchase int64  `json:"price_at_purchase"`
}
