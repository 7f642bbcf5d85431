package models

import "time"

// CartProduct - данные товара, подтянутые в строку корзины через JOIN
type CartProduct struct {
	Name  string  `json:"name"`
	Price int64   `json:"price"`
	Image *string `json:"image"`
}

// CartItem строка корзины пользователя. Quantity всегда >= 1
type CartItem struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	ProductID int64       `json:"product_id"`
	Quantity  int64       `json:"quantity"`
	Product   CartProduct `json:"product"`
	CreatedAt time.Time   `json:"created_at"`
}

// LineTotal стоимость строки по цене из снимка
func (c CartItem) LineTotal() int64 {
	return c.Product.Price * c.Quantity
}

// CartTotal сумма по всем строкам снимка корзины
func CartTotal(items []CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}
