package models

import "time"

// Product товар магазина. Цена в вонах
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Price       int64     `json:"price"`
	Description string    `json:"description"`
	MainImage   *string   `json:"main_image"`
	Stock       int64     `json:"stock"`
	Category    string    `json:"category"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}
