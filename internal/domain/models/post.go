package models

import "time"

const (
	PostCategoryPrayerLetter = "prayer_letter"
	PostCategoryNews         = "news"
	PostCategoryVision       = "vision"
)

// MinistryPost запись раздела служения (письма, новости, видение)
type MinistryPost struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}
