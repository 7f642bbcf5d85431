package models

import "strings"

// User представляет зарегистрированного покупателя
type User struct {
	ID       int64
	Email    string
	FullName string
	PassHash []byte
	Role     string
}

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Session - данные текущего пользователя, извлечённые из токена.
// Передаётся в сервисы явно, глобального состояния сессии нет.
type Session struct {
	UserID      int64
	Email       string
	DisplayName string
}

// DepositorName имя отправителя банковского перевода:
// отображаемое имя, а если его нет - часть email до "@".
// Адрес вида "@example.com" берётся целиком.
func (s Session) DepositorName() string {
	if name := strings.TrimSpace(s.DisplayName); name != "" {
		return name
	}
	if local := EmailLocalPart(s.Email); local != "" {
		return local
	}
	return strings.TrimSpace(s.Email)
}

// HasIdentity сообщает, можно ли оформить заказ от имени этой сессии
func (s Session) HasIdentity() bool {
	return s.UserID != 0 && s.DepositorName() != ""
}

// EmailLocalPart возвращает часть адреса до "@"
func EmailLocalPart(email string) string {
	email = strings.TrimSpace(email)
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
