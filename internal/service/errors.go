package service

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")

	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrCartItemNotFound   = errors.New("cart item not found")
	ErrInvalidCategory    = errors.New("invalid post category")

	ErrMissingIdentity    = errors.New("no orderer information")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidCartLine    = errors.New("invalid cart line")
	ErrCheckoutDeclined   = errors.New("order was not confirmed")
	ErrCheckoutInProgress = errors.New("another checkout is in progress for this user")
)

// CheckoutStep шаг оформления заказа, на котором упала запись в хранилище
type CheckoutStep string

const (
	StepBegin       CheckoutStep = "begin"
	StepLockUser    CheckoutStep = "lock_user"
	StepCreateOrder CheckoutStep = "create_order"
	StepCreateItems CheckoutStep = "create_order_items"
	StepClearCart   CheckoutStep = "clear_cart"
	StepCommit      CheckoutStep = "commit"
	StepReplay      CheckoutStep = "load_existing_order"
)

// StoreWriteError ошибка хранилища при оформлении заказа.
// Error() возвращает сообщение postgres без префиксов репозитория - его показывают пользователю.
// Для ошибок не из драйвера (обрыв соединения, контекст) - текст ошибки целиком.
type StoreWriteError struct {
	Step CheckoutStep
	Err  error
}

func (e *StoreWriteError) Error() string {
	var pqErr *pq.Error
	if errors.As(e.Err, &pqErr) {
		return pqErr.Message
	}
	return e.Err.Error()
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}

func storeWriteError(step CheckoutStep, err error) error {
	return &StoreWriteError{Step: step, Err: err}
}
