package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/linemk/ministry-shop/internal/config"
	"github.com/linemk/ministry-shop/internal/domain/models"
	"github.com/linemk/ministry-shop/internal/storage"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ConfirmPrompt текст вопроса перед оформлением заказа
const ConfirmPrompt = "Place this order?\nThe deposit account will be shown after ordering."

// Confirmer спрашивает у пользователя подтверждение и ждёт ответа.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// CheckoutRequest - всё, что нужно для оформления: сессия и снимок корзины,
// прочитанный непосредственно перед оформлением.
type CheckoutRequest struct {
	Session        models.Session
	Snapshot       []models.CartItem
	IdempotencyKey string
	Confirmer      Confirmer
}

// CheckoutPreview то, что показывается пользователю до подтверждения
type CheckoutPreview struct {
	Items         []models.CartItem `json:"items"`
	TotalPrice    int64             `json:"total_price"`
	DepositorName string            `json:"depositor_name"`
	Prompt        string            `json:"prompt"`
}

// Receipt результат оформления: заказ, реквизиты для перевода и куда перейти дальше
type Receipt struct {
	Order       *models.Order `json:"order"`
	BankAccount string        `json:"bank_account"`
	Message     string        `json:"message"`
	Redirect    string        `json:"redirect"`
	// Replayed - заказ с этим ключом уже был создан раньше, новых записей нет
	Replayed bool `json:"replayed"`
}

type CheckoutService interface {
	Preview(ctx context.Context, session models.Session, snapshot []models.CartItem) (*CheckoutPreview, error)
	Checkout(ctx context.Context, req CheckoutRequest) (*Receipt, error)
}

type checkoutService struct {
	log       *slog.Logger
	db        *sql.DB
	userRepo  storage.UserStorage
	orderRepo storage.OrderStorage
	cartRepo  storage.CartStorage
	settings  config.CheckoutConfig
	printer   *message.Printer
}

func NewCheckoutService(
	log *slog.Logger,
	db *sql.DB,
	userRepo storage.UserStorage,
	orderRepo storage.OrderStorage,
	cartRepo storage.CartStorage,
	settings config.CheckoutConfig,
) CheckoutService {
	if settings.LandingPath == "" {
		settings.LandingPath = "/"
	}
	return &checkoutService{
		log:       log,
		db:        db,
		userRepo:  userRepo,
		orderRepo: orderRepo,
		cartRepo:  cartRepo,
		settings:  settings,
		printer:   message.NewPrinter(language.Korean),
	}
}

func (s *checkoutService) Preview(ctx context.Context, session models.Session, snapshot []models.CartItem) (*CheckoutPreview, error) {
	const op = "service.CheckoutService.Preview"

	if err := validateCheckout(session, snapshot); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &CheckoutPreview{
		Items:         snapshot,
		TotalPrice:    models.CartTotal(snapshot),
		DepositorName: session.DepositorName(),
		Prompt:        ConfirmPrompt,
	}, nil
}

// Checkout превращает снимок корзины в заказ с оплатой переводом.
// Заказ, его позиции и очистка корзины пишутся в одной транзакции:
// при любой ошибке не остаётся ни заказа, ни позиций, корзина не меняется.
// Цены берутся только из снимка и повторно не читаются.
func (s *checkoutService) Checkout(ctx context.Context, req CheckoutRequest) (*Receipt, error) {
	const op = "service.CheckoutService.Checkout"
	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("userID", req.Session.UserID),
		slog.Int("lines", len(req.Snapshot)),
	)

	// Повтор с тем же ключом после потерянного ответа: корзина уже пуста,
	// поэтому заказ ищется до любых проверок снимка
	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" && req.Session.UserID != 0 {
		order, err := s.orderRepo.GetOrderByIdempotencyKey(ctx, req.Session.UserID, key)
		switch {
		case err == nil:
			logger.Info("order with this idempotency key already exists, replaying", slog.Int64("orderID", order.ID))
			return s.replay(ctx, logger, order)
		case !errors.Is(err, storage.ErrOrderNotFound):
			logger.Error("failed to look up order by idempotency key", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, storeWriteError(StepReplay, err))
		}
	}

	if err := validateCheckout(req.Session, req.Snapshot); err != nil {
		logger.Warn("checkout rejected", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	totalPrice := models.CartTotal(req.Snapshot)

	if req.Confirmer == nil || !req.Confirmer.Confirm(ctx, ConfirmPrompt) {
		logger.Info("checkout declined by user")
		return nil, fmt.Errorf("%s: %w", op, ErrCheckoutDeclined)
	}

	if key == "" {
		key = uuid.NewString()
	}
	logger = logger.With(slog.String("idempotencyKey", key))
	logger.Info("starting checkout transaction", slog.Int64("totalPrice", totalPrice))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, storeWriteError(StepBegin, err))
	}
	rollback := func() {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
	}

	// Блокируем пользователя: второй параллельный checkout получит отказ, а не дубль
	if _, err := s.userRepo.LockUserByIDTx(ctx, tx, req.Session.UserID); err != nil {
		rollback()
		switch {
		case errors.Is(err, storage.ErrUserNotFound):
			logger.Warn("user from session not found")
			return nil, fmt.Errorf("%s: %w", op, ErrMissingIdentity)
		case errors.Is(err, storage.ErrUserLocked):
			logger.Warn("concurrent checkout detected")
			return nil, fmt.Errorf("%s: %w", op, ErrCheckoutInProgress)
		}
		logger.Error("failed to lock user", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, storeWriteError(StepLockUser, err))
	}

	order, err := s.orderRepo.CreateOrder(ctx, tx, &models.Order{
		UserID:          req.Session.UserID,
		TotalPrice:      totalPrice,
		DepositorName:   req.Session.DepositorName(),
		ShippingAddress: s.settings.PlaceholderAddress,
		Phone:           s.settings.PlaceholderPhone,
		Status:          models.OrderStatusPending,
		IdempotencyKey:  key,
	})
	if err != nil {
		rollback()
		if errors.Is(err, storage.ErrDuplicateOrder) {
			// параллельный запрос с тем же ключом успел раньше
			logger.Info("duplicate checkout, returning existing order")
			existing, err := s.orderRepo.GetOrderByIdempotencyKey(ctx, req.Session.UserID, key)
			if err != nil {
				logger.Error("failed to load existing order", slog.Any("error", err))
				return nil, fmt.Errorf("%s: %w", op, storeWriteError(StepReplay, err))
			}
			return s.replay(ctx, logger, existing)
		}
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, storeWriteError(StepCreateOrder, err))
	}

	items := orderItemsFromSnapshot(order.ID, req.Snapshot)
	if err := s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		rollback()
		logger.Error("failed to create order items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, storeWriteError(StepCreateItems, err))
	}

	cleared, err := s.cartRepo.ClearCart(ctx, tx, req.Session.UserID)
	if err != nil {
		rollback()
		logger.Error("failed to clear cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, storeWriteError(StepClearCart, err))
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, storeWriteError(StepCommit, err))
	}

	order.Items = items
	logger.Info("checkout completed successfully",
		slog.Int64("orderID", order.ID),
		slog.Int64("cartLinesCleared", cleared),
	)
	return s.receipt(order, false), nil
}

// replay возвращает заказ, уже созданный с тем же ключом идемпотентности, без новых записей
func (s *checkoutService) replay(ctx context.Context, logger *slog.Logger, order *models.Order) (*Receipt, error) {
	const op = "service.CheckoutService.Checkout"

	items, err := s.orderRepo.GetOrderItems(ctx, []int64{order.ID})
	if err != nil {
		logger.Error("failed to load existing order items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, storeWriteError(StepReplay, err))
	}
	order.Items = items
	return s.receipt(order, true), nil
}

func (s *checkoutService) receipt(order *models.Order, replayed bool) *Receipt {
	msg := s.printer.Sprintf(
		"[Order received]\n\nAmount to deposit: %d won\nAccount: %s\n\nShipping starts once the deposit is confirmed.",
		order.TotalPrice, s.settings.BankAccount,
	)
	return &Receipt{
		Order:       order,
		BankAccount: s.settings.BankAccount,
		Message:     msg,
		Redirect:    s.settings.LandingPath,
		Replayed:    replayed,
	}
}

func validateCheckout(session models.Session, snapshot []models.CartItem) error {
	if len(snapshot) == 0 {
		return ErrEmptyCart
	}
	if !session.HasIdentity() {
		return ErrMissingIdentity
	}
	for _, line := range snapshot {
		if line.Quantity < 1 {
			return fmt.Errorf("%w: line %d has quantity %d", ErrInvalidCartLine, line.ID, line.Quantity)
		}
		if line.Product.Price < 0 {
			return fmt.Errorf("%w: line %d has negative price", ErrInvalidCartLine, line.ID)
		}
		if line.UserID != 0 && line.UserID != session.UserID {
			return fmt.Errorf("%w: line %d belongs to another user", ErrInvalidCartLine, line.ID)
		}
	}
	return nil
}

func orderItemsFromSnapshot(orderID int64, snapshot []models.CartItem) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(snapshot))
	for _, line := range snapshot {
		items = append(items, models.OrderItem{
			OrderID:         orderID,
			ProductID:       line.ProductID,
			ProductName:     line.Product.Name,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.Product.Price,
		})
	}
	return items
}
