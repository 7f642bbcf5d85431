package storage_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/linemk/ministry-shop/internal/domain/models"
	"github.com/linemk/ministry-shop/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "email", "full_name", "pass_hash", "role"}

func TestGetUserByID_Success(t *testing.T) {
	// Создаем sqlmock для эмуляции базы данных.
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)
	userID := int64(1)

	rows := sqlmock.NewRows(userColumns).
		AddRow(userID, "test@example.com", "Kim", []byte("hashed-password"), "customer")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, full_name, pass_hash, role FROM users WHERE id = $1")).
		WithArgs(userID).WillReturnRows(rows)

	user, err := repo.GetUserByID(context.Background(), userID)
	assert.NoError(t, err, "Expected no error when user is found")
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "test@example.com", user.Email)
	assert.Equal(t, "Kim", user.FullName)
	assert.Equal(t, []byte("hashed-password"), user.PassHash)
	assert.Equal(t, models.RoleCustomer, user.Role)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)
	email := "nonexistent@example.com"

	// Эмулируем ситуацию, когда запрос возвращает 0 строк.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, full_name, pass_hash, role FROM users WHERE email = $1")).
		WithArgs(email).WillReturnRows(sqlmock.NewRows(userColumns))

	user, err := repo.GetUserByEmail(context.Background(), email)
	assert.Nil(t, user)
	assert.True(t, errors.Is(err, storage.ErrUserNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)
	email := "create@example.com"
	passHash := []byte("hashed")

	query := regexp.QuoteMeta("INSERT INTO users (email, full_name, pass_hash, role) VALUES ($1, $2, $3, $4) RETURNING id")
	mock.ExpectQuery(query).WithArgs(email, "create", passHash, "customer").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	created, err := repo.CreateUser(context.Background(), &models.User{Email: email, FullName: "create", PassHash: passHash})
	assert.NoError(t, err)
	assert.Equal(t, int64(7), created.ID)
	assert.Equal(t, models.RoleCustomer, created.Role, "Role should default to customer")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_Duplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	created, err := repo.CreateUser(context.Background(), &models.User{Email: "dup@example.com", PassHash: []byte("h")})
	assert.Nil(t, created)
	assert.True(t, errors.Is(err, storage.ErrUserExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockUserByIDTx_Locked(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	query := regexp.QuoteMeta("SELECT id, email, full_name, pass_hash, role FROM users WHERE id = $1 FOR UPDATE NOWAIT")
	mock.ExpectQuery(query).WithArgs(int64(1)).
		WillReturnError(&pq.Error{Code: "55P03", Message: "could not obtain lock on row"})

	user, err := repo.LockUserByIDTx(context.Background(), tx, 1)
	assert.Nil(t, user)
	assert.True(t, errors.Is(err, storage.ErrUserLocked))

	mock.ExpectRollback()
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockUserByIDTx_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	mock.ExpectQuery("FOR UPDATE NOWAIT").WithArgs(int64(99)).WillReturnRows(sqlmock.NewRows(userColumns))

	user, err := repo.LockUserByIDTx(context.Background(), tx, 99)
	assert.Nil(t, user)
	assert.True(t, errors.Is(err, storage.ErrUserNotFound))

	mock.ExpectRollback()
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

var productColumns = []string{"id", "name", "price", "description", "main_image", "stock", "category", "is_active", "created_at"}

func TestListActiveProducts_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewProductRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows(productColumns).
		AddRow(2, "Prayer journal", 12000, "A5 notebook", "https://img/2.png", 10, "stationery", true, now).
		AddRow(1, "Mission t-shirt", 25000, "Cotton", nil, 3, "apparel", true, now.Add(-time.Hour))

	query := regexp.QuoteMeta("SELECT id, name, price, description, main_image, stock, category, is_active, created_at FROM products WHERE is_active = TRUE ORDER BY created_at DESC")
	mock.ExpectQuery(query).WillReturnRows(rows)

	products, err := repo.ListActiveProducts(context.Background())
	assert.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Prayer journal", products[0].Name)
	require.NotNil(t, products[0].MainImage)
	assert.Equal(t, "https://img/2.png", *products[0].MainImage)
	assert.Nil(t, products[1].MainImage, "NULL image should stay nil")
	assert.Equal(t, int64(25000), products[1].Price)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = $1")).
		WithArgs(int64(5)).WillReturnRows(sqlmock.NewRows(productColumns))

	product, err := repo.GetProductByID(context.Background(), 5)
	assert.Nil(t, product)
	assert.True(t, errors.Is(err, storage.ErrProductNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPosts_ByCategory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewPostRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "title", "content", "image_url", "category", "created_at"}).
		AddRow(3, "March letter", "Dear friends", nil, "prayer_letter", now)
	query := regexp.QuoteMeta("FROM ministry_posts WHERE category = $1 ORDER BY created_at DESC")
	mock.ExpectQuery(query).WithArgs("prayer_letter").WillReturnRows(rows)

	posts, err := repo.ListPosts(context.Background(), "prayer_letter")
	assert.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "March letter", posts[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPosts_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM ministry_posts ORDER BY created_at DESC")).
		WillReturnError(errors.New("db error"))

	posts, err := repo.ListPosts(context.Background(), "")
	assert.Error(t, err)
	assert.Nil(t, posts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCartByUserID_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)
	now := time.Now()
	userID := int64(1)

	rows := sqlmock.NewRows([]string{"id", "user_id", "product_id", "quantity", "created_at", "name", "price", "main_image"}).
		AddRow(10, userID, 1, 2, now, "Mission t-shirt", 10000, nil).
		AddRow(11, userID, 2, 1, now, "Prayer journal", 5000, "https://img/2.png")

	query := regexp.QuoteMeta("FROM cart_items c JOIN products p ON c.product_id = p.id WHERE c.user_id = $1 ORDER BY c.created_at ASC")
	mock.ExpectQuery(query).WithArgs(userID).WillReturnRows(rows)

	items, err := repo.GetCartByUserID(context.Background(), userID)
	assert.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(10000), items[0].Product.Price)
	assert.Equal(t, int64(2), items[0].Quantity)
	assert.Equal(t, "Prayer journal", items[1].Product.Name)
	assert.Equal(t, int64(25000), models.CartTotal(items))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItem_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity")).
		WithArgs(int64(1), int64(2), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "quantity", "created_at"}).AddRow(10, 5, now))

	item, err := repo.AddItem(context.Background(), 1, 2, 3)
	assert.NoError(t, err)
	assert.Equal(t, int64(10), item.ID)
	assert.Equal(t, int64(5), item.Quantity, "Quantity should be accumulated by the upsert")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItem_UnknownProduct(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)

	mock.ExpectQuery("INSERT INTO cart_items").
		WillReturnError(&pq.Error{Code: "23503", Message: "violates foreign key constraint"})

	item, err := repo.AddItem(context.Background(), 1, 404, 1)
	assert.Nil(t, item)
	assert.True(t, errors.Is(err, storage.ErrProductNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveItem_ForeignRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)

	// Строка чужого пользователя не удаляется: 0 строк затронуто
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE id = $1 AND user_id = $2")).
		WithArgs(int64(10), int64(2)).WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.RemoveItem(context.Background(), 2, 10)
	assert.True(t, errors.Is(err, storage.ErrCartItemNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearCart_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE user_id = $1")).
		WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 2))

	deleted, err := repo.ClearCart(context.Background(), tx, 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	mock.ExpectCommit()
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders (user_id, total_price, depositor_name, shipping_address, phone, status, idempotency_key, created_at)")).
		WithArgs(int64(1), int64(25000), "kim", "addr", "010-0000-0000", "pending", "key-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(42, now))

	order, err := repo.CreateOrder(context.Background(), tx, &models.Order{
		UserID:          1,
		TotalPrice:      25000,
		DepositorName:   "kim",
		ShippingAddress: "addr",
		Phone:           "010-0000-0000",
		Status:          models.OrderStatusPending,
		IdempotencyKey:  "key-1",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, now, order.CreatedAt)

	mock.ExpectCommit()
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_DuplicateKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	// ON CONFLICT DO NOTHING ничего не возвращает
	mock.ExpectQuery("INSERT INTO orders").WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))

	order, err := repo.CreateOrder(context.Background(), tx, &models.Order{UserID: 1, IdempotencyKey: "key-1", Status: models.OrderStatusPending})
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, storage.ErrDuplicateOrder))

	mock.ExpectRollback()
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderItems_BulkInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	query := regexp.QuoteMeta("INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase) VALUES ($1, $2, $3, $4), ($5, $6, $7, $8)")
	mock.ExpectExec(query).
		WithArgs(int64(42), int64(1), int64(2), int64(10000), int64(42), int64(2), int64(1), int64(5000)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err = repo.CreateOrderItems(context.Background(), tx, []models.OrderItem{
		{OrderID: 42, ProductID: 1, Quantity: 2, PriceAtPurchase: 10000},
		{OrderID: 42, ProductID: 2, Quantity: 1, PriceAtPurchase: 5000},
	})
	assert.NoError(t, err)

	mock.ExpectCommit()
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderItems_PartialInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO order_items").WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.CreateOrderItems(context.Background(), tx, []models.OrderItem{
		{OrderID: 42, ProductID: 1, Quantity: 2, PriceAtPurchase: 10000},
		{OrderID: 42, ProductID: 2, Quantity: 1, PriceAtPurchase: 5000},
	})
	assert.Error(t, err)

	mock.ExpectRollback()
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

var orderColumns = []string{"id", "user_id", "total_price", "depositor_name", "shipping_address", "phone", "status", "idempotency_key", "created_at"}

func TestGetOrderByIdempotencyKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE user_id = $1 AND idempotency_key = $2")).
		WithArgs(int64(1), "key-1").
		WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(42, 1, 25000, "kim", "addr", "010", "pending", "key-1", now))

	order, err := repo.GetOrderByIdempotencyKey(context.Background(), 1, "key-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, models.OrderStatusPending, order.Status)

	mock.ExpectQuery("FROM orders WHERE user_id").
		WithArgs(int64(1), "missing").
		WillReturnRows(sqlmock.NewRows(orderColumns))

	order, err = repo.GetOrderByIdempotencyKey(context.Background(), 1, "missing")
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, storage.ErrOrderNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrdersByUserID_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows(orderColumns).
		AddRow(43, 1, 5000, "kim", "addr", "010", "paid", "key-2", now).
		AddRow(42, 1, 25000, "kim", "addr", "010", "pending", "key-1", now.Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE user_id = $1 ORDER BY created_at DESC")).
		WithArgs(int64(1)).WillReturnRows(rows)

	orders, err := repo.GetOrdersByUserID(context.Background(), 1)
	assert.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, models.OrderStatusPaid, orders[0].Status)
	assert.Equal(t, int64(25000), orders[1].TotalPrice)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderItems(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)

	rows := sqlmock.NewRows([]string{"order_id", "product_id", "name", "quantity", "price_at_purchase"}).
		AddRow(42, 1, "Mission t-shirt", 2, 10000).
		AddRow(43, 2, "Prayer journal", 1, 5000)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE oi.order_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)

	items, err := repo.GetOrderItems(context.Background(), []int64{42, 43})
	assert.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Mission t-shirt", items[0].ProductName)
	assert.Equal(t, int64(5000), items[1].PriceAtPurchase)

	// Пустой список id - без запроса к БД
	items, err = repo.GetOrderItems(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}
