package service_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sort"

	"github.com/linemk/ministry-shop/internal/cache"
	"github.com/linemk/ministry-shop/internal/domain/models"
	"github.com/linemk/ministry-shop/internal/storage"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

type fakeUserRepo struct {
	users   map[string]*models.User // ключ - email
	lockErr error
	locks   int
}

var _ storage.UserStorage = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if _, ok := f.users[user.Email]; ok {
		return nil, storage.ErrUserExists
	}
	user.ID = int64(len(f.users) + 1)
	f.users[user.Email] = user
	return user, nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeUserRepo) LockUserByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.User, error) {
	f.locks++
	if f.lockErr != nil {
		return nil, f.lockErr
	}
	return f.GetUserByID(ctx, id)
}

// fakeOrderRepo хранит заказы в памяти и умеет падать на нужном шаге
type fakeOrderRepo struct {
	orders    []*models.Order
	items     []models.OrderItem
	createErr error
	itemsErr  error
	lookupErr error
	// lookupMisses: столько поисков по ключу вернут "не найдено", даже если заказ есть
	lookupMisses int
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{}
}

func (f *fakeOrderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *models.Order) (*models.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, o := range f.orders {
		if o.UserID == order.UserID && o.IdempotencyKey == order.IdempotencyKey {
			return nil, storage.ErrDuplicateOrder
		}
	}
	order.ID = int64(len(f.orders) + 1)
	f.orders = append(f.orders, order)
	return order, nil
}

func (f *fakeOrderRepo) CreateOrderItems(ctx context.Context, tx *sql.Tx, items []models.OrderItem) error {
	if f.itemsErr != nil {
		return f.itemsErr
	}
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeOrderRepo) GetOrderByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.Order, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if f.lookupMisses > 0 {
		f.lookupMisses--
		return nil, storage.ErrOrderNotFound
	}
	for _, o := range f.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			cp := *o
			cp.Items = nil
			return &cp, nil
		}
	}
	return nil, storage.ErrOrderNotFound
}

func (f *fakeOrderRepo) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	var res []*models.Order
	for i := len(f.orders) - 1; i >= 0; i-- {
		if f.orders[i].UserID == userID {
			cp := *f.orders[i]
			cp.Items = nil
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (f *fakeOrderRepo) GetOrderItems(ctx context.Context, orderIDs []int64) ([]models.OrderItem, error) {
	want := make(map[int64]bool, len(orderIDs))
	for _, id := range orderIDs {
		want[id] = true
	}
	var res []models.OrderItem
	for _, it := range f.items {
		if want[it.OrderID] {
			res = append(res, it)
		}
	}
	return res, nil
}

type fakeCartRepo struct {
	items    map[int64]*models.CartItem // ключ: id строки
	nextID   int64
	clearErr error
	clears   int
}

var _ storage.CartStorage = (*fakeCartRepo)(nil)

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{items: make(map[int64]*models.CartItem)}
}

func (f *fakeCartRepo) put(item models.CartItem) {
	f.nextID++
	if item.ID == 0 {
		item.ID = f.nextID
	}
	f.items[item.ID] = &item
}

func (f *fakeCartRepo) GetCartByUserID(ctx context.Context, userID int64) ([]models.CartItem, error) {
	res := []models.CartItem{}
	for _, it := range f.items {
		if it.UserID == userID {
			res = append(res, *it)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (f *fakeCartRepo) AddItem(ctx context.Context, userID, productID, quantity int64) (*models.CartItem, error) {
	for _, it := range f.items {
		if it.UserID == userID && it.ProductID == productID {
			it.Quantity += quantity
			cp := *it
			return &cp, nil
		}
	}
	f.put(models.CartItem{UserID: userID, ProductID: productID, Quantity: quantity})
	cp := *f.items[f.nextID]
	return &cp, nil
}

func (f *fakeCartRepo) RemoveItem(ctx context.Context, userID, itemID int64) error {
	it, ok := f.items[itemID]
	if !ok || it.UserID != userID {
		return storage.ErrCartItemNotFound
	}
	delete(f.items, itemID)
	return nil
}

func (f *fakeCartRepo) ClearCart(ctx context.Context, tx *sql.Tx, userID int64) (int64, error) {
	f.clears++
	if f.clearErr != nil {
		return 0, f.clearErr
	}
	var n int64
	for id, it := range f.items {
		if it.UserID == userID {
			delete(f.items, id)
			n++
		}
	}
	return n, nil
}

type fakeProductRepo struct {
	products map[int64]*models.Product
	listErr  error
	listed   int
}

var _ storage.ProductStorage = (*fakeProductRepo)(nil)

func newFakeProductRepo(products ...*models.Product) *fakeProductRepo {
	f := &fakeProductRepo{products: make(map[int64]*models.Product)}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeProductRepo) ListActiveProducts(ctx context.Context) ([]*models.Product, error) {
	f.listed++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var res []*models.Product
	for _, p := range f.products {
		if p.IsActive {
			res = append(res, p)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

func (f *fakeProductRepo) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return p, nil
}

type fakePostRepo struct {
	posts        []*models.MinistryPost
	lastCategory string
}

var _ storage.PostStorage = (*fakePostRepo)(nil)

func (f *fakePostRepo) ListPosts(ctx context.Context, category string) ([]*models.MinistryPost, error) {
	f.lastCategory = category
	var res []*models.MinistryPost
	for _, p := range f.posts {
		if category == "" || p.Category == category {
			res = append(res, p)
		}
	}
	return res, nil
}

// fakeCache кэш в памяти; getErr/setErr имитируют недоступный redis
type fakeCache struct {
	products []*models.Product
	getErr   error
	setErr   error
	sets     int
}

var _ cache.CatalogCache = (*fakeCache)(nil)

func (f *fakeCache) GetActiveProducts(ctx context.Context) ([]*models.Product, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.products == nil {
		return nil, cache.ErrCacheMiss
	}
	return f.products, nil
}

func (f *fakeCache) SetActiveProducts(ctx context.Context, products []*models.Product) error {
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.products = products
	return nil
}
