package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/ministry-shop/internal/domain/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

type UserStorage interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	LockUserByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: db}
}

// получение уже существующего пользователя
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT id, email, full_name, pass_hash, role FROM users WHERE email = $1", email)
	return scanUser(row)
}

func (r *userRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT id, email, full_name, pass_hash, role FROM users WHERE id = $1", id)
	return scanUser(row)
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user.Role == "" {
		user.Role = models.RoleCustomer
	}

	var id int64
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO users (email, full_name, pass_hash, role) VALUES ($1, $2, $3, $4) RETURNING id",
		user.Email, user.FullName, user.PassHash, user.Role,
	).Scan(&id)
	if err != nil {
		if pqCode(err) == pqUniqueViolation {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = id
	return user, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	if err := row.Scan(&user.ID, &user.Email, &user.FullName, &user.PassHash, &user.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

var ErrUserLocked = errors.New("user is locked by another operation")

// LockUserByIDTx блокирует строку пользователя до конца транзакции.
// Параллельное оформление заказа тем же пользователем получит ErrUserLocked.
func (r *userRepository) LockUserByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.User, error) {
	row := tx.QueryRowContext(ctx, "SELECT id, email, full_name, pass_hash, role FROM users WHERE id = $1 FOR UPDATE NOWAIT", id)
	user, err := scanUser(row)
	if err != nil {
		if pqCode(err) == pqLockNotAvailable {
			return nil, fmt.Errorf("%w: %v", ErrUserLocked, err)
		}
		return nil, err
	}
	return user, nil
}
