package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linemk/ministry-shop/internal/domain/models"
)

// PostStorage - записи раздела служения.
type PostStorage interface {
	// ListPosts возвращает записи, новые первыми. Пустая категория - без фильтра.
	ListPosts(ctx context.Context, category string) ([]*models.MinistryPost, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostStorage {
	return &postRepository{db: db}
}

func (r *postRepository) ListPosts(ctx context.Context, category string) ([]*models.MinistryPost, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if category == "" {
		rows, err = r.db.QueryContext(ctx, `
		SELECT id, title, content, image_url, category, created_at
		FROM ministry_posts
		ORDER BY created_at DESC`)
	} else {
		rows, err = r.db.QueryContext(ctx, `
		SELECT id, title, content, image_url, category, created_at
		FROM ministry_posts
		WHERE category = $1
		ORDER BY created_at DESC`, category)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []*models.MinistryPost{}
	for rows.Next() {
		p := &models.MinistryPost{}
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.ImageURL, &p.Category, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}
