package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/wellnessreal/internal/model"
)

const categoryColumns = `id, title, slug, description, created_at`

func scanCategory(row pgx.Row) (*model.Category, error) {
	var c model.Category
	if err := row.Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategories возвращает все рубрики в алфавитном порядке.
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var res []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		res = append(res, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateCategory сохраняет новую рубрику.
func (r *PostgresRepository) CreateCategory(ctx context.Context, c *model.Category) (*model.Category, error) {
	created, err := scanCategory(r.pool.QueryRow(ctx,
		`INSERT INTO categories (id, title, slug, description) VALUES ($1, $2, $3, $4) RETURNING `+categoryColumns,
		c.ID, c.Title, c.Slug, c.Description,
	))
	if err != nil {
		if isPgError(err, pgerrcode.UniqueViolation) {
			return nil, ErrSlugExists
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return created, nil
}

// UpdateCategory применяет частичное изменение к рубрике.
func (r *PostgresRepository) UpdateCategory(ctx context.Context, id uuid.UUID, patch model.CategoryPatch) (*model.Category, error) {
	s := &setList{args: []any{id}}
	if patch.Title != nil {
		s.add("title", *patch.Title)
	}
	if patch.Slug != nil {
		s.add("slug", *patch.Slug)
	}
	if patch.Description != nil {
		s.add("description", nullIfEmpty(*patch.Description))
	}
	if len(s.sets) == 0 {
		c, err := scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return c, err
	}

	c, err := scanCategory(r.pool.QueryRow(ctx,
		`UPDATE categories SET `+strings.Join(s.sets, ", ")+` WHERE id = $1 RETURNING `+categoryColumns,
		s.args...,
	))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrCategoryNotFound
		case isPgError(err, pgerrcode.UniqueViolation):
			return nil, ErrSlugExists
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

// DeleteCategory удаляет рубрику. Статьи рубрики остаются без рубрики.
func (r *PostgresRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
