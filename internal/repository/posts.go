package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/wellnessreal/internal/model"
)

const postSelect = `SELECT p.id, p.title, p.slug, p.excerpt, p.author, p.main_image_url, p.main_image_alt,
	p.category_id, p.published_at, p.read_time, p.content, p.published, p.created_at, p.updated_at,
	c.id, c.title, c.slug, c.description, c.created_at
	FROM posts p
	LEFT JOIN categories c ON c.id = p.category_id`

func scanPost(row pgx.Row) (*model.Post, error) {
	var (
		p           model.Post
		catID       *uuid.UUID
		catTitle    *string
		catSlug     *string
		catDesc     *string
		catCreateAt *time.Time
	)

	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Author, &p.MainImageURL, &p.MainImageAlt,
		&p.CategoryID, &p.PublishedAt, &p.ReadTime, &p.Content, &p.Published, &p.CreatedAt, &p.UpdatedAt,
		&catID, &catTitle, &catSlug, &catDesc, &catCreateAt,
	)
	if err != nil {
		return nil, err
	}

	if catID != nil {
		p.Category = &model.Category{
			ID:          *catID,
			Title:       deref(catTitle),
			Slug:        deref(catSlug),
			Description: catDesc,
		}
		if catCreateAt != nil {
			p.Category.CreatedAt = *catCreateAt
		}
	}

	return &p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *PostgresRepository) queryPosts(ctx context.Context, query string, args ...any) ([]model.Post, error) {
	var res []model.Post
	err := r.withRetry(ctx, func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		res = res[:0]
		for rows.Next() {
			p, err := scanPost(rows)
			if err != nil {
				return fmt.Errorf("scan post: %w", err)
			}
			res = append(res, *p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("select posts: %w", err)
	}
	return res, nil
}

// ListPublishedPosts возвращает опубликованные статьи, при необходимости только из указанной рубрики.
func (r *PostgresRepository) ListPublishedPosts(ctx context.Context, categorySlug string) ([]model.Post, error) {
	if categorySlug == "" {
		return r.queryPosts(ctx, postSelect+` WHERE p.published ORDER BY p.published_at DESC`)
	}
	return r.queryPosts(ctx,
		postSelect+` WHERE p.published AND c.slug = $1 ORDER BY p.published_at DESC`,
		categorySlug,
	)
}

// ListPosts возвращает все статьи, включая черновики, начиная с самых новых.
func (r *PostgresRepository) ListPosts(ctx context.Context) ([]model.Post, error) {
	return r.queryPosts(ctx, postSelect+` ORDER BY p.created_at DESC`)
}

// GetPostByID возвращает статью по идентификатору.
func (r *PostgresRepository) GetPostByID(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	return r.getPost(ctx, `p.id`, id)
}

// GetPostBySlug возвращает статью по slug.
func (r *PostgresRepository) GetPostBySlug(ctx context.Context, slug string) (*model.Post, error) {
	return r.getPost(ctx, `p.slug`, slug)
}

func (r *PostgresRepository) getPost(ctx context.Context, keyColumn string, key any) (*model.Post, error) {
	p, err := scanPost(r.pool.QueryRow(ctx, postSelect+` WHERE `+keyColumn+` = $1`, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

func mapPostWriteError(op string, err error) error {
	switch {
	case isPgError(err, pgerrcode.UniqueViolation):
		return ErrSlugExists
	case isPgError(err, pgerrcode.ForeignKeyViolation):
		return ErrCategoryNotFound
	case errors.Is(err, pgx.ErrNoRows):
		return ErrPostNotFound
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// CreatePost сохраняет новую статью и возвращает её вместе с рубрикой.
func (r *PostgresRepository) CreatePost(ctx context.Context, p *model.Post) (*model.Post, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`INSERT INTO posts (id, title, slug, excerpt, author, main_image_url, main_image_alt,
			category_id, published_at, read_time, content, published)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		p.ID, p.Title, p.Slug, p.Excerpt, p.Author, p.MainImageURL, p.MainImageAlt,
		p.CategoryID, p.PublishedAt, p.ReadTime, p.Content, p.Published,
	).Scan(&id)
	if err != nil {
		return nil, mapPostWriteError("create post", err)
	}
	return r.GetPostByID(ctx, id)
}

// UpdatePost применяет частичное изменение к статье.
func (r *PostgresRepository) UpdatePost(ctx context.Context, id uuid.UUID, patch model.PostPatch) (*model.Post, error) {
	query, args := buildPostUpdate(id, patch)

	var updated uuid.UUID
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&updated); err != nil {
		return nil, mapPostWriteError("update post", err)
	}
	return r.GetPostByID(ctx, updated)
}

func buildPostUpdate(id uuid.UUID, patch model.PostPatch) (string, []any) {
	s := &setList{args: []any{id}}

	if patch.Title != nil {
		s.add("title", *patch.Title)
	}
	if patch.Slug != nil {
		s.add("slug", *patch.Slug)
	}
	if patch.Excerpt != nil {
		s.add("excerpt", *patch.Excerpt)
	}
	if patch.Author != nil {
		s.add("author", *patch.Author)
	}
	if patch.MainImageURL != nil {
		s.add("main_image_url", nullIfEmpty(*patch.MainImageURL))
	}
	if patch.MainImageAlt != nil {
		s.add("main_image_alt", nullIfEmpty(*patch.MainImageAlt))
	}
	if patch.CategoryID != nil {
		s.add("category_id", nullIfEmpty(*patch.CategoryID))
	}
	if patch.PublishedAt != nil {
		s.add("published_at", *patch.PublishedAt)
	}
	if patch.ReadTime != nil {
		s.add("read_time", nullIfEmpty(*patch.ReadTime))
	}
	if patch.Content != nil {
		s.add("content", *patch.Content)
	}
	if patch.Published != nil {
		s.add("published", *patch.Published)
	}
	s.raw("updated_at = now()")

	return `UPDATE posts SET ` + strings.Join(s.sets, ", ") + ` WHERE id = $1 RETURNING id`, s.args
}

// DeletePost удаляет статью.
func (r *PostgresRepository) DeletePost(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}
