package service

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/wellnessreal/internal/model"
	"github.com/mmeshcher/wellnessreal/internal/repository"
	"github.com/mmeshcher/wellnessreal/internal/validation"
)

const (
	// MaxUploadSize ограничивает размер загружаемого изображения.
	MaxUploadSize = 5 << 20

	defaultAuthor = "Fernando Royano"
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// PostInput содержит данные новой статьи.
type PostInput struct {
	Title        string     `json:"title" validate:"required,max=300"`
	Slug         string     `json:"slug" validate:"required,max=300"`
	Excerpt      string     `json:"excerpt" validate:"required"`
	Author       string     `json:"author" validate:"max=200"`
	MainImageURL string     `json:"mainImageUrl" validate:"omitempty,url"`
	MainImageAlt string     `json:"mainImageAlt" validate:"max=300"`
	CategoryID   string     `json:"categoryId" validate:"omitempty,uuid"`
	PublishedAt  *time.Time `json:"publishedAt"`
	ReadTime     string     `json:"readTime" validate:"max=50"`
	Content      string     `json:"content" validate:"required"`
	Published    bool       `json:"published"`
}

// PostUpdateInput описывает частичное изменение статьи. Отсутствующие поля не меняются.
type PostUpdateInput struct {
	Title        *string    `json:"title" validate:"omitempty,min=1,max=300"`
	Slug         *string    `json:"slug" validate:"omitempty,min=1,max=300"`
	Excerpt      *string    `json:"excerpt" validate:"omitempty,min=1"`
	Author       *string    `json:"author" validate:"omitempty,max=200"`
	MainImageURL *string    `json:"mainImageUrl" validate:"omitempty,url"`
	MainImageAlt *string    `json:"mainImageAlt" validate:"omitempty,max=300"`
	CategoryID   *string    `json:"categoryId" validate:"omitempty,uuid"`
	PublishedAt  *time.Time `json:"publishedAt"`
	ReadTime     *string    `json:"readTime" validate:"omitempty,max=50"`
	Content      *string    `json:"content" validate:"omitempty,min=1"`
	Published    *bool      `json:"published"`
}

// CategoryInput содержит данные рубрики. Slug строится из названия.
type CategoryInput struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// CategoryUpdateInput описывает частичное изменение рубрики.
type CategoryUpdateInput struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func checkSlug(slug string) error {
	if !validation.IsValidSlug(slug) {
		return validation.Errorf("slug", "slug may only contain lowercase letters, digits and single hyphens")
	}
	return nil
}

// ListPublishedPosts возвращает публичный список статей, при необходимости одной рубрики.
func (s *Service) ListPublishedPosts(ctx context.Context, categorySlug string) ([]model.PostListing, error) {
	posts, err := s.repo.ListPublishedPosts(ctx, categorySlug)
	if err != nil {
		return nil, err
	}

	res := make([]model.PostListing, 0, len(posts))
	for i := range posts {
		res = append(res, posts[i].Listing())
	}
	return res, nil
}

// GetPublishedPost возвращает опубликованную статью по slug. Черновики не видны.
func (s *Service) GetPublishedPost(ctx context.Context, slug string) (*model.Post, error) {
	p, err := s.repo.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !p.Published {
		return nil, repository.ErrPostNotFound
	}
	return p, nil
}

// ListPosts возвращает все статьи, включая черновики.
func (s *Service) ListPosts(ctx context.Context) ([]model.Post, error) {
	return s.repo.ListPosts(ctx)
}

// GetPost возвращает статью по идентификатору.
func (s *Service) GetPost(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	return s.repo.GetPostByID(ctx, id)
}

// CreatePost проверяет данные и создаёт статью.
func (s *Service) CreatePost(ctx context.Context, in PostInput) (*model.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := checkSlug(in.Slug); err != nil {
		return nil, err
	}

	p := &model.Post{
		ID:           uuid.New(),
		Title:        in.Title,
		Slug:         in.Slug,
		Excerpt:      in.Excerpt,
		Author:       strings.TrimSpace(in.Author),
		MainImageURL: optional(in.MainImageURL),
		MainImageAlt: optional(in.MainImageAlt),
		ReadTime:     optional(in.ReadTime),
		Content:      in.Content,
		Published:    in.Published,
		PublishedAt:  s.now(),
	}
	if p.Author == "" {
		p.Author = defaultAuthor
	}
	if in.PublishedAt != nil {
		p.PublishedAt = *in.PublishedAt
	}
	if in.CategoryID != "" {
		id := uuid.MustParse(in.CategoryID)
		p.CategoryID = &id
	}

	created, err := s.repo.CreatePost(ctx, p)
	if err != nil {
		return nil, err
	}

	s.logger.Info("post created", zap.String("slug", created.Slug), zap.Bool("published", created.Published))
	return created, nil
}

// UpdatePost применяет частичное изменение к статье.
func (s *Service) UpdatePost(ctx context.Context, id uuid.UUID, in PostUpdateInput) (*model.Post, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.Slug != nil {
		if err := checkSlug(*in.Slug); err != nil {
			return nil, err
		}
	}

	return s.repo.UpdatePost(ctx, id, model.PostPatch{
		Title:        in.Title,
		Slug:         in.Slug,
		Excerpt:      in.Excerpt,
		Author:       in.Author,
		MainImageURL: in.MainImageURL,
		MainImageAlt: in.MainImageAlt,
		CategoryID:   in.CategoryID,
		PublishedAt:  in.PublishedAt,
		ReadTime:     in.ReadTime,
		Content:      in.Content,
		Published:    in.Published,
	})
}

// DeletePost удаляет статью и её главное изображение. Ошибка удаления изображения не прерывает операцию.
func (s *Service) DeletePost(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.GetPostByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeletePost(ctx, id); err != nil {
		return err
	}

	if p.MainImageURL != nil && s.media != nil {
		if err := s.media.Delete(ctx, *p.MainImageURL); err != nil {
			s.logger.Warn("delete post image", zap.String("url", *p.MainImageURL), zap.Error(err))
		}
	}

	s.logger.Info("post deleted", zap.String("slug", p.Slug))
	return nil
}

// ListCategories возвращает все рубрики.
func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateCategory создаёт рубрику со slug, построенным из названия.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*model.Category, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	slug := validation.Slugify(in.Title)
	if slug == "" {
		return nil, validation.Errorf("title", "title must contain letters or digits")
	}

	return s.repo.CreateCategory(ctx, &model.Category{
		ID:          uuid.New(),
		Title:       in.Title,
		Slug:        slug,
		Description: in.Description,
	})
}

// UpdateCategory изменяет рубрику. При смене названия slug строится заново.
func (s *Service) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryUpdateInput) (*model.Category, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	patch := model.CategoryPatch{Description: in.Description}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		slug := validation.Slugify(title)
		if slug == "" {
			return nil, validation.Errorf("title", "title must contain letters or digits")
		}
		patch.Title = &title
		patch.Slug = &slug
	}

	return s.repo.UpdateCategory(ctx, id, patch)
}

// DeleteCategory удаляет рубрику.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteCategory(ctx, id)
}

// UploadImage проверяет тип и размер изображения по содержимому и сохраняет его в хранилище.
func (s *Service) UploadImage(ctx context.Context, fileName string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", validation.Errorf("file", "file is required")
	}
	if len(data) > MaxUploadSize {
		return "", validation.Errorf("file", "file must not exceed 5MB")
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedImageTypes...) {
		return "", validation.Errorf("file", "file type %s is not allowed", mt.String())
	}
	if s.media == nil {
		return "", ErrNotConfigured
	}

	url, err := s.media.Upload(ctx, fileName, mt.String(), bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	s.logger.Info("image uploaded", zap.String("url", url), zap.Int("size", len(data)))
	return url, nil
}
