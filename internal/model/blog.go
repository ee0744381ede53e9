package model

import (
	"time"

	"github.com/google/uuid"
)

// Category описывает рубрику блога.
type Category struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Post описывает статью блога вместе с её рубрикой.
type Post struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Slug         string     `json:"slug"`
	Excerpt      string     `json:"excerpt"`
	Author       string     `json:"author"`
	MainImageURL *string    `json:"mainImageUrl"`
	MainImageAlt *string    `json:"mainImageAlt"`
	CategoryID   *uuid.UUID `json:"categoryId"`
	Category     *Category  `json:"category"`
	PublishedAt  time.Time  `json:"publishedAt"`
	ReadTime     *string    `json:"readTime"`
	Content      string     `json:"content"`
	Published    bool       `json:"published"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// PostPatch содержит частичное изменение статьи.
// Для необязательных полей пустая строка означает сброс в NULL.
type PostPatch struct {
	Title        *string
	Slug         *string
	Excerpt      *string
	Author       *string
	MainImageURL *string
	MainImageAlt *string
	CategoryID   *string
	PublishedAt  *time.Time
	ReadTime     *string
	Content      *string
	Published    *bool
}

// CategoryPatch содержит частичное изменение рубрики.
type CategoryPatch struct {
	Title       *string
	Slug        *string
	Description *string
}

// PostListing описывает статью в публичном списке.
type PostListing struct {
	Slug     string    `json:"slug"`
	Title    string    `json:"title"`
	Excerpt  string    `json:"excerpt"`
	Category string    `json:"category"`
	Author   string    `json:"author"`
	Date     time.Time `json:"date"`
	ReadTime *string   `json:"readTime"`
	Image    *string   `json:"image"`
}

// Listing строит публичное представление статьи.
func (p *Post) Listing() PostListing {
	category := "Sin categoría"
	if p.Category != nil {
		category = p.Category.Title
	}
	return PostListing{
		Slug:     p.Slug,
		Title:    p.Title,
		Excerpt:  p.Excerpt,
		Category: category,
		Author:   p.Author,
		Date:     p.PublishedAt,
		ReadTime: p.ReadTime,
		Image:    p.MainImageURL,
	}
}
