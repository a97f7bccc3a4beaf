package repository

import (
	"context"

	"blogapi/internal/domain"
)

// PublishedFilter narrows a public blog listing. Zero values mean "no filter".
type PublishedFilter struct {
	AuthorID string
	Title    string // case-insensitive substring
	Tags     []string
}

// Sort names a whitelisted column and direction for blog listings.
type Sort struct {
	Field string
	Desc  bool
}

// Page is an offset-based pagination request (1-based page number).
type Page struct {
	Number int
	Limit  int
}

// BlogPage is one page of a blog listing with its pagination envelope.
type BlogPage struct {
	Items []domain.Blog
	Page  int
	Pages int
	Count int64
}

// BlogRepository defines persistence operations for Blog entities.
type BlogRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, blog *domain.Blog) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Blog, error)

	// GetPublishedAndIncrementReads fetches a published blog and bumps its
	// read_count in a single atomic statement.
	GetPublishedAndIncrementReads(ctx context.Context, id string) (*domain.Blog, error)

	ListPublished(ctx context.Context, filter PublishedFilter, sort Sort, page Page) (*BlogPage, error)

	// ListByAuthor returns the author's blogs in any state unless state is
	// non-empty, newest first.
	ListByAuthor(ctx context.Context, authorID string, state domain.BlogState, page Page) (*BlogPage, error)

	Update(ctx context.Context, blog *domain.Blog) error
	Delete(ctx context.Context, id string) error
}
