package service

import (
	"context"
	"errors"
	"strings"

	"blogapi/internal/domain"
	"blogapi/internal/repository"
)

const (
	defaultPublishedLimit = 20
	defaultAuthorLimit    = 10
)

var (
	// ErrTitleTaken is returned when creating or renaming a blog to an existing title.
	ErrTitleTaken = errors.New("title already exists")
	// ErrNotOwner indicates the acting user is not the author of the target blog.
	ErrNotOwner = errors.New("not the blog owner")
)

// CreateBlogInput carries the caller-supplied fields for a new blog.
type CreateBlogInput struct {
	Title       string
	Description string
	Body        string
	Tags        []string
}

// UpdateBlogInput is a partial patch; nil (or empty string) fields are left untouched.
type UpdateBlogInput struct {
	Title       *string
	Description *string
	Body        *string
	Tags        []string
	State       *string
}

// PublishedQuery narrows and pages the public blog listing.
type PublishedQuery struct {
	AuthorID string
	Title    string
	Tags     []string
	SortBy   string // "field:asc|desc"
	Page     int
	Limit    int
}

// BlogService coordinates the blog draft/publish workflow.
type BlogService interface {
	Create(ctx context.Context, authorID string, input CreateBlogInput) (*domain.Blog, error)
	ListPublished(ctx context.Context, query PublishedQuery) (*repository.BlogPage, error)

	// GetPublished returns a published blog and counts the read.
	GetPublished(ctx context.Context, id string) (*domain.Blog, error)

	ListByAuthor(ctx context.Context, authorID, state string, page, limit int) (*repository.BlogPage, error)

	// GetOwned loads a blog and verifies userID is its author.
	GetOwned(ctx context.Context, id, userID string) (*domain.Blog, error)

	Update(ctx context.Context, blog *domain.Blog, patch UpdateBlogInput) (*domain.Blog, error)
	Delete(ctx context.Context, blog *domain.Blog) error
}

type blogService struct {
	blogs repository.BlogRepository
}

func NewBlogService(blogs repository.BlogRepository) BlogService {
	return &blogService{blogs: blogs}
}

func (s *blogService) Create(ctx context.Context, authorID string, input CreateBlogInput) (*domain.Blog, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || strings.TrimSpace(input.Description) == "" || strings.TrimSpace(input.Body) == "" {
		return nil, newValidationError("Title, description and body are required")
	}

	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}

	blog := &domain.Blog{
		Title:       title,
		Description: input.Description,
		Body:        input.Body,
		Tags:        tags,
		AuthorID:    authorID,
		State:       domain.BlogStateDraft,
		ReadingTime: EstimateReadingTime(input.Body),
	}

	if _, err := s.blogs.Create(ctx, blog); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrTitleTaken
		}
		return nil, err
	}
	return blog, nil
}

func (s *blogService) ListPublished(ctx context.Context, query PublishedQuery) (*repository.BlogPage, error) {
	page := repository.Page{Number: query.Page, Limit: query.Limit}
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Limit < 1 {
		page.Limit = defaultPublishedLimit
	}

	filter := repository.PublishedFilter{
		AuthorID: query.AuthorID,
		Title:    strings.TrimSpace(query.Title),
		Tags:     query.Tags,
	}

	return s.blogs.ListPublished(ctx, filter, parseSort(query.SortBy), page)
}

func (s *blogService) GetPublished(ctx context.Context, id string) (*domain.Blog, error) {
	return s.blogs.GetPublishedAndIncrementReads(ctx, id)
}

func (s *blogService) ListByAuthor(ctx context.Context, authorID, state string, page, limit int) (*repository.BlogPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultAuthorLimit
	}

	return s.blogs.ListByAuthor(ctx, authorID, domain.BlogState(state), repository.Page{Number: page, Limit: limit})
}

func (s *blogService) GetOwned(ctx context.Context, id, userID string) (*domain.Blog, error) {
	blog, err := s.blogs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if blog.AuthorID != userID {
		return nil, ErrNotOwner
	}
	return blog, nil
}

func (s *blogService) Update(ctx context.Context, blog *domain.Blog, patch UpdateBlogInput) (*domain.Blog, error) {
	updated := *blog

	if patch.Title != nil && strings.TrimSpace(*patch.Title) != "" {
		updated.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil && *patch.Description != "" {
		updated.Description = *patch.Description
	}
	if patch.Tags != nil {
		updated.Tags = patch.Tags
	}
	if patch.Body != nil && *patch.Body != "" {
		updated.Body = *patch.Body
		updated.ReadingTime = EstimateReadingTime(updated.Body)
	}
	// unrecognised state values are ignored rather than rejected
	if patch.State != nil && domain.ValidState(domain.BlogState(*patch.State)) {
		updated.State = domain.BlogState(*patch.State)
	}

	if err := s.blogs.Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrTitleTaken
		}
		return nil, err
	}
	return &updated, nil
}

func (s *blogService) Delete(ctx context.Context, blog *domain.Blog) error {
	return s.blogs.Delete(ctx, blog.ID)
}

func parseSort(sortBy string) repository.Sort {
	if sortBy == "" {
		return repository.Sort{Field: "created_at", Desc: true}
	}
	field, order, _ := strings.Cut(sortBy, ":")
	return repository.Sort{
		Field: field,
		Desc:  order == "desc",
	}
}
