package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"blogapi/internal/domain"
	"blogapi/internal/repository"
)

const createBlogsTables = `
CREATE TABLE IF NOT EXISTS blogs (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL,
	body TEXT NOT NULL,
	author_id TEXT NOT NULL,
	state TEXT NOT NULL DEFAULT 'draft',
	read_count INTEGER NOT NULL DEFAULT 0,
	reading_time INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	FOREIGN KEY(author_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_blogs_state ON blogs(state);
CREATE INDEX IF NOT EXISTS idx_blogs_author_id ON blogs(author_id);

CREATE TABLE IF NOT EXISTS blog_tags (
	blog_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	tag TEXT NOT NULL,
	FOREIGN KEY(blog_id) REFERENCES blogs(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_blog_tags_blog_id ON blog_tags(blog_id);
`

const blogColumns = `b.id, b.title, b.description, b.body, b.author_id, b.state, b.read_count, b.reading_time, b.created_at,
u.first_name, u.last_name, u.email`

// sortColumns whitelists the fields a caller may order a listing by.
var sortColumns = map[string]string{
	"created_at":   "b.created_at",
	"title":        "b.title",
	"read_count":   "b.read_count",
	"reading_time": "b.reading_time",
}

type BlogRepository struct {
	db *sql.DB
}

func NewBlogRepository(db *sql.DB) repository.BlogRepository {
	return &BlogRepository{db: db}
}

func (r *BlogRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createBlogsTables); err != nil {
		return fmt.Errorf("create blogs tables: %w", err)
	}
	return nil
}

func (r *BlogRepository) Create(ctx context.Context, blog *domain.Blog) (string, error) {
	if blog.ID == "" {
		blog.ID = uuid.NewString()
	}
	if blog.CreatedAt.IsZero() {
		blog.CreatedAt = time.Now().UTC()
	}
	if blog.State == "" {
		blog.State = domain.BlogStateDraft
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	_, err = tx.ExecContext(ctx, `
INSERT INTO blogs (id, title, description, body, author_id, state, read_count, reading_time, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		blog.ID,
		blog.Title,
		blog.Description,
		blog.Body,
		blog.AuthorID,
		string(blog.State),
		blog.ReadCount,
		blog.ReadingTime,
		blog.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("insert blog: %w", repository.ErrDuplicate)
		}
		return "", fmt.Errorf("insert blog: %w", err)
	}

	if err := replaceTags(ctx, tx, blog.ID, blog.Tags); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit tx: %w", err)
	}
	return blog.ID, nil
}

func (r *BlogRepository) GetByID(ctx context.Context, id string) (*domain.Blog, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+blogColumns+`
FROM blogs b
JOIN users u ON u.id = b.author_id
WHERE b.id = ?`,
		id,
	)
	blog, err := scanBlog(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadTags(ctx, blog); err != nil {
		return nil, err
	}
	return blog, nil
}

// GetPublishedAndIncrementReads bumps read_count and returns the updated row
// in one statement, so concurrent reads never lose an increment.
func (r *BlogRepository) GetPublishedAndIncrementReads(ctx context.Context, id string) (*domain.Blog, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE blogs
SET read_count = read_count + 1
WHERE id = ? AND state = ?
RETURNING id, title, description, body, author_id, state, read_count, reading_time, created_at`,
		id,
		string(domain.BlogStatePublished),
	)

	var blog domain.Blog
	var state string
	if err := row.Scan(
		&blog.ID,
		&blog.Title,
		&blog.Description,
		&blog.Body,
		&blog.AuthorID,
		&state,
		&blog.ReadCount,
		&blog.ReadingTime,
		&blog.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("increment read count: %w", err)
	}
	blog.State = domain.BlogState(state)

	author, err := r.loadAuthor(ctx, blog.AuthorID)
	if err != nil {
		return nil, err
	}
	blog.Author = author

	if err := r.loadTags(ctx, &blog); err != nil {
		return nil, err
	}
	return &blog, nil
}

func (r *BlogRepository) ListPublished(ctx context.Context, filter repository.PublishedFilter, sort repository.Sort, page repository.Page) (*repository.BlogPage, error) {
	where := []string{"b.state = ?"}
	args := []any{string(domain.BlogStatePublished)}

	if filter.AuthorID != "" {
		where = append(where, "b.author_id = ?")
		args = append(args, filter.AuthorID)
	}
	if filter.Title != "" {
		where = append(where, "instr(lower(b.title), lower(?)) > 0")
		args = append(args, filter.Title)
	}
	if len(filter.Tags) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.Tags)), ",")
		where = append(where, "EXISTS (SELECT 1 FROM blog_tags bt WHERE bt.blog_id = b.id AND bt.tag IN ("+placeholders+"))")
		for _, tag := range filter.Tags {
			args = append(args, tag)
		}
	}

	orderBy := "b.created_at DESC"
	if column, ok := sortColumns[sort.Field]; ok {
		direction := "ASC"
		if sort.Desc {
			direction = "DESC"
		}
		orderBy = column + " " + direction
	}

	return r.listPage(ctx, strings.Join(where, " AND "), args, orderBy, page)
}

func (r *BlogRepository) ListByAuthor(ctx context.Context, authorID string, state domain.BlogState, page repository.Page) (*repository.BlogPage, error) {
	where := []string{"b.author_id = ?"}
	args := []any{authorID}

	if state != "" {
		where = append(where, "b.state = ?")
		args = append(args, string(state))
	}

	return r.listPage(ctx, strings.Join(where, " AND "), args, "b.created_at DESC", page)
}

func (r *BlogRepository) listPage(ctx context.Context, where string, args []any, orderBy string, page repository.Page) (*repository.BlogPage, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM blogs b WHERE `+where, args...,
	).Scan(&count); err != nil {
		return nil, fmt.Errorf("count blogs: %w", err)
	}

	offset := (page.Number - 1) * page.Limit
	queryArgs := append(append([]any{}, args...), page.Limit, offset)

	rows, err := r.db.QueryContext(ctx, `
SELECT `+blogColumns+`
FROM blogs b
JOIN users u ON u.id = b.author_id
WHERE `+where+`
ORDER BY `+orderBy+`
LIMIT ? OFFSET ?`,
		queryArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("query blogs: %w", err)
	}
	defer rows.Close()

	var items []domain.Blog
	for rows.Next() {
		blog, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *blog)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blogs: %w", err)
	}

	for i := range items {
		if err := r.loadTags(ctx, &items[i]); err != nil {
			return nil, err
		}
	}

	pages := int((count + int64(page.Limit) - 1) / int64(page.Limit))
	return &repository.BlogPage{
		Items: items,
		Page:  page.Number,
		Pages: pages,
		Count: count,
	}, nil
}

func (r *BlogRepository) Update(ctx context.Context, blog *domain.Blog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
UPDATE blogs
SET title=?, description=?, body=?, state=?, reading_time=?
WHERE id=?`,
		blog.Title,
		blog.Description,
		blog.Body,
		string(blog.State),
		blog.ReadingTime,
		blog.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update blog: %w", repository.ErrDuplicate)
		}
		return fmt.Errorf("update blog: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update blog rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	if err := replaceTags(ctx, tx, blog.ID, blog.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *BlogRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blogs WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete blog: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete blog rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func replaceTags(ctx context.Context, tx *sql.Tx, blogID string, tags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM blog_tags WHERE blog_id=?`, blogID); err != nil {
		return fmt.Errorf("delete tags: %w", err)
	}
	for i, tag := range tags {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO blog_tags (blog_id, position, tag)
VALUES (?, ?, ?)`,
			blogID,
			i,
			tag,
		); err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
	}
	return nil
}

func (r *BlogRepository) loadAuthor(ctx context.Context, authorID string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, first_name, last_name, email
FROM users
WHERE id = ?`,
		authorID,
	)
	var author domain.User
	if err := row.Scan(&author.ID, &author.FirstName, &author.LastName, &author.Email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan author: %w", err)
	}
	return &author, nil
}

func (r *BlogRepository) loadTags(ctx context.Context, blog *domain.Blog) error {
	rows, err := r.db.QueryContext(ctx, `
SELECT tag
FROM blog_tags
WHERE blog_id=?
ORDER BY position ASC`,
		blog.ID,
	)
	if err != nil {
		return fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	blog.Tags = tags
	return rows.Err()
}

func scanBlog(row interface {
	Scan(dest ...any) error
}) (*domain.Blog, error) {
	var blog domain.Blog
	var state string
	author := &domain.User{}
	if err := row.Scan(
		&blog.ID,
		&blog.Title,
		&blog.Description,
		&blog.Body,
		&blog.AuthorID,
		&state,
		&blog.ReadCount,
		&blog.ReadingTime,
		&blog.CreatedAt,
		&author.FirstName,
		&author.LastName,
		&author.Email,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan blog: %w", err)
	}
	blog.State = domain.BlogState(state)
	author.ID = blog.AuthorID
	blog.Author = author
	return &blog, nil
}
