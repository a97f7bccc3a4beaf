package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"blogapi/internal/domain"
	"blogapi/internal/repository"
)

func newTestRepos(t *testing.T) (repository.UserRepository, repository.BlogRepository) {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := NewUserRepository(db)
	blogs := NewBlogRepository(db)
	require.NoError(t, users.Init(context.Background()))
	require.NoError(t, blogs.Init(context.Background()))

	return users, blogs
}

func seedUser(t *testing.T, users repository.UserRepository, email string) *domain.User {
	t.Helper()
	user := &domain.User{
		FirstName:    "Test",
		LastName:     "Author",
		Email:        email,
		PasswordHash: "x",
	}
	_, err := users.Create(context.Background(), user)
	require.NoError(t, err)
	return user
}

func seedBlog(t *testing.T, blogs repository.BlogRepository, authorID, title string, state domain.BlogState, tags ...string) *domain.Blog {
	t.Helper()
	if tags == nil {
		tags = []string{}
	}
	blog := &domain.Blog{
		Title:       title,
		Description: "description",
		Body:        "body text",
		Tags:        tags,
		AuthorID:    authorID,
		State:       state,
		ReadingTime: 1,
	}
	_, err := blogs.Create(context.Background(), blog)
	require.NoError(t, err)
	return blog
}

func TestCreateEnforcesUniqueTitle(t *testing.T) {
	users, blogs := newTestRepos(t)
	author := seedUser(t, users, "a@example.com")

	seedBlog(t, blogs, author.ID, "Unique Title", domain.BlogStateDraft)

	dup := &domain.Blog{
		Title: "Unique Title", Description: "d", Body: "b",
		AuthorID: author.ID, State: domain.BlogStateDraft, Tags: []string{},
	}
	_, err := blogs.Create(context.Background(), dup)
	require.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestGetByIDLoadsAuthorAndTags(t *testing.T) {
	users, blogs := newTestRepos(t)
	author := seedUser(t, users, "a@example.com")
	created := seedBlog(t, blogs, author.ID, "Tagged", domain.BlogStatePublished, "go", "sql")

	got, err := blogs.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"go", "sql"}, got.Tags)
	require.NotNil(t, got.Author)
	require.Equal(t, author.ID, got.Author.ID)
	require.Equal(t, "a@example.com", got.Author.Email)
	require.Empty(t, got.Author.PasswordHash)
}

func TestGetByIDNotFound(t *testing.T) {
	_, blogs := newTestRepos(t)

	_, err := blogs.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestIncrementReads(t *testing.T) {
	users, blogs := newTestRepos(t)
	author := seedUser(t, users, "a@example.com")
	published := seedBlog(t, blogs, author.ID, "Published", domain.BlogStatePublished)
	draft := seedBlog(t, blogs, author.ID, "Draft", domain.BlogStateDraft)

	first, err := blogs.GetPublishedAndIncrementReads(context.Background(), published.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), first.ReadCount)

	second, err := blogs.GetPublishedAndIncrementReads(context.Background(), published.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), second.ReadCount)

	// drafts are invisible to the public fetch and stay uncounted
	_, err = blogs.GetPublishedAndIncrementReads(context.Background(), draft.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	unchanged, err := blogs.GetByID(context.Background(), draft.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), unchanged.ReadCount)
}

func TestListPublishedExcludesDrafts(t *testing.T) {
	users, blogs := newTestRepos(t)
	author := seedUser(t, users, "a@example.com")
	seedBlog(t, blogs, author.ID, "Visible", domain.BlogStatePublished)
	seedBlog(t, blogs, author.ID, "Hidden", domain.BlogStateDraft)

	page, err := blogs.ListPublished(context.Background(), repository.PublishedFilter{}, repository.Sort{}, repository.Page{Number: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "Visible", page.Items[0].Title)
	require.Equal(t, int64(1), page.Count)
}

func TestListPublishedFilters(t *testing.T) {
	users, blogs := newTestRepos(t)
	alice := seedUser(t, users, "alice@example.com")
	bob := seedUser(t, users, "bob@example.com")

	seedBlog(t, blogs, alice.ID, "Go Concurrency Patterns", domain.BlogStatePublished, "go", "concurrency")
	seedBlog(t, blogs, alice.ID, "SQL Tuning", domain.BlogStatePublished, "sql")
	seedBlog(t, blogs, bob.ID, "Cooking With Gophers", domain.BlogStatePublished, "go", "food")

	byAuthor, err := blogs.ListPublished(context.Background(),
		repository.PublishedFilter{AuthorID: alice.ID}, repository.Sort{}, repository.Page{Number: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, byAuthor.Items, 2)

	byTitle, err := blogs.ListPublished(context.Background(),
		repository.PublishedFilter{Title: "concurrency"}, repository.Sort{}, repository.Page{Number: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, byTitle.Items, 1)
	require.Equal(t, "Go Concurrency Patterns", byTitle.Items[0].Title)

	byTags, err := blogs.ListPublished(context.Background(),
		repository.PublishedFilter{Tags: []string{"go", "sql"}}, repository.Sort{}, repository.Page{Number: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, byTags.Items, 3)

	byFood, err := blogs.ListPublished(context.Background(),
		repository.PublishedFilter{Tags: []string{"food"}}, repository.Sort{}, repository.Page{Number: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, byFood.Items, 1)
	require.Equal(t, "Cooking With Gophers", byFood.Items[0].Title)
}

func TestListPublishedSortWhitelist(t *testing.T) {
	users, blogs := newTestRepos(t)
	author := seedUser(t, users, "a@example.com")
	seedBlog(t, blogs, author.ID, "Banana", domain.BlogStatePublished)
	seedBlog(t, blogs, author.ID, "Apple", domain.BlogStatePublished)

	byTitle, err := blogs.ListPublished(context.Background(), repository.PublishedFilter{},
		repository.Sort{Field: "title"}, repository.Page{Number: 1, Limit: 20})
	require.NoError(t, err)
	require.Equal(t, "Apple", byTitle.Items[0].Title)
	require.Equal(t, "Banana", byTitle.Items[1].Title)

	byTitleDesc, err := blogs.ListPublished(context.Background(), repository.PublishedFilter{},
		repository.Sort{Field: "title", Desc: true}, repository.Page{Number: 1, Limit: 20})
	require.NoError(t, err)
	require.Equal(t, "Banana", byTitleDesc.Items[0].Title)

	// unknown field falls back to the default ordering without error
	_, err = blogs.ListPublished(context.Background(), repository.PublishedFilter{},
		repository.Sort{Field: "read_count; DROP TABLE blogs"}, repository.Page{Number: 1, Limit: 20})
	require.NoError(t, err)
}

func TestPaginationEnvelope(t *testing.T) {
	users, blogs := newTestRepos(t)
	author := seedUser(t, users, "a@example.com")
	for i := 0; i < 5; i++ {
		seedBlog(t, blogs, author.ID, fmt.Sprintf("Post %d", i), domain.BlogStatePublished)
	}

	page, err := blogs.ListPublished(context.Background(), repository.PublishedFilter{},
		repository.Sort{}, repository.Page{Number: 2, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 2, page.Page)
	require.Equal(t, 3, page.Pages)
	require.Equal(t, int64(5), page.Count)
	require.Len(t, page.Items, 2)

	last, err := blogs.ListPublished(context.Background(), repository.PublishedFilter{},
		repository.Sort{}, repository.Page{Number: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, last.Items, 1)

	empty, err := blogs.ListPublished(context.Background(), repository.PublishedFilter{},
		repository.Sort{}, repository.Page{Number: 4, Limit: 2})
	require.NoError(t, err)
	require.Empty(t, empty.Items)
	require.Equal(t, int64(5), empty.Count)
}

func TestUpdateReplacesTags(t *testing.T) {
	users, blogs := newTestRepos(t)
	author := seedUser(t, users, "a@example.com")
	blog := seedBlog(t, blogs, author.ID, "Retag", domain.BlogStateDraft, "old")

	blog.Tags = []string{"new", "tags"}
	blog.State = domain.BlogStatePublished
	require.NoError(t, blogs.Update(context.Background(), blog))

	got, err := blogs.GetByID(context.Background(), blog.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"new", "tags"}, got.Tags)
	require.Equal(t, domain.BlogStatePublished, got.State)
}

func TestUpdateTitleConflict(t *testing.T) {
	users, blogs := newTestRepos(t)
	author := seedUser(t, users, "a@example.com")
	seedBlog(t, blogs, author.ID, "Taken", domain.BlogStateDraft)
	blog := seedBlog(t, blogs, author.ID, "Renameable", domain.BlogStateDraft)

	blog.Title = "Taken"
	err := blogs.Update(context.Background(), blog)
	require.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestDelete(t *testing.T) {
	users, blogs := newTestRepos(t)
	author := seedUser(t, users, "a@example.com")
	blog := seedBlog(t, blogs, author.ID, "Doomed", domain.BlogStateDraft, "tag")

	require.NoError(t, blogs.Delete(context.Background(), blog.ID))

	_, err := blogs.GetByID(context.Background(), blog.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.ErrorIs(t, blogs.Delete(context.Background(), blog.ID), repository.ErrNotFound)
}

func TestListByAuthorStateFilter(t *testing.T) {
	users, blogs := newTestRepos(t)
	author := seedUser(t, users, "a@example.com")
	seedBlog(t, blogs, author.ID, "Draft One", domain.BlogStateDraft)
	seedBlog(t, blogs, author.ID, "Published One", domain.BlogStatePublished)

	all, err := blogs.ListByAuthor(context.Background(), author.ID, "", repository.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)

	published, err := blogs.ListByAuthor(context.Background(), author.ID, domain.BlogStatePublished, repository.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, published.Items, 1)
	require.Equal(t, "Published One", published.Items[0].Title)
}
