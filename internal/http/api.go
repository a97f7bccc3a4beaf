package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"blogapi/internal/domain"
	"blogapi/internal/repository"
	"blogapi/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users  service.UserService
	blogs  service.BlogService
	tokens *service.TokenService
	logger *logrus.Logger
}

func NewHandler(users service.UserService, blogs service.BlogService, tokens *service.TokenService, logger *logrus.Logger) *Handler {
	return &Handler{
		users:  users,
		blogs:  blogs,
		tokens: tokens,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to the Blogging API"})
	})

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		auth := api.Group("/auth")
		{
			auth.POST("/register", h.register)
			auth.POST("/login", h.login)
		}

		blogs := api.Group("/blogs")
		{
			blogs.GET("", h.listPublishedBlogs)
			// /me stays ahead of /:id so "me" never resolves as a blog id
			blogs.GET("/me", h.requireAuth(), h.listMyBlogs)
			blogs.POST("", h.requireAuth(), h.createBlog)
			blogs.GET("/:id", h.getBlog)
			blogs.PUT("/:id", h.requireAuth(), h.requireOwner(), h.updateBlog)
			blogs.DELETE("/:id", h.requireAuth(), h.requireOwner(), h.deleteBlog)
		}
	}
}

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createBlogRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Body        string   `json:"body"`
	Tags        []string `json:"tags"`
}

type updateBlogRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Body        *string  `json:"body"`
	Tags        []string `json:"tags"`
	State       *string  `json:"state"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  userToResponse(user),
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userToResponse(user),
	})
}

func (h *Handler) listPublishedBlogs(c *gin.Context) {
	query := service.PublishedQuery{
		AuthorID: c.Query("author"),
		Title:    c.Query("title"),
		SortBy:   c.Query("sortBy"),
		Page:     intQuery(c, "page", 1),
		Limit:    intQuery(c, "limit", 20),
	}
	if tags := c.Query("tags"); tags != "" {
		query.Tags = strings.Split(tags, ",")
	}

	page, err := h.blogs.ListPublished(c.Request.Context(), query)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, pageToResponse(page))
}

func (h *Handler) getBlog(c *gin.Context) {
	blog, err := h.blogs.GetPublished(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Blog not found or not published"})
			return
		}
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, blogToResponse(blog))
}

func (h *Handler) listMyBlogs(c *gin.Context) {
	user := currentUser(c)

	page, err := h.blogs.ListByAuthor(
		c.Request.Context(),
		user.ID,
		c.Query("state"),
		intQuery(c, "page", 1),
		intQuery(c, "limit", 10),
	)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, pageToResponse(page))
}

func (h *Handler) createBlog(c *gin.Context) {
	var req createBlogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	user := currentUser(c)
	blog, err := h.blogs.Create(c.Request.Context(), user.ID, service.CreateBlogInput{
		Title:       req.Title,
		Description: req.Description,
		Body:        req.Body,
		Tags:        req.Tags,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, blogToResponse(blog))
}

func (h *Handler) updateBlog(c *gin.Context) {
	var req updateBlogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	blog := contextBlog(c)
	updated, err := h.blogs.Update(c.Request.Context(), blog, service.UpdateBlogInput{
		Title:       req.Title,
		Description: req.Description,
		Body:        req.Body,
		Tags:        req.Tags,
		State:       req.State,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, blogToResponse(updated))
}

func (h *Handler) deleteBlog(c *gin.Context) {
	blog := contextBlog(c)
	if err := h.blogs.Delete(c.Request.Context(), blog); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Blog removed"})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var validationErr *service.ValidationError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"message": validationErr.Error()})
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
	case errors.Is(err, service.ErrTitleTaken):
		c.JSON(http.StatusBadRequest, gin.H{"message": "A blog with this title already exists"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
	case errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized: invalid token"})
	case errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"message": "You are not the owner of this blog"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Blog not found"})
	default:
		h.logger.Errorf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong"})
	}
}

func intQuery(c *gin.Context, key string, fallback int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

type UserResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at,omitempty"`
}

type BlogResponse struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Body        string        `json:"body"`
	Tags        []string      `json:"tags"`
	Author      *UserResponse `json:"author,omitempty"`
	AuthorID    string        `json:"author_id"`
	State       string        `json:"state"`
	ReadCount   int64         `json:"read_count"`
	ReadingTime int           `json:"reading_time"`
	CreatedAt   string        `json:"created_at"`
}

type PagedBlogsResponse struct {
	Page  int            `json:"page"`
	Pages int            `json:"pages"`
	Count int64          `json:"count"`
	Data  []BlogResponse `json:"data"`
}

func userToResponse(user *domain.User) UserResponse {
	resp := UserResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	}
	if !user.CreatedAt.IsZero() {
		resp.CreatedAt = user.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

func blogToResponse(blog *domain.Blog) BlogResponse {
	resp := BlogResponse{
		ID:          blog.ID,
		Title:       blog.Title,
		Description: blog.Description,
		Body:        blog.Body,
		Tags:        blog.Tags,
		AuthorID:    blog.AuthorID,
		State:       string(blog.State),
		ReadCount:   blog.ReadCount,
		ReadingTime: blog.ReadingTime,
		CreatedAt:   blog.CreatedAt.Format(time.RFC3339),
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if blog.Author != nil {
		author := userToResponse(blog.Author)
		resp.Author = &author
	}
	return resp
}

func pageToResponse(page *repository.BlogPage) PagedBlogsResponse {
	data := make([]BlogResponse, len(page.Items))
	for i := range page.Items {
		data[i] = blogToResponse(&page.Items[i])
	}
	return PagedBlogsResponse{
		Page:  page.Page,
		Pages: page.Pages,
		Count: page.Count,
		Data:  data,
	}
}
