package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"blogapi/internal/domain"
	"blogapi/internal/repository"
)

const (
	authUserKey    = "auth_user"
	contextBlogKey = "blog"
)

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requireAuth extracts the bearer token, verifies it and resolves the acting
// user onto the request context.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized: no token"})
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized: no token"})
			c.Abort()
			return
		}

		userID, err := h.tokens.Verify(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized: invalid token"})
			c.Abort()
			return
		}

		user, err := h.users.GetByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized: invalid token"})
			c.Abort()
			return
		}

		c.Set(authUserKey, user)
		c.Next()
	}
}

// requireOwner loads the target blog and rejects anyone but its author. The
// loaded blog is attached to the context so handlers do not fetch it twice.
// Must run after requireAuth.
func (h *Handler) requireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized: no token"})
			c.Abort()
			return
		}

		blog, err := h.blogs.GetOwned(c.Request.Context(), c.Param("id"), user.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"message": "Blog not found"})
			} else {
				h.writeError(c, err)
			}
			c.Abort()
			return
		}

		c.Set(contextBlogKey, blog)
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	if value, ok := c.Get(authUserKey); ok {
		if user, ok := value.(*domain.User); ok {
			return user
		}
	}
	return nil
}

func contextBlog(c *gin.Context) *domain.Blog {
	if value, ok := c.Get(contextBlogKey); ok {
		if blog, ok := value.(*domain.Blog); ok {
			return blog
		}
	}
	return nil
}
