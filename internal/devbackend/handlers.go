package devbackend

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/wellness/core"
)

const (
	RefreshCookieName = "refresh_token"
	userIDKey         = "userID"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService  *AuthService
	secureCookie bool
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *AuthService, secureCookie bool) *AuthHandlers {
	return &AuthHandlers{
		authService:  authService,
		secureCookie: secureCookie,
	}
}

// Register handles account creation
func (h *AuthHandlers) Register(c *gin.Context) {
	var req core.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, pair, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Registration failed"

		if errors.Is(err, core.ErrValidation) {
			statusCode = http.StatusBadRequest
			errorMsg = err.Error()
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	h.setRefreshCookie(c, pair.Refresh)
	c.JSON(http.StatusOK, core.AuthResult{User: *user, Token: pair.Access})
}

// Login handles the login request
func (h *AuthHandlers) Login(c *gin.Context) {
	var req core.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, pair, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Authentication failed"

		if errors.Is(err, core.ErrInvalidCredentials) {
			statusCode = http.StatusUnauthorized
			errorMsg = "Invalid email/username or password"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	h.setRefreshCookie(c, pair.Refresh)
	c.JSON(http.StatusOK, core.AuthResult{User: *user, Token: pair.Access})
}

// Refresh rotates the refresh cookie and returns a new access token
func (h *AuthHandlers) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(RefreshCookieName)
	if err != nil || refreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing refresh token"})
		return
	}

	user, pair, err := h.authService.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to refresh tokens"

		switch {
		case errors.Is(err, core.ErrInvalidToken):
			statusCode = http.StatusUnauthorized
			errorMsg = "Invalid refresh token"
		case errors.Is(err, core.ErrTokenExpired):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token expired"
		case errors.Is(err, core.ErrTokenInvalidated):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token has been invalidated"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	h.setRefreshCookie(c, pair.Refresh)
	c.JSON(http.StatusOK, core.AuthResult{User: *user, Token: pair.Access})
}

// Logout revokes the refresh cookie. It succeeds without one.
func (h *AuthHandlers) Logout(c *gin.Context) {
	if refreshToken, err := c.Cookie(RefreshCookieName); err == nil && refreshToken != "" {
		if err := h.authService.Logout(c.Request.Context(), refreshToken); err != nil && !errors.Is(err, core.ErrInvalidToken) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
			return
		}
	}

	h.clearRefreshCookie(c)
	c.Status(http.StatusNoContent)
}

// Me returns the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	user, err := h.authService.User(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandlers) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookieName, token, int(h.authService.RefreshTTL().Seconds()), "/", "", h.secureCookie, true)
}

func (h *AuthHandlers) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookieName, "", -1, "/", "", h.secureCookie, true)
}

// ResourceHandlers serves the mental box, mood tracker and stress reframe
// collections of the authenticated user.
type ResourceHandlers struct {
	repo     *Repository
	reframer Reframer
}

func NewResourceHandlers(repo *Repository, reframer Reframer) *ResourceHandlers {
	return &ResourceHandlers{repo: repo, reframer: reframer}
}

func (h *ResourceHandlers) ListMentalBox(c *gin.Context) {
	c.JSON(http.StatusOK, h.repo.ListMentalBox(c.Request.Context(), c.GetString(userIDKey)))
}

func (h *ResourceHandlers) GetMentalBox(c *gin.Context) {
	entry, err := h.repo.GetMentalBox(c.Request.Context(), c.GetString(userIDKey), c.Param("id"))
	respond(c, http.StatusOK, entry, err)
}

func (h *ResourceHandlers) CreateMentalBox(c *gin.Context) {
	var req core.CreateMentalBoxRequest
	if !bind(c, &req) {
		return
	}
	entry, err := h.repo.CreateMentalBox(c.Request.Context(), c.GetString(userIDKey), req)
	respond(c, http.StatusCreated, entry, err)
}

func (h *ResourceHandlers) UpdateMentalBox(c *gin.Context) {
	var req core.UpdateMentalBoxRequest
	if !bind(c, &req) {
		return
	}
	entry, err := h.repo.UpdateMentalBox(c.Request.Context(), c.GetString(userIDKey), c.Param("id"), req)
	respond(c, http.StatusOK, entry, err)
}

func (h *ResourceHandlers) DeleteMentalBox(c *gin.Context) {
	if err := h.repo.DeleteMentalBox(c.Request.Context(), c.GetString(userIDKey), c.Param("id")); err != nil {
		respond(c, 0, nil, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ResourceHandlers) ListMoods(c *gin.Context) {
	c.JSON(http.StatusOK, h.repo.ListMoods(c.Request.Context(), c.GetString(userIDKey), 0))
}

func (h *ResourceHandlers) RecentMoods(c *gin.Context) {
	limit := core.DefaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, h.repo.ListMoods(c.Request.Context(), c.GetString(userIDKey), limit))
}

func (h *ResourceHandlers) MoodStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.repo.MoodStats(c.Request.Context(), c.GetString(userIDKey)))
}

func (h *ResourceHandlers) GetMood(c *gin.Context) {
	entry, err := h.repo.GetMood(c.Request.Context(), c.GetString(userIDKey), c.Param("id"))
	respond(c, http.StatusOK, entry, err)
}

func (h *ResourceHandlers) CreateMood(c *gin.Context) {
	var req core.CreateMoodEntryRequest
	if !bind(c, &req) {
		return
	}
	entry, err := h.repo.CreateMood(c.Request.Context(), c.GetString(userIDKey), req)
	respond(c, http.StatusCreated, entry, err)
}

func (h *ResourceHandlers) UpdateMood(c *gin.Context) {
	var req core.UpdateMoodEntryRequest
	if !bind(c, &req) {
		return
	}
	entry, err := h.repo.UpdateMood(c.Request.Context(), c.GetString(userIDKey), c.Param("id"), req)
	respond(c, http.StatusOK, entry, err)
}

func (h *ResourceHandlers) DeleteMood(c *gin.Context) {
	if err := h.repo.DeleteMood(c.Request.Context(), c.GetString(userIDKey), c.Param("id")); err != nil {
		respond(c, 0, nil, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateReframe returns the cached reframe for a mental box entry when there
// is one, and asks the reframer otherwise.
func (h *ResourceHandlers) CreateReframe(c *gin.Context) {
	var req core.CreateReframeRequest
	if !bind(c, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respond(c, 0, nil, err)
		return
	}

	ctx := c.Request.Context()
	userID := c.GetString(userIDKey)
	if req.MentalBoxID != nil {
		if cached, ok := h.repo.CachedReframe(ctx, userID, *req.MentalBoxID); ok {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	reframes, err := h.reframer.Reframe(ctx, req.OriginalThought)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate reframes"})
		return
	}

	saved := h.repo.SaveReframe(ctx, core.StressReframe{
		UserID:          userID,
		MentalBoxID:     req.MentalBoxID,
		OriginalThought: req.OriginalThought,
		StoicReframe:    reframes.Stoic,
		OptimistReframe: reframes.Optimist,
		RealistReframe:  reframes.Realist,
	})
	c.JSON(http.StatusOK, saved)
}

func (h *ResourceHandlers) ListReframes(c *gin.Context) {
	c.JSON(http.StatusOK, h.repo.ListReframes(c.Request.Context(), c.GetString(userIDKey)))
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return false
	}
	return true
}

func respond(c *gin.Context, status int, body any, err error) {
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		case errors.Is(err, core.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		}
		return
	}
	c.JSON(status, body)
}
