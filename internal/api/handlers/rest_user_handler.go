package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/api/middleware"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/auth"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/models"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/services"
)

// RestUserHandler handles REST requests related to users and sessions.
type RestUserHandler struct {
	userService services.IUserService
	jwtSecret   string
	jwtTTL      time.Duration
}

// NewRestUserHandler creates a new RestUserHandler.
func NewRestUserHandler(userService services.IUserService, jwtSecret string, jwtTTL time.Duration) *RestUserHandler {
	return &RestUserHandler{
		userService: userService,
		jwtSecret:   jwtSecret,
		jwtTTL:      jwtTTL,
	}
}

// CredentialsArgs is the body of signup and login requests.
type CredentialsArgs struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// PublicUser represents the data returned for a user profile.
type PublicUser struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	DateJoined string `json:"date_joined"`
}

func newPublicUser(u *models.User) PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, DateJoined: u.CreatedAt.Format("2006-01-02")}
}

// Signup handles POST /api/signup
func (h *RestUserHandler) Signup(c *gin.Context) {
	h.authenticate(c, h.userService.Signup, http.StatusCreated)
}

// Login handles POST /api/login
func (h *RestUserHandler) Login(c *gin.Context) {
	h.authenticate(c, h.userService.Login, http.StatusOK)
}

func (h *RestUserHandler) authenticate(c *gin.Context, fn func(ctx context.Context, name, password string) (*models.User, error), status int) {
	var args CredentialsArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		respondValidation(c, "Invalid request body")
		return
	}

	user, err := fn(c.Request.Context(), args.Name, args.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Name, h.jwtSecret, h.jwtTTL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, int(h.jwtTTL.Seconds()), "/", "", false, true)

	log.Printf("Session issued for user %d", user.ID)
	c.JSON(status, gin.H{
		"ok":    true,
		"user":  newPublicUser(user),
		"token": token,
	})
}

// Logout handles POST /api/logout
func (h *RestUserHandler) Logout(c *gin.Context) {
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me handles GET /api/me. Anonymous callers get authenticated=false rather than an error.
func (h *RestUserHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserIDFrom(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false, "user": nil})
		return
	}

	user, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		// A token can outlive its user.
		c.JSON(http.StatusOK, gin.H{"authenticated": false, "user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": newPublicUser(user)})
}

// GetUserByID handles GET /api/users/:id
func (h *RestUserHandler) GetUserByID(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPublicUser(user))
}

// DeleteUser handles DELETE /api/users/:id. Users may only delete themselves.
func (h *RestUserHandler) DeleteUser(c *gin.Context) {
	actorID, ok := sessionUser(c)
	if !ok {
		return
	}
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), userID, actorID); err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
