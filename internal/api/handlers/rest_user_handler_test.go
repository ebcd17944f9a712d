package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/api/handlers"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/api/middleware"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/apperr"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/auth"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/models"
)

func userRouter(svc *MockUserService) *gin.Engine {
	handler := handlers.NewRestUserHandler(svc, testSecret, time.Hour)
	r := newTestEngine()
	public := r.Group("/api", middleware.OptionalAuthMiddleware(testSecret))
	public.POST("/signup", handler.Signup)
	public.POST("/login", handler.Login)
	public.POST("/logout", handler.Logout)
	public.GET("/me", handler.Me)
	public.GET("/users/:id", handler.GetUserByID)
	authed := r.Group("/api", middleware.AuthMiddleware(testSecret))
	authed.DELETE("/users/:id", handler.DeleteUser)
	return r
}

func TestRestUserHandler_SignupIssuesSession(t *testing.T) {
	mockUserSvc := new(MockUserService)
	r := userRouter(mockUserSvc)

	joined := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	mockUserSvc.On("Signup", mock.Anything, "ingrid", "s3cret").Return(&models.User{ID: 21, Name: "ingrid", CreatedAt: joined}, nil)

	w := serve(t, r, http.MethodPost, "/api/signup", 0, handlers.CredentialsArgs{Name: "ingrid", Password: "s3cret"})
	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, map[string]any{"id": float64(21), "name": "ingrid", "date_joined": "2025-03-14"}, body["user"])

	claims, err := auth.ValidateJWT(body["token"].(string), testSecret)
	require.NoError(t, err)
	assert.Equal(t, int64(21), claims.UserID)

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_LoginErrors(t *testing.T) {
	mockUserSvc := new(MockUserService)
	r := userRouter(mockUserSvc)

	mockUserSvc.On("Login", mock.Anything, "nobody", "pw").Return(nil, apperr.NotFound("User not found"))
	mockUserSvc.On("Login", mock.Anything, "ingrid", "wrong").Return(nil, apperr.Authorization("Invalid credentials"))

	w := serve(t, r, http.MethodPost, "/api/login", 0, handlers.CredentialsArgs{Name: "nobody", Password: "pw"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(t, r, http.MethodPost, "/api/login", 0, handlers.CredentialsArgs{Name: "ingrid", Password: "wrong"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "token")
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_Me(t *testing.T) {
	mockUserSvc := new(MockUserService)
	r := userRouter(mockUserSvc)

	mockUserSvc.On("FindByID", mock.Anything, int64(3)).Return(&models.User{ID: 3, Name: "kari"}, nil)
	mockUserSvc.On("FindByID", mock.Anything, int64(4)).Return(nil, apperr.NotFound("User not found"))

	w := serve(t, r, http.MethodGet, "/api/me", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated": false, "user": null}`, w.Body.String())

	w = serve(t, r, http.MethodGet, "/api/me", 3, nil)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "kari", body["user"].(map[string]any)["name"])

	w = serve(t, r, http.MethodGet, "/api/me", 4, nil)
	assert.Equal(t, false, decodeBody(t, w)["authenticated"])
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_DeleteUser(t *testing.T) {
	mockUserSvc := new(MockUserService)
	r := userRouter(mockUserSvc)

	mockUserSvc.On("DeleteUser", mock.Anything, int64(5), int64(6)).Return(apperr.Authorization("Users can only delete themselves"))
	mockUserSvc.On("DeleteUser", mock.Anything, int64(6), int64(6)).Return(nil)

	w := serve(t, r, http.MethodDelete, "/api/users/6", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(t, r, http.MethodDelete, "/api/users/5", 6, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(t, r, http.MethodDelete, "/api/users/6", 6, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_GetUserByID(t *testing.T) {
	mockUserSvc := new(MockUserService)
	r := userRouter(mockUserSvc)

	mockUserSvc.On("FindByID", mock.Anything, int64(10)).Return(nil, apperr.NotFound("User not found"))

	w := serve(t, r, http.MethodGet, "/api/users/10", 0, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(t, r, http.MethodGet, "/api/users/-1", 0, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockUserSvc.AssertExpectations(t)
}
