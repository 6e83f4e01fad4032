package controller

import (
	"net/http"
	"time"

	"storefront-service/internal/dto"
	"storefront-service/internal/middleware"
	"storefront-service/internal/model"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const cookieMaxAge = 30 * 24 * time.Hour

type UserController struct {
	Auth         *service.AuthService
	Users        *service.UserService
	secureCookie bool
	logger       *zap.Logger
}

func NewUserController(auth *service.AuthService, users *service.UserService, secureCookie bool, logger *zap.Logger) *UserController {
	return &UserController{Auth: auth, Users: users, secureCookie: secureCookie, logger: logger}
}

// POST /api/auth/register
func (ctl *UserController) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := ctl.Auth.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	if !ctl.setToken(c, u) {
		return
	}
	c.JSON(http.StatusCreated, dto.NewUserResponse(u))
}

// POST /api/auth/login
func (ctl *UserController) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := ctl.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	if !ctl.setToken(c, u) {
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(u))
}

// POST /api/auth/logout
func (ctl *UserController) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", ctl.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (ctl *UserController) Profile(c *gin.Context) {
	u, err := ctl.Users.Profile(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(u))
}

func (ctl *UserController) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := ctl.Users.UpdateProfile(c.Request.Context(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(u))
}

// GET /api/users (admin)
func (ctl *UserController) List(c *gin.Context) {
	users, err := ctl.Users.List(c.Request.Context())
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	out := make([]dto.UserResponse, len(users))
	for i, u := range users {
		out[i] = dto.NewUserResponse(u)
	}
	c.JSON(http.StatusOK, out)
}

func (ctl *UserController) Get(c *gin.Context) {
	u, err := ctl.Users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(u))
}

func (ctl *UserController) Update(c *gin.Context) {
	var req dto.AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := ctl.Users.AdminUpdate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(u))
}

func (ctl *UserController) Delete(c *gin.Context) {
	if err := ctl.Users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User removed"})
}

func (ctl *UserController) setToken(c *gin.Context, u *model.User) bool {
	token, err := ctl.Auth.IssueToken(u)
	if err != nil {
		respondError(c, ctl.logger, err)
		return false
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.TokenCookie, token, int(cookieMaxAge.Seconds()), "/", "", ctl.secureCookie, true)
	return true
}

type ConfigController struct {
	PayPalClientID string
}

// GET /api/config/paypal
func (ctl *ConfigController) PayPal(c *gin.Context) {
	c.JSON(http.StatusOK, dto.PayPalConfigResponse{ClientID: ctl.PayPalClientID})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
