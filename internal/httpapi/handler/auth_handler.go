package handler

import (
	"errors"
	"net/http"
	"time"

	"booktracker/internal/config"
	"booktracker/internal/httpapi/dto"
	"booktracker/internal/httpapi/middleware"
	"booktracker/internal/httpapi/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	authService service.AuthService
	oauth       *service.GoogleOAuth
	cfg         *config.Config
}

func NewAuthHandler(authService service.AuthService, oauth *service.GoogleOAuth, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authService: authService, oauth: oauth, cfg: cfg}
}

func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
	rg.GET("/google", h.GoogleLogin)
	rg.GET("/google/callback", h.GoogleCallback)
	rg.GET("/logout", h.Logout)
	rg.GET("/user", h.CurrentUser)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Username, req.Password, req.Email)
	if errors.Is(err, service.ErrNameInUse) || errors.Is(err, service.ErrEmailInUse) {
		c.JSON(http.StatusConflict, gin.H{"error": "account creation failed"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create account"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_id":  user.ID,
		"username": req.Username,
		"email":    user.Email,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.setSessionCookie(c, token)
	c.JSON(http.StatusOK, user)
}

// GoogleLogin redirects to the provider's consent screen. The state nonce is
// kept in a short-lived cookie and checked on the way back.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	if h.oauth == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "google sign-in not configured"})
		return
	}
	state := uuid.New().String()
	c.SetCookie(oauthStateCookie, state, int(10*time.Minute/time.Second), "/", "", h.cfg.IsProduction(), true)
	c.Redirect(http.StatusTemporaryRedirect, h.oauth.AuthURL(state))
}

func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if h.oauth == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "google sign-in not configured"})
		return
	}

	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || c.Query("state") != state {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.cfg.IsProduction(), true)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing authorization code"})
		return
	}

	profile, err := h.oauth.Exchange(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "google sign-in failed"})
		return
	}

	token, _, err := h.authService.LoginWithGoogle(c.Request.Context(), *profile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not sign in"})
		return
	}

	h.setSessionCookie(c, token)
	c.Redirect(http.StatusFound, h.cfg.FrontendURL)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.cfg.IsProduction(), true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// CurrentUser returns the authenticated user, 401 otherwise. Registered
// outside the auth middleware so the frontend can probe session state.
func (h *AuthHandler) CurrentUser(c *gin.Context) {
	cookie, err := c.Cookie(middleware.SessionCookie)
	if err != nil || cookie == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	claims, err := h.authService.ValidateSession(cookie)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	user, err := h.authService.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	maxAge := int(h.cfg.SessionTTL / time.Second)
	c.SetCookie(middleware.SessionCookie, token, maxAge, "/", "", h.cfg.IsProduction(), true)
}
