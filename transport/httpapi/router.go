// Package httpapi wires the REST surface of the relay: account
// endpoints and the WebSocket upgrade route.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-relay/auth"
	relayerrors "chat-relay/errors"
	"chat-relay/services"
)

type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// NewRouter builds the gin engine. The WebSocket handler is mounted as
// a plain http.Handler: session authentication happens inside it, once,
// before registry admission.
func NewRouter(log *slog.Logger, authService services.IAuthService, wsHandler http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log), cors())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/auth")
	{
		api.POST("/signup", signup(log, authService))
		api.POST("/login", login(log, authService))
		api.GET("/verify", requireToken(), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"valid": true})
		})
		api.GET("/me", requireToken(), me())
	}

	router.GET("/ws", gin.WrapH(wsHandler))
	return router
}

func signup(log *slog.Logger, authService services.IAuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req signupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}

		token, user, err := authService.Register(req.Username, req.Email, req.Password)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, relayerrors.ErrUserAlreadyExists):
				status = http.StatusConflict
			case errors.Is(err, relayerrors.ErrInvalidRegistration),
				errors.Is(err, relayerrors.ErrInvalidPassword):
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"message": err.Error()})
			return
		}

		log.Info("User registered", "user_id", user.ID)
		c.JSON(http.StatusCreated, sessionResponse{
			Token: string(token),
			User:  userResponse{ID: user.ID, Username: user.Username},
		})
	}
}

func login(log *slog.Logger, authService services.IAuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}

		token, user, err := authService.Login(req.Email, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
			return
		}

		log.Info("User logged in", "user_id", user.ID)
		c.JSON(http.StatusOK, sessionResponse{
			Token: string(token),
			User:  userResponse{ID: user.ID, Username: user.Username},
		})
	}
}

func me() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := c.MustGet(claimsKey).(*auth.CustomClaims)
		c.JSON(http.StatusOK, userResponse{ID: claims.UserID, Username: claims.Username})
	}
}
