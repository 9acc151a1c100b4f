package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"quick_chat/internal/service"
	"quick_chat/pkg/logger"
)

type AuthHandler struct {
	authService service.AuthService
	log         logger.Logger
}

func NewAuthHandler(authService service.AuthService, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Bio      string `json:"bio"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid registration request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	response, err := h.authService.Register(c.Request.Context(), req.Email, req.Password, req.FullName, req.Bio)
	if err != nil {
		h.log.Warn("Registration failed", "error", err, "email", req.Email)
		respondError(c, err)
		return
	}

	h.log.Info("User registered successfully", "user_id", response.User.ID, "email", response.User.Email)
	c.JSON(http.StatusCreated, response)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid login request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	response, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.log.Warn("Login failed", "error", err, "email", req.Email)
		respondError(c, err)
		return
	}

	h.log.Info("User logged in successfully", "user_id", response.User.ID, "email", response.User.Email)
	c.JSON(http.StatusOK, response)
}
