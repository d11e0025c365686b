package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeauxdejuan/seen/service"
)

// AuthController handles token lifecycle operations
type AuthController struct {
	users *service.UserService
}

func NewAuthController(users *service.UserService) *AuthController {
	return &AuthController{users: users}
}

// Refresh rotates the refresh token presented in the Authorization
// header into a new access and refresh token pair
func (ctrl AuthController) Refresh(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Missing refresh token"})
		return
	}

	bundle, err := ctrl.users.Refresh(header)
	switch {
	case errors.Is(err, service.ErrStoreUnavailable):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "Please try again later"})
		return
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrUserNotFound):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid authorization, please login again"})
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong, please try again later"})
		return
	}

	c.JSON(http.StatusOK, bundle)
}

// VerifyEmail marks the token's subject as verified
func (ctrl AuthController) VerifyEmail(c *gin.Context) {
	tok := c.Query("token")
	if tok == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Missing verification token"})
		return
	}

	if err := ctrl.users.VerifyEmail(tok); err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid verification token"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong, please try again later"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
}
