package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeauxdejuan/seen/forms"
	"github.com/yeauxdejuan/seen/service"
)

// UserController handles registration, login and logout requests
type UserController struct {
	users *service.UserService
}

func NewUserController(users *service.UserService) *UserController {
	return &UserController{users: users}
}

var userForm = new(forms.UserForm)

// Register handles new user registration requests, validates input and
// creates a new unverified user account
func (ctrl UserController) Register(c *gin.Context) {
	var registerForm forms.RegisterForm

	if err := c.ShouldBindJSON(&registerForm); err != nil {
		message := userForm.Register(err)
		c.AbortWithStatusJSON(http.StatusNotAcceptable, gin.H{"message": message})
		return
	}

	user, err := ctrl.users.Register(registerForm)
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"message": err.Error()})
		return
	case errors.Is(err, service.ErrPasswordMismatch):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong, please try again later"})
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login handles user authentication requests, validates credentials and
// returns a token bundle
func (ctrl UserController) Login(c *gin.Context) {
	var loginForm forms.LoginForm

	if err := c.ShouldBindJSON(&loginForm); err != nil {
		message := userForm.Login(err)
		c.AbortWithStatusJSON(http.StatusNotAcceptable, gin.H{"message": message})
		return
	}

	bundle, err := ctrl.users.Login(loginForm)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid login details"})
		return
	case errors.Is(err, service.ErrEmailNotVerified):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": err.Error()})
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong, please try again later"})
		return
	}

	c.JSON(http.StatusOK, bundle)
}

// Logout revokes the presented token
func (ctrl UserController) Logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "User not logged in"})
		return
	}

	if err := ctrl.users.Logout(header); err != nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "Please try again later"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}
