package webserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/felipemendesbraga/EuLevo/pkg/db"
	"github.com/felipemendesbraga/EuLevo/pkg/models"
	"github.com/felipemendesbraga/EuLevo/pkg/utils"
)

type registerRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
	Name        string `json:"name" binding:"required"`
	Phone       string `json:"phone"`
	DeviceToken string `json:"device_token"`
}

type loginRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DeviceToken string `json:"device_token"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// register creates a new user account
func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid request: "+err.Error()))
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !s.validator.ValidateEmail(req.Email) {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid email address"))
		return
	}

	repo := db.NewRepository(s.db)
	if _, err := repo.GetUserByEmail(req.Email); err == nil {
		c.JSON(http.StatusConflict, utils.NewErrorResponse("Email already registered"))
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.WithError(err).Error("Failed to check existing user")
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to create user"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.WithError(err).Error("Failed to hash password")
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to create user"))
		return
	}

	user := &models.User{
		Email:        req.Email,
		Name:         s.validator.SanitizeInput(req.Name),
		Phone:        s.validator.SanitizeInput(req.Phone),
		PasswordHash: string(hash),
		DeviceToken:  req.DeviceToken,
	}

	if err := repo.CreateUser(user); err != nil {
		s.logger.WithError(err).Error("Failed to create user")
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to create user"))
		return
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Name)
	if err != nil {
		s.logger.WithError(err).Error("Failed to generate token")
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to create user"))
		return
	}

	s.logger.LogAuth(user.ID, user.Email, "register", true)
	c.JSON(http.StatusCreated, utils.NewSuccessResponse(authResponse{Token: token, User: user}, "User created"))
}

// login authenticates a user and issues a token
func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid request: "+err.Error()))
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	repo := db.NewRepository(s.db)
	user, err := repo.GetUserByEmail(req.Email)
	if err != nil {
		s.logger.LogAuth(0, req.Email, "login", false)
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Invalid credentials"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.LogAuth(user.ID, user.Email, "login", false)
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Invalid credentials"))
		return
	}

	// Refresh the push target on every login so notifications reach the
	// device the user is actually using.
	if req.DeviceToken != "" && req.DeviceToken != user.DeviceToken {
		user.DeviceToken = req.DeviceToken
		if err := repo.UpdateUser(user); err != nil {
			s.logger.WithError(err).Warn("Failed to update device token")
		}
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Name)
	if err != nil {
		s.logger.WithError(err).Error("Failed to generate token")
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to login"))
		return
	}

	s.logger.LogAuth(user.ID, user.Email, "login", true)
	c.JSON(http.StatusOK, utils.NewSuccessResponse(authResponse{Token: token, User: user}, "Login successful"))
}

type updateProfileRequest struct {
	Name        *string `json:"name"`
	Phone       *string `json:"phone"`
	DeviceToken *string `json:"device_token"`
}

// getProfile returns the authenticated user
func (s *Server) getProfile(c *gin.Context) {
	user, err := s.getCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Authentication required"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse(user, "Profile retrieved"))
}

// updateProfile updates the authenticated user's details
func (s *Server) updateProfile(c *gin.Context) {
	user, err := s.getCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Authentication required"))
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid request: "+err.Error()))
		return
	}

	if req.Name != nil {
		user.Name = s.validator.SanitizeInput(*req.Name)
	}
	if req.Phone != nil {
		user.Phone = s.validator.SanitizeInput(*req.Phone)
	}
	if req.DeviceToken != nil {
		user.DeviceToken = *req.DeviceToken
	}

	repo := db.NewRepository(s.db)
	if err := repo.UpdateUser(user); err != nil {
		s.logger.WithError(err).Error("Failed to update profile")
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to update profile"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse(user, "Profile updated"))
}
