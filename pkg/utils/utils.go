package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager handles JWT token operations
type JWTManager struct {
	secret     []byte
	expiration time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, expirationHours int) *JWTManager {
	return &JWTManager{
		secret:     []byte(secret),
		expiration: time.Duration(expirationHours) * time.Hour,
	}
}

// UserClaims represents JWT claims for users
type UserClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// GenerateToken generates a JWT token for a user
func (jm *JWTManager) GenerateToken(userID uint, email, name string) (string, error) {
	claims := UserClaims{
		UserID: userID,
		Email:  email,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(jm.expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "eulevo",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jm.secret)
}

// ValidateToken validates and parses a JWT token
func (jm *JWTManager) ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jm.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// Validator provides input validation functions
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateEmail validates email format
func (v *Validator) ValidateEmail(email string) bool {
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailRegex.MatchString(email)
}

// ValidatePhone validates a phone number of up to 15 digits, with optional
// leading + and separators.
func (v *Validator) ValidatePhone(phone string) bool {
	phoneRegex := regexp.MustCompile(`^\+?[0-9][0-9 ()-]{4,14}$`)
	return phoneRegex.MatchString(phone)
}

// SanitizeInput sanitizes user input
func (v *Validator) SanitizeInput(input string) string {
	// Remove null bytes and control characters
	input = strings.ReplaceAll(input, "\x00", "")
	input = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`).ReplaceAllString(input, "")

	// Trim whitespace
	return strings.TrimSpace(input)
}

// Pagination helps with paginating results
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination creates a new pagination instance
func NewPagination(page, limit, totalCount int) *Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	totalPages := (totalCount + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	return &Pagination{
		Page:       page,
		Limit:      limit,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}

// GetOffset returns the offset for database queries
func (p *Pagination) GetOffset() int {
	return (p.Page - 1) * p.Limit
}

// Response helpers
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// NewSuccessResponse creates a success API response
func NewSuccessResponse(data interface{}, message string) *APIResponse {
	return &APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// NewPagedResponse creates a success API response carrying pagination metadata
func NewPagedResponse(data interface{}, message string, pagination *Pagination) *APIResponse {
	return &APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    pagination,
	}
}

// NewErrorResponse creates an error API response
func NewErrorResponse(error string) *APIResponse {
	return &APIResponse{
		Success: false,
		Error:   error,
	}
}

// NewKindedErrorResponse creates an error API response carrying the error kind
func NewKindedErrorResponse(kind, error string) *APIResponse {
	return &APIResponse{
		Success: false,
		Error:   error,
		Kind:    kind,
	}
}
