package auth

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// UserKey is the gin context key holding the authenticated user ID.
const UserKey = "user_id"

var ErrInvalidToken = errors.New("invalid token")

// IssueToken signs an HS256 token identifying userID.
func IssueToken(secret, userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is empty")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken verifies token and returns the user ID it carries.
func ParseToken(secret, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// tokenFrom reads a bearer token from the Authorization header, falling
// back to the token query parameter used by websocket clients.
func tokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

// Identify resolves the current user, if any. Requests without a valid
// token continue anonymously.
func Identify(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFrom(c)
		if token == "" {
			c.Next()
			return
		}
		userID, err := ParseToken(secret, token)
		if err != nil {
			log.Printf("[AUTH] Ignoring token on %s: %v", c.Request.URL.Path, err)
			c.Next()
			return
		}
		c.Set(UserKey, userID)
		c.Next()
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the identified user ID, or "" when anonymous.
func CurrentUser(c *gin.Context) string {
	return c.GetString(UserKey)
}
