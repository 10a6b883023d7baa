package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/teztrade/pricesync/internal/models"
)

const actorKey = "actor"

// AuthMiddleware validates JWT tokens and stores the caller as an Actor
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "Authorization header required",
				Message: "Please provide a valid authorization token",
			})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "Invalid authorization format",
				Message: "Authorization header must be in format 'Bearer <token>'",
			})
			c.Abort()
			return
		}

		tokenString := tokenParts[1]

		// Parse and validate token
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "Server not configured",
				Message: "JWT secret missing",
			})
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "Invalid token",
				Message: "The provided token is invalid or expired",
			})
			c.Abort()
			return
		}

		// The claims are read exactly once here; everything downstream
		// receives an explicit Actor instead of raw context values.
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "Invalid token",
				Message: "Token claims are malformed",
			})
			c.Abort()
			return
		}

		actor := models.Actor{}
		if id, ok := claims["user_id"].(string); ok {
			actor.UserID = id
		}
		if role, ok := claims["role"].(string); ok {
			actor.Role = role
		}
		if actor.UserID == "" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "Invalid token",
				Message: "Token does not identify a user",
			})
			c.Abort()
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// GetActor extracts the authenticated caller set by AuthMiddleware
func GetActor(c *gin.Context) (models.Actor, bool) {
	v, exists := c.Get(actorKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}

// ManagerMiddleware ensures the caller may mutate suppliers, marketplaces
// and settings
func ManagerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok || !actor.CanManage() {
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Error:   "Manager access required",
				Message: "Admin or manager role required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
