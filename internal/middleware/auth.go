package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/flicky/storefront-api/internal/dto"
	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/service"
)

const (
	principalKey     = "principal"
	accessTokenParam = "access_token"
)

// VerificationChecker reports whether a user confirmed their email.
type VerificationChecker interface {
	IsVerified(ctx context.Context, userID uuid.UUID) (bool, error)
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, dto.Response{OK: false, Message: message})
}

// Auth validates the bearer token and stores the caller's principal.
func Auth(secret string) gin.HandlerFunc {
	return authenticate(secret, bearerToken)
}

// AuthQueryToken is Auth that also takes the token from ?access_token.
// Mount it only on event streams: browsers' EventSource cannot set headers.
func AuthQueryToken(secret string) gin.HandlerFunc {
	return authenticate(secret, func(c *gin.Context) string {
		if token := bearerToken(c); token != "" {
			return token
		}
		return c.Query(accessTokenParam)
	})
}

func bearerToken(c *gin.Context) string {
	raw := c.GetHeader("Authorization")
	if !strings.HasPrefix(raw, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(raw, "Bearer ")
}

func authenticate(secret string, extract func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extract(c)
		if tokenString == "" {
			abort(c, http.StatusUnauthorized, "unauthorized")
			return
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abort(c, http.StatusUnauthorized, "invalid claims")
			return
		}

		sub, _ := claims["sub"].(string)
		userID, err := uuid.Parse(sub)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid user id")
			return
		}

		role, _ := claims["role"].(string)
		c.Set(principalKey, model.Principal{UserID: userID, Role: role})
		c.Next()
	}
}

func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !slices.Contains(roles, GetPrincipal(c).Role) {
			abort(c, http.StatusForbidden, "insufficient role")
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return RequireRole(model.RoleAdmin)
}

// RequireVerifiedEmail blocks callers whose email is not confirmed yet.
func RequireVerifiedEmail(users VerificationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		verified, err := users.IsVerified(c.Request.Context(), GetPrincipal(c).UserID)
		if errors.Is(err, service.ErrNotFound) {
			abort(c, http.StatusUnauthorized, "unknown user")
			return
		}
		if err != nil {
			c.Error(err)
			abort(c, http.StatusInternalServerError, "internal server error")
			return
		}
		if !verified {
			abort(c, http.StatusForbidden, "email not verified")
			return
		}
		c.Next()
	}
}

func GetPrincipal(c *gin.Context) model.Principal {
	v, _ := c.Get(principalKey)
	p, _ := v.(model.Principal)
	return p
}
