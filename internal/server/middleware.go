package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sentrilane/visitgate/internal/authctx"
	"github.com/sentrilane/visitgate/internal/observability/obscontext"
)

// AuthRequired consumes a JWT issued by the upstream auth service, via
// the session cookie or an Authorization bearer header, and installs the
// caller's principal on the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := s.authenticate(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		s.installPrincipal(c, principal)
		c.Next()
	}
}

// AuthOptional installs the principal when valid credentials are present
// and lets anonymous requests through untouched.
func (s *Server) AuthOptional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if principal, err := s.authenticate(c); err == nil {
			s.installPrincipal(c, principal)
		}
		c.Next()
	}
}

// RequireRole gates a route to the named roles. Runs after AuthRequired.
func (s *Server) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := authctx.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		role := strings.ToUpper(strings.TrimSpace(principal.Role))
		for _, allowed := range roles {
			if role == strings.ToUpper(allowed) {
				c.Next()
				return
			}
		}

		AbortWithError(c, ErrForbidden)
	}
}

func (s *Server) installPrincipal(c *gin.Context, principal authctx.Principal) {
	ctx := authctx.WithPrincipal(c.Request.Context(), principal)
	ctx = obscontext.WithActor(ctx, "user", strconv.FormatInt(principal.UserID, 10))
	c.Request = c.Request.WithContext(ctx)
}

func (s *Server) authenticate(c *gin.Context) (authctx.Principal, error) {
	raw := s.bearerToken(c)
	if raw == "" {
		return authctx.Principal{}, ErrUnauthorized
	}
	if strings.TrimSpace(s.cfg.AuthJWTSecret) == "" {
		return authctx.Principal{}, ErrUnauthorized
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.AuthJWTSecret), nil
	})
	if err != nil || !token.Valid {
		return authctx.Principal{}, ErrUnauthorized
	}

	principal := authctx.Principal{
		UserID: claimInt64(claims, "user_id"),
		EmpID:  claimInt64(claims, "emp_id"),
		Role:   strings.ToUpper(strings.TrimSpace(claimString(claims, "role"))),
		Name:   strings.TrimSpace(claimString(claims, "name")),
	}
	if principal.UserID == 0 {
		return authctx.Principal{}, ErrUnauthorized
	}

	return principal, nil
}

func (s *Server) bearerToken(c *gin.Context) string {
	if cookie, err := c.Cookie(s.cfg.AuthCookie); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}

	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func claimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

func claimInt64(claims jwt.MapClaims, key string) int64 {
	switch v := claims[key].(type) {
	case float64:
		return int64(v)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
