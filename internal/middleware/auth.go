package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/mindcare-tw/mindcare-backend/internal/audit"
	"github.com/mindcare-tw/mindcare-backend/pkg/api"
	"go.uber.org/zap"
)

// RoleStaff grants access to the staff workflow
const RoleStaff = "staff"

var (
	// ErrUnauthenticated means no valid bearer token was presented
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the token lacks the required role
	ErrForbidden = errors.New("insufficient role")
)

type claimsKey struct{}

// Claims are the bearer-token claims issued by the identity provider
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens
type Authenticator struct {
	secret []byte
	issuer string
}

// NewAuthenticator creates an Authenticator. An empty issuer skips the iss check.
func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// Parse validates a raw token and returns its claims
func (a *Authenticator) Parse(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// WithClaims stores verified claims on a context
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFrom returns the verified claims of the request, if any
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// Authorize checks that the request carries a token with one of the roles
func Authorize(ctx context.Context, roles []string) error {
	claims, ok := ClaimsFrom(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if len(roles) == 0 {
		return nil
	}
	for _, r := range roles {
		if claims.Role == r {
			return nil
		}
	}
	return ErrForbidden
}

// AuthMiddleware attaches verified claims when an Authorization header is
// present. Requests without a token continue anonymously; a bad token is
// rejected. The audit actor is set either way.
func AuthMiddleware(auth *Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := audit.Actor{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}
		ctx := c.Request.Context()

		if header := c.GetHeader("Authorization"); header != "" {
			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found {
				abortUnauthorized(c, "Authorization header must use the Bearer scheme")
				return
			}

			claims, err := auth.Parse(strings.TrimSpace(raw))
			if err != nil {
				logger.Warn("rejected bearer token",
					zap.Error(err),
					zap.String("path", c.Request.URL.Path),
					zap.String("ip", c.ClientIP()),
				)
				abortUnauthorized(c, "Invalid or expired token")
				return
			}

			c.Set("user_id", claims.Subject)
			c.Set("role", claims.Role)
			actor.UserID = claims.Subject
			ctx = WithClaims(ctx, claims)
		}

		c.Request = c.Request.WithContext(audit.WithActor(ctx, actor))
		c.Next()
	}
}

// RequireRole aborts requests whose token lacks one of the roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch err := Authorize(c.Request.Context(), roles); {
		case errors.Is(err, ErrUnauthenticated):
			abortUnauthorized(c, "Authentication required")
		case errors.Is(err, ErrForbidden):
			c.AbortWithStatusJSON(http.StatusForbidden, api.ErrorResponse{
				Code:    api.ErrorCodeAuthorization,
				Message: "Staff access required",
			})
		default:
			c.Next()
		}
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", `Bearer realm="mindcare"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResponse{
		Code:    api.ErrorCodeUnauthorized,
		Message: message,
	})
}
