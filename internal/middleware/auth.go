package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const operatorKey contextKey = "operator"

// Operator roles
const (
	RoleAdmin = "admin"
	RoleClerk = "clerk"
)

// OperatorClaims are the claims carried by a store operator token
type OperatorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Operator is the authenticated caller of an admin route
type Operator struct {
	ID   string
	Role string
}

// ErrNoSecret is returned when tokens are issued without a signing secret
var ErrNoSecret = errors.New("jwt secret is empty")

// IssueToken signs an HS256 operator token valid for ttl
func IssueToken(secret, operatorID, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims := OperatorClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operatorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Authenticate validates the bearer token and stores the operator in the
// request context. With an empty secret every request is rejected.
func Authenticate(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				logger.Error("Operator route called without a configured JWT secret", zap.String("path", r.URL.Path))
				RespondWithError(w, http.StatusUnauthorized, "authentication unavailable")
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("Missing authorization header")
				RespondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			scheme, tokenString, found := strings.Cut(authHeader, " ")
			if !found || scheme != "Bearer" || tokenString == "" {
				logger.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			var claims OperatorClaims
			_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				if errors.Is(err, jwt.ErrTokenExpired) {
					RespondWithError(w, http.StatusUnauthorized, "token expired")
				} else {
					RespondWithError(w, http.StatusUnauthorized, "invalid token")
				}
				return
			}

			if claims.Subject == "" || claims.Role == "" {
				logger.Debug("Token lacks subject or role")
				RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			op := Operator{ID: claims.Subject, Role: claims.Role}
			logger.Debug("Operator authenticated",
				zap.String("operator_id", op.ID),
				zap.String("role", op.Role),
			)

			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), op)))
		})
	}
}

// WithOperator returns a copy of ctx carrying op
func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorKey, op)
}

// OperatorFrom extracts the authenticated operator from ctx
func OperatorFrom(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorKey).(Operator)
	return op, ok
}
