package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the authenticated facts handlers rely on.
type Claims struct {
	UserID      string
	AccountType string
}

// TokenValidator validates a bearer token and extracts its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// JWTValidator validates HMAC-signed JWTs issued by the staff identity
// provider.
type JWTValidator struct {
	signingKey []byte
}

func NewJWTValidator(signingKey string) *JWTValidator {
	return &JWTValidator{signingKey: []byte(signingKey)}
}

func (v *JWTValidator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("token missing subject")
	}
	accountType, _ := claims["account_type"].(string)
	return &Claims{UserID: sub, AccountType: accountType}, nil
}

type contextKeyUserID struct{}
type contextKeyAccountType struct{}

var (
	ContextKeyUserID      = contextKeyUserID{}
	ContextKeyAccountType = contextKeyAccountType{}
)

// GetUserID retrieves the authenticated user ID from the context.
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(ContextKeyUserID).(string)
	if !ok {
		return ""
	}
	return userID
}

// GetAccountType retrieves the authenticated account type from the context.
func GetAccountType(ctx context.Context) string {
	accountType, ok := ctx.Value(ContextKeyAccountType).(string)
	if !ok {
		return ""
	}
	return accountType
}

// RequireAuth rejects requests without a valid bearer token and stores the
// claims in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				if logger != nil {
					logger.WarnContext(ctx, "unauthorized access - missing token",
						"request_id", GetRequestID(ctx))
				}
				unauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				if logger != nil {
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"error", err,
						"request_id", GetRequestID(ctx))
				}
				unauthorized(w)
				return
			}

			ctx = context.WithValue(ctx, ContextKeyUserID, claims.UserID)
			ctx = context.WithValue(ctx, ContextKeyAccountType, claims.AccountType)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}
