// internal/middleware/jwt.go
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gator-overflow/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Token expiration time - 24 hours
const tokenExpiration = 24 * time.Hour

// Claims represents the identity token claims. Subject carries the identity
// provider's uid.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator validates HS256 bearer tokens issued for identity-provider
// users. A nil Authenticator or one with an empty secret accepts everything.
type Authenticator struct {
	secret []byte
	issuer string
	logger *zap.Logger
}

func NewAuthenticator(secret, issuer string, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{secret: []byte(secret), issuer: issuer, logger: logger}
}

// Enabled reports whether tokens are checked at all.
func (a *Authenticator) Enabled() bool {
	return a != nil && len(a.secret) > 0
}

// GenerateToken creates a signed token for the given uid
func (a *Authenticator) GenerateToken(uid, email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    a.issuer,
			Subject:   uid,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken validates the provided token and returns its claims
func (a *Authenticator) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
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

// isMutating reports whether the request changes state
func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// AuthMiddleware requires a valid bearer token on mutating requests and
// stores the token subject in the request context. Reads pass through.
func (a *Authenticator) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() || !isMutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		// Extract Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeAuthError(w, utils.NewAppError(utils.ErrUnauthorized, "Authorization header required", nil))
			return
		}

		// Check for Bearer token format
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			writeAuthError(w, utils.NewAppError(utils.ErrUnauthorized, "Invalid authorization format", nil))
			return
		}

		claims, err := a.ValidateToken(tokenString)
		if err != nil {
			a.logger.Debug("Rejected token", zap.Error(err))
			writeAuthError(w, utils.NewAppError(utils.ErrInvalidToken, "Invalid token", nil))
			return
		}

		next.ServeHTTP(w, r.WithContext(SetUIDInContext(r.Context(), claims.Subject)))
	})
}

func writeAuthError(w http.ResponseWriter, appErr *utils.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(utils.AppErrorToHTTPStatus(appErr.Code))
	json.NewEncoder(w).Encode(map[string]string{"error": appErr.Message})
}

// Define a custom context key type to avoid collisions
type contextKey string

// UIDKey is the key used to store the authenticated uid in the context
const UIDKey contextKey = "uid"

// SetUIDInContext saves the uid in the request context
func SetUIDInContext(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, UIDKey, uid)
}

// GetUIDFromContext retrieves the authenticated uid, if any
func GetUIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(UIDKey).(string)
	return uid, ok
}
