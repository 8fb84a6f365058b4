package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/essenca/essenca-gateway/internal/token"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email address already in use")
)

// RoleAdmin users are never metered; everyone else is.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// cachedUser is the redis representation; unlike User it has to round-trip
// the password hash so re-verification works on a cache hit.
type cachedUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// MarshalBinary implements encoding.BinaryMarshaler for Redis
func (c *cachedUser) MarshalBinary() ([]byte, error) {
	return json.Marshal(c)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for Redis
func (c *cachedUser) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, c)
}

type Store interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateUsername(ctx context.Context, id, username string) error
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type Middleware func(next http.Handler) http.Handler

type contextKey string

const (
	userKey      contextKey = "user"
	requestIDKey contextKey = "request_id"
)

const userCacheTTL = 5 * time.Minute

func userCacheKey(userID string) string {
	return fmt.Sprintf("auth:user:%s", userID)
}

// NewMiddleware validates the bearer session token, resolves the user it
// names (redis first, store on a miss) and attaches the user to the request
// context. Token validity is purely signature + expiry; there is no
// revocation list.
func NewMiddleware(codec *token.Codec, store Store, cache *redis.Client) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			requestID := uuid.New().String()
			ctx = context.WithValue(ctx, requestIDKey, requestID)
			w.Header().Set("X-Request-ID", requestID)

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, http.StatusUnauthorized, "no_auth_header", "Authorization header not found.")
				return
			}
			raw := strings.TrimPrefix(authHeader, "Bearer ")
			if raw == authHeader || raw == "" {
				writeAuthError(w, http.StatusUnauthorized, "bad_auth_header", "Malformed Authorization header.")
				return
			}

			claims, err := codec.Validate(raw)
			if err != nil {
				writeAuthError(w, http.StatusForbidden, "invalid_token", "The provided token is invalid or has expired.")
				return
			}

			var cached cachedUser
			err = cache.Get(ctx, userCacheKey(claims.UserID)).Scan(&cached)
			if err == nil {
				user := User(cached)
				next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userKey, &user)))
				return
			} else if err != redis.Nil {
				log.Printf("auth: redis error: %v", err)
			}

			user, err := store.GetByID(ctx, claims.UserID)
			if err != nil {
				if errors.Is(err, ErrUserNotFound) {
					writeAuthError(w, http.StatusForbidden, "invalid_token", "The provided token is invalid or has expired.")
					return
				}
				writeAuthError(w, http.StatusInternalServerError, "server_error", "Internal server error.")
				return
			}

			toCache := cachedUser(*user)
			_ = cache.Set(ctx, userCacheKey(user.ID), &toCache, userCacheTTL).Err()

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userKey, user)))
		})
	}
}

// InvalidateUser drops the cached record after a credential or profile
// change so the next request re-reads the store.
func InvalidateUser(ctx context.Context, cache *redis.Client, userID string) {
	if err := cache.Del(ctx, userCacheKey(userID)).Err(); err != nil {
		log.Printf("auth: failed to invalidate user cache: %v", err)
	}
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message})
}

// Helpers to extract from context
func GetUser(ctx context.Context) *User {
	if u, ok := ctx.Value(userKey).(*User); ok {
		return u
	}
	return nil
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// Helpers for testing
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}
