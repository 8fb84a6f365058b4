package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/essenca/essenca-gateway/internal/token"
)

type mockStore struct {
	getByIDFunc func(ctx context.Context, id string) (*User, error)
}

func (m *mockStore) Create(ctx context.Context, user *User) error { return nil }

func (m *mockStore) GetByID(ctx context.Context, id string) (*User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, ErrUserNotFound
}

func (m *mockStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	return nil, ErrUserNotFound
}

func (m *mockStore) UpdatePassword(ctx context.Context, id, passwordHash string) error { return nil }
func (m *mockStore) UpdateUsername(ctx context.Context, id, username string) error     { return nil }

// offlineCache always misses; lookups fall through to the store.
func offlineCache() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if hash == "s3cret" {
		t.Error("Expected hash to differ from the plaintext")
	}
	if !CheckPassword(hash, "s3cret") {
		t.Error("Expected correct password to verify")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("Expected wrong password to fail")
	}
}

func middlewareFixture(store Store) (http.Handler, **User) {
	codec := token.NewCodec("test-secret")
	var seen *User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUser(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return NewMiddleware(codec, store, offlineCache())(next), &seen
}

func TestMiddleware_MissingHeader(t *testing.T) {
	h, _ := middlewareFixture(&mockStore{})

	req := httptest.NewRequest("GET", "/v1/balance", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["code"] != "no_auth_header" {
		t.Errorf("Expected no_auth_header, got %v", resp["code"])
	}
}

func TestMiddleware_MalformedHeader(t *testing.T) {
	h, _ := middlewareFixture(&mockStore{})

	for _, header := range []string{"Basic abc123", "Bearer "} {
		req := httptest.NewRequest("GET", "/v1/balance", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("Header %q: expected 401, got %d", header, w.Code)
		}
		var resp map[string]string
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp["code"] != "bad_auth_header" {
			t.Errorf("Header %q: expected bad_auth_header, got %v", header, resp["code"])
		}
	}
}

func TestMiddleware_InvalidToken(t *testing.T) {
	h, _ := middlewareFixture(&mockStore{})

	req := httptest.NewRequest("GET", "/v1/balance", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", w.Code)
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["code"] != "invalid_token" {
		t.Errorf("Expected invalid_token, got %v", resp["code"])
	}
}

func TestMiddleware_ValidToken(t *testing.T) {
	store := &mockStore{
		getByIDFunc: func(ctx context.Context, id string) (*User, error) {
			if id != "user-1" {
				return nil, ErrUserNotFound
			}
			return &User{ID: "user-1", Username: "alice", Role: RoleUser}, nil
		},
	}
	h, seen := middlewareFixture(store)

	signed, err := token.NewCodec("test-secret").Issue("user-1")
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	req := httptest.NewRequest("GET", "/v1/balance", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if *seen == nil || (*seen).ID != "user-1" {
		t.Errorf("Expected user-1 in context, got %+v", *seen)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header to be set")
	}
}

func TestMiddleware_UnknownUser(t *testing.T) {
	h, _ := middlewareFixture(&mockStore{})

	signed, _ := token.NewCodec("test-secret").Issue("ghost")
	req := httptest.NewRequest("GET", "/v1/balance", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", w.Code)
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["code"] != "invalid_token" {
		t.Errorf("Expected invalid_token, got %v", resp["code"])
	}
}
