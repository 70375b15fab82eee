package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSCAN/hobbyist-haven-api/internal/security"
	userdomain "github.com/MrSCAN/hobbyist-haven-api/internal/user/domain"
)

// mockUserFinder implements UserFinder for tests.
type mockUserFinder struct {
	users map[string]*userdomain.User
	err   error
}

func (m *mockUserFinder) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.users[id], nil
}

func newTestTokens() *security.TokenProvider {
	return security.NewTokenProvider([]byte("test-secret"), "test-issuer", time.Hour)
}

func okHandler(t *testing.T, sawCaller *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CallerFromContext(r.Context()); ok {
			*sawCaller = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

func responseMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return body.Message
}

func TestRequireAuth_NoToken(t *testing.T) {
	tokens := newTestTokens()
	finder := &mockUserFinder{users: map[string]*userdomain.User{}}
	var sawCaller bool
	h := RequireAuth(tokens, finder)(okHandler(t, &sawCaller))

	for _, header := range []string{"", "Bearer ", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rr.Code)
		}
		if msg := responseMessage(t, rr); msg != "No token provided" {
			t.Errorf("header %q: message = %q", header, msg)
		}
	}
	if sawCaller {
		t.Error("handler must not run without a token")
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	tokens := newTestTokens()
	finder := &mockUserFinder{users: map[string]*userdomain.User{}}
	var sawCaller bool
	h := RequireAuth(tokens, finder)(okHandler(t, &sawCaller))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
	if msg := responseMessage(t, rr); msg != "Invalid token" {
		t.Errorf("message = %q, want Invalid token", msg)
	}
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	expired := security.NewTokenProvider([]byte("test-secret"), "test-issuer", -time.Minute)
	token, _, err := expired.Issue("u1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	finder := &mockUserFinder{users: map[string]*userdomain.User{}}
	var sawCaller bool
	h := RequireAuth(newTestTokens(), finder)(okHandler(t, &sawCaller))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
	if msg := responseMessage(t, rr); msg != "Token has expired" {
		t.Errorf("message = %q, want Token has expired", msg)
	}
}

func TestRequireAuth_UnknownSubject(t *testing.T) {
	tokens := newTestTokens()
	token, _, err := tokens.Issue("ghost")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	finder := &mockUserFinder{users: map[string]*userdomain.User{}}
	var sawCaller bool
	h := RequireAuth(tokens, finder)(okHandler(t, &sawCaller))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
	if msg := responseMessage(t, rr); msg != "User not found" {
		t.Errorf("message = %q, want User not found", msg)
	}
}

func TestRequireAuth_StoreFailure(t *testing.T) {
	tokens := newTestTokens()
	token, _, err := tokens.Issue("u1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	finder := &mockUserFinder{err: errors.New("connection refused")}
	var sawCaller bool
	h := RequireAuth(tokens, finder)(okHandler(t, &sawCaller))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}

func TestRequireAuth_Success(t *testing.T) {
	tokens := newTestTokens()
	token, _, err := tokens.Issue("u1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	finder := &mockUserFinder{users: map[string]*userdomain.User{
		"u1": {ID: "u1", Email: "a@x.com", Role: userdomain.RoleUser},
	}}

	var caller *userdomain.User
	h := RequireAuth(tokens, finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, _ = CallerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token) // scheme is case-insensitive
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if caller == nil || caller.ID != "u1" {
		t.Errorf("caller = %v, want u1", caller)
	}
}
