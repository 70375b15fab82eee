package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	identitydomain "github.com/MrSCAN/hobbyist-haven-api/internal/identity/domain"
	"github.com/MrSCAN/hobbyist-haven-api/internal/identity/service"
	projectdomain "github.com/MrSCAN/hobbyist-haven-api/internal/project/domain"
	"github.com/MrSCAN/hobbyist-haven-api/internal/security"
	userdomain "github.com/MrSCAN/hobbyist-haven-api/internal/user/domain"
	userrepo "github.com/MrSCAN/hobbyist-haven-api/internal/user/repository"
)

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*userdomain.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*userdomain.User)}
}

func (m *memUserStore) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id], nil
}

func (m *memUserStore) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUserStore) List(ctx context.Context) ([]*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*userdomain.User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memUserStore) Create(ctx context.Context, u *userdomain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; ok {
		return userrepo.ErrDuplicateID
	}
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return userrepo.ErrDuplicateEmail
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUserStore) UpdateRole(ctx context.Context, id string, role userdomain.Role) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	u.Role = role
	return u, nil
}

type memIdentityStore struct {
	mu         sync.Mutex
	identities map[string]*identitydomain.Identity
	users      *memUserStore
}

func newMemIdentityStore(users *memUserStore) *memIdentityStore {
	return &memIdentityStore{identities: make(map[string]*identitydomain.Identity), users: users}
}

func identityKey(userID string, provider identitydomain.IdentityProvider) string {
	return userID + "/" + string(provider)
}

func (m *memIdentityStore) GetByUserAndProvider(ctx context.Context, userID string, provider identitydomain.IdentityProvider) (*identitydomain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identities[identityKey(userID, provider)], nil
}

func (m *memIdentityStore) CreateUserWithIdentity(ctx context.Context, u *userdomain.User, i *identitydomain.Identity) error {
	if err := m.users.Create(ctx, u); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[identityKey(i.UserID, i.Provider)] = i
	return nil
}

type memProjectStore struct {
	mu       sync.Mutex
	projects map[string]*projectdomain.Project
}

func newMemProjectStore() *memProjectStore {
	return &memProjectStore{projects: make(map[string]*projectdomain.Project)}
}

func (m *memProjectStore) List(ctx context.Context) ([]*projectdomain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*projectdomain.Project
	for _, p := range m.projects {
		out = append(out, p)
	}
	return out, nil
}

func (m *memProjectStore) GetByID(ctx context.Context, id string) (*projectdomain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projects[id], nil
}

func (m *memProjectStore) Create(ctx context.Context, authorID string, fields *projectdomain.Fields, stages []projectdomain.StageSpec) (*projectdomain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	p := &projectdomain.Project{
		ID: uuid.New().String(), Title: fields.Title, Description: fields.Description,
		TechStack: fields.TechStack, RepoURLs: fields.RepoURLs,
		AuthorID: authorID, CreatedAt: now, UpdatedAt: now,
	}
	for _, spec := range stages {
		p.Stages = append(p.Stages, projectdomain.Stage{
			ID: uuid.New().String(), ProjectID: p.ID, Name: spec.Name,
			Description: spec.Description, Status: spec.Status, CreatedAt: now,
		})
	}
	m.projects[p.ID] = p
	return p, nil
}

func (m *memProjectStore) UpdateWithStages(ctx context.Context, id string, fields *projectdomain.Fields, stages []projectdomain.StageSpec) (*projectdomain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, nil
	}
	p.Title = fields.Title
	p.Description = fields.Description
	p.UpdatedAt = time.Now().UTC()
	p.Stages = nil
	for _, spec := range stages {
		p.Stages = append(p.Stages, projectdomain.Stage{
			ID: uuid.New().String(), ProjectID: id, Name: spec.Name,
			Description: spec.Description, Status: spec.Status, CreatedAt: p.UpdatedAt,
		})
	}
	return p, nil
}

func (m *memProjectStore) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return false, nil
	}
	delete(m.projects, id)
	return true, nil
}

type testEnv struct {
	router http.Handler
	users  *memUserStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	users := newMemUserStore()
	identities := newMemIdentityStore(users)
	hasher := security.NewHasher(4)
	tokens := security.NewTokenProvider([]byte("test-secret"), "test-issuer", time.Hour)
	auth := service.NewAuthService(users, identities, hasher, tokens)

	router := NewRouter(RouterDeps{
		Tokens:       tokens,
		Users:        users,
		Auth:         auth,
		UserStore:    users,
		ProviderSync: auth,
		ProjectStore: newMemProjectStore(),
	})
	return &testEnv{router: router, users: users}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	return payload.Message
}

func register(t *testing.T, env *testEnv, email, password, name string) (token, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"name":%q}`, email, password, name)
	rec := env.do(t, http.MethodPost, "/api/auth/register", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return resp.Token, resp.User.ID
}

func TestServer_HealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Fatalf("status field = %q", resp["status"])
	}
}

func TestServer_RegisterLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	token, _ := register(t, env, "maker@example.com", "hunter22", "Maker")

	// issued token works against a protected route
	rec := env.do(t, http.MethodGet, "/api/auth/me", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d: %s", rec.Code, rec.Body.String())
	}

	// duplicate registration
	rec = env.do(t, http.MethodPost, "/api/auth/register", "", `{"email":"maker@example.com","password":"other","name":"Other"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register status = %d", rec.Code)
	}
	if got := message(t, rec); got != "Email already registered" {
		t.Fatalf("message = %q", got)
	}

	// wrong password
	rec = env.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"maker@example.com","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", rec.Code)
	}
	if got := message(t, rec); got != "Invalid credentials" {
		t.Fatalf("message = %q", got)
	}

	// correct password
	rec = env.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"maker@example.com","password":"hunter22"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestServer_AuthLayers(t *testing.T) {
	env := newTestEnv(t)
	token, userID := register(t, env, "maker@example.com", "hunter22", "Maker")

	// no token on a protected route
	rec := env.do(t, http.MethodPost, "/api/projects/", "", `{"title":"t","description":"d"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create status = %d", rec.Code)
	}
	if got := message(t, rec); got != "No token provided" {
		t.Fatalf("message = %q", got)
	}

	// regular user on an admin route
	rec = env.do(t, http.MethodGet, "/api/users/", token, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin list status = %d", rec.Code)
	}
	if got := message(t, rec); got != "Forbidden: Admin access required" {
		t.Fatalf("message = %q", got)
	}

	// admin role is read from the store on each request, so a direct role
	// change takes effect without reissuing the token
	if _, err := env.users.UpdateRole(context.Background(), userID, userdomain.RoleAdmin); err != nil {
		t.Fatalf("promote: %v", err)
	}
	rec = env.do(t, http.MethodGet, "/api/users/", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("admin list status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestServer_ProjectLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token, userID := register(t, env, "maker@example.com", "hunter22", "Maker")

	rec := env.do(t, http.MethodPost, "/api/projects/", token,
		`{"title":"Weather Station","description":"v1","stages":[{"name":"Design","status":"COMPLETED"}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID       string `json:"id"`
		AuthorID string `json:"authorId"`
		Stages   []struct {
			ID string `json:"id"`
		} `json:"stages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.AuthorID != userID {
		t.Fatalf("authorId = %q, want %q", created.AuthorID, userID)
	}

	// public read without a token
	rec = env.do(t, http.MethodGet, "/api/projects/"+created.ID, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("public get status = %d", rec.Code)
	}

	// update replaces the stage set
	rec = env.do(t, http.MethodPut, "/api/projects/"+created.ID, token,
		`{"title":"Weather Station","description":"v2","stages":[{"name":"Rework"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	var updated struct {
		Stages []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"stages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(updated.Stages) != 1 || updated.Stages[0].Name != "Rework" {
		t.Fatalf("stages = %+v", updated.Stages)
	}
	if updated.Stages[0].ID == created.Stages[0].ID {
		t.Fatal("stage ID survived replacement")
	}

	rec = env.do(t, http.MethodDelete, "/api/projects/"+created.ID, token, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/projects/"+created.ID, "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
}

func TestServer_WebhookProvisionsUser(t *testing.T) {
	env := newTestEnv(t)

	body := `{"type":"user.created","data":{"id":"user_clerk_1","email_addresses":[{"email_address":"jane@example.com"}],"first_name":"Jane","last_name":"Doe"}}`
	rec := env.do(t, http.MethodPost, "/api/users/webhook", "", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("webhook status = %d: %s", rec.Code, rec.Body.String())
	}

	u, err := env.users.GetByID(context.Background(), "user_clerk_1")
	if err != nil || u == nil {
		t.Fatalf("provisioned user missing: %v %v", u, err)
	}
	if u.Name != "Jane Doe" {
		t.Fatalf("name = %q", u.Name)
	}

	// repeat delivery stays 200
	rec = env.do(t, http.MethodPost, "/api/users/webhook", "", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat webhook status = %d", rec.Code)
	}
}
