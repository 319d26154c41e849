package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhq/quill/internal/application"
	"github.com/quillhq/quill/internal/domain/entity"
	repo "github.com/quillhq/quill/internal/domain/repository"
	"github.com/quillhq/quill/internal/interface/middleware"
	"github.com/quillhq/quill/pkg/helpers"
	"github.com/quillhq/quill/pkg/validation"
)

// In-memory repositories with the pgx implementations' error contract.

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func (f *memUserRepo) Create(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.users {
		if o.Username == u.Username {
			return repo.ErrDuplicateUsername
		}
		if o.Email == u.Email {
			return repo.ErrDuplicateEmail
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repo.ErrNotFound
}

func (f *memUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return f.find(func(u *entity.User) bool { return u.Email == email })
}

func (f *memUserRepo) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	return f.find(func(u *entity.User) bool { return u.Username == username })
}

func (f *memUserRepo) find(match func(*entity.User) bool) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *memUserRepo) Update(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.users[u.ID]
	if !ok {
		return repo.ErrNotFound
	}
	stored.Username = u.Username
	stored.Email = u.Email
	stored.AvatarRef = u.AvatarRef
	return nil
}

func (f *memUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

type memPostRepo struct {
	mu    sync.Mutex
	posts map[string]*entity.Post
}

func (f *memPostRepo) Create(_ context.Context, p *entity.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now()
	cp := *p
	f.posts[p.ID] = &cp
	return nil
}

func (f *memPostRepo) GetByID(_ context.Context, id string) (*entity.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.posts[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, repo.ErrNotFound
}

func (f *memPostRepo) List(_ context.Context, limit, offset int) ([]*entity.Post, int, error) {
	return f.page(func(*entity.Post) bool { return true }, limit, offset)
}

func (f *memPostRepo) ListByAuthor(_ context.Context, authorID string, limit, offset int) ([]*entity.Post, int, error) {
	return f.page(func(p *entity.Post) bool { return p.AuthorID == authorID }, limit, offset)
}

func (f *memPostRepo) page(match func(*entity.Post) bool, limit, offset int) ([]*entity.Post, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*entity.Post
	for _, p := range f.posts {
		if match(p) {
			cp := *p
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *memPostRepo) Update(_ context.Context, p *entity.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.posts[p.ID]
	if !ok {
		return repo.ErrNotFound
	}
	stored.Title = p.Title
	stored.Content = p.Content
	return nil
}

func (f *memPostRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.posts, id)
	return nil
}

type memSessionStore struct {
	mu      sync.Mutex
	records map[string]string
}

func (f *memSessionStore) Set(_ context.Context, sid, uid string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[sid] = uid
	return nil
}

func (f *memSessionStore) Get(_ context.Context, sid string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if uid, ok := f.records[sid]; ok {
		return uid, nil
	}
	return "", errors.New("no session")
}

func (f *memSessionStore) Del(_ context.Context, sid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, sid)
	return nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	users := &memUserRepo{users: map[string]*entity.User{}}
	posts := &memPostRepo{posts: map[string]*entity.Post{}}
	sessions := &helpers.SessionManager{
		Secret:      []byte("test-secret"),
		SessionTTL:  12 * time.Hour,
		RememberTTL: 720 * time.Hour,
		Store:       &memSessionStore{records: map[string]string{}},
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	userSvc := &application.UserService{
		Repo:        users,
		Sessions:    sessions,
		Reset:       helpers.NewResetSigner("test-secret"),
		ResetMaxAge: 30 * time.Minute,
		Logger:      logger,
		BaseURL:     "http://localhost:8080",
	}
	postSvc := application.NewPostService(posts, users, logger)

	userHandler := NewUserHandler(userSvc, logger, "", false)
	authHandler := NewAuthHandler(userSvc, logger)
	postHandler := NewPostHandler(postSvc, logger)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/register", userHandler.Register)
	api.POST("/login", userHandler.Login)
	api.POST("/reset_password", authHandler.ResetRequest)
	api.POST("/reset_password/:token", authHandler.ResetConfirm)
	api.GET("/posts", postHandler.List)
	api.GET("/posts/:id", postHandler.Get)
	api.GET("/users/:username/posts", postHandler.UserPosts)

	auth := api.Group("/")
	auth.Use(middleware.Auth(sessions, users))
	auth.POST("/logout", userHandler.Logout)
	auth.GET("/account", userHandler.GetAccount)
	auth.PUT("/account", userHandler.UpdateAccount)
	auth.POST("/posts", postHandler.Create)
	auth.PUT("/posts/:id", postHandler.Update)
	auth.DELETE("/posts/:id", postHandler.Delete)

	return r
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   map[string]any  `json:"error"`
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, cookies []*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return w, env
}

func registerAndLogin(t *testing.T, r *gin.Engine, username, email, password string) []*http.Cookie {
	t.Helper()
	w, env := doJSON(t, r, http.MethodPost, "/api/register", gin.H{
		"username":         username,
		"email":            email,
		"password":         password,
		"confirm_password": password,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, "register: %s", w.Body.String())
	require.True(t, env.Success)

	w, _ = doJSON(t, r, http.MethodPost, "/api/login", gin.H{
		"email":    email,
		"password": password,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, "login: %s", w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "login must set the session cookie")
	return cookies
}

func createPost(t *testing.T, r *gin.Engine, cookies []*http.Cookie, title, content string) string {
	t.Helper()
	w, env := doJSON(t, r, http.MethodPost, "/api/posts", gin.H{"title": title, "content": content}, cookies)
	require.Equal(t, http.StatusCreated, w.Code, "create post: %s", w.Body.String())
	var data struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.ID)
	return data.ID
}

func TestRegisterValidation(t *testing.T) {
	r := newTestRouter(t)

	w, env := doJSON(t, r, http.MethodPost, "/api/register", gin.H{
		"username":         "a",
		"email":            "not-an-email",
		"password":         "short",
		"confirm_password": "different",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "username")
	assert.Contains(t, env.Error, "email")
	assert.Contains(t, env.Error, "password")
}

func TestRegisterDuplicateUsername(t *testing.T) {
	r := newTestRouter(t)
	registerAndLogin(t, r, "alice", "alice@example.com", "password123")

	w, env := doJSON(t, r, http.MethodPost, "/api/register", gin.H{
		"username":         "alice",
		"email":            "other@example.com",
		"password":         "password123",
		"confirm_password": "password123",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "username")
}

func TestLoginFailureIsGeneric(t *testing.T) {
	r := newTestRouter(t)
	registerAndLogin(t, r, "alice", "alice@example.com", "password123")

	w1, env1 := doJSON(t, r, http.MethodPost, "/api/login", gin.H{"email": "alice@example.com", "password": "wrong-password"}, nil)
	w2, env2 := doJSON(t, r, http.MethodPost, "/api/login", gin.H{"email": "ghost@example.com", "password": "password123"}, nil)

	assert.Equal(t, http.StatusUnauthorized, w1.Code)
	assert.Equal(t, http.StatusUnauthorized, w2.Code)
	assert.Equal(t, env1.Message, env2.Message, "wrong password and unknown email must be indistinguishable")
}

func TestLoginNextRedirectSanitized(t *testing.T) {
	r := newTestRouter(t)
	registerAndLogin(t, r, "alice", "alice@example.com", "password123")

	cases := map[string]string{
		"":                     "/",
		"/account":             "/account",
		"//evil.example":       "/",
		"https://evil.example": "/",
		"/ok\\..":              "/",
	}
	for next, want := range cases {
		w, env := doJSON(t, r, http.MethodPost, "/api/login", gin.H{
			"email":    "alice@example.com",
			"password": "password123",
			"next":     next,
		}, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, want, env.Meta["next"], "next=%q", next)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	r := newTestRouter(t)

	w, env := doJSON(t, r, http.MethodGet, "/api/account", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "authentication required", env.Message)

	// A syntactically valid token signed with the wrong key.
	forged := &http.Cookie{Name: "session_token", Value: "eyJhbGciOiJIUzI1NiJ9.e30.bad"}
	w, env = doJSON(t, r, http.MethodGet, "/api/account", nil, []*http.Cookie{forged})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid session", env.Message)
}

func TestLogoutKillsSession(t *testing.T) {
	r := newTestRouter(t)
	cookies := registerAndLogin(t, r, "alice", "alice@example.com", "password123")

	w, _ := doJSON(t, r, http.MethodGet, "/api/account", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/logout", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	// Replaying the old cookie: signature still valid, record gone.
	w, env := doJSON(t, r, http.MethodGet, "/api/account", nil, cookies)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "session expired", env.Message)
}

func TestPostLifecycle(t *testing.T) {
	r := newTestRouter(t)
	cookies := registerAndLogin(t, r, "alice", "alice@example.com", "password123")

	id := createPost(t, r, cookies, "First Post", "hello world")

	// Reading is public.
	w, env := doJSON(t, r, http.MethodGet, "/api/posts/"+id, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Title    string `json:"title"`
		AuthorID string `json:"author_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "First Post", got.Title)
	assert.NotEmpty(t, got.AuthorID)

	w, _ = doJSON(t, r, http.MethodPut, "/api/posts/"+id, gin.H{"title": "Edited", "content": "new"}, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, r, http.MethodDelete, "/api/posts/"+id, nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/api/posts/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestForeignPostMutationForbidden(t *testing.T) {
	r := newTestRouter(t)
	alice := registerAndLogin(t, r, "alice", "alice@example.com", "password123")
	bob := registerAndLogin(t, r, "bob", "bob@example.com", "password123")

	id := createPost(t, r, alice, "Alice's Post", "hers")

	w, env := doJSON(t, r, http.MethodPut, "/api/posts/"+id, gin.H{"title": "Hijacked", "content": "his"}, bob)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "you do not own this post", env.Message)

	w, env = doJSON(t, r, http.MethodDelete, "/api/posts/"+id, nil, bob)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Unknown id stays a plain 404, distinct from the 403 above.
	w, _ = doJSON(t, r, http.MethodDelete, "/api/posts/00000000-0000-0000-0000-000000000000", nil, bob)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = doJSON(t, r, http.MethodGet, "/api/posts/"+id, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Alice's Post", got.Title, "forbidden mutations must change nothing")
}

func TestPostListingPagination(t *testing.T) {
	r := newTestRouter(t)
	cookies := registerAndLogin(t, r, "alice", "alice@example.com", "password123")
	for i := 0; i < 7; i++ {
		createPost(t, r, cookies, fmt.Sprintf("Post %d", i), "content")
	}

	w, env := doJSON(t, r, http.MethodGet, "/api/posts", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 5, "default page size")
	assert.EqualValues(t, 7, env.Meta["total"])
	assert.EqualValues(t, 2, env.Meta["pages"])

	w, env = doJSON(t, r, http.MethodGet, "/api/posts?page=2", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 2)

	w, env = doJSON(t, r, http.MethodGet, "/api/users/alice/posts", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 7, env.Meta["total"])
	assert.Equal(t, "alice", env.Meta["username"])

	w, _ = doJSON(t, r, http.MethodGet, "/api/users/ghost/posts", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateAccountConflicts(t *testing.T) {
	r := newTestRouter(t)
	alice := registerAndLogin(t, r, "alice", "alice@example.com", "password123")
	registerAndLogin(t, r, "bob", "bob@example.com", "password123")

	w, env := doJSON(t, r, http.MethodPut, "/api/account", gin.H{"username": "bob"}, alice)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "username")

	w, env = doJSON(t, r, http.MethodPut, "/api/account", gin.H{"username": "alice2"}, alice)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "alice2", got.Username)
}

func TestAccountLifecycle(t *testing.T) {
	r := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/api/register", gin.H{
		"username":         "alice",
		"email":            "alice@example.com",
		"password":         "pw123456",
		"confirm_password": "pw123456",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/login", gin.H{"email": "alice@example.com", "password": "pw123456"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()

	w, env := doJSON(t, r, http.MethodGet, "/api/account", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))

	id := createPost(t, r, cookies, "Hello", "first")
	w, env = doJSON(t, r, http.MethodGet, "/api/posts/"+id, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var post struct {
		AuthorID string `json:"author_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &post))
	assert.Equal(t, me.ID, post.AuthorID)

	w, _ = doJSON(t, r, http.MethodPost, "/api/logout", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	// Mutating your own post after logout is an authentication
	// failure, not an ownership one.
	w, env = doJSON(t, r, http.MethodPut, "/api/posts/"+id, gin.H{"title": "x", "content": "y"}, cookies)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEqual(t, http.StatusForbidden, w.Code)

	w, _ = doJSON(t, r, http.MethodPut, "/api/posts/"+id, gin.H{"title": "x", "content": "y"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResetRequestIsGeneric(t *testing.T) {
	r := newTestRouter(t)
	registerAndLogin(t, r, "alice", "alice@example.com", "password123")

	w1, env1 := doJSON(t, r, http.MethodPost, "/api/reset_password", gin.H{"email": "alice@example.com"}, nil)
	w2, env2 := doJSON(t, r, http.MethodPost, "/api/reset_password", gin.H{"email": "ghost@example.com"}, nil)

	assert.Equal(t, http.StatusOK, w1.Code)
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, env1.Message, env2.Message, "reset requests must not confirm account existence")
}

func TestResetConfirmBadToken(t *testing.T) {
	r := newTestRouter(t)

	w, env := doJSON(t, r, http.MethodPost, "/api/reset_password/garbage", gin.H{
		"password":         "newpassword",
		"confirm_password": "newpassword",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "that is an invalid or expired token", env.Message)
}
