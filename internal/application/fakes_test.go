package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quillhq/quill/internal/domain/entity"
	repo "github.com/quillhq/quill/internal/domain/repository"
)

var errNoSession = errors.New("session not found")

// fakeUserRepo is an in-memory UserRepository with the same error
// contract as the pgx implementation.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*entity.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.users {
		if other.Username == u.Username {
			return repo.ErrDuplicateUsername
		}
		if other.Email == u.Email {
			return repo.ErrDuplicateEmail
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return f.find(func(u *entity.User) bool { return u.Email == email })
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	return f.find(func(u *entity.User) bool { return u.Username == username })
}

func (f *fakeUserRepo) find(match func(*entity.User) bool) (*entity.User, error) {
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

func (f *fakeUserRepo) Update(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.users[u.ID]
	if !ok {
		return repo.ErrNotFound
	}
	for id, other := range f.users {
		if id == u.ID {
			continue
		}
		if other.Username == u.Username {
			return repo.ErrDuplicateUsername
		}
		if other.Email == u.Email {
			return repo.ErrDuplicateEmail
		}
	}
	stored.Username = u.Username
	stored.Email = u.Email
	stored.AvatarRef = u.AvatarRef
	stored.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

// fakePostRepo is an in-memory PostRepository, newest-first like the
// real queries.
type fakePostRepo struct {
	mu    sync.Mutex
	posts map[string]*entity.Post
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: map[string]*entity.Post{}}
}

func (f *fakePostRepo) Create(_ context.Context, p *entity.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	cp := *p
	f.posts[p.ID] = &cp
	return nil
}

func (f *fakePostRepo) GetByID(_ context.Context, id string) (*entity.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePostRepo) List(_ context.Context, limit, offset int) ([]*entity.Post, int, error) {
	return f.page(func(*entity.Post) bool { return true }, limit, offset)
}

func (f *fakePostRepo) ListByAuthor(_ context.Context, authorID string, limit, offset int) ([]*entity.Post, int, error) {
	return f.page(func(p *entity.Post) bool { return p.AuthorID == authorID }, limit, offset)
}

func (f *fakePostRepo) page(match func(*entity.Post) bool, limit, offset int) ([]*entity.Post, int, error) {
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

func (f *fakePostRepo) Update(_ context.Context, p *entity.Post) error {
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

func (f *fakePostRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.posts, id)
	return nil
}

// fakeSessionStore backs the session manager without redis.
type fakeSessionStore struct {
	mu      sync.Mutex
	records map[string]string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{records: map[string]string{}}
}

func (f *fakeSessionStore) Set(_ context.Context, sid, userID string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[sid] = userID
	return nil
}

func (f *fakeSessionStore) Get(_ context.Context, sid string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, ok := f.records[sid]
	if !ok {
		return "", errNoSession
	}
	return uid, nil
}

func (f *fakeSessionStore) Del(_ context.Context, sid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, sid)
	return nil
}

// fakeMailQueue captures every published job.
type fakeMailQueue struct {
	mu   sync.Mutex
	jobs []any
}

func (f *fakeMailQueue) PublishJSON(_ context.Context, body any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, body)
	return nil
}

func (f *fakeMailQueue) last() (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.jobs) == 0 {
		return nil, false
	}
	return f.jobs[len(f.jobs)-1], true
}
