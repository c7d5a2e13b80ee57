package server

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"fileportal/internal/blob"
	"fileportal/internal/store"
)

// memStore is an in-memory UserStore + FileStore used by handler tests.
type memStore struct {
	mu         sync.Mutex
	nextUserID int64
	nextFileID int64
	users      map[int64]*store.User
	files      map[int64]*store.File
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[int64]*store.User),
		files: make(map[int64]*store.File),
	}
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListAllUsers(_ context.Context) ([]store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	for i := range out {
		out[i].DisplayID = int64(i + 1)
	}
	return out, nil
}

func (m *memStore) CreateUser(_ context.Context, username, password, role string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return 0, store.ErrDuplicateUsername
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return 0, err
	}
	m.nextUserID++
	m.users[m.nextUserID] = &store.User{
		ID:           m.nextUserID,
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now(),
	}
	return m.nextUserID, nil
}

func (m *memStore) DeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	// Cascade, as the schema's foreign key does.
	for fid, f := range m.files {
		if f.UserID == id {
			delete(m.files, fid)
		}
	}
	return nil
}

func (m *memStore) ListFilesForUser(_ context.Context, userID int64) ([]store.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.File
	for _, f := range m.files {
		if f.UserID == userID {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) GetFileForUser(_ context.Context, userID, fileID int64) (*store.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok || f.UserID != userID {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (m *memStore) InsertFile(_ context.Context, f store.File) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextFileID++
	f.ID = m.nextFileID
	f.UploadedAt = time.Now()
	m.files[f.ID] = &f
	return f.ID, nil
}

func (m *memStore) DeleteFileRecordForUser(_ context.Context, userID, fileID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok || f.UserID != userID {
		return 0, nil
	}
	delete(m.files, fileID)
	return 1, nil
}

func (m *memStore) fileCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// memBlob is an in-memory blob.Store.
type memBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBlob() *memBlob {
	return &memBlob{objects: make(map[string][]byte)}
}

func (b *memBlob) Save(_ context.Context, name string, r io.Reader) (int64, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[name] = data
	return int64(len(data)), "mem://" + name, nil
}

func (b *memBlob) Open(_ context.Context, name string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[name]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBlob) Remove(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[name]; !ok {
		return os.ErrNotExist
	}
	delete(b.objects, name)
	return nil
}

func (b *memBlob) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

type testEnv struct {
	srv   *Server
	store *memStore
	blobs *memBlob
}

func newTestEnv(t *testing.T, maxUploadBytes int64) *testEnv {
	t.Helper()
	ms := newMemStore()
	mb := newMemBlob()
	srv := New(Config{
		Addr:           ":0",
		SessionSecret:  "test-secret",
		MaxUploadBytes: maxUploadBytes,
		Users:          ms,
		Files:          ms,
		Blobs:          mb,
		Logger:         zerolog.Nop(),
	})
	return &testEnv{srv: srv, store: ms, blobs: mb}
}

// testClient drives the routed handler while carrying cookies like a
// browser would.
type testClient struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
}

func newTestClient(t *testing.T, srv *Server) *testClient {
	t.Helper()
	return &testClient{t: t, h: srv.Handler(), cookies: make(map[string]*http.Cookie)}
}

func (c *testClient) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rr := httptest.NewRecorder()
	c.h.ServeHTTP(rr, req)
	for _, ck := range rr.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rr
}

func (c *testClient) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *testClient) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *testClient) upload(path, filename string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		c.t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		c.t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		c.t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func (c *testClient) login(username, password string) *httptest.ResponseRecorder {
	return c.postForm("/login", url.Values{
		"username": {username},
		"password": {password},
	})
}

// mustCreateUser seeds an account directly in the fake store.
func (e *testEnv) mustCreateUser(t *testing.T, username, password, role string) int64 {
	t.Helper()
	id, err := e.store.CreateUser(context.Background(), username, password, role)
	if err != nil {
		t.Fatalf("create user %q: %v", username, err)
	}
	return id
}

func wantRedirect(t *testing.T, rr *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d (body %q)", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %s, got %s", location, got)
	}
}
