package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chepyr/study-planner/internal/auth"
	"github.com/chepyr/study-planner/internal/db"
	"github.com/chepyr/study-planner/internal/models"
	"github.com/chepyr/study-planner/internal/planner"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

var testSecret = strings.Repeat("a", 32)

// MockUserRepository lets the auth handlers run without a database.
type MockUserRepository struct {
	users     map[string]*models.User
	createErr error
	getErr    error
	mutex     sync.Mutex
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*models.User)}
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.users[user.Email]; exists {
		return db.ErrDuplicateEmail
	}
	m.users[user.Email] = user
	return nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	user, exists := m.users[email]
	if !exists {
		return nil, db.ErrNotFound
	}
	return user, nil
}

func SetupMockUser(t *testing.T, email, password string) *MockUserRepository {
	t.Helper()
	repo := NewMockUserRepository()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo.users[email] = &models.User{
		ID:           uuid.New(),
		Name:         "Student",
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	return repo
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type testServer struct {
	h     *Handler
	mux   http.Handler
	store *db.Store
}

func setupHTTP(t *testing.T) *testServer {
	t.Helper()

	conn, err := db.Connect("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := db.NewStore(conn)
	t.Cleanup(func() { store.Close() })

	log := quietLogger()
	hub := NewWSHub(nil, log)
	limiter := NewRateLimiter(100, time.Minute)
	t.Cleanup(limiter.Stop)

	h := &Handler{
		Planner: planner.NewService(planner.Deps{
			Tasks:    store.Tasks,
			Users:    store.Users,
			Tx:       store,
			Notifier: hub,
			Log:      log,
		}),
		UserRepo:    store.Users,
		Tokens:      auth.NewTokenManager(testSecret, time.Hour),
		RateLimiter: limiter,
		WSHub:       hub,
		Log:         log,
	}
	return &testServer{h: h, mux: h.CORS(h.Routes()), store: store}
}

// user inserts a user and returns it with a bearer header for it.
func (s *testServer) user(t *testing.T, email string) (*models.User, string) {
	t.Helper()
	now := time.Now().UTC()
	u := &models.User{
		ID: uuid.New(), Name: "Student", Email: email, PasswordHash: "h",
		Achievements: models.StringList{}, CreatedAt: now, UpdatedAt: now,
	}
	if err := s.store.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return u, bearerForUser(t, u.ID)
}

func bearerForUser(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := auth.NewTokenManager(testSecret, time.Hour).Generate(userID)
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return "Bearer " + token
}

func (s *testServer) do(t *testing.T, method, path, authz string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewBuffer(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorResponse](t, rec).Error
}

// doRaw sends body as is with the given content type and extra header pairs.
func (s *testServer) doRaw(t *testing.T, method, path, authz, contentType string, body io.Reader, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}
