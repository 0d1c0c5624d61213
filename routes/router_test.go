package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kamtour/tourism/config"
	"github.com/kamtour/tourism/dbtest"
	"github.com/kamtour/tourism/models"
	"github.com/kamtour/tourism/utils"
)

type sentMail struct {
	To, Subject, Body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testApp struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	mailer *fakeMailer
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	root := filepath.Join(t.TempDir(), "public")
	config.Use(config.AppConfig{
		JWTSecret:          "router-test-secret",
		GinMode:            "test",
		AdminEmails:        []string{"admin@example.com"},
		ContactTo:          "inbox@example.com",
		StorageRoot:        root,
		MaxImageKB:         16,
		RateLimitPerMinute: 600,
	})
	db := dbtest.NewDB(t)
	store, err := utils.NewLocalStore(root, "/storage")
	require.NoError(t, err)
	mailer := &fakeMailer{}
	return &testApp{t: t, db: db, router: SetupRouter(db, store, mailer), mailer: mailer}
}

func (a *testApp) do(req *http.Request, token string) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (a *testApp) json(method, path string, body interface{}, token string) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, token)
}

func (a *testApp) multipart(method, path string, fields map[string]string, image []byte, token string) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "photo.png")
		require.NoError(a.t, err)
		_, err = fw.Write(image)
		require.NoError(a.t, err)
	}
	require.NoError(a.t, mw.Close())
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(req, token)
}

func (a *testApp) register(name, email string) (string, uint) {
	a.t.Helper()
	w, env := a.json(http.MethodPost, "/api/v1/auth/register", gin.H{
		"name": name, "email": email, "password": "secret-pass", "password_confirmation": "secret-pass",
	}, "")
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var data struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &data))
	return data.Token, data.User.ID
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	w, env := app.json(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.Code)
	assert.NotEmpty(t, w.Header().Get(utils.RequestIDHeader))
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)
	w, env := app.json(http.MethodPost, "/api/v1/auth/register", gin.H{"name": "x", "email": "nope", "password": "short"}, "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	data := decode[struct {
		Errors map[string]string `json:"errors"`
	}](t, env.Data)
	assert.Contains(t, data.Errors, "email")
	assert.Contains(t, data.Errors, "password")
	assert.Contains(t, data.Errors, "password_confirmation")

	app.register("alice", "alice@example.com")
	w, _ = app.json(http.MethodPost, "/api/v1/auth/register", gin.H{
		"name": "alice2", "email": "ALICE@example.com", "password": "secret-pass", "password_confirmation": "secret-pass",
	}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestLoginLogout(t *testing.T) {
	app := newTestApp(t)
	app.register("alice", "alice@example.com")

	w, _ := app.json(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "alice@example.com", "password": "wrong-pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := app.json(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "alice@example.com", "password": "secret-pass"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[struct {
		Token string `json:"token"`
	}](t, env.Data).Token

	w, env = app.json(http.MethodGet, "/api/v1/auth/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}](t, env.Data)
	assert.Equal(t, "alice@example.com", me.Email)
	assert.Equal(t, models.RoleUser, me.Role)

	w, _ = app.json(http.MethodPost, "/api/v1/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = app.json(http.MethodGet, "/api/v1/auth/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesAreGated(t *testing.T) {
	app := newTestApp(t)
	adminToken, _ := app.register("admin", "admin@example.com")
	userToken, _ := app.register("reader", "reader@example.com")

	w, _ := app.json(http.MethodGet, "/api/v1/admin/dashboard", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = app.json(http.MethodGet, "/api/v1/admin/dashboard", nil, userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = app.multipart(http.MethodPost, "/api/v1/admin/posts", map[string]string{"title": "x"}, nil, userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := app.json(http.MethodGet, "/api/v1/admin/dashboard", nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	dash := decode[struct {
		Counts map[string]int64 `json:"counts"`
	}](t, env.Data)
	assert.EqualValues(t, 2, dash.Counts["users"])

	w, env = app.json(http.MethodGet, "/api/v1/admin/users", nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	users := decode[struct {
		Total int64 `json:"total"`
	}](t, env.Data)
	assert.EqualValues(t, 2, users.Total)
}

func TestAdminPostLifecycle(t *testing.T) {
	app := newTestApp(t)
	adminToken, _ := app.register("admin", "admin@example.com")
	aliceToken, _ := app.register("alice", "alice@example.com")
	bobToken, _ := app.register("bob", "bob@example.com")

	w, env := app.json(http.MethodPost, "/api/v1/admin/categories", gin.H{"name": "Temple"}, adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cat := decode[struct {
		Category struct {
			ID uint `json:"id"`
		} `json:"category"`
	}](t, env.Data).Category

	w, env = app.multipart(http.MethodPost, "/api/v1/admin/posts", map[string]string{
		"title":        "Angkor Wat",
		"content":      "<p>Sunrise over the moat.</p>",
		"category_id":  fmt.Sprint(cat.ID),
		"published_at": time.Now().UTC().Add(-time.Hour).Format(time.RFC3339),
	}, pngBytes, adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	type postView struct {
		ID            uint    `json:"id"`
		Slug          string  `json:"slug"`
		ImageURL      *string `json:"image_url"`
		CommentsCount int64   `json:"comments_count"`
		Comments      []struct {
			ID   uint `json:"id"`
			User struct {
				Name string `json:"name"`
			} `json:"user"`
		} `json:"comments"`
	}
	post := decode[struct {
		Post postView `json:"post"`
	}](t, env.Data).Post
	assert.Equal(t, "angkor-wat", post.Slug)
	require.NotNil(t, post.ImageURL)
	assert.True(t, strings.HasPrefix(*post.ImageURL, fmt.Sprintf("/storage/posts/%d/", post.ID)))

	w, _ = app.do(httptest.NewRequest(http.MethodGet, *post.ImageURL, nil), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = app.multipart(http.MethodPost, "/api/v1/admin/posts", map[string]string{
		"title": "Angkor Wat", "content": "again", "category_id": fmt.Sprint(cat.ID),
	}, nil, adminToken)
	require.Equal(t, http.StatusCreated, w.Code)

	w, env = app.multipart(http.MethodPost, "/api/v1/admin/posts", map[string]string{
		"title": "Bad", "content": "x", "category_id": "999", "published_at": "soon",
	}, nil, adminToken)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	errs := decode[struct {
		Errors map[string]string `json:"errors"`
	}](t, env.Data).Errors
	assert.Contains(t, errs, "published_at")

	path := fmt.Sprintf("/api/v1/user/posts/%d/comments", post.ID)
	w, env = app.json(http.MethodPost, path, gin.H{"content": "Breathtaking"}, aliceToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	comment := decode[struct {
		Comment struct {
			ID uint `json:"id"`
		} `json:"comment"`
	}](t, env.Data).Comment

	w, _ = app.json(http.MethodPost, path, gin.H{"content": "anonymous"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = app.json(http.MethodPost, path, gin.H{"content": strings.Repeat("a", 1001)}, aliceToken)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, env = app.json(http.MethodGet, "/api/v1/user/posts/angkor-wat", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[struct {
		Post postView `json:"post"`
	}](t, env.Data).Post
	assert.EqualValues(t, 1, detail.CommentsCount)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "alice", detail.Comments[0].User.Name)

	w, _ = app.json(http.MethodDelete, fmt.Sprintf("%s/%d", path, comment.ID), nil, bobToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = app.json(http.MethodDelete, fmt.Sprintf("%s/%d", path, comment.ID), nil, aliceToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = app.json(http.MethodDelete, fmt.Sprintf("/api/v1/admin/categories/%d", cat.ID), nil, adminToken)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = app.json(http.MethodDelete, fmt.Sprintf("/api/v1/admin/posts/%d", post.ID), nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = app.do(httptest.NewRequest(http.MethodGet, *post.ImageURL, nil), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = app.json(http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", post.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDraftsAreHiddenFromReaders(t *testing.T) {
	app := newTestApp(t)
	cat := dbtest.Category(t, app.db, "Lake")
	draft := dbtest.Post(t, app.db, models.Post{Title: "Draft", Slug: "draft", CategoryID: cat.ID})

	w, _ := app.json(http.MethodGet, "/api/v1/user/posts/draft", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	adminToken, _ := app.register("admin", "admin@example.com")
	w, _ = app.json(http.MethodGet, fmt.Sprintf("/api/v1/admin/posts/%d", draft.ID), nil, adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGridPayload(t *testing.T) {
	app := newTestApp(t)
	cat := dbtest.Category(t, app.db, "Temple")
	dbtest.Province(t, app.db, "Siem Reap", "សៀមរាប")
	for i := 0; i < 10; i++ {
		dbtest.Post(t, app.db, models.Post{Title: fmt.Sprintf("wat %d", i), CategoryID: cat.ID, PublishedAt: dbtest.Ago(time.Duration(i+1) * time.Hour)})
	}

	w, env := app.json(http.MethodGet, "/api/v1/user/posts?category=abc&sort=nope", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	payload := decode[struct {
		Posts struct {
			Data     []json.RawMessage `json:"data"`
			Total    int64             `json:"total"`
			PerPage  int               `json:"per_page"`
			LastPage int               `json:"last_page"`
		} `json:"posts"`
		Categories []json.RawMessage      `json:"categories"`
		Provinces  []json.RawMessage      `json:"provinces"`
		Filters    map[string]interface{} `json:"filters"`
	}](t, env.Data)
	assert.Len(t, payload.Posts.Data, 9)
	assert.EqualValues(t, 10, payload.Posts.Total)
	assert.Equal(t, 9, payload.Posts.PerPage)
	assert.Equal(t, 2, payload.Posts.LastPage)
	assert.Len(t, payload.Categories, 1)
	assert.Len(t, payload.Provinces, 1)
	assert.Equal(t, "all", payload.Filters["category"])
	assert.Equal(t, "latest", payload.Filters["sort"])
	assert.EqualValues(t, 1, payload.Filters["page"])
}

func TestHotelsWithoutHotelCategory(t *testing.T) {
	app := newTestApp(t)
	w, env := app.json(http.MethodGet, "/api/v1/user/hotels?page=2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"data":[]`)
}

func TestContactRelay(t *testing.T) {
	app := newTestApp(t)

	w, _ := app.json(http.MethodPost, "/api/v1/contact", gin.H{"email": "not-an-email", "message": "hi"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w, _ = app.json(http.MethodPost, "/api/v1/contact", gin.H{"email": "guest@example.com", "message": "<b></b>"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, app.mailer.sent)

	w, _ = app.json(http.MethodPost, "/api/v1/contact", gin.H{"email": "guest@example.com", "message": "Is Bokor open in <i>July</i>?"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, app.mailer.sent, 1)
	assert.Equal(t, "inbox@example.com", app.mailer.sent[0].To)
	assert.Contains(t, app.mailer.sent[0].Body, "Is Bokor open in July?")
	assert.Contains(t, app.mailer.sent[0].Subject, "guest@example.com")
}

func TestUnknownAPIRoute(t *testing.T) {
	app := newTestApp(t)
	w, env := app.json(http.MethodGet, "/api/v1/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40400, env.Code)
}
