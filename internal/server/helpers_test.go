package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"bboard/internal/cache"
	"bboard/internal/captcha"
	"bboard/internal/config"
	"bboard/internal/models"
	"bboard/internal/notifications"
	"bboard/internal/service"
	"bboard/internal/storage"
	"bboard/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const strongPassword = "Tr1cky-Passphrase!"

func init() {
	service.PasswordHashCost = bcrypt.MinCost
}

type testServer struct {
	t       *testing.T
	srv     *Server
	app     *fiber.App
	db      *gorm.DB
	outbox  *notifications.Outbox
	media   string
	revoker *cache.MemoryRevocationStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewTestDB(t)
	media := t.TempDir()
	store, err := storage.NewLocalStore(media, "/media/")
	require.NoError(t, err)

	cfg := &config.Config{
		Port:                 "0",
		Env:                  "test",
		SecretKey:            "server-test-secret-0123456789abcdef",
		SessionCookie:        "sessionid",
		SessionTTLHours:      24,
		SiteHost:             "http://board.test",
		AllowedOrigins:       "http://board.test",
		ImageMaxUploadSizeMB: 1,
		AdsPageSize:          2,
	}
	ts := &testServer{
		t:       t,
		db:      db,
		outbox:  &notifications.Outbox{},
		media:   media,
		revoker: cache.NewMemoryRevocationStore(),
	}
	srv, err := NewServerWithDeps(cfg, db, nil, Deps{
		Revoker: ts.revoker,
		Store:   store,
		Mailer:  ts.outbox,
		Captcha: captcha.Static{Accept: true},
	})
	require.NoError(t, err)
	ts.srv = srv
	ts.app = srv.App()
	return ts
}

func (ts *testServer) do(req *http.Request, cookies []*http.Cookie) *http.Response {
	ts.t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(ts.t, err)
	return resp
}

func (ts *testServer) get(path string, cookies ...*http.Cookie) *http.Response {
	return ts.do(httptest.NewRequest(http.MethodGet, path, nil), cookies)
}

func (ts *testServer) post(path string, values url.Values, cookies ...*http.Cookie) *http.Response {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	return ts.do(req, cookies)
}

func (ts *testServer) postJSON(path string, body any, cookies ...*http.Cookie) *http.Response {
	ts.t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(ts.t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	return ts.do(req, cookies)
}

type upload struct {
	field, name string
	data        []byte
}

func (ts *testServer) postMultipart(path string, values url.Values, files []upload, cookies ...*http.Cookie) *http.Response {
	ts.t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, vs := range values {
		for _, v := range vs {
			require.NoError(ts.t, w.WriteField(k, v))
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(ts.t, err)
		_, err = part.Write(f.data)
		require.NoError(ts.t, err)
	}
	require.NoError(ts.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return ts.do(req, cookies)
}

// login posts the login form and returns the live cookies.
func (ts *testServer) login(username, password string) []*http.Cookie {
	ts.t.Helper()
	resp := ts.post("/accounts/login/", url.Values{"username": {username}, "password": {password}})
	require.Equal(ts.t, http.StatusFound, resp.StatusCode)
	cookies := liveCookies(resp)
	require.NotEmpty(ts.t, cookies)
	return cookies
}

// liveCookies drops cookies the response expired.
func liveCookies(resp *http.Response) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range resp.Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

type pageBody struct {
	Page     string              `json:"page"`
	User     *models.User        `json:"user"`
	Menu     []models.Rubric     `json:"menu"`
	Data     map[string]any      `json:"data"`
	Errors   map[string][]string `json:"errors"`
	Messages []string            `json:"messages"`
}

func decodePage(t *testing.T, resp *http.Response) pageBody {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var p pageBody
	require.NoError(t, json.Unmarshal(raw, &p), string(raw))
	return p
}

func decodeError(t *testing.T, resp *http.Response) models.ErrorResponse {
	t.Helper()
	defer resp.Body.Close()
	var e models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", models.NewFieldError("title", "required"), http.StatusBadRequest},
		{"bad signature", models.NewBadSignatureError(nil), http.StatusBadRequest},
		{"unauthorized", models.NewUnauthorizedError("login"), http.StatusUnauthorized},
		{"forbidden", models.NewForbiddenError("not yours"), http.StatusForbidden},
		{"not found", models.NewNotFoundError("Ad", 1), http.StatusNotFound},
		{"conflict", models.NewConflictError("taken"), http.StatusConflict},
		{"integrity", models.NewIntegrityError("in use", nil), http.StatusConflict},
		{"internal", models.NewInternalError(nil), http.StatusInternalServerError},
		{"plain error", errors.New("smtp down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestFlashRoundTrip(t *testing.T) {
	app := fiber.New()
	app.Get("/set", func(c *fiber.Ctx) error {
		return redirectWith(c, "/show", "Ad added")
	})
	app.Get("/show", func(c *fiber.Ctx) error {
		return c.JSON(takeFlash(c))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/set", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/show", resp.Header.Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/show", nil)
	for _, c := range liveCookies(resp) {
		req.AddCookie(c)
	}
	resp, err = app.Test(req)
	require.NoError(t, err)
	var msgs []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	assert.Equal(t, []string{"Ad added"}, msgs)
	assert.Empty(t, liveCookies(resp), "flash cookie is cleared once shown")
}

func TestFormValues(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		f, err := parseForm(c)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"title":  f.Value("title"),
			"active": f.Bool("is_active"),
			"ids":    f.IDs("delete_images"),
		})
	})

	decode := func(resp *http.Response) map[string]any {
		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("title=Bike&is_active=on&delete_images=3&delete_images=x&delete_images=5"))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	resp, err := app.Test(req)
	require.NoError(t, err)
	out := decode(resp)
	assert.Equal(t, "Bike", out["title"])
	assert.Equal(t, true, out["active"])
	assert.Equal(t, []any{float64(3), float64(5)}, out["ids"])

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Car","is_active":false,"delete_images":[7]}`))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	resp, err = app.Test(req)
	require.NoError(t, err)
	out = decode(resp)
	assert.Equal(t, "Car", out["title"])
	assert.Equal(t, false, out["active"])
	assert.Equal(t, []any{float64(7)}, out["ids"])

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":`))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
